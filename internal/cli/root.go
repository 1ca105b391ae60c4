// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-derivekey.
//
// go-derivekey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package cli implements the derivekey command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-derivekey/internal/config"
	"github.com/jeremyhahn/go-derivekey/internal/password"
	"github.com/jeremyhahn/go-derivekey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-derivekey/pkg/correlation"
	"github.com/jeremyhahn/go-derivekey/pkg/derive"
	"github.com/jeremyhahn/go-derivekey/pkg/metrics"
)

// app holds the state shared by every command of one invocation.
type app struct {
	// Flags
	configFile      string
	outputFormat    string
	encoding        string
	verbose         bool
	metricsTextfile string

	cfg     *config.Config
	log     logger.Logger
	deriver *derive.Deriver
	ctx     context.Context

	terminal password.Terminal
	stdinFd  int
}

func newApp() *app {
	return &app{
		terminal: password.DefaultTerminal{},
		stdinFd:  int(os.Stdin.Fd()),
	}
}

// newRootCmd builds the command tree bound to a.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "derivekey",
		Short: "derivekey - WebCrypto style key derivation tool",
		Long: `derivekey derives symmetric keys and raw bits from passphrases,
input keying material and Diffie-Hellman key agreements.

Derivation algorithms:
  - pbkdf2:   PBKDF2 with HMAC SHA-1/256/384/512
  - hkdf:     HKDF extract and expand
  - argon2id: Argon2id memory hard stretching
  - agree:    ECDH (P-256, P-384, P-521), X25519 and X448

Derived key algorithms: AES-CBC, AES-CTR, AES-GCM, AES-KW, HMAC,
and the KDFs themselves for chained derivation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "",
		"config file (default is $"+config.EnvPrefix+"CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&a.outputFormat, "output", "o", "",
		"output format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&a.encoding, "encoding", "e", "",
		"key encoding (hex, base64, jwk)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&a.metricsTextfile, "metrics-textfile", "",
		"write Prometheus metrics to this file on exit")

	// Add subcommands
	rootCmd.AddCommand(newVersionCmd(a))
	rootCmd.AddCommand(newPBKDF2Cmd(a))
	rootCmd.AddCommand(newHKDFCmd(a))
	rootCmd.AddCommand(newArgon2Cmd(a))
	rootCmd.AddCommand(newAgreeCmd(a))
	rootCmd.AddCommand(newGenerateCmd(a))

	return rootCmd
}

// Execute runs the root command and reports errors on stderr.
func Execute(ctx context.Context) error {
	a := newApp()
	cmd := newRootCmd(a)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		// PersistentPostRunE does not run after a failed command
		_ = a.teardown()
		printer := NewPrinter(a.format(), os.Stderr)
		_ = printer.PrintError(err) // Error printing to stderr is best-effort
	}
	return err
}

// setup loads configuration and builds the logger and deriver.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configFile
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.outputFormat != "" {
		cfg.Defaults.Output = a.outputFormat
	}
	if a.encoding != "" {
		cfg.Defaults.Encoding = a.encoding
	}
	if a.metricsTextfile != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.TextfilePath = a.metricsTextfile
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	a.log = logger.NewSlogAdapter(&logger.SlogConfig{
		Level:  cfg.LogLevel(),
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}
	a.deriver = derive.New(
		derive.WithLogger(a.log),
		derive.WithMetrics(cfg.Metrics.Enabled),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if id := os.Getenv(correlation.CorrelationIDEnv); id != "" {
		ctx = correlation.WithCorrelationID(ctx, id)
	}
	a.ctx = correlation.Ensure(ctx)

	a.log.Debug("configuration loaded",
		logger.String("config", path),
		logger.String("correlation_id", correlation.GetCorrelationID(a.ctx)),
		logger.Bool("metrics", cfg.Metrics.Enabled))
	return nil
}

// teardown writes the metrics textfile when one is configured.
func (a *app) teardown() error {
	if a.cfg == nil || !a.cfg.Metrics.Enabled || a.cfg.Metrics.TextfilePath == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil {
		return err
	}
	a.log.Debug("metrics written", logger.String("path", a.cfg.Metrics.TextfilePath))
	return nil
}

// format returns the effective output format, usable before setup.
func (a *app) format() string {
	if a.cfg != nil {
		return a.cfg.Defaults.Output
	}
	if a.outputFormat != "" {
		return a.outputFormat
	}
	return config.OutputText
}

func (a *app) printer(w io.Writer) *Printer {
	return NewPrinter(a.format(), w)
}
