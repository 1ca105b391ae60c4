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

// Package config loads the derivekey CLI configuration from YAML with
// DERIVEKEY_* environment overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-derivekey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-derivekey/pkg/derive"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DERIVEKEY_"

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Key encodings
const (
	EncodingHex    = "hex"
	EncodingBase64 = "base64"
	EncodingJWK    = "jwk"
)

// Config represents the complete CLI configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls Prometheus instrumentation. When TextfilePath is
// set the CLI writes the registry there on exit, for the node_exporter
// textfile collector.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TextfilePath string `yaml:"textfile_path"`
}

// DefaultsConfig holds the values used when a flag is not given
type DefaultsConfig struct {
	Hash       string       `yaml:"hash"`
	Iterations int          `yaml:"iterations"`
	Argon2     Argon2Config `yaml:"argon2"`
	Target     string       `yaml:"target"`
	Length     int          `yaml:"length"`
	Usages     []string     `yaml:"usages"`
	Output     string       `yaml:"output"`
	Encoding   string       `yaml:"encoding"`
}

// Argon2Config holds Argon2id cost parameters. Memory is in KiB.
type Argon2Config struct {
	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory"`
	Threads uint8  `yaml:"threads"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: logger.FormatText,
		},
		Defaults: DefaultsConfig{
			Hash:       types.HashSHA256.String(),
			Iterations: 600000,
			Argon2: Argon2Config{
				Time:    3,
				Memory:  64 * 1024,
				Threads: 4,
			},
			Target:   types.AlgorithmAESGCM.String(),
			Length:   256,
			Usages:   []string{"encrypt", "decrypt"},
			Output:   OutputText,
			Encoding: EncodingHex,
		},
	}
}

// Load reads configuration from a YAML file over the defaults and applies
// environment variable overrides. An empty path loads the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by the user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	// Logging
	if level := os.Getenv(EnvPrefix + "LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv(EnvPrefix + "LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Metrics
	if enabled := os.Getenv(EnvPrefix + "METRICS_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			log.Printf("Warning: invalid %sMETRICS_ENABLED value %q, using %t: %v",
				EnvPrefix, enabled, cfg.Metrics.Enabled, err)
		} else {
			cfg.Metrics.Enabled = v
		}
	}
	if path := os.Getenv(EnvPrefix + "METRICS_TEXTFILE"); path != "" {
		cfg.Metrics.TextfilePath = path
	}

	// Defaults
	if hash := os.Getenv(EnvPrefix + "HASH"); hash != "" {
		cfg.Defaults.Hash = hash
	}
	if iterations := os.Getenv(EnvPrefix + "ITERATIONS"); iterations != "" {
		n, err := strconv.Atoi(iterations)
		if err != nil {
			log.Printf("Warning: invalid %sITERATIONS value %q, using default %d: %v",
				EnvPrefix, iterations, cfg.Defaults.Iterations, err)
		} else {
			cfg.Defaults.Iterations = n
		}
	}
	if target := os.Getenv(EnvPrefix + "TARGET"); target != "" {
		cfg.Defaults.Target = target
	}
	if length := os.Getenv(EnvPrefix + "LENGTH"); length != "" {
		n, err := strconv.Atoi(length)
		if err != nil {
			log.Printf("Warning: invalid %sLENGTH value %q, using default %d: %v",
				EnvPrefix, length, cfg.Defaults.Length, err)
		} else {
			cfg.Defaults.Length = n
		}
	}
	if usages := os.Getenv(EnvPrefix + "USAGES"); usages != "" {
		cfg.Defaults.Usages = strings.Split(usages, ",")
	}
	if output := os.Getenv(EnvPrefix + "OUTPUT"); output != "" {
		cfg.Defaults.Output = output
	}
	if encoding := os.Getenv(EnvPrefix + "ENCODING"); encoding != "" {
		cfg.Defaults.Encoding = encoding
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	d := c.Defaults
	if types.ParseHashName(d.Hash) == "" {
		return fmt.Errorf("invalid hash: %s (must be SHA-1, SHA-256, SHA-384, or SHA-512)", d.Hash)
	}
	if d.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", d.Iterations)
	}
	if d.Argon2.Time < 1 {
		return fmt.Errorf("argon2 time must be positive, got %d", d.Argon2.Time)
	}
	if d.Argon2.Threads < 1 {
		return fmt.Errorf("argon2 threads must be positive, got %d", d.Argon2.Threads)
	}
	if d.Argon2.Memory < 8*uint32(d.Argon2.Threads) {
		return fmt.Errorf("argon2 memory must be at least %d KiB for %d threads, got %d",
			8*uint32(d.Argon2.Threads), d.Argon2.Threads, d.Argon2.Memory)
	}
	if d.Length < 0 {
		return fmt.Errorf("length must not be negative, got %d", d.Length)
	}
	if _, err := d.TargetAlgorithm(); err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}
	if _, err := d.KeyUsages(); err != nil {
		return fmt.Errorf("invalid usages: %w", err)
	}
	switch d.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("invalid output: %s (must be text or json)", d.Output)
	}
	switch d.Encoding {
	case EncodingHex, EncodingBase64, EncodingJWK:
	default:
		return fmt.Errorf("invalid encoding: %s (must be hex, base64, or jwk)", d.Encoding)
	}
	return nil
}

// LogLevel returns the parsed logging level, or info when invalid.
func (c *Config) LogLevel() logger.Level {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return logger.LevelInfo
	}
	return level
}

// HashName returns the canonical default hash.
func (d DefaultsConfig) HashName() types.HashName {
	return types.ParseHashName(d.Hash)
}

// TargetAlgorithm returns the default derived key descriptor. HMAC targets
// use the default hash.
func (d DefaultsConfig) TargetAlgorithm() (derive.KeyAlgorithm, error) {
	return derive.NewKeyAlgorithm(d.Target, d.HashName(), d.Length)
}

// KeyUsages returns the default usage set.
func (d DefaultsConfig) KeyUsages() (types.KeyUsage, error) {
	return types.ParseKeyUsages(d.Usages)
}
