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

package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-derivekey/internal/password"
	"github.com/jeremyhahn/go-derivekey/pkg/derive"
	"github.com/jeremyhahn/go-derivekey/pkg/encoding"
	"github.com/jeremyhahn/go-derivekey/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// targetFlags select the derived key, or raw bits when --bits is given.
type targetFlags struct {
	target      string
	hash        string
	length      int
	usages      []string
	extractable bool
	bits        int
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.target, "target", "t", "",
		"derived key algorithm (AES-CBC, AES-CTR, AES-GCM, AES-KW, HMAC, PBKDF2, HKDF, Argon2id)")
	cmd.Flags().StringVar(&f.hash, "target-hash", "",
		"HMAC hash of the derived key")
	cmd.Flags().IntVarP(&f.length, "length", "l", 0,
		"derived key length in bits (0 selects the algorithm default)")
	cmd.Flags().StringSliceVarP(&f.usages, "usages", "u", nil,
		"derived key usages (encrypt, decrypt, sign, verify, wrapKey, unwrapKey, derive)")
	cmd.Flags().BoolVar(&f.extractable, "extractable", true,
		"mark the derived key extractable so it can be printed")
	cmd.Flags().IntVar(&f.bits, "bits", 0,
		"derive raw bits of this length instead of a key (0 with agree selects the shared secret length)")
}

// bitsRequested reports whether raw bits rather than a key were asked for.
func (f *targetFlags) bitsRequested(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("bits")
}

// resolve fills unset flags from the configuration defaults and returns the
// target descriptor, extractability and usages.
func (f *targetFlags) resolve(cmd *cobra.Command, a *app) (derive.KeyAlgorithm, bool, types.KeyUsage, error) {
	d := a.cfg.Defaults
	flags := cmd.Flags()

	name, length := d.Target, d.Length
	if flags.Changed("target") {
		name = f.target
		// The configured length belongs to the configured target
		length = 0
	}
	if flags.Changed("length") {
		length = f.length
	}
	hash := d.HashName()
	if flags.Changed("target-hash") {
		hash = types.ParseHashName(f.hash)
		if hash == "" {
			return nil, false, 0, fmt.Errorf("%w: unknown hash %q", types.ErrUnsupportedAlgorithm, f.hash)
		}
	}
	target, err := derive.NewKeyAlgorithm(name, hash, length)
	if err != nil {
		return nil, false, 0, err
	}

	usageNames := d.Usages
	if flags.Changed("usages") {
		usageNames = f.usages
	} else if name != d.Target {
		usageNames = defaultUsages(target.AlgorithmName())
	}
	usages, err := types.ParseKeyUsages(usageNames)
	if err != nil {
		return nil, false, 0, err
	}

	extractable := f.extractable
	if !flags.Changed("extractable") && target.AlgorithmName().IsKDF() {
		extractable = false
	}
	return target, extractable, usages, nil
}

// defaultUsages returns the usages given to a target when neither the
// configuration nor a flag names any.
func defaultUsages(name types.AlgorithmName) []string {
	switch {
	case name == types.AlgorithmAESKW:
		return []string{"wrapKey", "unwrapKey"}
	case name.IsAES():
		return []string{"encrypt", "decrypt"}
	case name == types.AlgorithmHMAC:
		return []string{"sign", "verify"}
	default:
		return []string{"derive"}
	}
}

// passphraseFlags resolve the secret fed to a KDF.
type passphraseFlags struct {
	value string
	file  string
	env   string
}

func (f *passphraseFlags) register(cmd *cobra.Command, name string) {
	cmd.Flags().StringVar(&f.value, name, "",
		name+" value (prompted for when no source is given)")
	cmd.Flags().StringVar(&f.file, name+"-file", "",
		"file containing the "+name)
	cmd.Flags().StringVar(&f.env, name+"-env", "",
		"environment variable containing the "+name)
}

func (f *passphraseFlags) read(cmd *cobra.Command, a *app, name string, confirm bool) (*password.ClearPassword, error) {
	src := &password.Source{
		File:     f.file,
		Env:      f.env,
		Prompt:   strings.ToUpper(name[:1]) + name[1:] + ": ",
		Confirm:  confirm,
		Terminal: a.terminal,
		Fd:       a.stdinFd,
		In:       cmd.InOrStdin(),
		Out:      cmd.ErrOrStderr(),
	}
	if cmd.Flags().Changed(name) {
		src.Value = &f.value
	}
	return src.Read()
}

// parseBytes decodes a flag value. The prefixes hex:, base64: and file:
// select an encoding; anything else is taken as UTF-8 text.
func parseBytes(s string) ([]byte, error) {
	switch {
	case strings.HasPrefix(s, "hex:"):
		b, err := hex.DecodeString(strings.TrimPrefix(s, "hex:"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex input: %w", err)
		}
		return b, nil
	case strings.HasPrefix(s, "base64:"):
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, "base64:"))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 input: %w", err)
		}
		return b, nil
	case strings.HasPrefix(s, "file:"):
		// #nosec G304 - Input file path is provided by the user
		b, err := os.ReadFile(strings.TrimPrefix(s, "file:"))
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		return b, nil
	default:
		return []byte(s), nil
	}
}

// isJWK reports whether data looks like a JSON Web Key rather than PEM.
func isJWK(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("{"))
}

// loadPrivateKey reads a PEM or JWK agreement private key for derivation.
// Encrypted PEM keys prompt for their password.
func loadPrivateKey(cmd *cobra.Command, a *app, path string, pw *passphraseFlags) (*material.Key, error) {
	// #nosec G304 - Key file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	if isJWK(data) {
		j, err := jwk.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		return j.ToKey(false, types.UsageDerive)
	}

	key, err := encoding.DecodePrivateKeyPEM(data, nil, false, types.UsageDerive)
	if !errors.Is(err, encoding.ErrPasswordRequired) {
		return key, err
	}
	secret, err := pw.read(cmd, a, "key-password", false)
	if err != nil {
		return nil, err
	}
	defer secret.Clear()
	pass := secret.Bytes()
	defer clear(pass)
	return encoding.DecodePrivateKeyPEM(data, pass, false, types.UsageDerive)
}

// loadPublicKey reads a PEM or JWK agreement public key.
func loadPublicKey(path string) (*material.Key, error) {
	// #nosec G304 - Key file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	if isJWK(data) {
		j, err := jwk.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		if j.IsPrivate() {
			return nil, fmt.Errorf("%w: peer key file holds a private key", types.ErrInvalidKey)
		}
		return j.ToKey(true, 0)
	}
	return encoding.DecodePublicKeyPEM(data)
}
