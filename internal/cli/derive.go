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
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-derivekey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-derivekey/pkg/derive"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

func newPBKDF2Cmd(a *app) *cobra.Command {
	var (
		target     targetFlags
		passphrase passphraseFlags
		salt       string
		hash       string
		iterations int
	)
	cmd := &cobra.Command{
		Use:   "pbkdf2",
		Short: "Derive a key from a passphrase with PBKDF2",
		Example: `  derivekey pbkdf2 --passphrase-env PASS --salt hex:00112233 --target AES-GCM --length 256
  derivekey pbkdf2 --salt there --iterations 10 --bits 256 < passphrase.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("iterations") {
				iterations = a.cfg.Defaults.Iterations
			}
			params := derive.PBKDF2Params{
				Hash:       a.hashFlag(cmd, hash),
				Iterations: iterations,
			}
			var err error
			if params.Salt, err = a.saltFlag(cmd, salt); err != nil {
				return err
			}
			base, err := a.importPassphrase(cmd, &passphrase, "passphrase", types.AlgorithmPBKDF2, false)
			if err != nil {
				return err
			}
			return a.derive(cmd, &target, params, base)
		},
	}
	target.register(cmd)
	passphrase.register(cmd, "passphrase")
	cmd.Flags().StringVarP(&salt, "salt", "s", "", "salt (hex:, base64: or file: prefixed, otherwise text)")
	cmd.Flags().StringVar(&hash, "hash", "", "PRF hash (SHA-1, SHA-256, SHA-384, SHA-512)")
	cmd.Flags().IntVarP(&iterations, "iterations", "i", 0, "iteration count")
	return cmd
}

func newHKDFCmd(a *app) *cobra.Command {
	var (
		target targetFlags
		ikm    passphraseFlags
		salt   string
		info   string
		hash   string
	)
	cmd := &cobra.Command{
		Use:   "hkdf",
		Short: "Derive a key from input keying material with HKDF",
		Example: `  derivekey hkdf --ikm hex:0b0b0b0b0b0b0b0b0b0b0b --salt hex:000102 --info hex:f0f1f2 --bits 336
  derivekey hkdf --ikm-file shared.bin --info session --target HMAC --target-hash SHA-384`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := derive.HKDFParams{Hash: a.hashFlag(cmd, hash)}
			var err error
			if params.Salt, err = parseBytes(salt); err != nil {
				return err
			}
			if params.Info, err = parseBytes(info); err != nil {
				return err
			}
			base, err := a.importPassphrase(cmd, &ikm, "ikm", types.AlgorithmHKDF, true)
			if err != nil {
				return err
			}
			return a.derive(cmd, &target, params, base)
		},
	}
	target.register(cmd)
	ikm.register(cmd, "ikm")
	cmd.Flags().StringVarP(&salt, "salt", "s", "", "salt (hex:, base64: or file: prefixed, otherwise text)")
	cmd.Flags().StringVar(&info, "info", "", "context info (hex:, base64: or file: prefixed, otherwise text)")
	cmd.Flags().StringVar(&hash, "hash", "", "HMAC hash (SHA-1, SHA-256, SHA-384, SHA-512)")
	return cmd
}

func newArgon2Cmd(a *app) *cobra.Command {
	var (
		target     targetFlags
		passphrase passphraseFlags
		salt       string
		params     derive.Argon2Params
	)
	cmd := &cobra.Command{
		Use:     "argon2id",
		Aliases: []string{"argon2"},
		Short:   "Derive a key from a passphrase with Argon2id",
		Example: `  derivekey argon2id --salt hex:0011223344556677 --time 3 --memory 65536 --threads 4`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := a.cfg.Defaults.Argon2
			if !cmd.Flags().Changed("time") {
				params.Time = defaults.Time
			}
			if !cmd.Flags().Changed("memory") {
				params.Memory = defaults.Memory
			}
			if !cmd.Flags().Changed("threads") {
				params.Threads = defaults.Threads
			}
			var err error
			if params.Salt, err = a.saltFlag(cmd, salt); err != nil {
				return err
			}
			base, err := a.importPassphrase(cmd, &passphrase, "passphrase", types.AlgorithmArgon2id, false)
			if err != nil {
				return err
			}
			return a.derive(cmd, &target, params, base)
		},
	}
	target.register(cmd)
	passphrase.register(cmd, "passphrase")
	cmd.Flags().StringVarP(&salt, "salt", "s", "", "salt (hex:, base64: or file: prefixed, otherwise text)")
	cmd.Flags().Uint32Var(&params.Time, "time", 0, "number of passes")
	cmd.Flags().Uint32Var(&params.Memory, "memory", 0, "memory in KiB")
	cmd.Flags().Uint8Var(&params.Threads, "threads", 0, "degree of parallelism")
	return cmd
}

func newAgreeCmd(a *app) *cobra.Command {
	var (
		target      targetFlags
		keyPassword passphraseFlags
		privatePath string
		peerPath    string
		name        string
	)
	cmd := &cobra.Command{
		Use:   "agree",
		Short: "Derive a key from an ECDH, X25519 or X448 key agreement",
		Example: `  derivekey agree --private alice.pem --peer bob.pub.pem --target AES-KW --length 256
  derivekey agree --private alice.jwk --peer bob.pub.jwk --bits 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := loadPrivateKey(cmd, a, privatePath, &keyPassword)
			if err != nil {
				return err
			}
			peer, err := loadPublicKey(peerPath)
			if err != nil {
				return err
			}
			params := derive.ECDHParams{
				Name:   types.ParseAlgorithmName(name),
				Public: peer,
			}
			return a.derive(cmd, &target, params, base)
		},
	}
	target.register(cmd)
	keyPassword.register(cmd, "key-password")
	cmd.Flags().StringVar(&privatePath, "private", "", "private key file (PEM or JWK)")
	cmd.Flags().StringVar(&peerPath, "peer", "", "peer public key file (PEM or JWK)")
	cmd.Flags().StringVar(&name, "algorithm", "", "agreement algorithm (ECDH, X25519, X448); inferred from the peer key when empty")
	_ = cmd.MarkFlagRequired("private")
	_ = cmd.MarkFlagRequired("peer")
	return cmd
}

// derive runs the derivation and prints the key or bits.
func (a *app) derive(cmd *cobra.Command, target *targetFlags, params derive.Params, base *material.Key) error {
	out := a.printer(cmd.OutOrStdout())
	enc := a.cfg.Defaults.Encoding

	if target.bitsRequested(cmd) {
		bits, err := a.deriver.DeriveBits(a.ctx, params, base, target.bits)
		if err != nil {
			return err
		}
		defer clear(bits)
		length := target.bits
		if length == 0 {
			length = len(bits) * 8
		}
		return out.PrintBits(bits, length, enc)
	}

	alg, extractable, usages, err := target.resolve(cmd, a)
	if err != nil {
		return err
	}
	key, err := a.deriver.DeriveKey(a.ctx, params, base, alg, extractable, usages)
	if err != nil {
		return err
	}
	return out.PrintKey(key, enc)
}

// importPassphrase reads a KDF secret and imports it as a derive-only base
// key. With decode set, an explicit flag value goes through parseBytes.
func (a *app) importPassphrase(cmd *cobra.Command, f *passphraseFlags, name string,
	alg types.AlgorithmName, decode bool) (*material.Key, error) {

	var secret []byte
	if decode && cmd.Flags().Changed(name) {
		b, err := parseBytes(f.value)
		if err != nil {
			return nil, err
		}
		secret = b
	} else {
		p, err := f.read(cmd, a, name, false)
		if err != nil {
			return nil, err
		}
		defer p.Clear()
		secret = p.Bytes()
	}
	defer clear(secret)

	return material.ImportSecret(material.Algorithm{Name: alg}, secret, false, types.UsageDerive)
}

// hashFlag returns the hash flag value, or the configured default.
func (a *app) hashFlag(cmd *cobra.Command, value string) types.HashName {
	if cmd.Flags().Changed("hash") {
		// Unknown names are left for the deriver to reject
		if h := types.ParseHashName(value); h != "" {
			return h
		}
		return types.HashName(value)
	}
	return a.cfg.Defaults.HashName()
}

// saltFlag parses the salt, warning when none was given.
func (a *app) saltFlag(cmd *cobra.Command, value string) ([]byte, error) {
	if !cmd.Flags().Changed("salt") {
		a.log.Warn("no salt given, deriving with an empty salt", logger.String("command", cmd.Name()))
	}
	return parseBytes(value)
}
