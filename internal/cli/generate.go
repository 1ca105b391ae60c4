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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-derivekey/internal/config"
	"github.com/jeremyhahn/go-derivekey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-derivekey/pkg/encoding"
	"github.com/jeremyhahn/go-derivekey/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// Key file formats
const (
	keyFormatPEM = "pem"
	keyFormatJWK = "jwk"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		keyPassword passphraseFlags
		curveName   string
		format      string
		privateOut  string
		publicOut   string
		encrypt     bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an agreement key pair",
		Long: `Generate an ECDH, X25519 or X448 key pair for use with the agree command.

Keys are written as PKCS#8 and PKIX PEM, or as JWK. X448 keys have no
PKCS#8 encoding in the standard library and must use JWK.`,
		Example: `  derivekey generate --curve P-384 --private-out alice.pem --public-out alice.pub.pem
  derivekey generate --curve X448 --format jwk`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			curve := types.ParseEllipticCurve(curveName)
			if curve == "" {
				return fmt.Errorf("%w: unknown curve %q", types.ErrUnsupportedAlgorithm, curveName)
			}
			if !cmd.Flags().Changed("format") {
				format = keyFormatPEM
				if a.cfg.Defaults.Encoding == config.EncodingJWK || curve == types.CurveX448 {
					format = keyFormatJWK
				}
			}

			priv, pub, err := material.GenerateKeyPair(curve, true, types.UsageDerive)
			if err != nil {
				return err
			}

			var pass []byte
			if encrypt {
				if format != keyFormatPEM {
					return fmt.Errorf("--encrypt requires --format %s", keyFormatPEM)
				}
				secret, err := keyPassword.read(cmd, a, "key-password", true)
				if err != nil {
					return err
				}
				defer secret.Clear()
				pass = secret.Bytes()
				defer clear(pass)
			}

			privData, pubData, err := encodeKeyPair(priv, pub, format, pass)
			if err != nil {
				return err
			}
			defer clear(privData)

			a.log.Info("generated key pair",
				logger.String("algorithm", priv.Algorithm().String()),
				logger.String("key_id", priv.ID()),
				logger.String("format", format),
				logger.Bool("encrypted", encrypt))

			if privateOut != "" {
				if err := os.WriteFile(privateOut, privData, 0600); err != nil {
					return fmt.Errorf("failed to write private key: %w", err)
				}
				privData = nil
			}
			if publicOut != "" {
				if err := os.WriteFile(publicOut, pubData, 0644); err != nil { // #nosec G306 - public key
					return fmt.Errorf("failed to write public key: %w", err)
				}
				pubData = nil
			}
			if privData == nil && pubData == nil {
				return a.printer(cmd.OutOrStdout()).PrintSuccess(
					fmt.Sprintf("Generated %s key pair %s", priv.Algorithm(), priv.ID()))
			}
			return a.printer(cmd.OutOrStdout()).PrintKeyPair(priv.Algorithm().String(), privData, pubData)
		},
	}
	keyPassword.register(cmd, "key-password")
	cmd.Flags().StringVarP(&curveName, "curve", "c", string(types.CurveX25519),
		"curve (P-256, P-384, P-521, X25519, X448)")
	cmd.Flags().StringVarP(&format, "format", "f", keyFormatPEM, "key file format (pem, jwk)")
	cmd.Flags().StringVar(&privateOut, "private-out", "", "write the private key to this file")
	cmd.Flags().StringVar(&publicOut, "public-out", "", "write the public key to this file")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt the PEM private key with a password")
	return cmd
}

func encodeKeyPair(priv, pub *material.Key, format string, pass []byte) ([]byte, []byte, error) {
	switch format {
	case keyFormatPEM:
		privData, err := encoding.EncodePrivateKeyPEM(priv, pass)
		if err != nil {
			return nil, nil, err
		}
		pubData, err := encoding.EncodePublicKeyPEM(pub)
		if err != nil {
			return nil, nil, err
		}
		return privData, pubData, nil
	case keyFormatJWK:
		privData, err := marshalJWK(priv)
		if err != nil {
			return nil, nil, err
		}
		pubData, err := marshalJWK(pub)
		if err != nil {
			return nil, nil, err
		}
		return privData, pubData, nil
	default:
		return nil, nil, fmt.Errorf("unknown key format: %s", format)
	}
}

func marshalJWK(key *material.Key) ([]byte, error) {
	j, err := jwk.FromKey(key)
	if err != nil {
		return nil, err
	}
	data, err := j.MarshalIndent("", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
