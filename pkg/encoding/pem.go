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

package encoding

import (
	"bytes"
	"encoding/pem"
	"fmt"

	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// PEM block types
const (
	PEMTypePrivateKey          = "PRIVATE KEY"
	PEMTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	PEMTypePublicKey           = "PUBLIC KEY"
)

// EncodePrivateKeyPEM encodes an agreement private key to PEM format.
// If a password is provided, the key will be encrypted using PKCS#8 and the
// block type is "ENCRYPTED PRIVATE KEY".
//
// Example:
//
//	pemData, err := encoding.EncodePrivateKeyPEM(privateKey, []byte("password"))
func EncodePrivateKeyPEM(key *material.Key, password []byte) ([]byte, error) {
	der, err := EncodePKCS8(key, password)
	if err != nil {
		return nil, err
	}

	blockType := PEMTypePrivateKey
	if len(password) > 0 {
		blockType = PEMTypeEncryptedPrivateKey
	}
	return encodePEM(blockType, der)
}

// DecodePrivateKeyPEM decodes PEM encoded data to an agreement private key.
// If the PEM data is encrypted, a password must be provided.
//
// Example:
//
//	key, err := encoding.DecodePrivateKeyPEM(pemData, []byte("password"), false, types.UsageDerive)
func DecodePrivateKeyPEM(data []byte, password []byte, extractable bool, usages types.KeyUsage) (*material.Key, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case PEMTypeEncryptedPrivateKey:
		if len(password) == 0 {
			return nil, ErrPasswordRequired
		}
	case PEMTypePrivateKey:
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEMEncoding, block.Type)
	}
	return DecodePKCS8(block.Bytes, password, extractable, usages)
}

// EncodePublicKeyPEM encodes the public half of an agreement key to PEM
// format.
//
// Example:
//
//	pemData, err := encoding.EncodePublicKeyPEM(publicKey)
func EncodePublicKeyPEM(key *material.Key) ([]byte, error) {
	der, err := EncodePublicKeyPKIX(key)
	if err != nil {
		return nil, err
	}
	return encodePEM(PEMTypePublicKey, der)
}

// DecodePublicKeyPEM decodes PEM encoded data to an agreement public key.
//
// Example:
//
//	key, err := encoding.DecodePublicKeyPEM(pemData)
func DecodePublicKeyPEM(data []byte) (*material.Key, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}
	if block.Type != PEMTypePublicKey {
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEMEncoding, block.Type)
	}
	return DecodePublicKeyPKIX(block.Bytes)
}

func encodePEM(blockType string, der []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := pem.Encode(&buf, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return nil, fmt.Errorf("failed to encode PEM: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePEM(data []byte) (*pem.Block, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMEncoding
	}
	return block, nil
}
