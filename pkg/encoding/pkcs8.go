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

// Package encoding serializes agreement keys as PKCS#8 and PKIX DER or PEM.
// Secret keys are exported raw or as JWK by the jwk subpackage.
package encoding

import (
	stdecdh "crypto/ecdh"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"

	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// EncodePKCS8 encodes an extractable agreement private key to ASN.1 DER
// PKCS#8 format. If a password is provided, the key will be encrypted with
// PBES2 (PBKDF2 and AES-256-CBC).
//
// NIST curve and X25519 keys are supported. X448 has no PKCS#8 encoding in
// the standard library and returns ErrUnsupportedKey.
//
// Example:
//
//	der, err := encoding.EncodePKCS8(privateKey, []byte("mypassword"))
func EncodePKCS8(key *material.Key, password []byte) ([]byte, error) {
	priv, err := standardPrivateKey(key)
	if err != nil {
		return nil, err
	}

	der, err := pkcs8.MarshalPrivateKey(priv, password, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKCS#8: %w", err)
	}
	return der, nil
}

// DecodePKCS8 decodes ASN.1 DER PKCS#8 data to an agreement private key
// with the given extractability and usages. If the data is encrypted, a
// password must be provided.
//
// Example:
//
//	key, err := encoding.DecodePKCS8(der, []byte("mypassword"), false, types.UsageDerive)
func DecodePKCS8(data []byte, password []byte, extractable bool, usages types.KeyUsage) (*material.Key, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	var (
		parsed any
		err    error
	)
	if len(password) == 0 {
		parsed, err = pkcs8.ParsePKCS8PrivateKey(data)
	} else {
		parsed, err = pkcs8.ParsePKCS8PrivateKey(data, password)
	}
	if err != nil {
		if len(password) > 0 && isPasswordError(err) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to parse PKCS#8: %w", err)
	}

	key, err := material.FromPrivateKey(parsed, extractable, usages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
	}
	return key, nil
}

// EncodePublicKeyPKIX encodes the public half of an agreement key to ASN.1
// DER PKIX format (SubjectPublicKeyInfo). A private key may be passed; its
// public key is encoded.
//
// Example:
//
//	der, err := encoding.EncodePublicKeyPKIX(publicKey)
func EncodePublicKeyPKIX(key *material.Key) ([]byte, error) {
	if key == nil || key.PublicKey() == nil {
		return nil, ErrInvalidPublicKey
	}
	pub := key.PublicKey().Standard()
	if pub == nil {
		return nil, fmt.Errorf("%w: %s has no PKIX encoding", ErrUnsupportedKey, key.Algorithm())
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKIX public key: %w", err)
	}
	return der, nil
}

// DecodePublicKeyPKIX decodes ASN.1 DER PKIX data to an agreement public key.
//
// Example:
//
//	key, err := encoding.DecodePublicKeyPKIX(der)
func DecodePublicKeyPKIX(data []byte) (*material.Key, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	parsed, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKIX public key: %w", err)
	}

	key, err := material.FromPublicKey(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
	}
	return key, nil
}

// standardPrivateKey returns the crypto/ecdh form of an exportable private key.
func standardPrivateKey(key *material.Key) (*stdecdh.PrivateKey, error) {
	if key == nil || key.Type() != types.KeyTypePrivate {
		return nil, ErrInvalidPrivateKey
	}
	if !key.Extractable() {
		return nil, ErrNotExtractable
	}
	priv := key.PrivateKey().Standard()
	if priv == nil {
		return nil, fmt.Errorf("%w: %s has no PKCS#8 encoding", ErrUnsupportedKey, key.Algorithm())
	}
	return priv, nil
}

// isPasswordError checks if an error is related to incorrect password.
// The pkcs8 package returns various error messages for password issues.
func isPasswordError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"incorrect password",
		"asn1: structure error",
		"tags don't match",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
