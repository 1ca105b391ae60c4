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

// Package jwe wraps keys as JSON Web Encryption (RFC 7516) objects using a
// derived AES-KW or AES-GCM key, the JOSE form of WebCrypto wrapKey and
// unwrapKey. The payload is the wrapped key's JWK.
//
// This package is a thin wrapper around go-jose. Key management uses
// A128KW, A192KW, A256KW or the AES-GCM key wrap variants, chosen from the
// wrapping key; content encryption is A256GCM.
//
// Example:
//
//	wrapped, _ := jwe.WrapKey(sessionKey, kek)
//	key, _ := jwe.UnwrapKey(wrapped, kek, false, types.UsageEncrypt)
package jwe

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"

	"github.com/jeremyhahn/go-derivekey/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// ContentType is the cty header of wrapped keys.
const ContentType = "jwk+json"

// ErrInvalidJWE is returned for malformed or undecryptable input.
var ErrInvalidJWE = errors.New("jwe: invalid object")

// contentEncryptions are accepted on unwrap.
var contentEncryptions = []jose.ContentEncryption{
	jose.A128GCM,
	jose.A192GCM,
	jose.A256GCM,
}

// WrapKey exports key as a JWK and encrypts it to JWE compact
// serialization. key must be extractable. wrappingKey must be an AES-KW or
// AES-GCM key carrying the wrapKey usage; its ID is written as the kid
// header.
func WrapKey(key, wrappingKey *material.Key) (string, error) {
	keyAlg, secret, err := wrappingSecret(wrappingKey, types.UsageWrapKey)
	if err != nil {
		return "", err
	}
	defer clear(secret)

	exported, err := jwk.FromKey(key)
	if err != nil {
		return "", err
	}
	payload, err := exported.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal JWK: %w", err)
	}
	defer clear(payload)

	opts := (&jose.EncrypterOptions{Compression: jose.NONE}).
		WithContentType(jose.ContentType(ContentType)).
		WithHeader(jose.HeaderKey("kid"), wrappingKey.ID())

	encrypter, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: keyAlg, Key: secret}, opts)
	if err != nil {
		return "", fmt.Errorf("failed to create encrypter: %w", err)
	}
	obj, err := encrypter.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}
	serialized, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize JWE: %w", err)
	}
	return serialized, nil
}

// UnwrapKey decrypts a JWE produced by WrapKey and imports the key with the
// given extractability and usages. unwrappingKey must carry the unwrapKey
// usage.
func UnwrapKey(serialized string, unwrappingKey *material.Key, extractable bool, usages types.KeyUsage) (*material.Key, error) {
	if serialized == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidJWE)
	}
	keyAlg, secret, err := wrappingSecret(unwrappingKey, types.UsageUnwrapKey)
	if err != nil {
		return nil, err
	}
	defer clear(secret)

	obj, err := jose.ParseEncrypted(serialized, []jose.KeyAlgorithm{keyAlg}, contentEncryptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWE, err)
	}
	payload, err := obj.Decrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: decryption failed: %v", ErrInvalidJWE, err)
	}
	defer clear(payload)

	wrapped, err := jwk.Unmarshal(payload)
	if err != nil {
		return nil, err
	}
	return wrapped.ToKey(extractable, usages)
}

// ExtractKID returns the kid header of a compact JWE without decrypting it,
// or an empty string when none is present.
func ExtractKID(serialized string) (string, error) {
	parts := strings.Split(serialized, ".")
	if len(parts) != 5 {
		return "", fmt.Errorf("%w: expected 5 parts, got %d", ErrInvalidJWE, len(parts))
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode header: %v", ErrInvalidJWE, err)
	}
	var header struct {
		Kid string `json:"kid,omitempty"`
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return "", fmt.Errorf("%w: failed to unmarshal header: %v", ErrInvalidJWE, err)
	}
	return header.Kid, nil
}

// wrappingSecret checks the wrapping key and returns its JOSE algorithm and
// a copy of its bytes.
func wrappingSecret(key *material.Key, usage types.KeyUsage) (jose.KeyAlgorithm, []byte, error) {
	if key == nil || key.Type() != types.KeyTypeSecret {
		return "", nil, fmt.Errorf("%w: wrapping key must be a secret key", types.ErrInvalidKey)
	}
	if !key.Usages().Has(usage) {
		return "", nil, fmt.Errorf("%w: key %s does not permit %s", types.ErrInvalidKey, key.ID(), usage)
	}
	keyAlg, err := keyAlgorithm(key.Algorithm())
	if err != nil {
		return "", nil, err
	}
	return keyAlg, key.Secret(), nil
}

func keyAlgorithm(alg material.Algorithm) (jose.KeyAlgorithm, error) {
	switch {
	case alg.Name == types.AlgorithmAESKW && alg.Length == 128:
		return jose.A128KW, nil
	case alg.Name == types.AlgorithmAESKW && alg.Length == 192:
		return jose.A192KW, nil
	case alg.Name == types.AlgorithmAESKW && alg.Length == 256:
		return jose.A256KW, nil
	case alg.Name == types.AlgorithmAESGCM && alg.Length == 128:
		return jose.A128GCMKW, nil
	case alg.Name == types.AlgorithmAESGCM && alg.Length == 192:
		return jose.A192GCMKW, nil
	case alg.Name == types.AlgorithmAESGCM && alg.Length == 256:
		return jose.A256GCMKW, nil
	default:
		return "", fmt.Errorf("%w: %s cannot wrap keys", types.ErrUnsupportedAlgorithm, alg)
	}
}
