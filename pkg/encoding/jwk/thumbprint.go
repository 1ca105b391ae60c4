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

package jwk

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jeremyhahn/go-derivekey/pkg/material"
)

// ThumbprintSHA256 computes the SHA-256 JWK thumbprint of a key as defined
// in RFC 7638.
//
// For EC keys: {"crv":"...","kty":"EC","x":"...","y":"..."}
// For OKP keys: {"crv":"...","kty":"OKP","x":"..."}
// For oct keys: {"k":"...","kty":"oct"}
func ThumbprintSHA256(key *material.Key) (string, error) {
	jwk, err := FromKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to convert key to JWK: %w", err)
	}
	return jwk.Thumbprint(crypto.SHA256)
}

// Thumbprint computes the JWK thumbprint using hashFunc, one of
// crypto.SHA1, SHA256, SHA384 or SHA512. Private members never contribute.
func (jwk *JWK) Thumbprint(hashFunc crypto.Hash) (string, error) {
	fields, err := jwk.requiredThumbprintFields()
	if err != nil {
		return "", err
	}

	switch hashFunc {
	case crypto.SHA1, crypto.SHA256, crypto.SHA384, crypto.SHA512:
	default:
		return "", fmt.Errorf("unsupported hash function: %v", hashFunc)
	}

	data, err := serializeForThumbprint(fields)
	if err != nil {
		return "", fmt.Errorf("failed to serialize for thumbprint: %w", err)
	}
	h := hashFunc.New()
	h.Write(data)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// requiredThumbprintFields returns the members RFC 7638 Section 3.2 names
// for the key type.
func (jwk *JWK) requiredThumbprintFields() (map[string]string, error) {
	fields := map[string]string{"kty": jwk.Kty}

	switch KeyType(jwk.Kty) {
	case KeyTypeEC:
		if jwk.Crv == "" || jwk.X == "" || jwk.Y == "" {
			return nil, fmt.Errorf("%w: EC JWK missing required fields for thumbprint", ErrInvalidJWK)
		}
		fields["crv"] = jwk.Crv
		fields["x"] = jwk.X
		fields["y"] = jwk.Y
	case KeyTypeOKP:
		if jwk.Crv == "" || jwk.X == "" {
			return nil, fmt.Errorf("%w: OKP JWK missing required fields for thumbprint", ErrInvalidJWK)
		}
		fields["crv"] = jwk.Crv
		fields["x"] = jwk.X
	case KeyTypeOct:
		if jwk.K == "" {
			return nil, fmt.Errorf("%w: symmetric JWK missing required fields for thumbprint", ErrInvalidJWK)
		}
		fields["k"] = jwk.K
	default:
		return nil, fmt.Errorf("%w: kty %q", ErrUnsupportedJWK, jwk.Kty)
	}
	return fields, nil
}

// serializeForThumbprint writes the members sorted by name with no
// whitespace.
func serializeForThumbprint(fields map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		valueJSON, err := json.Marshal(fields[key])
		if err != nil {
			return nil, err
		}
		b.Write(keyJSON)
		b.WriteByte(':')
		b.Write(valueJSON)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
