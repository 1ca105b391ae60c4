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

// Package jwt signs and verifies HMAC JSON Web Tokens (RFC 7519) with
// derived HMAC keys. The JWA algorithm follows the key's hash: HS256,
// HS384 or HS512.
//
// Example:
//
//	signer, _ := jwt.NewSigner(macKey)
//	token, _ := signer.Sign(jwt.MapClaims{"sub": "user123"})
package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// MapClaims is re-exported for callers that do not import golang-jwt.
type MapClaims = jwt.MapClaims

// ErrInvalidToken is returned when a token fails to parse or verify.
var ErrInvalidToken = errors.New("jwt: invalid token")

// Signer signs tokens with one HMAC key.
type Signer struct {
	key    *material.Key
	method jwt.SigningMethod
}

// NewSigner returns a signer for an HMAC key carrying the sign usage.
func NewSigner(key *material.Key) (*Signer, error) {
	method, err := signingMethod(key, types.UsageSign)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key, method: method}, nil
}

// Algorithm returns the JWA name written to the alg header.
func (s *Signer) Algorithm() string {
	return s.method.Alg()
}

// Sign creates and signs a token. The key ID is written as the kid header.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(s.method, claims)
	token.Header["kid"] = s.key.ID()

	secret := s.key.Secret()
	defer clear(secret)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verifier verifies tokens with one HMAC key.
type Verifier struct {
	key    *material.Key
	method jwt.SigningMethod
}

// NewVerifier returns a verifier for an HMAC key carrying the verify usage.
func NewVerifier(key *material.Key) (*Verifier, error) {
	method, err := signingMethod(key, types.UsageVerify)
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key, method: method}, nil
}

// Verify parses token into claims and checks its signature and registered
// time claims. Only the key's own algorithm is accepted.
func (v *Verifier) Verify(token string, claims jwt.Claims) (*jwt.Token, error) {
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key.Secret(), nil
	}, jwt.WithValidMethods([]string{v.method.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return parsed, nil
}

func signingMethod(key *material.Key, usage types.KeyUsage) (jwt.SigningMethod, error) {
	if key == nil || key.Algorithm().Name != types.AlgorithmHMAC {
		return nil, fmt.Errorf("%w: JWT keys must be HMAC keys", types.ErrInvalidKey)
	}
	if !key.Usages().Has(usage) {
		return nil, fmt.Errorf("%w: key %s does not permit %s", types.ErrInvalidKey, key.ID(), usage)
	}

	switch key.Algorithm().Hash {
	case types.HashSHA256:
		return jwt.SigningMethodHS256, nil
	case types.HashSHA384:
		return jwt.SigningMethodHS384, nil
	case types.HashSHA512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("%w: no JWT algorithm for HMAC %s", types.ErrUnsupportedAlgorithm, key.Algorithm().Hash)
	}
}
