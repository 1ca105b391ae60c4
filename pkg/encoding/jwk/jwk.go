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

// Package jwk converts keys to and from JSON Web Keys (RFC 7517) in the
// form WebCrypto exports them: "oct" for AES and HMAC secrets with a JWA
// "alg", "EC" for NIST curve agreement keys and "OKP" for X25519 and X448.
// Usages travel as "key_ops" and extractability as "ext".
package jwk

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-derivekey/pkg/crypto/ecdh"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

var (
	// ErrInvalidJWK is returned for malformed or inconsistent JWK members.
	ErrInvalidJWK = errors.New("jwk: invalid key")

	// ErrUnsupportedJWK is returned for key types, curves or algorithms with
	// no material.Key form.
	ErrUnsupportedJWK = errors.New("jwk: unsupported key")
)

// JWK represents a JSON Web Key as defined in RFC 7517.
type JWK struct {
	Kty string `json:"kty"`           // Key Type (required)
	Alg string `json:"alg,omitempty"` // Algorithm
	Kid string `json:"kid,omitempty"` // Key ID

	// EC and OKP fields (RFC 7518 Section 6.2, RFC 8037)
	Crv string `json:"crv,omitempty"` // Curve
	X   string `json:"x,omitempty"`   // X Coordinate or public key (base64url)
	Y   string `json:"y,omitempty"`   // Y Coordinate (base64url)
	D   string `json:"d,omitempty"`   // Private key (base64url)

	// Symmetric key field (RFC 7518 Section 6.4)
	K string `json:"k,omitempty"` // Key Value (base64url)

	KeyOps []string `json:"key_ops,omitempty"` // Key Operations
	Ext    *bool    `json:"ext,omitempty"`     // Extractable
}

// KeyType represents the key type (kty) parameter values
type KeyType string

const (
	KeyTypeEC  KeyType = "EC"
	KeyTypeOKP KeyType = "OKP" // Octet Key Pair (X25519, X448)
	KeyTypeOct KeyType = "oct" // Symmetric key
)

// aesModes maps AES algorithms to their JWA suffix.
var aesModes = map[types.AlgorithmName]string{
	types.AlgorithmAESCBC: "CBC",
	types.AlgorithmAESCTR: "CTR",
	types.AlgorithmAESGCM: "GCM",
	types.AlgorithmAESKW:  "KW",
}

// hmacAlgs maps HMAC hashes to their JWA name.
var hmacAlgs = map[types.HashName]string{
	types.HashSHA1:   "HS1",
	types.HashSHA256: "HS256",
	types.HashSHA384: "HS384",
	types.HashSHA512: "HS512",
}

// FromKey exports an extractable key. Public keys are always extractable.
// KDF base keys are never extractable and cannot be exported.
func FromKey(key *material.Key) (*JWK, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: key is nil", ErrInvalidJWK)
	}
	raw, err := key.Raw()
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	ext := key.Extractable()
	jwk := &JWK{
		KeyOps: keyOps(key.Usages()),
		Ext:    &ext,
	}

	switch key.Type() {
	case types.KeyTypeSecret:
		alg, err := jwaAlgorithm(key.Algorithm())
		if err != nil {
			return nil, err
		}
		jwk.Kty = string(KeyTypeOct)
		jwk.Alg = alg
		jwk.K = encode(raw)
	case types.KeyTypePrivate:
		if err := jwk.setPublic(key.PublicKey()); err != nil {
			return nil, err
		}
		jwk.D = encode(raw)
	case types.KeyTypePublic:
		if err := jwk.setPublic(key.PublicKey()); err != nil {
			return nil, err
		}
	}
	return jwk, nil
}

// ToKey imports the JWK with the given extractability and usages. When the
// JWK carries "ext": false the key cannot be imported as extractable, and
// when it carries "key_ops" the usages must be a subset of them.
func (jwk *JWK) ToKey(extractable bool, usages types.KeyUsage) (*material.Key, error) {
	if jwk.Ext != nil && !*jwk.Ext && extractable {
		return nil, fmt.Errorf("%w: ext is false but an extractable key was requested", ErrInvalidJWK)
	}
	if len(jwk.KeyOps) > 0 {
		ops, err := types.ParseKeyUsages(jwk.KeyOps)
		if err != nil {
			return nil, err
		}
		if !usages.SubsetOf(ops) {
			return nil, fmt.Errorf("%w: %s not listed in key_ops", types.ErrInvalidUsage, usages&^ops)
		}
	}

	switch KeyType(jwk.Kty) {
	case KeyTypeOct:
		return jwk.toSecretKey(extractable, usages)
	case KeyTypeEC, KeyTypeOKP:
		return jwk.toAgreementKey(extractable, usages)
	default:
		return nil, fmt.Errorf("%w: kty %q", ErrUnsupportedJWK, jwk.Kty)
	}
}

// Marshal serializes the JWK to JSON.
func (jwk *JWK) Marshal() ([]byte, error) {
	return json.Marshal(jwk)
}

// MarshalIndent serializes the JWK to indented JSON.
func (jwk *JWK) MarshalIndent(prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(jwk, prefix, indent)
}

// Unmarshal parses a JWK from JSON.
func Unmarshal(data []byte) (*JWK, error) {
	var jwk JWK
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
	}
	if jwk.Kty == "" {
		return nil, fmt.Errorf("%w: missing kty", ErrInvalidJWK)
	}
	return &jwk, nil
}

// IsPrivate reports whether the JWK holds private key material.
func (jwk *JWK) IsPrivate() bool {
	return jwk.D != ""
}

// IsSymmetric reports whether the JWK is a secret key.
func (jwk *JWK) IsSymmetric() bool {
	return jwk.Kty == string(KeyTypeOct)
}

func (jwk *JWK) setPublic(pub *ecdh.PublicKey) error {
	curve := pub.Curve()
	point := pub.Bytes()
	jwk.Crv = curve.String()

	switch curve {
	case types.CurveP256, types.CurveP384, types.CurveP521:
		// uncompressed point: 0x04 || X || Y
		size := (len(point) - 1) / 2
		jwk.Kty = string(KeyTypeEC)
		jwk.X = encode(point[1 : 1+size])
		jwk.Y = encode(point[1+size:])
	case types.CurveX25519, types.CurveX448:
		jwk.Kty = string(KeyTypeOKP)
		jwk.X = encode(point)
	default:
		return fmt.Errorf("%w: curve %s", ErrUnsupportedJWK, curve)
	}
	return nil
}

func (jwk *JWK) toSecretKey(extractable bool, usages types.KeyUsage) (*material.Key, error) {
	alg, err := parseJWAAlgorithm(jwk.Alg)
	if err != nil {
		return nil, err
	}
	k, err := decode("k", jwk.K)
	if err != nil {
		return nil, err
	}
	defer clear(k)
	return material.ImportSecret(alg, k, extractable, usages)
}

func (jwk *JWK) toAgreementKey(extractable bool, usages types.KeyUsage) (*material.Key, error) {
	curve := types.ParseEllipticCurve(jwk.Crv)
	nist := curve == types.CurveP256 || curve == types.CurveP384 || curve == types.CurveP521
	okp := curve == types.CurveX25519 || curve == types.CurveX448
	if (KeyType(jwk.Kty) == KeyTypeEC && !nist) || (KeyType(jwk.Kty) == KeyTypeOKP && !okp) {
		return nil, fmt.Errorf("%w: crv %q for kty %s", ErrUnsupportedJWK, jwk.Crv, jwk.Kty)
	}

	point, err := decode("x", jwk.X)
	if err != nil {
		return nil, err
	}
	if nist {
		y, err := decode("y", jwk.Y)
		if err != nil {
			return nil, err
		}
		point = append(append([]byte{0x04}, point...), y...)
	}

	if jwk.D == "" {
		if !usages.IsEmpty() {
			return nil, fmt.Errorf("%w: public keys take no usages", types.ErrInvalidUsage)
		}
		return material.ImportPublicKey(curve, point)
	}

	d, err := decode("d", jwk.D)
	if err != nil {
		return nil, err
	}
	defer clear(d)

	key, err := material.ImportPrivateKey(curve, d, extractable, usages)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(key.PublicKey().Bytes(), point) {
		return nil, fmt.Errorf("%w: public members do not match d", ErrInvalidJWK)
	}
	return key, nil
}

// keyOps returns the WebCrypto key_ops names for a usage set. derive
// expands to deriveKey and deriveBits.
func keyOps(usages types.KeyUsage) []string {
	var ops []string
	for _, name := range usages.Names() {
		if name == "derive" {
			ops = append(ops, "deriveKey", "deriveBits")
			continue
		}
		ops = append(ops, name)
	}
	return ops
}

func jwaAlgorithm(alg material.Algorithm) (string, error) {
	if mode, ok := aesModes[alg.Name]; ok {
		return fmt.Sprintf("A%d%s", alg.Length, mode), nil
	}
	if alg.Name == types.AlgorithmHMAC {
		if name, ok := hmacAlgs[alg.Hash]; ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s has no JWK form", ErrUnsupportedJWK, alg)
}

func parseJWAAlgorithm(s string) (material.Algorithm, error) {
	for hash, name := range hmacAlgs {
		if s == name {
			return material.Algorithm{Name: types.AlgorithmHMAC, Hash: hash}, nil
		}
	}
	if len(s) > 4 && s[0] == 'A' {
		length, err := strconv.Atoi(s[1:4])
		suffix := s[4:]
		if err == nil && material.ValidAESLength(length) {
			for name, mode := range aesModes {
				if suffix == mode {
					return material.Algorithm{Name: name, Length: length}, nil
				}
			}
		}
	}
	if s == "" {
		return material.Algorithm{}, fmt.Errorf("%w: oct key requires alg", ErrInvalidJWK)
	}
	return material.Algorithm{}, fmt.Errorf("%w: alg %q", ErrUnsupportedJWK, strings.TrimSpace(s))
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decode(member, s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidJWK, member)
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not base64url: %v", ErrInvalidJWK, member, err)
	}
	return b, nil
}
