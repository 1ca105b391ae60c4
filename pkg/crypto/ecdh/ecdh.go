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

// Package ecdh provides Diffie-Hellman key agreement for establishing shared
// secrets between parties.
//
// The NIST P-256, P-384 and P-521 curves and X25519 are served by the
// standard library crypto/ecdh package; X448 is served by the x448 package.
// All of them are exposed through the same PrivateKey and PublicKey types so
// the derivation engine can treat agreement keys uniformly.
//
// Example usage:
//
//	// Generate key pairs for Alice and Bob
//	alicePriv, _ := ecdh.GenerateKey(types.CurveP521)
//	bobPriv, _ := ecdh.GenerateKey(types.CurveP521)
//
//	// Alice derives shared secret using Bob's public key
//	aliceSecret, _ := ecdh.DeriveSharedSecret(alicePriv, bobPriv.PublicKey())
//
//	// Bob derives shared secret using Alice's public key
//	bobSecret, _ := ecdh.DeriveSharedSecret(bobPriv, alicePriv.PublicKey())
//
//	// Both secrets are identical
//	// aliceSecret == bobSecret
package ecdh

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-derivekey/pkg/crypto/x448"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

var (
	// ErrUnsupportedCurve is returned for a curve without an agreement implementation.
	ErrUnsupportedCurve = errors.New("ecdh: unsupported curve")

	// ErrCurveMismatch is returned when the two agreement keys use different curves.
	ErrCurveMismatch = errors.New("ecdh: curve mismatch")

	// ErrNilKey is returned when a nil key is passed to an agreement operation.
	ErrNilKey = errors.New("ecdh: key cannot be nil")
)

// PrivateKey is an agreement private key on one of the supported curves.
type PrivateKey struct {
	curve types.EllipticCurve
	std   *ecdh.PrivateKey
	x448  *x448.PrivateKey
}

// PublicKey is an agreement public key on one of the supported curves.
type PublicKey struct {
	curve types.EllipticCurve
	std   *ecdh.PublicKey
	x448  *x448.PublicKey
}

// GenerateKey generates a random private key on the given curve.
func GenerateKey(curve types.EllipticCurve) (*PrivateKey, error) {
	if curve == types.CurveX448 {
		k, err := x448.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return &PrivateKey{curve: curve, x448: k}, nil
	}

	c, err := curveToECDH(curve)
	if err != nil {
		return nil, err
	}
	k, err := c.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", curve, err)
	}
	return &PrivateKey{curve: curve, std: k}, nil
}

// NewPrivateKey parses a raw private key: the big-endian scalar for the NIST
// curves, the RFC 7748 encoding for X25519 and X448.
func NewPrivateKey(curve types.EllipticCurve, privateKeyBytes []byte) (*PrivateKey, error) {
	if curve == types.CurveX448 {
		k, err := x448.NewPrivateKey(privateKeyBytes)
		if err != nil {
			return nil, err
		}
		return &PrivateKey{curve: curve, x448: k}, nil
	}

	c, err := curveToECDH(curve)
	if err != nil {
		return nil, err
	}
	k, err := c.NewPrivateKey(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid %s private key: %w", curve, err)
	}
	return &PrivateKey{curve: curve, std: k}, nil
}

// NewPublicKey parses a raw public key: the uncompressed point for the NIST
// curves, the RFC 7748 encoding for X25519 and X448.
func NewPublicKey(curve types.EllipticCurve, publicKeyBytes []byte) (*PublicKey, error) {
	if curve == types.CurveX448 {
		k, err := x448.NewPublicKey(publicKeyBytes)
		if err != nil {
			return nil, err
		}
		return &PublicKey{curve: curve, x448: k}, nil
	}

	c, err := curveToECDH(curve)
	if err != nil {
		return nil, err
	}
	k, err := c.NewPublicKey(publicKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid %s public key: %w", curve, err)
	}
	return &PublicKey{curve: curve, std: k}, nil
}

// FromPrivateKey wraps a standard library key. ECDSA keys on the NIST curves
// are converted to their ECDH form.
func FromPrivateKey(key any) (*PrivateKey, error) {
	switch k := key.(type) {
	case *ecdh.PrivateKey:
		curve, err := curveFromECDH(k.Curve())
		if err != nil {
			return nil, err
		}
		return &PrivateKey{curve: curve, std: k}, nil
	case *ecdsa.PrivateKey:
		converted, err := k.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedCurve, err)
		}
		return FromPrivateKey(converted)
	case *x448.PrivateKey:
		return &PrivateKey{curve: types.CurveX448, x448: k}, nil
	case nil:
		return nil, ErrNilKey
	default:
		return nil, fmt.Errorf("%w: private key type %T", ErrUnsupportedCurve, key)
	}
}

// FromPublicKey wraps a standard library public key. ECDSA keys on the NIST
// curves are converted to their ECDH form.
func FromPublicKey(key any) (*PublicKey, error) {
	switch k := key.(type) {
	case *ecdh.PublicKey:
		curve, err := curveFromECDH(k.Curve())
		if err != nil {
			return nil, err
		}
		return &PublicKey{curve: curve, std: k}, nil
	case *ecdsa.PublicKey:
		converted, err := k.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedCurve, err)
		}
		return FromPublicKey(converted)
	case *x448.PublicKey:
		return &PublicKey{curve: types.CurveX448, x448: k}, nil
	case nil:
		return nil, ErrNilKey
	default:
		return nil, fmt.Errorf("%w: public key type %T", ErrUnsupportedCurve, key)
	}
}

// Curve returns the curve of the key.
func (k *PrivateKey) Curve() types.EllipticCurve {
	return k.curve
}

// Bytes returns a copy of the raw private key encoding.
func (k *PrivateKey) Bytes() []byte {
	if k.x448 != nil {
		return k.x448.Bytes()
	}
	return k.std.Bytes()
}

// PublicKey returns the public key corresponding to k.
func (k *PrivateKey) PublicKey() *PublicKey {
	if k.x448 != nil {
		return &PublicKey{curve: k.curve, x448: k.x448.PublicKey()}
	}
	return &PublicKey{curve: k.curve, std: k.std.PublicKey()}
}

// Standard returns the underlying crypto/ecdh key, or nil for X448 keys
// which the standard library does not support.
func (k *PrivateKey) Standard() *ecdh.PrivateKey {
	return k.std
}

// Curve returns the curve of the key.
func (k *PublicKey) Curve() types.EllipticCurve {
	return k.curve
}

// Bytes returns a copy of the raw public key encoding.
func (k *PublicKey) Bytes() []byte {
	if k.x448 != nil {
		return k.x448.Bytes()
	}
	return k.std.Bytes()
}

// Equal reports whether k and x are the same public key on the same curve.
func (k *PublicKey) Equal(x *PublicKey) bool {
	if x == nil || k.curve != x.curve {
		return false
	}
	if k.x448 != nil {
		return k.x448.Equal(x.x448)
	}
	return k.std.Equal(x.std)
}

// Standard returns the underlying crypto/ecdh key, or nil for X448 keys.
func (k *PublicKey) Standard() *ecdh.PublicKey {
	return k.std
}

// DeriveSharedSecret performs key agreement between a private key and a
// public key, returning the shared secret.
//
// Both keys must use the same curve. The shared secret is the raw output of
// the Diffie-Hellman operation: the x-coordinate for the NIST curves, the
// u-coordinate for X25519 and X448.
func DeriveSharedSecret(privateKey *PrivateKey, publicKey *PublicKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilKey)
	}
	if publicKey == nil {
		return nil, fmt.Errorf("%w: public key", ErrNilKey)
	}

	// Check that curves match
	if privateKey.curve != publicKey.curve {
		return nil, fmt.Errorf("%w: private key uses %s, public key uses %s",
			ErrCurveMismatch, privateKey.curve, publicKey.curve)
	}

	if privateKey.x448 != nil {
		sharedSecret, err := privateKey.x448.ECDH(publicKey.x448)
		if err != nil {
			return nil, fmt.Errorf("X448 operation failed: %w", err)
		}
		return sharedSecret, nil
	}

	sharedSecret, err := privateKey.std.ECDH(publicKey.std)
	if err != nil {
		return nil, fmt.Errorf("ECDH operation failed: %w", err)
	}

	return sharedSecret, nil
}

// curveToECDH maps a curve name to ecdh.Curve
func curveToECDH(curve types.EllipticCurve) (ecdh.Curve, error) {
	switch curve {
	case types.CurveP256:
		return ecdh.P256(), nil
	case types.CurveP384:
		return ecdh.P384(), nil
	case types.CurveP521:
		return ecdh.P521(), nil
	case types.CurveX25519:
		return ecdh.X25519(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurve, curve)
	}
}

// curveFromECDH maps an ecdh.Curve back to its name
func curveFromECDH(curve ecdh.Curve) (types.EllipticCurve, error) {
	switch curve {
	case ecdh.P256():
		return types.CurveP256, nil
	case ecdh.P384():
		return types.CurveP384, nil
	case ecdh.P521():
		return types.CurveP521, nil
	case ecdh.X25519():
		return types.CurveX25519, nil
	default:
		return "", fmt.Errorf("%w: %v", ErrUnsupportedCurve, curve)
	}
}
