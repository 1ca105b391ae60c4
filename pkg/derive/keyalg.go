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

package derive

import (
	"fmt"

	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// KeyAlgorithm is the closed set of derived key descriptors:
// AESKeyAlgorithm, HMACKeyAlgorithm and KDFKeyAlgorithm. Each may be passed
// by value or by pointer.
type KeyAlgorithm interface {
	// AlgorithmName returns the algorithm of the derived key.
	AlgorithmName() types.AlgorithmName

	isKeyAlgorithm()
}

// AESKeyAlgorithm describes an AES-CBC, AES-CTR, AES-GCM or AES-KW key.
// Length is required and must be 128, 192 or 256.
type AESKeyAlgorithm struct {
	Name   types.AlgorithmName
	Length int
}

// AlgorithmName returns the AES mode.
func (a AESKeyAlgorithm) AlgorithmName() types.AlgorithmName { return a.Name }

func (AESKeyAlgorithm) isKeyAlgorithm() {}

// HMACKeyAlgorithm describes an HMAC key. A zero Length selects the block
// size of Hash.
type HMACKeyAlgorithm struct {
	Hash   types.HashName
	Length int
}

// AlgorithmName returns HMAC.
func (HMACKeyAlgorithm) AlgorithmName() types.AlgorithmName { return types.AlgorithmHMAC }

func (HMACKeyAlgorithm) isKeyAlgorithm() {}

// KDFKeyAlgorithm describes an opaque, non-extractable PBKDF2, HKDF or
// Argon2id base key.
type KDFKeyAlgorithm struct {
	Name types.AlgorithmName
}

// AlgorithmName returns the KDF name.
func (a KDFKeyAlgorithm) AlgorithmName() types.AlgorithmName { return a.Name }

func (KDFKeyAlgorithm) isKeyAlgorithm() {}

// ParseKeyAlgorithm turns a bare algorithm name into a descriptor. HMAC
// implies SHA-256; AES names carry no length and must be given one before
// use.
func ParseKeyAlgorithm(name string) (KeyAlgorithm, error) {
	return NewKeyAlgorithm(name, "", 0)
}

// NewKeyAlgorithm builds a descriptor from a name, an optional HMAC hash and
// an optional length in bits.
func NewKeyAlgorithm(name string, hash types.HashName, length int) (KeyAlgorithm, error) {
	alg := types.ParseAlgorithmName(name)
	switch {
	case alg.IsAES():
		return AESKeyAlgorithm{Name: alg, Length: length}, nil
	case alg == types.AlgorithmHMAC:
		if hash == "" {
			hash = types.HashSHA256
		}
		return HMACKeyAlgorithm{Hash: hash, Length: length}, nil
	case alg.IsKDF():
		return KDFKeyAlgorithm{Name: alg}, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a derivable key algorithm",
			types.ErrUnsupportedAlgorithm, name)
	}
}
