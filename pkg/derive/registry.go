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

	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// DefaultKDFLength is the length in bits of an opaque KDF key derived by a
// strategy with no natural output length.
const DefaultKDFLength = 528

// Family is the kind of key a target algorithm produces.
type Family int

const (
	// FamilyCipher is a symmetric encryption or key wrapping key.
	FamilyCipher Family = iota + 1

	// FamilySigning is a MAC key.
	FamilySigning

	// FamilyKDF is an opaque derivation base key.
	FamilyKDF
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilyCipher:
		return "cipher"
	case FamilySigning:
		return "signing"
	case FamilyKDF:
		return "kdf"
	default:
		return "unknown"
	}
}

// Strategy turns a base key and parameters into raw secret bytes.
type Strategy interface {
	// Name returns the derivation algorithm.
	Name() types.AlgorithmName

	// NaturalLength returns the fixed output length in bits for base, or 0
	// when the output length is chosen by the caller.
	NaturalLength(base *material.Key) int

	// Derive produces the secret. Strategies with a natural length return
	// all of it; the others return exactly ceil(lengthBits/8) bytes.
	Derive(params Params, base *material.Key, lengthBits int) ([]byte, error)
}

// TargetRule describes what a derived key of a given algorithm may be.
type TargetRule struct {
	Name   types.AlgorithmName
	Family Family
	Usages types.KeyUsage
}

// StrategyFor returns the strategy for a derivation algorithm.
func StrategyFor(name types.AlgorithmName) (Strategy, error) {
	switch name {
	case types.AlgorithmECDH, types.AlgorithmX25519, types.AlgorithmX448:
		return agreementStrategy{name: name}, nil
	case types.AlgorithmPBKDF2:
		return pbkdf2Strategy{}, nil
	case types.AlgorithmHKDF:
		return hkdfStrategy{}, nil
	case types.AlgorithmArgon2id:
		return argon2Strategy{}, nil
	default:
		return nil, fmt.Errorf("%w: derivation algorithm %q", types.ErrUnsupportedAlgorithm, name)
	}
}

// TargetRuleFor returns the rule for a derived key algorithm.
func TargetRuleFor(name types.AlgorithmName) (TargetRule, error) {
	var family Family
	switch {
	case name.IsAES():
		family = FamilyCipher
	case name == types.AlgorithmHMAC:
		family = FamilySigning
	case name.IsKDF():
		family = FamilyKDF
	default:
		return TargetRule{}, fmt.Errorf("%w: derived key algorithm %q", types.ErrUnsupportedAlgorithm, name)
	}
	return TargetRule{
		Name:   name,
		Family: family,
		Usages: material.PermittedUsages(name, types.KeyTypeSecret),
	}, nil
}

// DefaultLength returns the length in bits of a derived key when the
// descriptor has none: the hash block size for HMAC, the strategy's natural
// length or DefaultKDFLength for KDF keys. AES has no default.
func DefaultLength(target KeyAlgorithm, naturalBits int) (int, error) {
	if h, ok := as[HMACKeyAlgorithm](target); ok {
		hash, err := resolveHash(h.Hash)
		if err != nil {
			return 0, err
		}
		return hash.BlockSize() * 8, nil
	}
	if _, ok := as[KDFKeyAlgorithm](target); ok {
		if naturalBits > 0 {
			return naturalBits, nil
		}
		return DefaultKDFLength, nil
	}
	if _, ok := as[AESKeyAlgorithm](target); ok {
		return 0, fmt.Errorf("%w: AES keys require an explicit length", types.ErrInvalidParameters)
	}
	return 0, fmt.Errorf("%w: derived key algorithm %T", types.ErrUnsupportedAlgorithm, target)
}

// resolveHash returns the canonical form of a hash name.
func resolveHash(name types.HashName) (types.HashName, error) {
	if name == "" {
		return "", fmt.Errorf("%w: hash is required", types.ErrInvalidParameters)
	}
	canonical := types.ParseHashName(name.String())
	if canonical == "" {
		return "", fmt.Errorf("%w: hash %q", types.ErrUnsupportedAlgorithm, name)
	}
	return canonical, nil
}
