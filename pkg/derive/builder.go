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

// Builder wraps raw secrets into keys of one target algorithm. It is
// resolved during validation so that the required length is known before
// any secret is derived.
type Builder struct {
	rule      TargetRule
	algorithm material.Algorithm
	length    int
}

// NewBuilder resolves a target descriptor. naturalBits is the derivation
// strategy's fixed output length, or 0.
func NewBuilder(target KeyAlgorithm, naturalBits int) (*Builder, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: derived key algorithm is required", types.ErrUnsupportedAlgorithm)
	}
	rule, err := TargetRuleFor(target.AlgorithmName())
	if err != nil {
		return nil, err
	}

	b := &Builder{rule: rule}
	switch rule.Family {
	case FamilyCipher:
		aes, ok := as[AESKeyAlgorithm](target)
		if !ok {
			return nil, fmt.Errorf("%w: %s requires AESKeyAlgorithm, got %T",
				types.ErrInvalidParameters, rule.Name, target)
		}
		if aes.Length == 0 {
			return nil, fmt.Errorf("%w: %s requires an explicit length", types.ErrInvalidParameters, rule.Name)
		}
		if !material.ValidAESLength(aes.Length) {
			return nil, fmt.Errorf("%w: AES length must be 128, 192 or 256, got %d",
				types.ErrInvalidParameters, aes.Length)
		}
		b.length = aes.Length
		b.algorithm = material.Algorithm{Name: rule.Name, Length: aes.Length}

	case FamilySigning:
		hmac, ok := as[HMACKeyAlgorithm](target)
		if !ok {
			return nil, fmt.Errorf("%w: HMAC requires HMACKeyAlgorithm, got %T", types.ErrInvalidParameters, target)
		}
		hash, err := resolveHash(hmac.Hash)
		if err != nil {
			return nil, err
		}
		switch {
		case hmac.Length < 0:
			return nil, fmt.Errorf("%w: HMAC length must be positive, got %d", types.ErrInvalidParameters, hmac.Length)
		case hmac.Length == 0:
			b.length = hash.BlockSize() * 8
		default:
			b.length = hmac.Length
		}
		b.algorithm = material.Algorithm{Name: rule.Name, Hash: hash, Length: b.length}

	case FamilyKDF:
		b.length, err = DefaultLength(target, naturalBits)
		if err != nil {
			return nil, err
		}
		b.algorithm = material.Algorithm{Name: rule.Name}
	}

	return b, nil
}

// Rule returns the target rule.
func (b *Builder) Rule() TargetRule {
	return b.rule
}

// Algorithm returns the algorithm the derived key will carry.
func (b *Builder) Algorithm() material.Algorithm {
	return b.algorithm
}

// Length returns the number of bits the derived key needs.
func (b *Builder) Length() int {
	return b.length
}

// Validate checks the requested extractability and usages against the
// target family.
func (b *Builder) Validate(extractable bool, usages types.KeyUsage) error {
	if usages.IsEmpty() {
		return fmt.Errorf("%w: derived %s key requires at least one usage", types.ErrInvalidUsage, b.rule.Name)
	}
	if !usages.SubsetOf(b.rule.Usages) {
		return fmt.Errorf("%w: %s not permitted for %s keys (allowed: %s)",
			types.ErrInvalidUsage, (usages &^ b.rule.Usages).String(), b.rule.Name, b.rule.Usages)
	}
	if b.rule.Family == FamilyKDF && extractable {
		return fmt.Errorf("%w: %s keys cannot be extractable", types.ErrInvalidParameters, b.rule.Name)
	}
	return nil
}

// Wrap truncates secret to the target length and builds the derived key.
func (b *Builder) Wrap(secret []byte, extractable bool, usages types.KeyUsage) (*material.Key, error) {
	if err := b.Validate(extractable, usages); err != nil {
		return nil, err
	}
	data, err := Truncate(secret, b.length)
	if err != nil {
		return nil, err
	}
	defer clear(data)

	return material.ImportSecret(b.algorithm, data, extractable, usages)
}

// Truncate returns a copy of the first lengthBits bits of secret. When
// lengthBits is not a multiple of 8 the unused low bits of the last byte are
// zero. A secret shorter than lengthBits is an error; it is never padded.
func Truncate(secret []byte, lengthBits int) ([]byte, error) {
	if lengthBits <= 0 {
		return nil, fmt.Errorf("%w: length must be positive, got %d", types.ErrInvalidParameters, lengthBits)
	}
	size := (lengthBits + 7) / 8
	if len(secret) < size {
		return nil, fmt.Errorf("%w: derived secret is %d bits, %d required",
			types.ErrInvalidParameters, len(secret)*8, lengthBits)
	}

	out := make([]byte, size)
	copy(out, secret)
	if rem := lengthBits % 8; rem != 0 {
		out[size-1] &= byte(0xff << (8 - rem))
	}
	return out, nil
}
