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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-derivekey/pkg/adapters/kdf"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// pbkdf2Strategy stretches a passphrase with PBKDF2.
type pbkdf2Strategy struct{}

func (pbkdf2Strategy) Name() types.AlgorithmName { return types.AlgorithmPBKDF2 }

func (pbkdf2Strategy) NaturalLength(*material.Key) int { return 0 }

func (s pbkdf2Strategy) Derive(params Params, base *material.Key, lengthBits int) ([]byte, error) {
	p, ok := as[PBKDF2Params](params)
	if !ok {
		return nil, fmt.Errorf("%w: PBKDF2 requires PBKDF2Params, got %T", types.ErrInvalidParameters, params)
	}
	hash, err := resolveHash(p.Hash)
	if err != nil {
		return nil, err
	}
	if p.Iterations <= 0 {
		return nil, fmt.Errorf("%w: PBKDF2 iterations must be positive, got %d",
			types.ErrInvalidParameters, p.Iterations)
	}
	size, err := outputSize(lengthBits)
	if err != nil {
		return nil, err
	}

	return runKDF(kdf.NewPBKDF2Adapter(), base, &kdf.KDFParams{
		Algorithm:  kdf.AlgorithmPBKDF2,
		Salt:       p.Salt,
		Iterations: p.Iterations,
		KeyLength:  size,
		Hash:       hash.Hash(),
	})
}

// argon2Strategy stretches a passphrase with the memory hard Argon2id.
type argon2Strategy struct{}

func (argon2Strategy) Name() types.AlgorithmName { return types.AlgorithmArgon2id }

func (argon2Strategy) NaturalLength(*material.Key) int { return 0 }

func (s argon2Strategy) Derive(params Params, base *material.Key, lengthBits int) ([]byte, error) {
	p, ok := as[Argon2Params](params)
	if !ok {
		return nil, fmt.Errorf("%w: Argon2id requires Argon2Params, got %T", types.ErrInvalidParameters, params)
	}
	size, err := outputSize(lengthBits)
	if err != nil {
		return nil, err
	}

	return runKDF(kdf.NewArgon2idAdapter(), base, &kdf.KDFParams{
		Algorithm: kdf.AlgorithmArgon2id,
		Salt:      p.Salt,
		Time:      p.Time,
		Memory:    p.Memory,
		Threads:   p.Threads,
		KeyLength: size,
	})
}

// outputSize converts a requested length in bits to whole bytes.
func outputSize(lengthBits int) (int, error) {
	if lengthBits <= 0 {
		return 0, fmt.Errorf("%w: output length is required", types.ErrInvalidParameters)
	}
	return (lengthBits + 7) / 8, nil
}

// runKDF validates params, then derives from the base key secret. Adapter
// errors are reported as invalid parameters without exposing the kdf
// package sentinels.
func runKDF(adapter kdf.KDFAdapter, base *material.Key, params *kdf.KDFParams) ([]byte, error) {
	if err := adapter.ValidateParams(params); err != nil {
		if errors.Is(err, kdf.ErrInvalidHash) {
			return nil, fmt.Errorf("%w: %v", types.ErrUnsupportedAlgorithm, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidParameters, adapter.Algorithm(), err)
	}
	secret := base.Secret()
	defer clear(secret)

	out, err := adapter.DeriveKey(secret, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidParameters, adapter.Algorithm(), err)
	}
	return out, nil
}
