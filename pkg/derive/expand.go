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

	"github.com/jeremyhahn/go-derivekey/pkg/adapters/kdf"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// hkdfStrategy runs HKDF extract-and-expand over the base key.
type hkdfStrategy struct{}

func (hkdfStrategy) Name() types.AlgorithmName { return types.AlgorithmHKDF }

func (hkdfStrategy) NaturalLength(*material.Key) int { return 0 }

func (s hkdfStrategy) Derive(params Params, base *material.Key, lengthBits int) ([]byte, error) {
	p, ok := as[HKDFParams](params)
	if !ok {
		return nil, fmt.Errorf("%w: HKDF requires HKDFParams, got %T", types.ErrInvalidParameters, params)
	}
	hash, err := resolveHash(p.Hash)
	if err != nil {
		return nil, err
	}
	size, err := outputSize(lengthBits)
	if err != nil {
		return nil, err
	}

	return runKDF(kdf.NewHKDFAdapter(), base, &kdf.KDFParams{
		Algorithm: kdf.AlgorithmHKDF,
		Salt:      p.Salt,
		Info:      p.Info,
		KeyLength: size,
		Hash:      hash.Hash(),
	})
}
