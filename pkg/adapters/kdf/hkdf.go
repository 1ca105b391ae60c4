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

package kdf

import (
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFAdapter implements the KDFAdapter interface using HKDF (RFC 5869)
// HKDF is suitable for deriving keys from high-entropy sources like
// shared secrets from key exchange protocols (ECDH, etc.)
type HKDFAdapter struct{}

// NewHKDFAdapter creates a new HKDF adapter
func NewHKDFAdapter() *HKDFAdapter {
	return &HKDFAdapter{}
}

// DeriveKey runs extract then expand over ikm.
func (h *HKDFAdapter) DeriveKey(ikm []byte, params *KDFParams) ([]byte, error) {
	if err := h.ValidateParams(params); err != nil {
		return nil, err
	}

	kdf := hkdf.New(params.Hash.New, ikm, params.Salt, params.Info)

	key := make([]byte, params.KeyLength)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("hkdf expand failed: %v", err)
	}

	return key, nil
}

// Algorithm returns the KDF algorithm
func (h *HKDFAdapter) Algorithm() KDFAlgorithm {
	return AlgorithmHKDF
}

// MaxKeyLength returns the largest output HKDF can expand to with params.Hash.
func (h *HKDFAdapter) MaxKeyLength(params *KDFParams) int {
	if params == nil || validateHash(params.Hash) != nil {
		return 0
	}
	return 255 * params.Hash.Size()
}

// ValidateParams validates HKDF parameters. Salt and info are optional.
func (h *HKDFAdapter) ValidateParams(params *KDFParams) error {
	if params == nil {
		return ErrInvalidParams
	}

	if params.Algorithm != AlgorithmHKDF {
		return ErrUnsupportedAlgorithm
	}

	if err := validateHash(params.Hash); err != nil {
		return err
	}

	if params.KeyLength <= 0 {
		return ErrInvalidKeyLength
	}

	if params.KeyLength > h.MaxKeyLength(params) {
		return fmt.Errorf("%w: %d bytes exceeds 255 * %d",
			ErrInvalidKeyLength, params.KeyLength, params.Hash.Size())
	}

	return nil
}
