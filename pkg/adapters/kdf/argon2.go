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

	"golang.org/x/crypto/argon2"
)

const (
	// MinArgon2SaltLength is the minimum salt length in bytes (RFC 9106 section 3.1)
	MinArgon2SaltLength = 8

	// MinArgon2MemoryPerThread is the minimum memory cost in KiB per lane
	MinArgon2MemoryPerThread = 8

	// MinArgon2Time is the minimum time cost
	MinArgon2Time = 1

	// MinArgon2Threads is the minimum number of threads
	MinArgon2Threads = 1
)

// Argon2Adapter implements the KDFAdapter interface using Argon2id.
// Argon2 is the winner of the Password Hashing Competition and provides
// excellent resistance against GPU-based attacks
type Argon2Adapter struct{}

// NewArgon2idAdapter creates a new Argon2id adapter
func NewArgon2idAdapter() *Argon2Adapter {
	return &Argon2Adapter{}
}

// DeriveKey derives a key using Argon2id
func (a *Argon2Adapter) DeriveKey(ikm []byte, params *KDFParams) ([]byte, error) {
	if err := a.ValidateParams(params); err != nil {
		return nil, err
	}

	return argon2.IDKey(
		ikm,
		params.Salt,
		params.Time,
		params.Memory,
		params.Threads,
		uint32(params.KeyLength),
	), nil
}

// Algorithm returns the KDF algorithm
func (a *Argon2Adapter) Algorithm() KDFAlgorithm {
	return AlgorithmArgon2id
}

// ValidateParams validates Argon2id parameters
func (a *Argon2Adapter) ValidateParams(params *KDFParams) error {
	if params == nil {
		return ErrInvalidParams
	}

	if params.Algorithm != AlgorithmArgon2id {
		return ErrUnsupportedAlgorithm
	}

	if params.KeyLength < 4 {
		return fmt.Errorf("%w: argon2id requires at least 4 bytes", ErrInvalidKeyLength)
	}

	if len(params.Salt) < MinArgon2SaltLength {
		return fmt.Errorf("%w: need at least %d bytes, got %d",
			ErrInvalidSalt, MinArgon2SaltLength, len(params.Salt))
	}

	if params.Time < MinArgon2Time {
		return ErrInvalidTime
	}

	if params.Threads < MinArgon2Threads {
		return ErrInvalidThreads
	}

	if params.Memory < MinArgon2MemoryPerThread*uint32(params.Threads) {
		return fmt.Errorf("%w: need at least %d KiB for %d threads",
			ErrInvalidMemory, MinArgon2MemoryPerThread*uint32(params.Threads), params.Threads)
	}

	return nil
}
