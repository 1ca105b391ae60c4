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
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// Params is the closed set of derivation parameter types: ECDHParams,
// PBKDF2Params, HKDFParams and Argon2Params. Each may be passed by value or
// by pointer.
type Params interface {
	// Algorithm returns the derivation algorithm the parameters select.
	Algorithm() types.AlgorithmName

	isParams()
}

// ECDHParams selects a Diffie-Hellman agreement with a peer public key. The
// same parameters serve ECDH, X25519 and X448.
type ECDHParams struct {
	// Name is ECDH, X25519 or X448. When empty it is taken from Public.
	Name types.AlgorithmName

	// Public is the peer public key.
	Public *material.Key
}

// Algorithm returns the agreement algorithm.
func (p ECDHParams) Algorithm() types.AlgorithmName {
	switch {
	case p.Name != "":
		return p.Name
	case p.Public != nil:
		return p.Public.Algorithm().Name
	default:
		return types.AlgorithmECDH
	}
}

func (ECDHParams) isParams() {}

// PBKDF2Params selects PBKDF2 with an HMAC hash.
type PBKDF2Params struct {
	Hash       types.HashName
	Salt       []byte
	Iterations int
}

// Algorithm returns PBKDF2.
func (PBKDF2Params) Algorithm() types.AlgorithmName { return types.AlgorithmPBKDF2 }

func (PBKDF2Params) isParams() {}

// HKDFParams selects HKDF extract-and-expand. Nil salt and info are treated
// as empty.
type HKDFParams struct {
	Hash types.HashName
	Salt []byte
	Info []byte
}

// Algorithm returns HKDF.
func (HKDFParams) Algorithm() types.AlgorithmName { return types.AlgorithmHKDF }

func (HKDFParams) isParams() {}

// Argon2Params selects Argon2id. Memory is in KiB.
type Argon2Params struct {
	Salt    []byte
	Time    uint32
	Memory  uint32
	Threads uint8
}

// Algorithm returns Argon2id.
func (Argon2Params) Algorithm() types.AlgorithmName { return types.AlgorithmArgon2id }

func (Argon2Params) isParams() {}

// as extracts a T from v, which holds either a T or a non-nil *T.
func as[T any](v any) (T, bool) {
	switch t := v.(type) {
	case T:
		return t, true
	case *T:
		if t != nil {
			return *t, true
		}
	}
	var zero T
	return zero, false
}
