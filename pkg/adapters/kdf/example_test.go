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

package kdf_test

import (
	"crypto"
	_ "crypto/sha256"
	"fmt"
	"log"

	"github.com/jeremyhahn/go-derivekey/pkg/adapters/kdf"
)

// Example demonstrates basic HKDF usage for key derivation
func Example_hkdf() {
	adapter := kdf.NewHKDFAdapter()

	// Input key material (e.g., from ECDH key exchange)
	ikm := []byte("shared secret from key exchange")

	params := &kdf.KDFParams{
		Algorithm: kdf.AlgorithmHKDF,
		Salt:      []byte("per-session salt"),
		Info:      []byte("my-application-v1"),
		KeyLength: 32,
		Hash:      crypto.SHA256,
	}

	key, err := adapter.DeriveKey(ikm, params)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Derived key length: %d bytes\n", len(key))
	// Output: Derived key length: 32 bytes
}

// Example_pbkdf2 reproduces a PBKDF2-HMAC-SHA256 known answer
func Example_pbkdf2() {
	adapter := kdf.NewPBKDF2Adapter()

	key, err := adapter.DeriveKey([]byte("hello"), &kdf.KDFParams{
		Algorithm:  kdf.AlgorithmPBKDF2,
		Salt:       []byte("there"),
		Iterations: 10,
		KeyLength:  32,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%x\n", key)
	// Output: f72d1cf4853fffbd16a42751765d11f8dc7939498ee7b7ce7678b4cb16fad880
}

// Example_validateParams shows parameter validation before derivation
func Example_validateParams() {
	adapter := kdf.NewArgon2idAdapter()

	err := adapter.ValidateParams(&kdf.KDFParams{
		Algorithm: kdf.AlgorithmArgon2id,
		Salt:      []byte("short"),
		Time:      1,
		Memory:    64,
		Threads:   1,
		KeyLength: 32,
	})

	fmt.Println(err)
	// Output: kdf: invalid salt: need at least 8 bytes, got 5
}
