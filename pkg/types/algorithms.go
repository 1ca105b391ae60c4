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

package types

import (
	"crypto"
	_ "crypto/sha1"   // Link in SHA1
	_ "crypto/sha256" // Link in SHA256
	_ "crypto/sha512" // Link in SHA384/SHA512
	"strings"
)

// =============================================================================
// Algorithm Name Constants
// =============================================================================
// Algorithm names follow the WebCrypto registered algorithm names. Parsing is
// case-insensitive; the canonical form is the constant value.

// AlgorithmName identifies a derivation algorithm or a derived key algorithm.
type AlgorithmName string

const (
	// AlgorithmECDH is elliptic curve Diffie-Hellman over the NIST curves.
	AlgorithmECDH AlgorithmName = "ECDH"

	// AlgorithmX25519 is Diffie-Hellman over Curve25519.
	AlgorithmX25519 AlgorithmName = "X25519"

	// AlgorithmX448 is Diffie-Hellman over Curve448.
	AlgorithmX448 AlgorithmName = "X448"

	// AlgorithmPBKDF2 is Password-Based Key Derivation Function 2 (RFC 8018).
	AlgorithmPBKDF2 AlgorithmName = "PBKDF2"

	// AlgorithmHKDF is HMAC-based Extract-and-Expand Key Derivation (RFC 5869).
	AlgorithmHKDF AlgorithmName = "HKDF"

	// AlgorithmArgon2id is the hybrid Argon2 variant (RFC 9106).
	AlgorithmArgon2id AlgorithmName = "Argon2id"

	// AlgorithmAESCBC is AES in cipher block chaining mode.
	AlgorithmAESCBC AlgorithmName = "AES-CBC"

	// AlgorithmAESCTR is AES in counter mode.
	AlgorithmAESCTR AlgorithmName = "AES-CTR"

	// AlgorithmAESGCM is AES in Galois/counter mode.
	AlgorithmAESGCM AlgorithmName = "AES-GCM"

	// AlgorithmAESKW is AES key wrap (RFC 3394).
	AlgorithmAESKW AlgorithmName = "AES-KW"

	// AlgorithmHMAC is keyed-hash message authentication.
	AlgorithmHMAC AlgorithmName = "HMAC"
)

// String returns the string representation.
func (a AlgorithmName) String() string {
	return string(a)
}

// Lower returns the lowercase form of the algorithm name.
func (a AlgorithmName) Lower() string {
	return strings.ToLower(string(a))
}

// Equals performs case-insensitive comparison for protocol compatibility.
func (a AlgorithmName) Equals(s string) bool {
	return strings.EqualFold(string(a), s)
}

// IsAgreement reports whether the algorithm is a Diffie-Hellman agreement.
func (a AlgorithmName) IsAgreement() bool {
	return a == AlgorithmECDH || a == AlgorithmX25519 || a == AlgorithmX448
}

// IsKDF reports whether the algorithm is a single-key derivation function.
func (a AlgorithmName) IsKDF() bool {
	return a == AlgorithmPBKDF2 || a == AlgorithmHKDF || a == AlgorithmArgon2id
}

// IsAES reports whether the algorithm is one of the AES modes.
func (a AlgorithmName) IsAES() bool {
	switch a {
	case AlgorithmAESCBC, AlgorithmAESCTR, AlgorithmAESGCM, AlgorithmAESKW:
		return true
	default:
		return false
	}
}

// ParseAlgorithmName converts a string to AlgorithmName.
// Returns an empty AlgorithmName if the string is not recognized.
func ParseAlgorithmName(s string) AlgorithmName {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")

	switch s {
	case "ECDH":
		return AlgorithmECDH
	case "X25519":
		return AlgorithmX25519
	case "X448":
		return AlgorithmX448
	case "PBKDF2":
		return AlgorithmPBKDF2
	case "HKDF":
		return AlgorithmHKDF
	case "ARGON2ID":
		return AlgorithmArgon2id
	case "AES-CBC":
		return AlgorithmAESCBC
	case "AES-CTR":
		return AlgorithmAESCTR
	case "AES-GCM":
		return AlgorithmAESGCM
	case "AES-KW":
		return AlgorithmAESKW
	case "HMAC":
		return AlgorithmHMAC
	default:
		return ""
	}
}

// =============================================================================
// Curve Name Constants
// =============================================================================
// Curve names follow NIST naming conventions (P-256, P-384, P-521).

// EllipticCurve represents elliptic curve identifiers.
type EllipticCurve string

const (
	// CurveP256 is NIST P-256 curve (secp256r1, prime256v1).
	CurveP256 EllipticCurve = "P-256"

	// CurveP384 is NIST P-384 curve (secp384r1).
	CurveP384 EllipticCurve = "P-384"

	// CurveP521 is NIST P-521 curve (secp521r1).
	CurveP521 EllipticCurve = "P-521"

	// CurveX25519 is Curve25519 for key agreement (X25519).
	CurveX25519 EllipticCurve = "X25519"

	// CurveX448 is Curve448 for key agreement (X448).
	CurveX448 EllipticCurve = "X448"
)

// String returns the string representation.
func (c EllipticCurve) String() string {
	return string(c)
}

// Lower returns the lowercase form of the curve name.
func (c EllipticCurve) Lower() string {
	return strings.ToLower(string(c))
}

// Equals performs case-insensitive comparison for protocol compatibility.
func (c EllipticCurve) Equals(s string) bool {
	return strings.EqualFold(string(c), s)
}

// SharedSecretSize returns the size in bytes of a Diffie-Hellman shared
// secret on the curve, or 0 for an unknown curve.
func (c EllipticCurve) SharedSecretSize() int {
	switch c {
	case CurveP256, CurveX25519:
		return 32
	case CurveP384:
		return 48
	case CurveP521:
		return 66
	case CurveX448:
		return 56
	default:
		return 0
	}
}

// AgreementAlgorithm returns the agreement algorithm that operates on the curve.
func (c EllipticCurve) AgreementAlgorithm() AlgorithmName {
	switch c {
	case CurveP256, CurveP384, CurveP521:
		return AlgorithmECDH
	case CurveX25519:
		return AlgorithmX25519
	case CurveX448:
		return AlgorithmX448
	default:
		return ""
	}
}

// ParseEllipticCurve converts a string to EllipticCurve.
func ParseEllipticCurve(s string) EllipticCurve {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "P-256", "P256", "SECP256R1", "PRIME256V1":
		return CurveP256
	case "P-384", "P384", "SECP384R1":
		return CurveP384
	case "P-521", "P521", "SECP521R1":
		return CurveP521
	case "X25519":
		return CurveX25519
	case "X448":
		return CurveX448
	default:
		return ""
	}
}

// =============================================================================
// Hash Algorithm String Constants
// =============================================================================
// Hash names follow the standard library crypto.Hash naming with dashes.

// HashName represents hash algorithm identifiers.
type HashName string

const (
	// HashSHA1 is SHA-1 (legacy, use SHA-256+ for new applications).
	HashSHA1 HashName = "SHA-1"

	// HashSHA256 is SHA-256 (recommended minimum).
	HashSHA256 HashName = "SHA-256"

	// HashSHA384 is SHA-384.
	HashSHA384 HashName = "SHA-384"

	// HashSHA512 is SHA-512.
	HashSHA512 HashName = "SHA-512"
)

// String returns the string representation.
func (h HashName) String() string {
	return string(h)
}

// Lower returns the lowercase form of the hash name.
func (h HashName) Lower() string {
	return strings.ToLower(string(h))
}

// Equals performs case-insensitive comparison for protocol compatibility.
func (h HashName) Equals(s string) bool {
	return strings.EqualFold(string(h), s)
}

// Hash returns the crypto.Hash for the name, or 0 if unsupported.
func (h HashName) Hash() crypto.Hash {
	switch h {
	case HashSHA1:
		return crypto.SHA1
	case HashSHA256:
		return crypto.SHA256
	case HashSHA384:
		return crypto.SHA384
	case HashSHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// BlockSize returns the block size of the hash in bytes, or 0 if unsupported.
// HMAC keys default to one block.
func (h HashName) BlockSize() int {
	switch h {
	case HashSHA1, HashSHA256:
		return 64
	case HashSHA384, HashSHA512:
		return 128
	default:
		return 0
	}
}

// ParseHashName converts a string to HashName.
func ParseHashName(s string) HashName {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")

	switch s {
	case "SHA-1", "SHA1":
		return HashSHA1
	case "SHA-256", "SHA256":
		return HashSHA256
	case "SHA-384", "SHA384":
		return HashSHA384
	case "SHA-512", "SHA512":
		return HashSHA512
	default:
		return ""
	}
}
