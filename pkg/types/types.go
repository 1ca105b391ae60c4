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

// Package types contains shared type definitions used across the derivation
// engine, including algorithm names, key usages, key types and error kinds.
// This package has no dependencies on other packages in the module to prevent
// import cycles.
package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

// Every derivation failure wraps exactly one of these kinds. Match them with
// errors.Is.
var (
	// ErrUnsupportedAlgorithm is returned for an unknown derivation or target algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrInvalidKey is returned when a base or peer key has the wrong usage,
	// algorithm, type or curve.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidParameters is returned for malformed or out-of-range algorithm parameters.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrInvalidUsage is returned when a requested usage is not permitted for the
	// target algorithm family.
	ErrInvalidUsage = errors.New("invalid usage")
)

// Error kind labels, used for metrics and CLI output.
const (
	ErrorKindUnsupportedAlgorithm = "unsupported_algorithm"
	ErrorKindInvalidKey           = "invalid_key"
	ErrorKindInvalidParameters    = "invalid_parameters"
	ErrorKindInvalidUsage         = "invalid_usage"
	ErrorKindCanceled             = "canceled"
	ErrorKindUnknown              = "unknown"
)

// ErrorKind returns the label of the error kind wrapped by err.
// Returns an empty string for a nil error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return ErrorKindUnsupportedAlgorithm
	case errors.Is(err, ErrInvalidKey):
		return ErrorKindInvalidKey
	case errors.Is(err, ErrInvalidParameters):
		return ErrorKindInvalidParameters
	case errors.Is(err, ErrInvalidUsage):
		return ErrorKindInvalidUsage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindCanceled
	default:
		return ErrorKindUnknown
	}
}

// =============================================================================
// Key Types
// =============================================================================

// KeyType distinguishes symmetric secrets from the halves of a key pair.
type KeyType uint8

const (
	// KeyTypeSecret is a symmetric key or opaque derivation secret.
	KeyTypeSecret KeyType = iota + 1

	// KeyTypePrivate is the private half of an agreement key pair.
	KeyTypePrivate

	// KeyTypePublic is the public half of an agreement key pair.
	KeyTypePublic
)

// String returns the WebCrypto name of the key type.
func (kt KeyType) String() string {
	switch kt {
	case KeyTypeSecret:
		return "secret"
	case KeyTypePrivate:
		return "private"
	case KeyTypePublic:
		return "public"
	default:
		return "unknown"
	}
}

// =============================================================================
// Key Usages
// =============================================================================

// KeyUsage is a set of capability tags. The zero value is the empty set.
type KeyUsage uint8

const (
	// UsageDerive permits the key to be used as a derivation base key.
	UsageDerive KeyUsage = 1 << iota

	// UsageEncrypt permits encryption.
	UsageEncrypt

	// UsageDecrypt permits decryption.
	UsageDecrypt

	// UsageSign permits signing or MAC generation.
	UsageSign

	// UsageVerify permits signature or MAC verification.
	UsageVerify

	// UsageWrapKey permits wrapping other keys.
	UsageWrapKey

	// UsageUnwrapKey permits unwrapping other keys.
	UsageUnwrapKey
)

// usageNames is ordered by bit position.
var usageNames = []struct {
	usage KeyUsage
	name  string
}{
	{UsageDerive, "derive"},
	{UsageEncrypt, "encrypt"},
	{UsageDecrypt, "decrypt"},
	{UsageSign, "sign"},
	{UsageVerify, "verify"},
	{UsageWrapKey, "wrapKey"},
	{UsageUnwrapKey, "unwrapKey"},
}

// AllUsages is the closed set of every known usage.
const AllUsages = UsageDerive | UsageEncrypt | UsageDecrypt | UsageSign |
	UsageVerify | UsageWrapKey | UsageUnwrapKey

// Usages builds a set from individual usages.
func Usages(usages ...KeyUsage) KeyUsage {
	var set KeyUsage
	for _, u := range usages {
		set |= u
	}
	return set
}

// Has reports whether every usage in other is present in the set.
func (u KeyUsage) Has(other KeyUsage) bool {
	return u&other == other
}

// SubsetOf reports whether the set contains only usages from allowed.
func (u KeyUsage) SubsetOf(allowed KeyUsage) bool {
	return u&^allowed == 0
}

// IsEmpty reports whether the set has no usages.
func (u KeyUsage) IsEmpty() bool {
	return u == 0
}

// Names returns the usage names in canonical order.
func (u KeyUsage) Names() []string {
	names := make([]string, 0, len(usageNames))
	for _, n := range usageNames {
		if u&n.usage != 0 {
			names = append(names, n.name)
		}
	}
	return names
}

// String returns a comma separated list of usage names.
func (u KeyUsage) String() string {
	return strings.Join(u.Names(), ",")
}

// ParseKeyUsage converts a single usage name to KeyUsage.
// The WebCrypto names deriveKey and deriveBits are accepted as derive.
func ParseKeyUsage(s string) (KeyUsage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "derive", "derivekey", "derivebits":
		return UsageDerive, nil
	case "encrypt":
		return UsageEncrypt, nil
	case "decrypt":
		return UsageDecrypt, nil
	case "sign":
		return UsageSign, nil
	case "verify":
		return UsageVerify, nil
	case "wrapkey":
		return UsageWrapKey, nil
	case "unwrapkey":
		return UsageUnwrapKey, nil
	default:
		return 0, fmt.Errorf("%w: unknown key usage %q", ErrInvalidUsage, s)
	}
}

// ParseKeyUsages converts a list of usage names to a set.
func ParseKeyUsages(names []string) (KeyUsage, error) {
	var set KeyUsage
	for _, name := range names {
		u, err := ParseKeyUsage(name)
		if err != nil {
			return 0, err
		}
		set |= u
	}
	return set, nil
}
