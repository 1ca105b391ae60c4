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

package material

import (
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// Algorithm describes the algorithm a key belongs to. Fields that do not
// apply to the algorithm family are left at their zero value.
type Algorithm struct {
	// Name is the algorithm name.
	Name types.AlgorithmName

	// NamedCurve is set for ECDH, X25519 and X448 keys.
	NamedCurve types.EllipticCurve

	// Hash is set for HMAC keys.
	Hash types.HashName

	// Length is the key length in bits for AES and HMAC keys.
	Length int
}

// String renders the algorithm with its relevant parameters, for example
// "AES-GCM-256", "HMAC-SHA-384-1024" or "ECDH-P-521".
func (a Algorithm) String() string {
	var b strings.Builder
	b.WriteString(a.Name.String())
	if a.NamedCurve != "" && a.Name == types.AlgorithmECDH {
		b.WriteString("-")
		b.WriteString(a.NamedCurve.String())
	}
	if a.Hash != "" {
		b.WriteString("-")
		b.WriteString(a.Hash.String())
	}
	if a.Length > 0 {
		fmt.Fprintf(&b, "-%d", a.Length)
	}
	return b.String()
}

// PermittedUsages returns the usages a key of the given algorithm and type
// may carry.
func PermittedUsages(name types.AlgorithmName, keyType types.KeyType) types.KeyUsage {
	switch {
	case name.IsAgreement():
		if keyType == types.KeyTypePrivate {
			return types.UsageDerive
		}
		return 0
	case name.IsKDF():
		return types.UsageDerive
	case name == types.AlgorithmAESKW:
		return types.Usages(types.UsageWrapKey, types.UsageUnwrapKey)
	case name.IsAES():
		return types.Usages(types.UsageEncrypt, types.UsageDecrypt,
			types.UsageWrapKey, types.UsageUnwrapKey)
	case name == types.AlgorithmHMAC:
		return types.Usages(types.UsageSign, types.UsageVerify)
	default:
		return 0
	}
}

// CheckUsages fails with ErrInvalidUsage when usages holds anything the
// algorithm and key type do not permit.
func CheckUsages(name types.AlgorithmName, keyType types.KeyType, usages types.KeyUsage) error {
	permitted := PermittedUsages(name, keyType)
	if !usages.SubsetOf(permitted) {
		return fmt.Errorf("%w: %s not permitted for %s %s key (allowed: %q)",
			types.ErrInvalidUsage, (usages &^ permitted).String(), keyType, name, permitted.String())
	}
	return nil
}

// ValidAESLength reports whether bits is an AES key size.
func ValidAESLength(bits int) bool {
	return bits == 128 || bits == 192 || bits == 256
}
