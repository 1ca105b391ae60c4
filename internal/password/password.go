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

// Package password provides passphrase handling for the derivekey CLI.
//
// A ClearPassword holds passphrase bytes that can be zeroed once a derivation
// has consumed them. A Source resolves a passphrase from a flag value, a
// file, an environment variable or an interactive terminal prompt.
package password

import (
	"crypto/subtle"
	"errors"
)

var (
	// ErrPasswordZeroed is returned when the password has been zeroed.
	ErrPasswordZeroed = errors.New("password has been zeroed")

	// ErrPasswordMismatch is returned when a confirmation prompt does not
	// match the first entry.
	ErrPasswordMismatch = errors.New("passphrases do not match")
)

// ClearPassword stores a passphrase in memory as cleartext.
//
// An empty passphrase is valid: PBKDF2 and Argon2id accept it.
type ClearPassword struct {
	password []byte
	zeroed   bool
}

// NewClearPassword creates a password from a copy of b.
func NewClearPassword(b []byte) *ClearPassword {
	p := make([]byte, len(b))
	copy(p, b)
	return &ClearPassword{password: p}
}

// NewClearPasswordFromString creates a password from a string.
func NewClearPasswordFromString(s string) *ClearPassword {
	return &ClearPassword{password: []byte(s)}
}

// Bytes returns a copy of the passphrase, or nil after Clear.
func (p *ClearPassword) Bytes() []byte {
	if p.zeroed {
		return nil
	}
	result := make([]byte, len(p.password))
	copy(result, p.password)
	return result
}

// String returns the passphrase as a string.
func (p *ClearPassword) String() (string, error) {
	if p.zeroed {
		return "", ErrPasswordZeroed
	}
	return string(p.password), nil
}

// Len returns the passphrase length in bytes.
func (p *ClearPassword) Len() int {
	return len(p.password)
}

// Clear zeroes the passphrase. It is irreversible.
func (p *ClearPassword) Clear() {
	if p.zeroed {
		return
	}
	clear(p.password)
	subtle.ConstantTimeCopy(1, p.password, make([]byte, len(p.password)))
	p.password = nil
	p.zeroed = true
}

// Equal compares two passwords in constant time.
func Equal(a, b *ClearPassword) (bool, error) {
	if a.zeroed || b.zeroed {
		return false, ErrPasswordZeroed
	}
	return subtle.ConstantTimeCompare(a.password, b.password) == 1, nil
}
