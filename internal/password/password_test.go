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

package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClearPassword_Copies(t *testing.T) {
	input := []byte("hunter2")
	p := NewClearPassword(input)
	input[0] = 'X'

	assert.Equal(t, []byte("hunter2"), p.Bytes())
	assert.Equal(t, 7, p.Len())
}

func TestClearPassword_Empty(t *testing.T) {
	p := NewClearPasswordFromString("")
	assert.Equal(t, []byte{}, p.Bytes())

	s, err := p.String()
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestClearPassword_BytesIsolation(t *testing.T) {
	p := NewClearPasswordFromString("secret")
	b := p.Bytes()
	b[0] = 'X'
	assert.Equal(t, []byte("secret"), p.Bytes())
}

func TestClearPassword_Clear(t *testing.T) {
	p := NewClearPasswordFromString("secret")
	p.Clear()

	assert.Nil(t, p.Bytes())
	_, err := p.String()
	assert.ErrorIs(t, err, ErrPasswordZeroed)

	// Idempotent
	p.Clear()
	assert.Nil(t, p.Bytes())
}

func TestEqual(t *testing.T) {
	a := NewClearPasswordFromString("same")
	b := NewClearPasswordFromString("same")
	c := NewClearPasswordFromString("different")

	eq, err := Equal(a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = Equal(a, c)
	require.NoError(t, err)
	assert.False(t, eq)

	c.Clear()
	_, err = Equal(a, c)
	assert.ErrorIs(t, err, ErrPasswordZeroed)
}
