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

package x448

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	ka := New()

	keyPair, err := ka.GenerateKey()
	require.NoError(t, err)
	require.NotNil(t, keyPair.PrivateKey)
	require.NotNil(t, keyPair.PublicKey)

	assert.Len(t, keyPair.PrivateKey.Bytes(), KeySize)
	assert.Len(t, keyPair.PublicKey.Bytes(), KeySize)
	assert.True(t, keyPair.PublicKey.Equal(keyPair.PrivateKey.PublicKey()))

	other, err := ka.GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, keyPair.PrivateKey.Bytes(), other.PrivateKey.Bytes())
	assert.False(t, keyPair.PublicKey.Equal(other.PublicKey))
	assert.False(t, keyPair.PublicKey.Equal(nil))
}

func TestDeriveSharedSecret(t *testing.T) {
	ka := New()

	alice, err := ka.GenerateKey()
	require.NoError(t, err)
	bob, err := ka.GenerateKey()
	require.NoError(t, err)

	aliceShared, err := ka.DeriveSharedSecret(alice.PrivateKey, bob.PublicKey)
	require.NoError(t, err)
	assert.Len(t, aliceShared, KeySize)

	bobShared, err := ka.DeriveSharedSecret(bob.PrivateKey, alice.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, aliceShared, bobShared)

	_, err = ka.DeriveSharedSecret(nil, bob.PublicKey)
	assert.ErrorContains(t, err, "private key cannot be nil")

	_, err = ka.DeriveSharedSecret(alice.PrivateKey, nil)
	assert.ErrorContains(t, err, "peer public key cannot be nil")
}

// TestRFC7748Vector checks the Diffie-Hellman test vector from RFC 7748 section 6.2.
func TestRFC7748Vector(t *testing.T) {
	alicePriv, _ := hex.DecodeString("9a8f4925d1519f5775cf46b04b5800d4ee9ee8bae8bc5565d498c28dd9c9baf574a9419744897391006382a6f127ab1d9ac2d8c0a598726b")
	alicePubWant, _ := hex.DecodeString("9b08f7cc31b7e3e67d22d5aea121074a273bd2b83de09c63faa73d2c22c5d9bbc836647241d953d40c5b12da88120d53177f80e532c41fa0")
	bobPriv, _ := hex.DecodeString("1c306a7ac2a0e2e0990b294470cba339e6453772b075811d8fad0d1d6927c120bb5ee8972b0d3e21374c9c921b09d1b0366f10b65173992d")
	sharedWant, _ := hex.DecodeString("07fff4181ac6cc95ec1c16a94a0f74d12da232ce40a77552281d282bb60c0b56fd2464c335543936521c24403085d59a449a5037514a879d")

	alice, err := NewPrivateKey(alicePriv)
	require.NoError(t, err)
	assert.Equal(t, alicePubWant, alice.PublicKey().Bytes())

	bob, err := NewPrivateKey(bobPriv)
	require.NoError(t, err)

	shared, err := alice.ECDH(bob.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, sharedWant, shared)
}

func TestParseKeys(t *testing.T) {
	_, err := NewPrivateKey(make([]byte, 32))
	assert.ErrorContains(t, err, "must be 56 bytes")

	_, err = NewPublicKey(make([]byte, 57))
	assert.ErrorContains(t, err, "must be 56 bytes")

	priv, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	roundTrip, err := NewPrivateKey(priv.Bytes())
	require.NoError(t, err)
	assert.Equal(t, priv.Bytes(), roundTrip.Bytes())

	pub, err := NewPublicKey(priv.PublicKey().Bytes())
	require.NoError(t, err)
	assert.True(t, pub.Equal(priv.PublicKey()))
}

func TestBytesAreCopies(t *testing.T) {
	priv, err := GenerateKey(nil)
	require.NoError(t, err)

	b := priv.Bytes()
	orig := bytes.Clone(b)
	b[0] ^= 0xff
	assert.Equal(t, orig, priv.Bytes())
}

func TestLowOrderPoint(t *testing.T) {
	priv, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	zero, err := NewPublicKey(make([]byte, KeySize))
	require.NoError(t, err)

	_, err = priv.ECDH(zero)
	assert.ErrorIs(t, err, ErrLowOrderPoint)
}
