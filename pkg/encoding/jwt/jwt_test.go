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

package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

var macUsages = types.Usages(types.UsageSign, types.UsageVerify)

func hmacKey(t *testing.T, hash types.HashName, usages types.KeyUsage) *material.Key {
	t.Helper()
	key, err := material.GenerateSecret(material.Algorithm{Name: types.AlgorithmHMAC, Hash: hash}, false, usages)
	require.NoError(t, err)
	return key
}

func TestSignVerify(t *testing.T) {
	tests := []struct {
		hash types.HashName
		alg  string
	}{
		{types.HashSHA256, "HS256"},
		{types.HashSHA384, "HS384"},
		{types.HashSHA512, "HS512"},
	}

	for _, tt := range tests {
		t.Run(tt.alg, func(t *testing.T) {
			key := hmacKey(t, tt.hash, macUsages)

			signer, err := NewSigner(key)
			require.NoError(t, err)
			assert.Equal(t, tt.alg, signer.Algorithm())

			token, err := signer.Sign(MapClaims{
				"sub": "user123",
				"exp": time.Now().Add(time.Hour).Unix(),
			})
			require.NoError(t, err)

			verifier, err := NewVerifier(key)
			require.NoError(t, err)

			claims := MapClaims{}
			parsed, err := verifier.Verify(token, claims)
			require.NoError(t, err)
			assert.True(t, parsed.Valid)
			assert.Equal(t, "user123", claims["sub"])
			assert.Equal(t, key.ID(), parsed.Header["kid"])
			assert.Equal(t, tt.alg, parsed.Header["alg"])
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	key := hmacKey(t, types.HashSHA256, macUsages)
	signer, err := NewSigner(key)
	require.NoError(t, err)
	verifier, err := NewVerifier(key)
	require.NoError(t, err)

	t.Run("other key", func(t *testing.T) {
		token, err := signer.Sign(MapClaims{"sub": "a"})
		require.NoError(t, err)

		other, err := NewVerifier(hmacKey(t, types.HashSHA256, macUsages))
		require.NoError(t, err)
		_, err = other.Verify(token, MapClaims{})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := signer.Sign(MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
		require.NoError(t, err)
		_, err = verifier.Verify(token, MapClaims{})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		sha512Key := hmacKey(t, types.HashSHA512, macUsages)
		s512, err := NewSigner(sha512Key)
		require.NoError(t, err)
		token, err := s512.Sign(MapClaims{"sub": "a"})
		require.NoError(t, err)

		_, err = verifier.Verify(token, MapClaims{})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := verifier.Verify("not.a.token", MapClaims{})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewSigner_Errors(t *testing.T) {
	_, err := NewSigner(hmacKey(t, types.HashSHA1, macUsages))
	assert.ErrorIs(t, err, types.ErrUnsupportedAlgorithm)

	_, err = NewSigner(hmacKey(t, types.HashSHA256, types.UsageVerify))
	assert.ErrorIs(t, err, types.ErrInvalidKey)

	_, err = NewVerifier(hmacKey(t, types.HashSHA256, types.UsageSign))
	assert.ErrorIs(t, err, types.ErrInvalidKey)

	aes, err := material.GenerateSecret(material.Algorithm{Name: types.AlgorithmAESGCM, Length: 256}, false, types.UsageEncrypt)
	require.NoError(t, err)
	_, err = NewSigner(aes)
	assert.ErrorIs(t, err, types.ErrInvalidKey)

	_, err = NewSigner(nil)
	assert.ErrorIs(t, err, types.ErrInvalidKey)
}
