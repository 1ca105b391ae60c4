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
	"bytes"
	"context"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-derivekey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-derivekey/pkg/correlation"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/metrics"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

var encrypt = types.UsageEncrypt

func importKDFKey(t *testing.T, name types.AlgorithmName, secret string, usages types.KeyUsage) *material.Key {
	t.Helper()
	key, err := material.ImportSecret(material.Algorithm{Name: name}, []byte(secret), false, usages)
	require.NoError(t, err)
	return key
}

func generatePair(t *testing.T, curve types.EllipticCurve) (*material.Key, *material.Key) {
	t.Helper()
	priv, pub, err := material.GenerateKeyPair(curve, true, types.UsageDerive)
	require.NoError(t, err)
	return priv, pub
}

func rawKey(t *testing.T, key *material.Key) []byte {
	t.Helper()
	raw, err := key.Raw()
	require.NoError(t, err)
	return raw
}

func TestDeriveKey_AgreementSymmetry(t *testing.T) {
	curves := []types.EllipticCurve{
		types.CurveP256, types.CurveP384, types.CurveP521, types.CurveX25519, types.CurveX448,
	}
	target := AESKeyAlgorithm{Name: types.AlgorithmAESCBC, Length: 256}

	for _, curve := range curves {
		t.Run(curve.String(), func(t *testing.T) {
			alicePriv, alicePub := generatePair(t, curve)
			bobPriv, bobPub := generatePair(t, curve)

			secret1, err := DeriveKey(context.Background(),
				ECDHParams{Name: curve.AgreementAlgorithm(), Public: alicePub}, bobPriv, target, true, encrypt)
			require.NoError(t, err)

			secret2, err := DeriveKey(context.Background(),
				ECDHParams{Name: curve.AgreementAlgorithm(), Public: bobPub}, alicePriv, target, true, encrypt)
			require.NoError(t, err)

			raw1 := rawKey(t, secret1)
			assert.Len(t, raw1, 32)
			assert.Equal(t, raw1, rawKey(t, secret2))
			assert.Equal(t, types.AlgorithmAESCBC, secret1.Algorithm().Name)
			assert.Equal(t, 256, secret1.Algorithm().Length)
		})
	}
}

func TestDeriveKey_AgreementInfersNameFromPeer(t *testing.T) {
	alicePriv, _ := generatePair(t, types.CurveX448)
	_, bobPub := generatePair(t, types.CurveX448)

	key, err := DeriveKey(context.Background(), &ECDHParams{Public: bobPub}, alicePriv,
		AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 128}, true, encrypt)
	require.NoError(t, err)
	assert.Len(t, rawKey(t, key), 16)
}

// TestDeriveKey_HKDFGoldenVectors derives AES-CTR keys from known HKDF inputs
func TestDeriveKey_HKDFGoldenVectors(t *testing.T) {
	tests := []struct {
		hash types.HashName
		want string
	}{
		{types.HashSHA256, "14d93b0ccd99d4f2cbd9fbfe9c830b5b8a43e3e45e32941ef21bdeb0fa87b6b6"},
		{types.HashSHA384, "e36cf2cf943d8f3a88adb80f478745c336ac811b1a86d03a7d10eb0b6b52295c"},
	}

	for _, tt := range tests {
		t.Run(tt.hash.String(), func(t *testing.T) {
			base := importKDFKey(t, types.AlgorithmHKDF, "hello", types.UsageDerive)
			key, err := DeriveKey(context.Background(),
				HKDFParams{Hash: tt.hash, Salt: []byte("my friend"), Info: []byte("there")},
				base, AESKeyAlgorithm{Name: types.AlgorithmAESCTR, Length: 256}, true, encrypt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(rawKey(t, key)))
		})
	}
}

// TestDeriveKey_PBKDF2GoldenVectors derives AES-CTR keys from known PBKDF2 inputs
func TestDeriveKey_PBKDF2GoldenVectors(t *testing.T) {
	tests := []struct {
		hash       types.HashName
		iterations int
		want       string
	}{
		{types.HashSHA256, 10, "f72d1cf4853fffbd16a42751765d11f8dc7939498ee7b7ce7678b4cb16fad880"},
		{types.HashSHA384, 5, "201509b012c9cd2fbe7ea938f0c509b36ecb140f38bf9130e96923f55f46756d"},
	}

	for _, tt := range tests {
		t.Run(tt.hash.String(), func(t *testing.T) {
			base := importKDFKey(t, types.AlgorithmPBKDF2, "hello", types.UsageDerive)
			for i := 0; i < 2; i++ {
				key, err := DeriveKey(context.Background(),
					PBKDF2Params{Hash: tt.hash, Salt: []byte("there"), Iterations: tt.iterations},
					base, AESKeyAlgorithm{Name: types.AlgorithmAESCTR, Length: 256}, true, encrypt)
				require.NoError(t, err)
				assert.Equal(t, tt.want, hex.EncodeToString(rawKey(t, key)))
			}
		})
	}
}

// TestDeriveKey_DefaultLengthsFromAgreement derives default length keys from a P-521 secret
func TestDeriveKey_DefaultLengthsFromAgreement(t *testing.T) {
	priv, pub := generatePair(t, types.CurveP521)
	params := ECDHParams{Name: types.AlgorithmECDH, Public: pub}

	tests := []struct {
		name   string
		target KeyAlgorithm
		usage  types.KeyUsage
		want   int
	}{
		{"PBKDF2", KDFKeyAlgorithm{Name: types.AlgorithmPBKDF2}, types.UsageDerive, 528},
		{"HKDF", KDFKeyAlgorithm{Name: types.AlgorithmHKDF}, types.UsageDerive, 528},
		{"HMAC SHA-1", HMACKeyAlgorithm{Hash: types.HashSHA1}, types.UsageSign, 512},
		{"HMAC SHA-256", HMACKeyAlgorithm{Hash: types.HashSHA256}, types.UsageSign, 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(context.Background(), params, priv, tt.target, false, tt.usage)
			require.NoError(t, err)

			if key.Algorithm().Name == types.AlgorithmHMAC {
				assert.Equal(t, tt.want, key.Algorithm().Length)
				return
			}
			// KDF keys are not extractable and carry no length
			assert.Zero(t, key.Algorithm().Length)
			assert.Len(t, key.Secret(), tt.want/8)
			_, err = key.Raw()
			assert.ErrorIs(t, err, types.ErrInvalidKey)
		})
	}
}

// TestDeriveKey_HMACDefaultTooLongForAgreement checks that a P-521 secret is
// too short for the 1024 bit HMAC default
func TestDeriveKey_HMACDefaultTooLongForAgreement(t *testing.T) {
	priv, pub := generatePair(t, types.CurveP521)

	for _, hash := range []types.HashName{types.HashSHA384, types.HashSHA512} {
		_, err := DeriveKey(context.Background(), ECDHParams{Public: pub}, priv,
			HMACKeyAlgorithm{Hash: hash}, false, types.UsageSign)
		assert.ErrorIs(t, err, types.ErrInvalidParameters, hash)
	}
}

func TestDeriveKey_DefaultLengthsFromPBKDF2(t *testing.T) {
	base := importKDFKey(t, types.AlgorithmPBKDF2, "", types.UsageDerive)
	params := PBKDF2Params{Hash: types.HashSHA256, Salt: []byte{}, Iterations: 20}

	tests := []struct {
		hash types.HashName
		want int
	}{
		{types.HashSHA1, 512},
		{types.HashSHA256, 512},
		{types.HashSHA384, 1024},
		{types.HashSHA512, 1024},
	}
	for _, tt := range tests {
		key, err := DeriveKey(context.Background(), params, base,
			HMACKeyAlgorithm{Hash: tt.hash}, false, types.UsageSign)
		require.NoError(t, err)
		assert.Equal(t, tt.want, key.Algorithm().Length, tt.hash)
		assert.Equal(t, tt.hash, key.Algorithm().Hash)
	}

	kdfKey, err := DeriveKey(context.Background(), params, base,
		KDFKeyAlgorithm{Name: types.AlgorithmHKDF}, false, types.UsageDerive)
	require.NoError(t, err)
	assert.Len(t, kdfKey.Secret(), DefaultKDFLength/8)
}

func TestDeriveKey_UsageRejection(t *testing.T) {
	base := importKDFKey(t, types.AlgorithmHKDF, "ikm", types.UsageDerive)
	params := HKDFParams{Hash: types.HashSHA256}

	tests := []struct {
		name   string
		target KeyAlgorithm
		usages types.KeyUsage
	}{
		{"sign on AES-CBC", AESKeyAlgorithm{Name: types.AlgorithmAESCBC, Length: 256}, types.UsageSign},
		{"encrypt on AES-KW", AESKeyAlgorithm{Name: types.AlgorithmAESKW, Length: 128}, types.UsageEncrypt},
		{"encrypt on HMAC", HMACKeyAlgorithm{Hash: types.HashSHA256}, types.UsageEncrypt},
		{"sign on HKDF", KDFKeyAlgorithm{Name: types.AlgorithmHKDF}, types.UsageSign},
		{"empty usages", AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 256}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKey(context.Background(), params, base, tt.target, false, tt.usages)
			assert.ErrorIs(t, err, types.ErrInvalidUsage)
			assert.Equal(t, types.ErrorKindInvalidUsage, types.ErrorKind(err))
		})
	}
}

func TestDeriveKey_BaseKeyEnforcement(t *testing.T) {
	target := AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 256}

	t.Run("missing derive usage", func(t *testing.T) {
		base := importKDFKey(t, types.AlgorithmPBKDF2, "pw", 0)
		_, err := DeriveKey(context.Background(),
			PBKDF2Params{Hash: types.HashSHA256, Iterations: 1}, base, target, true, encrypt)
		assert.ErrorIs(t, err, types.ErrInvalidKey)
	})

	t.Run("agreement key without derive", func(t *testing.T) {
		priv, _, err := material.GenerateKeyPair(types.CurveP256, false, 0)
		require.NoError(t, err)
		_, pub := generatePair(t, types.CurveP256)
		_, err = DeriveKey(context.Background(), ECDHParams{Public: pub}, priv, target, true, encrypt)
		assert.ErrorIs(t, err, types.ErrInvalidKey)
	})

	t.Run("algorithm mismatch", func(t *testing.T) {
		base := importKDFKey(t, types.AlgorithmHKDF, "ikm", types.UsageDerive)
		_, err := DeriveKey(context.Background(),
			PBKDF2Params{Hash: types.HashSHA256, Iterations: 1}, base, target, true, encrypt)
		assert.ErrorIs(t, err, types.ErrInvalidKey)
	})

	t.Run("nil base", func(t *testing.T) {
		_, err := DeriveKey(context.Background(), HKDFParams{Hash: types.HashSHA256}, nil, target, true, encrypt)
		assert.ErrorIs(t, err, types.ErrInvalidKey)
	})
}

func TestDeriveKey_AgreementKeyErrors(t *testing.T) {
	target := AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 128}
	p256Priv, p256Pub := generatePair(t, types.CurveP256)
	_, p384Pub := generatePair(t, types.CurveP384)
	x25519Priv, _ := generatePair(t, types.CurveX25519)
	_, x448Pub := generatePair(t, types.CurveX448)

	tests := []struct {
		name    string
		params  Params
		base    *material.Key
		wantErr error
	}{
		{"curve mismatch", ECDHParams{Name: types.AlgorithmECDH, Public: p384Pub}, p256Priv, types.ErrInvalidKey},
		{"peer is private", ECDHParams{Name: types.AlgorithmECDH, Public: p256Priv}, p256Priv, types.ErrInvalidKey},
		{"peer family mismatch", ECDHParams{Name: types.AlgorithmX25519, Public: x448Pub}, x25519Priv, types.ErrInvalidKey},
		{"inferred family mismatch", ECDHParams{Public: x448Pub}, x25519Priv, types.ErrInvalidKey},
		{"missing peer", ECDHParams{Name: types.AlgorithmECDH}, p256Priv, types.ErrInvalidParameters},
		{"public base", ECDHParams{Name: types.AlgorithmECDH, Public: p256Pub}, p256Pub, types.ErrInvalidKey},
		{"wrong params type", HKDFParams{Hash: types.HashSHA256}, p256Priv, types.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKey(context.Background(), tt.params, tt.base, target, true, encrypt)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeriveKey_ParameterErrors(t *testing.T) {
	pbkdf2Key := importKDFKey(t, types.AlgorithmPBKDF2, "pw", types.UsageDerive)
	hkdfKey := importKDFKey(t, types.AlgorithmHKDF, "ikm", types.UsageDerive)
	argonKey := importKDFKey(t, types.AlgorithmArgon2id, "pw", types.UsageDerive)
	aes := AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 256}

	tests := []struct {
		name    string
		params  Params
		base    *material.Key
		target  KeyAlgorithm
		wantErr error
	}{
		{"zero iterations", PBKDF2Params{Hash: types.HashSHA256}, pbkdf2Key, aes, types.ErrInvalidParameters},
		{"negative iterations", PBKDF2Params{Hash: types.HashSHA256, Iterations: -1}, pbkdf2Key, aes, types.ErrInvalidParameters},
		{"missing hash", PBKDF2Params{Iterations: 1}, pbkdf2Key, aes, types.ErrInvalidParameters},
		{"unknown hash", HKDFParams{Hash: "MD5"}, hkdfKey, aes, types.ErrUnsupportedAlgorithm},
		{"HKDF too long", HKDFParams{Hash: types.HashSHA1}, hkdfKey, HMACKeyAlgorithm{Hash: types.HashSHA1, Length: 255*160 + 8}, types.ErrInvalidParameters},
		{"argon2 short salt", Argon2Params{Salt: []byte("short"), Time: 1, Memory: 64, Threads: 1}, argonKey, aes, types.ErrInvalidParameters},
		{"argon2 low memory", Argon2Params{Salt: []byte("saltsalt"), Time: 1, Memory: 8, Threads: 2}, argonKey, aes, types.ErrInvalidParameters},
		{"AES without length", HKDFParams{Hash: types.HashSHA256}, hkdfKey, AESKeyAlgorithm{Name: types.AlgorithmAESCBC}, types.ErrInvalidParameters},
		{"AES bad length", HKDFParams{Hash: types.HashSHA256}, hkdfKey, AESKeyAlgorithm{Name: types.AlgorithmAESCBC, Length: 100}, types.ErrInvalidParameters},
		{"HMAC without hash", HKDFParams{Hash: types.HashSHA256}, hkdfKey, HMACKeyAlgorithm{}, types.ErrInvalidParameters},
		{"nil params", nil, hkdfKey, aes, types.ErrInvalidParameters},
		{"nil target", HKDFParams{Hash: types.HashSHA256}, hkdfKey, nil, types.ErrUnsupportedAlgorithm},
		{"unsupported target", HKDFParams{Hash: types.HashSHA256}, hkdfKey, KDFKeyAlgorithm{Name: "scrypt"}, types.ErrUnsupportedAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKey(context.Background(), tt.params, tt.base, tt.target, false, targetUsage(tt.target))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func targetUsage(target KeyAlgorithm) types.KeyUsage {
	switch target.(type) {
	case HMACKeyAlgorithm:
		return types.UsageSign
	case KDFKeyAlgorithm:
		return types.UsageDerive
	default:
		return types.UsageEncrypt
	}
}

func TestDeriveKey_ExtractableKDFTarget(t *testing.T) {
	base := importKDFKey(t, types.AlgorithmHKDF, "ikm", types.UsageDerive)
	_, err := DeriveKey(context.Background(), HKDFParams{Hash: types.HashSHA256}, base,
		KDFKeyAlgorithm{Name: types.AlgorithmPBKDF2}, true, types.UsageDerive)
	assert.ErrorIs(t, err, types.ErrInvalidParameters)
}

// TestDeriveKey_Truncation checks that shorter keys are prefixes of longer output
func TestDeriveKey_Truncation(t *testing.T) {
	ctx := context.Background()
	base := importKDFKey(t, types.AlgorithmHKDF, "hello", types.UsageDerive)
	params := HKDFParams{Hash: types.HashSHA256, Salt: []byte("my friend"), Info: []byte("there")}

	full, err := DeriveBits(ctx, params, base, 512)
	require.NoError(t, err)

	for _, length := range []int{128, 192, 256} {
		key, err := DeriveKey(ctx, params, base, AESKeyAlgorithm{Name: types.AlgorithmAESKW, Length: length},
			true, types.UsageWrapKey)
		require.NoError(t, err)
		assert.Equal(t, full[:length/8], rawKey(t, key), length)
	}

	hmacKey, err := DeriveKey(ctx, params, base, HMACKeyAlgorithm{Hash: types.HashSHA256, Length: 300},
		true, types.UsageVerify)
	require.NoError(t, err)
	raw := rawKey(t, hmacKey)
	require.Len(t, raw, 38)
	assert.Equal(t, full[:37], raw[:37])
	assert.Equal(t, full[37]&0xf0, raw[37])
	assert.Equal(t, 300, hmacKey.Algorithm().Length)
}

func TestDeriveKey_AgreementTruncation(t *testing.T) {
	ctx := context.Background()
	alicePriv, _ := generatePair(t, types.CurveP521)
	_, bobPub := generatePair(t, types.CurveP521)
	params := ECDHParams{Public: bobPub}

	bits, err := DeriveBits(ctx, params, alicePriv, 0)
	require.NoError(t, err)
	require.Len(t, bits, 66)

	key, err := DeriveKey(ctx, params, alicePriv, HMACKeyAlgorithm{Hash: types.HashSHA256}, true, types.UsageSign)
	require.NoError(t, err)
	assert.Equal(t, bits[:64], rawKey(t, key))
}

func TestDeriveKey_ChainedDerivation(t *testing.T) {
	ctx := context.Background()
	alicePriv, alicePub := generatePair(t, types.CurveX25519)
	bobPriv, bobPub := generatePair(t, types.CurveX25519)

	aliceKDF, err := DeriveKey(ctx, ECDHParams{Public: bobPub}, alicePriv,
		KDFKeyAlgorithm{Name: types.AlgorithmHKDF}, false, types.UsageDerive)
	require.NoError(t, err)
	bobKDF, err := DeriveKey(ctx, ECDHParams{Public: alicePub}, bobPriv,
		KDFKeyAlgorithm{Name: types.AlgorithmHKDF}, false, types.UsageDerive)
	require.NoError(t, err)

	params := HKDFParams{Hash: types.HashSHA512, Salt: []byte("session"), Info: []byte("aes")}
	target := AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 256}

	aliceAES, err := DeriveKey(ctx, params, aliceKDF, target, true, encrypt)
	require.NoError(t, err)
	bobAES, err := DeriveKey(ctx, params, bobKDF, target, true, encrypt)
	require.NoError(t, err)
	assert.Equal(t, rawKey(t, aliceAES), rawKey(t, bobAES))
}

func TestDeriveKey_Argon2id(t *testing.T) {
	base := importKDFKey(t, types.AlgorithmArgon2id, "correct horse", types.UsageDerive)
	params := &Argon2Params{Salt: []byte("saltsaltsalt"), Time: 1, Memory: 64, Threads: 2}
	target := AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 256}

	key1, err := DeriveKey(context.Background(), params, base, target, true, encrypt)
	require.NoError(t, err)
	key2, err := DeriveKey(context.Background(), params, base, target, true, encrypt)
	require.NoError(t, err)
	assert.Equal(t, rawKey(t, key1), rawKey(t, key2))
	assert.Len(t, rawKey(t, key1), 32)
}

func TestDeriveKey_HKDFAvalanche(t *testing.T) {
	ctx := context.Background()
	base := importKDFKey(t, types.AlgorithmHKDF, "ikm", types.UsageDerive)

	derive := func(salt, info string) []byte {
		bits, err := DeriveBits(ctx, HKDFParams{Hash: types.HashSHA256, Salt: []byte(salt), Info: []byte(info)}, base, 256)
		require.NoError(t, err)
		return bits
	}

	a := derive("salt", "info")
	assert.Equal(t, a, derive("salt", "info"))
	assert.NotEqual(t, a, derive("salt2", "info"))
	assert.NotEqual(t, a, derive("salt", "info2"))

	// nil and empty salt/info are the same input
	nilBits, err := DeriveBits(ctx, HKDFParams{Hash: types.HashSHA256}, base, 256)
	require.NoError(t, err)
	assert.Equal(t, derive("", ""), nilBits)
}

func TestDeriveKey_Parallel(t *testing.T) {
	base := importKDFKey(t, types.AlgorithmPBKDF2, "hello", types.UsageDerive)
	params := PBKDF2Params{Hash: types.HashSHA256, Salt: []byte("there"), Iterations: 10}
	target := AESKeyAlgorithm{Name: types.AlgorithmAESCTR, Length: 256}

	const workers = 16
	results := make([][]byte, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, err := DeriveKey(context.Background(), params, base, target, true, encrypt)
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = key.Raw()
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "f72d1cf4853fffbd16a42751765d11f8dc7939498ee7b7ce7678b4cb16fad880", hex.EncodeToString(results[i]))
	}
}

func TestDeriveKey_StateTransitions(t *testing.T) {
	var states []State
	d := New(WithMetrics(false), WithStateHook(func(_ context.Context, s State) {
		states = append(states, s)
	}))

	base := importKDFKey(t, types.AlgorithmHKDF, "ikm", types.UsageDerive)
	_, err := d.DeriveKey(context.Background(), HKDFParams{Hash: types.HashSHA256}, base,
		AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 128}, false, encrypt)
	require.NoError(t, err)
	assert.Equal(t, []State{StateValidating, StateDeriving, StateWrapping, StateComplete}, states)

	states = nil
	_, err = d.DeriveKey(context.Background(), HKDFParams{Hash: types.HashSHA256}, base,
		AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 128}, false, types.UsageSign)
	require.ErrorIs(t, err, types.ErrInvalidUsage)
	assert.Equal(t, []State{StateValidating, StateFailed}, states)

	states = nil
	_, err = d.DeriveKey(context.Background(), PBKDF2Params{Hash: types.HashSHA256}, importKDFKey(t, types.AlgorithmPBKDF2, "pw", types.UsageDerive),
		AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 128}, false, encrypt)
	require.ErrorIs(t, err, types.ErrInvalidParameters)
	assert.Equal(t, []State{StateValidating, StateDeriving, StateFailed}, states)
}

func TestDeriveKey_Cancellation(t *testing.T) {
	var states []State
	d := New(WithMetrics(false), WithStateHook(func(_ context.Context, s State) {
		states = append(states, s)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	base := importKDFKey(t, types.AlgorithmPBKDF2, "pw", types.UsageDerive)
	key, err := d.DeriveKey(ctx, PBKDF2Params{Hash: types.HashSHA256, Iterations: 1}, base,
		AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 128}, false, encrypt)
	assert.Nil(t, key)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.ErrorKindCanceled, types.ErrorKind(err))
	assert.Equal(t, []State{StateValidating, StateFailed}, states)

	_, err = d.DeriveBits(ctx, PBKDF2Params{Hash: types.HashSHA256, Iterations: 1}, base, 128)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeriveBits(t *testing.T) {
	ctx := context.Background()
	base := importKDFKey(t, types.AlgorithmPBKDF2, "hello", types.UsageDerive)
	params := PBKDF2Params{Hash: types.HashSHA256, Salt: []byte("there"), Iterations: 10}

	bits, err := DeriveBits(ctx, params, base, 256)
	require.NoError(t, err)
	assert.Equal(t, "f72d1cf4853fffbd16a42751765d11f8dc7939498ee7b7ce7678b4cb16fad880", hex.EncodeToString(bits))

	short, err := DeriveBits(ctx, params, base, 12)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xf7, 0x20}, short)

	_, err = DeriveBits(ctx, params, base, 0)
	assert.ErrorIs(t, err, types.ErrInvalidParameters)

	_, err = DeriveBits(ctx, params, base, -8)
	assert.ErrorIs(t, err, types.ErrInvalidParameters)
}

func TestDeriveBits_AgreementLength(t *testing.T) {
	ctx := context.Background()
	priv, _ := generatePair(t, types.CurveX25519)
	_, peer := generatePair(t, types.CurveX25519)

	bits, err := DeriveBits(ctx, ECDHParams{Public: peer}, priv, 0)
	require.NoError(t, err)
	assert.Len(t, bits, 32)

	_, err = DeriveBits(ctx, ECDHParams{Public: peer}, priv, 264)
	assert.ErrorIs(t, err, types.ErrInvalidParameters)
}

func TestDeriver_Logging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogAdapter(&logger.SlogConfig{Format: logger.FormatJSON, Output: &buf, Level: logger.LevelDebug})
	d := New(WithLogger(log), WithMetrics(false))

	ctx := correlation.WithCorrelationID(context.Background(), "derive-test")
	base := importKDFKey(t, types.AlgorithmHKDF, "super secret passphrase", types.UsageDerive)

	_, err := d.DeriveKey(ctx, HKDFParams{Hash: types.HashSHA256}, base,
		AESKeyAlgorithm{Name: types.AlgorithmAESCBC, Length: 256}, false, types.UsageSign)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "derivation failed")
	assert.Contains(t, out, types.ErrorKindInvalidUsage)
	assert.Contains(t, out, "derive-test")
	assert.Contains(t, out, base.ID())
	assert.NotContains(t, out, "super secret passphrase")
}

func TestDeriver_Metrics(t *testing.T) {
	metrics.Enable()
	d := New()

	success := metrics.DerivationsTotal.WithLabelValues("HKDF", "AES-KW", metrics.StatusSuccess)
	failures := metrics.ErrorsTotal.WithLabelValues("HKDF", types.ErrorKindInvalidUsage)
	beforeSuccess := testutil.ToFloat64(success)
	beforeFailures := testutil.ToFloat64(failures)

	base := importKDFKey(t, types.AlgorithmHKDF, "ikm", types.UsageDerive)
	target := AESKeyAlgorithm{Name: types.AlgorithmAESKW, Length: 128}

	_, err := d.DeriveKey(context.Background(), HKDFParams{Hash: types.HashSHA256}, base, target, false, types.UsageWrapKey)
	require.NoError(t, err)
	_, err = d.DeriveKey(context.Background(), HKDFParams{Hash: types.HashSHA256}, base, target, false, types.UsageEncrypt)
	require.Error(t, err)

	assert.Equal(t, beforeSuccess+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeFailures+1, testutil.ToFloat64(failures))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "validating", StateValidating.String())
	assert.Equal(t, "deriving", StateDeriving.String())
	assert.Equal(t, "wrapping", StateWrapping.String())
	assert.Equal(t, "complete", StateComplete.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(0).String())
}
