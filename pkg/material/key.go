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

// Package material holds the key objects the derivation engine consumes and
// produces. A Key carries its algorithm, type, extractability and usage set,
// all fixed at creation.
package material

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-derivekey/pkg/crypto/ecdh"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// Key is an immutable key object: secret bytes for symmetric and KDF keys,
// or one half of an agreement key pair.
type Key struct {
	id          uuid.UUID
	algorithm   Algorithm
	keyType     types.KeyType
	extractable bool
	usages      types.KeyUsage

	secret  []byte
	private *ecdh.PrivateKey
	public  *ecdh.PublicKey
}

// ID returns the identifier assigned at creation. It carries no key data
// and is safe to log.
func (k *Key) ID() string {
	return k.id.String()
}

// Algorithm returns the key's algorithm descriptor.
func (k *Key) Algorithm() Algorithm {
	return k.algorithm
}

// Type returns secret, private or public.
func (k *Key) Type() types.KeyType {
	return k.keyType
}

// Extractable reports whether Raw may export the key data.
func (k *Key) Extractable() bool {
	return k.extractable
}

// Usages returns the usage set.
func (k *Key) Usages() types.KeyUsage {
	return k.usages
}

// Raw returns a copy of the raw key data: the secret bytes, the private
// scalar or the public point.
func (k *Key) Raw() ([]byte, error) {
	if !k.extractable {
		return nil, fmt.Errorf("%w: key %s is not extractable", types.ErrInvalidKey, k.id)
	}
	switch k.keyType {
	case types.KeyTypePrivate:
		return k.private.Bytes(), nil
	case types.KeyTypePublic:
		return k.public.Bytes(), nil
	default:
		return k.Secret(), nil
	}
}

// Secret returns a copy of the secret bytes of a secret key, or nil for an
// agreement key. It ignores extractability and is meant for derivation
// primitives; use Raw to export.
func (k *Key) Secret() []byte {
	if k.keyType != types.KeyTypeSecret {
		return nil
	}
	raw := make([]byte, len(k.secret))
	copy(raw, k.secret)
	return raw
}

// PrivateKey returns the agreement private key, or nil.
func (k *Key) PrivateKey() *ecdh.PrivateKey {
	return k.private
}

// PublicKey returns the agreement public key, or nil for secret keys. For a
// private key it returns the corresponding public key.
func (k *Key) PublicKey() *ecdh.PublicKey {
	if k.private != nil {
		return k.private.PublicKey()
	}
	return k.public
}

// Public returns the public half of an agreement private key as its own Key.
func (k *Key) Public() (*Key, error) {
	switch k.keyType {
	case types.KeyTypePublic:
		return k, nil
	case types.KeyTypePrivate:
		return newPublicKey(k.private.PublicKey()), nil
	default:
		return nil, fmt.Errorf("%w: %s key has no public half", types.ErrInvalidKey, k.keyType)
	}
}

// ImportSecret creates a secret key from raw bytes.
//
// KDF keys (PBKDF2, HKDF, Argon2id) accept any length, including empty, and
// must not be extractable. AES keys must be 16, 24 or 32 bytes. HMAC keys
// default to SHA-256 and to a length of len(secret)*8 bits; an explicit
// length must round up to len(secret) bytes.
func ImportSecret(alg Algorithm, secret []byte, extractable bool, usages types.KeyUsage) (*Key, error) {
	alg, err := normalizeSecretAlgorithm(alg, len(secret))
	if err != nil {
		return nil, err
	}
	if alg.Name.IsKDF() && extractable {
		return nil, fmt.Errorf("%w: %s keys cannot be extractable",
			types.ErrInvalidParameters, alg.Name)
	}
	if err := CheckUsages(alg.Name, types.KeyTypeSecret, usages); err != nil {
		return nil, err
	}

	// Make a copy to prevent external modification
	data := make([]byte, len(secret))
	copy(data, secret)

	return &Key{
		id:          uuid.New(),
		algorithm:   alg,
		keyType:     types.KeyTypeSecret,
		extractable: extractable,
		usages:      usages,
		secret:      data,
	}, nil
}

// GenerateSecret creates a random AES or HMAC key. AES requires an explicit
// length; HMAC defaults to the block size of its hash.
func GenerateSecret(alg Algorithm, extractable bool, usages types.KeyUsage) (*Key, error) {
	switch {
	case alg.Name.IsAES():
		if !ValidAESLength(alg.Length) {
			return nil, fmt.Errorf("%w: AES length must be 128, 192 or 256, got %d",
				types.ErrInvalidParameters, alg.Length)
		}
	case alg.Name == types.AlgorithmHMAC:
		if alg.Hash == "" {
			alg.Hash = types.HashSHA256
		}
		if alg.Hash.BlockSize() == 0 {
			return nil, fmt.Errorf("%w: hash %q", types.ErrUnsupportedAlgorithm, alg.Hash)
		}
		if alg.Length == 0 {
			alg.Length = alg.Hash.BlockSize() * 8
		}
	default:
		return nil, fmt.Errorf("%w: cannot generate %q secret", types.ErrUnsupportedAlgorithm, alg.Name)
	}

	secret := make([]byte, (alg.Length+7)/8)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	if rem := alg.Length % 8; rem != 0 {
		secret[len(secret)-1] &= byte(0xff << (8 - rem))
	}
	return ImportSecret(alg, secret, extractable, usages)
}

// GenerateKeyPair generates an agreement key pair on curve. The private key
// takes extractable and usages; the public key is always extractable and
// has no usages.
func GenerateKeyPair(curve types.EllipticCurve, extractable bool, usages types.KeyUsage) (*Key, *Key, error) {
	priv, err := ecdh.GenerateKey(curve)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrUnsupportedAlgorithm, err)
	}
	key, err := newPrivateKey(priv, extractable, usages)
	if err != nil {
		return nil, nil, err
	}
	return key, newPublicKey(priv.PublicKey()), nil
}

// ImportPrivateKey creates an agreement private key from its raw encoding.
func ImportPrivateKey(curve types.EllipticCurve, raw []byte, extractable bool, usages types.KeyUsage) (*Key, error) {
	if curve.AgreementAlgorithm() == "" {
		return nil, fmt.Errorf("%w: curve %q", types.ErrUnsupportedAlgorithm, curve)
	}
	priv, err := ecdh.NewPrivateKey(curve, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return newPrivateKey(priv, extractable, usages)
}

// ImportPublicKey creates an agreement public key from its raw encoding.
func ImportPublicKey(curve types.EllipticCurve, raw []byte) (*Key, error) {
	if curve.AgreementAlgorithm() == "" {
		return nil, fmt.Errorf("%w: curve %q", types.ErrUnsupportedAlgorithm, curve)
	}
	pub, err := ecdh.NewPublicKey(curve, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return newPublicKey(pub), nil
}

// FromPrivateKey wraps a crypto/ecdh, crypto/ecdsa or x448 private key.
func FromPrivateKey(key any, extractable bool, usages types.KeyUsage) (*Key, error) {
	priv, err := ecdh.FromPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return newPrivateKey(priv, extractable, usages)
}

// FromPublicKey wraps a crypto/ecdh, crypto/ecdsa or x448 public key.
func FromPublicKey(key any) (*Key, error) {
	pub, err := ecdh.FromPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return newPublicKey(pub), nil
}

func newPrivateKey(priv *ecdh.PrivateKey, extractable bool, usages types.KeyUsage) (*Key, error) {
	alg := agreementAlgorithm(priv.Curve())
	if err := CheckUsages(alg.Name, types.KeyTypePrivate, usages); err != nil {
		return nil, err
	}
	return &Key{
		id:          uuid.New(),
		algorithm:   alg,
		keyType:     types.KeyTypePrivate,
		extractable: extractable,
		usages:      usages,
		private:     priv,
	}, nil
}

func newPublicKey(pub *ecdh.PublicKey) *Key {
	return &Key{
		id:          uuid.New(),
		algorithm:   agreementAlgorithm(pub.Curve()),
		keyType:     types.KeyTypePublic,
		extractable: true,
		public:      pub,
	}
}

func agreementAlgorithm(curve types.EllipticCurve) Algorithm {
	return Algorithm{Name: curve.AgreementAlgorithm(), NamedCurve: curve}
}

// normalizeSecretAlgorithm validates a secret key algorithm against the key
// size and fills in the defaults.
func normalizeSecretAlgorithm(alg Algorithm, size int) (Algorithm, error) {
	switch {
	case alg.Name.IsKDF():
		return Algorithm{Name: alg.Name}, nil

	case alg.Name.IsAES():
		bits := size * 8
		if !ValidAESLength(bits) {
			return alg, fmt.Errorf("%w: invalid AES key size: %d bits (must be 128, 192, or 256)",
				types.ErrInvalidParameters, bits)
		}
		if alg.Length != 0 && alg.Length != bits {
			return alg, fmt.Errorf("%w: AES length %d does not match %d byte key",
				types.ErrInvalidParameters, alg.Length, size)
		}
		return Algorithm{Name: alg.Name, Length: bits}, nil

	case alg.Name == types.AlgorithmHMAC:
		if alg.Hash == "" {
			alg.Hash = types.HashSHA256
		}
		if alg.Hash.Hash() == 0 {
			return alg, fmt.Errorf("%w: hash %q", types.ErrUnsupportedAlgorithm, alg.Hash)
		}
		if size == 0 {
			return alg, fmt.Errorf("%w: HMAC key cannot be empty", types.ErrInvalidParameters)
		}
		if alg.Length == 0 {
			alg.Length = size * 8
		}
		if (alg.Length+7)/8 != size {
			return alg, fmt.Errorf("%w: HMAC length %d does not match %d byte key",
				types.ErrInvalidParameters, alg.Length, size)
		}
		return Algorithm{Name: alg.Name, Hash: alg.Hash, Length: alg.Length}, nil

	case alg.Name.IsAgreement():
		return alg, fmt.Errorf("%w: %s keys are not secret keys", types.ErrInvalidKey, alg.Name)

	default:
		return alg, fmt.Errorf("%w: %q", types.ErrUnsupportedAlgorithm, alg.Name)
	}
}
