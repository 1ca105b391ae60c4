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

// Package x448 provides X448 Diffie-Hellman key agreement (RFC 7748) on top of
// the Curve448 implementation in github.com/cloudflare/circl.
//
// The API mirrors crypto/ecdh so callers can treat X448 keys the same way as
// the X25519 and NIST curve keys the standard library supports.
package x448

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/dh/x448"
)

// KeySize is the size in bytes of X448 private keys, public keys and shared secrets.
const KeySize = x448.Size

// ErrLowOrderPoint is returned when key agreement yields the all-zero value,
// which happens when the peer public key is a low-order point.
var ErrLowOrderPoint = errors.New("x448: low order public key")

// PrivateKey is an X448 private scalar together with its public key.
type PrivateKey struct {
	secret x448.Key
	public PublicKey
}

// PublicKey is an X448 public key (a u-coordinate).
type PublicKey struct {
	key x448.Key
}

// KeyPair represents an X448 key pair.
type KeyPair struct {
	PrivateKey *PrivateKey
	PublicKey  *PublicKey
}

// KeyAgreement provides X448 Diffie-Hellman key agreement operations.
type KeyAgreement interface {
	// GenerateKey generates a new X448 key pair.
	GenerateKey() (*KeyPair, error)

	// DeriveSharedSecret performs X448 key agreement between a private key
	// and a peer's public key. The 56-byte result should be passed through a
	// KDF before use as a symmetric key.
	DeriveSharedSecret(privateKey *PrivateKey, peerPublicKey *PublicKey) ([]byte, error)
}

type x448KeyAgreement struct {
	rand io.Reader
}

// New creates a new X448 key agreement instance backed by crypto/rand.
func New() KeyAgreement {
	return &x448KeyAgreement{rand: rand.Reader}
}

// GenerateKey generates a new X448 key pair using crypto/rand.
func (ka *x448KeyAgreement) GenerateKey() (*KeyPair, error) {
	privateKey, err := GenerateKey(ka.rand)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// DeriveSharedSecret performs X448 ECDH to derive a shared secret.
func (ka *x448KeyAgreement) DeriveSharedSecret(privateKey *PrivateKey, peerPublicKey *PublicKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	if peerPublicKey == nil {
		return nil, fmt.Errorf("peer public key cannot be nil")
	}
	return privateKey.ECDH(peerPublicKey)
}

// GenerateKey generates a random X448 private key.
func GenerateKey(r io.Reader) (*PrivateKey, error) {
	if r == nil {
		r = rand.Reader
	}
	var seed [KeySize]byte
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return nil, fmt.Errorf("failed to generate X448 key: %w", err)
	}
	return NewPrivateKey(seed[:])
}

// NewPrivateKey parses an X448 private key from its 56-byte encoding.
func NewPrivateKey(privateKeyBytes []byte) (*PrivateKey, error) {
	if len(privateKeyBytes) != KeySize {
		return nil, fmt.Errorf("X448 private key must be %d bytes, got %d", KeySize, len(privateKeyBytes))
	}

	k := &PrivateKey{}
	copy(k.secret[:], privateKeyBytes)
	x448.KeyGen(&k.public.key, &k.secret)
	return k, nil
}

// NewPublicKey parses an X448 public key from its 56-byte encoding.
func NewPublicKey(publicKeyBytes []byte) (*PublicKey, error) {
	if len(publicKeyBytes) != KeySize {
		return nil, fmt.Errorf("X448 public key must be %d bytes, got %d", KeySize, len(publicKeyBytes))
	}

	k := &PublicKey{}
	copy(k.key[:], publicKeyBytes)
	return k, nil
}

// Bytes returns a copy of the private key encoding.
func (k *PrivateKey) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k.secret[:])
	return out
}

// PublicKey returns the public key corresponding to k.
func (k *PrivateKey) PublicKey() *PublicKey {
	pub := k.public
	return &pub
}

// ECDH performs X448 agreement with a peer public key.
func (k *PrivateKey) ECDH(peer *PublicKey) ([]byte, error) {
	var shared x448.Key
	if !x448.Shared(&shared, &k.secret, &peer.key) {
		return nil, ErrLowOrderPoint
	}
	return shared[:], nil
}

// Bytes returns a copy of the public key encoding.
func (k *PublicKey) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k.key[:])
	return out
}

// Equal reports whether k and x encode the same public key.
func (k *PublicKey) Equal(x *PublicKey) bool {
	if x == nil {
		return false
	}
	return subtle.ConstantTimeCompare(k.key[:], x.key[:]) == 1
}
