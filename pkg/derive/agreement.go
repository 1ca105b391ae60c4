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
	"fmt"

	"github.com/jeremyhahn/go-derivekey/pkg/crypto/ecdh"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// agreementStrategy computes a Diffie-Hellman shared secret between the base
// private key and the peer public key in ECDHParams.
type agreementStrategy struct {
	name types.AlgorithmName
}

func (s agreementStrategy) Name() types.AlgorithmName {
	return s.name
}

func (s agreementStrategy) NaturalLength(base *material.Key) int {
	return base.Algorithm().NamedCurve.SharedSecretSize() * 8
}

func (s agreementStrategy) Derive(params Params, base *material.Key, _ int) ([]byte, error) {
	p, ok := as[ECDHParams](params)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires ECDHParams, got %T", types.ErrInvalidParameters, s.name, params)
	}
	if base.Type() != types.KeyTypePrivate {
		return nil, fmt.Errorf("%w: %s base key must be a private key, got %s",
			types.ErrInvalidKey, s.name, base.Type())
	}

	peer := p.Public
	if peer == nil {
		return nil, fmt.Errorf("%w: %s requires a peer public key", types.ErrInvalidParameters, s.name)
	}
	if peer.Type() != types.KeyTypePublic {
		return nil, fmt.Errorf("%w: peer key must be a public key, got %s", types.ErrInvalidKey, peer.Type())
	}
	if peer.Algorithm().Name != s.name {
		return nil, fmt.Errorf("%w: peer key algorithm %s does not match %s",
			types.ErrInvalidKey, peer.Algorithm().Name, s.name)
	}
	if peer.Algorithm().NamedCurve != base.Algorithm().NamedCurve {
		return nil, fmt.Errorf("%w: peer key curve %s does not match base key curve %s",
			types.ErrInvalidKey, peer.Algorithm().NamedCurve, base.Algorithm().NamedCurve)
	}

	secret, err := ecdh.DeriveSharedSecret(base.PrivateKey(), peer.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidKey, err)
	}
	return secret, nil
}
