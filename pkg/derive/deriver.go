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

// Package derive implements key derivation across three families: Diffie-
// Hellman agreement (ECDH, X25519, X448), password stretching (PBKDF2,
// Argon2id) and extract-and-expand (HKDF).
//
// A derivation runs through the states Validating, Deriving, Wrapping and
// then Complete or Failed. Every failure wraps exactly one of the error
// kinds in the types package, or is the context error when the context is
// done before Deriving starts.
//
// Example:
//
//	base, _ := material.ImportSecret(material.Algorithm{Name: types.AlgorithmPBKDF2},
//		[]byte("passphrase"), false, types.UsageDerive)
//	key, err := derive.DeriveKey(ctx,
//		derive.PBKDF2Params{Hash: types.HashSHA256, Salt: salt, Iterations: 600000},
//		base,
//		derive.AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 256},
//		true, types.Usages(types.UsageEncrypt, types.UsageDecrypt))
package derive

import (
	"context"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-derivekey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/metrics"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// State is a stage of a derivation.
type State int

const (
	StateValidating State = iota + 1
	StateDeriving
	StateWrapping
	StateComplete
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateDeriving:
		return "deriving"
	case StateWrapping:
		return "wrapping"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// targetBits labels metrics for DeriveBits calls.
const targetBits = "bits"

// Deriver runs derivations. It holds no per-call state and is safe for
// concurrent use.
type Deriver struct {
	logger  logger.Logger
	metrics bool
	onState func(context.Context, State)
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithLogger sets the logger. The default discards output.
func WithLogger(l logger.Logger) Option {
	return func(d *Deriver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics enables or disables Prometheus instrumentation. Enabled by
// default.
func WithMetrics(enabled bool) Option {
	return func(d *Deriver) {
		d.metrics = enabled
	}
}

// WithStateHook registers fn to be called on every state transition.
func WithStateHook(fn func(context.Context, State)) Option {
	return func(d *Deriver) {
		d.onState = fn
	}
}

// New creates a Deriver.
func New(opts ...Option) *Deriver {
	d := &Deriver{
		logger:  logger.NewNoop(),
		metrics: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDeriver = New()

// DeriveKey derives a key using a Deriver with default options.
func DeriveKey(ctx context.Context, params Params, base *material.Key, target KeyAlgorithm,
	extractable bool, usages types.KeyUsage) (*material.Key, error) {
	return defaultDeriver.DeriveKey(ctx, params, base, target, extractable, usages)
}

// DeriveBits derives raw bits using a Deriver with default options.
func DeriveBits(ctx context.Context, params Params, base *material.Key, lengthBits int) ([]byte, error) {
	return defaultDeriver.DeriveBits(ctx, params, base, lengthBits)
}

// DeriveKey derives a new key of the target algorithm from base.
//
// base must carry the derive usage and belong to the algorithm params
// selects. usages must be non-empty and permitted for the target. The
// context is only consulted before derivation starts.
func (d *Deriver) DeriveKey(ctx context.Context, params Params, base *material.Key, target KeyAlgorithm,
	extractable bool, usages types.KeyUsage) (*material.Key, error) {

	run := d.start(ctx, params, base, targetLabel(target))

	strategy, err := run.validateBase(params, base)
	if err != nil {
		return nil, run.fail(err)
	}
	builder, err := NewBuilder(target, strategy.NaturalLength(base))
	if err != nil {
		return nil, run.fail(err)
	}
	if err := builder.Validate(extractable, usages); err != nil {
		return nil, run.fail(err)
	}
	if err := run.ctx.Err(); err != nil {
		return nil, run.fail(err)
	}

	run.enter(StateDeriving, logger.Int("length", builder.Length()))
	secret, err := strategy.Derive(params, base, builder.Length())
	if err != nil {
		return nil, run.fail(err)
	}
	defer clear(secret)

	run.enter(StateWrapping)
	key, err := builder.Wrap(secret, extractable, usages)
	if err != nil {
		return nil, run.fail(err)
	}

	run.complete(logger.String("derived_key_id", key.ID()), logger.String("derived_algorithm", key.Algorithm().String()))
	return key, nil
}

// DeriveBits derives lengthBits raw bits from base. A lengthBits of 0
// selects the strategy's natural length, which only agreement strategies
// have.
func (d *Deriver) DeriveBits(ctx context.Context, params Params, base *material.Key, lengthBits int) ([]byte, error) {
	run := d.start(ctx, params, base, targetBits)

	strategy, err := run.validateBase(params, base)
	if err != nil {
		return nil, run.fail(err)
	}
	length := lengthBits
	if length == 0 {
		length = strategy.NaturalLength(base)
	}
	if length <= 0 {
		return nil, run.fail(fmt.Errorf("%w: %s requires an explicit length", types.ErrInvalidParameters, strategy.Name()))
	}
	if err := run.ctx.Err(); err != nil {
		return nil, run.fail(err)
	}

	run.enter(StateDeriving, logger.Int("length", length))
	secret, err := strategy.Derive(params, base, length)
	if err != nil {
		return nil, run.fail(err)
	}
	defer clear(secret)

	run.enter(StateWrapping)
	bits, err := Truncate(secret, length)
	if err != nil {
		return nil, run.fail(err)
	}

	run.complete()
	return bits, nil
}

// derivation tracks one call through its states.
type derivation struct {
	ctx       context.Context
	d         *Deriver
	log       logger.Logger
	algorithm string
	target    string
	started   time.Time
}

func (d *Deriver) start(ctx context.Context, params Params, base *material.Key, target string) *derivation {
	if ctx == nil {
		ctx = context.Background()
	}
	algorithm := "unknown"
	if params != nil {
		algorithm = params.Algorithm().String()
	}
	fields := []logger.Field{
		logger.String("algorithm", algorithm),
		logger.String("target", target),
	}
	if base != nil {
		fields = append(fields, logger.String("base_key_id", base.ID()))
	}

	run := &derivation{
		ctx:       ctx,
		d:         d,
		log:       d.logger.With(fields...),
		algorithm: algorithm,
		target:    target,
		started:   time.Now(),
	}
	run.enter(StateValidating)
	return run
}

// validateBase resolves the strategy and checks that base may be used with it.
func (r *derivation) validateBase(params Params, base *material.Key) (Strategy, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: derivation parameters are required", types.ErrInvalidParameters)
	}
	strategy, err := StrategyFor(params.Algorithm())
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, fmt.Errorf("%w: base key is required", types.ErrInvalidKey)
	}
	if !base.Usages().Has(types.UsageDerive) {
		return nil, fmt.Errorf("%w: base key %s does not permit derive", types.ErrInvalidKey, base.ID())
	}
	if base.Algorithm().Name != strategy.Name() {
		return nil, fmt.Errorf("%w: base key algorithm %s does not match %s",
			types.ErrInvalidKey, base.Algorithm().Name, strategy.Name())
	}
	return strategy, nil
}

func (r *derivation) enter(state State, fields ...logger.Field) {
	if r.d.metrics {
		metrics.RecordState(state.String())
	}
	if r.d.onState != nil {
		r.d.onState(r.ctx, state)
	}
	r.debug("derivation state", append(fields, logger.String("state", state.String()))...)
}

func (r *derivation) fail(err error) error {
	kind := types.ErrorKind(err)
	elapsed := time.Since(r.started)

	r.enter(StateFailed)
	if r.d.metrics {
		metrics.RecordDerivation(r.algorithm, r.target, metrics.StatusError, elapsed.Seconds())
		metrics.RecordError(r.algorithm, kind)
	}
	r.warn("derivation failed", logger.String("error_kind", kind), logger.Error(err), logger.Duration("elapsed", elapsed))
	return err
}

func (r *derivation) complete(fields ...logger.Field) {
	elapsed := time.Since(r.started)

	r.enter(StateComplete, append(fields, logger.Duration("elapsed", elapsed))...)
	if r.d.metrics {
		metrics.RecordDerivation(r.algorithm, r.target, metrics.StatusSuccess, elapsed.Seconds())
	}
}

func (r *derivation) debug(msg string, fields ...logger.Field) {
	if cl, ok := r.log.(logger.ContextLogger); ok {
		cl.DebugContext(r.ctx, msg, fields...)
		return
	}
	r.log.Debug(msg, fields...)
}

func (r *derivation) warn(msg string, fields ...logger.Field) {
	if cl, ok := r.log.(logger.ContextLogger); ok {
		cl.WarnContext(r.ctx, msg, fields...)
		return
	}
	r.log.Warn(msg, fields...)
}

func targetLabel(target KeyAlgorithm) string {
	if target == nil {
		return "unknown"
	}
	return target.AlgorithmName().String()
}
