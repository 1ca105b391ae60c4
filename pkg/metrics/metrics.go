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

// Package metrics provides Prometheus instrumentation for key derivation.
// It exposes derivation counters, latency histograms, error counters and
// state transition counters, and can write them to a node_exporter textfile
// for one-shot processes such as the CLI.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all derivation metrics
	Namespace = "derivekey"

	// Label names
	LabelAlgorithm = "algorithm"
	LabelTarget    = "target"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
	LabelState     = "state"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// DerivationsTotal tracks derivations by derivation algorithm, target
	// algorithm and status. Use RecordDerivation to increment it.
	DerivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "derivations_total",
			Help:      "Total number of key derivations by algorithm, target, and status",
		},
		[]string{LabelAlgorithm, LabelTarget, LabelStatus},
	)

	// DerivationDuration tracks derivation latency in seconds. The upper
	// buckets cover high iteration PBKDF2 and memory hard Argon2id runs.
	DerivationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "derivation_duration_seconds",
			Help:      "Duration of key derivations in seconds",
			Buckets:   []float64{.0001, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelAlgorithm},
	)

	// ErrorsTotal tracks failed derivations by algorithm and error kind.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of derivation errors by algorithm and error type",
		},
		[]string{LabelAlgorithm, LabelErrorType},
	)

	// StateTransitionsTotal counts entries into each derivation state.
	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of derivation state transitions by state",
		},
		[]string{LabelState},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordDerivation records a derivation with its duration and status.
//
// Example:
//
//	start := time.Now()
//	key, err := deriver.DeriveKey(ctx, params, base, target, false, usages)
//	status := StatusSuccess
//	if err != nil {
//	    status = StatusError
//	}
//	RecordDerivation("PBKDF2", "AES-GCM", status, time.Since(start).Seconds())
func RecordDerivation(algorithm, target, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	DerivationsTotal.WithLabelValues(algorithm, target, status).Inc()
	DerivationDuration.WithLabelValues(algorithm).Observe(duration)
}

// RecordError records a failed derivation. errorType should be one of the
// types.ErrorKind labels.
func RecordError(algorithm, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(algorithm, errorType).Inc()
}

// RecordState records entry into a derivation state.
func RecordState(state string) {
	if !enabled.Load() {
		return
	}
	StateTransitionsTotal.WithLabelValues(state).Inc()
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
