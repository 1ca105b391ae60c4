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

package logger

import "context"

// NoopLogger discards everything.
type NoopLogger struct{}

// NewNoop returns a logger that discards all output.
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field) {}
func (NoopLogger) Warn(string, ...Field) {}
func (NoopLogger) Error(string, ...Field) {}
func (NoopLogger) DebugContext(context.Context, string, ...Field) {}
func (NoopLogger) InfoContext(context.Context, string, ...Field) {}
func (NoopLogger) WarnContext(context.Context, string, ...Field) {}
func (NoopLogger) ErrorContext(context.Context, string, ...Field) {}
func (n *NoopLogger) With(...Field) Logger { return n }
func (n *NoopLogger) WithError(error) Logger { return n }

var _ ContextLogger = (*NoopLogger)(nil)
