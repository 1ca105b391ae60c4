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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-derivekey/pkg/adapters/logger"
	"github.com/jeremyhahn/go-derivekey/pkg/derive"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "derivekey.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, logger.FormatText, cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, types.HashSHA256, cfg.Defaults.HashName())
	assert.Equal(t, 600000, cfg.Defaults.Iterations)
	assert.Equal(t, OutputText, cfg.Defaults.Output)
	assert.Equal(t, EncodingHex, cfg.Defaults.Encoding)

	target, err := cfg.Defaults.TargetAlgorithm()
	require.NoError(t, err)
	assert.Equal(t, derive.AESKeyAlgorithm{Name: types.AlgorithmAESGCM, Length: 256}, target)

	usages, err := cfg.Defaults.KeyUsages()
	require.NoError(t, err)
	assert.Equal(t, types.Usages(types.UsageEncrypt, types.UsageDecrypt), usages)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
metrics:
  enabled: true
  textfile_path: /tmp/derivekey.prom
defaults:
  hash: sha-512
  iterations: 1000
  target: HMAC
  length: 0
  usages: [sign, verify]
  output: json
  encoding: jwk
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel())
	assert.Equal(t, logger.FormatJSON, cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/tmp/derivekey.prom", cfg.Metrics.TextfilePath)
	assert.Equal(t, types.HashSHA512, cfg.Defaults.HashName())
	assert.Equal(t, 1000, cfg.Defaults.Iterations)
	assert.Equal(t, EncodingJWK, cfg.Defaults.Encoding)

	// Unset sections keep their defaults
	assert.Equal(t, Default().Defaults.Argon2, cfg.Defaults.Argon2)

	target, err := cfg.Defaults.TargetAlgorithm()
	require.NoError(t, err)
	assert.Equal(t, derive.HMACKeyAlgorithm{Hash: types.HashSHA512}, target)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "logging: [unterminated"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "defaults:\n  iterations: 0\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DERIVEKEY_LOG_LEVEL", "error")
	t.Setenv("DERIVEKEY_LOG_FORMAT", "json")
	t.Setenv("DERIVEKEY_METRICS_ENABLED", "true")
	t.Setenv("DERIVEKEY_METRICS_TEXTFILE", "/var/lib/node_exporter/derivekey.prom")
	t.Setenv("DERIVEKEY_HASH", "SHA-384")
	t.Setenv("DERIVEKEY_ITERATIONS", "42")
	t.Setenv("DERIVEKEY_TARGET", "AES-KW")
	t.Setenv("DERIVEKEY_LENGTH", "128")
	t.Setenv("DERIVEKEY_USAGES", "wrapKey,unwrapKey")
	t.Setenv("DERIVEKEY_OUTPUT", "json")
	t.Setenv("DERIVEKEY_ENCODING", "base64")

	path := writeConfig(t, "logging:\n  level: debug\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, logger.FormatJSON, cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/var/lib/node_exporter/derivekey.prom", cfg.Metrics.TextfilePath)
	assert.Equal(t, types.HashSHA384, cfg.Defaults.HashName())
	assert.Equal(t, 42, cfg.Defaults.Iterations)
	assert.Equal(t, 128, cfg.Defaults.Length)
	assert.Equal(t, OutputJSON, cfg.Defaults.Output)
	assert.Equal(t, EncodingBase64, cfg.Defaults.Encoding)

	usages, err := cfg.Defaults.KeyUsages()
	require.NoError(t, err)
	assert.Equal(t, types.Usages(types.UsageWrapKey, types.UsageUnwrapKey), usages)

	target, err := cfg.Defaults.TargetAlgorithm()
	require.NoError(t, err)
	assert.Equal(t, derive.AESKeyAlgorithm{Name: types.AlgorithmAESKW, Length: 128}, target)
}

func TestLoad_InvalidEnvNumbersKeepDefaults(t *testing.T) {
	t.Setenv("DERIVEKEY_ITERATIONS", "many")
	t.Setenv("DERIVEKEY_LENGTH", "long")
	t.Setenv("DERIVEKEY_METRICS_ENABLED", "perhaps")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Defaults.Iterations, cfg.Defaults.Iterations)
	assert.Equal(t, Default().Defaults.Length, cfg.Defaults.Length)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"hash", func(c *Config) { c.Defaults.Hash = "MD5" }, "invalid hash"},
		{"iterations", func(c *Config) { c.Defaults.Iterations = -1 }, "iterations must be positive"},
		{"argon2 time", func(c *Config) { c.Defaults.Argon2.Time = 0 }, "argon2 time"},
		{"argon2 threads", func(c *Config) { c.Defaults.Argon2.Threads = 0 }, "argon2 threads"},
		{"argon2 memory", func(c *Config) { c.Defaults.Argon2.Memory = 16 }, "argon2 memory"},
		{"length", func(c *Config) { c.Defaults.Length = -8 }, "length must not be negative"},
		{"target", func(c *Config) { c.Defaults.Target = "RSA-OAEP" }, "invalid target"},
		{"usages", func(c *Config) { c.Defaults.Usages = []string{"launch"} }, "invalid usages"},
		{"output", func(c *Config) { c.Defaults.Output = "yaml" }, "invalid output"},
		{"encoding", func(c *Config) { c.Defaults.Encoding = "base32" }, "invalid encoding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLogLevel_FallsBackToInfo(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel())
}
