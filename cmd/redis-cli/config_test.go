package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "redis-cli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfigFile(t, `
servers:
  - 10.0.0.1:6379
  - 10.0.0.2:6379
max_connections: 16
timeout: 250ms
pool: puddle
`)

	cfg, err := loadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1:6379", "10.0.0.2:6379"}, cfg.Servers)
	assert.EqualValues(t, 16, cfg.MaxConnections)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "puddle", cfg.Pool)
	assert.Equal(t, "warn", cfg.LogLevel, "unset keys keep their default")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "max_connections: 16\nlog_level: info\n")
	t.Setenv("REDISCLI_MAX_CONNECTIONS", "4")
	t.Setenv("REDISCLI_SERVERS", "a:1,b:2")

	cfg, err := loadConfig(path, nil)
	require.NoError(t, err)

	assert.EqualValues(t, 4, cfg.MaxConnections)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Servers)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("REDISCLI_POOL", "puddle")
	t.Setenv("REDISCLI_TIMEOUT", "1s")

	flags := newRootCmd().PersistentFlags()
	require.NoError(t, flags.Parse([]string{"--pool", "channel", "--servers", "x:1"}))

	cfg, err := loadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "channel", cfg.Pool)
	assert.Equal(t, []string{"x:1"}, cfg.Servers)
	assert.Equal(t, time.Second, cfg.Timeout, "flag left unset does not override")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown pool", "pool: ring\n"},
		{"bad log level", "log_level: loud\n"},
		{"zero timeout", "timeout: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfigFile(t, tt.yaml), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestConfig_LogLevel(t *testing.T) {
	cfg := defaultConfig()
	cfg.LogLevel = "debug"

	level, err := cfg.logLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestApplyFlags_Unchanged(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int32("max-connections", 99, "")

	cfg := defaultConfig()
	require.NoError(t, applyFlags(&cfg, flags))
	assert.EqualValues(t, 8, cfg.MaxConnections, "defaults of unset flags are ignored")
}
