package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory-bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ExecutorStub, cfg.Executor.Kind)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Zero(t, cfg.Executor.CallTimeout)
	assert.False(t, cfg.Validation.Enabled)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, 30*24*time.Hour, cfg.Journal.MaxAge)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
executor:
  kind: process
  command: memory-bank-py
  args: ["--mcp"]
  call_timeout: 45s
  breaker:
    enabled: true
    max_failures: 3
  routes:
    - pattern: "get_*"
      command: memory-bank-analytics
validation:
  enabled: true
journal:
  enabled: true
  path: /tmp/journal.db
  max_age: 168h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ExecutorProcess, cfg.Executor.Kind)
	assert.Equal(t, "memory-bank-py", cfg.Executor.Command)
	assert.Equal(t, []string{"--mcp"}, cfg.Executor.Args)
	assert.Equal(t, 45*time.Second, cfg.Executor.CallTimeout)
	assert.True(t, cfg.Executor.Breaker.Enabled)
	assert.Equal(t, uint32(3), cfg.Executor.Breaker.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Executor.Breaker.OpenTimeout, "unset fields keep defaults")
	require.Len(t, cfg.Executor.Routes, 1)
	assert.Equal(t, "get_*", cfg.Executor.Routes[0].Pattern)
	assert.True(t, cfg.Validation.Enabled)
	assert.Equal(t, 1024*1024, cfg.Validation.MaxParamsSize)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
	assert.Equal(t, 7*24*time.Hour, cfg.Journal.MaxAge)
}

func TestLoadToleratesByteOrderMark(t *testing.T) {
	path := writeConfig(t, "\ufefflog:\n  level: warn\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, ExecutorStub, cfg.Executor.Kind)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "executor:\n  flavour: spicy\n", "flavour"},
		{"unknown kind", "executor:\n  kind: grpc\n", "unknown executor kind"},
		{"process without command", "executor:\n  kind: process\n", "executor.command is required"},
		{"negative timeout", "executor:\n  call_timeout: -1s\n", "cannot be negative"},
		{"route without command", "executor:\n  routes:\n    - pattern: get_*\n", "command is required"},
		{"negative journal age", "journal:\n  max_age: -1h\n", "journal.max_age"},
		{"journal without path", "journal:\n  enabled: true\n  path: \"\"\n", "journal.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(dir, "data", "journal.db")
	cfg.Server.Socket = filepath.Join(dir, "run", "mb.sock")

	require.NoError(t, cfg.EnsureDirectories())

	for _, sub := range []string{"data", "run"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
