package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "strata.yaml"), []byte(body), 0o644))
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 100, cfg.Solver.MaxIterations)
	assert.Equal(t, 1e-9, cfg.Solver.Tolerance)
	assert.Equal(t, 200, cfg.Kernel.MeshCells)
	assert.Equal(t, 5*time.Second, cfg.Eval.Timeout)
	assert.Equal(t, "strata.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Solver.MaxIterations)
	assert.Equal(t, filepath.Join(dir, "strata.db"), cfg.Store.Path)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
solver:
  max_iterations: 40
  tolerance: 0.000001
kernel:
  mesh_cells: 64
eval:
  timeout: 250ms
store:
  path: /var/lib/strata/docs.db
log:
  level: DEBUG
  format: json
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Solver.MaxIterations)
	assert.Equal(t, 1e-6, cfg.Solver.Tolerance)
	assert.Equal(t, 64, cfg.Kernel.MeshCells)
	assert.Equal(t, 250*time.Millisecond, cfg.Eval.Timeout)
	assert.Equal(t, "/var/lib/strata/docs.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "kernel:\n  mesh_cells: 64\n")
	t.Setenv("STRATA_KERNEL_MESH_CELLS", "32")
	t.Setenv("STRATA_EVAL_TIMEOUT", "2s")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Kernel.MeshCells)
	assert.Equal(t, 2*time.Second, cfg.Eval.Timeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero iterations", "solver:\n  max_iterations: 0\n", "solver.max_iterations"},
		{"negative cells", "kernel:\n  mesh_cells: -4\n", "kernel.mesh_cells"},
		{"zero timeout", "eval:\n  timeout: 0s\n", "eval.timeout"},
		{"bad level", "log:\n  level: chatty\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.yaml)
			_, err := Load(dir)
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "solver: [unterminated\n")
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf, false).Info("hidden")
	assert.Empty(t, buf.String())

	LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf, true).Debug("shown", "k", 1)
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "json handler expected, got %q", buf.String())
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
