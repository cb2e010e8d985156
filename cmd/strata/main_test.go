package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/strata/pkg/document"
	"github.com/chazu/strata/pkg/engine"
	"github.com/chazu/strata/pkg/store"
)

const plateScript = `
(def s (sketch "Outline"))
(def a (line s (vec2 0 0) (vec2 30 0) :name "bottom"))
(def b (line s (vec2 30 0) (vec2 30 20)))
(def c (line s (vec2 30 20) (vec2 0 20)))
(def d (line s (vec2 0 20) (vec2 0 0)))
(coincident (pt a 2) (pt b 1))
(coincident (pt b 2) (pt c 1))
(coincident (pt c 2) (pt d 1))
(coincident (pt d 2) (pt a 1))
(horizontal a)
(extrude s 5 :name "Plate")
`

// workspace creates a config dir with a small mesh resolution and a script
// file, and returns both paths.
func workspace(t *testing.T) (configDir, script string) {
	t.Helper()
	dir := t.TempDir()
	configDir = filepath.Join(dir, "conf")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "strata.yaml"),
		[]byte("kernel:\n  mesh_cells: 32\nlog:\n  level: error\n"), 0o644))
	script = filepath.Join(dir, "plate.lisp")
	require.NoError(t, os.WriteFile(script, []byte(plateScript), 0o644))
	return configDir, script
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	flagVerbose, flagJSON = false, false
	flagSaveAs, flagRev, flagOut, flagBody = "", 0, "", ""
	flagAfter, flagDeleteGroup, flagDeleteEntity = "", "", ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config-dir", configDir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestEvalAndShow(t *testing.T) {
	conf, script := workspace(t)

	out, err := run(t, conf, "eval", script, "--save", "plate", "--json")
	require.NoError(t, err)
	var view documentView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "plate", view.Name)
	assert.Equal(t, 1, view.Rev)
	require.Len(t, view.Groups, 3)
	assert.Equal(t, "Outline", view.Groups[1].Name)
	assert.Equal(t, "ok", view.Groups[1].Status)
	assert.True(t, view.Groups[2].Solid)
	assert.Empty(t, view.Warnings)

	out, err = run(t, conf, "show", "plate")
	require.NoError(t, err)
	assert.Contains(t, out, "plate (rev 1)")
	assert.Contains(t, out, "Plate")

	out, err = run(t, conf, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "plate")
}

func TestEvalReportsScriptErrors(t *testing.T) {
	conf, _ := workspace(t)
	bad := filepath.Join(t.TempDir(), "bad.lisp")
	require.NoError(t, os.WriteFile(bad, []byte(`(group "missing")`), 0o644))

	_, err := run(t, conf, "eval", bad)
	require.ErrorIs(t, err, errEvalFailed)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestShowMissing(t *testing.T) {
	conf, _ := workspace(t)
	_, err := run(t, conf, "show", "nothing")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestReorderRejectsDependencyViolation(t *testing.T) {
	conf, script := workspace(t)
	_, err := run(t, conf, "eval", script, "--save", "plate")
	require.NoError(t, err)

	_, err = run(t, conf, "reorder", "plate", "Plate", "--after", "Reference")
	require.ErrorIs(t, err, document.ErrDependencyViolation)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = run(t, conf, "reorder", "plate", "Plate")
	require.ErrorIs(t, err, document.ErrDependencyViolation)

	_, err = run(t, conf, "reorder", "plate", "Nope")
	require.ErrorIs(t, err, document.ErrGroupNotFound)

	// Rejected moves never store a revision.
	s, err := store.Open(filepath.Join(conf, "strata.db"))
	require.NoError(t, err)
	defer s.Close()
	revs, err := s.Revisions(t.Context(), "plate")
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}

func TestDeleteStoresNewRevision(t *testing.T) {
	conf, script := workspace(t)
	_, err := run(t, conf, "eval", script, "--save", "plate")
	require.NoError(t, err)

	out, err := run(t, conf, "delete", "plate", "--entity", "bottom", "--json")
	require.NoError(t, err)
	var view documentView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 2, view.Rev)
	require.Len(t, view.Groups, 3)
	// Two coincidents and the horizontal constraint go with the line.
	assert.Equal(t, 2, view.Groups[1].Constraints)
	assert.Equal(t, 3, view.Groups[1].Entities)

	_, err = run(t, conf, "delete", "plate", "--group", "Plate")
	require.NoError(t, err)
	out, err = run(t, conf, "show", "plate", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 3, view.Rev)
	assert.Len(t, view.Groups, 2)

	_, err = run(t, conf, "delete", "plate")
	require.ErrorIs(t, err, errUsage)
}

func TestExport(t *testing.T) {
	conf, script := workspace(t)
	_, err := run(t, conf, "eval", script, "--save", "plate")
	require.NoError(t, err)

	stl := filepath.Join(t.TempDir(), "plate.stl")
	_, err = run(t, conf, "export", "plate", "--out", stl)
	require.NoError(t, err)
	info, err := os.Stat(stl)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = run(t, conf, "export", "plate", "--out", stl, "--body", "nope")
	require.ErrorIs(t, err, errUsage)
	_, err = run(t, conf, "export", "plate")
	require.ErrorIs(t, err, errUsage)
}

func TestVersion(t *testing.T) {
	conf, _ := workspace(t)
	out, err := run(t, conf, "version")
	require.NoError(t, err)
	assert.Equal(t, "strata "+version+"\n", out)
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, exitUserError, exitCode(fmt.Errorf("eval: %w", engine.ErrTimeout)))
	assert.Equal(t, exitUserError, exitCode(fmt.Errorf("reorder: %w", document.ErrDependencyViolation)))
	assert.Equal(t, exitSysError, exitCode(errors.New("disk full")))
}
