package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := GetRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootShowsHelpWithoutArgs(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "steady")
	assert.Contains(t, out, "align")
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "steady version")
}

func TestConfigPathsCommand(t *testing.T) {
	out, err := execute(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, out, ".")
	assert.Contains(t, out, filepath.Join("/etc", "steady"))
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steady.yaml")
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	// refuses to overwrite
	_, err = execute(t, "config", "init", path)
	assert.Error(t, err)
}

func TestAlignRequiresArgs(t *testing.T) {
	_, err := execute(t, "align")
	assert.Error(t, err)
}

func TestAlignFailsWithoutModels(t *testing.T) {
	t.Setenv("STEADY_MODELS_DIR", t.TempDir())
	_, err := execute(t, "align", "missing.jpg", "--kind", "face")
	assert.Error(t, err)
}
