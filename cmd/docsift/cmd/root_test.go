package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	// Given
	root := NewRootCmd()

	// When / Then: every documented subcommand resolves
	for _, name := range []string{"search", "ask", "documents", "config", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, "subcommand %s", name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestConfigInitCmd_WritesDefaultFile(t *testing.T) {
	// Given: a temp home so nothing touches the real one
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "docsift.yaml")

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"config", "init", path})

	// When
	err := root.Execute()

	// Then: a config file exists and re-running without --force refuses
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	again := NewRootCmd()
	again.SetOut(&bytes.Buffer{})
	again.SetErr(&bytes.Buffer{})
	again.SetArgs([]string{"config", "init", path})
	assert.Error(t, again.Execute())
}

func TestConfigShowCmd_PrintsEffectiveConfig(t *testing.T) {
	// Given: an env override on top of defaults
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DOCSIFT_BACKEND", "embedded")

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"config", "show"})

	// When
	err := root.Execute()

	// Then
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "kind: embedded")
	assert.Contains(t, output, "rrf_constant: 60")
}
