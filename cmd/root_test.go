package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEphemeralBackend(t *testing.T) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"--ephemeral", "--data-dir", t.TempDir(), "--no-color", "gtins"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "No gtins.\n", out.String())

	path := filepath.Join(t.TempDir(), "export.json")
	rootCmd.SetArgs([]string{"--ephemeral", "export", "-o", path})
	require.NoError(t, rootCmd.Execute())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	rootCmd.SetArgs([]string{"--ephemeral", "--backend", "file", "gtins"})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ephemeral conflicts")
}
