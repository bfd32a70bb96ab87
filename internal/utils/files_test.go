package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/xdrscope-cli/internal/utils"
)

func TestSafeWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, utils.SafeWriteFile(path, []byte("one")))
	require.NoError(t, utils.SafeWriteFile(path, []byte("two")))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := utils.ExpandHome("~/runs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "runs"), got)

	got, err = utils.ExpandHome("/var/tmp/runs")
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp/runs", got)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "dur.-ms", utils.Slug("Dur. (ms)"))
	assert.Equal(t, "handset-manufacturer", utils.Slug("  Handset Manufacturer "))
	assert.Equal(t, "xdr_sessions", utils.Slug("xDR_sessions"))
}
