package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/corvidchess/corvid/controller"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsBaseUnchanged(t *testing.T) {
	base := controller.DefaultOptions()
	got, err := Load(filepath.Join(t.TempDir(), "corvid.toml"), base)
	require.NoError(t, err)
	require.Equal(t, base, got)
}

func TestLoadAppliesPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corvid.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
hash_mb = 64
move_overhead_ms = 50
perft_hash = false
`), 0o644))

	got, err := Load(path, controller.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 64, got.HashMB)
	require.Equal(t, 50*time.Millisecond, got.MoveOverhead)
	require.False(t, got.PerftHash)
	require.Equal(t, 1, got.Threads) // untouched, falls back to base
}

func TestLoadMalformedFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corvid.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid toml"), 0o644))

	base := controller.DefaultOptions()
	got, err := Load(path, base)
	require.Error(t, err)
	require.Equal(t, base, got)
}
