package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediathek/internal/metadata"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagConfig, flagSchemes, flagPlayer, flagMissingDate = "", nil, "", ""
		flagJSON, flagDebug, flagNoHistory = false, false, false
		cfg = nil
	})
}

func TestVersion(t *testing.T) {
	resetFlags(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "mediathek dev\n", out.String())
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("player = \"vlc\"\nhistory = true\n"), 0644))

	flagConfig = path
	flagPlayer = "celluloid"
	flagMissingDate = "now"
	flagNoHistory = true

	require.NoError(t, loadConfig(rootCmd, nil))
	assert.Equal(t, "celluloid", cfg.Player)
	assert.Equal(t, metadata.UseNow, cfg.MissingDatePolicy())
	assert.False(t, cfg.History)
}

func TestLoadConfigRejectsInvalidOverride(t *testing.T) {
	resetFlags(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	flagMissingDate = "yesterday"
	assert.Error(t, loadConfig(rootCmd, nil))
}

func TestSchemeSourceFromFlag(t *testing.T) {
	resetFlags(t)
	flagSchemes = []string{"HTTPS", "rtmp"}

	assert.Equal(t, []string{"https", "rtmp"}, schemeSource().Schemes())
}

func runPlayers(t *testing.T, path string) string {
	t.Helper()
	resetFlags(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PATH", path)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"players"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestPlayersListsInstalled(t *testing.T) {
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "vlc"), []byte("#!/bin/sh\nexit 0\n"), 0755))

	out := runPlayers(t, bin)
	assert.Contains(t, out, "players: vlc\n")
	assert.Contains(t, out, "mmst")
}

func TestPlayersNoneInstalled(t *testing.T) {
	out := runPlayers(t, t.TempDir())
	assert.Contains(t, out, "No players installed.\n")
	assert.NotContains(t, out, "mmst")
}
