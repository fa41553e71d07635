package config

import (
	"os"
	"path/filepath"
	"testing"

	"mediathek/internal/media"
	"mediathek/internal/metadata"
	"mediathek/internal/rank"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Player != "mpv" {
		t.Errorf("default player = %q, want mpv", cfg.Player)
	}
	if cfg.BaseURI != "https://www.ardmediathek.de" {
		t.Errorf("default base_uri = %q", cfg.BaseURI)
	}
	if cfg.MissingDatePolicy() != metadata.LeaveUnset {
		t.Errorf("default on_missing_date = %q, want leave_unset", cfg.OnMissingDate)
	}
	if !cfg.History {
		t.Error("default history should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"invalid player", func(c *Config) { c.Player = "notepad" }, true},
		{"plain http base", func(c *Config) { c.BaseURI = "http://www.ardmediathek.de" }, true},
		{"empty base", func(c *Config) { c.BaseURI = "" }, true},
		{"invalid date policy", func(c *Config) { c.OnMissingDate = "guess" }, true},
		{"invalid timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"scheme with colon", func(c *Config) { c.Schemes = []string{"https:"} }, true},
		{"unknown format priority", func(c *Config) { c.Priorities.Legacy = map[string]int{"flv": 1} }, true},
		{"valid vlc", func(c *Config) { c.Player = "vlc" }, false},
		{"valid now policy", func(c *Config) { c.OnMissingDate = "now" }, false},
		{"valid utc", func(c *Config) { c.Timezone = "UTC" }, false},
		{"valid schemes", func(c *Config) { c.Schemes = []string{"https", "rtmp"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromTOML(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	content := `
player = "vlc"
schemes = ["https"]
on_missing_date = "now"
timezone = "UTC"
history = false
state_marker = "window.__STATE__"

[priorities.legacy]
MP4 = 0
WMV = 5
`
	dir := filepath.Join(tmpDir, "mediathek")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Player != "vlc" {
		t.Errorf("player = %q, want vlc", cfg.Player)
	}
	if len(cfg.Schemes) != 1 || cfg.Schemes[0] != "https" {
		t.Errorf("schemes = %v, want [https]", cfg.Schemes)
	}
	if cfg.MissingDatePolicy() != metadata.UseNow {
		t.Errorf("on_missing_date = %q, want now", cfg.OnMissingDate)
	}
	if cfg.History {
		t.Error("history should be false")
	}
	if cfg.StateMarker != "window.__STATE__" {
		t.Errorf("state_marker = %q", cfg.StateMarker)
	}
	if cfg.BaseURI != "https://www.ardmediathek.de" {
		t.Errorf("unset base_uri should keep default, got %q", cfg.BaseURI)
	}

	want := rank.Priorities{media.MP4: 0, media.WMV: 5}
	got := cfg.LegacyPriorities()
	if len(got) != len(want) || got[media.MP4] != 0 || got[media.WMV] != 5 {
		t.Errorf("legacy priorities = %v, want %v", got, want)
	}
	if cfg.EmbeddedPriorities() != nil {
		t.Errorf("embedded priorities = %v, want nil", cfg.EmbeddedPriorities())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("quality = \"1080\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() accepted an unknown key")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("player = \"winamp\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() accepted an unsupported player")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not error on missing file: %v", err)
	}
	if cfg.Player != "mpv" {
		t.Errorf("missing file should return defaults, got player = %q", cfg.Player)
	}
}

func TestHeadersAndLocation(t *testing.T) {
	cfg := Default()
	h := cfg.Headers()
	if h["User-Agent"] == "" || h["Accept-Language"] == "" {
		t.Errorf("Headers() = %v, want User-Agent and Accept-Language", h)
	}

	if got := cfg.Location().String(); got != "Europe/Berlin" {
		t.Errorf("Location() = %q, want Europe/Berlin", got)
	}
	cfg.Timezone = "Nowhere/Special"
	if cfg.Location().String() != "UTC" {
		t.Errorf("invalid timezone should fall back to UTC")
	}
}
