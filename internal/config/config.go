// Package config handles TOML-based configuration loading and validation.
// The file is parsed as data only; missing keys keep their defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone lookups work without a system zoneinfo

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"mediathek/internal/media"
	"mediathek/internal/metadata"
	"mediathek/internal/player"
	"mediathek/internal/rank"
)

// Config holds all application configuration.
type Config struct {
	BaseURI        string   `toml:"base_uri"`
	UserAgent      string   `toml:"user_agent"`
	AcceptLanguage string   `toml:"accept_language"`
	Player         string   `toml:"player"`
	Schemes        []string `toml:"schemes"`
	OnMissingDate  string   `toml:"on_missing_date"`
	Timezone       string   `toml:"timezone"`
	History        bool     `toml:"history"`
	Debug          bool     `toml:"debug"`
	LogLevel       string   `toml:"log_level"`

	StateMarker      string `toml:"state_marker"`
	CollectionSuffix string `toml:"collection_suffix"`

	Priorities Priorities `toml:"priorities"`
}

// Priorities overrides the per-layout format preference tables. Keys are
// format names; an empty table keeps the built-in default.
type Priorities struct {
	Embedded map[string]int `toml:"embedded"`
	Legacy   map[string]int `toml:"legacy"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BaseURI:        "https://www.ardmediathek.de",
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64; rv:64.0) Gecko/20100101 Firefox/64.0",
		AcceptLanguage: "de-de,de;q=0.8,en-us;q=0.5,en;q=0.3",
		Player:         "mpv",
		OnMissingDate:  string(metadata.LeaveUnset),
		Timezone:       "Europe/Berlin",
		History:        true,
		Debug:          false,
		LogLevel:       "warn",
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mediathek"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mediathek"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parsing config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURI)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("base_uri must be an absolute https URL, got %q", c.BaseURI)
	}

	if _, err := player.New(c.Player); err != nil {
		return err
	}

	if _, err := metadata.ParsePolicy(c.OnMissingDate); err != nil {
		return err
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	for _, s := range c.Schemes {
		if strings.TrimSpace(s) == "" || strings.Contains(s, ":") {
			return fmt.Errorf("invalid scheme %q (use bare names like \"https\")", s)
		}
	}

	if _, err := priorities(c.Priorities.Embedded); err != nil {
		return fmt.Errorf("priorities.embedded: %w", err)
	}
	if _, err := priorities(c.Priorities.Legacy); err != nil {
		return fmt.Errorf("priorities.legacy: %w", err)
	}

	return nil
}

// MissingDatePolicy returns the validated date policy.
func (c *Config) MissingDatePolicy() metadata.MissingDatePolicy {
	p, err := metadata.ParsePolicy(c.OnMissingDate)
	if err != nil {
		return metadata.LeaveUnset
	}
	return p
}

// Location returns the configured time zone, or UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Headers returns the default request headers.
func (c *Config) Headers() map[string]string {
	h := make(map[string]string, 2)
	if c.UserAgent != "" {
		h["User-Agent"] = c.UserAgent
	}
	if c.AcceptLanguage != "" {
		h["Accept-Language"] = c.AcceptLanguage
	}
	return h
}

// EmbeddedPriorities returns the override table, or nil for the default.
func (c *Config) EmbeddedPriorities() rank.Priorities {
	p, _ := priorities(c.Priorities.Embedded)
	return p
}

// LegacyPriorities returns the override table, or nil for the default.
func (c *Config) LegacyPriorities() rank.Priorities {
	p, _ := priorities(c.Priorities.Legacy)
	return p
}

func priorities(table map[string]int) (rank.Priorities, error) {
	if len(table) == 0 {
		return nil, nil
	}
	p := make(rank.Priorities, len(table))
	for name, prio := range table {
		f, err := media.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		p[f] = prio
	}
	return p, nil
}
