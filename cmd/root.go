// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediathek/internal/config"
	"mediathek/internal/extract"
	"mediathek/internal/history"
	"mediathek/internal/httputil"
	"mediathek/internal/log"
	"mediathek/internal/media"
	"mediathek/internal/metadata"
	"mediathek/internal/resolve"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig      string
	flagSchemes     []string
	flagPlayer      string
	flagMissingDate string
	flagJSON        bool
	flagDebug       bool
	flagNoHistory   bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mediathek",
	Short: "Resolve ARD Mediathek video pages to playable streams",
	Long: `mediathek reads a video item page, finds every stream it offers,
ranks them by format and quality, and picks the best one your players can open.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $XDG_CONFIG_HOME/mediathek/config.toml)")
	rootCmd.PersistentFlags().StringSliceVarP(&flagSchemes, "schemes", "s", nil, "Supported URI schemes, e.g. https,rtmp (default: from installed players)")
	rootCmd.PersistentFlags().StringVar(&flagPlayer, "player", "", "Media player: mpv | vlc | iina | celluloid")
	rootCmd.PersistentFlags().StringVar(&flagMissingDate, "missing-date", "", "Missing publish date: leave_unset | now")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output the resolved item as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not record this resolution")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagPlayer != "" {
		cfg.Player = flagPlayer
	}
	if flagMissingDate != "" {
		cfg.OnMissingDate = flagMissingDate
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagNoHistory {
		cfg.History = false
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log.Configure(log.Config{Level: level, Output: os.Stderr, Console: true})

	return nil
}

// newResolver wires the fetcher, strategies and metadata options from cfg.
func newResolver(schemes resolve.SchemeSource) *resolve.Resolver {
	fetcher := httputil.NewFetcher(nil, cfg.Headers())
	return resolve.New(fetcher, schemes, resolve.Options{
		Embedded: extract.EmbeddedOptions{
			Marker:           cfg.StateMarker,
			CollectionSuffix: cfg.CollectionSuffix,
			Priorities:       cfg.EmbeddedPriorities(),
		},
		Legacy: extract.LegacyOptions{
			BaseURI:    cfg.BaseURI,
			Priorities: cfg.LegacyPriorities(),
		},
		Metadata: metadata.Options{
			Policy:   cfg.MissingDatePolicy(),
			Location: cfg.Location(),
			BaseURI:  cfg.BaseURI,
		},
	})
}

// recordHistory stores a resolution. Failures are logged, never fatal.
func recordHistory(ctx context.Context, item media.VideoItem) {
	if !cfg.History {
		return
	}
	logger := log.WithComponent("history")

	store, err := openHistory()
	if err != nil {
		logger.Warn().Err(err).Msg("history unavailable")
		return
	}
	defer store.Close()

	if err := store.Record(ctx, history.EntryFor(item, nowFunc())); err != nil {
		logger.Warn().Err(err).Msg("recording history failed")
	}
}

func openHistory() (*history.Store, error) {
	path, err := history.DefaultPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}
