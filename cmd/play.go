package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediathek/internal/log"
	"mediathek/internal/player"
	"mediathek/internal/ui"
)

var playCmd = &cobra.Command{
	Use:   "play <page-url>",
	Short: "Resolve a video page and play it",
	Args:  cobra.ExactArgs(1),
	RunE:  playRun,
}

func playRun(cmd *cobra.Command, args []string) error {
	return playPage(cmd, args[0])
}

// playPage resolves against the schemes of the configured player only.
func playPage(cmd *cobra.Command, pageURL string) error {
	ctx := cmd.Context()

	p, err := player.New(cfg.Player)
	if err != nil {
		return err
	}
	if !p.Available() {
		return fmt.Errorf("%s not found in PATH", p.Name())
	}

	reg := player.NewRegistry(flagSchemes...)
	if len(flagSchemes) == 0 {
		reg = player.NewRegistry(cfg.Schemes...)
		reg.Register(p.Name(), p.Schemes())
	}

	item, err := newResolver(reg).ResolvePage(ctx, pageURL)
	if err != nil {
		return err
	}
	recordHistory(ctx, item)

	out := ui.NewRenderer(cmd.OutOrStdout())
	if flagJSON {
		err = out.JSON(item)
	} else {
		err = out.Item(item)
	}
	if err != nil {
		return err
	}

	logger := log.WithComponent("player")
	logger.Info().Str("player", p.Name()).Str("stream", item.StreamURI).Msg("starting playback")
	return p.Play(ctx, item.StreamURI, item.Title, cfg.Headers())
}
