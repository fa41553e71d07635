package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"mediathek/internal/log"
	"mediathek/internal/player"
	"mediathek/internal/resolve"
	"mediathek/internal/ui"
)

var nowFunc = time.Now

var resolveCmd = &cobra.Command{
	Use:   "resolve <page-url>",
	Short: "Print the best playable stream of a video page",
	Args:  cobra.ExactArgs(1),
	RunE:  resolveRun,
}

func resolveRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	r := newResolver(schemeSource())
	item, err := r.ResolvePage(ctx, args[0])
	if err != nil {
		return err
	}
	recordHistory(ctx, item)

	out := ui.NewRenderer(cmd.OutOrStdout())
	if flagJSON {
		return out.JSON(item)
	}
	return out.Item(item)
}

// schemeSource returns the explicit --schemes set if given. Otherwise the
// configured static schemes are combined with those of every installed player.
func schemeSource() resolve.SchemeSource {
	if len(flagSchemes) > 0 {
		return player.NewRegistry(flagSchemes...)
	}
	return discoverPlayers()
}

// discoverPlayers registers every installed player on top of the configured
// static schemes.
func discoverPlayers() *player.Registry {
	reg := player.NewRegistry(cfg.Schemes...)
	var players []player.Player
	for _, name := range player.Names() {
		if p, err := player.New(name); err == nil {
			players = append(players, p)
		}
	}
	reg.Discover(players...)

	logger := log.WithComponent("player")
	logger.Debug().Strs("players", reg.Players()).Strs("schemes", reg.Schemes()).Msg("players discovered")
	return reg
}
