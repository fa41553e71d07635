package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List installed players and the schemes they can open",
	Args:  cobra.NoArgs,
	RunE:  playersRun,
}

func playersRun(cmd *cobra.Command, args []string) error {
	reg := discoverPlayers()
	out := cmd.OutOrStdout()

	names := reg.Players()
	if len(names) == 0 {
		fmt.Fprintln(out, "No players installed.")
	} else {
		fmt.Fprintf(out, "players: %s\n", strings.Join(names, ", "))
	}

	schemes := reg.Schemes()
	if len(schemes) == 0 {
		fmt.Fprintln(out, "schemes: none")
		return nil
	}
	fmt.Fprintf(out, "schemes: %s\n", strings.Join(schemes, ", "))
	return nil
}
