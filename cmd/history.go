package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mediathek/internal/ui"
)

var (
	flagHistoryLimit  int
	flagHistoryPick   bool
	flagHistoryRemove string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently resolved videos",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().BoolVarP(&flagHistoryPick, "pick", "p", false, "Pick an entry with fzf and play it again")
	historyCmd.Flags().StringVar(&flagHistoryRemove, "remove", "", "Remove the entry for a page URL")
}

func historyRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openHistory()
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	if flagHistoryRemove != "" {
		return store.Remove(ctx, flagHistoryRemove)
	}

	entries, err := store.List(ctx, flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	out := ui.NewRenderer(cmd.OutOrStdout())
	if flagJSON {
		return out.JSON(entries)
	}
	if !flagHistoryPick || len(entries) == 0 {
		return out.History(entries)
	}

	idx, err := ui.Pick("History", ui.HistoryLines(entries))
	if errors.Is(err, ui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	// Stream URIs expire; resolve the page again.
	return playPage(cmd, entries[idx].PageURL)
}
