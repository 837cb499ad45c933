package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkuhn/stockscores/backend/internal/stock"
	"github.com/mkuhn/stockscores/backend/internal/update"
)

// rescoreCmd recomputes derived scores for every tracked stock. Useful after
// a scoring formula change; recomputation is idempotent, so running it twice
// is harmless.
var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute derived scores for all stocks",
	RunE:  runRescore,
}

func init() {
	rootCmd.AddCommand(rescoreCmd)
}

func runRescore(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()

	// Every stock with a Morningstar identifier plus every stock without one:
	// walk the registry so no tracked stock is missed.
	seen := make(map[string]bool)
	count := 0
	for _, d := range stock.Providers() {
		stocks, err := a.store.ListForProvider(ctx, d)
		if err != nil {
			return fmt.Errorf("list stocks for %s: %w", d.Provider, err)
		}
		for _, s := range stocks {
			if seen[s.Ticker] {
				continue
			}
			seen[s.Ticker] = true

			// Force a rescore with an empty proposal, silently
			if err := a.updater.Update(ctx, s.Ticker, stock.Attributes{}, update.Options{Force: true, Silent: true}); err != nil {
				return fmt.Errorf("rescore %s: %w", s.Ticker, err)
			}
			count++
		}
	}

	fmt.Printf("Rescored %d stocks\n", count)
	return nil
}
