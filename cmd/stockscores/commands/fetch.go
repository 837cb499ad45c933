package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/fetch"
	"github.com/mkuhn/stockscores/backend/internal/stock"
)

var (
	fetchTicker      string
	fetchNoSkip      bool
	fetchClear       bool
	fetchConcurrency int
)

// fetchCmd runs fetch jobs against one or all providers
var fetchCmd = &cobra.Command{
	Use:   "fetch [provider|all]",
	Short: "Fetch stock data from external providers",
	Long: `Runs a fetch job against the given data provider, or against every
registered provider in sequence.

Providers:
  morningstar, marketscreener, msci, refinitiv, spglobal,
  sustainalytics, csrhub

Examples:
  go run ./cmd/stockscores fetch morningstar
  go run ./cmd/stockscores fetch msci --ticker AAPL --no-skip
  go run ./cmd/stockscores fetch all --clear`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchTicker, "ticker", "", "fetch a single stock")
	fetchCmd.Flags().BoolVar(&fetchNoSkip, "no-skip", false, "ignore the provider TTL")
	fetchCmd.Flags().BoolVar(&fetchClear, "clear", false, "wipe existing provider attributes before fetching")
	fetchCmd.Flags().IntVar(&fetchConcurrency, "concurrency", 0, "worker count (0 = provider default)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	opts := fetch.Options{
		Ticker:      fetchTicker,
		NoSkip:      fetchNoSkip,
		Clear:       fetchClear,
		Concurrency: fetchConcurrency,
	}

	if args[0] == "all" {
		if fetchTicker != "" {
			return fmt.Errorf("--ticker requires a single provider")
		}
		for _, d := range stock.Providers() {
			if err := fetchOne(cmd.Context(), a, d.Provider, opts); err != nil {
				return err
			}
		}
		return nil
	}

	return fetchOne(cmd.Context(), a, stock.Provider(args[0]), opts)
}

func fetchOne(ctx context.Context, a *app, provider stock.Provider, opts fetch.Options) error {
	result, err := a.orchestrator.FetchFromProvider(ctx, provider, opts)
	if err != nil {
		var aborted *contracts.AbortedError
		if errors.As(err, &aborted) && result != nil {
			// Partial progress is still progress; report and move on
			printResult(result)
			fmt.Printf("  aborted: %v\n", err)
			return nil
		}
		return fmt.Errorf("fetch %s: %w", provider, err)
	}

	printResult(result)
	return nil
}

func printResult(result *fetch.Result) {
	fmt.Printf("%s: %d successful, %d failed, %d skipped\n",
		result.Provider, len(result.Successful), len(result.Failed), len(result.Skipped))
}
