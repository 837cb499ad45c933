package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockscores",
	Short: "Stock ratings aggregation and scoring backend",
	Long: `stockscores aggregates financial and ESG ratings for tracked stocks
from seven external data sources, normalizes them into comparable
scores and notifies subscribers about meaningful changes.

Examples:
  go run ./cmd/stockscores fetch all
  go run ./cmd/stockscores fetch msci --ticker AAPL --no-skip
  go run ./cmd/stockscores rescore
  go run ./cmd/stockscores serve`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
