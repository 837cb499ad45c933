package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

// statusCmd reports connectivity and the provider registry
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check database and redis connectivity",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()

	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	fmt.Printf("database: ok (%s, %d/%d conns)\n",
		health.ResponseTime, health.Stats.AcquiredConns, health.Stats.MaxConns)

	if a.redis.Enabled() {
		if err := a.redis.Redis().Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		fmt.Println("redis: ok")
	} else {
		fmt.Println("redis: disabled (forensic snapshots dropped)")
	}

	fmt.Println("\nproviders:")
	for _, d := range stock.Providers() {
		kind := "individual"
		if d.Cardinality == stock.Bulk {
			kind = "bulk"
		}
		fmt.Printf("  %-15s %-10s ttl=%s fields=%d\n", d.Provider, kind, d.TTL, len(d.Fields))
	}
	return nil
}
