package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternlund/lockguard/internal/audit"
	"github.com/ternlund/lockguard/internal/config"
	"github.com/ternlund/lockguard/internal/db"
)

var (
	statsWindow string
	pruneBefore string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit event log",
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print event counts by type and severity over a window",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDB, err := openAuditStore()
		if err != nil {
			return err
		}
		defer closeDB()

		window, err := time.ParseDuration(statsWindow)
		if err != nil {
			return fmt.Errorf("invalid window %q: %w", statsWindow, err)
		}

		stats, err := store.StatsFor(context.Background(), window)
		if err != nil {
			return err
		}

		fmt.Printf("Audit events in the last %s: %d\n", stats.Window, stats.Total)
		if stats.Total == 0 {
			return nil
		}
		fmt.Println("\nBy type:")
		for _, typ := range []audit.EventType{audit.EventLock, audit.EventUnlock, audit.EventFailedAttempt, audit.EventUnauthorizedAccess} {
			if n := stats.ByType[typ]; n > 0 {
				fmt.Printf("  %-22s %d\n", typ, n)
			}
		}
		fmt.Println("\nBy severity:")
		for _, sev := range []audit.Severity{audit.SeverityCritical, audit.SeverityHigh, audit.SeverityMedium, audit.SeverityLow} {
			if n := stats.BySeverity[sev]; n > 0 {
				fmt.Printf("  %-22s %d\n", sev, n)
			}
		}
		return nil
	},
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit events older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDB, err := openAuditStore()
		if err != nil {
			return err
		}
		defer closeDB()

		age, err := time.ParseDuration(pruneBefore)
		if err != nil {
			return fmt.Errorf("invalid age %q: %w", pruneBefore, err)
		}

		n, err := store.DeleteBefore(context.Background(), time.Now().UTC().Add(-age))
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d audit event(s) older than %s.\n", n, pruneBefore)
		return nil
	},
}

// openAuditStore opens the configured database for read-side commands.
func openAuditStore() (*audit.Store, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "lockguard.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return audit.NewStore(database), func() { database.Close() }, nil
}

func init() {
	auditStatsCmd.Flags().StringVarP(&statsWindow, "window", "w", "24h", "aggregation window (e.g. 1h, 24h, 168h)")
	auditPruneCmd.Flags().StringVar(&pruneBefore, "older-than", "2160h", "delete events older than this age")
	auditCmd.AddCommand(auditStatsCmd)
	auditCmd.AddCommand(auditPruneCmd)
	rootCmd.AddCommand(auditCmd)
}
