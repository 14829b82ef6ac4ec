package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternlund/lockguard/internal/config"
	"github.com/ternlund/lockguard/internal/db"
	"github.com/ternlund/lockguard/internal/lock"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current lock state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "lockguard.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		st, err := lock.NewStore(database).GetState(context.Background(), database)
		if err != nil {
			return err
		}

		if !st.Locked {
			fmt.Println("State: UNLOCKED")
			return nil
		}

		fmt.Println("State: LOCKED")
		fmt.Printf("Locked by:  %s\n", st.LockedBy)
		if st.Reason != "" {
			fmt.Printf("Reason:     %s\n", st.Reason)
		}
		if st.LockedAt != nil {
			fmt.Printf("Locked at:  %s\n", st.LockedAt.Format(time.RFC3339))
		}
		if st.ExpiresAt != nil {
			remaining := time.Until(*st.ExpiresAt).Round(time.Second)
			if remaining <= 0 {
				fmt.Printf("Expires at: %s (expired; released on next access)\n", st.ExpiresAt.Format(time.RFC3339))
			} else {
				fmt.Printf("Expires at: %s (in %s)\n", st.ExpiresAt.Format(time.RFC3339), remaining)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
