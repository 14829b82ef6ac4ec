package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ternlund/lockguard/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create a lockguard configuration",
	Long:  `Runs an interactive wizard that writes .lockguard.yml with the administrator allow-list, lock durations and delivery settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(".lockguard.yml"); err == nil {
			return fmt.Errorf(".lockguard.yml already exists; remove it first or edit it directly")
		}

		cfg, err := config.RunWizard()
		if err != nil {
			return err
		}

		fmt.Printf("Configured %d administrator(s). Start the service with `lockguard serve`.\n", len(cfg.Admins))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
