package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lockguard",
	Short: "Emergency access-lock service for the course platform",
	Long: `Lockguard is the platform-wide emergency access lock: administrators
can freeze all destructive account-management operations behind a
second authentication factor, with auto-expiry and a tamper-evident
audit trail.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".lockguard.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
