package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternlund/lockguard/internal/audit"
	"github.com/ternlund/lockguard/internal/config"
	"github.com/ternlund/lockguard/internal/db"
	"github.com/ternlund/lockguard/internal/lock"
	"github.com/ternlund/lockguard/internal/logger"
	"github.com/ternlund/lockguard/internal/notify"
	"github.com/ternlund/lockguard/internal/policy"
	"github.com/ternlund/lockguard/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lockguard server",
	Long:  `Starts the access-lock service with its REST API, audit trail endpoints and live audit stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if servePort != 0 {
			cfg.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logLevel := cfg.LogLevel
		if verbose {
			logLevel = "debug"
		}
		log := logger.NewStdLogger(logLevel)

		dbPath := filepath.Join(cfg.DataDir, "lockguard.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		// Wire the control surface.
		hub := audit.NewHub()
		auditStore := audit.NewStore(database)
		auditStore.SetHub(hub)

		pol := policy.New(cfg.Admins, cfg.TrustedPrincipals)
		sender := notify.NewWebhookSender(cfg.Notify.WebhookURL, log)

		ctrl := lock.NewController(database, auditStore, pol, sender, lock.Config{
			LockDuration:  cfg.LockDuration,
			ChallengeTTL:  cfg.ChallengeTTL,
			WarningWindow: cfg.WarningWindow,
		}, log)

		srv := server.New(server.Config{Port: cfg.Port}, database, log)

		r := srv.Router()
		lock.RegisterRoutes(r, ctrl)
		audit.RegisterRoutes(r, auditStore, hub)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		log.Infow("lockguard starting", "version", Version,
			"port", cfg.Port, "database", dbPath, "admins", len(cfg.Admins))

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
