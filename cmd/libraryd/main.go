package main

import (
	"os"

	"github.com/biblioteca/services/library/internal/config"
	"github.com/biblioteca/services/library/internal/db"
	"github.com/biblioteca/services/library/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "libraryd",
		Short:        "University library catalog, recommendations and loans service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and gRPC health servers",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe()
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate()
			},
		},
	)

	return root
}

func runMigrate() error {
	cfg := config.Load()

	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	database, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer database.Close()

	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	log.Info("Migrations complete")
	return nil
}
