package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rentease/backend/internal/config"
	"github.com/rentease/backend/internal/database"
	"github.com/rentease/backend/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// @title RentEase Payments API
// @version 1.0
// @description Rent escrow, wallet deposits, payment webhooks and tenant-landlord messaging
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var Version = "dev"

var (
	envFile    string
	prettyLogs bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "rentease",
		Short:   "RentEase payments backend",
		Version: Version,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to the .env file")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "human readable console logs")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens the database. Every subcommand needs both.
func bootstrap(ctx context.Context) (*config.Config, *sql.DB, zerolog.Logger, error) {
	log := logger.New(prettyLogs)

	if err := config.ReadEnvFile(envFile); err != nil {
		return nil, nil, log, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, log, err
	}

	db, err := database.Open(ctx, database.LoadPoolConfig())
	if err != nil {
		return nil, nil, log, err
	}
	log.Info().Msg("Database connection established")

	return cfg, db, log, nil
}
