package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/diabwh/internal/db"
	"github.com/gyeh/diabwh/internal/exitcode"
	"github.com/gyeh/diabwh/internal/logging"
)

var listMigrations bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&listMigrations, "list", false, "Only list the embedded migrations")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if listMigrations {
		names, err := db.Migrations()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or DWLOAD_DB_URL is required")
		os.Exit(exitcode.ConfigError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.DBConnError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}
