package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/gyeh/diabwh/internal/db"
	"github.com/gyeh/diabwh/internal/exitcode"
	"github.com/gyeh/diabwh/internal/logging"
	"github.com/gyeh/diabwh/internal/query"
)

var (
	reportQuery  string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run a catalogue aggregation against the warehouse",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportQuery, "query", "", fmt.Sprintf("Query name, one of %v (empty lists them)", query.Names()))
	f.StringVar(&reportFormat, "format", query.FormatTable, "Output format: table, csv or json")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if reportQuery == "" {
		for _, q := range query.Catalogue {
			fmt.Printf("%-14s %s\n", q.Name, q.Description)
		}
		return nil
	}
	if _, ok := query.Lookup(reportQuery); !ok {
		log.Error().Str("query", reportQuery).Strs("known", query.Names()).Msg("unknown query")
		os.Exit(exitcode.UsageError)
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

	run, err := db.LatestLoadRun(ctx, pool)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		log.Warn().Msg("warehouse has never been loaded")
	case err != nil:
		log.Warn().Err(err).Msg("could not read load_runs")
	default:
		log.Info().
			Str("run_id", run.RunID).
			Str("source", run.SourceFile).
			Int64("seed", run.Seed).
			Time("committed_at", run.CommittedAt).
			Msg("reporting on load run")
	}

	res, err := query.Run(ctx, pool, reportQuery)
	if err != nil {
		log.Error().Err(err).Msg("report failed")
		os.Exit(exitcode.DBConnError)
	}
	return query.Write(os.Stdout, res, reportFormat)
}
