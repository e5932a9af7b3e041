package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gyeh/diabwh/internal/config"
	"github.com/gyeh/diabwh/internal/db"
	"github.com/gyeh/diabwh/internal/exitcode"
	"github.com/gyeh/diabwh/internal/export"
	"github.com/gyeh/diabwh/internal/ingest"
	"github.com/gyeh/diabwh/internal/logging"
)

var (
	migrateFirst bool
	strict       bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Enrich a patient file and commit the star schema",
	RunE:  runLoad,
}

func init() {
	addBuildFlags(loadCmd)
	f := loadCmd.Flags()
	f.StringVar(&cfg.Sink, "sink", cfg.Sink, "Where to commit: postgres or parquet")
	f.StringVar(&cfg.OutDir, "out", "", "Output directory for the parquet sink")
	f.BoolVar(&migrateFirst, "migrate", false, "Apply migrations before loading (postgres sink)")
	f.BoolVar(&strict, "strict", false, "Exit non-zero when any row was rejected")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	loadConfig(cmd)
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.ConfigError)
	}

	var store ingest.Store
	switch cfg.Sink {
	case config.SinkPostgres:
		pool, err := db.NewPool(ctx, cfg.DSN)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer pool.Close()

		if migrateFirst {
			if err := db.ApplyMigrations(ctx, pool, log); err != nil {
				log.Error().Err(err).Msg("migration failed")
				os.Exit(exitcode.DBConnError)
			}
		}
		store = db.NewPGStore(pool, log)
	case config.SinkParquet:
		store = export.NewParquetStore(cfg.OutDir, log)
	}

	loader, err := ingest.NewLoader(&cfg, store, log)
	if err != nil {
		log.Error().Err(err).Msg("loader setup failed")
		os.Exit(exitcode.ConfigError)
	}

	summary, err := loader.Run(ctx)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Str("state", loader.State().String()).Msg("load failed")
		} else {
			log.Error().Err(err).Msg("load failed")
		}
		os.Exit(exitCodeFor(err))
	}

	fmt.Printf("Load complete: %d facts, %d patients, %d dates, %d rows rejected (%.1fs)\n",
		summary.Facts, summary.Patients, summary.Dates, summary.RowsRejected, summary.DurationTotal.Seconds())
	fmt.Printf("Run %s  digest %s\n", summary.RunID, summary.Digest)

	if strict && summary.RowsRejected > 0 {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}
