package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/diabwh/internal/exitcode"
	"github.com/gyeh/diabwh/internal/ingest"
	"github.com/gyeh/diabwh/internal/logging"
)

const planMaxRejects = 10

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run the full build and print stats (no writes)",
	RunE:  runPlan,
}

func init() {
	addBuildFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	loadConfig(cmd)
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	loader, err := ingest.NewLoader(&cfg, ingest.DiscardStore{}, log)
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.ConfigError)
	}

	summary, err := loader.Run(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("dry run failed")
		os.Exit(exitCodeFor(err))
	}

	fmt.Println("=== dwload plan ===")
	fmt.Printf("File:          %s\n", summary.FilePath)
	fmt.Printf("SHA-256:       %s\n", summary.FileSHA256)
	fmt.Printf("Seed:          %d\n", summary.Seed)
	fmt.Printf("Window:        %s + %d years (%s)\n",
		cfg.Window.Start.Format("2006-01-02"), cfg.Window.Years, cfg.Window.Distribution)
	fmt.Printf("Rows read:     %d\n", summary.RowsRead)
	fmt.Printf("Rows accepted: %d\n", summary.RowsAccepted)
	fmt.Printf("Rows rejected: %d\n", summary.RowsRejected)
	fmt.Println()
	fmt.Println("Tables:")
	fmt.Printf("  %-22s %d\n", "dim_patient", summary.Patients)
	fmt.Printf("  %-22s %d\n", "dim_risk_factors", summary.RiskFactors)
	fmt.Printf("  %-22s %d\n", "dim_date", summary.Dates)
	fmt.Printf("  %-22s %d\n", "fact_patient_measures", summary.Facts)
	fmt.Printf("\nDigest: %s\n", summary.Digest)

	if len(summary.Rejected) > 0 {
		fmt.Println("\nRejected rows:")
		for i, r := range summary.Rejected {
			if i == planMaxRejects {
				fmt.Printf("  ... and %d more\n", len(summary.Rejected)-planMaxRejects)
				break
			}
			fmt.Printf("  %s\n", r.Reason)
		}
	}
	fmt.Println("Validation: OK")

	return nil
}
