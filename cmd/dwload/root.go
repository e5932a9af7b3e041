package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/diabwh/internal/config"
	"github.com/gyeh/diabwh/internal/exitcode"
	"github.com/gyeh/diabwh/internal/logging"
)

var (
	cfg        = config.Default()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "dwload",
	Short: "Diabetes data-warehouse enrichment loader",
	Long: "Reads raw patient measurements, simulates correlated lifestyle risk factors, " +
		"assigns measurement dates and loads the result as a star schema into Postgres or Parquet.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DWLOAD_DB_URL"), "Postgres connection string (or set DWLOAD_DB_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&configPath, "config", "", "YAML file with simulation, window and seed settings")
}

// addBuildFlags registers the flags shared by load and plan.
func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to patient CSV or Parquet file (required)")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Global random seed")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel enrichment workers")
	f.Float64Var(&cfg.BMIScale, "bmi-scale", cfg.BMIScale, "Multiplier applied to the stored BMI (10000 for kg/cm²)")
	f.StringVar(&cfg.Window.Distribution, "distribution", cfg.Window.Distribution, "Date distribution: uniform or sequential")
	_ = cmd.MarkFlagRequired("file")
}

// loadConfig applies the YAML file, if any, and exits on a bad one.
func loadConfig(cmd *cobra.Command) {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if configPath == "" {
		return
	}
	if err := applyConfigFile(cmd, &cfg, configPath); err != nil {
		log.Error().Err(err).Str("config", configPath).Msg("config file rejected")
		os.Exit(exitcode.ConfigError)
	}
	log.Info().Str("config", configPath).Msg("config file applied")
}

// applyConfigFile overlays path onto c, then re-applies any flag the user
// set explicitly so the command line always wins. Values are validated
// afterwards, together with the rest of the config.
func applyConfigFile(cmd *cobra.Command, c *config.Config, path string) error {
	flags := *c
	if err := c.LoadFromFile(path); err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("seed") {
		c.Seed = flags.Seed
	}
	if f.Changed("workers") {
		c.Workers = flags.Workers
	}
	if f.Changed("bmi-scale") {
		c.BMIScale = flags.BMIScale
	}
	if f.Changed("distribution") {
		c.Window.Distribution = flags.Window.Distribution
	}
	return nil
}
