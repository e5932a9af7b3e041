package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/gyeh/diabwh/internal/config"
)

func TestApplyConfigFile_FlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dwload.yaml")
	if err := os.WriteFile(path, []byte("workers: 0\nseed: 9\nbmi_scale: 10000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(t.TempDir(), "patients.csv")
	if err := os.WriteFile(input, []byte("age\n"), 0644); err != nil {
		t.Fatal(err)
	}

	saved := cfg
	t.Cleanup(func() { cfg = saved })
	cfg = config.Default()

	cmd := &cobra.Command{Use: "load"}
	addBuildFlags(cmd)
	if err := cmd.Flags().Set("workers", "4"); err != nil {
		t.Fatal(err)
	}

	if err := applyConfigFile(cmd, &cfg, path); err != nil {
		t.Fatalf("applyConfigFile: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want flag value 4", cfg.Workers)
	}
	if cfg.Seed != 9 || cfg.BMIScale != 10000 {
		t.Errorf("file values not applied: seed=%d bmi_scale=%v", cfg.Seed, cfg.BMIScale)
	}

	cfg.FilePath = input
	cfg.DSN = "postgres://localhost/dw"
	if err := cfg.ValidateWithDSN(); err != nil {
		t.Errorf("ValidateWithDSN: %v", err)
	}
}
