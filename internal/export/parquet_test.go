package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/diabwh/internal/model"
)

func f64(v float64) *float64 { return &v }

func sampleWarehouse() *model.Warehouse {
	day := time.Date(2024, time.November, 10, 0, 0, 0, 0, time.UTC)
	return &model.Warehouse{
		Patients: []model.PatientDim{
			{ID: 1, PatientKey: "p1", Age: 62, HeightCm: f64(170), WeightKg: f64(95.4), AgeGroup: "56-65"},
			{ID: 2, PatientKey: "p2", Age: 24, AgeGroup: "<25"},
		},
		RiskFactors: []model.RiskFactorDim{
			{ID: 1, Sedentary: true, SmokingStatus: 1, SmokingLabel: "Former", DietScore: 0, DietLabel: "Poor", ActivityLabel: "Sedentary"},
			{ID: 2, FamilyHistory: true, SmokingStatus: 0, SmokingLabel: "Never", DietScore: 3, DietLabel: "Excellent", ActivityLabel: "Active"},
		},
		Dates: []model.DateDim{
			{ID: 1, FullDate: day, Year: 2024, Quarter: 4, Month: 11},
		},
		Facts: []model.FactRow{
			{ID: 1, PatientID: 1, RiskFactorID: 1, DateID: 1, FastingGlucose: 1.4, HbA1c: 7.2, BMI: 33, BMICategory: "Obese", Diabetic: true},
			{ID: 2, PatientID: 2, RiskFactorID: 2, DateID: 1, FastingGlucose: 0.9, HbA1c: 5.1, BMI: 21, BMICategory: "Normal"},
		},
	}
}

func sampleSummary(wh *model.Warehouse) *model.LoadSummary {
	return &model.LoadSummary{
		RunID:        "8d1f6c9e-0a7b-4c3e-9f5d-2b6a1e4c7d90",
		FilePath:     "patients.csv",
		FileSHA256:   strings.Repeat("a", 64),
		Seed:         42,
		RowsRead:     3,
		RowsRejected: 1,
		Patients:     int64(len(wh.Patients)),
		RiskFactors:  int64(len(wh.RiskFactors)),
		Dates:        int64(len(wh.Dates)),
		Facts:        int64(len(wh.Facts)),
		Digest:       "digest",
	}
}

func TestParquetStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "warehouse")
	wh := sampleWarehouse()
	store := NewParquetStore(dir, zerolog.Nop())

	if err := store.Commit(context.Background(), wh, sampleSummary(wh)); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	patients, err := ReadTable[model.PatientDim](dir, model.TableDimPatient)
	if err != nil {
		t.Fatal(err)
	}
	if len(patients) != 2 || patients[0].PatientKey != "p1" || *patients[0].WeightKg != 95.4 || patients[1].HeightCm != nil {
		t.Errorf("patients = %+v", patients)
	}

	dates, err := ReadTable[model.DateDim](dir, model.TableDimDate)
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 1 || !dates[0].FullDate.Equal(wh.Dates[0].FullDate) || dates[0].Quarter != 4 {
		t.Errorf("dates = %+v", dates)
	}

	facts, err := ReadTable[model.FactRow](dir, model.TableFact)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 2 {
		t.Fatalf("facts = %d, want 2", len(facts))
	}
	for i := range facts {
		if facts[i] != wh.Facts[i] {
			t.Errorf("fact %d = %+v, want %+v", i, facts[i], wh.Facts[i])
		}
	}

	risk, err := ReadTable[model.RiskFactorDim](dir, model.TableDimRiskFactors)
	if err != nil {
		t.Fatal(err)
	}
	for i := range risk {
		if risk[i] != wh.RiskFactors[i] {
			t.Errorf("risk factor %d = %+v, want %+v", i, risk[i], wh.RiskFactors[i])
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatal(err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Seed != 42 || m.Facts != 2 || m.RowsRejects != 1 {
		t.Errorf("manifest = %+v", m)
	}
}

func TestParquetStore_ReplacesPreviousExport(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "warehouse")
	store := NewParquetStore(dir, zerolog.Nop())

	wh := sampleWarehouse()
	if err := store.Commit(context.Background(), wh, sampleSummary(wh)); err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	small := sampleWarehouse()
	small.Facts = small.Facts[:1]
	if err := store.Commit(context.Background(), small, sampleSummary(small)); err != nil {
		t.Fatalf("second Commit: %v", err)
	}

	facts, err := ReadTable[model.FactRow](dir, model.TableFact)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 {
		t.Errorf("facts = %d, want 1 after replace", len(facts))
	}
	if _, err := os.Stat(filepath.Join(dir, "stale.txt")); !os.IsNotExist(err) {
		t.Errorf("previous export contents survived the swap")
	}
	assertNoStagingDirs(t, root)
}

func TestParquetStore_CancelledKeepsPrevious(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "warehouse")
	store := NewParquetStore(dir, zerolog.Nop())

	wh := sampleWarehouse()
	if err := store.Commit(context.Background(), wh, sampleSummary(wh)); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	small := sampleWarehouse()
	small.Facts = nil
	if err := store.Commit(ctx, small, sampleSummary(small)); err == nil {
		t.Fatal("expected error from cancelled commit")
	}

	facts, err := ReadTable[model.FactRow](dir, model.TableFact)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 2 {
		t.Errorf("facts = %d, want previous export's 2", len(facts))
	}
	assertNoStagingDirs(t, root)
}

func assertNoStagingDirs(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Errorf("leftover staging entry %s", e.Name())
		}
	}
}
