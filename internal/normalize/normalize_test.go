package normalize

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
)

func f64(v float64) *float64 { return &v }
func i32(v int32) *int32     { return &v }
func str(s string) *string   { return &s }

func validRow() *model.SourceRow {
	return &model.SourceRow{
		Row:               4,
		PatientID:         str("  P-001 "),
		Age:               f64(62),
		BMI:               f64(33),
		FastingGlucose:    f64(140),
		HbA1c:             f64(7.2),
		DiabetesDiagnosis: i32(1),
	}
}

func TestToPatientRecord_Valid(t *testing.T) {
	rec, err := ToPatientRecord(validRow(), 1)
	if err != nil {
		t.Fatalf("ToPatientRecord: %v", err)
	}
	if rec.PatientKey != "P-001" {
		t.Errorf("PatientKey = %q", rec.PatientKey)
	}
	if rec.Age != 62 || rec.BMI != 33 || rec.FastingGlucose != 140 || rec.HbA1c != 7.2 || !rec.Diabetic {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.SourceRow != 4 {
		t.Errorf("SourceRow = %d", rec.SourceRow)
	}
}

func TestToPatientRecord_RowNumberKey(t *testing.T) {
	row := validRow()
	row.PatientID = nil
	rec, err := ToPatientRecord(row, 1)
	if err != nil {
		t.Fatalf("ToPatientRecord: %v", err)
	}
	if rec.PatientKey != "4" {
		t.Errorf("PatientKey = %q, want row number", rec.PatientKey)
	}
}

func TestToPatientRecord_BMIScaleAndDerivation(t *testing.T) {
	t.Run("kg_per_cm2", func(t *testing.T) {
		row := validRow()
		row.BMI = f64(0.003)
		rec, err := ToPatientRecord(row, 10000)
		if err != nil {
			t.Fatalf("ToPatientRecord: %v", err)
		}
		if rec.BMI != 30 {
			t.Errorf("scaled BMI = %v, want exactly 30", rec.BMI)
		}
	})

	t.Run("derived_from_height_weight", func(t *testing.T) {
		row := validRow()
		row.BMI = nil
		row.Height = f64(180)
		row.Weight = f64(81)
		rec, err := ToPatientRecord(row, 1)
		if err != nil {
			t.Fatalf("ToPatientRecord: %v", err)
		}
		if math.Abs(rec.BMI-25) > 1e-9 {
			t.Errorf("derived BMI = %v, want 25", rec.BMI)
		}
		if rec.HeightCm == nil || *rec.HeightCm != 180 {
			t.Errorf("HeightCm = %v", rec.HeightCm)
		}
	})
}

func TestToPatientRecord_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		mutate func(*model.SourceRow)
	}{
		{"missing_age", "age", func(r *model.SourceRow) { r.Age = nil }},
		{"nan_age", "age", func(r *model.SourceRow) { r.Age = f64(math.NaN()) }},
		{"negative_age", "age", func(r *model.SourceRow) { r.Age = f64(-3) }},
		{"missing_glucose", "fasting_glucose", func(r *model.SourceRow) { r.FastingGlucose = nil }},
		{"inf_hba1c", "hba1c", func(r *model.SourceRow) { r.HbA1c = f64(math.Inf(1)) }},
		{"missing_diagnosis", "diabetes_diagnosis", func(r *model.SourceRow) { r.DiabetesDiagnosis = nil }},
		{"bad_diagnosis", "diabetes_diagnosis", func(r *model.SourceRow) { r.DiabetesDiagnosis = i32(2) }},
		{"nan_bmi", "bmi", func(r *model.SourceRow) { r.BMI = f64(math.NaN()) }},
		{"negative_bmi", "bmi", func(r *model.SourceRow) { r.BMI = f64(-20) }},
		{"no_bmi_source", "bmi", func(r *model.SourceRow) { r.BMI = nil; r.Height = f64(170) }},
		{"zero_height", "height", func(r *model.SourceRow) { r.Height = f64(0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)
			_, err := ToPatientRecord(row, 1)
			var ie *dwerr.InputError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InputError, got %v", err)
			}
			if ie.Field != tt.field || ie.Row != 4 {
				t.Errorf("InputError field=%q row=%d, want field=%q row=4", ie.Field, ie.Row, tt.field)
			}
		})
	}
}

func TestRecordSeed(t *testing.T) {
	a := RecordSeed(42, "p1", 0)
	if a != RecordSeed(42, "p1", 0) {
		t.Fatal("seed not stable")
	}
	distinct := map[uint64]string{a: "base"}
	for name, s := range map[string]uint64{
		"other_global":     RecordSeed(43, "p1", 0),
		"other_key":        RecordSeed(42, "p2", 0),
		"other_occurrence": RecordSeed(42, "p1", 1),
	} {
		if prev, ok := distinct[s]; ok {
			t.Errorf("%s collides with %s", name, prev)
		}
		distinct[s] = name
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Fasting Glucose":      "fasting_glucose",
		" fasting-glucose ":    "fasting_glucose",
		"\ufeffage":          "age",
		"HbA1c":                "hba1c",
		"type_diabete":         "type_diabete",
		"Diabetes (diagnosis)": "diabetes_diagnosis",
	}
	for in, want := range tests {
		if got := NormalizeHeader(in); got != want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2023-01-01", "01/01/2023", "Jan 1, 2023", "2023-01-01T13:45:00Z"} {
		d := ParseDate(s)
		if d == nil {
			t.Fatalf("ParseDate(%q) = nil", s)
		}
		if d.Year() != 2023 || d.Month() != 1 || d.Day() != 1 || d.Hour() != 0 {
			t.Errorf("ParseDate(%q) = %s", s, d)
		}
	}
	if ParseDate("not a date") != nil {
		t.Error("expected nil for garbage")
	}
}

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FileHash(path)
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("FileHash = %s", got)
	}
}
