package source

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }
func i32Ptr(v int32) *int32     { return &v }

func readAll(t *testing.T, r Reader) ([]*model.SourceRow, []*dwerr.InputError) {
	t.Helper()
	var rows []*model.SourceRow
	var rejects []*dwerr.InputError
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, rejects
		}
		var ie *dwerr.InputError
		if errors.As(err, &ie) {
			rejects = append(rejects, ie)
			continue
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, row)
	}
}

func TestCSVReader_FrenchHeaders(t *testing.T) {
	in := "\ufeffAge,Taille,Poids,IMC,GAJ,HbA1c,Type_Diabete\n"
	in += "62,170,95.5,,1.26,7.1,1\n"
	in += "41,165,60,,NA,5.4,0\n"

	r, err := NewCSVReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("NewCSVReader: %v", err)
	}
	rows, rejects := readAll(t, r)
	if len(rejects) != 0 {
		t.Fatalf("unexpected rejects: %v", rejects)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	got := rows[0]
	if got.Row != 1 || *got.Age != 62 || *got.Height != 170 || *got.Weight != 95.5 {
		t.Errorf("row 1 = %+v", got)
	}
	if got.BMI != nil {
		t.Errorf("empty bmi cell should be nil, got %v", *got.BMI)
	}
	if got.DiabetesDiagnosis == nil || *got.DiabetesDiagnosis != 1 {
		t.Errorf("diagnosis = %v, want 1", got.DiabetesDiagnosis)
	}
	if rows[1].FastingGlucose != nil {
		t.Errorf("NA glucose should be nil")
	}
	if rows[1].Row != 2 {
		t.Errorf("row number = %d, want 2", rows[1].Row)
	}
}

func TestCSVReader_RowErrorsAreRecoverable(t *testing.T) {
	in := "patient_id,age,bmi,fasting_glucose,hba1c,diabetes_diagnosis\n" +
		"p1,abc,25,90,5.5,0\n" +
		"p2,50,31,100,6.0,0.5\n" +
		"p3,50,\"31,5\",100,6.0,1\n"

	r, err := NewCSVReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("NewCSVReader: %v", err)
	}
	rows, rejects := readAll(t, r)
	if len(rejects) != 2 {
		t.Fatalf("rejects = %d, want 2", len(rejects))
	}
	if rejects[0].Row != 1 || rejects[0].Field != "age" {
		t.Errorf("first reject = %+v", rejects[0])
	}
	if rejects[1].Row != 2 || rejects[1].Field != "diabetes_diagnosis" {
		t.Errorf("second reject = %+v", rejects[1])
	}
	if len(rows) != 1 || *rows[0].PatientID != "p3" || *rows[0].BMI != 31.5 {
		t.Errorf("decimal comma row = %+v", rows)
	}
}

func TestCSVReader_MissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no age", "bmi,fasting_glucose,hba1c,diabetes_diagnosis", "age"},
		{"no bmi source", "age,height,fasting_glucose,hba1c,diabetes_diagnosis", "bmi"},
		{"duplicate alias", "age,gaj,glucose,bmi,hba1c,outcome", "twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVReader(strings.NewReader(tt.header + "\n"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestParquetReader_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.parquet")
	want := []model.SourceRow{
		{PatientID: strPtr("a"), Age: f64Ptr(30), BMI: f64Ptr(22.5), FastingGlucose: f64Ptr(0.9), HbA1c: f64Ptr(5.1), DiabetesDiagnosis: i32Ptr(0)},
		{Age: f64Ptr(70), Height: f64Ptr(160), Weight: f64Ptr(80), FastingGlucose: f64Ptr(1.4), HbA1c: f64Ptr(8.2), DiabetesDiagnosis: i32Ptr(1)},
	}
	if err := parquet.WriteFile(path, want); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	rows, rejects := readAll(t, r)
	if len(rejects) != 0 || len(rows) != 2 {
		t.Fatalf("rows=%d rejects=%d", len(rows), len(rejects))
	}
	if rows[0].Row != 1 || rows[1].Row != 2 {
		t.Errorf("row numbers = %d,%d", rows[0].Row, rows[1].Row)
	}
	if *rows[0].PatientID != "a" || rows[1].PatientID != nil {
		t.Errorf("patient ids not preserved")
	}
	if rows[1].BMI != nil || *rows[1].Weight != 80 {
		t.Errorf("row 2 = %+v", rows[1])
	}
}

func TestCSVReader_SemicolonDelimiter(t *testing.T) {
	in := "age;taille;poids;bmi;gaj;hba1c;type_diabete\n" +
		"62;170;86,7;;1,4;7,2;1\n"

	r, err := NewCSVReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("NewCSVReader: %v", err)
	}
	rows, rejects := readAll(t, r)
	if len(rejects) != 0 || len(rows) != 1 {
		t.Fatalf("rows=%d rejects=%v", len(rows), rejects)
	}
	got := rows[0]
	if *got.Weight != 86.7 || *got.FastingGlucose != 1.4 || *got.HbA1c != 7.2 {
		t.Errorf("row = %+v", got)
	}
	if got.BMI != nil {
		t.Errorf("empty bmi cell should be nil")
	}
}

// mixedCaseRow uses header spellings and physical types a spreadsheet
// export might produce.
type mixedCaseRow struct {
	Age       int64   `parquet:"Age"`
	BMI       float64 `parquet:"BMI"`
	Glucose   float32 `parquet:"Fasting_Glucose"`
	HbA1c     float64 `parquet:"HbA1c"`
	Diagnosis int64   `parquet:"Diabetes_Diagnosis"`
}

func TestParquetReader_ResolvesHeadersLikeCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upper.parquet")
	in := []mixedCaseRow{
		{Age: 62, BMI: 33, Glucose: 140, HbA1c: 7.2, Diagnosis: 1},
		{Age: 40, BMI: 22, Glucose: 90, HbA1c: 5.0, Diagnosis: 0},
	}
	if err := parquet.WriteFile(path, in); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	rows, rejects := readAll(t, r)
	if len(rejects) != 0 || len(rows) != 2 {
		t.Fatalf("rows=%d rejects=%v", len(rows), rejects)
	}
	got := rows[0]
	if got.Age == nil || *got.Age != 62 || got.BMI == nil || *got.BMI != 33 {
		t.Fatalf("row 1 = %+v", got)
	}
	if got.FastingGlucose == nil || *got.FastingGlucose != 140 || *got.HbA1c != 7.2 {
		t.Errorf("row 1 measures = %+v", got)
	}
	if got.DiabetesDiagnosis == nil || *got.DiabetesDiagnosis != 1 {
		t.Errorf("diagnosis = %v, want 1", got.DiabetesDiagnosis)
	}
	if rows[1].DiabetesDiagnosis == nil || *rows[1].DiabetesDiagnosis != 0 || *rows[1].Age != 40 {
		t.Errorf("row 2 = %+v", rows[1])
	}
}

func TestParquetReader_MissingColumn(t *testing.T) {
	type row struct {
		Age   float64 `parquet:"age"`
		BMI   float64 `parquet:"bmi"`
		HbA1c float64 `parquet:"hba1c"`
	}
	path := filepath.Join(t.TempDir(), "short.parquet")
	if err := parquet.WriteFile(path, []row{{Age: 30, BMI: 22, HbA1c: 5}}); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := Open(path)
	if err == nil || !strings.Contains(err.Error(), "fasting_glucose") {
		t.Errorf("err = %v, want missing fasting_glucose", err)
	}
}
