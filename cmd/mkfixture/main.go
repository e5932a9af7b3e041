// mkfixture writes a synthetic raw patient file for local runs and tests.
// Rows are drawn from a seeded faker, so the same flags always produce the
// same file.
// Usage: go run ./cmd/mkfixture --out testdata/patients.parquet --rows 5000 --seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	goparquet "github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/gyeh/diabwh/internal/model"
)

// options control the shape of the generated population.
type options struct {
	rows       int
	repeatRate float64 // share of rows that re-measure an earlier patient
	dirtyRate  float64 // share of rows with a missing or broken clinical cell
	french     bool    // original dataset layout: French headers, BMI in kg/cm²
}

func main() {
	out := flag.String("out", "testdata/patients.csv", "output file (.csv or .parquet)")
	rows := flag.Int("rows", 1000, "rows to generate")
	seed := flag.Uint64("seed", 1, "faker seed")
	repeat := flag.Float64("repeat", 0.2, "share of rows that repeat an earlier patient")
	dirty := flag.Float64("dirty", 0.0, "share of rows with a missing clinical value")
	french := flag.Bool("french", false, "write the original French layout (csv only)")
	flag.Parse()

	opts := options{rows: *rows, repeatRate: *repeat, dirtyRate: *dirty, french: *french}
	data := generate(gofakeit.New(*seed), opts)

	var err error
	switch strings.ToLower(filepath.Ext(*out)) {
	case ".parquet":
		err = writeParquet(*out, data)
	default:
		err = writeCSV(*out, data, opts.french)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d rows to %s\n", len(data), *out)
}

// generate draws a population in which diabetes, glucose and HbA1c rise
// with age and BMI.
func generate(f *gofakeit.Faker, opts options) []model.SourceRow {
	rows := make([]model.SourceRow, 0, opts.rows)
	var ids []string

	for i := range opts.rows {
		var id string
		if len(ids) > 0 && f.Float64Range(0, 1) < opts.repeatRate {
			id = ids[f.Number(0, len(ids)-1)]
		} else {
			id = f.UUID()
			ids = append(ids, id)
		}

		age := float64(f.Number(18, 85))
		height := round1(f.Float64Range(150, 195))
		bmi := f.Float64Range(17, 42)
		weight := round1(bmi * (height / 100) * (height / 100))

		risk := 0.05 + 0.35*clamp01((bmi-25)/15) + 0.25*clamp01((age-40)/40)
		diabetic := f.Float64Range(0, 1) < risk

		glucose := f.Float64Range(0.75, 1.05)
		hba1c := f.Float64Range(4.6, 5.9)
		if diabetic {
			glucose = f.Float64Range(1.26, 2.6)
			hba1c = f.Float64Range(6.5, 11.5)
		}
		diag := int32(0)
		if diabetic {
			diag = 1
		}

		row := model.SourceRow{
			Row:               int64(i + 1),
			PatientID:         &id,
			Age:               &age,
			Height:            &height,
			Weight:            &weight,
			FastingGlucose:    ptr(round2(glucose)),
			HbA1c:             ptr(round1(hba1c)),
			DiabetesDiagnosis: &diag,
		}
		if f.Bool() {
			row.BMI = ptr(round1(bmi))
		}

		if f.Float64Range(0, 1) < opts.dirtyRate {
			switch f.Number(0, 2) {
			case 0:
				row.FastingGlucose = nil
			case 1:
				row.Age = ptr(-age)
			default:
				row.HbA1c = ptr(math.NaN())
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func writeParquet(path string, rows []model.SourceRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := goparquet.NewGenericWriter[model.SourceRow](file,
		goparquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		goparquet.CreatedBy("mkfixture", "1.0", ""),
	)
	if _, err := w.Write(rows); err != nil {
		file.Close()
		return err
	}
	if err := w.Close(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeCSV(path string, rows []model.SourceRow, french bool) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)

	header := []string{"patient_id", "age", "height", "weight", "bmi", "fasting_glucose", "hba1c", "diabetes_diagnosis"}
	if french {
		header = []string{"id", "age", "taille", "poids", "bmi", "gaj", "hba1c", "type_diabete"}
	}
	w.Write(header)

	for _, r := range rows {
		bmi := r.BMI
		if french && bmi != nil {
			bmi = ptr(*bmi / 10000)
		}
		w.Write([]string{
			*r.PatientID,
			cell(r.Age),
			cell(r.Height),
			cell(r.Weight),
			cell(bmi),
			cell(r.FastingGlucose),
			cell(r.HbA1c),
			strconv.Itoa(int(*r.DiabetesDiagnosis)),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func cell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func ptr(v float64) *float64 { return &v }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func clamp01(v float64) float64 { return math.Min(math.Max(v, 0), 1) }
