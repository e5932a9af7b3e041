// Package source streams raw patient rows from CSV or Parquet files.
package source

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/gyeh/diabwh/internal/model"
)

// Reader yields SourceRows in file order. Next returns io.EOF after the last
// row. A *dwerr.InputError from Next rejects only that row; the reader
// stays usable. Any other error is fatal.
type Reader interface {
	Next() (*model.SourceRow, error)
	Close() error
}

// Open picks a reader from the file extension: .parquet, otherwise CSV.
func Open(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		r, err := OpenParquet(path)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		r, err := OpenCSV(path)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// ValidateColumns checks that the canonical column set covers every
// required column and can produce a BMI.
func ValidateColumns(present map[string]bool) error {
	for _, c := range model.SourceColumns {
		if c.Required && !present[c.Name] {
			return fmt.Errorf("missing required column: %s", c.Name)
		}
	}
	if !present["bmi"] && !(present["height"] && present["weight"]) {
		return fmt.Errorf("missing column: bmi (or both height and weight)")
	}
	return nil
}

// numericColumns are the canonical columns stored through setField.
var numericColumns = []string{"age", "height", "weight", "bmi", "fasting_glucose", "hba1c", "diabetes_diagnosis"}

// setField stores a parsed value on row under its canonical column. A nil
// value leaves the field missing.
func setField(row *model.SourceRow, name string, v *float64) error {
	if v == nil {
		return nil
	}
	switch name {
	case "age":
		row.Age = v
	case "height":
		row.Height = v
	case "weight":
		row.Weight = v
	case "bmi":
		row.BMI = v
	case "fasting_glucose":
		row.FastingGlucose = v
	case "hba1c":
		row.HbA1c = v
	case "diabetes_diagnosis":
		if *v != math.Trunc(*v) || math.Abs(*v) > math.MaxInt32 {
			return fmt.Errorf("not an integer: %v", *v)
		}
		d := int32(*v)
		row.DiabetesDiagnosis = &d
	default:
		return fmt.Errorf("unknown column %s", name)
	}
	return nil
}
