package model

// SourceRow mirrors one raw patient row as read from CSV or Parquet.
// Every clinical field is optional at this level; normalization decides
// what is missing.
type SourceRow struct {
	Row int64 `parquet:"-"` // 1-based position in the source file

	PatientID         *string  `parquet:"patient_id,optional"`
	Age               *float64 `parquet:"age,optional"`
	Height            *float64 `parquet:"height,optional"`
	Weight            *float64 `parquet:"weight,optional"`
	BMI               *float64 `parquet:"bmi,optional"`
	FastingGlucose    *float64 `parquet:"fasting_glucose,optional"`
	HbA1c             *float64 `parquet:"hba1c,optional"`
	DiabetesDiagnosis *int32   `parquet:"diabetes_diagnosis,optional"`
}

// SourceColumn describes one recognised input column.
type SourceColumn struct {
	Name     string   // canonical column name
	Aliases  []string // accepted alternate headers, lowercase
	Required bool
}

// SourceColumns lists the input columns in canonical order. The aliases
// cover the French headers of the original diabetes dataset.
var SourceColumns = []SourceColumn{
	{Name: "patient_id", Aliases: []string{"id", "patient"}},
	{Name: "age", Required: true},
	{Name: "height", Aliases: []string{"taille", "height_cm"}},
	{Name: "weight", Aliases: []string{"poids", "weight_kg"}},
	{Name: "bmi", Aliases: []string{"imc"}},
	{Name: "fasting_glucose", Aliases: []string{"gaj", "glucose"}, Required: true},
	{Name: "hba1c", Required: true},
	{Name: "diabetes_diagnosis", Aliases: []string{"type_diabete", "diabetes", "outcome"}, Required: true},
}

// SourceColumnByHeader resolves a header (already lowercased and trimmed)
// to its canonical column, or ok=false.
func SourceColumnByHeader(h string) (SourceColumn, bool) {
	for _, c := range SourceColumns {
		if c.Name == h {
			return c, true
		}
		for _, a := range c.Aliases {
			if a == h {
				return c, true
			}
		}
	}
	return SourceColumn{}, false
}
