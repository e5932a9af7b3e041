package normalize

import (
	"math"
	"strconv"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
)

// ToPatientRecord validates a source row and converts it into a
// PatientRecord. bmiScale multiplies a stored BMI (1 for kg/m²; 10000 when
// the source holds kg/cm²). Missing BMI is derived from height (cm) and
// weight (kg) when both are present.
func ToPatientRecord(row *model.SourceRow, bmiScale float64) (*model.PatientRecord, error) {
	reject := func(field, reason string) error {
		return &dwerr.InputError{Row: row.Row, Field: field, Reason: reason}
	}

	age, msg := requireNonNegative(row.Age)
	if msg != "" {
		return nil, reject("age", msg)
	}
	glucose, msg := requireNonNegative(row.FastingGlucose)
	if msg != "" {
		return nil, reject("fasting_glucose", msg)
	}
	hba1c, msg := requireNonNegative(row.HbA1c)
	if msg != "" {
		return nil, reject("hba1c", msg)
	}
	if row.DiabetesDiagnosis == nil {
		return nil, reject("diabetes_diagnosis", "missing")
	}
	if d := *row.DiabetesDiagnosis; d != 0 && d != 1 {
		return nil, reject("diabetes_diagnosis", "must be 0 or 1, got "+strconv.Itoa(int(d)))
	}

	height, msg := optionalPositive(row.Height)
	if msg != "" {
		return nil, reject("height", msg)
	}
	weight, msg := optionalPositive(row.Weight)
	if msg != "" {
		return nil, reject("weight", msg)
	}

	var bmi float64
	switch {
	case row.BMI != nil:
		if !finite(*row.BMI) || *row.BMI <= 0 {
			return nil, reject("bmi", "must be a positive number")
		}
		bmi = ScaleBMI(*row.BMI, bmiScale)
	case height != nil && weight != nil:
		bmi = BMIFromHeightWeight(*height, *weight)
	default:
		return nil, reject("bmi", "missing and not derivable from height and weight")
	}

	key := NormalizeKey(row.PatientID)
	if key == "" {
		key = strconv.FormatInt(row.Row, 10)
	}

	return &model.PatientRecord{
		SourceRow:      row.Row,
		PatientKey:     key,
		Age:            age,
		HeightCm:       height,
		WeightKg:       weight,
		BMI:            bmi,
		FastingGlucose: glucose,
		HbA1c:          hba1c,
		Diabetic:       *row.DiabetesDiagnosis == 1,
	}, nil
}

// BMIFromHeightWeight is weight (kg) over height (m) squared, rounded like
// ScaleBMI.
func BMIFromHeightWeight(heightCm, weightKg float64) float64 {
	m := heightCm / 100
	return roundMicro(weightKg / (m * m))
}

func requireNonNegative(v *float64) (float64, string) {
	if v == nil {
		return 0, "missing"
	}
	if !finite(*v) {
		return 0, "not a number"
	}
	if *v < 0 {
		return 0, "must not be negative"
	}
	return *v, ""
}

func optionalPositive(v *float64) (*float64, string) {
	if v == nil {
		return nil, ""
	}
	if !finite(*v) || *v <= 0 {
		return nil, "must be a positive number"
	}
	out := *v
	return &out, ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
