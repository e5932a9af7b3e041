package model

import "time"

// Warehouse table names, schema-qualified for Postgres.
const (
	TableDimPatient     = "dim_patient"
	TableDimRiskFactors = "dim_risk_factors"
	TableDimDate        = "dim_date"
	TableFact           = "fact_patient_measures"
)

// PatientDim is one row of dim_patient (one per natural patient key).
type PatientDim struct {
	ID         int64    `parquet:"patient_id"`
	PatientKey string   `parquet:"patient_key"`
	Age        float64  `parquet:"age"`
	HeightCm   *float64 `parquet:"height_cm,optional"`
	WeightKg   *float64 `parquet:"weight_kg,optional"`
	AgeGroup   string   `parquet:"age_group"`
}

// PatientDimColumns returns the ordered column names for COPY into dw.dim_patient.
func PatientDimColumns() []string {
	return []string{"patient_id", "patient_key", "age", "height_cm", "weight_kg", "age_group"}
}

// CopyValues returns the row values in PatientDimColumns order.
func (r *PatientDim) CopyValues() []any {
	return []any{r.ID, r.PatientKey, r.Age, r.HeightCm, r.WeightKg, r.AgeGroup}
}

// RiskFactorDim is one row of dim_risk_factors (one per measurement event).
type RiskFactorDim struct {
	ID            int64  `parquet:"risk_factor_id"`
	Sedentary     bool   `parquet:"sedentary_lifestyle"`
	FamilyHistory bool   `parquet:"family_history"`
	SmokingStatus int32  `parquet:"smoking_status"`
	SmokingLabel  string `parquet:"smoking_label"`
	DietScore     int32  `parquet:"diet_score"`
	DietLabel     string `parquet:"diet_label"`
	ActivityLabel string `parquet:"activity_label"`
}

func RiskFactorDimColumns() []string {
	return []string{
		"risk_factor_id",
		"sedentary_lifestyle",
		"family_history",
		"smoking_status",
		"smoking_label",
		"diet_score",
		"diet_label",
		"activity_label",
	}
}

func (r *RiskFactorDim) CopyValues() []any {
	return []any{
		r.ID,
		r.Sedentary,
		r.FamilyHistory,
		r.SmokingStatus,
		r.SmokingLabel,
		r.DietScore,
		r.DietLabel,
		r.ActivityLabel,
	}
}

// DateDim is one row of dim_date (one per distinct calendar date).
type DateDim struct {
	ID       int64     `parquet:"date_id"`
	FullDate time.Time `parquet:"full_date"`
	Year     int32     `parquet:"year"`
	Quarter  int32     `parquet:"quarter"`
	Month    int32     `parquet:"month"`
}

func DateDimColumns() []string {
	return []string{"date_id", "full_date", "year", "quarter", "month"}
}

func (r *DateDim) CopyValues() []any {
	return []any{r.ID, r.FullDate, r.Year, r.Quarter, r.Month}
}

// FactRow is one row of fact_patient_measures. BMICategory is carried as a
// degenerate dimension so reports never re-derive it.
type FactRow struct {
	ID             int64   `parquet:"fact_id"`
	PatientID      int64   `parquet:"patient_id"`
	RiskFactorID   int64   `parquet:"risk_factor_id"`
	DateID         int64   `parquet:"date_id"`
	FastingGlucose float64 `parquet:"fasting_glucose"`
	HbA1c          float64 `parquet:"hba1c"`
	BMI            float64 `parquet:"bmi"`
	BMICategory    string  `parquet:"bmi_category"`
	Diabetic       bool    `parquet:"diabetes_diagnosis"`
}

func FactColumns() []string {
	return []string{
		"fact_id",
		"patient_id",
		"risk_factor_id",
		"date_id",
		"fasting_glucose",
		"hba1c",
		"bmi",
		"bmi_category",
		"diabetes_diagnosis",
	}
}

func (r *FactRow) CopyValues() []any {
	return []any{
		r.ID,
		r.PatientID,
		r.RiskFactorID,
		r.DateID,
		r.FastingGlucose,
		r.HbA1c,
		r.BMI,
		r.BMICategory,
		r.Diabetic,
	}
}

// Warehouse is a fully assembled star schema held in memory before commit.
type Warehouse struct {
	Patients    []PatientDim
	RiskFactors []RiskFactorDim
	Dates       []DateDim
	Facts       []FactRow
}
