package simulate

import (
	"fmt"
	"math"

	"github.com/gyeh/diabwh/internal/dwerr"
)

// SedentaryParams drive the sedentary-lifestyle Bernoulli.
type SedentaryParams struct {
	ObesityThreshold float64 `yaml:"obesity_threshold"`
	AgeThreshold     float64 `yaml:"age_threshold"`
	BaseP            float64 `yaml:"base_p"`
	BMIBonus         float64 `yaml:"bmi_bonus"`
	AgeBonus         float64 `yaml:"age_bonus"`
}

// SmokingParams hold the {never, former, current} weights per age band.
// Ages up to YoungMaxAge are young, ages from OlderMinAge are older.
type SmokingParams struct {
	YoungMaxAge float64   `yaml:"young_max_age"`
	OlderMinAge float64   `yaml:"older_min_age"`
	Young       []float64 `yaml:"young"`
	Middle      []float64 `yaml:"middle"`
	Older       []float64 `yaml:"older"`
}

// DietParams tilt the base diet distribution towards poorer categories for
// diabetic and high-BMI patients.
type DietParams struct {
	BaseWeights   []float64 `yaml:"base_weights"`
	DiabetesShift float64   `yaml:"diabetes_shift"`
	BMIShift      float64   `yaml:"bmi_shift"`
	BMIReference  float64   `yaml:"bmi_reference"`
	BMISpan       float64   `yaml:"bmi_span"`
}

// Params is the full simulation configuration.
type Params struct {
	Sedentary      SedentaryParams `yaml:"sedentary"`
	Smoking        SmokingParams   `yaml:"smoking"`
	Diet           DietParams      `yaml:"diet"`
	FamilyHistoryP float64         `yaml:"family_history_p"`
	ActiveP        float64         `yaml:"active_p"`
}

// DefaultParams returns the stock configuration.
func DefaultParams() Params {
	return Params{
		Sedentary: SedentaryParams{
			ObesityThreshold: 30,
			AgeThreshold:     50,
			BaseP:            0.30,
			BMIBonus:         0.25,
			AgeBonus:         0.15,
		},
		Smoking: SmokingParams{
			YoungMaxAge: 35,
			OlderMinAge: 55,
			Young:       []float64{0.55, 0.10, 0.35},
			Middle:      []float64{0.50, 0.25, 0.25},
			Older:       []float64{0.45, 0.40, 0.15},
		},
		Diet: DietParams{
			BaseWeights:   []float64{0.15, 0.35, 0.35, 0.15},
			DiabetesShift: 0.6,
			BMIShift:      0.6,
			BMIReference:  25,
			BMISpan:       15,
		},
		FamilyHistoryP: 0.35,
		ActiveP:        0.45,
	}
}

// Validate checks every threshold, probability and weight vector.
func (p *Params) Validate() error {
	probs := []struct {
		field string
		v     float64
	}{
		{"simulation.sedentary.base_p", p.Sedentary.BaseP},
		{"simulation.sedentary.bmi_bonus", p.Sedentary.BMIBonus},
		{"simulation.sedentary.age_bonus", p.Sedentary.AgeBonus},
		{"simulation.family_history_p", p.FamilyHistoryP},
		{"simulation.active_p", p.ActiveP},
	}
	for _, pr := range probs {
		if math.IsNaN(pr.v) || pr.v < 0 || pr.v > 1 {
			return &dwerr.ConfigError{Field: pr.field, Reason: fmt.Sprintf("must be in [0,1], got %v", pr.v)}
		}
	}
	if !(p.Sedentary.ObesityThreshold > 0) {
		return &dwerr.ConfigError{Field: "simulation.sedentary.obesity_threshold", Reason: "must be positive"}
	}
	if !(p.Sedentary.AgeThreshold > 0) {
		return &dwerr.ConfigError{Field: "simulation.sedentary.age_threshold", Reason: "must be positive"}
	}

	if !(p.Smoking.YoungMaxAge < p.Smoking.OlderMinAge) {
		return &dwerr.ConfigError{
			Field:  "simulation.smoking",
			Reason: fmt.Sprintf("young_max_age %v must be below older_min_age %v", p.Smoking.YoungMaxAge, p.Smoking.OlderMinAge),
		}
	}
	bands := []struct {
		field string
		w     []float64
	}{
		{"simulation.smoking.young", p.Smoking.Young},
		{"simulation.smoking.middle", p.Smoking.Middle},
		{"simulation.smoking.older", p.Smoking.Older},
	}
	for _, b := range bands {
		if err := checkWeights(b.field, b.w, 3); err != nil {
			return err
		}
	}

	if err := checkWeights("simulation.diet.base_weights", p.Diet.BaseWeights, 4); err != nil {
		return err
	}
	// Negative shifts would reward diabetes or obesity with a better diet.
	if math.IsNaN(p.Diet.DiabetesShift) || p.Diet.DiabetesShift < 0 {
		return &dwerr.ConfigError{Field: "simulation.diet.diabetes_shift", Reason: "must be >= 0"}
	}
	if math.IsNaN(p.Diet.BMIShift) || p.Diet.BMIShift < 0 {
		return &dwerr.ConfigError{Field: "simulation.diet.bmi_shift", Reason: "must be >= 0"}
	}
	if !(p.Diet.BMISpan > 0) {
		return &dwerr.ConfigError{Field: "simulation.diet.bmi_span", Reason: "must be positive"}
	}
	return nil
}

func checkWeights(field string, w []float64, n int) error {
	if len(w) != n {
		return &dwerr.ConfigError{Field: field, Reason: fmt.Sprintf("want %d weights, got %d", n, len(w))}
	}
	var sum float64
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &dwerr.ConfigError{Field: field, Reason: fmt.Sprintf("weight %v is not a non-negative number", v)}
		}
		sum += v
	}
	if sum <= 0 {
		return &dwerr.ConfigError{Field: field, Reason: "weights sum to zero"}
	}
	return nil
}
