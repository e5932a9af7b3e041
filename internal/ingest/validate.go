package ingest

import (
	"fmt"

	"github.com/gyeh/diabwh/internal/calendar"
	"github.com/gyeh/diabwh/internal/category"
	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
	"github.com/gyeh/diabwh/internal/schema"
)

// Validate checks the referential and labelling invariants of a built
// warehouse:
//
//   - surrogate keys are positive, unique and dense from 1 in every table
//   - natural keys are unique in dim_patient and dim_date
//   - every fact resolves all three foreign keys
//   - each risk factor row belongs to exactly one fact
//   - every stored label equals the label re-derived from its inputs
//
// dates, when non-nil, also bounds dim_date to the configured window.
func Validate(wh *model.Warehouse, dates *calendar.Assigner) error {
	if err := validatePatients(wh.Patients); err != nil {
		return err
	}
	if err := validateRiskFactors(wh.RiskFactors); err != nil {
		return err
	}
	if err := validateDates(wh.Dates, dates); err != nil {
		return err
	}
	return validateFacts(wh)
}

func integrity(table, format string, args ...any) error {
	return &dwerr.IntegrityError{Table: table, Detail: fmt.Sprintf(format, args...)}
}

func checkKey(table string, i int, id int64) error {
	if id != int64(i+1) {
		return integrity(table, "row %d has key %d, want %d", i, id, i+1)
	}
	return nil
}

func validatePatients(rows []model.PatientDim) error {
	seen := make(map[string]bool, len(rows))
	for i := range rows {
		r := &rows[i]
		if err := checkKey(model.TableDimPatient, i, r.ID); err != nil {
			return err
		}
		if seen[r.PatientKey] {
			return integrity(model.TableDimPatient, "duplicate patient key %q", r.PatientKey)
		}
		seen[r.PatientKey] = true

		want, err := category.AgeGroup(r.Age)
		if err != nil {
			return err
		}
		if r.AgeGroup != want {
			return integrity(model.TableDimPatient, "patient %d age group %q, want %q for age %v", r.ID, r.AgeGroup, want, r.Age)
		}
	}
	return nil
}

func validateRiskFactors(rows []model.RiskFactorDim) error {
	for i := range rows {
		r := &rows[i]
		if err := checkKey(model.TableDimRiskFactors, i, r.ID); err != nil {
			return err
		}
		smoking, err := category.SmokingLabel(int(r.SmokingStatus))
		if err != nil {
			return err
		}
		if r.SmokingLabel != smoking {
			return integrity(model.TableDimRiskFactors, "row %d smoking label %q, want %q", r.ID, r.SmokingLabel, smoking)
		}
		diet, err := category.DietLabel(int(r.DietScore))
		if err != nil {
			return err
		}
		if r.DietLabel != diet {
			return integrity(model.TableDimRiskFactors, "row %d diet label %q, want %q", r.ID, r.DietLabel, diet)
		}
		if r.Sedentary != (r.ActivityLabel == category.ActivitySedentary) {
			return integrity(model.TableDimRiskFactors, "row %d activity %q disagrees with sedentary=%t", r.ID, r.ActivityLabel, r.Sedentary)
		}
		switch r.ActivityLabel {
		case category.ActivitySedentary, category.ActivityModerate, category.ActivityActive:
		default:
			return integrity(model.TableDimRiskFactors, "row %d unknown activity label %q", r.ID, r.ActivityLabel)
		}
	}
	return nil
}

func validateDates(rows []model.DateDim, dates *calendar.Assigner) error {
	seen := make(map[string]bool, len(rows))
	for i := range rows {
		r := &rows[i]
		if err := checkKey(model.TableDimDate, i, r.ID); err != nil {
			return err
		}
		key := schema.DateKey(r.FullDate)
		if seen[key] {
			return integrity(model.TableDimDate, "duplicate date %s", key)
		}
		seen[key] = true

		if dates != nil && !dates.Contains(r.FullDate) {
			return &dwerr.RangeError{What: "dim_date.full_date", Value: key}
		}
		b := calendar.Bucket(r.FullDate)
		if int(r.Year) != b.Year || int(r.Quarter) != b.Quarter || int(r.Month) != b.Month {
			return integrity(model.TableDimDate, "date %s bucketed as %d/Q%d/%d, want %d/Q%d/%d",
				key, r.Year, r.Quarter, r.Month, b.Year, b.Quarter, b.Month)
		}
	}
	return nil
}

func validateFacts(wh *model.Warehouse) error {
	nPatients := int64(len(wh.Patients))
	nRisk := int64(len(wh.RiskFactors))
	nDates := int64(len(wh.Dates))
	riskRefs := make([]int, nRisk+1)

	for i := range wh.Facts {
		f := &wh.Facts[i]
		if err := checkKey(model.TableFact, i, f.ID); err != nil {
			return err
		}
		if f.PatientID < 1 || f.PatientID > nPatients {
			return integrity(model.TableFact, "fact %d: dangling patient_id %d", f.ID, f.PatientID)
		}
		if f.RiskFactorID < 1 || f.RiskFactorID > nRisk {
			return integrity(model.TableFact, "fact %d: dangling risk_factor_id %d", f.ID, f.RiskFactorID)
		}
		if f.DateID < 1 || f.DateID > nDates {
			return integrity(model.TableFact, "fact %d: dangling date_id %d", f.ID, f.DateID)
		}
		riskRefs[f.RiskFactorID]++

		want, err := category.BMICategory(f.BMI)
		if err != nil {
			return err
		}
		if f.BMICategory != want {
			return integrity(model.TableFact, "fact %d bmi category %q, want %q for bmi %v", f.ID, f.BMICategory, want, f.BMI)
		}
	}

	for id := int64(1); id <= nRisk; id++ {
		if riskRefs[id] != 1 {
			return integrity(model.TableDimRiskFactors, "risk factor %d referenced by %d facts, want 1", id, riskRefs[id])
		}
	}
	return nil
}
