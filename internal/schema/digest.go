package schema

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/gyeh/diabwh/internal/model"
)

// Digest computes a SHA-256 over a canonical rendering of every table, in
// key order. Two builds produce the same digest exactly when their tables
// are identical.
func Digest(wh *model.Warehouse) string {
	h := sha256.New()
	writeTables(h, wh)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeTables(w io.Writer, wh *model.Warehouse) {
	fmt.Fprintln(w, model.TableDimPatient)
	for _, r := range wh.Patients {
		fmt.Fprintf(w, "%d\x1f%s\x1f%v\x1f%s\x1f%s\x1f%s\n",
			r.ID, r.PatientKey, r.Age, optFloat(r.HeightCm), optFloat(r.WeightKg), r.AgeGroup)
	}
	fmt.Fprintln(w, model.TableDimRiskFactors)
	for _, r := range wh.RiskFactors {
		fmt.Fprintf(w, "%d\x1f%t\x1f%t\x1f%d\x1f%s\x1f%d\x1f%s\x1f%s\n",
			r.ID, r.Sedentary, r.FamilyHistory, r.SmokingStatus, r.SmokingLabel,
			r.DietScore, r.DietLabel, r.ActivityLabel)
	}
	fmt.Fprintln(w, model.TableDimDate)
	for _, r := range wh.Dates {
		fmt.Fprintf(w, "%d\x1f%s\x1f%d\x1f%d\x1f%d\n",
			r.ID, r.FullDate.UTC().Format(time.DateOnly), r.Year, r.Quarter, r.Month)
	}
	fmt.Fprintln(w, model.TableFact)
	for _, r := range wh.Facts {
		fmt.Fprintf(w, "%d\x1f%d\x1f%d\x1f%d\x1f%v\x1f%v\x1f%v\x1f%s\x1f%t\n",
			r.ID, r.PatientID, r.RiskFactorID, r.DateID,
			r.FastingGlucose, r.HbA1c, r.BMI, r.BMICategory, r.Diabetic)
	}
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", *v)
}
