// Package schema deduplicates enriched records into the star schema and
// owns surrogate key assignment.
package schema

import (
	"fmt"
	"time"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
)

// Builder accumulates dimension and fact rows for one build. It is meant
// to be fed from a single goroutine in source order: that order fixes the
// surrogate keys.
type Builder struct {
	patients    *Registry[string]
	riskFactors *Registry[int64]  // keyed by source row: one row per event
	dates       *Registry[string] // keyed by ISO date

	wh model.Warehouse
}

// NewBuilder returns an empty Builder with fresh registries.
func NewBuilder() *Builder {
	return &Builder{
		patients:    NewRegistry[string](model.TableDimPatient),
		riskFactors: NewRegistry[int64](model.TableDimRiskFactors),
		dates:       NewRegistry[string](model.TableDimDate),
	}
}

// Register adds the dimension rows of one enriched record. Patients and
// dates are deduplicated by natural key; every record is its own risk
// factor event, so a source row seen twice is an IntegrityError.
func (b *Builder) Register(e *model.EnrichedRecord) error {
	rec := &e.Record

	patientID, created := b.patients.Register(rec.PatientKey)
	if created {
		b.wh.Patients = append(b.wh.Patients, model.PatientDim{
			ID:         patientID,
			PatientKey: rec.PatientKey,
			Age:        rec.Age,
			HeightCm:   rec.HeightCm,
			WeightKg:   rec.WeightKg,
			AgeGroup:   e.AgeGroup,
		})
	}

	riskFactorID, created := b.riskFactors.Register(rec.SourceRow)
	if !created {
		return &dwerr.IntegrityError{
			Table:  model.TableDimRiskFactors,
			Detail: fmt.Sprintf("source row %d added twice", rec.SourceRow),
		}
	}
	p := &e.Profile
	b.wh.RiskFactors = append(b.wh.RiskFactors, model.RiskFactorDim{
		ID:            riskFactorID,
		Sedentary:     p.Sedentary,
		FamilyHistory: p.FamilyHistory,
		SmokingStatus: int32(p.SmokingStatus),
		SmokingLabel:  p.SmokingLabel,
		DietScore:     int32(p.DietScore),
		DietLabel:     p.DietLabel,
		ActivityLabel: p.ActivityLabel,
	})

	dateID, created := b.dates.Register(DateKey(e.Date.Date))
	if created {
		b.wh.Dates = append(b.wh.Dates, model.DateDim{
			ID:       dateID,
			FullDate: e.Date.Date,
			Year:     int32(e.Date.Year),
			Quarter:  int32(e.Date.Quarter),
			Month:    int32(e.Date.Month),
		})
	}
	return nil
}

// AppendFact assigns the next fact id to f and stores it.
func (b *Builder) AppendFact(f model.FactRow) model.FactRow {
	f.ID = int64(len(b.wh.Facts) + 1)
	b.wh.Facts = append(b.wh.Facts, f)
	return f
}

// PatientID looks up the surrogate key of a natural patient key.
func (b *Builder) PatientID(patientKey string) (int64, bool) {
	return b.patients.Lookup(patientKey)
}

// DateID looks up the surrogate key of a calendar date.
func (b *Builder) DateID(d time.Time) (int64, bool) {
	return b.dates.Lookup(DateKey(d))
}

// RiskFactorID looks up the surrogate key of the event at a source row.
func (b *Builder) RiskFactorID(sourceRow int64) (int64, bool) {
	return b.riskFactors.Lookup(sourceRow)
}

// Warehouse returns the assembled tables. The Builder must not be used
// after this call.
func (b *Builder) Warehouse() *model.Warehouse {
	wh := b.wh
	return &wh
}

// DateKey is the natural key of a dim_date row.
func DateKey(d time.Time) string {
	return d.Format(time.DateOnly)
}
