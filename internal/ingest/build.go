package ingest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
	"github.com/gyeh/diabwh/internal/schema"
)

// Build merges enriched records into the star schema in input order:
// register the record's dimensions, then emit its fact from the
// builder's natural key lookups.
func Build(log zerolog.Logger, recs []*model.EnrichedRecord) (*model.Warehouse, time.Duration, error) {
	start := time.Now()

	b := schema.NewBuilder()
	for _, e := range recs {
		if err := b.Register(e); err != nil {
			return nil, 0, err
		}
		fact, err := factFor(b, e)
		if err != nil {
			return nil, 0, err
		}
		b.AppendFact(fact)
	}
	wh := b.Warehouse()

	dur := time.Since(start)
	log.Info().
		Int("dim_patient", len(wh.Patients)).
		Int("dim_risk_factors", len(wh.RiskFactors)).
		Int("dim_date", len(wh.Dates)).
		Int("facts", len(wh.Facts)).
		Dur("duration", dur).
		Msg("star schema built")

	return wh, dur, nil
}

func factFor(b *schema.Builder, e *model.EnrichedRecord) (model.FactRow, error) {
	rec := &e.Record
	patientID, ok := b.PatientID(rec.PatientKey)
	if !ok {
		return model.FactRow{}, unresolved(model.TableDimPatient, rec.PatientKey)
	}
	riskFactorID, ok := b.RiskFactorID(rec.SourceRow)
	if !ok {
		return model.FactRow{}, unresolved(model.TableDimRiskFactors, fmt.Sprintf("source row %d", rec.SourceRow))
	}
	dateID, ok := b.DateID(e.Date.Date)
	if !ok {
		return model.FactRow{}, unresolved(model.TableDimDate, schema.DateKey(e.Date.Date))
	}
	return model.FactRow{
		PatientID:      patientID,
		RiskFactorID:   riskFactorID,
		DateID:         dateID,
		FastingGlucose: rec.FastingGlucose,
		HbA1c:          rec.HbA1c,
		BMI:            rec.BMI,
		BMICategory:    e.BMICategory,
		Diabetic:       rec.Diabetic,
	}, nil
}

func unresolved(table, key string) error {
	return &dwerr.IntegrityError{Table: model.TableFact, Detail: fmt.Sprintf("no %s key for %s", table, key)}
}
