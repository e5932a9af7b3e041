package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/diabwh/internal/calendar"
	"github.com/gyeh/diabwh/internal/category"
	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
	"github.com/gyeh/diabwh/internal/normalize"
	"github.com/gyeh/diabwh/internal/simulate"
)

const enrichChunkSize = 512

// EnrichResult holds the enriched records, in input order, and metrics.
type EnrichResult struct {
	Records  []*model.EnrichedRecord
	Rejected []model.RejectedRow
	Duration time.Duration
}

// Enrich simulates risk factors, assigns dates and derives categories for
// every record. Chunks of records run concurrently, bounded by workers.
// Each record draws from its own PRNG, seeded from the global seed, its
// patient key and how often that key appeared before, so the output does
// not depend on scheduling.
func Enrich(
	ctx context.Context,
	log zerolog.Logger,
	sim *simulate.Simulator,
	dates *calendar.Assigner,
	recs []*model.PatientRecord,
	seed int64,
	workers int,
) (*EnrichResult, error) {
	start := time.Now()

	seeds := make([]uint64, len(recs))
	occurrences := make(map[string]int, len(recs))
	for i, rec := range recs {
		seeds[i] = normalize.RecordSeed(seed, rec.PatientKey, occurrences[rec.PatientKey])
		occurrences[rec.PatientKey]++
	}

	out := make([]*model.EnrichedRecord, len(recs))
	rowErrs := make([]error, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for lo := 0; lo < len(recs); lo += enrichChunkSize {
		hi := min(lo+enrichChunkSize, len(recs))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				e, err := enrichRecord(sim, dates, recs[i], seeds[i])
				var ie *dwerr.InputError
				if errors.As(err, &ie) {
					rowErrs[i] = ie
					continue
				}
				if err != nil {
					return fmt.Errorf("enrich row %d: %w", recs[i].SourceRow, err)
				}
				out[i] = e
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &EnrichResult{Records: make([]*model.EnrichedRecord, 0, len(recs))}
	for i, e := range out {
		if rowErrs[i] != nil {
			log.Warn().Err(rowErrs[i]).Int64("row", recs[i].SourceRow).Msg("row rejected")
			res.Rejected = append(res.Rejected, model.RejectedRow{Row: recs[i].SourceRow, Reason: rowErrs[i].Error()})
			continue
		}
		res.Records = append(res.Records, e)
	}

	res.Duration = time.Since(start)
	log.Info().
		Int("records", len(res.Records)).
		Int("rejected", len(res.Rejected)).
		Dur("duration", res.Duration).
		Float64("records_per_sec", float64(len(res.Records))/res.Duration.Seconds()).
		Msg("enrichment complete")

	return res, nil
}

// enrichRecord is the per-record step. The sequential date distribution
// follows the source row, so rejected rows leave gaps rather than shifting
// later dates.
func enrichRecord(sim *simulate.Simulator, dates *calendar.Assigner, rec *model.PatientRecord, seed uint64) (*model.EnrichedRecord, error) {
	rng := simulate.NewRand(seed)

	prof, err := sim.Simulate(rec, rng)
	if err != nil {
		return nil, err
	}
	date, err := dates.Assign(rec.SourceRow-1, rng)
	if err != nil {
		return nil, err
	}
	ageGroup, err := category.AgeGroup(rec.Age)
	if err != nil {
		return nil, err
	}
	bmiCategory, err := category.BMICategory(rec.BMI)
	if err != nil {
		return nil, err
	}

	return &model.EnrichedRecord{
		Record:      *rec,
		Profile:     prof,
		Date:        date,
		AgeGroup:    ageGroup,
		BMICategory: bmiCategory,
	}, nil
}
