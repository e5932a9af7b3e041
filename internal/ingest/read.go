package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
	"github.com/gyeh/diabwh/internal/normalize"
	"github.com/gyeh/diabwh/internal/source"
)

// ReadResult holds the normalized records and metrics from the read phase.
type ReadResult struct {
	Records  []*model.PatientRecord
	Rejected []model.RejectedRow
	RowsRead int64
	Duration time.Duration
}

// Read streams the source file and normalizes every row. Rows that fail
// parsing or normalization are logged and collected; they never stop the
// run.
func Read(ctx context.Context, log zerolog.Logger, filePath string, bmiScale float64) (*ReadResult, error) {
	start := time.Now()

	reader, err := source.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("read open: %w", err)
	}
	defer reader.Close()

	res := &ReadResult{}
	reject := func(err *dwerr.InputError) {
		log.Warn().Err(err).Int64("row", err.Row).Msg("row rejected")
		res.Rejected = append(res.Rejected, model.RejectedRow{Row: err.Row, Reason: err.Error()})
	}

	for {
		if res.RowsRead%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		var ie *dwerr.InputError
		if errors.As(err, &ie) {
			res.RowsRead++
			reject(ie)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read at row %d: %w", res.RowsRead+1, err)
		}
		res.RowsRead++

		rec, err := normalize.ToPatientRecord(row, bmiScale)
		if errors.As(err, &ie) {
			reject(ie)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("normalize row %d: %w", row.Row, err)
		}
		res.Records = append(res.Records, rec)
	}

	res.Duration = time.Since(start)
	log.Info().
		Int64("rows_read", res.RowsRead).
		Int("rows_accepted", len(res.Records)).
		Int("rows_rejected", len(res.Rejected)).
		Str("duration", res.Duration.String()).
		Msg("read complete")

	return res, nil
}
