package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/diabwh/internal/model"
)

// Commit hands a validated warehouse to the store. A cancelled context
// aborts before the store is touched.
func Commit(ctx context.Context, log zerolog.Logger, store Store, wh *model.Warehouse, summary *model.LoadSummary) (time.Duration, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("commit aborted: %w", err)
	}
	if err := store.Commit(ctx, wh, summary); err != nil {
		return 0, err
	}

	dur := time.Since(start)
	log.Info().
		Str("sink", summary.Sink).
		Str("run_id", summary.RunID).
		Int64("facts", int64(len(wh.Facts))).
		Dur("duration", dur).
		Msg("commit complete")

	return dur, nil
}

// DiscardStore accepts every warehouse and persists nothing. Dry runs use
// it to exercise every phase short of writing.
type DiscardStore struct{}

func (DiscardStore) Commit(context.Context, *model.Warehouse, *model.LoadSummary) error {
	return nil
}
