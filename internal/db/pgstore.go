package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/diabwh/internal/model"
	embedsql "github.com/gyeh/diabwh/internal/sql"
)

// Schema is the Postgres schema holding the warehouse tables.
const Schema = "dw"

// PGStore commits a warehouse to Postgres. Every commit replaces the
// previous contents of the four warehouse tables inside one transaction.
type PGStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPGStore returns a store writing through pool.
func NewPGStore(pool *pgxpool.Pool, log zerolog.Logger) *PGStore {
	return &PGStore{pool: pool, log: log}
}

// Commit truncates the warehouse, COPYs dimensions then facts, and records
// the run in dw.load_runs. Any failure rolls the whole transaction back.
func (s *PGStore) Commit(ctx context.Context, wh *model.Warehouse, summary *model.LoadSummary) error {
	runID, err := uuid.Parse(summary.RunID)
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after Commit

	if _, err := tx.Exec(ctx, embedsql.TruncateWarehouse); err != nil {
		return fmt.Errorf("truncate warehouse: %w", err)
	}

	copies := []struct {
		table string
		cols  []string
		src   pgx.CopyFromSource
	}{
		{model.TableDimPatient, model.PatientDimColumns(), NewSliceSource(wh.Patients)},
		{model.TableDimRiskFactors, model.RiskFactorDimColumns(), NewSliceSource(wh.RiskFactors)},
		{model.TableDimDate, model.DateDimColumns(), NewSliceSource(wh.Dates)},
		{model.TableFact, model.FactColumns(), NewSliceSource(wh.Facts)},
	}
	for _, c := range copies {
		start := time.Now()
		n, err := tx.CopyFrom(ctx, pgx.Identifier{Schema, c.table}, c.cols, c.src)
		if err != nil {
			return fmt.Errorf("copy %s: %w", c.table, err)
		}
		s.log.Debug().
			Str("table", c.table).
			Int64("rows", n).
			Dur("duration", time.Since(start)).
			Msg("table copied")
	}

	if _, err := tx.Exec(ctx, embedsql.InsertLoadRun,
		runID.String(),
		summary.FilePath,
		summary.FileSHA256,
		summary.Seed,
		summary.RowsRead,
		summary.RowsRejected,
		summary.Patients,
		summary.RiskFactors,
		summary.Dates,
		summary.Facts,
		summary.Digest,
	); err != nil {
		return fmt.Errorf("insert load run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadRun is one row of dw.load_runs.
type LoadRun struct {
	RunID       string
	SourceFile  string
	InputSHA256 string
	Seed        int64
	Facts       int64
	Digest      string
	CommittedAt time.Time
}

// LatestLoadRun returns the most recent committed run, or pgx.ErrNoRows
// when the warehouse has never been loaded.
func LatestLoadRun(ctx context.Context, pool *pgxpool.Pool) (*LoadRun, error) {
	var r LoadRun
	err := pool.QueryRow(ctx, `
		SELECT run_id::text, source_file, input_sha256, seed, facts, digest, committed_at
		FROM dw.load_runs
		ORDER BY committed_at DESC
		LIMIT 1`).Scan(&r.RunID, &r.SourceFile, &r.InputSHA256, &r.Seed, &r.Facts, &r.Digest, &r.CommittedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
