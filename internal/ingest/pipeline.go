package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/diabwh/internal/calendar"
	"github.com/gyeh/diabwh/internal/config"
	"github.com/gyeh/diabwh/internal/model"
	"github.com/gyeh/diabwh/internal/schema"
	"github.com/gyeh/diabwh/internal/simulate"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ErrNoUsableRows fails a run whose input had rows but none survived, so
// a bad file never replaces a good warehouse with an empty one.
var ErrNoUsableRows = errors.New("every input row was rejected")

// Pipeline phases, as reported in PipelineError.Phase.
const (
	PhaseConfig   = "config"
	PhaseRead     = "read"
	PhaseEnrich   = "enrich"
	PhaseBuild    = "build"
	PhaseValidate = "validate"
	PhaseCommit   = "commit"
)

// State is the lifecycle position of a Loader.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateValidating
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateValidating:
		return "validating"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Store persists a validated warehouse. Commit must be all-or-nothing:
// on error nothing from this build is visible to readers.
type Store interface {
	Commit(ctx context.Context, wh *model.Warehouse, summary *model.LoadSummary) error
}

// Loader runs one warehouse build: read → enrich → build → validate →
// commit. A Loader is single-use.
type Loader struct {
	cfg   *config.Config
	store Store
	log   zerolog.Logger
	sim   *simulate.Simulator
	dates *calendar.Assigner

	mu    sync.Mutex
	state State

	// beforeValidate lets tests corrupt the built tables.
	beforeValidate func(*model.Warehouse)
}

// NewLoader checks cfg and prepares the simulator and date assigner.
func NewLoader(cfg *config.Config, store Store, log zerolog.Logger) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &PipelineError{Phase: PhaseConfig, Err: err}
	}
	sim, err := simulate.New(cfg.Simulation)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseConfig, Err: err}
	}
	dates, err := calendar.NewAssigner(cfg.Window)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseConfig, Err: err}
	}
	return &Loader{cfg: cfg, store: store, log: log, sim: sim, dates: dates}, nil
}

// State returns the current lifecycle state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Run executes the full build. It may only be called on an Empty loader.
// Per-row InputErrors end up in the summary; any other failure rolls the
// build back and nothing is committed.
func (l *Loader) Run(ctx context.Context) (*model.LoadSummary, error) {
	l.mu.Lock()
	if l.state != StateEmpty {
		st := l.state
		l.mu.Unlock()
		return nil, fmt.Errorf("loader already ran (state %s)", st)
	}
	l.state = StateLoading
	l.mu.Unlock()

	summary, err := l.run(ctx)
	if err != nil {
		l.setState(StateRolledBack)
		l.log.Error().Err(err).Msg("warehouse build rolled back")
		return nil, err
	}
	l.setState(StateCommitted)
	return summary, nil
}

func (l *Loader) run(ctx context.Context) (*model.LoadSummary, error) {
	totalStart := time.Now()

	// Phase 1: Preflight + read
	l.log.Info().Str("file", l.cfg.FilePath).Msg("starting preflight")
	pf, err := Preflight(l.log, l.cfg.FilePath)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseRead, Err: err}
	}

	summary := &model.LoadSummary{
		RunID:      pf.RunID.String(),
		FilePath:   pf.FilePath,
		FileSHA256: pf.FileSHA256,
		Seed:       l.cfg.Seed,
		Sink:       l.cfg.Sink,
	}

	readResult, err := Read(ctx, l.log, pf.FilePath, l.cfg.BMIScale)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseRead, Err: err}
	}
	summary.RowsRead = readResult.RowsRead
	summary.Rejected = readResult.Rejected
	summary.DurationRead = readResult.Duration
	if readResult.RowsRead > 0 && len(readResult.Records) == 0 {
		return nil, &PipelineError{Phase: PhaseRead, Err: fmt.Errorf("%w (%d rows)", ErrNoUsableRows, readResult.RowsRead)}
	}

	// Phase 2: Enrich
	l.log.Info().Int("records", len(readResult.Records)).Int("workers", l.cfg.Workers).Msg("starting enrichment")
	enrichResult, err := Enrich(ctx, l.log, l.sim, l.dates, readResult.Records, l.cfg.Seed, l.cfg.Workers)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseEnrich, Err: err}
	}
	summary.Rejected = append(summary.Rejected, enrichResult.Rejected...)
	summary.DurationEnrich = enrichResult.Duration
	if len(enrichResult.Records) == 0 && len(readResult.Records) > 0 {
		return nil, &PipelineError{Phase: PhaseEnrich, Err: fmt.Errorf("%w (%d rows)", ErrNoUsableRows, readResult.RowsRead)}
	}

	// Phase 3: Build
	wh, buildDur, err := Build(l.log, enrichResult.Records)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseBuild, Err: err}
	}
	summary.DurationBuild = buildDur

	// Phase 4: Validate
	l.setState(StateValidating)
	if l.beforeValidate != nil {
		l.beforeValidate(wh)
	}
	start := time.Now()
	if err := Validate(wh, l.dates); err != nil {
		return nil, &PipelineError{Phase: PhaseValidate, Err: err}
	}
	summary.DurationValidate = time.Since(start)
	l.log.Info().Dur("duration", summary.DurationValidate).Msg("validation complete")

	summary.RowsRejected = int64(len(summary.Rejected))
	summary.RowsAccepted = int64(len(wh.Facts))
	summary.Patients = int64(len(wh.Patients))
	summary.RiskFactors = int64(len(wh.RiskFactors))
	summary.Dates = int64(len(wh.Dates))
	summary.Facts = int64(len(wh.Facts))
	summary.Digest = schema.Digest(wh)

	// Phase 5: Commit
	commitDur, err := Commit(ctx, l.log, l.store, wh, summary)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseCommit, Err: err}
	}
	summary.DurationCommit = commitDur
	summary.DurationTotal = time.Since(totalStart)

	l.log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_accepted", summary.RowsAccepted).
		Int64("rows_rejected", summary.RowsRejected).
		Int64("patients", summary.Patients).
		Int64("dates", summary.Dates).
		Int64("facts", summary.Facts).
		Str("digest", summary.Digest).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("warehouse build complete")

	return summary, nil
}
