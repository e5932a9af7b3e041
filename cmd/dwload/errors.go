package main

import (
	"errors"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/exitcode"
	"github.com/gyeh/diabwh/internal/ingest"
)

// exitCodeFor maps a failed build to a process exit code.
func exitCodeFor(err error) int {
	var (
		ce *dwerr.ConfigError
		re *dwerr.RangeError
		ie *dwerr.IntegrityError
		pe *ingest.PipelineError
	)
	switch {
	case errors.As(err, &ce):
		return exitcode.ConfigError
	case errors.As(err, &re):
		return exitcode.RangeError
	case errors.As(err, &ie):
		return exitcode.IntegrityError
	case errors.As(err, &pe) && pe.Phase == ingest.PhaseRead:
		return exitcode.InputError
	case errors.As(err, &pe) && pe.Phase == ingest.PhaseCommit:
		return exitcode.CommitError
	}
	return exitcode.UsageError
}
