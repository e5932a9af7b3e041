package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/diabwh/internal/normalize"
	"github.com/gyeh/diabwh/internal/source"
)

// PreflightResult holds all context resolved before any row is read.
type PreflightResult struct {
	// FilePath is the original path passed to Preflight, stored as-is.
	FilePath string
	// FileSHA256 is the hex-encoded SHA-256 digest of the file, computed by normalize.FileHash.
	FileSHA256 string
	// FileSize is the file size in bytes from os.Stat.
	FileSize int64
	// RunID is a freshly generated UUIDv4 that identifies this build in
	// dw.load_runs and in the logs.
	RunID uuid.UUID
}

// Preflight computes the file hash and checks that the file opens with a
// usable column set.
func Preflight(log zerolog.Logger, filePath string) (*PreflightResult, error) {
	start := time.Now()

	sha, err := normalize.FileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight hash: %w", err)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight stat: %w", err)
	}

	reader, err := source.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight open: %w", err)
	}
	reader.Close()

	pf := &PreflightResult{
		FilePath:   filePath,
		FileSHA256: sha,
		FileSize:   stat.Size(),
		RunID:      uuid.New(),
	}

	log.Info().
		Str("file", filepath.Base(filePath)).
		Str("sha256", sha).
		Int64("bytes", pf.FileSize).
		Str("run_id", pf.RunID.String()).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	return pf, nil
}
