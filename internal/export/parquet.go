// Package export writes a committed warehouse as Parquet files, one per
// table, for consumers that do not read from Postgres.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/gyeh/diabwh/internal/model"
)

// ManifestFile is written next to the table files and describes the run.
const ManifestFile = "load_run.json"

// ParquetStore commits a warehouse into Dir. Files are staged in a sibling
// temporary directory that replaces Dir only once every table is written,
// so readers see either the previous export or the new one.
type ParquetStore struct {
	Dir string
	log zerolog.Logger
}

// NewParquetStore returns a store that exports into dir.
func NewParquetStore(dir string, log zerolog.Logger) *ParquetStore {
	return &ParquetStore{Dir: dir, log: log}
}

// Commit writes the four tables and the run manifest.
func (s *ParquetStore) Commit(ctx context.Context, wh *model.Warehouse, summary *model.LoadSummary) error {
	parent := filepath.Dir(filepath.Clean(s.Dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create export parent: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(s.Dir)+"-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(tmp)
		}
	}()

	writes := []func() error{
		func() error { return writeTable(tmp, model.TableDimPatient, wh.Patients) },
		func() error { return writeTable(tmp, model.TableDimRiskFactors, wh.RiskFactors) },
		func() error { return writeTable(tmp, model.TableDimDate, wh.Dates) },
		func() error { return writeTable(tmp, model.TableFact, wh.Facts) },
		func() error { return writeManifest(tmp, summary) },
	}
	for _, write := range writes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := write(); err != nil {
			return err
		}
	}

	if err := swapDir(tmp, s.Dir); err != nil {
		return err
	}
	committed = true

	s.log.Info().Str("dir", s.Dir).Int("facts", len(wh.Facts)).Msg("parquet export written")
	return nil
}

// writeTable writes rows to <dir>/<table>.parquet.
func writeTable[T any](dir, table string, rows []T) error {
	path := filepath.Join(dir, table+".parquet")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := parquet.NewGenericWriter[T](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.PageBufferSize(8*1024),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("dwload", "1.0", ""),
	)
	if _, err := w.Write(rows); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("write %s: %w", table, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close %s writer: %w", table, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return f.Close()
}

type manifest struct {
	RunID       string    `json:"run_id"`
	SourceFile  string    `json:"source_file"`
	InputSHA256 string    `json:"input_sha256"`
	Seed        int64     `json:"seed"`
	RowsRead    int64     `json:"rows_read"`
	RowsRejects int64     `json:"rows_rejected"`
	Patients    int64     `json:"patients"`
	RiskFactors int64     `json:"risk_factors"`
	Dates       int64     `json:"dates"`
	Facts       int64     `json:"facts"`
	Digest      string    `json:"digest"`
	CommittedAt time.Time `json:"committed_at"`
}

func writeManifest(dir string, s *model.LoadSummary) error {
	data, err := json.MarshalIndent(manifest{
		RunID:       s.RunID,
		SourceFile:  s.FilePath,
		InputSHA256: s.FileSHA256,
		Seed:        s.Seed,
		RowsRead:    s.RowsRead,
		RowsRejects: s.RowsRejected,
		Patients:    s.Patients,
		RiskFactors: s.RiskFactors,
		Dates:       s.Dates,
		Facts:       s.Facts,
		Digest:      s.Digest,
		CommittedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), append(data, '\n'), 0o644)
}

// swapDir moves tmp to dst. An existing dst is first renamed aside and
// removed after the swap; if the second rename fails it is put back.
func swapDir(tmp, dst string) error {
	old := ""
	if _, err := os.Stat(dst); err == nil {
		old = tmp + ".old"
		if err := os.Rename(dst, old); err != nil {
			return fmt.Errorf("move previous export aside: %w", err)
		}
	}
	if err := os.Rename(tmp, dst); err != nil {
		if old != "" {
			os.Rename(old, dst)
		}
		return fmt.Errorf("install export: %w", err)
	}
	if old != "" {
		os.RemoveAll(old)
	}
	return nil
}

// ReadTable reads a table file written by Commit.
func ReadTable[T any](dir, table string) ([]T, error) {
	rows, err := parquet.ReadFile[T](filepath.Join(dir, table+".parquet"))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return rows, nil
}
