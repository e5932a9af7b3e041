package source

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
	"github.com/gyeh/diabwh/internal/normalize"
)

const parquetBatchSize = 1024

// ParquetReader streams SourceRow records from a Parquet file. Top-level
// columns are matched against model.SourceColumns the same way CSV headers
// are, so `Age`, `age` and `taille` all resolve.
type ParquetReader struct {
	file   *os.File
	reader *parquet.Reader
	cols   map[int]string // leaf column index → canonical column name
	buf    []parquet.Row
	pos    int
	n      int
	done   bool
	rowNum int64
}

// OpenParquet opens a Parquet file and resolves its columns.
func OpenParquet(path string) (*ParquetReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	cols, err := ResolveColumns(pf.Schema())
	if err != nil {
		f.Close()
		return nil, err
	}

	return &ParquetReader{
		file:   f,
		reader: parquet.NewReader(pf),
		cols:   cols,
		buf:    make([]parquet.Row, parquetBatchSize),
	}, nil
}

// ResolveColumns maps the schema's flat leaf columns to canonical column
// names and checks that the required ones are present. Nested and
// repeated columns are ignored.
func ResolveColumns(schema *parquet.Schema) (map[int]string, error) {
	cols := make(map[int]string)
	present := make(map[string]bool)
	for _, path := range schema.Columns() {
		if len(path) != 1 {
			continue
		}
		col, ok := model.SourceColumnByHeader(normalize.NormalizeHeader(path[0]))
		if !ok {
			continue
		}
		leaf, ok := schema.Lookup(path...)
		if !ok || leaf.MaxRepetitionLevel > 0 {
			continue
		}
		if present[col.Name] {
			return nil, fmt.Errorf("column %s appears twice (field %q)", col.Name, path[0])
		}
		cols[leaf.ColumnIndex] = col.Name
		present[col.Name] = true
	}
	if err := ValidateColumns(present); err != nil {
		return nil, err
	}
	return cols, nil
}

// Next returns the next row, refilling the batch buffer as needed.
func (r *ParquetReader) Next() (*model.SourceRow, error) {
	for r.pos >= r.n {
		if r.done {
			return nil, io.EOF
		}
		n, err := r.reader.ReadRows(r.buf)
		r.pos, r.n = 0, n
		if err == io.EOF {
			r.done = true
		} else if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	values := r.buf[r.pos]
	r.pos++
	r.rowNum++

	row := &model.SourceRow{Row: r.rowNum}
	for _, v := range values {
		name, ok := r.cols[v.Column()]
		if !ok || v.IsNull() {
			continue
		}
		if err := setParquetValue(row, name, v); err != nil {
			return nil, &dwerr.InputError{Row: r.rowNum, Field: name, Reason: err.Error()}
		}
	}
	return row, nil
}

// Close releases all resources.
func (r *ParquetReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

func setParquetValue(row *model.SourceRow, name string, v parquet.Value) error {
	if name == "patient_id" {
		s := parquetString(v)
		if s != "" {
			row.PatientID = &s
		}
		return nil
	}
	f, err := parquetFloat(v)
	if err != nil {
		return err
	}
	return setField(row, name, f)
}

// parquetFloat reads any numeric physical type; byte arrays are parsed as
// text.
func parquetFloat(v parquet.Value) (*float64, error) {
	var f float64
	switch v.Kind() {
	case parquet.Boolean:
		if v.Boolean() {
			f = 1
		}
	case parquet.Int32:
		f = float64(v.Int32())
	case parquet.Int64:
		f = float64(v.Int64())
	case parquet.Float:
		f = float64(v.Float())
	case parquet.Double:
		f = v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return parseFloat(strings.TrimSpace(string(v.ByteArray())))
	default:
		return nil, fmt.Errorf("unsupported parquet type %s", v.Kind())
	}
	return &f, nil
}

func parquetString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return strings.TrimSpace(string(v.ByteArray()))
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	}
	if f, err := parquetFloat(v); err == nil && f != nil {
		return strconv.FormatFloat(*f, 'f', -1, 64)
	}
	return ""
}
