package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
	"github.com/gyeh/diabwh/internal/normalize"
)

// CSVReader streams a delimited patient file with a header row. The
// delimiter is ',' unless the header uses ';' (the usual layout when
// decimals are written with a comma). Headers are matched
// case-insensitively against model.SourceColumns and their aliases;
// unknown columns are ignored.
type CSVReader struct {
	file   *os.File
	csv    *csv.Reader
	rowNum int64
	colIdx map[string]int // canonical column name → field index
}

// OpenCSV opens path and reads its header.
func OpenCSV(path string) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	r, err := NewCSVReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// NewCSVReader reads the header from an already open stream.
func NewCSVReader(in io.Reader) (*CSVReader, error) {
	br := bufio.NewReaderSize(in, 256*1024)
	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	r := &CSVReader{csv: cr, colIdx: make(map[string]int)}
	present := make(map[string]bool)
	for i, h := range header {
		col, ok := model.SourceColumnByHeader(normalize.NormalizeHeader(h))
		if !ok {
			continue
		}
		if _, dup := r.colIdx[col.Name]; dup {
			return nil, fmt.Errorf("column %s appears twice (header %q)", col.Name, h)
		}
		r.colIdx[col.Name] = i
		present[col.Name] = true
	}
	if err := ValidateColumns(present); err != nil {
		return nil, err
	}
	return r, nil
}

// Next returns the next data row.
func (r *CSVReader) Next() (*model.SourceRow, error) {
	record, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	r.rowNum++
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &dwerr.InputError{Row: r.rowNum, Reason: pe.Err.Error()}
		}
		return nil, fmt.Errorf("read csv row %d: %w", r.rowNum, err)
	}

	row := &model.SourceRow{Row: r.rowNum}
	field := func(name string) string {
		i, ok := r.colIdx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	if s := field("patient_id"); s != "" {
		row.PatientID = &s
	}
	for _, name := range numericColumns {
		v, err := parseFloat(field(name))
		if err == nil {
			err = setField(row, name, v)
		}
		if err != nil {
			return nil, &dwerr.InputError{Row: r.rowNum, Field: name, Reason: err.Error()}
		}
	}
	return row, nil
}

// Close releases the underlying file, if the reader opened one.
func (r *CSVReader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// sniffDelimiter peeks at the header line without consuming it.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.Count(head, []byte{';'}) > bytes.Count(head, []byte{','}) {
		return ';'
	}
	return ','
}

// nullMarkers are cell values treated as missing.
var nullMarkers = map[string]bool{"": true, "na": true, "n/a": true, "null": true, "none": true}

// parseFloat returns nil for a missing cell. A decimal comma is accepted;
// it only reaches here from a ';'-delimited file or a quoted cell.
// "nan" parses to NaN and is rejected later as a data-quality error.
func parseFloat(s string) (*float64, error) {
	if nullMarkers[strings.ToLower(s)] {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &v, nil
}
