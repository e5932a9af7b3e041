package db

import (
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/diabwh/internal/model"
)

// CopyRow is satisfied by pointers to warehouse row types.
type CopyRow[T any] interface {
	*T
	CopyValues() []any
}

// SliceSource implements pgx.CopyFromSource over an in-memory table.
type SliceSource[T any, P CopyRow[T]] struct {
	rows []T
	pos  int
}

// NewSliceSource creates a CopyFromSource backed by rows.
func NewSliceSource[T any, P CopyRow[T]](rows []T) *SliceSource[T, P] {
	return &SliceSource[T, P]{rows: rows}
}

// Next advances to the next row. Returns false after the last row.
func (s *SliceSource[T, P]) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

// Values returns the current row's values in COPY column order.
func (s *SliceSource[T, P]) Values() ([]any, error) {
	return P(&s.rows[s.pos-1]).CopyValues(), nil
}

// Err returns any error encountered during iteration.
func (s *SliceSource[T, P]) Err() error {
	return nil
}

// Compile-time check that SliceSource satisfies the interface.
var _ pgx.CopyFromSource = (*SliceSource[model.FactRow, *model.FactRow])(nil)
