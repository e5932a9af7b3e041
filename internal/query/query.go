// Package query runs the fixed catalogue of warehouse aggregations.
package query

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	embedsql "github.com/gyeh/diabwh/internal/sql"
)

// Query is one named aggregation.
type Query struct {
	Name        string
	Description string
	SQL         string
}

// Catalogue lists every supported report.
var Catalogue = []Query{
	{"overview", "Headline counts and clinical averages", embedsql.ReportOverview},
	{"risk_factors", "Diabetes rate by sedentary lifestyle and family history", embedsql.ReportRiskFactors},
	{"smoking", "Diabetes rate and glucose by smoking status", embedsql.ReportSmoking},
	{"age_group", "Diabetes rate and BMI by age group", embedsql.ReportAgeGroup},
	{"bmi_category", "Diabetes rate and HbA1c by BMI category", embedsql.ReportBMICategory},
	{"quarterly", "Measurements and averages per year and quarter", embedsql.ReportQuarterly},
	{"monthly", "Glucose and HbA1c trend per month", embedsql.ReportMonthly},
}

// Names returns the catalogue names in catalogue order.
func Names() []string {
	names := make([]string, len(Catalogue))
	for i, q := range Catalogue {
		names[i] = q.Name
	}
	return names
}

// Lookup finds a query by name.
func Lookup(name string) (Query, bool) {
	i := slices.IndexFunc(Catalogue, func(q Query) bool { return q.Name == name })
	if i < 0 {
		return Query{}, false
	}
	return Catalogue[i], true
}

// Querier is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx used here.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Result is a generic table: column names plus one value slice per row.
// NUMERIC values are converted to float64.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Run executes the named query.
func Run(ctx context.Context, db Querier, name string) (*Result, error) {
	q, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown query %q (have %v)", name, Names())
	}

	rows, err := db.Query(ctx, q.SQL)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	res := &Result{Columns: columnNames(rows.FieldDescriptions())}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("query %s: scan: %w", name, err)
		}
		for i, v := range vals {
			vals[i] = plain(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	return res, nil
}

func columnNames(fds []pgconn.FieldDescription) []string {
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return cols
}

func plain(v any) any {
	if n, ok := v.(pgtype.Numeric); ok {
		if !n.Valid {
			return nil
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return v
}
