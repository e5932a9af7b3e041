package query

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Output formats for Write.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// Write renders res to w.
func Write(w io.Writer, res *Result, format string) error {
	switch format {
	case FormatTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))
		for _, row := range res.Rows {
			fmt.Fprintln(tw, strings.Join(cells(row), "\t"))
		}
		return tw.Flush()
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(res.Columns); err != nil {
			return err
		}
		for _, row := range res.Rows {
			if err := cw.Write(cells(row)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatJSON:
		records := make([]map[string]any, len(res.Rows))
		for i, row := range res.Rows {
			rec := make(map[string]any, len(row))
			for j, v := range row {
				rec[res.Columns[j]] = v
			}
			records[i] = rec
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func cells(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			out[i] = ""
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}
