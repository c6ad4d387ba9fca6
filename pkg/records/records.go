// Package records defines the in-memory row model shared by the parser,
// transformers, the reconciliation engine, and the storage sinks.
//
// A Record maps column names to values. Values produced by the CSV parser are
// either strings or nil (an empty cell). Transformers may write other scalar
// types, but everything written back to CSV is rendered with fmt.
package records

import "fmt"

// Record is one row keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of r. Values are scalars, so a shallow copy is
// enough to keep two records independent.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value for col rendered as a string; empty values
// (see IsEmpty) render as "".
func (r Record) String(col string) string {
	v, ok := r[col]
	if !ok || IsEmpty(v) {
		return ""
	}
	return ToString(v)
}

// Table is a header plus its rows. Columns fixes the output order; rows may
// omit a column, which reads as empty.
type Table struct {
	Columns []string
	Rows    []Record
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether col is part of the header.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Clone deep-copies the table so the copy can be mutated independently.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Values returns the rows as positional slices aligned to Columns, the shape
// expected by storage.Repository.CopyFrom. Empty values become nil.
func (t *Table) Values() [][]any {
	out := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			if v, ok := r[c]; ok && v != nil {
				row[j] = v
			}
		}
		out[i] = row
	}
	return out
}

// naMarkers are the cell values CSV tooling conventionally reads as missing.
var naMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsEmpty reports whether v counts as a missing value: nil, the empty string,
// or one of the NA markers.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		_, ok := naMarkers[t]
		return ok
	default:
		return false
	}
}

// IsNAMarker reports whether s is a textual missing-value marker.
func IsNAMarker(s string) bool {
	_, ok := naMarkers[s]
	return ok
}

// ToString renders v for text outputs; nil renders as "".
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
