package reconcile

import "archesprep/pkg/records"

// Outcome describes what Reconcile did to one group.
type Outcome struct {
	// Triggered is the reconciliation decision: some geometry column holds
	// more than one non-empty value in the group.
	Triggered bool
	// Column is the first geometry column (in geometryColumns order) that
	// triggered the decision.
	Column string
	// Filled counts the cells copied from the primary row.
	Filled int
}

// HasMultipleGeometries reports whether any geometry column has more than one
// non-empty value across the group's rows, and names the first such column.
// A single non-empty geometry is the same as none.
func HasMultipleGeometries(g EntityGroup, geometryColumns []string) (string, bool) {
	for _, col := range geometryColumns {
		n := 0
		for _, r := range g.Rows {
			if !records.IsEmpty(r[col]) {
				n++
			}
		}
		if n > 1 {
			return col, true
		}
	}
	return "", false
}

// Reconcile backfills a multi-geometry group in place and returns the
// outcome.
//
// Singletons and groups with at most one non-empty value per geometry column
// are left untouched. Otherwise, for every non-primary row and every column
// of allColumns that is not a geometry column, an empty cell takes the
// primary row's value when that value is non-empty. The primary row is never
// modified, geometry cells are never written, and non-empty cells are never
// overwritten, so a second call is a no-op. Rows are neither added, removed
// nor reordered.
func Reconcile(g EntityGroup, geometryColumns, allColumns []string) Outcome {
	if len(g.Rows) <= 1 {
		return Outcome{}
	}
	col, ok := HasMultipleGeometries(g, geometryColumns)
	if !ok {
		return Outcome{}
	}

	geom := make(map[string]struct{}, len(geometryColumns))
	for _, c := range geometryColumns {
		geom[c] = struct{}{}
	}

	out := Outcome{Triggered: true, Column: col}
	primary := g.Rows[0]
	for _, r := range g.Rows[1:] {
		for _, c := range allColumns {
			if _, isGeom := geom[c]; isGeom {
				continue
			}
			pv := primary[c]
			if records.IsEmpty(pv) || !records.IsEmpty(r[c]) {
				continue
			}
			r[c] = pv
			out.Filled++
		}
	}
	return out
}
