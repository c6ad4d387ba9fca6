// Package reconcile implements geometry-aware reconciliation of rows that
// describe the same entity.
//
// An entity that owns several independent geometries arrives as several
// rows: one row per geometry, with the descriptive fields usually filled in
// only on the first. The package groups rows by entity, decides whether a
// group really carries several geometries, and if so backfills the empty
// descriptive cells of the later rows from the first (primary) row. Geometry
// cells are never written.
package reconcile

import (
	"strings"

	"archesprep/internal/schema"
)

// GeometrySource is the part of the schema index the classifier needs.
type GeometrySource interface {
	GeometryFieldNames() []string
}

var _ GeometrySource = (*schema.Index)(nil)

// ClassifyColumns returns the table columns that the schema marks as
// geometry-bearing, in table order. Geometry fields missing from the table
// are ignored; schema and table are versioned independently.
func ClassifyColumns(columns []string, src GeometrySource) []string {
	geom := make(map[string]struct{})
	for _, name := range src.GeometryFieldNames() {
		geom[name] = struct{}{}
	}
	var out []string
	for _, c := range columns {
		if _, ok := geom[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// DefaultNameHints are the substrings ClassifyByName looks for when none are
// given.
var DefaultNameHints = []string{"geometry", "geom"}

// ClassifyByName returns the columns whose lowercased name contains any of
// hints. It is the schema-free alternative to ClassifyColumns for inputs
// without a resource model.
func ClassifyByName(columns []string, hints []string) []string {
	if len(hints) == 0 {
		hints = DefaultNameHints
	}
	var out []string
	for _, c := range columns {
		lc := strings.ToLower(c)
		for _, h := range hints {
			if h != "" && strings.Contains(lc, strings.ToLower(h)) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
