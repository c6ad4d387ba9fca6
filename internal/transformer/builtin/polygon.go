package builtin

import (
	"archesprep/internal/geometry"
	"archesprep/pkg/records"
)

// PolygonDedup removes repeated vertices from POLYGON and MULTIPOLYGON WKT
// values in Fields. Points and linestrings pass untouched. Values that fail
// to parse, or carry another geometry type, are reported through OnError and
// kept.
type PolygonDedup struct {
	Fields    []string
	OnError   func(field, value string, err error)
	OnMissing func(field string)
}

// Apply mutates the records in place.
func (p PolygonDedup) Apply(in []records.Record) []records.Record {
	rules := make([]Rule, 0, len(p.Fields))
	for _, field := range p.Fields {
		rules = append(rules, Rule{
			Field: field,
			Fn: stringFunc(func(_ records.Record, s string) string {
				out, err := geometry.DedupWKT(s)
				if err != nil {
					if p.OnError != nil {
						p.OnError(field, s, err)
					}
					return s
				}
				return out
			}),
		})
	}
	return FieldRules{Rules: rules, OnMissing: p.OnMissing}.Apply(in)
}
