package builtin

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"golang.org/x/text/unicode/norm"

	"archesprep/pkg/records"
)

// Mappings is the filters document: field -> {source value -> replacement}.
type Mappings map[string]map[string]string

// LoadMappings decodes a filters document such as
//
//	{"Site type": {"Burial": "Burial Site", "Rock art": "Rock Art Site"}}
func LoadMappings(r io.Reader) (Mappings, error) {
	var m Mappings
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode filters: %w", err)
	}
	return m, nil
}

// Filter substitutes categorical values through Mappings. Keys and values are
// compared after NFC normalisation, so composed and decomposed spellings of
// the same label match. Values without a mapping are kept.
type Filter struct {
	rules FieldRules
}

// NewFilter compiles m. Fields are applied in sorted order so runs are
// reproducible.
func NewFilter(m Mappings, onMissing func(field string)) Filter {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	rules := make([]Rule, 0, len(fields))
	for _, field := range fields {
		table := make(map[string]string, len(m[field]))
		for from, to := range m[field] {
			table[norm.NFC.String(from)] = to
		}
		rules = append(rules, Rule{
			Field: field,
			Fn: stringFunc(func(_ records.Record, s string) string {
				if to, ok := table[s]; ok {
					return to
				}
				if to, ok := table[norm.NFC.String(s)]; ok {
					return to
				}
				return s
			}),
		})
	}
	return Filter{rules: FieldRules{Rules: rules, OnMissing: onMissing}}
}

// Apply mutates the records in place.
func (f Filter) Apply(in []records.Record) []records.Record { return f.rules.Apply(in) }
