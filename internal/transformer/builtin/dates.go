package builtin

import (
	"strings"
	"time"

	"archesprep/pkg/records"
)

// Default layouts: survey sheets use 2021/3/14, the importer wants ISO dates.
const (
	DefaultFromLayout = "2006/1/2"
	DefaultToLayout   = "2006-01-02"
)

// Placeholder replaces tokens inside Field with the value of From, e.g. a
// "20XX" imagery date that should take the survey date.
type Placeholder struct {
	Field  string
	Tokens []string
	From   string
}

// Dates reformats date fields and then resolves placeholders. Values that do
// not parse with FromLayout are kept as they are.
type Dates struct {
	Fields       []string
	FromLayout   string
	ToLayout     string
	Placeholders []Placeholder
	OnMissing    func(field string)
}

// ConvertDate reformats s from one layout to another, returning s unchanged
// when it does not parse.
func ConvertDate(s, from, to string) string {
	t, err := time.Parse(from, strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return t.Format(to)
}

// Apply mutates the records in place.
func (d Dates) Apply(in []records.Record) []records.Record {
	from, to := d.FromLayout, d.ToLayout
	if from == "" {
		from = DefaultFromLayout
	}
	if to == "" {
		to = DefaultToLayout
	}

	rules := make([]Rule, 0, len(d.Fields)+len(d.Placeholders))
	for _, f := range d.Fields {
		rules = append(rules, Rule{
			Field: f,
			Fn: stringFunc(func(_ records.Record, s string) string {
				return ConvertDate(s, from, to)
			}),
		})
	}
	for _, p := range d.Placeholders {
		rules = append(rules, Rule{
			Field: p.Field,
			Fn: stringFunc(func(row records.Record, s string) string {
				for _, tok := range p.Tokens {
					if tok == "" || !strings.Contains(s, tok) {
						continue
					}
					s = strings.ReplaceAll(s, tok, row.String(p.From))
				}
				return s
			}),
		})
	}
	return FieldRules{Rules: rules, OnMissing: d.OnMissing}.Apply(in)
}
