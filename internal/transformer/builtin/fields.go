// Package builtin contains the cleaning transformers used before
// reconciliation: string normalisation, categorical value substitution, date
// reformatting, actor references and polygon vertex deduplication.
//
// Field-oriented transformers are declared as a table of {field -> func}
// rules and executed by FieldRules, which applies every rule the same way and
// reports fields that are absent from the input instead of skipping them
// silently.
package builtin

import "archesprep/pkg/records"

// FieldFunc computes the new value of a field. row is the whole record, for
// rules that depend on other fields; v is the current value of the field.
type FieldFunc func(row records.Record, v any) any

// Rule binds a FieldFunc to a field name.
type Rule struct {
	Field string
	Fn    FieldFunc
}

// FieldRules applies its rules, in order, to every record.
type FieldRules struct {
	Rules []Rule

	// OnMissing is called once per Apply for each rule whose field is absent
	// from every record. Nil ignores missing fields.
	OnMissing func(field string)
}

// Apply mutates the records in place and returns them.
func (f FieldRules) Apply(in []records.Record) []records.Record {
	for _, rule := range f.Rules {
		seen := false
		for _, r := range in {
			v, ok := r[rule.Field]
			if !ok {
				continue
			}
			seen = true
			r[rule.Field] = rule.Fn(r, v)
		}
		if !seen && len(in) > 0 && f.OnMissing != nil {
			f.OnMissing(rule.Field)
		}
	}
	return in
}

// stringFunc lifts a string rewrite into a FieldFunc. Non-string and empty
// values pass through; an empty result is stored as nil.
func stringFunc(fn func(row records.Record, s string) string) FieldFunc {
	return func(row records.Record, v any) any {
		s, ok := v.(string)
		if !ok || records.IsEmpty(s) {
			return v
		}
		out := fn(row, s)
		if out == "" {
			return nil
		}
		return out
	}
}
