// Package transformer defines the record-level cleaning stage that runs
// before reconciliation. Concrete transformers live in package builtin.
package transformer

import "archesprep/pkg/records"

// Transformer rewrites a batch of records. Implementations may mutate the
// records in place and return the same slice.
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every transformer in order, feeding each the previous output.
func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// Func adapts a plain function to Transformer.
type Func func([]records.Record) []records.Record

// Apply calls f.
func (f Func) Apply(in []records.Record) []records.Record { return f(in) }
