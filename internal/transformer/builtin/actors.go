package builtin

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	csvparser "archesprep/internal/parser/csv"
	"archesprep/pkg/records"
)

// CIDOC-CRM properties used for actor relationships by default.
const (
	DefaultActorProperty        = "http://www.cidoc-crm.org/cidoc-crm/P11_had_participant"
	DefaultActorInverseProperty = "http://www.cidoc-crm.org/cidoc-crm/P140_assigned_attribute_to"
)

// Default columns of the actor export.
const (
	DefaultActorNameColumn = "Name value"
	DefaultActorIDColumn   = "resourceid"
)

// ActorLookup maps an actor's display name to its resource UUID.
type ActorLookup map[string]string

// LoadActorLookup reads an actor export CSV and indexes nameCol -> idCol.
// Every id must be a UUID; the canonical lower-case form is stored. Rows
// without a name are skipped.
func LoadActorLookup(r io.Reader, nameCol, idCol string) (ActorLookup, error) {
	if nameCol == "" {
		nameCol = DefaultActorNameColumn
	}
	if idCol == "" {
		idCol = DefaultActorIDColumn
	}
	tbl, _, err := csvparser.NewParser(csvparser.Options{TrimSpace: true, Strict: true}).Parse(r)
	if err != nil {
		return nil, fmt.Errorf("actor lookup: %w", err)
	}
	for _, c := range []string{nameCol, idCol} {
		if !tbl.HasColumn(c) {
			return nil, fmt.Errorf("actor lookup: column %q not found", c)
		}
	}

	out := make(ActorLookup, len(tbl.Rows))
	for i, row := range tbl.Rows {
		name := row.String(nameCol)
		if name == "" {
			continue
		}
		id, err := uuid.Parse(row.String(idCol))
		if err != nil {
			// Data rows start on line 2.
			return nil, fmt.Errorf("actor lookup: line %d: %q: %w", i+2, name, err)
		}
		out[name] = id.String()
	}
	return out, nil
}

// Actors rewrites actor-name fields as relationship records pointing at the
// actor resource. Names are looked up exactly, then trimmed. Unknown names
// are reported through OnUnknown and kept; values that already are
// relationship records are left alone, so the transform is idempotent.
type Actors struct {
	Fields          []string
	Lookup          ActorLookup
	Property        string
	InverseProperty string
	OnUnknown       func(field, name string)
	OnMissing       func(field string)
}

const relationshipPrefix = "[{'resourceId':"

// Relationship renders the relationship record for a resource id.
func Relationship(id, property, inverse string) string {
	return "[{'resourceId': '" + id +
		"','ontologyProperty': '" + property +
		"', 'resourceXresourceId': '','inverseOntologyProperty': '" + inverse + "'}]"
}

// Apply mutates the records in place.
func (a Actors) Apply(in []records.Record) []records.Record {
	prop, inv := a.Property, a.InverseProperty
	if prop == "" {
		prop = DefaultActorProperty
	}
	if inv == "" {
		inv = DefaultActorInverseProperty
	}

	rules := make([]Rule, 0, len(a.Fields))
	for _, field := range a.Fields {
		rules = append(rules, Rule{
			Field: field,
			Fn: stringFunc(func(_ records.Record, name string) string {
				if strings.HasPrefix(name, relationshipPrefix) {
					return name
				}
				id, ok := a.Lookup[name]
				if !ok {
					id, ok = a.Lookup[strings.TrimSpace(name)]
				}
				if !ok {
					if a.OnUnknown != nil {
						a.OnUnknown(field, name)
					}
					return name
				}
				return Relationship(id, prop, inv)
			}),
		})
	}
	return FieldRules{Rules: rules, OnMissing: a.OnMissing}.Apply(in)
}
