package reconcile

import (
	"errors"
	"fmt"

	"archesprep/pkg/records"
)

// ErrMissingIdentifierColumn is matched (errors.Is) by the error Group
// returns when the entity column is absent. It is a degraded mode, not a
// failure: callers pass the table through unchanged.
var ErrMissingIdentifierColumn = errors.New("entity identifier column not found")

// MissingColumnError names the missing column and the columns that were
// available.
type MissingColumnError struct {
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%v: %q (available: %q)", ErrMissingIdentifierColumn, e.Column, e.Available)
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingIdentifierColumn }

// EntityGroup is the ordered set of rows sharing one identifier value. Rows
// holds the records themselves, Index their positions in the source table.
// Rows[0] is the primary row.
type EntityGroup struct {
	ID    string
	Index []int
	Rows  []records.Record
}

// Len returns the number of rows in the group.
func (g EntityGroup) Len() int { return len(g.Rows) }

// Group partitions the table rows by the exact string value of idColumn. No
// trimming or case folding is applied. Groups follow the first occurrence of
// their identifier; rows keep input order inside a group.
//
// Rows with an empty identifier each form their own group, so unrelated
// records are never reconciled together.
func Group(t *records.Table, idColumn string) ([]EntityGroup, error) {
	if !t.HasColumn(idColumn) {
		return nil, &MissingColumnError{
			Column:    idColumn,
			Available: append([]string(nil), t.Columns...),
		}
	}

	pos := make(map[string]int, len(t.Rows))
	groups := make([]EntityGroup, 0, len(t.Rows))
	for i, r := range t.Rows {
		v := r[idColumn]
		if records.IsEmpty(v) {
			groups = append(groups, EntityGroup{
				ID:    records.ToString(v),
				Index: []int{i},
				Rows:  []records.Record{r},
			})
			continue
		}
		id := records.ToString(v)
		if g, ok := pos[id]; ok {
			groups[g].Index = append(groups[g].Index, i)
			groups[g].Rows = append(groups[g].Rows, r)
			continue
		}
		pos[id] = len(groups)
		groups = append(groups, EntityGroup{
			ID:    id,
			Index: []int{i},
			Rows:  []records.Record{r},
		})
	}
	return groups, nil
}
