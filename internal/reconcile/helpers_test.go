package reconcile

import (
	"strings"
	"testing"

	"archesprep/internal/schema"
	"archesprep/pkg/records"
)

const testModel = `{"graph": [{"nodes": [
	{"nodeid": "n1", "nodegroup_id": "card1", "datatype": "geojson-feature-collection", "name": "geomA"},
	{"nodeid": "n2", "nodegroup_id": "card1", "datatype": "geojson-feature-collection", "name": "geomB"},
	{"nodeid": "n3", "nodegroup_id": "card2", "datatype": "string", "name": "name"},
	{"nodeid": "n4", "nodegroup_id": "card3", "datatype": "geojson-feature-collection", "name": "unusedGeom"}
]}]}`

func testIndex(t *testing.T) *schema.Index {
	t.Helper()
	idx, err := schema.Build(strings.NewReader(testModel))
	if err != nil {
		t.Fatalf("schema.Build: %v", err)
	}
	return idx
}

// table builds a Table from a header and positional rows; "" becomes nil, as
// the CSV parser does.
func table(cols []string, rows ...[]string) *records.Table {
	t := &records.Table{Columns: cols}
	for _, row := range rows {
		r := make(records.Record, len(cols))
		for i, c := range cols {
			if row[i] == "" {
				r[c] = nil
			} else {
				r[c] = row[i]
			}
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func mustGroup(t *testing.T, tbl *records.Table, col string) []EntityGroup {
	t.Helper()
	groups, err := Group(tbl, col)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	return groups
}
