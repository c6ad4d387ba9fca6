package records

import (
	"reflect"
	"testing"
)

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, true},
		{"", true},
		{"NA", true},
		{"NaN", true},
		{"null", true},
		{"<NA>", true},
		{" ", false},
		{"0", false},
		{"Alpha", false},
		{0, false},
		{false, false},
	}
	for _, tt := range tests {
		if got := IsEmpty(tt.in); got != tt.want {
			t.Errorf("IsEmpty(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRecordString(t *testing.T) {
	r := Record{"a": "x", "b": nil, "c": 42, "d": "NA"}
	cases := map[string]string{"a": "x", "b": "", "c": "42", "d": "", "missing": ""}
	for col, want := range cases {
		if got := r.String(col); got != want {
			t.Errorf("String(%q) = %q, want %q", col, got, want)
		}
	}
}

func TestTableCloneIsIndependent(t *testing.T) {
	tbl := &Table{
		Columns: []string{"id", "name"},
		Rows:    []Record{{"id": "1", "name": "a"}},
	}
	cp := tbl.Clone()
	cp.Rows[0]["name"] = "b"
	cp.Columns[0] = "ID"

	if tbl.Rows[0]["name"] != "a" {
		t.Fatalf("clone shares rows with original")
	}
	if tbl.Columns[0] != "id" {
		t.Fatalf("clone shares columns with original")
	}
}

func TestTableValues(t *testing.T) {
	tbl := &Table{
		Columns: []string{"id", "name", "geom"},
		Rows: []Record{
			{"id": "1", "name": "a"},
			{"id": "2", "name": nil, "geom": "POINT (1 1)"},
		},
	}
	got := tbl.Values()
	want := [][]any{
		{"1", "a", nil},
		{"2", nil, "POINT (1 1)"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Values() = %#v, want %#v", got, want)
	}
	if !tbl.HasColumn("geom") || tbl.HasColumn("GEOM") {
		t.Fatalf("HasColumn mismatch")
	}
}
