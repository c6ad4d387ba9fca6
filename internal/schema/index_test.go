package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const resourceModel = `{
  "graph": [
    {
      "nodes": [
        {"nodeid": "node1", "nodegroup_id": "card1", "datatype": "geojson-feature-collection", "name": "Site element geometry"},
        {"nodeid": "node2", "nodegroup_id": "card1", "datatype": "geojson-feature-collection", "name": "Legal boundary"},
        {"nodeid": "node3", "nodegroup_id": "card2", "datatype": "string", "name": "Site name"},
        {"nodeid": "node4", "nodegroup_id": "card3", "datatype": "geojson-feature-collection", "name": "Another geometry"},
        {"nodeid": "node5", "nodegroup_id": "card1", "datatype": "string", "name": "Geometry notes"}
      ]
    }
  ]
}`

func mustBuild(t *testing.T, doc string) *Index {
	t.Helper()
	idx, err := Build(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestBuildGeometryCards(t *testing.T) {
	idx := mustBuild(t, resourceModel)

	want := map[string][]string{
		"card1": {"Site element geometry", "Legal boundary"},
		"card3": {"Another geometry"},
	}
	if got := idx.GeometryCards(); !reflect.DeepEqual(got, want) {
		t.Fatalf("GeometryCards() = %#v, want %#v", got, want)
	}
	if idx.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", idx.Len())
	}
}

func TestGeometryFieldNames(t *testing.T) {
	idx := mustBuild(t, resourceModel)
	want := []string{"Site element geometry", "Legal boundary", "Another geometry"}
	if got := idx.GeometryFieldNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("GeometryFieldNames() = %#v, want %#v", got, want)
	}
}

func TestFieldsInGroupOf(t *testing.T) {
	idx := mustBuild(t, resourceModel)

	tests := []struct {
		name  string
		field string
		want  []string
	}{
		{"geometry member", "Legal boundary", []string{"Site element geometry", "Legal boundary", "Geometry notes"}},
		{"scalar member", "Geometry notes", []string{"Site element geometry", "Legal boundary", "Geometry notes"}},
		{"singleton card", "Site name", []string{"Site name"}},
		{"node id alias", "node4", []string{"Another geometry"}},
		{"unknown", "Nope", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.FieldsInGroupOf(tt.field)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FieldsInGroupOf(%q) = %#v, want %#v", tt.field, got, tt.want)
			}
		})
	}
}

func TestBuildAcceptedShapes(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantGeom []string
	}{
		{"empty object", `{}`, nil},
		{"empty graph list", `{"graph": []}`, nil},
		{"graph without nodes", `{"graph": [{"graphid": "g"}]}`, nil},
		{"bare graph", `{"nodes": [{"name": "g", "nodegroup_id": "c", "datatype": "geojson-feature-collection"}]}`, []string{"g"}},
		{"graph array", `[{"nodes": [{"name": "g", "nodegroup_id": "c", "datatype": "geojson-feature-collection"}]}]`, []string{"g"}},
		{"null nodegroup", `{"graph": [{"nodes": [{"name": "root", "nodegroup_id": null, "datatype": "semantic"}]}]}`, nil},
		{"node id as key", `{"graph": [{"nodes": [{"nodeid": "n1", "nodegroup_id": "c", "datatype": "geojson-feature-collection"}]}]}`, []string{"n1"}},
		{"bom prefix", "\ufeff" + `{"graph": []}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := mustBuild(t, tt.doc)
			got := idx.GeometryFieldNames()
			if len(got) == 0 && len(tt.wantGeom) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.wantGeom) {
				t.Fatalf("GeometryFieldNames() = %#v, want %#v", got, tt.wantGeom)
			}
		})
	}
}

func TestBuildTrailingWhitespaceAccepted(t *testing.T) {
	idx := mustBuild(t, "{\"graph\": []}\n\n  ")
	if idx.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", idx.Len())
	}
}

func TestUngroupedNodesAreOwnCards(t *testing.T) {
	idx := mustBuild(t, `{"graph": [{"nodes": [
		{"nodeid": "r", "name": "Root", "nodegroup_id": null, "datatype": "semantic"},
		{"nodeid": "g", "name": "Loose geometry", "nodegroup_id": null, "datatype": "geojson-feature-collection"},
		{"nodeid": "n", "name": "Site name", "nodegroup_id": "c1", "datatype": "string"}
	]}]}`)

	for _, name := range []string{"Root", "Loose geometry"} {
		if got := idx.FieldsInGroupOf(name); !reflect.DeepEqual(got, []string{name}) {
			t.Fatalf("FieldsInGroupOf(%q) = %#v, want only itself", name, got)
		}
	}
	want := map[string][]string{"Loose geometry": {"Loose geometry"}}
	if got := idx.GeometryCards(); !reflect.DeepEqual(got, want) {
		t.Fatalf("GeometryCards() = %#v, want %#v", got, want)
	}
}

func TestBuildDuplicateNameFirstWins(t *testing.T) {
	idx := mustBuild(t, `{"graph": [{"nodes": [
		{"nodeid": "a", "name": "Geom", "nodegroup_id": "c1", "datatype": "geojson-feature-collection"},
		{"nodeid": "b", "name": "Geom", "nodegroup_id": "c2", "datatype": "string"}
	]}]}`)
	f, ok := idx.Field("Geom")
	if !ok || f.GroupID != "c1" || !f.IsGeometry() {
		t.Fatalf("Field(Geom) = %+v, %v", f, ok)
	}
	if _, ok := idx.Field("b"); ok {
		t.Fatalf("shadowed node id should not be indexed")
	}
}

func TestBuildLoadErrors(t *testing.T) {
	docs := map[string]string{
		"empty":           ``,
		"not json":        `graph: []`,
		"truncated":       `{"graph": [`,
		"graph not list":  `{"graph": {"nodes": []}}`,
		"name not text":   `{"graph": [{"nodes": [{"name": 5}]}]}`,
		"scalar root":     `42`,
		"trailing text":   `{"graph": []} trailing`,
		"trailing array":  `[] garbage`,
		"second document": `{"graph": []}{"graph": [`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := Build(strings.NewReader(doc))
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("Build error = %v, want *LoadError", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, []byte(resourceModel), 0o644); err != nil {
		t.Fatal(err)
	}

	idx, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(idx.GeometryFieldNames()) != 3 {
		t.Fatalf("unexpected geometry fields: %v", idx.GeometryFieldNames())
	}

	_, err = Load(context.Background(), filepath.Join(dir, "missing.json"))
	var le *LoadError
	if !errors.As(err, &le) || le.Source != filepath.Join(dir, "missing.json") {
		t.Fatalf("Load(missing) error = %v, want *LoadError with path", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load(missing) should wrap os.ErrNotExist, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"graph": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(context.Background(), bad)
	if !errors.As(err, &le) || le.Source != bad {
		t.Fatalf("Load(bad) error = %v, want *LoadError with path", err)
	}
}
