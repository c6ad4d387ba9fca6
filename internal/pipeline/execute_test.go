package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"archesprep/internal/config"
	csvparser "archesprep/internal/parser/csv"
	"archesprep/internal/schema"
	"archesprep/internal/storage"
	"archesprep/pkg/records"

	_ "archesprep/internal/storage/csvfile"
	_ "archesprep/internal/storage/sqlite"
)

const surveyModel = `{"graph": [{"nodes": [
	{"nodeid": "g1", "nodegroup_id": "c1", "datatype": "geojson-feature-collection", "name": "Site element geometry"},
	{"nodeid": "g2", "nodegroup_id": "c1", "datatype": "geojson-feature-collection", "name": "Legal boundary"},
	{"nodeid": "s1", "nodegroup_id": "c2", "datatype": "string", "name": "Site Name"},
	{"nodeid": "s2", "nodegroup_id": "c3", "datatype": "concept", "name": "Site type"}
]}]}`

const surveyCSV = "MAEASaM ID,Site Name,Site type,Survey date,Recorder,Site element geometry\n" +
	"S1, Hill ,Burial,2021/3/14,Jane Doe,\"POLYGON ((0 0, 1 0, 1 0, 1 1, 0 0))\"\n" +
	"S1,,,,,POINT (2 2)\n" +
	"S2,Cave,Rock art,2020/1/2,Unknown Person,\n" +
	"broken,row,with,far,too,many,fields\n"

const actorCSV = "Name value,resourceid\n" +
	"Jane Doe,6F9619FF-8B86-D011-B42D-00C04FC964FF\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// surveyPipeline returns a complete pipeline over files in a temp dir that
// writes to a csv sink.
func surveyPipeline(t *testing.T) (config.Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "out", "clean.csv")
	p := config.Pipeline{
		Job:    "survey",
		Source: config.Source{Kind: "file", File: config.SourceFile{Path: writeFile(t, dir, "sites.csv", surveyCSV)}},
		Schema: writeFile(t, dir, "model.json", surveyModel),
		Transform: []config.Transform{
			{Kind: "normalize"},
			{Kind: "filter", Options: config.Options{"mappings": map[string]any{
				"Site type": map[string]any{"Burial": "Burial Site", "Rock art": "Rock Art Site"},
			}}},
			{Kind: "dates", Options: config.Options{"fields": []any{"Survey date"}}},
			{Kind: "actors", Options: config.Options{
				"path":   writeFile(t, dir, "Actor.csv", actorCSV),
				"fields": []any{"Recorder"},
			}},
			{Kind: "polygon_dedup", Options: config.Options{"fields": []any{"Site element geometry"}}},
		},
		Storage: config.Storage{Kind: "csv", CSV: config.CSVSink{Path: out}},
	}
	p.ApplyDefaults()
	if issues := config.ValidatePipeline(p); config.HasErrors(issues) {
		t.Fatalf("test pipeline invalid: %v", issues)
	}
	return p, out
}

func readCSV(t *testing.T, path string) *records.Table {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	tbl, _, err := csvparser.NewParser(csvparser.Options{Strict: true}).Parse(f)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	return tbl
}

func TestExecuteToCSV(t *testing.T) {
	t.Parallel()

	p, out := surveyPipeline(t)
	sum, err := Execute(context.Background(), p, zap.NewNop())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if sum.Parsed != 4 || sum.Skipped != 1 || sum.Written != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	if !sum.ResourceIDAdded {
		t.Fatal("resource id column was not added")
	}
	if sum.Reconcile.Groups != 2 || sum.Reconcile.Reconciled != 1 {
		t.Fatalf("reconcile stats = %+v", sum.Reconcile)
	}
	if want := []string{"Site element geometry"}; !reflect.DeepEqual(sum.GeometryColumns, want) {
		t.Fatalf("geometry columns = %v, want %v", sum.GeometryColumns, want)
	}

	got := readCSV(t, out)
	wantCols := []string{"ResourceID", "MAEASaM ID", "Site Name", "Site type", "Survey date", "Recorder", "Site element geometry"}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Fatalf("columns = %v, want %v", got.Columns, wantCols)
	}
	if got.Len() != 3 {
		t.Fatalf("rows = %d, want 3", got.Len())
	}

	primary, split, other := got.Rows[0], got.Rows[1], got.Rows[2]
	rel := "[{'resourceId': '6f9619ff-8b86-d011-b42d-00c04fc964ff'"
	checks := []struct {
		what string
		got  any
		want any
	}{
		{"resource id", primary["ResourceID"], "S1"},
		{"trimmed name", primary["Site Name"], "Hill"},
		{"filtered type", primary["Site type"], "Burial Site"},
		{"iso date", primary["Survey date"], "2021-03-14"},
		{"split row name", split["Site Name"], "Hill"},
		{"split row type", split["Site type"], "Burial Site"},
		{"split row date", split["Survey date"], "2021-03-14"},
		{"split row geometry", split["Site element geometry"], "POINT (2 2)"},
		{"unknown actor kept", other["Recorder"], "Unknown Person"},
		{"second entity type", other["Site type"], "Rock Art Site"},
		{"empty geometry", other["Site element geometry"], nil},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.what, c.got, c.want)
		}
	}
	for _, r := range []records.Record{primary, split} {
		if !strings.HasPrefix(r.String("Recorder"), rel) {
			t.Errorf("Recorder = %q, want relationship record", r.String("Recorder"))
		}
	}
	if poly := primary.String("Site element geometry"); !strings.HasPrefix(poly, "POLYGON") || strings.Count(poly, ",") != 3 {
		t.Errorf("polygon = %q, want the repeated vertex removed", poly)
	}
}

func TestExecuteStrictActorsCommitsNothing(t *testing.T) {
	t.Parallel()

	p, out := surveyPipeline(t)
	p.Transform[3].Options["strict"] = true

	_, err := Execute(context.Background(), p, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "Unknown Person") {
		t.Fatalf("Execute error = %v, want unknown actor failure", err)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output written despite failure: %v", err)
	}
}

func TestExecuteMissingEntityColumnPassesThrough(t *testing.T) {
	t.Parallel()

	p, out := surveyPipeline(t)
	p.EntityColumn = "Site ID"
	p.ResourceID.Disabled = true

	sum, err := Execute(context.Background(), p, zap.NewNop())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !sum.PassThrough || sum.Written != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	got := readCSV(t, out)
	if got.HasColumn("ResourceID") {
		t.Fatal("disabled resource id column was added")
	}
	if got.Rows[1]["Site Name"] != nil {
		t.Fatalf("pass-through row was reconciled: %v", got.Rows[1])
	}
}

func TestExecuteBadModelFailsBeforeParsing(t *testing.T) {
	t.Parallel()

	p, out := surveyPipeline(t)
	p.Schema = writeFile(t, t.TempDir(), "bad.json", `{"graph": 7}`)
	p.Source.File.Path = filepath.Join(t.TempDir(), "never-read.csv")

	_, err := Execute(context.Background(), p, nil)
	var le *schema.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Execute error = %v, want *schema.LoadError", err)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output exists: %v", err)
	}
}

func TestExecuteNameClassifier(t *testing.T) {
	t.Parallel()

	p, out := surveyPipeline(t)
	p.Schema = ""
	p.Reconcile.Classifier = config.ClassifierName
	p.Reconcile.Workers = 2

	sum, err := Execute(context.Background(), p, zap.NewNop())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if want := []string{"Site element geometry"}; !reflect.DeepEqual(sum.GeometryColumns, want) {
		t.Fatalf("geometry columns = %v, want %v", sum.GeometryColumns, want)
	}
	if got := readCSV(t, out); got.Rows[1]["Site Name"] != "Hill" {
		t.Fatalf("split row not reconciled: %v", got.Rows[1])
	}
}

func TestExecuteFromHTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/model.json":
			_, _ = w.Write([]byte(surveyModel))
		case "/sites.csv":
			_, _ = w.Write([]byte(surveyCSV))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p, out := surveyPipeline(t)
	p.Source = config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: srv.URL + "/sites.csv"}}
	p.Schema = srv.URL + "/model.json"
	p.HTTP.Headers = map[string]string{"Authorization": "Bearer t0k"}

	sum, err := Execute(context.Background(), p, zap.NewNop())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sum.Written != 3 || sum.Reconcile.Reconciled != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestExecuteToSQLite(t *testing.T) {
	t.Parallel()

	p, _ := surveyPipeline(t)
	dsn := filepath.Join(t.TempDir(), "survey.db")
	p.Storage = config.Storage{Kind: "sqlite", DB: config.DBConfig{DSN: dsn, Table: "sites", AutoCreateTable: true}}

	sum, err := Execute(context.Background(), p, zap.NewNop())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sum.Written != 3 {
		t.Fatalf("written = %d, want 3", sum.Written)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	var name string
	if err := db.QueryRow(`SELECT "Site Name" FROM "sites" WHERE rowid = 2`).Scan(&name); err != nil {
		t.Fatalf("query: %v", err)
	}
	if name != "Hill" {
		t.Fatalf("split row name = %q, want Hill", name)
	}
}

func TestAddResourceID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cols      []string
		wantAdded bool
		wantErr   bool
		wantCols  []string
	}{
		{"added first", []string{"MAEASaM ID", "x"}, true, false, []string{"ResourceID", "MAEASaM ID", "x"}},
		{"present in other case", []string{"resourceid", "MAEASaM ID"}, false, false, []string{"resourceid", "MAEASaM ID"}},
		{"no source column", []string{"x"}, false, true, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tbl := &records.Table{Columns: tt.cols, Rows: []records.Record{{"MAEASaM ID": "S1", "x": "1"}}}
			added, err := AddResourceID(tbl, "ResourceID", "MAEASaM ID")
			if (err != nil) != tt.wantErr || added != tt.wantAdded {
				t.Fatalf("AddResourceID = %v, %v", added, err)
			}
			if !reflect.DeepEqual(tbl.Columns, tt.wantCols) {
				t.Fatalf("columns = %v, want %v", tbl.Columns, tt.wantCols)
			}
			if added && tbl.Rows[0]["ResourceID"] != "S1" {
				t.Fatalf("ResourceID = %v", tbl.Rows[0]["ResourceID"])
			}
		})
	}
}

type failingRepo struct {
	closed bool
}

func (f *failingRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	return 0, errors.New("disk full")
}

func (f *failingRepo) Exec(ctx context.Context, sql string) error { return nil }

func (f *failingRepo) Close() error {
	f.closed = true
	return nil
}

// Not parallel: swaps the package-level repository seam.
func TestExecuteWriteFailureClosesRepository(t *testing.T) {
	orig := newRepositoryFn
	defer func() { newRepositoryFn = orig }()

	repo := &failingRepo{}
	var gotCfg storage.Config
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		gotCfg = cfg
		return repo, nil
	}

	p, _ := surveyPipeline(t)
	p.Storage = config.Storage{Kind: "postgres", DB: config.DBConfig{DSN: "postgres://x", Table: "sites"}}

	_, err := Execute(context.Background(), p, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Execute error = %v, want the copy failure", err)
	}
	if !repo.closed {
		t.Fatal("repository was not closed after a failed write")
	}
	if gotCfg.Kind != "postgres" || gotCfg.Table != "sites" || gotCfg.Columns[0] != "ResourceID" {
		t.Fatalf("storage config = %+v", gotCfg)
	}
}
