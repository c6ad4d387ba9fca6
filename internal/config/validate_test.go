package config

import (
	"strings"
	"testing"
)

func validPipeline() Pipeline {
	p := Pipeline{
		Job:    "sites",
		Source: Source{Kind: "file", File: SourceFile{Path: "sites.csv"}},
		Schema: "model.json",
		Transform: []Transform{
			{Kind: "normalize"},
			{Kind: "filter", Options: Options{"path": "filters.json"}},
			{Kind: "dates", Options: Options{"fields": []any{"Survey date"}}},
			{Kind: "actors", Options: Options{"path": "Actor.csv", "fields": []any{"Surveyor name"}}},
			{Kind: "polygon_dedup", Options: Options{"fields": []any{"Geometry type"}}},
		},
		Storage: Storage{Kind: "csv", CSV: CSVSink{Path: "out.csv"}},
	}
	p.ApplyDefaults()
	return p
}

func hasIssue(issues []Issue, sev IssueSeverity, path string) bool {
	for _, i := range issues {
		if i.Severity == sev && i.Path == path {
			return true
		}
	}
	return false
}

func TestValidatePipeline_Valid(t *testing.T) {
	t.Parallel()

	if issues := ValidatePipeline(validPipeline()); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestValidatePipeline_Issues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
	}{
		{"empty job", func(p *Pipeline) { p.Job = " " }, SeverityError, "job"},
		{"unknown source", func(p *Pipeline) { p.Source.Kind = "s3" }, SeverityError, "source.kind"},
		{"file without path", func(p *Pipeline) { p.Source.File.Path = "" }, SeverityError, "source.file.path"},
		{"bad url", func(p *Pipeline) { p.Source = Source{Kind: "http", HTTP: SourceHTTP{URL: "ftp://x"}} }, SeverityError, "source.http.url"},
		{"negative retries", func(p *Pipeline) { p.HTTP.MaxRetries = -1 }, SeverityError, "http.max_retries"},
		{"xml parser", func(p *Pipeline) { p.Parser.Kind = "xml" }, SeverityError, "parser.kind"},
		{"long comma", func(p *Pipeline) { p.Parser.Options = Options{"comma": ";;"} }, SeverityError, "parser.options.comma"},
		{"bad encoding", func(p *Pipeline) { p.Parser.Options = Options{"encoding": "ebcdic"} }, SeverityError, "parser.options.encoding"},
		{"schema missing", func(p *Pipeline) { p.Schema = "" }, SeverityError, "schema"},
		{"bad classifier", func(p *Pipeline) { p.Reconcile.Classifier = "magic" }, SeverityError, "reconcile.classifier"},
		{"negative workers", func(p *Pipeline) { p.Reconcile.Workers = -2 }, SeverityError, "reconcile.workers"},
		{"reconcile disabled", func(p *Pipeline) { p.Reconcile.Disabled = true }, SeverityWarning, "reconcile.disabled"},
		{"no transforms", func(p *Pipeline) { p.Transform = nil }, SeverityWarning, "transform"},
		{"unknown transform", func(p *Pipeline) { p.Transform[0].Kind = "coerce" }, SeverityError, "transform[0].kind"},
		{"filter without source", func(p *Pipeline) { p.Transform[1].Options = Options{} }, SeverityError, "transform[1].options"},
		{"dates without fields", func(p *Pipeline) { p.Transform[2].Options = Options{} }, SeverityError, "transform[2].options.fields"},
		{"bad placeholder", func(p *Pipeline) {
			p.Transform[2].Options["placeholders"] = []any{map[string]any{"field": "Date of imagery"}}
		}, SeverityError, "transform[2].options.placeholders[0]"},
		{"actors without path", func(p *Pipeline) { delete(p.Transform[3].Options, "path") }, SeverityError, "transform[3].options.path"},
		{"polygon without fields", func(p *Pipeline) { p.Transform[4].Options = Options{} }, SeverityError, "transform[4].options.fields"},
		{"unknown storage", func(p *Pipeline) { p.Storage.Kind = "parquet" }, SeverityError, "storage.kind"},
		{"csv without path", func(p *Pipeline) { p.Storage.CSV.Path = "" }, SeverityError, "storage.csv.path"},
		{"db without dsn", func(p *Pipeline) { p.Storage = Storage{Kind: "postgres", DB: DBConfig{Table: "t"}} }, SeverityError, "storage.db.dsn"},
		{"db without table", func(p *Pipeline) { p.Storage = Storage{Kind: "sqlite", DB: DBConfig{DSN: "x.db"}} }, SeverityError, "storage.db.table"},
		{"zero batch", func(p *Pipeline) { p.Runtime.BatchSize = 0 }, SeverityWarning, "runtime.batch_size"},
		{"pushgateway without addr", func(p *Pipeline) { p.Runtime.MetricsBackend = "pushgateway" }, SeverityError, "runtime.metrics_addr"},
		{"unknown metrics", func(p *Pipeline) { p.Runtime.MetricsBackend = "graphite" }, SeverityError, "runtime.metrics_backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := validPipeline()
			tt.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(issues, tt.sev, tt.path) {
				t.Fatalf("want %s at %s, got %v", tt.sev, tt.path, issues)
			}
			if tt.sev == SeverityError && !HasErrors(issues) {
				t.Fatal("HasErrors = false")
			}
		})
	}
}

func TestValidatePipeline_NameClassifierNeedsNoSchema(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Schema = ""
	p.Reconcile.Classifier = ClassifierName
	if issues := ValidatePipeline(p); HasErrors(issues) {
		t.Fatalf("unexpected errors: %v", issues)
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	got := Issue{Severity: SeverityError, Path: "job", Message: "empty"}.Error()
	if !strings.Contains(got, "error at job: empty") {
		t.Fatalf("Error() = %q", got)
	}
}
