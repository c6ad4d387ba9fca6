package config

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	csvparser "archesprep/internal/parser/csv"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "transform[1].options.fields"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Transform kinds understood by the pipeline.
var TransformKinds = []string{"normalize", "filter", "dates", "actors", "polygon_dedup"}

// StorageKinds understood by the pipeline.
var StorageKinds = []string{"csv", "postgres", "sqlite", "mssql", "mysql"}

// ValidatePipeline performs static validation of a Pipeline with defaults
// applied. It never mutates p; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var v validator

	if strings.TrimSpace(p.Job) == "" {
		v.errorf("job", "job must not be empty; it labels logs and metrics")
	}
	v.source(p.Source)
	v.http(p.HTTP)
	v.parser(p.Parser)
	if strings.TrimSpace(p.EntityColumn) == "" {
		v.errorf("entity_column", "entity_column must not be empty")
	}
	if !p.ResourceID.Disabled && strings.TrimSpace(p.ResourceID.Column) == "" {
		v.errorf("resource_id.column", "resource_id.column must not be empty unless disabled")
	}
	v.reconcile(p.Reconcile, p.Schema)
	v.transforms(p.Transform)
	v.storage(p.Storage)
	v.runtime(p.Runtime)
	return v.issues
}

type validator struct{ issues []Issue }

func (v *validator) errorf(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) warnf(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) source(s Source) {
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			v.errorf("source.file.path", "file source requires a non-empty path")
		}
	case "http":
		v.url("source.http.url", s.HTTP.URL)
	case "":
		v.errorf("source.kind", "source.kind must not be empty")
	default:
		v.errorf("source.kind", "unknown source kind %q; want file or http", s.Kind)
	}
}

func (v *validator) url(path, raw string) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.errorf(path, "%q is not an absolute http(s) URL", raw)
	}
}

func (v *validator) http(h HTTP) {
	if h.TimeoutSeconds < 0 {
		v.errorf("http.timeout_seconds", "timeout_seconds must not be negative")
	}
	if h.MaxRetries < 0 {
		v.errorf("http.max_retries", "max_retries must not be negative")
	}
}

func (v *validator) parser(p Parser) {
	if p.Kind != "csv" {
		v.errorf("parser.kind", "unknown parser kind %q; only csv is supported", p.Kind)
		return
	}
	if c := p.Options.String("comma", ""); utf8.RuneCountInString(c) > 1 {
		v.errorf("parser.options.comma", "comma must be a single character, got %q", c)
	}
	if _, err := csvparser.Decoder(p.Options.String("encoding", "")); err != nil {
		v.errorf("parser.options.encoding", "%v", err)
	}
}

func (v *validator) reconcile(r Reconcile, schema string) {
	if r.Disabled {
		v.warnf("reconcile.disabled", "reconciliation is disabled; split entities are written as-is")
		return
	}
	switch r.Classifier {
	case ClassifierSchema:
		if strings.TrimSpace(schema) == "" {
			v.errorf("schema", "schema classifier requires a resource model path or URL")
		}
	case ClassifierName:
	default:
		v.errorf("reconcile.classifier", "unknown classifier %q; want schema or name", r.Classifier)
	}
	if r.Workers < 0 {
		v.errorf("reconcile.workers", "workers must not be negative")
	}
}

func (v *validator) transforms(ts []Transform) {
	if len(ts) == 0 {
		v.warnf("transform", "no transforms configured; rows are reconciled without cleaning")
		return
	}
	for i, t := range ts {
		at := func(key string) string { return fmt.Sprintf("transform[%d].%s", i, key) }
		switch t.Kind {
		case "normalize":
		case "filter":
			if t.Options.String("path", "") == "" && !t.Options.Has("mappings") {
				v.errorf(at("options"), "filter needs a path or inline mappings")
			}
		case "dates":
			if len(t.Options.StringSlice("fields")) == 0 && len(t.Options.Objects("placeholders")) == 0 {
				v.errorf(at("options.fields"), "dates needs fields or placeholders")
			}
			for j, ph := range t.Options.Objects("placeholders") {
				if ph.String("field", "") == "" || ph.String("from", "") == "" || len(ph.StringSlice("tokens")) == 0 {
					v.errorf(at(fmt.Sprintf("options.placeholders[%d]", j)), "placeholder needs field, from and tokens")
				}
			}
		case "actors":
			if t.Options.String("path", "") == "" {
				v.errorf(at("options.path"), "actors needs the actor lookup CSV path")
			}
			if len(t.Options.StringSlice("fields")) == 0 {
				v.errorf(at("options.fields"), "actors needs at least one field")
			}
		case "polygon_dedup":
			if len(t.Options.StringSlice("fields")) == 0 {
				v.errorf(at("options.fields"), "polygon_dedup needs at least one field")
			}
		case "":
			v.errorf(at("kind"), "transform kind must not be empty")
		default:
			v.errorf(at("kind"), "unknown transform kind %q; want one of %s", t.Kind, strings.Join(TransformKinds, ", "))
		}
	}
}

func (v *validator) storage(s Storage) {
	switch s.Kind {
	case "csv":
		if strings.TrimSpace(s.CSV.Path) == "" {
			v.errorf("storage.csv.path", "csv sink requires a non-empty path")
		}
	case "postgres", "sqlite", "mssql", "mysql":
		if strings.TrimSpace(s.DB.DSN) == "" {
			v.errorf("storage.db.dsn", "storage.db.dsn must not be empty")
		}
		if strings.TrimSpace(s.DB.Table) == "" {
			v.errorf("storage.db.table", "storage.db.table must not be empty")
		}
	case "":
		v.errorf("storage.kind", "storage.kind must not be empty")
	default:
		v.errorf("storage.kind", "unknown storage kind %q; want one of %s", s.Kind, strings.Join(StorageKinds, ", "))
	}
}

func (v *validator) runtime(r RuntimeConfig) {
	if r.BatchSize <= 0 {
		v.warnf("runtime.batch_size", "batch_size=%d; non-positive batch sizes fall back to the default", r.BatchSize)
	}
	switch r.MetricsBackend {
	case "none", "datadog":
	case "pushgateway":
		if r.MetricsAddr == "" {
			v.errorf("runtime.metrics_addr", "pushgateway backend requires metrics_addr")
		}
	default:
		v.errorf("runtime.metrics_backend", "unknown metrics backend %q; want none, pushgateway or datadog", r.MetricsBackend)
	}
}
