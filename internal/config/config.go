// Package config defines the pipeline file model. A pipeline names its
// inputs (survey CSV, resource model, lookup files), the cleaning transforms,
// the reconciliation settings, and the sink. Files are JSON or YAML, chosen
// by extension.
//
// Example (YAML, trimmed):
//
//	job: maeasam-sites
//	source: { kind: file, file: { path: data/sites.csv } }
//	schema: models/Heritage Place.json
//	entity_column: MAEASaM ID
//	transform:
//	  - kind: dates
//	    options: { fields: [Survey date, Date of imagery] }
//	storage: { kind: csv, csv: { path: out/sites.csv } }
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultEntityColumn     = "MAEASaM ID"
	DefaultResourceIDColumn = "ResourceID"
	DefaultBatchSize        = 1000
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" yaml:"job,omitempty"`

	// Source is the survey CSV.
	Source Source `json:"source" yaml:"source,omitempty"`

	// Schema is the resource model JSON, as a path or http(s) URL.
	Schema string `json:"schema" yaml:"schema,omitempty"`

	// HTTP configures fetching for every URL location in the file.
	HTTP HTTP `json:"http" yaml:"http,omitempty"`

	// Parser configures how the source bytes become a table.
	Parser Parser `json:"parser" yaml:"parser,omitempty"`

	// EntityColumn holds the survey-wide entity identifier used for grouping.
	EntityColumn string `json:"entity_column" yaml:"entity_column,omitempty"`

	ResourceID ResourceID `json:"resource_id" yaml:"resource_id,omitempty"`

	// Transform lists the ordered cleaning steps run before reconciliation.
	Transform []Transform `json:"transform" yaml:"transform,omitempty"`

	Reconcile Reconcile     `json:"reconcile" yaml:"reconcile,omitempty"`
	Storage   Storage       `json:"storage" yaml:"storage,omitempty"`
	Runtime   RuntimeConfig `json:"runtime" yaml:"runtime,omitempty"`
}

// Source identifies the input. Kind is "file" or "http".
type Source struct {
	Kind string     `json:"kind" yaml:"kind,omitempty"`
	File SourceFile `json:"file" yaml:"file,omitempty"`
	HTTP SourceHTTP `json:"http" yaml:"http,omitempty"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path,omitempty"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL string `json:"url" yaml:"url,omitempty"`
}

// Location returns the path or URL the source reads from.
func (s Source) Location() string {
	if s.Kind == "http" {
		return s.HTTP.URL
	}
	return s.File.Path
}

// HTTP holds client settings shared by every URL input.
type HTTP struct {
	TimeoutSeconds     int               `json:"timeout_seconds" yaml:"timeout_seconds,omitempty"`
	MaxRetries         int               `json:"max_retries" yaml:"max_retries,omitempty"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify" yaml:"insecure_skip_verify,omitempty"`
	Headers            map[string]string `json:"headers" yaml:"headers,omitempty"`
}

// Parser selects how to parse the raw source. Kind is "csv"; options are
// comma (string), trim_space (bool), encoding (string), header_map (object)
// and strict (bool).
type Parser struct {
	Kind    string  `json:"kind" yaml:"kind,omitempty"`
	Options Options `json:"options" yaml:"options,omitempty"`
}

// ResourceID controls the resource-id column the importer keys on. When
// Column is absent from the input (compared case-insensitively) it is added
// as the first column, copied from From.
type ResourceID struct {
	Column   string `json:"column" yaml:"column,omitempty"`
	From     string `json:"from" yaml:"from,omitempty"`
	Disabled bool   `json:"disabled" yaml:"disabled,omitempty"`
}

// Transform defines a single cleaning step. Kind is one of "normalize",
// "filter", "dates", "actors" or "polygon_dedup"; the options bag is
// interpreted by the step.
type Transform struct {
	Kind    string  `json:"kind" yaml:"kind,omitempty"`
	Options Options `json:"options" yaml:"options,omitempty"`
}

// Classifier kinds.
const (
	ClassifierSchema = "schema"
	ClassifierName   = "name"
)

// Reconcile configures the geometry-aware duplicate reconciliation.
type Reconcile struct {
	// Classifier is "schema" (default) or "name".
	Classifier string `json:"classifier" yaml:"classifier,omitempty"`

	// NameHints are the substrings the "name" classifier looks for.
	NameHints []string `json:"name_hints" yaml:"name_hints,omitempty"`

	// Workers > 1 reconciles groups concurrently.
	Workers int `json:"workers" yaml:"workers,omitempty"`

	Disabled bool `json:"disabled" yaml:"disabled,omitempty"`
}

// Storage selects the sink. Kind "csv" writes CSV.Path; SQL kinds
// ("postgres", "sqlite", "mssql", "mysql") use DB.
type Storage struct {
	Kind string   `json:"kind" yaml:"kind,omitempty"`
	CSV  CSVSink  `json:"csv" yaml:"csv,omitempty"`
	DB   DBConfig `json:"db" yaml:"db,omitempty"`
}

// CSVSink configures the csv sink.
type CSVSink struct {
	Path string `json:"path" yaml:"path,omitempty"`
}

// DBConfig configures the SQL sinks. Destination columns are the cleaned
// table's columns.
type DBConfig struct {
	DSN   string `json:"dsn" yaml:"dsn,omitempty"`
	Table string `json:"table" yaml:"table,omitempty"`

	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS with text columns.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table,omitempty"`
}

// RuntimeConfig controls batching and metrics.
type RuntimeConfig struct {
	BatchSize int `json:"batch_size" yaml:"batch_size,omitempty"`

	// MetricsBackend is "none" (default), "pushgateway" or "datadog".
	MetricsBackend string `json:"metrics_backend" yaml:"metrics_backend,omitempty"`

	// MetricsAddr is the Pushgateway URL or the DogStatsD address.
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr,omitempty"`
}

// Load reads a pipeline file. ".yaml"/".yml" files are decoded as YAML and
// everything else as JSON. Unknown keys are rejected so typos surface early.
// Defaults are applied to the result.
func Load(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	var p Pipeline
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("parse json config %s: %w", path, err)
		}
	}
	p.ApplyDefaults()
	return p, nil
}

// ApplyDefaults fills zero values that have a sensible default.
func (p *Pipeline) ApplyDefaults() {
	if p.Source.Kind == "" {
		p.Source.Kind = "file"
	}
	if p.Parser.Kind == "" {
		p.Parser.Kind = "csv"
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	if p.EntityColumn == "" {
		p.EntityColumn = DefaultEntityColumn
	}
	if p.ResourceID.Column == "" {
		p.ResourceID.Column = DefaultResourceIDColumn
	}
	if p.ResourceID.From == "" {
		p.ResourceID.From = p.EntityColumn
	}
	if p.Reconcile.Classifier == "" {
		p.Reconcile.Classifier = ClassifierSchema
	}
	for i := range p.Transform {
		if p.Transform[i].Options == nil {
			p.Transform[i].Options = Options{}
		}
	}
	if p.Runtime.BatchSize == 0 {
		p.Runtime.BatchSize = DefaultBatchSize
	}
	if p.Runtime.MetricsBackend == "" {
		p.Runtime.MetricsBackend = "none"
	}
}
