// Package probe samples the head of a survey CSV and describes it: which
// columns are dates (and in which layout), which hold WKT geometry, which
// match the resource model. From that it drafts a starter pipeline that can
// be saved and hand-edited.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"archesprep/internal/config"
	"archesprep/internal/geometry"
	csvparser "archesprep/internal/parser/csv"
	"archesprep/internal/reconcile"
	"archesprep/internal/schema"
	"archesprep/pkg/records"
)

// DefaultMaxBytes is how much of the input is sampled when Options.MaxBytes
// is zero.
const DefaultMaxBytes = 1 << 20

// Column kinds.
const (
	KindEmpty   = "empty"
	KindInteger = "integer"
	KindReal    = "real"
	KindDate    = "date"
	KindWKT     = "wkt"
	KindText    = "text"
)

// Options control sampling.
type Options struct {
	// Location is a path or http(s) URL; it is copied into the drafted
	// pipeline's source.
	Location string

	// MaxBytes limits the sample. The sample is cut at its last newline so
	// a partial record is never parsed.
	MaxBytes int

	Comma    rune
	Encoding string

	// Schema, when set, is used to flag model fields and geometry columns.
	// SchemaLocation is copied into the drafted pipeline.
	Schema         *schema.Index
	SchemaLocation string

	// EntityColumn overrides the entity column guess.
	EntityColumn string

	// Job names the drafted pipeline; it defaults to the input's base name.
	Job string
}

// Column describes one sampled column.
type Column struct {
	Name string
	Kind string
	// Layout is the best-matching date layout for date columns.
	Layout string
	// Geometry is set for columns the model marks as geometry, or, without
	// a model, for columns holding WKT.
	Geometry bool
	// Polygons is set when the WKT values include polygons.
	Polygons bool
	// InSchema is set when the column is a resource model field.
	InSchema bool
	// Filled counts non-empty values in the sample.
	Filled int
}

// Report is the outcome of a probe.
type Report struct {
	Columns []Column
	Rows    int
	Skipped int
	// BOM is set when the sample starts with a UTF-8 byte order mark.
	BOM bool
	// Pipeline is the drafted pipeline. It has defaults applied.
	Pipeline config.Pipeline
}

// Probe reads up to MaxBytes from r and reports on them.
func Probe(ctx context.Context, r io.Reader, opt Options) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	limit := opt.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	sample, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return Report{}, fmt.Errorf("probe: read sample: %w", err)
	}
	if len(sample) == limit {
		if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
			sample = sample[:i+1]
		}
	}

	rep := Report{BOM: bytes.HasPrefix(sample, []byte("\xef\xbb\xbf"))}
	encoding := opt.Encoding
	if encoding == "" && rep.BOM {
		encoding = "utf-8-sig"
	}

	tbl, skipped, err := csvparser.NewParser(csvparser.Options{
		Comma:     opt.Comma,
		TrimSpace: true,
		Encoding:  encoding,
	}).Parse(bytes.NewReader(sample))
	if err != nil {
		return Report{}, fmt.Errorf("probe: %w", err)
	}
	rep.Rows, rep.Skipped = tbl.Len(), skipped
	rep.Columns = describe(tbl, opt.Schema)
	rep.Pipeline = draft(tbl, rep, opt, encoding)
	return rep, nil
}

func describe(t *records.Table, idx *schema.Index) []Column {
	geomInModel := map[string]bool{}
	if idx != nil {
		for _, c := range reconcile.ClassifyColumns(t.Columns, idx) {
			geomInModel[c] = true
		}
	}

	out := make([]Column, 0, len(t.Columns))
	for _, name := range t.Columns {
		var vals []string
		for _, r := range t.Rows {
			if v := r[name]; !records.IsEmpty(v) {
				vals = append(vals, records.ToString(v))
			}
		}
		c := Column{Name: name, Kind: inferKind(vals), Filled: len(vals)}
		if c.Kind == KindDate {
			c.Layout = selectBestLayout(vals, dateLayouts, dateLayoutPreference)
		}
		if c.Kind == KindWKT {
			for _, v := range vals {
				if k := geometry.Kind(v); k == "POLYGON" || k == "MULTIPOLYGON" {
					c.Polygons = true
					break
				}
			}
		}
		if idx != nil {
			_, c.InSchema = idx.Field(name)
			c.Geometry = geomInModel[name]
		} else {
			c.Geometry = c.Kind == KindWKT
		}
		out = append(out, c)
	}
	return out
}

// inferKind picks the narrowest kind every value satisfies.
func inferKind(vals []string) string {
	switch {
	case len(vals) == 0:
		return KindEmpty
	case all(vals, isInt):
		return KindInteger
	case all(vals, isReal):
		return KindReal
	case all(vals, isDate):
		return KindDate
	case all(vals, geometry.IsWKT):
		return KindWKT
	default:
		return KindText
	}
}

func all(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

func isReal(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// draft builds a starter pipeline from the sampled columns.
func draft(t *records.Table, rep Report, opt Options, encoding string) config.Pipeline {
	job := opt.Job
	if job == "" {
		job = jobName(strings.TrimSuffix(path.Base(opt.Location), path.Ext(opt.Location)))
	}

	var p config.Pipeline
	p.Job = job
	p.Source = config.Source{Kind: "file", File: config.SourceFile{Path: opt.Location}}
	if strings.HasPrefix(opt.Location, "http://") || strings.HasPrefix(opt.Location, "https://") {
		p.Source = config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: opt.Location}}
	}
	p.Schema = opt.SchemaLocation

	p.Parser.Kind = "csv"
	p.Parser.Options = config.Options{"trim_space": true}
	if opt.Comma != 0 && opt.Comma != ',' {
		p.Parser.Options["comma"] = string(opt.Comma)
	}
	if encoding != "" {
		p.Parser.Options["encoding"] = encoding
	}

	p.EntityColumn = guessEntityColumn(t, opt.EntityColumn)

	var dates, polygons []any
	for _, c := range rep.Columns {
		if c.Kind == KindDate {
			dates = append(dates, c.Name)
		}
		if c.Polygons {
			polygons = append(polygons, c.Name)
		}
	}
	p.Transform = []config.Transform{{Kind: "normalize"}}
	if len(dates) > 0 {
		p.Transform = append(p.Transform, config.Transform{Kind: "dates", Options: config.Options{
			"fields":      dates,
			"from_layout": majorityLayout(rep.Columns),
		}})
	}
	if len(polygons) > 0 {
		p.Transform = append(p.Transform, config.Transform{Kind: "polygon_dedup", Options: config.Options{
			"fields": polygons,
		}})
	}

	p.Reconcile.Classifier = config.ClassifierSchema
	if opt.Schema == nil {
		p.Reconcile.Classifier = config.ClassifierName
		var hints []string
		for _, c := range rep.Columns {
			if c.Geometry {
				hints = append(hints, c.Name)
			}
		}
		p.Reconcile.NameHints = hints
	}

	p.Storage = config.Storage{Kind: "csv", CSV: config.CSVSink{Path: path.Join("out", job+".csv")}}
	p.ApplyDefaults()
	return p
}

// guessEntityColumn prefers the explicit choice, then the conventional
// survey identifier, then the first column whose name ends in "id".
func guessEntityColumn(t *records.Table, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if t.HasColumn(config.DefaultEntityColumn) {
		return config.DefaultEntityColumn
	}
	for _, c := range t.Columns {
		if strings.HasSuffix(strings.ToLower(strings.TrimSpace(c)), "id") {
			return c
		}
	}
	if len(t.Columns) > 0 {
		return t.Columns[0]
	}
	return config.DefaultEntityColumn
}
