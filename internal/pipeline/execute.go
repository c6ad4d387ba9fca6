package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"archesprep/internal/config"
	"archesprep/internal/datasource/file"
	"archesprep/internal/metrics"
	"archesprep/internal/parser"
	csvparser "archesprep/internal/parser/csv"
	"archesprep/internal/reconcile"
	"archesprep/internal/schema"
	"archesprep/internal/storage"
	"archesprep/pkg/records"
)

// Summary reports what a run did.
type Summary struct {
	Job string

	Parsed  int // data rows read
	Skipped int // rows dropped for a wrong field count

	// ResourceIDAdded is set when the resource-id column had to be created.
	ResourceIDAdded bool

	GeometryColumns []string
	PassThrough     bool
	Reconcile       reconcile.Stats

	Written  int64
	Duration time.Duration
}

// newRepositoryFn is a test seam over storage.New.
var newRepositoryFn = storage.New

// Step names used in logs and metrics.
const (
	StepLoadSchema = "load_schema"
	StepParse      = "parse"
	StepTransform  = "transform"
	StepReconcile  = "reconcile"
	StepWrite      = "write"
)

// Execute performs a full run of cfg: load the resource model, parse the
// survey CSV, add the resource-id column, run the cleaning transforms,
// reconcile split entities and write the table to the configured sink.
//
// cfg is expected to have defaults applied and to pass
// config.ValidatePipeline. Nothing is committed to a csv sink unless every
// step succeeds.
func Execute(ctx context.Context, cfg config.Pipeline, log *zap.Logger) (Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()
	sum := Summary{Job: cfg.Job}
	log = log.With(zap.String("job", cfg.Job))
	locs := newLocations(cfg.HTTP, log)

	step := func(name string, fn func() error) error {
		t0 := time.Now()
		err := fn()
		d := time.Since(t0)
		metrics.RecordStep(cfg.Job, name, err, d)
		if err != nil {
			log.Error("step failed", zap.String("step", name), zap.Duration("took", d), zap.Error(err))
			return err
		}
		log.Info("step done", zap.String("step", name), zap.Duration("took", d))
		return nil
	}

	// The resource model is only required by the schema classifier, but a
	// configured one is always loaded so a broken file fails early.
	var idx *schema.Index
	if cfg.Schema != "" {
		err := step(StepLoadSchema, func() error {
			var err error
			idx, err = schema.LoadFrom(ctx, locs.source(cfg.Schema), cfg.Schema)
			if err == nil {
				log.Info("resource model loaded",
					zap.Int("fields", idx.Len()),
					zap.Strings("geometry_fields", idx.GeometryFieldNames()))
			}
			return err
		})
		if err != nil {
			return sum, err
		}
	}

	var tbl *records.Table
	err := step(StepParse, func() error {
		var err error
		tbl, sum.Skipped, err = parse(ctx, cfg, locs, log)
		return err
	})
	if err != nil {
		return sum, err
	}
	sum.Parsed = tbl.Len() + sum.Skipped
	metrics.RecordRow(cfg.Job, "parsed", int64(sum.Parsed))
	metrics.RecordRow(cfg.Job, "skipped", int64(sum.Skipped))

	if !cfg.ResourceID.Disabled {
		added, err := AddResourceID(tbl, cfg.ResourceID.Column, cfg.ResourceID.From)
		if err != nil {
			log.Warn("resource id column not added", zap.Error(err))
		}
		sum.ResourceIDAdded = added
	}

	err = step(StepTransform, func() error {
		c, err := buildChain(ctx, cfg.Transform, locs, log)
		if err != nil {
			return err
		}
		tbl.Rows = c.Apply(tbl.Rows)
		return c.err()
	})
	if err != nil {
		return sum, err
	}

	if !cfg.Reconcile.Disabled {
		err = step(StepReconcile, func() error {
			opts := Options{Workers: cfg.Reconcile.Workers, Logger: log}
			if cfg.Reconcile.Classifier == config.ClassifierName {
				hints := cfg.Reconcile.NameHints
				if len(hints) == 0 {
					hints = reconcile.DefaultNameHints
				}
				opts.GeometryColumns = reconcile.ClassifyByName(tbl.Columns, hints)
				if opts.GeometryColumns == nil {
					opts.GeometryColumns = []string{}
				}
			}
			res, err := Reconcile(ctx, idx, tbl, cfg.EntityColumn, opts)
			sum.GeometryColumns = res.GeometryColumns
			sum.PassThrough = res.PassThrough
			sum.Reconcile = res.Stats
			return err
		})
		if err != nil {
			return sum, err
		}
		metrics.RecordGroups(cfg.Job, "total", int64(sum.Reconcile.Groups))
		metrics.RecordGroups(cfg.Job, "multi_row", int64(sum.Reconcile.MultiRow))
		metrics.RecordGroups(cfg.Job, "reconciled", int64(sum.Reconcile.Reconciled))
		metrics.RecordRow(cfg.Job, "filled", int64(sum.Reconcile.Filled))
	}

	err = step(StepWrite, func() error {
		var err error
		sum.Written, err = write(ctx, cfg, tbl, log)
		return err
	})
	if err != nil {
		return sum, err
	}
	metrics.RecordRow(cfg.Job, "written", sum.Written)

	sum.Duration = time.Since(start)
	log.Info("run complete",
		zap.Int("parsed", sum.Parsed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("groups", sum.Reconcile.Groups),
		zap.Int("reconciled", sum.Reconcile.Reconciled),
		zap.Int("filled", sum.Reconcile.Filled),
		zap.Int64("written", sum.Written),
		zap.Duration("took", sum.Duration))
	return sum, nil
}

func parse(ctx context.Context, cfg config.Pipeline, locs *locations, log *zap.Logger) (*records.Table, int, error) {
	loc := cfg.Source.Location()
	rc, err := locs.open(ctx, loc)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	o := cfg.Parser.Options
	var p parser.Parser = csvparser.NewParser(csvparser.Options{
		Comma:     o.Rune("comma", ','),
		TrimSpace: o.Bool("trim_space", false),
		Encoding:  o.String("encoding", ""),
		HeaderMap: o.StringMap("header_map"),
		Strict:    o.Bool("strict", false),
		Logger:    log,
	})
	tbl, skipped, err := p.Parse(rc)
	if err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", loc, err)
	}
	return tbl, skipped, nil
}

// AddResourceID inserts column as the first column of t, copying each row's
// value of from, unless t already has a column of that name (compared
// case-insensitively). It reports whether the column was added.
func AddResourceID(t *records.Table, column, from string) (bool, error) {
	for _, c := range t.Columns {
		if strings.EqualFold(c, column) {
			return false, nil
		}
	}
	if !t.HasColumn(from) {
		return false, fmt.Errorf("source column %q for %q not found", from, column)
	}
	t.Columns = append([]string{column}, t.Columns...)
	for _, r := range t.Rows {
		r[column] = r[from]
	}
	return true, nil
}

func write(ctx context.Context, cfg config.Pipeline, t *records.Table, log *zap.Logger) (int64, error) {
	sc := storage.Config{
		Kind:    cfg.Storage.Kind,
		DSN:     cfg.Storage.DB.DSN,
		Table:   cfg.Storage.DB.Table,
		Columns: t.Columns,
	}
	if cfg.Storage.Kind == "csv" {
		sc.DSN = cfg.Storage.CSV.Path
	}

	repo, err := newRepositoryFn(ctx, sc)
	if err != nil {
		return 0, fmt.Errorf("open storage: %w", err)
	}

	n, err := func() (int64, error) {
		if cfg.Storage.DB.AutoCreateTable {
			if err := storage.EnsureTable(ctx, sc.Kind, repo, sc.Table, sc.Columns); err != nil {
				return 0, fmt.Errorf("create table: %w", err)
			}
		}
		return storage.WriteTable(ctx, log, repo, t, cfg.Runtime.BatchSize)
	}()
	if err != nil {
		if a, ok := repo.(file.Aborter); ok {
			return n, errors.Join(err, a.Abort())
		}
		return n, errors.Join(err, repo.Close())
	}
	if err := repo.Close(); err != nil {
		return n, fmt.Errorf("close storage: %w", err)
	}
	return n, nil
}
