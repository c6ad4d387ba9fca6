// Package pipeline drives a cleaning run: resource model, survey table,
// cleaning transforms, geometry-aware reconciliation and the sink.
//
// Reconcile and Run are the in-memory core. Execute wires them to the
// configured files, URLs, storage backend and metrics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"archesprep/internal/reconcile"
	"archesprep/internal/schema"
	"archesprep/pkg/records"
)

// Options tunes the reconciliation core.
type Options struct {
	// Workers > 1 reconciles entity groups concurrently.
	Workers int

	// GeometryColumns, when non-nil, replaces schema-based classification,
	// e.g. with the result of reconcile.ClassifyByName.
	GeometryColumns []string

	// Logger receives the pass-through warning and per-group debug lines.
	// Nil discards them.
	Logger *zap.Logger
}

// Result describes a reconciliation pass. Table is the input table,
// reconciled in place; its row count and order never change.
type Result struct {
	Table           *records.Table
	GeometryColumns []string

	// PassThrough is set when the entity column is missing and the table
	// was returned untouched.
	PassThrough bool

	Stats reconcile.Stats
}

// Reconcile classifies the geometry columns of t, groups its rows by
// entityColumn and fills split entities from their primary rows.
//
// A missing entity column is not an error: it is logged and the table is
// returned as it came in, with PassThrough set. The only errors are a nil
// index without explicit geometry columns and context cancellation.
func Reconcile(ctx context.Context, idx *schema.Index, t *records.Table, entityColumn string, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	geom := opts.GeometryColumns
	if geom == nil {
		if idx == nil {
			return Result{Table: t}, fmt.Errorf("reconcile: no resource model and no geometry columns")
		}
		geom = reconcile.ClassifyColumns(t.Columns, idx)
	}
	res := Result{Table: t, GeometryColumns: geom}

	groups, err := reconcile.Group(t, entityColumn)
	if errors.Is(err, reconcile.ErrMissingIdentifierColumn) {
		log.Warn("entity column not found; passing rows through unchanged",
			zap.String("column", entityColumn),
			zap.Strings("available", t.Columns))
		res.PassThrough = true
		return res, nil
	}
	if err != nil {
		return res, err
	}

	log.Debug("reconciling",
		zap.Int("rows", t.Len()),
		zap.Int("groups", len(groups)),
		zap.Strings("geometry_columns", geom))

	st, err := reconcile.Engine{Workers: opts.Workers, Logger: log}.Run(ctx, groups, geom, t.Columns)
	res.Stats = st
	if err != nil {
		return res, fmt.Errorf("reconcile: %w", err)
	}
	return res, nil
}

// Run builds the resource model from schemaReader and then reconciles t. A
// malformed model fails with *schema.LoadError before any row is touched.
func Run(ctx context.Context, schemaReader io.Reader, t *records.Table, entityColumn string, opts Options) (Result, error) {
	idx, err := schema.Build(schemaReader)
	if err != nil {
		return Result{Table: t}, err
	}
	return Reconcile(ctx, idx, t, entityColumn, opts)
}
