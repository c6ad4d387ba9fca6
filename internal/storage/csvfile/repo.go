// Package csvfile implements the "csv" storage kind: the cleaned table is
// written as a comma separated file with a header row. Config.DSN is the
// output path. The file only appears once Close succeeds.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"archesprep/internal/datasource"
	"archesprep/internal/datasource/file"
	"archesprep/internal/storage"
	"archesprep/pkg/records"
)

// Config configures a CSV sink.
type Config struct {
	// Path is the output file.
	Path string
	// Columns is the header. When empty, the columns of the first CopyFrom
	// call are used.
	Columns []string
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// Repository writes rows to a single CSV file.
type Repository struct {
	cfg     Config
	out     io.WriteCloser
	w       *csv.Writer
	header  []string
	written bool
}

// NewRepository opens the sink. Nothing is visible at cfg.Path until Close.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("csvfile: path is required")
	}
	return newRepositoryTo(ctx, file.NewLocal(cfg.Path), cfg)
}

func newRepositoryTo(ctx context.Context, sink datasource.Sink, cfg Config) (*Repository, error) {
	out, err := sink.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("csvfile: %w", err)
	}
	w := csv.NewWriter(out)
	if cfg.Comma != 0 {
		w.Comma = cfg.Comma
	}
	return &Repository{cfg: cfg, out: out, w: w, header: slices.Clone(cfg.Columns)}, nil
}

// CopyFrom writes rows under columns. The header is written on the first
// call; later calls must use the same column order.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r.out == nil {
		return 0, fmt.Errorf("csvfile: repository is closed")
	}
	if len(r.header) == 0 {
		r.header = slices.Clone(columns)
	}
	if !slices.Equal(r.header, columns) {
		return 0, fmt.Errorf("csvfile: columns %v do not match header %v", columns, r.header)
	}
	if !r.written {
		if err := r.w.Write(r.header); err != nil {
			return 0, fmt.Errorf("csvfile: write header: %w", err)
		}
		r.written = true
	}

	rec := make([]string, len(columns))
	var n int64
	for i, row := range rows {
		if len(row) != len(columns) {
			return n, fmt.Errorf("csvfile: row %d has %d values, want %d", i, len(row), len(columns))
		}
		for j, v := range row {
			rec[j] = records.ToString(v)
		}
		if err := r.w.Write(rec); err != nil {
			return n, fmt.Errorf("csvfile: write row %d: %w", i, err)
		}
		n++
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return n, fmt.Errorf("csvfile: flush: %w", err)
	}
	return n, nil
}

// Exec is a no-op; a file has no schema to manage.
func (r *Repository) Exec(ctx context.Context, sql string) error { return nil }

// Close flushes and commits the file. An empty table still yields a header
// row when columns are known.
func (r *Repository) Close() error {
	if r.out == nil {
		return nil
	}
	out := r.out
	r.out = nil
	if !r.written && len(r.header) > 0 {
		if err := r.w.Write(r.header); err != nil {
			_ = abort(out)
			return fmt.Errorf("csvfile: write header: %w", err)
		}
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		_ = abort(out)
		return fmt.Errorf("csvfile: flush: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("csvfile: %w", err)
	}
	return nil
}

// Abort discards the output without committing it.
func (r *Repository) Abort() error {
	if r.out == nil {
		return nil
	}
	out := r.out
	r.out = nil
	return abort(out)
}

func abort(w io.WriteCloser) error {
	if a, ok := w.(file.Aborter); ok {
		return a.Abort()
	}
	return w.Close()
}

var (
	_ storage.Repository = (*Repository)(nil)
	_ file.Aborter       = (*Repository)(nil)
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

func init() {
	storage.Register("csv", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, Config{Path: cfg.DSN, Columns: cfg.Columns})
	})
}
