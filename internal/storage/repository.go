// Package storage defines the sink contract for cleaned tables and a registry
// of backends. Backends register themselves from init; import
// archesprep/internal/storage/all to enable every built-in kind.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is the minimal write surface a backend provides.
type Repository interface {
	// CopyFrom appends rows aligned to columns and reports how many were
	// written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Exec runs a backend statement, typically DDL. File sinks ignore it.
	Exec(ctx context.Context, sql string) error

	// Close releases the backend. For file sinks it also commits the output,
	// so its error must be checked.
	Close() error
}

// Config is the backend-agnostic sink configuration.
type Config struct {
	// Kind selects the backend: "csv", "postgres", "sqlite", "mssql", "mysql".
	Kind string

	// DSN is the connection string for SQL backends and the output path for
	// the csv backend.
	DSN string

	// Table is the destination table for SQL backends.
	Table string

	// Columns is the destination column order.
	Columns []string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the Repository registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
