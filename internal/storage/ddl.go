package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DDLBuilder renders an idempotent CREATE TABLE statement for a backend.
// Every column is stored as text; the importer does its own typing.
type DDLBuilder func(table string, columns []string) (string, error)

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBuilder{}
)

// RegisterDDL registers (or replaces) the DDLBuilder for kind. Kinds without
// one (the csv sink) need no table.
func RegisterDDL(kind string, fn DDLBuilder) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates table with columns through repo when kind has a
// DDLBuilder, and is a no-op otherwise.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, columns []string) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return nil
	}
	stmt, err := fn(table, columns)
	if err != nil {
		return fmt.Errorf("build ddl for %s: %w", kind, err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply ddl for %s: %w", kind, err)
	}
	return nil
}

// CheckTableDef validates the inputs shared by every DDLBuilder.
func CheckTableDef(table string, columns []string) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("table name must not be empty")
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s: no columns", table)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("table %s: empty column name", table)
		}
		k := strings.ToLower(c)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("table %s: duplicate column %q", table, c)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// QuoteQualified splits a possibly schema-qualified name on dots and quotes
// each part with quote.
func QuoteQualified(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}
