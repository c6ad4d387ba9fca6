// Package file implements the local filesystem data source and sink.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local reads and writes a single path on the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Open opens the path for reading. A context that is already done short
// circuits before the filesystem is touched. Filesystem errors are wrapped
// with the path and still match errors.Is(err, os.ErrNotExist) and friends.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Create returns a writer for the path. Bytes go to a temporary file in the
// same directory, which is renamed over the path on Close, so readers never
// observe a half-written output. Missing parent directories are created.
func (l *Local) Create(ctx context.Context) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(l.path)+".*")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", l.path, err)
	}
	return &atomicFile{File: tmp, final: l.path}, nil
}

// Aborter is implemented by writers returned from Create. Abort discards the
// pending output; a later Close is a no-op.
type Aborter interface {
	Abort() error
}

// atomicFile renames itself into place on Close.
type atomicFile struct {
	*os.File
	final  string
	closed bool
}

func (a *atomicFile) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	tmp := a.File.Name()
	if err := a.File.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", a.final, err)
	}
	if err := os.Rename(tmp, a.final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", a.final, err)
	}
	return nil
}

func (a *atomicFile) Abort() error {
	if a.closed {
		return nil
	}
	a.closed = true
	tmp := a.File.Name()
	_ = a.File.Close()
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("abort %s: %w", a.final, err)
	}
	return nil
}
