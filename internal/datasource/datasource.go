// Package datasource defines where pipeline inputs come from and where file
// outputs go. Only the local filesystem is implemented (package file).
package datasource

import (
	"context"
	"io"
)

// Source opens an input for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Sink creates an output for writing. The output becomes visible only when
// the returned writer is closed without error.
type Sink interface {
	Create(ctx context.Context) (io.WriteCloser, error)
}
