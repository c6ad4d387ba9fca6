// Package parser declares the contract shared by table readers.
package parser

import (
	"io"

	"archesprep/pkg/records"
)

// Parser reads a whole table from r. The int result counts rows that were
// skipped as malformed.
type Parser interface {
	Parse(r io.Reader) (*records.Table, int, error)
}
