package schema

import "fmt"

// LoadError reports a resource model that could not be read or decoded. It is
// fatal to a run and is always returned before any row is processed.
type LoadError struct {
	// Source names where the schema came from (a path, or "reader").
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("schema: load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
