package schema

import (
	"context"
	"errors"

	"archesprep/internal/datasource"
	"archesprep/internal/datasource/file"
)

// Load opens the resource model at path and builds its Index. Every failure,
// including a missing file, is reported as a *LoadError carrying the path.
func Load(ctx context.Context, path string) (*Index, error) {
	return LoadFrom(ctx, file.NewLocal(path), path)
}

// LoadFrom is Load for any source; name labels errors.
func LoadFrom(ctx context.Context, src datasource.Source, name string) (*Index, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &LoadError{Source: name, Err: err}
	}
	defer rc.Close()

	idx, err := Build(rc)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = name
			return nil, le
		}
		return nil, &LoadError{Source: name, Err: err}
	}
	return idx, nil
}
