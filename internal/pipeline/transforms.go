package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"archesprep/internal/config"
	"archesprep/internal/transformer"
	"archesprep/internal/transformer/builtin"
)

// chain is the compiled transform list plus the findings that must be
// checked once it has run.
type chain struct {
	transformer.Chain

	// strictActors is set when any actors step has strict: true.
	strictActors bool
	unknown      []string
}

// err reports the unknown actor names when a strict actors step saw any.
func (c *chain) err() error {
	if !c.strictActors || len(c.unknown) == 0 {
		return nil
	}
	return fmt.Errorf("actors: %d unknown name(s), first %q", len(c.unknown), c.unknown[0])
}

// buildChain compiles the configured transforms in order. Lookup files are
// opened through locs, so they may be paths or URLs.
func buildChain(ctx context.Context, specs []config.Transform, locs *locations, log *zap.Logger) (*chain, error) {
	c := &chain{}
	for i, spec := range specs {
		slog := log.With(zap.Int("transform", i), zap.String("kind", spec.Kind))
		onMissing := func(field string) {
			slog.Warn("field not in table; rule skipped", zap.String("field", field))
		}

		var t transformer.Transformer
		switch spec.Kind {
		case "normalize":
			t = builtin.Normalize{}

		case "filter":
			m, err := loadMappings(ctx, spec.Options, locs)
			if err != nil {
				return nil, fmt.Errorf("transform[%d] filter: %w", i, err)
			}
			t = builtin.NewFilter(m, onMissing)

		case "dates":
			d := builtin.Dates{
				Fields:     spec.Options.StringSlice("fields"),
				FromLayout: spec.Options.String("from_layout", builtin.DefaultFromLayout),
				ToLayout:   spec.Options.String("to_layout", builtin.DefaultToLayout),
				OnMissing:  onMissing,
			}
			for _, ph := range spec.Options.Objects("placeholders") {
				d.Placeholders = append(d.Placeholders, builtin.Placeholder{
					Field:  ph.String("field", ""),
					Tokens: ph.StringSlice("tokens"),
					From:   ph.String("from", ""),
				})
			}
			t = d

		case "actors":
			path := spec.Options.String("path", "")
			rc, err := locs.open(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("transform[%d] actors: %w", i, err)
			}
			lookup, err := builtin.LoadActorLookup(rc,
				spec.Options.String("name_column", builtin.DefaultActorNameColumn),
				spec.Options.String("id_column", builtin.DefaultActorIDColumn))
			_ = rc.Close()
			if err != nil {
				return nil, fmt.Errorf("transform[%d] %s: %w", i, path, err)
			}
			if spec.Options.Bool("strict", false) {
				c.strictActors = true
			}
			t = builtin.Actors{
				Fields:          spec.Options.StringSlice("fields"),
				Lookup:          lookup,
				Property:        spec.Options.String("property", builtin.DefaultActorProperty),
				InverseProperty: spec.Options.String("inverse_property", builtin.DefaultActorInverseProperty),
				OnUnknown: func(field, name string) {
					c.unknown = append(c.unknown, name)
					slog.Warn("unknown actor; value kept", zap.String("field", field), zap.String("name", name))
				},
				OnMissing: onMissing,
			}

		case "polygon_dedup":
			t = builtin.PolygonDedup{
				Fields: spec.Options.StringSlice("fields"),
				OnError: func(field, value string, err error) {
					slog.Warn("geometry left as is",
						zap.String("field", field),
						zap.String("value", abbreviate(value, 80)),
						zap.Error(err))
				},
				OnMissing: onMissing,
			}

		default:
			return nil, fmt.Errorf("transform[%d]: unknown kind %q", i, spec.Kind)
		}
		c.Chain = append(c.Chain, t)
	}
	return c, nil
}

// loadMappings reads filter mappings from options.path, or from the inline
// options.mappings object.
func loadMappings(ctx context.Context, o config.Options, locs *locations) (builtin.Mappings, error) {
	if path := o.String("path", ""); path != "" {
		rc, err := locs.open(ctx, path)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		m, err := builtin.LoadMappings(rc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return m, nil
	}

	inline := config.Options(nil)
	if raw, ok := o.Any("mappings").(map[string]any); ok {
		inline = config.Options(raw)
	}
	fields := make([]string, 0, len(inline))
	for f := range inline {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	m := make(builtin.Mappings, len(fields))
	for _, f := range fields {
		if _, ok := inline.Any(f).(map[string]any); !ok {
			return nil, fmt.Errorf("mappings[%q] must be an object of strings", f)
		}
		m[f] = inline.StringMap(f)
	}
	return m, nil
}

func abbreviate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
