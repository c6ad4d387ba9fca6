// Package geometry cleans WKT geometries before import. The only operation is
// removing repeated vertices from polygon rings, which the importer rejects.
package geometry

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// RemoveDuplicatePoints returns g with consecutive duplicate vertices
// collapsed in every ring of a Polygon or MultiPolygon. Ring closure is kept:
// a ring that started closed ends on its first vertex again. Other geometry
// types are returned unchanged. The input is not modified.
func RemoveDuplicatePoints(g orb.Geometry) orb.Geometry {
	switch t := g.(type) {
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(t))
		for i, p := range t {
			out[i] = dedupPolygon(p)
		}
		return out
	case orb.Polygon:
		return dedupPolygon(t)
	default:
		return g
	}
}

func dedupPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = dedupRing(r)
	}
	return out
}

func dedupRing(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return orb.Ring{}
	}
	out := make(orb.Ring, 0, len(r))
	out = append(out, r[0])
	for _, pt := range r[1:] {
		if pt.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, pt)
	}
	return out
}

// Kind returns the upper-cased WKT type keyword of s ("POINT",
// "MULTIPOLYGON", ...), or "" when s has none.
func Kind(s string) string {
	s = strings.TrimSpace(s)
	end := strings.IndexAny(s, " (")
	if end < 0 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}

// UnsupportedKindError reports a WKT type DedupWKT does not handle.
type UnsupportedKindError struct{ Kind string }

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("geometry: unsupported WKT type %q", e.Kind)
}

// DedupWKT applies RemoveDuplicatePoints to a WKT string. POINT and
// LINESTRING values are returned as-is without parsing; POLYGON and
// MULTIPOLYGON values are parsed and re-encoded. Empty input yields "".
// Parse failures and other types return an error together with s.
func DedupWKT(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	switch k := Kind(s); k {
	case "POINT", "LINESTRING":
		return s, nil
	case "POLYGON", "MULTIPOLYGON":
		g, err := wkt.Unmarshal(s)
		if err != nil {
			return s, fmt.Errorf("geometry: parse %s: %w", k, err)
		}
		return wkt.MarshalString(RemoveDuplicatePoints(g)), nil
	default:
		return s, &UnsupportedKindError{Kind: k}
	}
}

// IsWKT reports whether s parses as a WKT geometry.
func IsWKT(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "(") {
		return false
	}
	_, err := wkt.Unmarshal(s)
	return err == nil
}
