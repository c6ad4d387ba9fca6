// Package csv reads survey exports into a records.Table. Header order and
// spelling are kept exactly, since column names double as schema node names.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"archesprep/pkg/records"
)

// Options configures the CSV parser behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing whitespace from each field value.
	TrimSpace bool

	// Encoding names the input charset, see Decoder. Input is decoded to
	// UTF-8 before parsing.
	Encoding string

	// HeaderMap renames source headers. Unmapped headers are kept verbatim.
	HeaderMap map[string]string

	// Strict turns a row with the wrong number of fields into an error
	// instead of skipping it.
	Strict bool

	// Logger receives skipped-row warnings. Nil discards them.
	Logger *zap.Logger
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// ErrDuplicateHeader is returned when two columns share a name after mapping.
var ErrDuplicateHeader = errors.New("duplicate csv header")

// skipLogLimit caps per-row warnings so a badly broken file does not flood
// the log; the skipped count is still exact.
const skipLogLimit = 400

// Parse reads the header and every data row from r. A row with fewer fields
// than the header is kept and its missing cells are nil. A row with more
// fields is skipped and counted, or fails the parse in Strict mode.
func (p *Parser) Parse(r io.Reader) (*records.Table, int, error) {
	dec, err := Decoder(p.opt.Encoding)
	if err != nil {
		return nil, 0, err
	}
	if dec != nil {
		r = transform.NewReader(r, dec.NewDecoder())
	}
	log := p.opt.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &records.Table{}, 0, nil
		}
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	headers, err := normalizeHeaders(h, p.opt)
	if err != nil {
		return nil, 0, err
	}

	t := &records.Table{Columns: headers}
	skipped := 0
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if len(row) > len(headers) {
			if p.opt.Strict {
				return nil, skipped, fmt.Errorf("csv line %d: expected %d fields, got %d", line, len(headers), len(row))
			}
			if skipped < skipLogLimit {
				log.Warn("skipping csv row",
					zap.Int("line", line),
					zap.Int("expected", len(headers)),
					zap.Int("got", len(row)))
			}
			skipped++
			continue
		}

		rec := make(records.Record, len(headers))
		for i, col := range headers {
			if i >= len(row) {
				rec[col] = nil
				continue
			}
			val := row[i]
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[col] = emptyToNil(val)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, skipped, nil
}

// Decoder resolves an encoding name. It returns nil for UTF-8, which needs no
// decoding beyond BOM removal.
func Decoder(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "utf-8-sig":
		return unicode.UTF8BOM, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unsupported csv encoding %q", name)
	}
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders strips the BOM and applies HeaderMap. Headers are
// otherwise kept verbatim so the output has the input's column names.
// HeaderMap keys match the raw header first, then the trimmed one.
func normalizeHeaders(h []string, opt Options) ([]string, error) {
	res := StripHeaderBOM(append([]string(nil), h...))
	seen := make(map[string]struct{}, len(res))
	for i, c := range res {
		if m, ok := opt.HeaderMap[c]; ok {
			c = m
		} else if m, ok := opt.HeaderMap[strings.TrimSpace(c)]; ok {
			c = m
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateHeader, c)
		}
		seen[c] = struct{}{}
		res[i] = c
	}
	return res, nil
}
