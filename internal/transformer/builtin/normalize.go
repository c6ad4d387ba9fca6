package builtin

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"archesprep/pkg/records"
)

// nbspMojibake is a UTF-8 no-break space that was decoded as Latin-1 and
// re-encoded, a common artefact of spreadsheet exports.
const nbspMojibake = "\u00c2\u00a0"

// Normalize cleans every string value: the mojibake no-break space and plain
// no-break spaces become ASCII spaces, the text is NFC-normalised and
// surrounding whitespace is trimmed. Non-string values are left alone.
type Normalize struct{}

// Apply mutates the records in place.
func (Normalize) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for k, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			r[k] = normalizeString(s)
		}
	}
	return in
}

func normalizeString(s string) string {
	if strings.Contains(s, "\u00a0") {
		s = strings.ReplaceAll(s, nbspMojibake, " ")
		s = strings.ReplaceAll(s, "\u00a0", " ")
	}
	if !norm.NFC.IsNormalString(s) {
		s = norm.NFC.String(s)
	}
	return strings.TrimSpace(s)
}
