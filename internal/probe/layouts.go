package probe

import (
	"strings"
	"time"
)

// dateLayouts are the date formats seen in survey sheets. Ambiguous
// day/month orders are settled by dateLayoutPreference.
var dateLayouts = []string{
	"2006/1/2",   // survey sheets
	"2006-01-02", // ISO
	"2006/01/02",
	"02/01/2006", // DMY slash
	"01/02/2006", // MDY slash
	"2/1/2006",
	"02.01.2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"20060102",
}

// dateLayoutPreference is the tie-break weight of a layout; higher wins.
// Year-first layouts are unambiguous, then day-first, then month-first.
func dateLayoutPreference(layout string) int {
	switch layout {
	case "2006/1/2", "2006-01-02", "2006/01/02", "20060102":
		return 3
	case "02/01/2006", "2/1/2006", "02.01.2006", "2 Jan 2006", "02-Jan-2006":
		return 2
	case "01/02/2006":
		return 1
	default:
		return 0
	}
}

// isDate reports whether s parses with any known layout.
func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// selectBestLayout scores each layout by how many samples it parses and
// returns the best one. Ties go to the higher preference, then to the
// earlier layout. It returns "" when nothing parses.
func selectBestLayout(samples []string, layouts []string, pref func(string) int) string {
	if len(samples) == 0 || len(layouts) == 0 {
		return ""
	}
	scores := make([]int, len(layouts))
	for _, s := range samples {
		for i, lay := range layouts {
			if _, err := time.Parse(lay, strings.TrimSpace(s)); err == nil {
				scores[i]++
			}
		}
	}

	bestIdx, bestScore, bestPref := -1, 0, -1
	for i, lay := range layouts {
		sc := scores[i]
		if sc == 0 || sc < bestScore {
			continue
		}
		p := pref(lay)
		if sc > bestScore || p > bestPref {
			bestIdx, bestScore, bestPref = i, sc, p
		}
	}
	if bestIdx < 0 {
		return ""
	}
	return layouts[bestIdx]
}

// majorityLayout returns the layout used by most date columns, preferring
// the earlier column on ties.
func majorityLayout(columns []Column) string {
	counts := map[string]int{}
	best, bestN := "", 0
	for _, c := range columns {
		if c.Kind != KindDate || c.Layout == "" {
			continue
		}
		counts[c.Layout]++
		if n := counts[c.Layout]; n > bestN {
			best, bestN = c.Layout, n
		}
	}
	return best
}
