// Package cities canonicalizes free-form city/state strings so that
// "Washington", "Washington DC", and "Washington, D.C." collapse to a
// single facet entry, both when building the city picker and when
// reconciling a user's previously selected cities against fresh data.
package cities

import (
	"sort"
	"strings"

	"github.com/gigmap/gigmap/pkg/domain"
)

// Entry is one canonical city in the facet picker.
type Entry struct {
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	EventCount int    `json:"event_count"`
}

// stateCodes recognizes a trailing state-code-like token so it can be
// stripped from a city string ("Washington DC" -> "washington").
var stateCodes = map[string]bool{
	"al": true, "ak": true, "az": true, "ar": true, "ca": true,
	"co": true, "ct": true, "dc": true, "de": true, "fl": true,
	"ga": true, "hi": true, "ia": true, "id": true, "il": true,
	"in": true, "ks": true, "ky": true, "la": true, "ma": true,
	"md": true, "me": true, "mi": true, "mn": true, "mo": true,
	"ms": true, "mt": true, "nc": true, "nd": true, "ne": true,
	"nh": true, "nj": true, "nm": true, "nv": true, "ny": true,
	"oh": true, "ok": true, "or": true, "pa": true, "ri": true,
	"sc": true, "sd": true, "tn": true, "tx": true, "ut": true,
	"va": true, "vt": true, "wa": true, "wi": true, "wv": true,
	"wy": true,
}

// stateNames maps spelled-out state names to their code.
var stateNames = map[string]string{
	"district of columbia": "dc",
	"massachusetts":        "ma",
	"new york":             "ny",
	"california":           "ca",
	"virginia":             "va",
	"maryland":             "md",
	"pennsylvania":         "pa",
	"texas":                "tx",
	"washington":           "wa",
}

// displayNames expands known shorthand to a presentable city name.
// Cosmetic only; never feeds back into comparison keys.
var displayNames = map[string]string{
	"dc":     "Washington",
	"nyc":    "New York",
	"la":     "Los Angeles",
	"sf":     "San Francisco",
	"philly": "Philadelphia",
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeState folds a state string to its lowercase two-letter code.
// "DC", "D.C.", and "District of Columbia" all become "dc".
func normalizeState(s string) string {
	s = collapseSpaces(strings.ToLower(strings.TrimSpace(s)))
	s = strings.ReplaceAll(s, ".", "")
	if code, ok := stateNames[s]; ok {
		return code
	}
	return s
}

// normalizeCity lowercases, trims, collapses whitespace, and strips a
// trailing state-code-like suffix. It returns the comparison key and
// the implied state code if a suffix was stripped.
func normalizeCity(s string) (key, impliedState string) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", " ")
	s = collapseSpaces(s)

	fields := strings.Fields(s)
	if len(fields) > 1 {
		last := strings.ReplaceAll(fields[len(fields)-1], ".", "")
		if stateCodes[last] {
			return strings.Join(fields[:len(fields)-1], " "), last
		}
	}
	return s, ""
}

// sameState reports whether two normalized state codes are compatible:
// equal, or one side missing.
func sameState(a, b string) bool {
	return a == b || a == "" || b == ""
}

// Match reports whether two free-form city strings name the same city.
// Used by the filter pipeline when centroid resolution fails and it
// falls back to name equality.
func Match(a, b string) bool {
	aKey, aState := normalizeCity(a)
	bKey, bState := normalizeCity(b)
	return aKey == bKey && sameState(aState, bState)
}

// DisplayName formats a comparison key for presentation, expanding
// known shorthand and title-casing everything else.
func DisplayName(key string) string {
	if full, ok := displayNames[key]; ok {
		return full
	}
	fields := strings.Fields(key)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}

// Normalize deduplicates raw (city, state, count) rows into canonical
// facet entries. Rows collide when their normalized city keys match and
// their states are compatible; counts of colliding rows are merged, and
// the representative keeps the non-empty state when only one side has
// one. Output is ordered by event count descending, then name.
func Normalize(raw []domain.CityCount) []Entry {
	type bucket struct {
		key   string
		state string
		count int
	}

	var buckets []*bucket
	for _, row := range raw {
		key, implied := normalizeCity(row.City)
		if key == "" {
			continue
		}
		state := normalizeState(row.State)
		if state == "" {
			state = implied
		}

		var hit *bucket
		for _, b := range buckets {
			if b.key == key && sameState(b.state, state) {
				hit = b
				break
			}
		}
		if hit == nil {
			buckets = append(buckets, &bucket{key: key, state: state, count: row.EventCount})
			continue
		}
		hit.count += row.EventCount
		if hit.state == "" {
			hit.state = state
		}
	}

	entries := make([]Entry, 0, len(buckets))
	for _, b := range buckets {
		entries = append(entries, Entry{
			City:       DisplayName(b.key),
			State:      strings.ToUpper(b.state),
			EventCount: b.count,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].EventCount != entries[j].EventCount {
			return entries[i].EventCount > entries[j].EventCount
		}
		return entries[i].City < entries[j].City
	})

	return entries
}

// Reconcile maps previously selected city strings onto the current
// canonical entries, so a stale "Washington Dc" selection and a fresh
// "Washington" entry become one selection instead of a duplicate chip.
// Selections with no matching entry are kept as-is.
func Reconcile(selected []string, entries []Entry) []string {
	out := make([]string, 0, len(selected))
	seen := make(map[string]bool)

	for _, sel := range selected {
		resolved := sel
		for _, e := range entries {
			if Match(sel, e.City) {
				resolved = e.City
				break
			}
		}
		key, _ := normalizeCity(resolved)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, resolved)
	}

	return out
}
