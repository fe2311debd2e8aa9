package search

import (
	"strings"
	"unicode"
)

// alnumFold strips every non-alphanumeric rune and lowercases the rest,
// so "The 9:30 Club!" and "the 930 club" compare equal.
func alnumFold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// MatchVenue reports whether a record's venue name matches the selected
// venue name. Tiers escalate from exact equality to bidirectional
// substring containment; imported venue data is full of punctuation and
// casing drift, so the looser tiers carry real traffic.
func MatchVenue(selected, candidate string) bool {
	if selected == "" || candidate == "" {
		return false
	}

	if selected == candidate {
		return true
	}
	if strings.EqualFold(selected, candidate) {
		return true
	}

	a, b := alnumFold(selected), alnumFold(candidate)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
