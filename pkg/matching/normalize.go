// Package matching provides the name canonicalization and similarity
// scoring used to match diagram room labels against a project's
// canonical room list.
package matching

import (
	"strings"
	"unicode"
)

// Similarity thresholds applied by consumers of SuggestRoom results.
// Product-tuned constants; do not derive or adjust without sign-off.
const (
	// AutoSelectThreshold is the minimum score for a suggestion to be
	// pre-selected when a user confirms unmatched rooms.
	AutoSelectThreshold = 0.72

	// HintThreshold is the minimum score for a suggestion to be shown
	// as a soft textual hint.
	HintThreshold = 0.50
)

// NormalizeName converts a free-text room label into its comparison key:
// lowercased, with every run of whitespace, underscores and hyphens
// deleted outright. "Living Room", "living_room" and "LIVING-ROOM" all
// collapse to "livingroom". Names that differ only by a separator become
// indistinguishable; that aggressiveness is deliberate.
func NormalizeName(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
