package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple lowercase", "kitchen", "kitchen"},
		{"mixed case", "Living Room", "livingroom"},
		{"underscores deleted", "living_room", "livingroom"},
		{"hyphens deleted", "LIVING-ROOM", "livingroom"},
		{"mixed separators", "Master_Bed-Room 2", "masterbedroom2"},
		{"leading and trailing space", "  Garage  ", "garage"},
		{"runs of separators", "living - _  room", "livingroom"},
		{"tabs and newlines", "media\troom\n", "mediaroom"},
		{"empty", "", ""},
		{"separators only", " _- ", ""},
		{"digits preserved", "Bedroom 3", "bedroom3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeNameIsIdempotent(t *testing.T) {
	inputs := []string{"Living Room", "living_room", "LIVING-ROOM", "Rack  Closet", ""}
	for _, in := range inputs {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once), "normalize(normalize(%q))", in)
	}
}

func TestNormalizeNameCollapsesVariants(t *testing.T) {
	key := NormalizeName("Living Room")
	assert.Equal(t, key, NormalizeName("living_room"))
	assert.Equal(t, key, NormalizeName("LIVING-ROOM"))
	assert.Equal(t, key, NormalizeName("LivingRoom"))
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{"both empty", "", "", 0},
		{"one empty", "abc", "", 3},
		{"identical", "kitchen", "kitchen", 0},
		{"classic kitten sitting", "kitten", "sitting", 3},
		{"single substitution", "garage", "garape", 1},
		{"insertions", "livingrm", "livingroom", 2},
		{"unicode runes", "café", "cafe", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevenshteinDistance(tt.a, tt.b))
			assert.Equal(t, tt.expected, LevenshteinDistance(tt.b, tt.a))
		})
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("reflexive", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("livingroom", "livingroom"))
		assert.Equal(t, 1.0, Similarity("", ""))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, Similarity("livingrm", "livingroom"), Similarity("livingroom", "livingrm"))
		assert.Equal(t, Similarity("attic", "office"), Similarity("office", "attic"))
	})

	t.Run("abbreviation clears auto select threshold", func(t *testing.T) {
		score := Similarity("livingrm", "livingroom")
		assert.InDelta(t, 0.8, score, 0.0001)
		assert.GreaterOrEqual(t, score, AutoSelectThreshold)
	})

	t.Run("disjoint strings score low but not negative", func(t *testing.T) {
		score := Similarity("abc", "xyz")
		assert.GreaterOrEqual(t, score, 0.0)
		assert.Less(t, score, HintThreshold)
	})

	t.Run("degrades as edits increase", func(t *testing.T) {
		oneEdit := Similarity("livingroom", "livingroon")
		twoEdits := Similarity("livingroom", "livingrxxn")
		assert.Greater(t, oneEdit, twoEdits)
	})

	t.Run("empty versus populated", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("", "kitchen"))
	})
}
