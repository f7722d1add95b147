package matching

// LevenshteinDistance returns the edit distance between two strings,
// counted in runes so multi-byte labels score correctly.
func LevenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// Two-row dynamic programming table
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Similarity computes a closeness score in [0,1] between two already
// normalized keys: 1 - distance/max(len(a), len(b), 1). Symmetric, and
// 1.0 for identical keys (including two empty keys).
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	maxLen := len([]rune(a))
	if lb := len([]rune(b)); lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}

	dist := LevenshteinDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}
