// Package similarity scores how alike two normalized reference strings are.
package similarity

import "github.com/agnivade/levenshtein"

// Score returns a similarity score in [0, 100] derived from the Levenshtein
// edit distance: 100 * (1 - distance/maxLen), rounded to nearest.
//
// Properties the matching tiers rely on:
//   - symmetric: Score(a, b) == Score(b, a)
//   - Score(a, b) == 100 iff a == b (two empty strings score 100)
//   - empty vs non-empty scores 0
func Score(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist >= maxLen {
		return 0
	}
	// Round to nearest integer without going through float64.
	score := (200*(maxLen-dist) + maxLen) / (2 * maxLen)
	if score >= 100 {
		// a != b, so never report a perfect score.
		score = 99
	}
	return score
}
