package application

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// foldCaser is a package-level Unicode case folder for performance.
// This avoids creating a new caser for each comparison.
var foldCaser = cases.Fold()

// suggestionThreshold is the minimum similarity for a candidate to be
// offered as a "did you mean" hint. Below it, a typo is more likely a
// different identifier altogether and a wrong hint is worse than none.
const suggestionThreshold = 0.5

// suggestClosest returns the candidate most similar to input, if any
// candidate clears the similarity threshold. Comparison is
// case-insensitive via Unicode case folding so hints survive
// capitalization typos.
func suggestClosest(input string, candidates []string) (string, bool) {
	folded := foldCaser.String(input)

	best := ""
	bestScore := 0.0
	for _, candidate := range candidates {
		score := similarity(folded, foldCaser.String(candidate))
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if bestScore < suggestionThreshold {
		return "", false
	}
	return best, true
}

// similarity computes a normalized similarity between two strings using
// the Levenshtein distance: 1.0 for identical strings, 0.0 for maximum
// dissimilarity. Rune counts are used so multi-byte characters weigh the
// same as ASCII.
func similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(s1, s2)

	maxLen := utf8.RuneCountInString(s1)
	if n := utf8.RuneCountInString(s2); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}
