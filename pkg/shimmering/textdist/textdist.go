// Package textdist measures how far OCR output is from catalog strings.
package textdist

import (
	"errors"

	"github.com/hbollon/go-edlib"
)

// ErrEmptyCandidates is returned when a closest match is requested over nothing.
var ErrEmptyCandidates = errors.New("no candidates to match against")

// Distance is the unit-cost Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	return edlib.LevenshteinDistance(a, b)
}

// Closest returns the candidate whose key is nearest to target along with that
// distance. On ties the earliest candidate wins.
func Closest[T any](target string, candidates []T, key func(T) string) (T, int, error) {
	var best T
	if len(candidates) == 0 {
		return best, 0, ErrEmptyCandidates
	}

	bestDist := -1
	for _, c := range candidates {
		d := Distance(target, key(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
			if d == 0 {
				break
			}
		}
	}
	return best, bestDist, nil
}

// ClosestString is Closest over plain strings.
func ClosestString(target string, candidates []string) (string, int, error) {
	return Closest(target, candidates, func(s string) string { return s })
}
