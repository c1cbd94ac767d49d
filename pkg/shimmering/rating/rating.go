// Package rating turns a raw score into the game's derived metrics.
package rating

import (
	"math"
	"sort"

	"github.com/himanishpuri/shimmering/pkg/models"
)

// Grade is the letter grade shown on the result screen.
type Grade string

const (
	GradeEXPlus Grade = "EX+"
	GradeEX     Grade = "EX"
	GradeAA     Grade = "AA"
	GradeA      Grade = "A"
	GradeB      Grade = "B"
	GradeC      Grade = "C"
	GradeD      Grade = "D"
)

const (
	// MaxBaseScore is the score of an all-perfect play before bonus points.
	MaxBaseScore = 10_000_000

	exThreshold = 9_800_000
	aaThreshold = 9_500_000
)

var gradeThresholds = []struct {
	above int
	grade Grade
}{
	{9_900_000, GradeEXPlus},
	{9_800_000, GradeEX},
	{9_500_000, GradeAA},
	{9_200_000, GradeA},
	{8_900_000, GradeB},
	{8_600_000, GradeC},
}

// ComputeGrade maps a score to its grade. Scores equal to a threshold fall into the lower grade.
func ComputeGrade(score int) Grade {
	for _, t := range gradeThresholds {
		if score > t.above {
			return t.grade
		}
	}
	return GradeD
}

// PlayRating is the chart constant plus a bonus derived from the score.
// The curve is continuous at 9.8M and 10M and goes negative below 9.5M.
func PlayRating(chart models.Chart, score int) float64 {
	r := chart.ChartConstant
	switch {
	case score >= MaxBaseScore:
		r += 2
	case score >= exThreshold:
		r += 1 + float64(score-exThreshold)/200_000
	default:
		r += float64(score-aaThreshold) / 300_000
	}
	return r
}

// PureMemoryBonus reports how many of the shiny pure bonus points were lost.
// It is only defined when score exceeds 10M.
func PureMemoryBonus(chart models.Chart, score int) (int, bool) {
	if score <= MaxBaseScore {
		return 0, false
	}
	return score - MaxBaseScore - chart.NoteCount, true
}

// ExpectedScore inverts PlayRating: the score needed on chart to reach the given rating.
func ExpectedScore(chart models.Chart, rating float64) int {
	cc := chart.ChartConstant
	var score float64
	switch {
	case rating >= cc+2:
		return MaxBaseScore + chart.NoteCount
	case rating >= cc+1:
		score = exThreshold + (rating-cc-1)*200_000
	default:
		score = aaThreshold + (rating-cc)*300_000
	}
	return int(math.Max(0, math.Round(score)))
}

// BestAverage is the mean of the n highest ratings, or of all of them when there are fewer.
func BestAverage(ratings []float64, n int) float64 {
	if len(ratings) == 0 || n <= 0 {
		return 0
	}
	sorted := append([]float64(nil), ratings...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	var sum float64
	for _, r := range sorted {
		sum += r
	}
	return sum / float64(len(sorted))
}
