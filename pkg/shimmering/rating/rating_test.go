package rating

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/himanishpuri/shimmering/pkg/models"
)

func testChart(cc float64, notes int) models.Chart {
	return models.Chart{Title: "Example Song", Difficulty: models.FTR, Level: "9+", ChartConstant: cc, NoteCount: notes}
}

func TestComputeGradeBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Grade
	}{
		{10_001_000, GradeEXPlus},
		{9_900_001, GradeEXPlus},
		{9_900_000, GradeEX},
		{9_876_543, GradeEX},
		{9_800_000, GradeAA},
		{9_500_000, GradeA},
		{9_200_000, GradeB},
		{8_900_000, GradeC},
		{8_600_001, GradeC},
		{8_600_000, GradeD},
		{0, GradeD},
	}

	for _, tt := range tests {
		if got := ComputeGrade(tt.score); got != tt.want {
			t.Errorf("ComputeGrade(%d): expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

func TestPlayRating(t *testing.T) {
	c := testChart(9.8, 1000)

	assert.InDelta(t, 11.8, PlayRating(c, 10_000_000), 1e-9)
	assert.InDelta(t, 11.8, PlayRating(c, 10_001_000), 1e-9)
	assert.InDelta(t, 10.8, PlayRating(c, 9_800_000), 1e-9)
	assert.InDelta(t, 11.18, PlayRating(c, 9_876_000), 1e-9)
	assert.InDelta(t, 9.8, PlayRating(c, 9_500_000), 1e-9)
	// below AA the bonus goes negative
	assert.InDelta(t, 8.8, PlayRating(c, 9_200_000), 1e-9)
}

func TestPlayRatingContinuity(t *testing.T) {
	c := testChart(10.0, 1200)

	assert.InDelta(t, PlayRating(c, 9_799_999), PlayRating(c, 9_800_000), 1e-4)
	assert.InDelta(t, PlayRating(c, 9_999_999), PlayRating(c, 10_000_000), 1e-4)
}

func TestPlayRatingMonotonic(t *testing.T) {
	c := testChart(10.4, 1200)
	prev := math.Inf(-1)
	for s := 8_000_000; s <= 10_002_000; s += 1_000 {
		r := PlayRating(c, s)
		if r < prev {
			t.Fatalf("Expected rating to be non-decreasing, dropped at %d (%f < %f)", s, r, prev)
		}
		prev = r
	}
}

func TestPureMemoryBonus(t *testing.T) {
	c := testChart(9.8, 1000)

	got, ok := PureMemoryBonus(c, 10_000_950)
	assert.True(t, ok)
	assert.Equal(t, -50, got)

	got, ok = PureMemoryBonus(c, 10_001_000)
	assert.True(t, ok)
	assert.Equal(t, 0, got)

	_, ok = PureMemoryBonus(c, 10_000_000)
	assert.False(t, ok)

	_, ok = PureMemoryBonus(c, 9_876_543)
	assert.False(t, ok)
}

func TestExpectedScore(t *testing.T) {
	c := testChart(10.0, 1200)

	assert.Equal(t, 10_001_200, ExpectedScore(c, 12.0))
	assert.Equal(t, 9_900_000, ExpectedScore(c, 11.5))
	assert.Equal(t, 9_800_000, ExpectedScore(c, 11.0))
	assert.Equal(t, 9_500_000, ExpectedScore(c, 10.0))
	assert.Equal(t, 0, ExpectedScore(c, -40))

	for _, score := range []int{9_200_000, 9_650_000, 9_850_000, 9_950_000} {
		assert.InDelta(t, score, ExpectedScore(c, PlayRating(c, score)), 1)
	}
}

func TestBestAverage(t *testing.T) {
	assert.Equal(t, 0.0, BestAverage(nil, 30))
	assert.InDelta(t, 11.0, BestAverage([]float64{10, 12}, 30), 1e-9)
	assert.InDelta(t, 11.5, BestAverage([]float64{9, 12, 11, 10}, 2), 1e-9)
}
