package shimmering

import (
	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering/rating"
)

// ScoreRow is a score with everything derived from it, ready for display.
type ScoreRow struct {
	Chart      models.Chart `json:"chart" yaml:"chart"`
	ScoreID    uint         `json:"score_id,omitempty" yaml:"score_id,omitempty"`
	Score      int          `json:"score" yaml:"score"`
	Grade      rating.Grade `json:"grade" yaml:"grade"`
	PlayRating float64      `json:"play_rating" yaml:"play_rating"`
	PMBonus    *int         `json:"pm_bonus,omitempty" yaml:"pm_bonus,omitempty"`
}

// NewScoreRow computes grade, play rating and pure-memory bonus for score on chart.
func NewScoreRow(chart models.Chart, scoreID uint, score int) ScoreRow {
	row := ScoreRow{
		Chart:      chart,
		ScoreID:    scoreID,
		Score:      score,
		Grade:      rating.ComputeGrade(score),
		PlayRating: rating.PlayRating(chart, score),
	}
	if pm, ok := rating.PureMemoryBonus(chart, score); ok {
		row.PMBonus = &pm
	}
	return row
}

type DiagnosticKind string

const (
	Skipped     DiagnosticKind = "skipped"
	Quarantined DiagnosticKind = "quarantined"
)

// Diagnostic explains why an image did not produce a score.
type Diagnostic struct {
	Path          string         `json:"path" yaml:"path"`
	Kind          DiagnosticKind `json:"kind" yaml:"kind"`
	Message       string         `json:"message" yaml:"message"`
	QuarantinedTo string         `json:"quarantined_to,omitempty" yaml:"quarantined_to,omitempty"`
}

// IngestReport is the outcome of one AddScores batch.
type IngestReport struct {
	Accepted    []ScoreRow   `json:"accepted" yaml:"accepted"`
	Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

type ImportSummary struct {
	Rows      int `json:"rows" yaml:"rows"`
	Created   int `json:"created" yaml:"created"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`
}

// ChartQuery names a chart the way a person would type it.
type ChartQuery struct {
	Title      string
	Difficulty models.Difficulty
	Artist     *string
}

// Expectation is the score needed on a chart for a target play rating.
type Expectation struct {
	Chart  models.Chart `json:"chart" yaml:"chart"`
	Rating float64      `json:"rating" yaml:"rating"`
	Score  int          `json:"score" yaml:"score"`
}

// B30Result is the average of a user's best play ratings.
type B30Result struct {
	Potential float64    `json:"potential" yaml:"potential"`
	Plays     []ScoreRow `json:"plays" yaml:"plays"`
}

type Stats struct {
	Charts int64 `json:"charts" yaml:"charts"`
	Users  int64 `json:"users" yaml:"users"`
	Scores int64 `json:"scores" yaml:"scores"`
}
