package main

import (
	"fmt"

	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering"
)

// Upload limits for POST /api/scores
const (
	// MaxUploadBytes caps the whole multipart body.
	MaxUploadBytes = 64 << 20

	// DefaultUploadMemory is how much of an upload is kept in memory.
	DefaultUploadMemory = 32 << 20

	// MaxImagesPerRequest caps how many screenshots one request may carry.
	MaxImagesPerRequest = 50
)

// CalcRequest is the request body for POST /api/calc/rating and /api/calc/expected
type CalcRequest struct {
	Title      string  `json:"title"`
	Difficulty string  `json:"difficulty,omitempty"`
	Artist     string  `json:"artist,omitempty"`
	Score      int     `json:"score,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
}

// Validate checks if the request is valid
func (r *CalcRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.Score < 0 {
		return fmt.Errorf("score cannot be negative")
	}
	return nil
}

// Query converts the request into a chart lookup.
func (r *CalcRequest) Query() (shimmering.ChartQuery, error) {
	q := shimmering.ChartQuery{Title: r.Title}
	if r.Difficulty != "" {
		d, err := models.ParseDifficulty(r.Difficulty)
		if err != nil {
			return q, err
		}
		q.Difficulty = d
	}
	if r.Artist != "" {
		artist := r.Artist
		q.Artist = &artist
	}
	return q, nil
}

// IngestResponse is the response for POST /api/scores
type IngestResponse struct {
	User        string                  `json:"user"`
	Accepted    []shimmering.ScoreRow   `json:"accepted"`
	Diagnostics []shimmering.Diagnostic `json:"diagnostics"`
	Count       int                     `json:"count"`
}

// IngestErrorResponse is the error envelope for POST /api/scores. Scores
// stored before the failure are still listed.
type IngestErrorResponse struct {
	ErrorResponse
	Accepted    []shimmering.ScoreRow   `json:"accepted"`
	Diagnostics []shimmering.Diagnostic `json:"diagnostics"`
}

// ListChartsResponse is the response for GET /api/charts
type ListChartsResponse struct {
	Charts []models.Chart `json:"charts"`
	Count  int            `json:"count"`
}

// PopularChartsResponse is the response for GET /api/charts/popular
type PopularChartsResponse struct {
	Charts []models.ChartPlays `json:"charts"`
	Count  int                 `json:"count"`
}

// ListUsersResponse is the response for GET /api/users
type ListUsersResponse struct {
	Users []models.UserSummary `json:"users"`
	Count int                  `json:"count"`
}

// ScoresResponse is the response for GET /api/users/{id}/scores
type ScoresResponse struct {
	User   string                `json:"user"`
	Scores []shimmering.ScoreRow `json:"scores"`
	Count  int                   `json:"count"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	ChartCount   int64  `json:"chart_count"`
	UserCount    int64  `json:"user_count"`
	ScoreCount   int64  `json:"score_count"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
