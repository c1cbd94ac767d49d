package models

import "time"

// ScoreRecord is a persisted play. Rows are only ever inserted.
type ScoreRecord struct {
	ID          uint
	ChartID     string
	UserID      uint
	ParsedTitle string
	MaxRecall   *int
	Score       int
	CreatedAt   time.Time
}

// User is a player, keyed by an external (chat platform) id.
type User struct {
	ID         uint   `json:"id" yaml:"id"`
	ExternalID string `json:"external_id" yaml:"external_id"`
	Nickname   string `json:"nickname" yaml:"nickname"`
	OCRConfig  string `json:"ocr_config" yaml:"ocr_config"`
}

// UserSummary is a user along with how many scores they submitted.
type UserSummary struct {
	User   `yaml:",inline"`
	Scores int `json:"scores" yaml:"scores"`
}

// ChartPlays is a chart along with how often it was played.
type ChartPlays struct {
	Chart `yaml:",inline"`
	Plays int `json:"plays" yaml:"plays"`
}

// ChartScore joins a score with the chart it was set on.
type ChartScore struct {
	Chart   Chart
	ScoreID uint
	Score   int
}
