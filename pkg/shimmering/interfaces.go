package shimmering

import (
	"context"

	"github.com/himanishpuri/shimmering/pkg/models"
)

type Service interface {
	AddScores(ctx context.Context, externalUserID string, paths []string) (*IngestReport, error)
	ImportCharts(ctx context.Context, path string) (*ImportSummary, error)
	ExportCharts(path string) (int, error)
	ListCharts() ([]models.Chart, error)
	BestScores(externalUserID string) ([]ScoreRow, error)
	B30(externalUserID string) (*B30Result, error)
	ListUsers() ([]models.UserSummary, error)
	MostPlayedCharts(limit int) ([]models.ChartPlays, error)
	SetNickname(externalUserID, nickname string) error
	CalcRating(query ChartQuery, score int) (*ScoreRow, error)
	ExpectedScore(query ChartQuery, rating float64) (*Expectation, error)
	Stats() (*Stats, error)
	Close() error
}

type Storage interface {
	RegisterChart(chart models.Chart) (string, bool, error)
	ListCharts() ([]models.Chart, error)
	GetChartByID(id string) (*models.Chart, error)
	GetOrCreateUser(externalID string) (models.User, error)
	SetNickname(externalID, nickname string) error
	InsertScore(rec models.ScoreRecord) (uint, error)
	BestScores(externalID string) ([]models.ChartScore, error)
	ListUsers() ([]models.UserSummary, error)
	MostPlayedCharts(limit int) ([]models.ChartPlays, error)
	Counts() (charts, users, scores int64, err error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
