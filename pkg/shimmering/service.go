package shimmering

import (
	"context"
	"fmt"
	"sort"

	"github.com/himanishpuri/shimmering/pkg/logger"
	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering/catalog"
	"github.com/himanishpuri/shimmering/pkg/shimmering/layout"
	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
	"github.com/himanishpuri/shimmering/pkg/shimmering/rating"
	"github.com/himanishpuri/shimmering/pkg/shimmering/resolver"
)

// B30Size is how many best plays make up a potential.
const B30Size = 30

// shimmeringService is the default implementation of the Service interface.
type shimmeringService struct {
	storage   Storage
	log       Logger
	config    *Config
	extractor layout.TextExtractor
	layouts   *layout.Registry
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.resolvePaths()

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	layouts, err := layout.NewRegistry(cfg.Profiles...)
	if err != nil {
		return nil, fmt.Errorf("invalid layout profile: %w", err)
	}

	extractor := cfg.Extractor
	if extractor == nil {
		t := cfg.Transformer
		if t == nil {
			t = &ocr.MagickTransformer{}
		}
		r := cfg.Recognizer
		if r == nil {
			r = &ocr.TesseractCLI{}
		}
		extractor = ocr.NewExtractor(t, r,
			ocr.WithTempDir(cfg.TempDir),
			ocr.WithPageSegMode(cfg.PageSegMode),
		)
	}

	var stor Storage
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &shimmeringService{
		storage:   stor,
		log:       cfg.Logger,
		config:    cfg,
		extractor: extractor,
		layouts:   layouts,
	}, nil
}

// ImportCharts loads a CSV or parquet catalog file into the database.
func (s *shimmeringService) ImportCharts(ctx context.Context, path string) (*ImportSummary, error) {
	charts, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for _, ch := range charts {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		_, created, err := s.storage.RegisterChart(ch)
		if err != nil {
			return summary, fmt.Errorf("registering %s (%s): %w", ch.Title, ch.Difficulty, err)
		}
		summary.Rows++
		if created {
			summary.Created++
		} else {
			summary.Unchanged++
		}
	}

	s.log.Infof("Imported %d charts from %s (%d new)", summary.Rows, path, summary.Created)
	return summary, nil
}

// ExportCharts writes the catalog to a CSV or parquet file.
func (s *shimmeringService) ExportCharts(path string) (int, error) {
	charts, err := s.storage.ListCharts()
	if err != nil {
		return 0, err
	}
	if err := catalog.Save(path, charts); err != nil {
		return 0, err
	}
	return len(charts), nil
}

func (s *shimmeringService) ListCharts() ([]models.Chart, error) {
	return s.storage.ListCharts()
}

// BestScores returns the user's best score on every chart they played, best first.
func (s *shimmeringService) BestScores(externalUserID string) ([]ScoreRow, error) {
	scores, err := s.storage.BestScores(externalUserID)
	if err != nil {
		return nil, err
	}
	rows := make([]ScoreRow, len(scores))
	for i, sc := range scores {
		rows[i] = NewScoreRow(sc.Chart, sc.ScoreID, sc.Score)
	}
	return rows, nil
}

// B30 averages the play ratings of the user's 30 best charts.
func (s *shimmeringService) B30(externalUserID string) (*B30Result, error) {
	rows, err := s.BestScores(externalUserID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PlayRating > rows[j].PlayRating })
	if len(rows) > B30Size {
		rows = rows[:B30Size]
	}

	ratings := make([]float64, len(rows))
	for i, r := range rows {
		ratings[i] = r.PlayRating
	}
	return &B30Result{Potential: rating.BestAverage(ratings, B30Size), Plays: rows}, nil
}

func (s *shimmeringService) ListUsers() ([]models.UserSummary, error) {
	return s.storage.ListUsers()
}

func (s *shimmeringService) MostPlayedCharts(limit int) ([]models.ChartPlays, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.storage.MostPlayedCharts(limit)
}

func (s *shimmeringService) SetNickname(externalUserID, nickname string) error {
	return s.storage.SetNickname(externalUserID, nickname)
}

// findChart resolves a typed chart name against the whole catalog.
func (s *shimmeringService) findChart(q ChartQuery) (models.Chart, error) {
	charts, err := s.storage.ListCharts()
	if err != nil {
		return models.Chart{}, fmt.Errorf("loading catalog: %w", err)
	}
	res, err := resolver.New(charts, resolver.WithRules(s.config.AmbiguousTitles...))
	if err != nil {
		return models.Chart{}, err
	}

	diff := q.Difficulty
	if diff == "" {
		diff = models.FTR
	}
	match, err := res.Resolve(q.Title, diff, q.Artist)
	if err != nil {
		return models.Chart{}, fmt.Errorf("%q (%s): %w", q.Title, diff, err)
	}
	if match.Distance >= s.config.AcceptThreshold {
		return models.Chart{}, fmt.Errorf("%q (%s): closest title %q is too far off (distance=%d): %w",
			q.Title, diff, match.Chart.Title, match.Distance, resolver.ErrMatchNotFound)
	}
	return match.Chart, nil
}

// CalcRating computes the derived metrics of a hypothetical score.
func (s *shimmeringService) CalcRating(q ChartQuery, score int) (*ScoreRow, error) {
	chart, err := s.findChart(q)
	if err != nil {
		return nil, err
	}
	row := NewScoreRow(chart, 0, score)
	return &row, nil
}

// ExpectedScore reports the score needed on a chart to reach a play rating.
func (s *shimmeringService) ExpectedScore(q ChartQuery, target float64) (*Expectation, error) {
	chart, err := s.findChart(q)
	if err != nil {
		return nil, err
	}
	return &Expectation{Chart: chart, Rating: target, Score: rating.ExpectedScore(chart, target)}, nil
}

func (s *shimmeringService) Stats() (*Stats, error) {
	charts, users, scores, err := s.storage.Counts()
	if err != nil {
		return nil, err
	}
	return &Stats{Charts: charts, Users: users, Scores: scores}, nil
}

// Close releases all resources held by the service.
func (s *shimmeringService) Close() error {
	return s.storage.Close()
}
