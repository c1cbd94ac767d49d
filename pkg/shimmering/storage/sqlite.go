package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/utils"
)

const DefaultDBFile = "shimmering.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("record not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Chart struct {
	ID            string  `gorm:"primaryKey;type:varchar(36)"`
	Title         string  `gorm:"not null;uniqueIndex:idx_chart_unique,priority:1;index:idx_chart_title" json:"title"`
	Difficulty    string  `gorm:"type:varchar(3);not null;uniqueIndex:idx_chart_unique,priority:2" json:"difficulty"`
	Artist        string  `gorm:"not null;uniqueIndex:idx_chart_unique,priority:3" json:"artist"`
	Level         string  `json:"level"`
	NoteCount     int     `gorm:"not null;check:note_count > 0" json:"note_count"`
	ChartConstant float64 `gorm:"not null" json:"chart_constant"`
	CreatedAt     time.Time
}

type User struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ExternalID string `gorm:"not null;uniqueIndex:idx_user_external" json:"external_id"`
	Nickname   string `json:"nickname"`
	OCRConfig  string `gorm:"column:ocr_config" json:"ocr_config"`
	CreatedAt  time.Time
}

type Score struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ChartID     string `gorm:"type:varchar(36);not null;index:idx_score_chart" json:"chart_id"`
	UserID      uint   `gorm:"not null;index:idx_score_user" json:"user_id"`
	ParsedTitle string `json:"parsed_title"`
	MaxRecall   *int   `json:"max_recall"`
	Score       int    `gorm:"not null" json:"score"`
	CreatedAt   time.Time

	Chart Chart `gorm:"foreignKey:ChartID;constraint:OnDelete:CASCADE" json:"-"`
	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("SHIMMERING_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// one writer at a time keeps sqlite from returning SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Chart{}, &User{}, &Score{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// RegisterChart inserts a chart, or refreshes level, note count and constant
// of the existing (title, difficulty, artist) row. It reports whether a row was created.
func (c *DBClient) RegisterChart(ch models.Chart) (string, bool, error) {
	if c == nil || c.DB == nil {
		return "", false, errors.New(errDBClientNil)
	}

	var row Chart
	where := "title = ? AND difficulty = ? AND artist = ?"

	err := c.DB.Where(where, ch.Title, string(ch.Difficulty), ch.Artist).First(&row).Error
	if err == nil {
		updates := map[string]any{}
		if row.Level != ch.Level {
			updates["level"] = ch.Level
		}
		if row.NoteCount != ch.NoteCount {
			updates["note_count"] = ch.NoteCount
		}
		if row.ChartConstant != ch.ChartConstant {
			updates["chart_constant"] = ch.ChartConstant
		}
		if len(updates) > 0 {
			if err := c.DB.Model(&row).Updates(updates).Error; err != nil {
				return "", false, fmt.Errorf("updating chart: %w", err)
			}
		}
		return row.ID, false, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, fmt.Errorf("querying existing chart: %w", err)
	}

	id := ch.ID
	if id == "" {
		id = utils.GenerateUUID()
	}
	row = Chart{
		ID:            id,
		Title:         ch.Title,
		Difficulty:    string(ch.Difficulty),
		Artist:        ch.Artist,
		Level:         ch.Level,
		NoteCount:     ch.NoteCount,
		ChartConstant: ch.ChartConstant,
	}
	if err := c.DB.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			if fetchErr := c.DB.Where(where, ch.Title, string(ch.Difficulty), ch.Artist).First(&row).Error; fetchErr != nil {
				return "", false, fmt.Errorf("fetching chart after constraint violation: %w", fetchErr)
			}
			return row.ID, false, nil
		}
		return "", false, fmt.Errorf("creating chart: %w", err)
	}

	return row.ID, true, nil
}

// ListCharts returns the catalog in insertion order.
func (c *DBClient) ListCharts() ([]models.Chart, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Chart
	if err := c.DB.Order("rowid").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing charts: %w", err)
	}
	out := make([]models.Chart, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (c *DBClient) GetChartByID(id string) (*models.Chart, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row Chart
	if err := c.DB.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chart %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("querying chart: %w", err)
	}
	ch := row.toModel()
	return &ch, nil
}

// GetOrCreateUser looks a user up by external id, creating it on first sight.
func (c *DBClient) GetOrCreateUser(externalID string) (models.User, error) {
	if c == nil || c.DB == nil {
		return models.User{}, errors.New(errDBClientNil)
	}

	var row User
	err := c.DB.Where("external_id = ?", externalID).First(&row).Error
	if err == nil {
		return row.toModel(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("querying user: %w", err)
	}

	row = User{ExternalID: externalID}
	if err := c.DB.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			if fetchErr := c.DB.Where("external_id = ?", externalID).First(&row).Error; fetchErr != nil {
				return models.User{}, fmt.Errorf("fetching user after constraint violation: %w", fetchErr)
			}
			return row.toModel(), nil
		}
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}
	return row.toModel(), nil
}

func (c *DBClient) SetNickname(externalID, nickname string) error {
	user, err := c.GetOrCreateUser(externalID)
	if err != nil {
		return err
	}
	if err := c.DB.Model(&User{}).Where("id = ?", user.ID).Update("nickname", nickname).Error; err != nil {
		return fmt.Errorf("updating nickname: %w", err)
	}
	return nil
}

// InsertScore stores one accepted play and returns its id.
func (c *DBClient) InsertScore(rec models.ScoreRecord) (uint, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	row := Score{
		ChartID:     rec.ChartID,
		UserID:      rec.UserID,
		ParsedTitle: rec.ParsedTitle,
		MaxRecall:   rec.MaxRecall,
		Score:       rec.Score,
		CreatedAt:   rec.CreatedAt,
	}
	if err := c.DB.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("inserting score: %w", err)
	}
	return row.ID, nil
}

type chartScoreRow struct {
	ScoreID       uint
	Score         int
	ChartID       string
	Title         string
	Difficulty    string
	Level         string
	NoteCount     int
	ChartConstant float64
	Artist        string
}

// BestScores returns the highest score per chart for one user, best first.
func (c *DBClient) BestScores(externalID string) ([]models.ChartScore, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []chartScoreRow
	err := c.DB.Raw(`
		SELECT s.id AS score_id, s.score, c.id AS chart_id, c.title, c.difficulty,
		       c.level, c.note_count, c.chart_constant, c.artist
		FROM scores s
		JOIN charts c ON c.id = s.chart_id
		JOIN users u ON u.id = s.user_id
		WHERE u.external_id = ?
		  AND s.id = (
		    SELECT s2.id FROM scores s2
		    WHERE s2.chart_id = s.chart_id AND s2.user_id = s.user_id
		    ORDER BY s2.score DESC, s2.id ASC
		    LIMIT 1
		  )
		ORDER BY s.score DESC, s.id ASC
	`, externalID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying best scores: %w", err)
	}

	out := make([]models.ChartScore, len(rows))
	for i, r := range rows {
		out[i] = models.ChartScore{
			Chart: models.Chart{
				ID:            r.ChartID,
				Title:         r.Title,
				Difficulty:    models.Difficulty(r.Difficulty),
				Level:         r.Level,
				NoteCount:     r.NoteCount,
				ChartConstant: r.ChartConstant,
				Artist:        r.Artist,
			},
			ScoreID: r.ScoreID,
			Score:   r.Score,
		}
	}
	return out, nil
}

// ListUsers returns every user with their score count.
func (c *DBClient) ListUsers() ([]models.UserSummary, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []struct {
		ID         uint
		ExternalID string
		Nickname   string
		OCRConfig  string `gorm:"column:ocr_config"`
		Scores     int
	}
	err := c.DB.Raw(`
		SELECT u.id, u.external_id, u.nickname, u.ocr_config, COUNT(s.id) AS scores
		FROM users u
		LEFT JOIN scores s ON s.user_id = u.id
		GROUP BY u.id
		ORDER BY u.id
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	out := make([]models.UserSummary, len(rows))
	for i, r := range rows {
		out[i] = models.UserSummary{
			User:   models.User{ID: r.ID, ExternalID: r.ExternalID, Nickname: r.Nickname, OCRConfig: r.OCRConfig},
			Scores: r.Scores,
		}
	}
	return out, nil
}

// MostPlayedCharts returns up to limit charts ordered by play count.
func (c *DBClient) MostPlayedCharts(limit int) ([]models.ChartPlays, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []struct {
		Chart
		Plays int
	}
	err := c.DB.Raw(`
		SELECT c.*, COUNT(s.id) AS plays
		FROM charts c
		LEFT JOIN scores s ON s.chart_id = c.id
		GROUP BY c.id
		ORDER BY plays DESC, c.rowid ASC
		LIMIT ?
	`, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying most played charts: %w", err)
	}

	out := make([]models.ChartPlays, len(rows))
	for i, r := range rows {
		out[i] = models.ChartPlays{Chart: r.Chart.toModel(), Plays: r.Plays}
	}
	return out, nil
}

// Counts reports the number of charts, users and scores.
func (c *DBClient) Counts() (charts, users, scores int64, err error) {
	if c == nil || c.DB == nil {
		return 0, 0, 0, errors.New(errDBClientNil)
	}
	if err = c.DB.Model(&Chart{}).Count(&charts).Error; err != nil {
		return
	}
	if err = c.DB.Model(&User{}).Count(&users).Error; err != nil {
		return
	}
	err = c.DB.Model(&Score{}).Count(&scores).Error
	return
}

func (r Chart) toModel() models.Chart {
	return models.Chart{
		ID:            r.ID,
		Title:         r.Title,
		Difficulty:    models.Difficulty(r.Difficulty),
		Level:         r.Level,
		NoteCount:     r.NoteCount,
		ChartConstant: r.ChartConstant,
		Artist:        r.Artist,
	}
}

func (r User) toModel() models.User {
	return models.User{ID: r.ID, ExternalID: r.ExternalID, Nickname: r.Nickname, OCRConfig: r.OCRConfig}
}
