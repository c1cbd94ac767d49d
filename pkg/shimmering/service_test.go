package shimmering

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/shimmering/pkg/logger"
	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering/layout"
	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
	"github.com/himanishpuri/shimmering/pkg/shimmering/rating"
	"github.com/himanishpuri/shimmering/pkg/shimmering/resolver"
)

var fixedNow = time.Date(2024, 3, 5, 6, 7, 8, 0, time.UTC)

// fakeOCR answers region reads from a per-image table keyed by region name.
type fakeOCR struct {
	regions map[ocr.Rect]string
	texts   map[string]map[string]string
	errs    map[string]error
}

func newFakeOCR(p layout.Profile) *fakeOCR {
	f := &fakeOCR{
		regions: map[ocr.Rect]string{},
		texts:   map[string]map[string]string{},
		errs:    map[string]error{},
	}
	for name, r := range p.Regions {
		f.regions[r] = name
	}
	return f
}

func (f *fakeOCR) Extract(_ context.Context, imagePath string, rect ocr.Rect, _ string) (string, error) {
	if err, ok := f.errs[imagePath]; ok {
		return "", err
	}
	name, ok := f.regions[rect]
	if !ok {
		return "", fmt.Errorf("unexpected region %v", rect)
	}
	return f.texts[imagePath][name], nil
}

func (f *fakeOCR) songSelect(path, title, score string) {
	f.texts[path] = map[string]string{
		layout.RegionHeader:      "Select a Song",
		layout.RegionSelectTitle: title,
		layout.RegionSelectScore: score,
	}
}

func (f *fakeOCR) result(path, title, score, recall, difficulty, artist string) {
	f.texts[path] = map[string]string{
		layout.RegionHeader:           "Result",
		layout.RegionResultTitle:      title,
		layout.RegionResultScore:      score,
		layout.RegionResultMaxRecall:  recall,
		layout.RegionResultDifficulty: difficulty,
		layout.RegionResultArtist:     artist,
	}
}

type testEnv struct {
	svc     Service
	ocr     *fakeOCR
	dataDir string
	imgDir  string
}

func quietLogger() Logger {
	return logger.New(logger.Config{Level: logger.DEBUG, Output: io.Discard})
}

func testCharts() []models.Chart {
	return []models.Chart{
		{Title: "Example Song", Difficulty: models.FTR, Level: "9+", NoteCount: 1000, ChartConstant: 9.8, Artist: "Someone"},
		{Title: "Quon", Difficulty: models.FTR, Level: "9", NoteCount: 1100, ChartConstant: 9.4, Artist: "Feryquitous"},
		{Title: "Quon", Difficulty: models.FTR, Level: "10", NoteCount: 1300, ChartConstant: 10.2, Artist: "DJ Noriken"},
		{Title: "Grievous Lady", Difficulty: models.FTR, Level: "11", NoteCount: 1450, ChartConstant: 11.3, Artist: "Team Grimoire vs Laur"},
	}
}

// setupTestService builds a service on a temp SQLite database with a fake OCR
// engine. The profile decides which region rectangles the fake recognizes.
func setupTestService(t *testing.T, profile layout.Profile, charts []models.Chart) *testEnv {
	t.Helper()

	dataDir := t.TempDir()
	fake := newFakeOCR(profile)

	svc, err := NewService(
		WithDataDir(dataDir),
		WithExtractor(fake),
		WithProfiles(profile),
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	stor := svc.(*shimmeringService).storage
	for _, ch := range charts {
		_, _, err := stor.RegisterChart(ch)
		require.NoError(t, err)
	}

	return &testEnv{svc: svc, ocr: fake, dataDir: dataDir, imgDir: t.TempDir()}
}

func (e *testEnv) screenshot(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.imgDir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 1920, 1080))))
	return path
}

func (e *testEnv) scoreCount(t *testing.T) int64 {
	t.Helper()
	stats, err := e.svc.Stats()
	require.NoError(t, err)
	return stats.Scores
}

func TestAddScoresSongSelect(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	img := env.screenshot(t, "select.png")
	env.ocr.songSelect(img, "Example Song", "9876543")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{img})
	require.NoError(t, err)
	require.Len(t, report.Accepted, 1)
	assert.Empty(t, report.Diagnostics)

	row := report.Accepted[0]
	assert.Equal(t, "Example Song", row.Chart.Title)
	assert.Equal(t, models.FTR, row.Chart.Difficulty)
	assert.Equal(t, 9876543, row.Score)
	assert.Equal(t, rating.GradeEX, row.Grade)
	assert.InDelta(t, 9.8+1+76543.0/200000, row.PlayRating, 1e-9)
	assert.Nil(t, row.PMBonus)
	assert.NotZero(t, row.ScoreID)

	assert.Equal(t, int64(1), env.scoreCount(t))

	best, err := env.svc.BestScores("discord-1")
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, row.ScoreID, best[0].ScoreID)
}

func TestAddScoresResultScreenWithPM(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	img := env.screenshot(t, "result.png")
	env.ocr.result(img, "Grievous Lady", "10001400", "1450", "FUTURE", "")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{img})
	require.NoError(t, err)
	require.Len(t, report.Accepted, 1)

	row := report.Accepted[0]
	assert.Equal(t, rating.GradeEXPlus, row.Grade)
	assert.InDelta(t, 13.3, row.PlayRating, 1e-9)
	require.NotNil(t, row.PMBonus)
	assert.Equal(t, -50, *row.PMBonus)
}

func TestAddScoresSkipsMissingFile(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	good := env.screenshot(t, "good.png")
	env.ocr.songSelect(good, "Example Song", "9876543")
	missing := filepath.Join(env.imgDir, "missing.png")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{missing, good})
	require.NoError(t, err)

	assert.Len(t, report.Accepted, 1)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, Skipped, report.Diagnostics[0].Kind)
	assert.Equal(t, "Skipping non-existent "+missing, report.Diagnostics[0].Message)
}

func TestAddScoresQuarantinesGarbledTitle(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	img := env.screenshot(t, "garbled.jpg.png")
	env.ocr.songSelect(img, "zzzzzzzzzzzzzzzzzzzz", "9876543")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{img})
	require.NoError(t, err)

	assert.Empty(t, report.Accepted)
	require.Len(t, report.Diagnostics, 1)
	diag := report.Diagnostics[0]
	assert.Equal(t, Quarantined, diag.Kind)

	want := filepath.Join(env.dataDir, "images", "2024-03-05_06-07-08-1.png")
	assert.Equal(t, want, diag.QuarantinedTo)
	assert.FileExists(t, want)
	assert.FileExists(t, img, "original stays in place")
	assert.True(t, strings.HasPrefix(diag.Message, `Couldn't identify "zzzzzzzzzzzzzzzzzzzz (FTR)" as a chart title (distance=`))
	assert.True(t, strings.HasSuffix(diag.Message, "Saved file to "+want+"."))

	assert.Equal(t, int64(0), env.scoreCount(t))
}

func TestQuarantineNamesDoNotCollide(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	a := env.screenshot(t, "a.png")
	b := env.screenshot(t, "b.png")
	env.ocr.songSelect(a, "zzzzzzzzzzzzzzzzzzzz", "1")
	env.ocr.songSelect(b, "yyyyyyyyyyyyyyyyyyyy", "1")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{a, b})
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 2)
	assert.NotEqual(t, report.Diagnostics[0].QuarantinedTo, report.Diagnostics[1].QuarantinedTo)
	assert.FileExists(t, filepath.Join(env.dataDir, "images", "2024-03-05_06-07-08-1_1.png"))
}

func TestAddScoresMissingDifficultyIsQuarantined(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	img := env.screenshot(t, "byd.png")
	env.ocr.result(img, "Grievous Lady", "9500000", "100", "BEYOND", "")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{img})
	require.NoError(t, err)
	assert.Empty(t, report.Accepted)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, Quarantined, report.Diagnostics[0].Kind)
	assert.Contains(t, report.Diagnostics[0].Message, `"Grievous Lady (BYD)"`)
	assert.Contains(t, report.Diagnostics[0].Message, "distance=0")
}

func TestAddScoresParseErrorSkipsImage(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	bad := env.screenshot(t, "bad.png")
	good := env.screenshot(t, "good.png")
	env.ocr.songSelect(bad, "Example Song", "98?6543")
	env.ocr.songSelect(good, "Example Song", "9500000")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{bad, good})
	require.NoError(t, err)
	assert.Len(t, report.Accepted, 1)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, Skipped, report.Diagnostics[0].Kind)
	assert.Contains(t, report.Diagnostics[0].Message, bad)
}

func TestAddScoresInvalidRegionAbortsBatch(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	good := env.screenshot(t, "good.png")
	broken := env.screenshot(t, "broken.png")
	never := env.screenshot(t, "never.png")
	env.ocr.songSelect(good, "Example Song", "9876543")
	env.ocr.songSelect(never, "Example Song", "9876543")
	env.ocr.errs[broken] = fmt.Errorf("reading header: %w", &ocr.RegionError{})

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{good, broken, never})
	require.Error(t, err)
	assert.ErrorIs(t, err, ocr.ErrInvalidRegion)

	assert.Len(t, report.Accepted, 1, "scores before the failure are kept")
	assert.Equal(t, int64(1), env.scoreCount(t))
}

func TestAddScoresMissingToolAbortsBatch(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	img := env.screenshot(t, "shot.png")
	env.ocr.errs[img] = fmt.Errorf("%w: tesseract", ocr.ErrToolNotFound)

	_, err := env.svc.AddScores(context.Background(), "discord-1", []string{img})
	assert.ErrorIs(t, err, ocr.ErrToolNotFound)
}

func TestAddScoresOCRFailureSkipsImage(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	img := env.screenshot(t, "shot.png")
	env.ocr.errs[img] = errors.New("tesseract failed: exit status 1")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{img})
	require.NoError(t, err)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, Skipped, report.Diagnostics[0].Kind)
}

func TestAddScoresEmptyCatalog(t *testing.T) {
	env := setupTestService(t, layout.Reference(), nil)
	img := env.screenshot(t, "shot.png")
	env.ocr.songSelect(img, "Example Song", "9876543")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{img})
	assert.ErrorIs(t, err, resolver.ErrEmptyCatalog)
	assert.Empty(t, report.Accepted)
	assert.Empty(t, report.Diagnostics)

	users, err := env.svc.ListUsers()
	require.NoError(t, err)
	assert.Empty(t, users, "nothing is written before the catalog check")
}

func TestAddScoresCancelled(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	img := env.screenshot(t, "shot.png")
	env.ocr.songSelect(img, "Example Song", "9876543")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.AddScores(ctx, "discord-1", []string{img})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), env.scoreCount(t))
}

func TestAddScoresQuonDisambiguation(t *testing.T) {
	profile := layout.Reference()
	profile.Name = "with-artist"
	profile.Regions[layout.RegionResultArtist] = ocr.Rect{X: 300, Y: 430, Width: 900, Height: 50}

	env := setupTestService(t, profile, testCharts())
	noriken := env.screenshot(t, "noriken.png")
	fery := env.screenshot(t, "fery.png")
	env.ocr.result(noriken, "Quon", "9900000", "1000", "FUTURE", "DJ Norikcn")
	env.ocr.result(fery, "Qu0n", "9900000", "1000", "FUTURE", "Feryquitous")

	report, err := env.svc.AddScores(context.Background(), "discord-1", []string{noriken, fery})
	require.NoError(t, err)
	require.Len(t, report.Accepted, 2)

	assert.Equal(t, "DJ Noriken", report.Accepted[0].Chart.Artist)
	assert.Equal(t, "Feryquitous", report.Accepted[1].Chart.Artist)
}

func TestImportExportCharts(t *testing.T) {
	env := setupTestService(t, layout.Reference(), nil)

	csvPath := filepath.Join(env.imgDir, "charts.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Example Song,FTR,9+,9.8,,1.000,,,,Someone\n"+
			"Quon,FTR,9,9.4,,1100,,,,Feryquitous\n"), 0o644))

	summary, err := env.svc.ImportCharts(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Equal(t, &ImportSummary{Rows: 2, Created: 2}, summary)

	summary, err = env.svc.ImportCharts(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Equal(t, &ImportSummary{Rows: 2, Unchanged: 2}, summary)

	out := filepath.Join(env.imgDir, "charts.parquet")
	n, err := env.svc.ExportCharts(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, out)
}

func TestB30AndListings(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())
	a := env.screenshot(t, "a.png")
	b := env.screenshot(t, "b.png")
	c := env.screenshot(t, "c.png")
	env.ocr.songSelect(a, "Example Song", "9500000")
	env.ocr.songSelect(b, "Example Song", "9800000")
	env.ocr.songSelect(c, "Grievous Lady", "9500000")

	_, err := env.svc.AddScores(context.Background(), "discord-1", []string{a, b, c})
	require.NoError(t, err)

	best, err := env.svc.BestScores("discord-1")
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.Equal(t, 9800000, best[0].Score)

	b30, err := env.svc.B30("discord-1")
	require.NoError(t, err)
	require.Len(t, b30.Plays, 2)
	assert.Equal(t, "Grievous Lady", b30.Plays[0].Chart.Title, "ordered by play rating")
	assert.InDelta(t, (11.3+10.8)/2, b30.Potential, 1e-9)

	played, err := env.svc.MostPlayedCharts(0)
	require.NoError(t, err)
	assert.Equal(t, "Example Song", played[0].Title)
	assert.Equal(t, 2, played[0].Plays)

	require.NoError(t, env.svc.SetNickname("discord-1", "hikari"))
	users, err := env.svc.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "hikari", users[0].Nickname)
	assert.Equal(t, 3, users[0].Scores)
}

func TestCalcRatingAndExpectedScore(t *testing.T) {
	env := setupTestService(t, layout.Reference(), testCharts())

	row, err := env.svc.CalcRating(ChartQuery{Title: "grievous lady"}, 9_900_000)
	require.NoError(t, err)
	assert.Equal(t, rating.GradeEX, row.Grade)
	assert.Equal(t, "Grievous Lady", row.Chart.Title)
	assert.InDelta(t, 12.8, row.PlayRating, 1e-9)

	_, err = env.svc.CalcRating(ChartQuery{Title: "Completely Unrelated Words"}, 9_900_000)
	assert.ErrorIs(t, err, resolver.ErrMatchNotFound)

	noriken := "DJ Noriken"
	exp, err := env.svc.ExpectedScore(ChartQuery{Title: "Quon", Artist: &noriken}, 11.2)
	require.NoError(t, err)
	assert.Equal(t, "DJ Noriken", exp.Chart.Artist)
	assert.Equal(t, 9_800_000, exp.Score)

	_, err = env.svc.CalcRating(ChartQuery{Title: "Grievous Lady", Difficulty: models.BYD}, 1)
	assert.ErrorIs(t, err, resolver.ErrMatchNotFound)
}
