package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/shimmering/pkg/shimmering/layout"
	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
)

const sampleTOML = `
data_dir = "/srv/shimmering"
threshold = 5
ambiguous_titles = ["Quon"]

[ocr]
transformer = "imaging"
language = "eng"
psm = 7
timeout = "5s"

[[profiles]]
name = "phone"
width = 2400
height = 1080

[profiles.regions]
header = { x = 0, y = 0, width = 400, height = 75 }
"select.title" = { x = 10, y = 360, width = 1300, height = 80 }
"select.score" = { x = 0, y = 260, width = 400, height = 60 }
"result.title" = { x = 300, y = 320, width = 1500, height = 110 }
"result.score" = { x = 1100, y = 675, width = 470, height = 120 }
"result.max_recall" = { x = 480, y = 590, width = 130, height = 50 }
"result.difficulty" = { x = 190, y = 540, width = 200, height = 40 }
`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDataDir, EnvDBPath, EnvQuarantineDir, EnvTempDir, EnvThreshold, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "/srv/shimmering", cfg.DataDir)
	assert.Equal(t, 5, cfg.Threshold)
	assert.Equal(t, []string{"Quon"}, cfg.AmbiguousTitles)
	assert.Equal(t, "imaging", cfg.OCR.Transformer)
	assert.Equal(t, "tesseract", cfg.OCR.Recognizer, "unset keys keep their default")
	assert.Equal(t, 7, cfg.OCR.PageSegMode)
	assert.Equal(t, 5*time.Second, cfg.OCR.Timeout)

	require.Len(t, cfg.Profiles, 1)
	p := cfg.Profiles[0]
	require.NoError(t, p.Validate())
	assert.Equal(t, ocr.Rect{X: 10, Y: 360, Width: 1300, Height: 80}, p.Regions[layout.RegionSelectTitle])
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "threshold = \"many\""))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, "/env/data")
	t.Setenv(EnvDBPath, "/env/db.sqlite")
	t.Setenv(EnvThreshold, "3")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)
	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, "/env/db.sqlite", cfg.DBPath)
	assert.Equal(t, 3, cfg.Threshold)
	assert.Equal(t, "DEBUG", cfg.LogLevel)

	t.Setenv(EnvThreshold, "three")
	_, err = Load(writeConfig(t, sampleTOML))
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg := Default()
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	cfg.OCR.Recognizer = "abacus"
	_, err = cfg.Options()
	assert.Error(t, err)

	cfg = Default()
	cfg.OCR.Transformer = "gimp"
	_, err = cfg.Options()
	assert.Error(t, err)

	cfg = Default()
	cfg.Threshold = 0
	_, err = cfg.Options()
	assert.Error(t, err)
}
