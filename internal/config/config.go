// Package config loads the shimmering settings file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/himanishpuri/shimmering/pkg/shimmering"
	"github.com/himanishpuri/shimmering/pkg/shimmering/layout"
	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
)

const appName = "shimmering"

// Environment variables that override the file.
const (
	EnvDataDir       = "SHIMMERING_DATA_DIR"
	EnvDBPath        = "SHIMMERING_DB_PATH"
	EnvQuarantineDir = "SHIMMERING_QUARANTINE_DIR"
	EnvTempDir       = "SHIMMERING_TEMP_DIR"
	EnvThreshold     = "SHIMMERING_THRESHOLD"
	EnvLogLevel      = "LOG_LEVEL"
)

type Config struct {
	DataDir         string           `toml:"data_dir"`
	DBPath          string           `toml:"db_path"`
	QuarantineDir   string           `toml:"quarantine_dir"`
	TempDir         string           `toml:"temp_dir"`
	LogLevel        string           `toml:"log_level"`
	Threshold       int              `toml:"threshold"`
	AmbiguousTitles []string         `toml:"ambiguous_titles"`
	OCR             OCRConfig        `toml:"ocr"`
	Profiles        []layout.Profile `toml:"profiles"`
}

type OCRConfig struct {
	Transformer       string        `toml:"transformer"` // "magick" or "imaging"
	TransformerBinary string        `toml:"transformer_binary"`
	Recognizer        string        `toml:"recognizer"`
	RecognizerBinary  string        `toml:"recognizer_binary"`
	Language          string        `toml:"language"`
	PageSegMode       int           `toml:"psm"`
	Timeout           time.Duration `toml:"timeout"`
}

// DefaultPath is where the settings file lives when --config is not given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		DataDir:   filepath.Join(xdg.DataHome, appName),
		LogLevel:  "INFO",
		Threshold: shimmering.DefaultAcceptThreshold,
		OCR: OCRConfig{
			Transformer: "magick",
			Recognizer:  "tesseract",
			PageSegMode: ocr.PSMRawLine,
			Timeout:     ocr.DefaultToolTimeout,
		},
	}
}

// Load reads path on top of the defaults and then applies the environment.
// An empty path means DefaultPath, which is allowed to be missing.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SHIMMERING_* variables and LOG_LEVEL.
func (c *Config) ApplyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.DataDir, EnvDataDir)
	setString(&c.DBPath, EnvDBPath)
	setString(&c.QuarantineDir, EnvQuarantineDir)
	setString(&c.TempDir, EnvTempDir)
	setString(&c.LogLevel, EnvLogLevel)

	if v := os.Getenv(EnvThreshold); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThreshold, err)
		}
		c.Threshold = n
	}
	return nil
}

// Options turns the settings into service options, building the OCR pipeline
// the file asks for.
func (c *Config) Options() ([]shimmering.Option, error) {
	if c.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %d", c.Threshold)
	}

	transformer, err := ocr.NewTransformer(c.OCR.Transformer, c.OCR.TransformerBinary, c.OCR.Timeout)
	if err != nil {
		return nil, err
	}
	recognizer, err := ocr.NewRecognizer(c.OCR.Recognizer, c.OCR.RecognizerBinary, c.OCR.Language, c.OCR.Timeout)
	if err != nil {
		return nil, err
	}

	opts := []shimmering.Option{
		shimmering.WithDataDir(c.DataDir),
		shimmering.WithAcceptThreshold(c.Threshold),
		shimmering.WithTransformer(transformer),
		shimmering.WithRecognizer(recognizer),
		shimmering.WithProfiles(c.Profiles...),
		shimmering.WithAmbiguousTitles(c.AmbiguousTitles...),
	}
	if c.OCR.PageSegMode > 0 {
		opts = append(opts, shimmering.WithPageSegMode(c.OCR.PageSegMode))
	}
	if c.DBPath != "" {
		opts = append(opts, shimmering.WithDBPath(c.DBPath))
	}
	if c.QuarantineDir != "" {
		opts = append(opts, shimmering.WithQuarantineDir(c.QuarantineDir))
	}
	if c.TempDir != "" {
		opts = append(opts, shimmering.WithTempDir(c.TempDir))
	}
	return opts, nil
}
