package shimmering

import (
	"os"
	"path/filepath"
	"time"

	"github.com/himanishpuri/shimmering/pkg/shimmering/layout"
	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
)

// DefaultAcceptThreshold is the title distance at which a match stops being trusted.
const DefaultAcceptThreshold = 8

type Config struct {
	DataDir         string
	DBPath          string
	QuarantineDir   string
	TempDir         string
	AcceptThreshold int
	PageSegMode     int
	Profiles        []layout.Profile
	AmbiguousTitles []string
	Logger          Logger
	Storage         Storage
	Extractor       layout.TextExtractor
	Transformer     ocr.Transformer
	Recognizer      ocr.Recognizer
	Now             func() time.Time
}

type Option func(*Config)

// WithDataDir sets the root for the database and quarantined images.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithQuarantineDir(dir string) Option {
	return func(c *Config) {
		c.QuarantineDir = dir
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithAcceptThreshold sets the smallest title distance that gets quarantined.
func WithAcceptThreshold(n int) Option {
	return func(c *Config) {
		c.AcceptThreshold = n
	}
}

func WithPageSegMode(psm int) Option {
	return func(c *Config) {
		c.PageSegMode = psm
	}
}

// WithProfiles registers layout profiles ahead of the built-in one.
func WithProfiles(profiles ...layout.Profile) Option {
	return func(c *Config) {
		c.Profiles = append(c.Profiles, profiles...)
	}
}

// WithAmbiguousTitles names titles that need the artist to pick the right chart,
// in addition to the ones detected from the catalog.
func WithAmbiguousTitles(titles ...string) Option {
	return func(c *Config) {
		c.AmbiguousTitles = append(c.AmbiguousTitles, titles...)
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithExtractor replaces the whole crop-and-recognize step.
func WithExtractor(ex layout.TextExtractor) Option {
	return func(c *Config) {
		c.Extractor = ex
	}
}

func WithTransformer(t ocr.Transformer) Option {
	return func(c *Config) {
		c.Transformer = t
	}
}

func WithRecognizer(r ocr.Recognizer) Option {
	return func(c *Config) {
		c.Recognizer = r
	}
}

// WithClock overrides the time source used for quarantine file names.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

func defaultConfig() *Config {
	return &Config{
		DataDir:         ".",
		TempDir:         os.TempDir(),
		AcceptThreshold: DefaultAcceptThreshold,
		PageSegMode:     ocr.PSMRawLine,
		Now:             time.Now,
	}
}

// resolvePaths fills paths derived from DataDir.
func (c *Config) resolvePaths() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "db.sqlite")
	}
	if c.QuarantineDir == "" {
		c.QuarantineDir = filepath.Join(c.DataDir, "images")
	}
}
