// Package parser turns a screenshot into a structured, still unverified result.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering/layout"
	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
	"github.com/himanishpuri/shimmering/pkg/shimmering/textdist"
)

// ErrParse marks a region whose text could not be interpreted.
var ErrParse = errors.New("parse error")

// ParseError names the region that failed and what was read from it.
type ParseError struct {
	Region string
	Text   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s from %q: %v", e.Region, e.Text, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// Parser reads title, score and friends off a screenshot.
type Parser struct {
	extractor     layout.TextExtractor
	profile       layout.Profile
	titleAlphabet string
}

// New builds a parser for one layout profile. titleAlphabet restricts title
// recognition and is usually the alphabet of every catalog title.
func New(ex layout.TextExtractor, profile layout.Profile, titleAlphabet string) *Parser {
	return &Parser{extractor: ex, profile: profile, titleAlphabet: titleAlphabet}
}

// Parse classifies the screenshot and extracts every field the layout carries.
func (p *Parser) Parse(ctx context.Context, imagePath string) (models.ParsedResult, error) {
	kind, err := layout.Classify(ctx, p.extractor, imagePath, p.profile)
	if err != nil {
		return models.ParsedResult{}, err
	}

	if kind == layout.SongSelect {
		return p.parseSongSelect(ctx, imagePath)
	}
	return p.parseResult(ctx, imagePath)
}

func (p *Parser) parseSongSelect(ctx context.Context, imagePath string) (models.ParsedResult, error) {
	res := models.ParsedResult{Difficulty: models.FTR, Layout: string(layout.SongSelect)}

	var err error
	if res.Title, err = p.read(ctx, imagePath, layout.RegionSelectTitle, p.titleAlphabet); err != nil {
		return res, err
	}
	if res.Score, err = p.readInt(ctx, imagePath, layout.RegionSelectScore); err != nil {
		return res, err
	}
	if res.Artist, err = p.readOptional(ctx, imagePath, layout.RegionSelectArtist); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Parser) parseResult(ctx context.Context, imagePath string) (models.ParsedResult, error) {
	res := models.ParsedResult{Layout: string(layout.Result)}

	var err error
	if res.Title, err = p.read(ctx, imagePath, layout.RegionResultTitle, p.titleAlphabet); err != nil {
		return res, err
	}
	if res.Score, err = p.readInt(ctx, imagePath, layout.RegionResultScore); err != nil {
		return res, err
	}

	recall, err := p.readInt(ctx, imagePath, layout.RegionResultMaxRecall)
	if err != nil {
		return res, err
	}
	res.MaxRecall = &recall

	diffText, err := p.read(ctx, imagePath, layout.RegionResultDifficulty, "")
	if err != nil {
		return res, err
	}
	res.Difficulty = NearestDifficulty(diffText)

	if res.Artist, err = p.readOptional(ctx, imagePath, layout.RegionResultArtist); err != nil {
		return res, err
	}
	return res, nil
}

// NearestDifficulty maps noisy difficulty text to the closest tag.
func NearestDifficulty(text string) models.Difficulty {
	name, _, _ := textdist.ClosestString(text, models.LongDifficultyNames)
	return models.DifficultyNames[name]
}

func (p *Parser) read(ctx context.Context, imagePath, region, alphabet string) (string, error) {
	rect, ok := p.profile.Region(region)
	if !ok {
		return "", fmt.Errorf("profile %q has no %s region", p.profile.Name, region)
	}
	text, err := p.extractor.Extract(ctx, imagePath, rect, alphabet)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", region, err)
	}
	return text, nil
}

func (p *Parser) readInt(ctx context.Context, imagePath, region string) (int, error) {
	text, err := p.read(ctx, imagePath, region, ocr.Digits)
	if err != nil {
		return 0, err
	}
	return parseDigits(region, text)
}

// readOptional reads a region only when the profile defines it.
func (p *Parser) readOptional(ctx context.Context, imagePath, region string) (*string, error) {
	if _, ok := p.profile.Region(region); !ok {
		return nil, nil
	}
	text, err := p.read(ctx, imagePath, region, "")
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	return &text, nil
}

func parseDigits(region, text string) (int, error) {
	cleaned := strings.Join(strings.Fields(text), "")
	if cleaned == "" {
		return 0, &ParseError{Region: region, Text: text, Err: errors.New("no digits recognized")}
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return 0, &ParseError{Region: region, Text: text, Err: fmt.Errorf("unexpected character %q", r)}
		}
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, &ParseError{Region: region, Text: text, Err: err}
	}
	return n, nil
}
