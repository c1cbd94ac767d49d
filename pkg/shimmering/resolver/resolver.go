// Package resolver matches noisy OCR output against the chart catalog.
package resolver

import (
	"errors"

	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
	"github.com/himanishpuri/shimmering/pkg/shimmering/textdist"
)

var (
	// ErrEmptyCatalog is returned when there is nothing to resolve against.
	ErrEmptyCatalog = errors.New("chart catalog is empty")
	// ErrMatchNotFound means the best title has no chart at the requested difficulty.
	ErrMatchNotFound = errors.New("no chart matches")
)

// Rules lists titles shared by several songs, where an artist hint picks the right one.
type Rules map[string]bool

// Resolver is built once per batch over an immutable catalog snapshot.
type Resolver struct {
	charts []models.Chart
	rules  Rules
}

type Option func(*Resolver)

// WithRules adds disambiguation titles on top of the ones found in the catalog.
func WithRules(titles ...string) Option {
	return func(r *Resolver) {
		for _, t := range titles {
			r.rules[t] = true
		}
	}
}

func New(charts []models.Chart, opts ...Option) (*Resolver, error) {
	if len(charts) == 0 {
		return nil, ErrEmptyCatalog
	}

	r := &Resolver{
		charts: append([]models.Chart(nil), charts...),
		rules:  DeriveRules(charts),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// DeriveRules marks every title that appears with more than one artist.
func DeriveRules(charts []models.Chart) Rules {
	artists := make(map[string]string)
	rules := make(Rules)
	for _, c := range charts {
		first, seen := artists[c.Title]
		if !seen {
			artists[c.Title] = c.Artist
			continue
		}
		if first != c.Artist {
			rules[c.Title] = true
		}
	}
	return rules
}

// Rules reports the titles that need an artist hint.
func (r *Resolver) Rules() Rules {
	out := make(Rules, len(r.rules))
	for k, v := range r.rules {
		out[k] = v
	}
	return out
}

// Titles returns every catalog title, duplicates included.
func (r *Resolver) Titles() []string {
	titles := make([]string, len(r.charts))
	for i, c := range r.charts {
		titles[i] = c.Title
	}
	return titles
}

// Alphabet is the character set of all catalog titles.
func (r *Resolver) Alphabet() string {
	return ocr.Alphabet(r.Titles())
}

// Resolve finds the chart closest to title, narrowed by artist when the title
// is ambiguous and then by difficulty. The returned distance is the title
// distance only; deciding whether it is good enough is up to the caller.
func (r *Resolver) Resolve(title string, difficulty models.Difficulty, artist *string) (models.ResolvedMatch, error) {
	parsed := models.ParsedResult{Title: title, Difficulty: difficulty, Artist: artist}
	return r.ResolveParsed(parsed)
}

// ResolveParsed is Resolve over a full parse result, which it carries along in the match.
func (r *Resolver) ResolveParsed(parsed models.ParsedResult) (models.ResolvedMatch, error) {
	match := models.ResolvedMatch{Parsed: parsed}

	closest, dist, err := textdist.Closest(parsed.Title, r.charts, chartTitle)
	if err != nil {
		return match, ErrEmptyCatalog
	}
	match.Distance = dist

	candidates := filter(r.charts, func(c models.Chart) bool { return c.Title == closest.Title })

	if parsed.Artist != nil && r.rules[closest.Title] {
		byArtist, _, _ := textdist.Closest(*parsed.Artist, candidates, chartArtist)
		candidates = filter(candidates, func(c models.Chart) bool { return c.Artist == byArtist.Artist })
	}

	candidates = filter(candidates, func(c models.Chart) bool { return c.Difficulty == parsed.Difficulty })
	if len(candidates) == 0 {
		return match, ErrMatchNotFound
	}

	match.Chart = candidates[0]
	match.Survivors = len(candidates)
	return match, nil
}

func chartTitle(c models.Chart) string  { return c.Title }
func chartArtist(c models.Chart) string { return c.Artist }

func filter(charts []models.Chart, keep func(models.Chart) bool) []models.Chart {
	var out []models.Chart
	for _, c := range charts {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
