// Package layout knows where things are on each kind of screenshot.
package layout

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
)

// Region names.
const (
	RegionHeader           = "header"
	RegionSelectTitle      = "select.title"
	RegionSelectScore      = "select.score"
	RegionSelectArtist     = "select.artist"
	RegionResultTitle      = "result.title"
	RegionResultScore      = "result.score"
	RegionResultMaxRecall  = "result.max_recall"
	RegionResultDifficulty = "result.difficulty"
	RegionResultArtist     = "result.artist"
)

var requiredRegions = []string{
	RegionHeader,
	RegionSelectTitle,
	RegionSelectScore,
	RegionResultTitle,
	RegionResultScore,
	RegionResultMaxRecall,
	RegionResultDifficulty,
}

// Profile holds the crop rectangles for one screenshot resolution.
type Profile struct {
	Name    string              `toml:"name" json:"name"`
	Width   int                 `toml:"width" json:"width"`
	Height  int                 `toml:"height" json:"height"`
	Regions map[string]ocr.Rect `toml:"regions" json:"regions"`
}

// Reference is the profile the built-in coordinates were measured on.
func Reference() Profile {
	return Profile{
		Name:   "reference-1920x1080",
		Width:  1920,
		Height: 1080,
		Regions: map[string]ocr.Rect{
			RegionHeader:           {X: 0, Y: 0, Width: 320, Height: 75},
			RegionSelectTitle:      {X: 10, Y: 360, Width: 1100, Height: 80},
			RegionSelectScore:      {X: 0, Y: 260, Width: 320, Height: 60},
			RegionResultTitle:      {X: 300, Y: 320, Width: 1200, Height: 110},
			RegionResultScore:      {X: 850, Y: 675, Width: 470, Height: 120},
			RegionResultMaxRecall:  {X: 380, Y: 590, Width: 130, Height: 50},
			RegionResultDifficulty: {X: 150, Y: 540, Width: 200, Height: 40},
		},
	}
}

// Region looks up a named rectangle.
func (p Profile) Region(name string) (ocr.Rect, bool) {
	r, ok := p.Regions[name]
	return r, ok
}

// Validate checks that every required region is present and well formed.
func (p Profile) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("profile %q: invalid resolution %dx%d", p.Name, p.Width, p.Height)
	}
	for _, name := range requiredRegions {
		if _, ok := p.Regions[name]; !ok {
			return fmt.Errorf("profile %q: missing region %q", p.Name, name)
		}
	}
	for name, r := range p.Regions {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("profile %q region %q: %w", p.Name, name, err)
		}
	}
	return nil
}

// ScaledTo returns a copy of p resized to width x height.
func (p Profile) ScaledTo(width, height int) Profile {
	fx := float64(width) / float64(p.Width)
	fy := float64(height) / float64(p.Height)

	out := Profile{
		Name:    fmt.Sprintf("%s@%dx%d", p.Name, width, height),
		Width:   width,
		Height:  height,
		Regions: make(map[string]ocr.Rect, len(p.Regions)),
	}
	for name, r := range p.Regions {
		out.Regions[name] = r.Scale(fx, fy)
	}
	return out
}

func (p Profile) sameAspect(width, height int) bool {
	return p.Width*height == p.Height*width
}

// Registry picks a profile for a given screenshot resolution.
type Registry struct {
	profiles []Profile
	fallback Profile
}

// NewRegistry builds a registry from extra profiles followed by the reference one.
// Extra profiles take precedence.
func NewRegistry(extra ...Profile) (*Registry, error) {
	ref := Reference()
	r := &Registry{fallback: ref}
	for _, p := range extra {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		r.profiles = append(r.profiles, p)
	}
	r.profiles = append(r.profiles, ref)
	return r, nil
}

// Profiles returns the registered profiles in lookup order.
func (r *Registry) Profiles() []Profile {
	return append([]Profile(nil), r.profiles...)
}

// Select returns an exact-resolution profile if one exists, otherwise a
// same-aspect profile scaled to fit. When neither exists it returns the
// reference profile unchanged with ok set to false.
func (r *Registry) Select(width, height int) (Profile, bool) {
	for _, p := range r.profiles {
		if p.Width == width && p.Height == height {
			return p, true
		}
	}
	for _, p := range r.profiles {
		if p.sameAspect(width, height) {
			return p.ScaledTo(width, height), true
		}
	}
	return r.fallback, false
}

// ImageSize reads the pixel dimensions of an image without decoding it fully.
func ImageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("reading image header of %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}
