package ocr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Digits restricts recognition to numeric fields.
const Digits = "0123456789"

// ErrInvalidRegion marks a crop rectangle that can never be valid.
var ErrInvalidRegion = errors.New("invalid region")

// Rect is a crop rectangle in pixels, origin top-left.
type Rect struct {
	X      int `toml:"x" json:"x"`
	Y      int `toml:"y" json:"y"`
	Width  int `toml:"width" json:"width"`
	Height int `toml:"height" json:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Validate rejects negative origins and empty sizes.
func (r Rect) Validate() error {
	if r.X < 0 || r.Y < 0 || r.Width <= 0 || r.Height <= 0 {
		return &RegionError{Rect: r}
	}
	return nil
}

// Scale multiplies every coordinate, rounding to the nearest pixel.
func (r Rect) Scale(fx, fy float64) Rect {
	return Rect{
		X:      round(float64(r.X) * fx),
		Y:      round(float64(r.Y) * fy),
		Width:  max(1, round(float64(r.Width)*fx)),
		Height: max(1, round(float64(r.Height)*fy)),
	}
}

func round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}

// RegionError carries the offending rectangle.
type RegionError struct {
	Rect Rect
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("invalid region %+v", e.Rect)
}

func (e *RegionError) Unwrap() error { return ErrInvalidRegion }

// Alphabet is the sorted set of characters appearing in any of the given strings.
func Alphabet(strs []string) string {
	seen := make(map[rune]struct{})
	for _, s := range strs {
		for _, r := range s {
			seen[r] = struct{}{}
		}
	}

	runes := make([]rune, 0, len(seen))
	for r := range seen {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	var b strings.Builder
	for _, r := range runes {
		b.WriteRune(r)
	}
	return b.String()
}
