package layout

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
)

type headerExtractor struct {
	text string
	err  error
	rect ocr.Rect
}

func (h *headerExtractor) Extract(_ context.Context, _ string, rect ocr.Rect, _ string) (string, error) {
	h.rect = rect
	return h.text, h.err
}

func TestReferenceProfileIsValid(t *testing.T) {
	require.NoError(t, Reference().Validate())
}

func TestProfileValidate(t *testing.T) {
	p := Reference()
	delete(p.Regions, RegionResultScore)
	assert.Error(t, p.Validate())

	p = Reference()
	p.Regions[RegionHeader] = ocr.Rect{X: 0, Y: 0, Width: 0, Height: 75}
	assert.ErrorIs(t, p.Validate(), ocr.ErrInvalidRegion)
}

func TestRegistrySelect(t *testing.T) {
	custom := Reference()
	custom.Name = "tablet"
	custom.Width, custom.Height = 2048, 1536

	reg, err := NewRegistry(custom)
	require.NoError(t, err)

	p, ok := reg.Select(1920, 1080)
	assert.True(t, ok)
	assert.Equal(t, "reference-1920x1080", p.Name)

	p, ok = reg.Select(2048, 1536)
	assert.True(t, ok)
	assert.Equal(t, "tablet", p.Name)

	// same 16:9 aspect, scaled down
	p, ok = reg.Select(1280, 720)
	assert.True(t, ok)
	assert.Equal(t, 1280, p.Width)
	r, _ := p.Region(RegionResultScore)
	assert.Equal(t, ocr.Rect{X: 567, Y: 450, Width: 313, Height: 80}, r)

	// no match, falls back unscaled
	p, ok = reg.Select(1170, 2532)
	assert.False(t, ok)
	assert.Equal(t, Reference(), p)
}

func TestNewRegistryRejectsBrokenProfile(t *testing.T) {
	_, err := NewRegistry(Profile{Name: "broken", Width: 100, Height: 100})
	assert.Error(t, err)
}

func TestImageSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 320, 180))))
	require.NoError(t, f.Close())

	w, h, err := ImageSize(path)
	require.NoError(t, err)
	assert.Equal(t, 320, w)
	assert.Equal(t, 180, h)

	_, _, err = ImageSize(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestClassifyHeader(t *testing.T) {
	tests := []struct {
		header string
		want   Kind
	}{
		{"Select a Song", SongSelect},
		{"Se1ect a S0ng", SongSelect},
		{"Result", Result},
		{"Resu1t", Result},
		{"", Result},
		{"zzzzzzzzzzzzzzzzzzzzzzzzzzzz", Result},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyHeader(tt.header), "header %q", tt.header)
	}
}

func TestClassifyUsesHeaderRegion(t *testing.T) {
	ex := &headerExtractor{text: "Select a Song"}
	kind, err := Classify(context.Background(), ex, "shot.png", Reference())
	require.NoError(t, err)
	assert.Equal(t, SongSelect, kind)
	assert.Equal(t, ocr.Rect{X: 0, Y: 0, Width: 320, Height: 75}, ex.rect)

	ex = &headerExtractor{err: errors.New("boom")}
	_, err = Classify(context.Background(), ex, "shot.png", Reference())
	assert.Error(t, err)
}
