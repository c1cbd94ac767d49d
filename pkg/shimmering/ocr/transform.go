package ocr

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/disintegration/imaging"
)

// Transformer crops a region out of an image and prepares it for recognition.
type Transformer interface {
	Transform(ctx context.Context, inPath, outPath string, rect Rect) error
}

// MagickTransformer shells out to ImageMagick.
type MagickTransformer struct {
	Binary  string // "convert" or "magick"
	Timeout time.Duration
}

func (m *MagickTransformer) Transform(ctx context.Context, inPath, outPath string, rect Rect) error {
	bin := m.Binary
	if bin == "" {
		bin = "convert"
	}
	_, err := runTool(ctx, m.Timeout, bin,
		inPath,
		"-crop", rect.String(),
		"-colorspace", "Gray",
		"-auto-level",
		"-edge", "1",
		outPath,
	)
	return err
}

// laplacian approximates ImageMagick's "-edge 1".
var laplacian = [9]float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// ImagingTransformer does the same work in-process.
type ImagingTransformer struct{}

func (ImagingTransformer) Transform(ctx context.Context, inPath, outPath string, rect Rect) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := imaging.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", inPath, err)
	}

	area := image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height)
	if !area.Overlaps(img.Bounds()) {
		return fmt.Errorf("region %s lies outside %v", rect, img.Bounds())
	}

	gray := imaging.Grayscale(imaging.Crop(img, area))
	leveled := autoLevel(gray)
	edged := imaging.Convolve3x3(leveled, laplacian, nil)

	if err := imaging.Save(edged, outPath); err != nil {
		return fmt.Errorf("saving %s: %w", outPath, err)
	}
	return nil
}

// autoLevel stretches the luminance range of a grayscale image to 0..255.
func autoLevel(img *image.NRGBA) *image.NRGBA {
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(img.Pix); i += 4 {
		v := img.Pix[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return img
	}

	span := float64(hi - lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := uint8(float64(c.R-lo) * 255 / span)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}
