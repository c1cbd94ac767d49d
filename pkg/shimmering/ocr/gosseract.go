//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/otiai10/gosseract/v2"
)

func init() {
	recognizers["gosseract"] = func(_ string, language string, _ time.Duration) Recognizer {
		return &Gosseract{Language: language}
	}
}

// Gosseract recognizes text in-process through libtesseract.
type Gosseract struct {
	Language string
}

func (g *Gosseract) Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	lang := g.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("setting language: %w", err)
	}

	psm := opts.PSM
	if psm == 0 {
		psm = PSMRawLine
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
		return "", fmt.Errorf("setting page segmentation mode: %w", err)
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			return "", fmt.Errorf("setting whitelist: %w", err)
		}
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("loading %s: %w", imagePath, err)
	}

	return client.Text()
}
