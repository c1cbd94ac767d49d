// Package ocr reads text out of rectangular regions of a screenshot.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor crops, enhances and recognizes one region at a time.
type Extractor struct {
	transformer Transformer
	recognizer  Recognizer
	tempDir     string
	psm         int
}

type ExtractorOption func(*Extractor)

// WithTempDir sets where per-call scratch directories are created.
func WithTempDir(dir string) ExtractorOption {
	return func(e *Extractor) {
		e.tempDir = dir
	}
}

// WithPageSegMode overrides the raw-line default.
func WithPageSegMode(psm int) ExtractorOption {
	return func(e *Extractor) {
		e.psm = psm
	}
}

func NewExtractor(t Transformer, r Recognizer, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		transformer: t,
		recognizer:  r,
		psm:         PSMRawLine,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the trimmed text found in rect. An empty alphabet leaves
// recognition unrestricted. Scratch files are removed before returning.
func (e *Extractor) Extract(ctx context.Context, imagePath string, rect Rect, alphabet string) (string, error) {
	if err := rect.Validate(); err != nil {
		return "", err
	}

	if e.tempDir != "" {
		if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
			return "", fmt.Errorf("creating temp dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(e.tempDir, "shimmering-ocr-*")
	if err != nil {
		return "", fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	outPath := filepath.Join(dir, "out.png")
	if err := e.transformer.Transform(ctx, imagePath, outPath, rect); err != nil {
		return "", fmt.Errorf("transforming region %s: %w", rect, err)
	}

	text, err := e.recognizer.Recognize(ctx, outPath, RecognizeOptions{PSM: e.psm, Whitelist: alphabet})
	if err != nil {
		return "", fmt.Errorf("recognizing region %s: %w", rect, err)
	}
	return strings.TrimSpace(text), nil
}
