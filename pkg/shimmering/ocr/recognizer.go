package ocr

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// PSMRawLine treats the region as a single text line with no layout analysis.
const PSMRawLine = 13

// RecognizeOptions tune a single recognition call.
type RecognizeOptions struct {
	PSM       int
	Whitelist string
}

// Recognizer reads the text in an image file.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) (string, error)
}

// TesseractCLI runs the tesseract binary and reads its stdout.
type TesseractCLI struct {
	Binary   string
	Language string
	Timeout  time.Duration
}

func (t *TesseractCLI) Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	psm := opts.PSM
	if psm == 0 {
		psm = PSMRawLine
	}

	args := []string{imagePath, "-", "--psm", strconv.Itoa(psm)}
	if t.Language != "" {
		args = append(args, "-l", t.Language)
	}
	if opts.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+opts.Whitelist)
	}

	out, err := runTool(ctx, t.Timeout, bin, args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RecognizerFactory builds a recognizer from the configured binary and language.
type RecognizerFactory func(binary, language string, timeout time.Duration) Recognizer

var recognizers = map[string]RecognizerFactory{
	"tesseract": func(binary, language string, timeout time.Duration) Recognizer {
		return &TesseractCLI{Binary: binary, Language: language, Timeout: timeout}
	},
}

// NewRecognizer looks up a recognizer backend by name.
func NewRecognizer(name, binary, language string, timeout time.Duration) (Recognizer, error) {
	f, ok := recognizers[name]
	if !ok {
		return nil, fmt.Errorf("unknown recognizer %q (available: %v)", name, RecognizerNames())
	}
	return f(binary, language, timeout), nil
}

// RecognizerNames lists the backends compiled into this binary.
func RecognizerNames() []string {
	names := make([]string, 0, len(recognizers))
	for n := range recognizers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewTransformer looks up an image transformer by name.
func NewTransformer(name, binary string, timeout time.Duration) (Transformer, error) {
	switch name {
	case "", "magick":
		return &MagickTransformer{Binary: binary, Timeout: timeout}, nil
	case "imaging":
		return ImagingTransformer{}, nil
	default:
		return nil, fmt.Errorf("unknown transformer %q (available: magick, imaging)", name)
	}
}
