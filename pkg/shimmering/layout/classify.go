package layout

import (
	"context"
	"fmt"

	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
	"github.com/himanishpuri/shimmering/pkg/shimmering/textdist"
)

// Kind is the type of screen a screenshot shows.
type Kind string

const (
	SongSelect Kind = "song_select"
	Result     Kind = "result"
)

const (
	songSelectHeader = "Select a Song"
	resultHeader     = "Result"
)

// TextExtractor reads the text inside one region of an image.
type TextExtractor interface {
	Extract(ctx context.Context, imagePath string, rect ocr.Rect, alphabet string) (string, error)
}

// Classify reads the header region and decides which screen it came from.
// Ties go to Result.
func Classify(ctx context.Context, ex TextExtractor, imagePath string, p Profile) (Kind, error) {
	rect, ok := p.Region(RegionHeader)
	if !ok {
		return "", fmt.Errorf("profile %q has no %s region", p.Name, RegionHeader)
	}

	header, err := ex.Extract(ctx, imagePath, rect, "")
	if err != nil {
		return "", fmt.Errorf("reading header: %w", err)
	}
	return ClassifyHeader(header), nil
}

// ClassifyHeader decides from already-recognized header text.
func ClassifyHeader(header string) Kind {
	if textdist.Distance(header, songSelectHeader) < textdist.Distance(header, resultHeader) {
		return SongSelect
	}
	return Result
}
