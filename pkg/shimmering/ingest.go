package shimmering

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering/layout"
	"github.com/himanishpuri/shimmering/pkg/shimmering/ocr"
	"github.com/himanishpuri/shimmering/pkg/shimmering/parser"
	"github.com/himanishpuri/shimmering/pkg/shimmering/resolver"
	"github.com/himanishpuri/shimmering/pkg/utils"
)

const quarantineTimeFormat = "2006-01-02_15-04-05"

// batch is the state shared by every image of one AddScores call.
type batch struct {
	resolver *resolver.Resolver
	alphabet string
	user     models.User
	report   *IngestReport
}

// AddScores parses every image, stores the ones that resolve to a chart and
// quarantines the rest. Images are handled in order and each accepted score is
// committed before the next image is read, so a fatal error returns the
// partial report alongside it.
func (s *shimmeringService) AddScores(ctx context.Context, externalUserID string, paths []string) (*IngestReport, error) {
	report := &IngestReport{}

	charts, err := s.storage.ListCharts()
	if err != nil {
		return report, fmt.Errorf("loading catalog: %w", err)
	}
	res, err := resolver.New(charts, resolver.WithRules(s.config.AmbiguousTitles...))
	if err != nil {
		return report, err
	}

	user, err := s.storage.GetOrCreateUser(externalUserID)
	if err != nil {
		return report, fmt.Errorf("resolving user %s: %w", externalUserID, err)
	}

	b := &batch{resolver: res, alphabet: res.Alphabet(), user: user, report: report}
	s.log.Infof("Ingesting %d image(s) for user %s against %d charts", len(paths), externalUserID, len(charts))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.ingestImage(ctx, b, path); err != nil {
			return report, err
		}
	}

	s.log.Infof("Accepted %d score(s), %d diagnostic(s)", len(report.Accepted), len(report.Diagnostics))
	return report, nil
}

// ingestImage handles one path. Only errors that doom the whole batch are returned.
func (s *shimmeringService) ingestImage(ctx context.Context, b *batch, path string) error {
	if !utils.FileExists(path) {
		s.skip(b, path, fmt.Sprintf("Skipping non-existent %s", path))
		return nil
	}

	width, height, err := layout.ImageSize(path)
	if err != nil {
		s.skip(b, path, fmt.Sprintf("Skipping unreadable image %s: %v", path, err))
		return nil
	}
	profile, ok := s.layouts.Select(width, height)
	if !ok {
		s.log.Warnf("No layout profile fits %dx%d (%s), using %s unscaled", width, height, path, profile.Name)
	}

	parsed, err := parser.New(s.extractor, profile, b.alphabet).Parse(ctx, path)
	if err != nil {
		if isFatal(ctx, err) {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		s.skip(b, path, fmt.Sprintf("Skipping %s: %v", path, err))
		return nil
	}
	s.log.Debugf("Parsed %s as %s: title=%q score=%d difficulty=%s", path, parsed.Layout, parsed.Title, parsed.Score, parsed.Difficulty)

	match, err := b.resolver.ResolveParsed(parsed)
	if err != nil && !errors.Is(err, resolver.ErrMatchNotFound) {
		return err
	}
	if err != nil || match.Distance >= s.config.AcceptThreshold {
		return s.quarantine(b, path, match)
	}

	if match.Survivors > 1 {
		s.log.Warnf("%d charts match %q (%s); picked %s by %s", match.Survivors, match.Chart.Title,
			match.Chart.Difficulty, match.Chart.ID, match.Chart.Artist)
	}

	id, err := s.storage.InsertScore(models.ScoreRecord{
		ChartID:     match.Chart.ID,
		UserID:      b.user.ID,
		ParsedTitle: parsed.Title,
		MaxRecall:   parsed.MaxRecall,
		Score:       parsed.Score,
		CreatedAt:   s.config.Now(),
	})
	if err != nil {
		return fmt.Errorf("saving score for %s: %w", path, err)
	}

	b.report.Accepted = append(b.report.Accepted, NewScoreRow(match.Chart, id, parsed.Score))
	s.log.Infof("Stored score %d on %s (%s) from %s (distance=%d)", parsed.Score, match.Chart.Title,
		match.Chart.Difficulty, path, match.Distance)
	return nil
}

// isFatal separates misconfiguration and cancellation from a bad screenshot.
func isFatal(ctx context.Context, err error) bool {
	return errors.Is(err, ocr.ErrInvalidRegion) ||
		errors.Is(err, ocr.ErrToolNotFound) ||
		ctx.Err() != nil
}

func (s *shimmeringService) skip(b *batch, path, msg string) {
	s.log.Warnf("%s", msg)
	b.report.Diagnostics = append(b.report.Diagnostics, Diagnostic{Path: path, Kind: Skipped, Message: msg})
}

// quarantine copies an unidentified screenshot aside for manual review.
func (s *shimmeringService) quarantine(b *batch, path string, match models.ResolvedMatch) error {
	if err := utils.MakeDir(s.config.QuarantineDir); err != nil {
		return fmt.Errorf("creating quarantine dir: %w", err)
	}

	name := fmt.Sprintf("%s-%d%s", s.config.Now().Format(quarantineTimeFormat), b.user.ID, filepath.Ext(path))
	dest, err := utils.UniquePath(filepath.Join(s.config.QuarantineDir, name))
	if err != nil {
		return fmt.Errorf("choosing quarantine name: %w", err)
	}
	if err := utils.CopyFile(path, dest); err != nil {
		return fmt.Errorf("quarantining %s: %w", path, err)
	}

	parsed := match.Parsed
	artist := ""
	if parsed.Artist != nil {
		artist = " by " + *parsed.Artist
	}
	msg := fmt.Sprintf("Couldn't identify \"%s (%s)%s\" as a chart title (distance=%d); Saved file to %s.",
		parsed.Title, parsed.Difficulty, artist, match.Distance, dest)

	s.log.Warnf("%s", msg)
	b.report.Diagnostics = append(b.report.Diagnostics, Diagnostic{
		Path:          path,
		Kind:          Quarantined,
		Message:       msg,
		QuarantinedTo: dest,
	})
	return nil
}
