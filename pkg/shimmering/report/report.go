// Package report renders scores, charts and users for the terminal or for
// machine consumption.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering"
)

type Format string

const (
	Table Format = "table"
	YAML  Format = "yaml"
	JSON  Format = "json"
)

// ParseFormat accepts a format name, defaulting to Table for "".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", Table:
		return Table, nil
	case YAML, JSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, yaml or json)", s)
}

// Printer writes values in one output format.
type Printer struct {
	out    io.Writer
	format Format
}

func NewPrinter(out io.Writer, format Format) *Printer {
	return &Printer{out: out, format: format}
}

// encode handles the structured formats. It reports false for Table.
func (p *Printer) encode(v any) (bool, error) {
	switch p.format {
	case YAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	case JSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	}
	return false, nil
}

// Scores prints score rows with their derived metrics.
func (p *Printer) Scores(rows []shimmering.ScoreRow) error {
	if done, err := p.encode(rows); done {
		return err
	}
	return scoreTable(rows).render(p.out)
}

// Ingest prints the accepted scores followed by every diagnostic.
func (p *Printer) Ingest(rep *shimmering.IngestReport) error {
	if done, err := p.encode(rep); done {
		return err
	}
	if len(rep.Accepted) > 0 {
		if err := scoreTable(rep.Accepted).render(p.out); err != nil {
			return err
		}
	}
	for _, d := range rep.Diagnostics {
		if _, err := fmt.Fprintln(p.out, d.Message); err != nil {
			return err
		}
	}
	return nil
}

// B30 prints the plays that make up a potential and the potential itself.
func (p *Printer) B30(res *shimmering.B30Result) error {
	if done, err := p.encode(res); done {
		return err
	}
	if err := scoreTable(res.Plays).render(p.out); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.out, "Potential: %.2f (%d plays)\n", res.Potential, len(res.Plays))
	return err
}

func (p *Printer) Charts(charts []models.Chart) error {
	if done, err := p.encode(charts); done {
		return err
	}
	t := newTable("Title", "Artist", "Difficulty", "Constant", "Notes", "ID")
	for _, c := range charts {
		t.add(c.Title, c.Artist, difficulty(c), fmt.Sprintf("%.1f", c.ChartConstant), strconv.Itoa(c.NoteCount), c.ID)
	}
	return t.render(p.out)
}

func (p *Printer) ChartPlays(charts []models.ChartPlays) error {
	if done, err := p.encode(charts); done {
		return err
	}
	t := newTable("Title", "Difficulty", "Plays", "ID")
	for _, c := range charts {
		t.add(c.Title, difficulty(c.Chart), strconv.Itoa(c.Plays), c.ID)
	}
	return t.render(p.out)
}

func (p *Printer) Users(users []models.UserSummary) error {
	if done, err := p.encode(users); done {
		return err
	}
	t := newTable("External ID", "Nickname", "Scores")
	for _, u := range users {
		t.add(u.ExternalID, u.Nickname, strconv.Itoa(u.Scores))
	}
	return t.render(p.out)
}

// Value prints any other result. Tables fall back to the YAML rendering.
func (p *Printer) Value(v any) error {
	if done, err := p.encode(v); done {
		return err
	}
	return NewPrinter(p.out, YAML).Value(v)
}

func scoreTable(rows []shimmering.ScoreRow) *table {
	t := newTable("Title", "Difficulty", "Score", "Play rating", "ID")
	for _, r := range rows {
		id := ""
		if r.ScoreID != 0 {
			id = strconv.FormatUint(uint64(r.ScoreID), 10)
		}
		t.add(r.Chart.Title, difficulty(r.Chart), score(r), playRating(r), id)
	}
	return t
}

func difficulty(c models.Chart) string {
	return fmt.Sprintf("%s %s", c.Difficulty, c.Level)
}

func score(r shimmering.ScoreRow) string {
	return fmt.Sprintf("%d (%s)", r.Score, r.Grade)
}

func playRating(r shimmering.ScoreRow) string {
	s := fmt.Sprintf("%.2f", r.PlayRating)
	if r.PMBonus != nil {
		s += " (pm)"
	}
	return s
}

// table lays out cells in columns sized by display width, so wide glyphs
// in song titles stay aligned.
type table struct {
	header []string
	rows   [][]string
}

func newTable(header ...string) *table {
	return &table{header: header}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) error {
	widths := make([]int, len(t.header))
	for _, row := range append([][]string{t.header}, t.rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	line := func(cells []string) error {
		var b strings.Builder
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
			} else {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			}
		}
		_, err := fmt.Fprintln(w, b.String())
		return err
	}

	if err := line(t.header); err != nil {
		return err
	}
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	if err := line(sep); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := line(row); err != nil {
			return err
		}
	}
	return nil
}
