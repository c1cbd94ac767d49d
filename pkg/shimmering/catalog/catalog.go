// Package catalog reads and writes chart catalog files.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/himanishpuri/shimmering/pkg/models"
)

// csvColumns is the column count of the community chart spreadsheet export.
// Columns: title, difficulty, level, constant, -, note count, -, -, -, artist.
const csvColumns = 10

// Load reads a catalog file, picking the format from its extension.
func Load(path string) ([]models.Chart, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open csv file: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".parquet":
		return ReadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (want .csv or .parquet)", filepath.Ext(path))
	}
}

// Save writes charts to path in the format its extension names.
func Save(path string, charts []models.Chart) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create csv file: %w", err)
		}
		if err := WriteCSV(f, charts); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case ".parquet":
		return WriteParquet(path, charts)
	default:
		return fmt.Errorf("unsupported catalog format %q (want .csv or .parquet)", filepath.Ext(path))
	}
}

// ReadCSV parses the spreadsheet export. Blank lines are skipped and a
// leading header row is tolerated.
func ReadCSV(r io.Reader) ([]models.Chart, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var charts []models.Chart
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}
		if len(row) < csvColumns {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, csvColumns, len(row))
		}

		ch, err := parseCSVRow(row)
		if err != nil {
			if len(charts) == 0 && isHeader(row) {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		charts = append(charts, ch)
	}
	return charts, nil
}

func parseCSVRow(row []string) (models.Chart, error) {
	title, diffText, level, ccText, notesText, artist := row[0], row[1], row[2], row[3], row[5], row[9]

	diff, err := models.ParseDifficulty(diffText)
	if err != nil {
		return models.Chart{}, err
	}
	cc, err := strconv.ParseFloat(strings.TrimSpace(ccText), 64)
	if err != nil {
		return models.Chart{}, fmt.Errorf("chart constant %q: %w", ccText, err)
	}
	notes, err := parseNoteCount(notesText)
	if err != nil {
		return models.Chart{}, err
	}

	ch := models.Chart{
		Title:         strings.TrimSpace(title),
		Difficulty:    diff,
		Level:         strings.TrimSpace(level),
		NoteCount:     notes,
		ChartConstant: cc,
		Artist:        strings.TrimSpace(artist),
	}
	return ch, validate(ch)
}

// parseNoteCount accepts thousands separators written as "." or ",".
func parseNoteCount(s string) (int, error) {
	cleaned := strings.NewReplacer(".", "", ",", "").Replace(strings.TrimSpace(s))
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("note count %q: %w", s, err)
	}
	return n, nil
}

func validate(ch models.Chart) error {
	if ch.Title == "" {
		return errors.New("empty title")
	}
	if ch.NoteCount <= 0 {
		return fmt.Errorf("%s (%s): note count must be positive, got %d", ch.Title, ch.Difficulty, ch.NoteCount)
	}
	return nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isHeader(row []string) bool {
	return strings.EqualFold(strings.TrimSpace(row[0]), "title") ||
		strings.EqualFold(strings.TrimSpace(row[0]), "song")
}

// WriteCSV writes charts in the same column layout ReadCSV expects.
func WriteCSV(w io.Writer, charts []models.Chart) error {
	cw := csv.NewWriter(w)
	for _, ch := range charts {
		row := []string{
			ch.Title,
			string(ch.Difficulty),
			ch.Level,
			strconv.FormatFloat(ch.ChartConstant, 'f', -1, 64),
			"",
			strconv.Itoa(ch.NoteCount),
			"", "", "",
			ch.Artist,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
