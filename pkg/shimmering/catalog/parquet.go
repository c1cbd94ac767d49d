package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/himanishpuri/shimmering/pkg/models"
)

// ChartRecord is the parquet schema of a catalog row.
type ChartRecord struct {
	Title         string  `parquet:"title"`
	Difficulty    string  `parquet:"difficulty"`
	Level         string  `parquet:"level"`
	NoteCount     int64   `parquet:"note_count"`
	ChartConstant float64 `parquet:"chart_constant"`
	Artist        string  `parquet:"artist"`
}

// ReadParquet loads every row of a parquet catalog.
func ReadParquet(path string) ([]models.Chart, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[ChartRecord](pf)
	defer reader.Close()

	var charts []models.Chart
	rows := make([]ChartRecord, 128)
	for {
		n, err := reader.Read(rows)
		for _, rec := range rows[:n] {
			ch, convErr := rec.toChart()
			if convErr != nil {
				return nil, fmt.Errorf("row %d: %w", len(charts)+1, convErr)
			}
			charts = append(charts, ch)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading parquet rows: %w", err)
		}
	}
	return charts, nil
}

// WriteParquet stores charts as a parquet catalog.
func WriteParquet(path string, charts []models.Chart) error {
	records := make([]ChartRecord, len(charts))
	for i, ch := range charts {
		records[i] = ChartRecord{
			Title:         ch.Title,
			Difficulty:    string(ch.Difficulty),
			Level:         ch.Level,
			NoteCount:     int64(ch.NoteCount),
			ChartConstant: ch.ChartConstant,
			Artist:        ch.Artist,
		}
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing parquet: %w", err)
	}
	return nil
}

func (r ChartRecord) toChart() (models.Chart, error) {
	diff, err := models.ParseDifficulty(r.Difficulty)
	if err != nil {
		return models.Chart{}, err
	}
	ch := models.Chart{
		Title:         r.Title,
		Difficulty:    diff,
		Level:         r.Level,
		NoteCount:     int(r.NoteCount),
		ChartConstant: r.ChartConstant,
		Artist:        r.Artist,
	}
	return ch, validate(ch)
}
