package models

import (
	"fmt"
	"strings"
)

// Difficulty is the short tag of a chart difficulty.
type Difficulty string

const (
	PST Difficulty = "PST"
	PRS Difficulty = "PRS"
	FTR Difficulty = "FTR"
	ETR Difficulty = "ETR"
	BYD Difficulty = "BYD"
)

// Difficulties lists every difficulty in game order.
var Difficulties = []Difficulty{PST, PRS, FTR, ETR, BYD}

// DifficultyNames maps the long name printed on the result screen to its tag.
var DifficultyNames = map[string]Difficulty{
	"PAST":    PST,
	"PRESENT": PRS,
	"FUTURE":  FTR,
	"ETERNAL": ETR,
	"BEYOND":  BYD,
}

// LongDifficultyNames is the OCR candidate list for the difficulty region, in game order.
var LongDifficultyNames = []string{"PAST", "PRESENT", "FUTURE", "ETERNAL", "BEYOND"}

// ParseDifficulty accepts either the tag or the long name, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if d, ok := DifficultyNames[s]; ok {
		return d, nil
	}
	for _, d := range Difficulties {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Chart is one playable difficulty of a song.
type Chart struct {
	ID            string     `json:"id" yaml:"id"`       // UUID
	Title         string     `json:"title" yaml:"title"` // not unique on its own
	Difficulty    Difficulty `json:"difficulty" yaml:"difficulty"`
	Level         string     `json:"level" yaml:"level"` // display label, e.g. "9+"
	NoteCount     int        `json:"note_count" yaml:"note_count"`
	ChartConstant float64    `json:"chart_constant" yaml:"chart_constant"`
	Artist        string     `json:"artist" yaml:"artist"`
}

// ParsedResult is what the OCR pass read off one screenshot.
type ParsedResult struct {
	Title      string
	Score      int
	Difficulty Difficulty
	Artist     *string
	MaxRecall  *int
	Layout     string // "song_select" or "result"
}

// ResolvedMatch is a parsed result paired with the catalog chart it was matched to.
type ResolvedMatch struct {
	Parsed    ParsedResult
	Chart     Chart
	Distance  int // title distance only
	Survivors int // candidates left after difficulty filtering
}
