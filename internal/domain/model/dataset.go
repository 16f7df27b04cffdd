// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/kata/internal/domain/eval"
)

// File names inside a dataset's aligned data directory.
const (
	StudentFile = "student.json"
	CoachFile   = "coach.json"
	EventsFile  = "events.json"
)

// Dataset locates one recorded student/coach pair on disk. The layout is
// <root>/<name>/aligned/data/{student,coach,events}.json, with events
// optional.
type Dataset struct {
	Name string
	Root string
}

// NewDataset builds a dataset reference under a data root.
func NewDataset(root, name string) Dataset {
	return Dataset{Name: name, Root: root}
}

// DataDir returns the dataset's aligned data directory.
func (d Dataset) DataDir() string {
	return filepath.Join(d.Root, d.Name, "aligned", "data")
}

// StudentPath returns the student skeleton file path.
func (d Dataset) StudentPath() string {
	return filepath.Join(d.DataDir(), StudentFile)
}

// CoachPath returns the coach skeleton file path.
func (d Dataset) CoachPath() string {
	return filepath.Join(d.DataDir(), CoachFile)
}

// EventsPath returns the capture event table file path.
func (d Dataset) EventsPath() string {
	return filepath.Join(d.DataDir(), EventsFile)
}

// LoadEvents reads the dataset's capture event table. A dataset without one
// yields an empty table, not an error.
func (d Dataset) LoadEvents() (map[string]eval.Event, error) {
	data, err := os.ReadFile(d.EventsPath())
	if os.IsNotExist(err) {
		return map[string]eval.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	var events map[string]eval.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// RunRecord summarizes one completed evaluation for the run history.
type RunRecord struct {
	ID             string         `json:"id"`
	Dataset        string         `json:"dataset"`
	RuleSetID      string         `json:"rule_set_id"`
	Plugin         string         `json:"plugin"`
	OverallScore   int            `json:"overall_score"`
	PhaseScores    map[string]int `json:"phase_scores"`
	Classification string         `json:"classification"`
	Duration       time.Duration  `json:"duration"`
	CreatedAt      time.Time      `json:"created_at"`
}

// OverallScore averages per-phase step scores, truncating like the step
// score itself. No phases means no score.
func OverallScore(phaseScores map[string]int) int {
	if len(phaseScores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range phaseScores {
		sum += s
	}
	return sum / len(phaseScores)
}

// SummarizeClassification folds per-phase classifications into one label
// with the same all/none/mixed rule steps use for rules.
func SummarizeClassification(byPhase map[string]string) string {
	if len(byPhase) == 0 {
		return "mid"
	}
	allCorrect, allWrong := true, true
	for _, c := range byPhase {
		if c != "correct" {
			allCorrect = false
		}
		if c != "wrong" {
			allWrong = false
		}
	}
	switch {
	case allCorrect:
		return "correct"
	case allWrong:
		return "wrong"
	}
	return "mid"
}
