// Package artifacts persists run outputs alongside the dataset tree.
//
// Layout, relative to the store root:
//
//	<dataset>/aligned/step_frame_ranges.json
//	<dataset>/analysis_results.json       (legacy step-keyed report)
//	<dataset>/analysis_results_new.json   (engine result)
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/kata/internal/domain/skeleton"
	"github.com/okian/kata/internal/engine"
	"github.com/okian/kata/internal/legacy"
)

// Artifact file names.
const (
	StepRangesFile   = "step_frame_ranges.json"
	LegacyReportFile = "analysis_results.json"
	EngineResultFile = "analysis_results_new.json"
)

// Store persists evaluation outputs for a dataset.
type Store interface {
	// SaveStepRanges writes the step-name → frame-range table.
	SaveStepRanges(ctx context.Context, dataset string, ranges map[string]skeleton.FrameRange) (string, error)

	// SaveLegacyReport writes the step-keyed verdict report.
	SaveLegacyReport(ctx context.Context, dataset string, report legacy.Report) (string, error)

	// SaveEngineResult writes the phase-keyed engine result.
	SaveEngineResult(ctx context.Context, dataset string, result engine.Result) (string, error)
}

// FSStore implements Store on the local filesystem.
type FSStore struct {
	root     string
	dirMode  os.FileMode
	fileMode os.FileMode
}

// NewFSStore creates a filesystem-backed store rooted at root.
func NewFSStore(root string, opts ...Option) (*FSStore, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}

	s := &FSStore{
		root:     root,
		dirMode:  0o755,
		fileMode: 0o644,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Root returns the store root directory.
func (s *FSStore) Root() string {
	return s.root
}

// SaveStepRanges writes the step-name → frame-range table.
func (s *FSStore) SaveStepRanges(ctx context.Context, dataset string, ranges map[string]skeleton.FrameRange) (string, error) {
	if dataset == "" {
		return "", ErrEmptyDataset
	}
	path := filepath.Join(s.root, dataset, "aligned", StepRangesFile)
	if err := s.saveJSON(ctx, path, ranges); err != nil {
		return "", err
	}
	return path, nil
}

// SaveLegacyReport writes the step-keyed verdict report.
func (s *FSStore) SaveLegacyReport(ctx context.Context, dataset string, report legacy.Report) (string, error) {
	if dataset == "" {
		return "", ErrEmptyDataset
	}
	path := filepath.Join(s.root, dataset, LegacyReportFile)
	if err := s.saveJSON(ctx, path, report); err != nil {
		return "", err
	}
	return path, nil
}

// SaveEngineResult writes the phase-keyed engine result.
func (s *FSStore) SaveEngineResult(ctx context.Context, dataset string, result engine.Result) (string, error) {
	if dataset == "" {
		return "", ErrEmptyDataset
	}
	path := filepath.Join(s.root, dataset, EngineResultFile)
	if err := s.saveJSON(ctx, path, result); err != nil {
		return "", err
	}
	return path, nil
}

// saveJSON marshals payload with indentation and writes it, creating parent
// directories as needed.
func (s *FSStore) saveJSON(ctx context.Context, path string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}

	if err := os.WriteFile(path, data, s.fileMode); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}

	return nil
}
