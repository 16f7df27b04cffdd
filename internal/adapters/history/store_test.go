package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/kata/internal/domain/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(id string, created time.Time) model.RunRecord {
	return model.RunRecord{
		ID:             id,
		Dataset:        "swing_042",
		RuleSetID:      "baseball_swing",
		Plugin:         "generic_core",
		OverallScore:   65,
		PhaseScores:    map[string]int{"load": 100, "contact": 30},
		Classification: "mid",
		Duration:       1250 * time.Millisecond,
		CreatedAt:      created,
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("expected ErrEmptyPath, got %v", err)
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Record(ctx, sampleRun("run-1", created)); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Dataset != "swing_042" || got.RuleSetID != "baseball_swing" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.OverallScore != 65 || got.Classification != "mid" {
		t.Errorf("unexpected score fields: %+v", got)
	}
	if got.PhaseScores["load"] != 100 || got.PhaseScores["contact"] != 30 {
		t.Errorf("unexpected phase scores: %v", got.PhaseScores)
	}
	if got.Duration != 1250*time.Millisecond {
		t.Errorf("unexpected duration: %v", got.Duration)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("unexpected created_at: %v", got.CreatedAt)
	}
}

func TestRecordEmptyID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Record(context.Background(), model.RunRecord{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}
}

func TestGetUnknown(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := s.Record(ctx, run); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	runs, err := s.List(ctx, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	// Most recent first.
	if runs[0].ID != "run-4" || runs[1].ID != "run-3" || runs[2].ID != "run-2" {
		t.Errorf("unexpected order: %v %v %v", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("expected 5 runs, got %d", len(all))
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := time.Now().UTC()
	if err := s.Record(ctx, sampleRun("run-1", created)); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := s.Record(ctx, sampleRun("run-1", created)); err == nil {
		t.Error("expected duplicate id to fail")
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := s.Record(ctx, sampleRun("run-1", time.Now().UTC())); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s2.Close()

	if _, err := s2.Get(ctx, "run-1"); err != nil {
		t.Errorf("expected run to survive reopen, got %v", err)
	}
}
