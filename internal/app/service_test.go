package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/kata/internal/app"
	"github.com/okian/kata/internal/domain/model"
	logging "github.com/okian/kata/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const jointCount = 25

// writeSkeleton writes n frames of a flat, slightly moving skeleton.
func writeSkeleton(t *testing.T, path string, n int) {
	t.Helper()
	frames := make([][][3]float64, n)
	for f := 0; f < n; f++ {
		joints := make([][3]float64, jointCount)
		for j := 0; j < jointCount; j++ {
			joints[j] = [3]float64{float64(j), float64(j) + 1, float64(f) * 0.01}
		}
		frames[f] = joints
	}
	data, err := json.Marshal(frames)
	if err != nil {
		t.Fatalf("marshal skeleton: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write skeleton: %v", err)
	}
}

// writeDataset lays out a dataset with identical student and coach clips.
func writeDataset(t *testing.T, root, name string, frames int) {
	t.Helper()
	ds := model.NewDataset(root, name)
	writeSkeleton(t, ds.StudentPath(), frames)
	writeSkeleton(t, ds.CoachPath(), frames)
}

const testRuleSet = `{
  "schema_version": "2.0.0",
  "rule_set_id": "test_swing",
  "metric_profile": {"id": "generic_core"},
  "inputs": {"expected_fps": 30},
  "phases": [
    {"id": "load", "legacy_step_name": "Load", "frame_range": [0, 9]}
  ],
  "rules": [
    {
      "id": "steady_cg",
      "phase": "load",
      "conditions": [
        {"id": "c1", "type": "threshold", "metric": "cg_z_delta_mean", "op": "lt", "value": 10}
      ],
      "score": {"mode": "all-or-nothing", "pass_score": 1, "max_score": 1}
    }
  ]
}`

func writeRuleSet(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, []byte(testRuleSet), 0o644); err != nil {
		t.Fatalf("write rule set: %v", err)
	}
	return path
}

func newTestService(t *testing.T, dataRoot, rulePath string) *service.Service {
	t.Helper()
	return service.New(
		service.WithDataRoot(dataRoot),
		service.WithHistoryPath(filepath.Join(t.TempDir(), "runs.db")),
		service.WithDefaultRuleSet(rulePath),
		service.WithWorkerCount(2),
		service.WithQueueSize(8),
	)
}

func waitForRun(ctx context.Context, svc *service.Service, id string) (model.RunRecord, error) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := svc.GetRun(ctx, id)
		if err == nil {
			return run, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return model.RunRecord{}, fmt.Errorf("run %s not recorded in time", id)
}

func TestServiceLifecycle(t *testing.T) {
	convey.Convey("Given a configured service", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		dataRoot := t.TempDir()
		writeDataset(t, dataRoot, "swing_001", 20)
		rulePath := writeRuleSet(t, t.TempDir())

		svc := newTestService(t, dataRoot, rulePath)

		convey.Convey("When used before Start", func() {
			_, err := svc.Submit(ctx, "swing_001", "", "")

			convey.Convey("Then it refuses", func() {
				convey.So(errors.Is(err, service.ErrNotStarted), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When started", func() {
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop(ctx)

			convey.Convey("Then starting again is a no-op", func() {
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
			})

			convey.Convey("And when submitting a dataset", func() {
				id, err := svc.Submit(ctx, "swing_001", "", "")
				convey.So(err, convey.ShouldBeNil)
				convey.So(id, convey.ShouldNotBeEmpty)

				run, err := waitForRun(ctx, svc, id)
				convey.So(err, convey.ShouldBeNil)

				convey.Convey("Then the run is recorded with full marks", func() {
					convey.So(run.Dataset, convey.ShouldEqual, "swing_001")
					convey.So(run.RuleSetID, convey.ShouldEqual, "test_swing")
					convey.So(run.Plugin, convey.ShouldEqual, "generic_core")
					convey.So(run.OverallScore, convey.ShouldEqual, 100)
					convey.So(run.Classification, convey.ShouldEqual, "correct")
					convey.So(run.PhaseScores["load"], convey.ShouldEqual, 100)
				})

				convey.Convey("Then the artifacts are written next to the data", func() {
					for _, name := range []string{
						filepath.Join(dataRoot, "swing_001", "aligned", "step_frame_ranges.json"),
						filepath.Join(dataRoot, "swing_001", "analysis_results.json"),
						filepath.Join(dataRoot, "swing_001", "analysis_results_new.json"),
					} {
						_, statErr := os.Stat(name)
						convey.So(statErr, convey.ShouldBeNil)
					}
				})
			})
		})
	})
}

func TestServiceSubmitValidation(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		dataRoot := t.TempDir()
		writeDataset(t, dataRoot, "swing_001", 20)
		rulePath := writeRuleSet(t, t.TempDir())

		svc := newTestService(t, dataRoot, rulePath)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(ctx)

		convey.Convey("When submitting without a dataset", func() {
			_, err := svc.Submit(ctx, "", "", "")

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, service.ErrEmptyDataset), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When no rule set is configured anywhere", func() {
			bare := service.New(
				service.WithDataRoot(dataRoot),
				service.WithHistoryPath(filepath.Join(t.TempDir(), "runs.db")),
				service.WithWorkerCount(1),
			)
			convey.So(bare.Start(ctx), convey.ShouldBeNil)
			defer bare.Stop(ctx)

			_, err := bare.Submit(ctx, "swing_001", "", "")

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, service.ErrNoRuleSet), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServiceDuplicateSuppression(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		dataRoot := t.TempDir()
		writeDataset(t, dataRoot, "swing_001", 20)
		rulePath := writeRuleSet(t, t.TempDir())

		svc := newTestService(t, dataRoot, rulePath)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(ctx)

		convey.Convey("When submitting the same dataset twice back to back", func() {
			id, err := svc.Submit(ctx, "swing_001", "", "")
			convey.So(err, convey.ShouldBeNil)

			_, dupErr := svc.Submit(ctx, "swing_001", "", "")

			convey.Convey("Then the second submission is suppressed", func() {
				convey.So(errors.Is(dupErr, service.ErrDuplicate), convey.ShouldBeTrue)
			})

			convey.Convey("And after the run completes it can be submitted again", func() {
				_, err := waitForRun(ctx, svc, id)
				convey.So(err, convey.ShouldBeNil)

				// The dedupe entry is released on completion; poll briefly.
				deadline := time.Now().Add(2 * time.Second)
				var retryErr error
				for time.Now().Before(deadline) {
					_, retryErr = svc.Submit(ctx, "swing_001", "", "")
					if retryErr == nil {
						break
					}
					time.Sleep(20 * time.Millisecond)
				}
				convey.So(retryErr, convey.ShouldBeNil)
			})
		})
	})
}

func TestServiceRunDatasetErrors(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		dataRoot := t.TempDir()
		rulePath := writeRuleSet(t, t.TempDir())

		svc := newTestService(t, dataRoot, rulePath)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(ctx)

		convey.Convey("When running a dataset with no skeleton files", func() {
			_, _, err := svc.RunDataset(ctx, "", model.NewDataset(dataRoot, "missing"), rulePath, "auto")

			convey.Convey("Then it fails with a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running with a missing rule set", func() {
			writeDataset(t, dataRoot, "swing_001", 20)
			_, _, err := svc.RunDataset(ctx, "", model.NewDataset(dataRoot, "swing_001"), filepath.Join(dataRoot, "nope.json"), "auto")

			convey.Convey("Then it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestServiceStats(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		dataRoot := t.TempDir()
		rulePath := writeRuleSet(t, t.TempDir())

		svc := newTestService(t, dataRoot, rulePath)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop(ctx)

		convey.Convey("When reading stats", func() {
			stats := svc.GetStats()

			convey.Convey("Then the wiring is visible", func() {
				convey.So(stats["started"], convey.ShouldBeTrue)
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
				convey.So(stats["queueSize"], convey.ShouldEqual, 8)
				convey.So(stats["plugins"], convey.ShouldNotBeEmpty)
			})
		})
	})
}
