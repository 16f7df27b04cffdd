// Package smoke runs a deterministic end-to-end self-check of the rule
// engine: synthetic student/coach clips evaluated concurrently against a
// small built-in rule set, with the known-good outcomes asserted on every
// run.
package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/kata/internal/domain/eval"
	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/domain/skeleton"
	"github.com/okian/kata/internal/engine"
	"github.com/okian/kata/internal/plugin/generic"
)

// Default harness configuration.
const (
	defaultRuns   = 8
	clipFrames    = 120
	contactFrame  = 90
	expectedScore = 65
)

// ruleSetJSON is the built-in definition: one fixed-range phase carrying a
// passing and a failing rule, and one event-window phase anchored on the
// contact event.
const ruleSetJSON = `{
  "schema_version": "2.0.0",
  "rule_set_id": "smoke_check",
  "metric_profile": {"id": "generic_core"},
  "inputs": {"expected_fps": 30},
  "phases": [
    {"id": "setup", "legacy_step_name": "Setup", "frame_range": [0, 29]},
    {"id": "contact", "legacy_step_name": "Contact", "event_window": {"event": "contact", "window_ms": [-100, 200]}}
  ],
  "rules": [
    {
      "id": "steady_cg",
      "phase": "setup",
      "conditions": [
        {"id": "pass_c", "type": "threshold", "metric": "cg_z_delta_mean", "op": "lt", "value": 10}
      ],
      "score": {"mode": "all-or-nothing", "pass_score": 1, "max_score": 1}
    },
    {
      "id": "impossible_cg",
      "phase": "setup",
      "conditions": [
        {"id": "fail_c", "type": "threshold", "metric": "cg_z_delta_mean", "op": "gt", "value": 5}
      ],
      "score": {"mode": "all-or-nothing", "pass_score": 1, "max_score": 1}
    },
    {
      "id": "contact_cg",
      "phase": "contact",
      "conditions": [
        {"id": "contact_c", "type": "threshold", "metric": "cg_z_delta_mean", "op": "lt", "value": 10}
      ],
      "score": {"mode": "all-or-nothing", "pass_score": 1, "max_score": 1}
    }
  ]
}`

// Report summarizes a completed smoke check.
type Report struct {
	Runs   int
	Checks int
}

// Option tunes the smoke harness.
type Option func(*harness)

// WithRuns sets the number of concurrent engine runs.
func WithRuns(n int) Option {
	return func(h *harness) {
		if n > 0 {
			h.runs = n
		}
	}
}

type harness struct {
	runs int
}

// Run executes the self-check: runs concurrent evaluations of identical
// synthetic inputs and verifies the known-good outcomes on each, including
// that every run produced the same result.
func Run(ctx context.Context, opts ...Option) (Report, error) {
	h := &harness{runs: defaultRuns}
	for _, opt := range opts {
		opt(h)
	}

	def, err := ruleset.Parse([]byte(ruleSetJSON))
	if err != nil {
		return Report{}, fmt.Errorf("parsing built-in rule set: %w", err)
	}
	if err := ruleset.ValidateRefs(def); err != nil {
		return Report{}, fmt.Errorf("validating built-in rule set: %w", err)
	}

	student := syntheticClip(clipFrames)
	coach := syntheticClip(clipFrames)
	ec := eval.Context{
		Events: map[string]eval.Event{"contact": eval.FrameEvent(contactFrame)},
		FPS:    def.Inputs.ExpectedFPS,
	}

	var (
		mu      sync.Mutex
		outputs [][]byte
		checks  int
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < h.runs; i++ {
		g.Go(func() error {
			// One engine instance per run, as in the batch pool.
			result, err := engine.New(def, generic.New()).Analyze(gctx, student, coach, ec)
			if err != nil {
				return fmt.Errorf("analyze failed: %w", err)
			}

			n, err := verify(result)
			if err != nil {
				return err
			}

			encoded, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}

			mu.Lock()
			outputs = append(outputs, encoded)
			checks += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	// Identical inputs must produce identical results.
	for i := 1; i < len(outputs); i++ {
		if string(outputs[i]) != string(outputs[0]) {
			return Report{}, fmt.Errorf("%w: run %d diverged", ErrCheckFailed, i)
		}
	}
	checks++

	return Report{Runs: h.runs, Checks: checks}, nil
}

// verify asserts the known-good outcomes of one run.
func verify(result engine.Result) (int, error) {
	checks := 0

	if len(result.Order) != 2 || result.Order[0] != "setup" || result.Order[1] != "contact" {
		return checks, fmt.Errorf("%w: phase order %v", ErrCheckFailed, result.Order)
	}
	checks++

	setup, ok := result.Phases["setup"]
	if !ok {
		return checks, fmt.Errorf("%w: setup phase missing", ErrCheckFailed)
	}

	// One passing and one failing rule average to 65.
	if setup.Score != expectedScore {
		return checks, fmt.Errorf("%w: setup score %d, want %d", ErrCheckFailed, setup.Score, expectedScore)
	}
	checks++

	if setup.Classification != "mid" {
		return checks, fmt.Errorf("%w: setup classified %q", ErrCheckFailed, setup.Classification)
	}
	checks++

	if !setup.Rules["steady_cg"].Passed {
		return checks, fmt.Errorf("%w: steady_cg should pass", ErrCheckFailed)
	}
	if setup.Rules["impossible_cg"].Passed {
		return checks, fmt.Errorf("%w: impossible_cg should fail", ErrCheckFailed)
	}
	checks++

	contact, ok := result.Phases["contact"]
	if !ok {
		return checks, fmt.Errorf("%w: contact phase missing", ErrCheckFailed)
	}

	// fps=30, event frame 90, window [-100ms, 200ms] resolves to [87, 96].
	want := skeleton.FrameRange{Start: 87, End: 96}
	if contact.FrameRange != want {
		return checks, fmt.Errorf("%w: contact frames %v, want %v", ErrCheckFailed, contact.FrameRange, want)
	}
	checks++

	return checks, nil
}

// syntheticClip builds a deterministic sequence: a flat skeleton drifting
// slowly upward so per-frame series are non-degenerate.
func syntheticClip(frames int) skeleton.Sequence {
	seq := make(skeleton.Sequence, frames)
	for f := 0; f < frames; f++ {
		frame := make(skeleton.Frame, skeleton.JointCount)
		for j := 0; j < skeleton.JointCount; j++ {
			frame[j] = skeleton.Vec3{
				float64(j) * 0.1,
				float64(j)*0.05 + 1,
				float64(f)*0.01 + 1,
			}
		}
		seq[f] = frame
	}
	return seq
}
