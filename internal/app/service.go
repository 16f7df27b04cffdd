// Package service provides the core evaluation service that implements
// the dependencies required by the HTTP API and the batch CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kata/internal/adapters/artifacts"
	"github.com/okian/kata/internal/adapters/history"
	"github.com/okian/kata/internal/batch/queue"
	"github.com/okian/kata/internal/batch/worker"
	"github.com/okian/kata/internal/domain/dedupe"
	"github.com/okian/kata/internal/domain/eval"
	"github.com/okian/kata/internal/domain/model"
	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/domain/skeleton"
	"github.com/okian/kata/internal/engine"
	"github.com/okian/kata/internal/legacy"
	"github.com/okian/kata/internal/plugin"
	"github.com/okian/kata/pkg/logger"
	"github.com/okian/kata/pkg/metrics"
)

// Service wires the rule engine, stores, queue and worker pool together.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry  *plugin.Registry
	deduper   dedupe.Deduper
	jobQueue  queue.Queue
	pool      *worker.Pool
	artifacts artifacts.Store
	runs      history.Store

	// Configuration
	dataRoot       string
	outputRoot     string
	historyPath    string
	defaultRuleSet string
	workerCount    int
	queueSize      int
	dedupeSize     int
	timings        bool

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataRoot sets the directory holding dataset trees.
func WithDataRoot(root string) Option {
	return func(s *Service) {
		if root != "" {
			s.dataRoot = root
		}
	}
}

// WithOutputRoot sets where run artifacts are written.
// Defaults to the data root.
func WithOutputRoot(root string) Option {
	return func(s *Service) {
		s.outputRoot = root
	}
}

// WithHistoryPath sets the SQLite file indexing completed runs.
func WithHistoryPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.historyPath = path
		}
	}
}

// WithDefaultRuleSet sets the rule definition used when a submission names none.
func WithDefaultRuleSet(path string) Option {
	return func(s *Service) {
		s.defaultRuleSet = path
	}
}

// WithWorkerCount sets the number of evaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the duplicate-submission cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRegistry sets a custom plugin registry.
func WithRegistry(reg *plugin.Registry) Option {
	return func(s *Service) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithTimings enables per-phase timing capture on evaluations.
func WithTimings() Option {
	return func(s *Service) {
		s.timings = true
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataRoot:    "./data",
		historyPath: "./kata_runs.db",
		workerCount: runtime.NumCPU() * 2,
		queueSize:   1024,
		dedupeSize:  50_000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting evaluation service...")

	if s.registry == nil {
		s.registry = plugin.Builtin()
	}

	outputRoot := s.outputRoot
	if outputRoot == "" {
		outputRoot = s.dataRoot
	}
	store, err := artifacts.NewFSStore(outputRoot)
	if err != nil {
		return fmt.Errorf("artifacts store: %w", err)
	}
	s.artifacts = store

	runs, err := history.Open(s.historyPath)
	if err != nil {
		return fmt.Errorf("run history: %w", err)
	}
	s.runs = runs

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobQueue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
	)

	s.pool = worker.NewPool(s.workerCount, s.jobQueue, s)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "evaluation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("dataRoot", s.dataRoot),
	)

	return nil
}

// Stop gracefully shuts down the service, draining in-flight jobs.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping evaluation service...")

	if s.pool != nil {
		// Shutdown closes the queue first so queued jobs drain.
		_ = s.pool.Shutdown(ctx)
	}

	if s.runs != nil {
		if err := s.runs.Close(); err != nil {
			s.logger.Error(ctx, "closing run history", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "evaluation service stopped")
}

// Submit enqueues a dataset evaluation and returns its run id.
// Returns ErrDuplicate when the same submission is already in flight and
// ErrQueueFull on backpressure.
func (s *Service) Submit(ctx context.Context, dataset, ruleSetPath, pluginName string) (string, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return "", ErrNotStarted
	}

	if dataset == "" {
		return "", ErrEmptyDataset
	}
	if ruleSetPath == "" {
		ruleSetPath = s.defaultRuleSet
	}
	if ruleSetPath == "" {
		return "", ErrNoRuleSet
	}
	if pluginName == "" {
		pluginName = plugin.Auto
	}

	key := dedupe.SubmissionKey(dataset, ruleSetPath, pluginName)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordDuplicateSubmission()
		return "", fmt.Errorf("%w: %s", ErrDuplicate, dataset)
	}

	job := queue.Job{
		ID:          uuid.NewString(),
		Dataset:     model.NewDataset(s.dataRoot, dataset),
		RuleSetPath: ruleSetPath,
		Plugin:      pluginName,
	}

	if !s.jobQueue.Enqueue(ctx, job) {
		s.deduper.Unrecord(ctx, key)
		return "", fmt.Errorf("%w: %s", ErrQueueFull, dataset)
	}

	s.logger.Debug(ctx, "submission enqueued",
		logger.String("run_id", job.ID),
		logger.String("dataset", dataset),
	)

	return job.ID, nil
}

// Evaluate runs one queued job end to end. It implements worker.Evaluator.
func (s *Service) Evaluate(ctx context.Context, job queue.Job) error {
	defer s.deduper.Unrecord(ctx, dedupe.SubmissionKey(job.Dataset.Name, job.RuleSetPath, job.Plugin))

	record, _, err := s.RunDataset(ctx, job.ID, job.Dataset, job.RuleSetPath, job.Plugin)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "run completed",
		logger.String("run_id", record.ID),
		logger.String("dataset", record.Dataset),
		logger.Int("score", record.OverallScore),
		logger.String("classification", record.Classification),
	)

	return nil
}

// RunDataset evaluates one dataset synchronously: load inputs, run the
// engine, write artifacts, and record the run. Used by both the worker pool
// and the CLI.
func (s *Service) RunDataset(ctx context.Context, runID string, ds model.Dataset, ruleSetPath, pluginName string) (model.RunRecord, engine.Result, error) {
	start := time.Now()
	metrics.RecordEvaluation()

	record, result, err := s.runDataset(ctx, runID, ds, ruleSetPath, pluginName, start)
	metrics.RecordEvaluationLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordEvaluationError()
		return model.RunRecord{}, engine.Result{}, err
	}

	return record, result, nil
}

func (s *Service) runDataset(ctx context.Context, runID string, ds model.Dataset, ruleSetPath, pluginName string, start time.Time) (model.RunRecord, engine.Result, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	def, err := ruleset.ParseFile(ruleSetPath)
	if err != nil {
		return model.RunRecord{}, engine.Result{}, fmt.Errorf("loading rule set: %w", err)
	}
	if err := ruleset.ValidateRefs(def); err != nil {
		return model.RunRecord{}, engine.Result{}, fmt.Errorf("validating rule set: %w", err)
	}

	resolved, err := plugin.ResolveName(def, pluginName)
	if err != nil {
		return model.RunRecord{}, engine.Result{}, err
	}
	p, err := s.registry.Create(resolved)
	if err != nil {
		return model.RunRecord{}, engine.Result{}, err
	}

	student, err := skeleton.Load(ds.StudentPath())
	if err != nil {
		return model.RunRecord{}, engine.Result{}, fmt.Errorf("loading student skeleton: %w", err)
	}
	coach, err := skeleton.Load(ds.CoachPath())
	if err != nil {
		return model.RunRecord{}, engine.Result{}, fmt.Errorf("loading coach skeleton: %w", err)
	}
	events, err := ds.LoadEvents()
	if err != nil {
		return model.RunRecord{}, engine.Result{}, fmt.Errorf("loading events: %w", err)
	}

	ec := eval.Context{Events: events, FPS: def.Inputs.ExpectedFPS}

	engOpts := []engine.Option{
		engine.WithWarnFunc(func(step string) {
			s.logger.Warn(ctx, "unknown preprocessing step skipped",
				logger.String("step", step),
				logger.String("dataset", ds.Name),
			)
		}),
	}
	if s.timings {
		engOpts = append(engOpts, engine.WithTimings())
	}

	result, err := engine.New(def, p, engOpts...).Analyze(ctx, student, coach, ec)
	if err != nil {
		return model.RunRecord{}, engine.Result{}, fmt.Errorf("analyzing %s: %w", ds.Name, err)
	}

	if err := s.saveArtifacts(ctx, ds.Name, def, result); err != nil {
		return model.RunRecord{}, engine.Result{}, err
	}

	record := buildRecord(runID, ds.Name, def.RuleSetID, resolved, result, time.Since(start))
	if err := s.runs.Record(ctx, record); err != nil {
		return model.RunRecord{}, engine.Result{}, fmt.Errorf("recording run: %w", err)
	}

	for _, score := range record.PhaseScores {
		metrics.RecordPhaseScore(score)
	}

	return record, result, nil
}

// saveArtifacts writes the step-range table, the legacy report and the
// engine result next to the dataset.
func (s *Service) saveArtifacts(ctx context.Context, dataset string, def *ruleset.Definition, result engine.Result) error {
	ranges := legacy.BuildStepRanges(def)

	if _, err := s.artifacts.SaveStepRanges(ctx, dataset, ranges.Ranges); err != nil {
		return fmt.Errorf("saving step ranges: %w", err)
	}

	report := legacy.ToReport(result, def, ranges.PhaseMap)
	if _, err := s.artifacts.SaveLegacyReport(ctx, dataset, report); err != nil {
		return fmt.Errorf("saving legacy report: %w", err)
	}

	if _, err := s.artifacts.SaveEngineResult(ctx, dataset, result); err != nil {
		return fmt.Errorf("saving engine result: %w", err)
	}

	return nil
}

func buildRecord(runID, dataset, ruleSetID, pluginName string, result engine.Result, elapsed time.Duration) model.RunRecord {
	scores := make(map[string]int, len(result.Phases))
	classes := make(map[string]string, len(result.Phases))
	for id, phase := range result.Phases {
		scores[id] = phase.Score
		classes[id] = phase.Classification
	}

	return model.RunRecord{
		ID:             runID,
		Dataset:        dataset,
		RuleSetID:      ruleSetID,
		Plugin:         pluginName,
		OverallScore:   model.OverallScore(scores),
		PhaseScores:    scores,
		Classification: model.SummarizeClassification(classes),
		Duration:       elapsed,
		CreatedAt:      time.Now().UTC(),
	}
}

// GetRun returns the history record for a run id.
func (s *Service) GetRun(ctx context.Context, id string) (model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.RunRecord{}, ErrNotStarted
	}
	return s.runs.Get(ctx, id)
}

// ListRuns returns up to limit history records, most recent first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.runs.List(ctx, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"plugins":     s.pluginNames(),
	}

	if s.started {
		stats["queueLength"] = s.jobQueue.Len(context.Background())
		stats["pendingSubmissions"] = s.deduper.Size()
	}

	return stats
}

func (s *Service) pluginNames() []string {
	if s.registry == nil {
		return nil
	}
	return s.registry.Names()
}
