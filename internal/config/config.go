// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP API listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MetricsAddr configures the separate Prometheus listener, e.g. ":9091".
	MetricsAddr string `koanf:"metrics_addr"`

	// DataRoot is the directory holding dataset trees.
	DataRoot string `koanf:"data_root"`

	// OutputRoot is where run artifacts are written.
	// Empty means write next to the input data (DataRoot).
	OutputRoot string `koanf:"output_root"`

	// HistoryPath is the SQLite file indexing completed runs.
	HistoryPath string `koanf:"history_path"`

	// RuleSetPath is the default rule definition file for submissions that
	// do not name one.
	RuleSetPath string `koanf:"rule_set_path"`

	// QueueSize bounds the in-memory evaluation job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the duplicate-submission cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RateLimitRPS caps accepted submissions per second. Zero disables limiting.
	RateLimitRPS float64 `koanf:"rate_limit_rps"`

	// RateLimitBurst is the token-bucket burst for submissions.
	RateLimitBurst int `koanf:"rate_limit_burst"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		MetricsAddr:    ":9091",
		DataRoot:       "./data",
		OutputRoot:     "",
		HistoryPath:    "./kata_runs.db",
		RuleSetPath:    "",
		QueueSize:      1024,
		WorkerCount:    runtime.NumCPU() * 2,
		DedupeSize:     50_000,
		RateLimitRPS:   50,
		RateLimitBurst: 100,
	}
}

// ArtifactRoot resolves where run outputs go: OutputRoot when set,
// otherwise next to the input data.
func (c *Config) ArtifactRoot() string {
	if c.OutputRoot != "" {
		return c.OutputRoot
	}
	return c.DataRoot
}
