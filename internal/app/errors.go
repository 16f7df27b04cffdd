package service

import "errors"

var (
	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrDuplicate is returned when the same submission is already in flight.
	ErrDuplicate = errors.New("duplicate submission")
	// ErrQueueFull is returned when the job queue rejects a submission.
	ErrQueueFull = errors.New("evaluation queue full")
	// ErrEmptyDataset is returned when a submission names no dataset.
	ErrEmptyDataset = errors.New("empty dataset name")
	// ErrNoRuleSet is returned when neither the submission nor the service
	// configuration names a rule definition.
	ErrNoRuleSet = errors.New("no rule set configured")
)
