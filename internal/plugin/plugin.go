// Package plugin defines the metric plugin contract, the registry that maps
// rule definitions to plugin implementations, and the capability document
// exported for rule-authoring tools.
//
// A plugin computes the comparison metrics for one sport or for the generic
// cross-sport profile. Plugins are pure: the same phase and skeleton data
// always produce the same metrics.
package plugin

import (
	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/domain/skeleton"
)

// PhaseWildcard marks metrics available in every phase.
const PhaseWildcard = "*"

// Plugin computes scalar metrics from the student and coach subsequences of
// one phase.
type Plugin interface {
	// Metrics computes the scalar metrics of the phase.
	Metrics(phaseID string, student, coach skeleton.Sequence) (map[string]float64, error)
	// MetricsByPhase lists the metric ids computable per phase id, with
	// PhaseWildcard standing for any phase.
	MetricsByPhase() map[string][]string
	// ConditionTypes lists the condition kinds the plugin's metrics support.
	ConditionTypes() []ruleset.ConditionKind
}

// SeriesComputer is implemented by plugins that also expose per-frame metric
// series for trend conditions.
type SeriesComputer interface {
	// MetricSeries computes the per-frame series of the phase.
	MetricSeries(phaseID string, student, coach skeleton.Sequence) (map[string][]float64, error)
}

// Factory builds a fresh plugin instance.
type Factory func() Plugin
