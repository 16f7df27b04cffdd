package ruleset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Metric profile types.
const (
	ProfileTypeGeneric = "generic"
	ProfileTypePreset  = "preset"
)

// MigrateOption tunes a v1 to v2 migration.
type MigrateOption func(*migrateConfig)

type migrateConfig struct {
	profileID   string
	profileType string
	presetID    string
}

// WithProfileID sets the metric profile id written into the migrated
// document.
func WithProfileID(id string) MigrateOption {
	return func(c *migrateConfig) {
		if id != "" {
			c.profileID = id
		}
	}
}

// WithProfileType sets the metric profile type, generic or preset.
func WithProfileType(t string) MigrateOption {
	return func(c *migrateConfig) {
		if t != "" {
			c.profileType = t
		}
	}
}

// WithPresetID pins the preset id used when the profile type is preset.
// Without it the preset id is derived from the source document's sport.
func WithPresetID(id string) MigrateOption {
	return func(c *migrateConfig) {
		if id != "" {
			c.presetID = id
		}
	}
}

// MigrationReport summarizes what a migration produced.
type MigrationReport struct {
	SourceSchemaVersion string         `json:"source_schema_version"`
	TargetSchemaVersion string         `json:"target_schema_version"`
	RuleSetID           any            `json:"rule_set_id"`
	MetricProfile       map[string]any `json:"metric_profile"`
	PhaseCount          int            `json:"phase_count"`
	RuleCount           int            `json:"rule_count"`
}

// MigrateV1ToV2 rewrites a schema v1 document as schema v2. It works on the
// raw JSON object so unknown authoring fields inside metadata, phases, and
// rules survive verbatim. Sport fields are carried over as context; the
// content sections are deep copied untouched.
func MigrateV1ToV2(src map[string]any, opts ...MigrateOption) (map[string]any, *MigrationReport, error) {
	cfg := migrateConfig{profileID: DefaultProfileID, profileType: ProfileTypeGeneric}
	for _, opt := range opts {
		opt(&cfg)
	}

	version := asString(src["schema_version"])
	major, err := ParseSchemaMajor(version)
	if err != nil {
		return nil, nil, err
	}
	if major != 1 {
		return nil, nil, fmt.Errorf("%w: got schema v%d", ErrNotV1, major)
	}

	ruleSetID, ok := src["rule_set_id"]
	if !ok {
		return nil, nil, fmt.Errorf("%w: rule_set_id is required", ErrInvalidDefinition)
	}

	profile := map[string]any{
		"id":           cfg.profileID,
		"type":         cfg.profileType,
		"metric_space": DefaultMetricSpace,
	}
	if cfg.profileType == ProfileTypePreset {
		presetID := cfg.presetID
		if presetID == "" {
			sport := asString(src["sport"])
			if sport == "" {
				sport = "starter"
			}
			presetID = sport + "_starter"
		}
		profile["preset_id"] = presetID
	}

	migrated := map[string]any{
		"schema_version": SchemaV2,
		"rule_set_id":    ruleSetID,
		"metric_profile": profile,
		"metadata":       deepCopyOr(src["metadata"], map[string]any{}),
		"inputs":         deepCopyOr(src["inputs"], map[string]any{}),
		"globals":        deepCopyOr(src["globals"], map[string]any{}),
		"phases":         deepCopyOr(src["phases"], []any{}),
		"rules":          deepCopyOr(src["rules"], []any{}),
	}

	if sport := asString(src["sport"]); sport != "" {
		migrated["sport"] = src["sport"]
	}
	if sv := asString(src["sport_version"]); sv != "" {
		migrated["sport_version"] = src["sport_version"]
	}

	report := &MigrationReport{
		SourceSchemaVersion: version,
		TargetSchemaVersion: SchemaV2,
		RuleSetID:           ruleSetID,
		MetricProfile:       profile,
		PhaseCount:          lenOf(migrated["phases"]),
		RuleCount:           lenOf(migrated["rules"]),
	}
	return migrated, report, nil
}

// DefaultMigrationOutputPath derives the conventional output path for a
// migrated file: the _v1 stem suffix is replaced with _v2.
func DefaultMigrationOutputPath(input string) string {
	dir := filepath.Dir(input)
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	stem = strings.TrimSuffix(stem, "_v1")
	return filepath.Join(dir, stem+"_v2.json")
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func lenOf(v any) int {
	if items, ok := v.([]any); ok {
		return len(items)
	}
	return 0
}

// deepCopyOr deep copies a decoded JSON value, or returns the fallback when
// the source key was absent.
func deepCopyOr(v, fallback any) any {
	if v == nil {
		return fallback
	}
	return deepCopy(v)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}
