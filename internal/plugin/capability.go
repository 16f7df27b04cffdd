package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/okian/kata/internal/domain/ruleset"
)

// Capability document constants.
const (
	// CapabilityVersion is the version stamp of the exported document.
	CapabilityVersion = 2
	// CatalogRef names the external metric catalog profiles point at.
	CatalogRef = "core_metric_catalog_v1"
)

// Catalog is the external metric catalog that widens each profile's
// available metric ids beyond what its plugin computes.
type Catalog struct {
	MetricSpace string          `json:"metric_space"`
	Metrics     []CatalogMetric `json:"metrics"`
}

// CatalogMetric is one catalog entry. Only the id matters here; authoring
// tools keep richer fields we pass through untouched.
type CatalogMetric struct {
	ID string `json:"id"`
}

// DefaultCatalog is the catalog used when none is on disk.
func DefaultCatalog() Catalog {
	return Catalog{MetricSpace: ruleset.DefaultMetricSpace}
}

// LoadCatalog reads a metric catalog file, falling back to DefaultCatalog
// when the file does not exist.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultCatalog(), nil
	}
	if err != nil {
		return Catalog{}, fmt.Errorf("read metric catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode metric catalog: %w", err)
	}
	if c.MetricSpace == "" {
		c.MetricSpace = ruleset.DefaultMetricSpace
	}
	return c, nil
}

// CapabilityDoc is the JSON document handed to rule-authoring tools.
type CapabilityDoc struct {
	Version          int                   `json:"version"`
	DefaultProfileID string                `json:"default_profile_id"`
	MetricCatalog    CatalogSummary        `json:"metric_catalog"`
	Profiles         map[string]Profile    `json:"profiles"`
	Plugins          map[string]Capability `json:"plugins"`
}

// CatalogSummary identifies the catalog the export was built against.
type CatalogSummary struct {
	ID                 string   `json:"id"`
	MetricSpace        string   `json:"metric_space"`
	AvailableMetricIDs []string `json:"available_metric_ids"`
}

// Capability is the raw per-plugin surface: what it can compute and which
// condition kinds its metrics support.
type Capability struct {
	SupportedConditionTypes []string            `json:"supported_condition_types"`
	MetricsByPhase          map[string][]string `json:"metrics_by_phase"`
	AllMetrics              []string            `json:"all_metrics"`
}

// Profile is a synthesized authoring profile wrapping one plugin.
type Profile struct {
	ID                      string              `json:"id"`
	Plugin                  string              `json:"plugin"`
	Type                    string              `json:"type"`
	PresetID                *string             `json:"preset_id"`
	MetricSpace             string              `json:"metric_space"`
	SupportedConditionTypes []string            `json:"supported_condition_types"`
	MetricsByPhase          map[string][]string `json:"metrics_by_phase"`
	AvailableMetricIDs      []string            `json:"available_metric_ids"`
	MetricCatalogRef        string              `json:"metric_catalog_ref"`
}

// ExportCapabilities builds the capability document for every plugin in the
// registry against the given catalog.
func ExportCapabilities(reg *Registry, catalog Catalog) (CapabilityDoc, error) {
	catalogIDs := catalogMetricIDs(catalog)

	names := reg.Names()
	sort.Strings(names)

	capabilities := make(map[string]Capability, len(names))
	profiles := make(map[string]Profile, len(names))
	for _, name := range names {
		p, err := reg.Create(name)
		if err != nil {
			return CapabilityDoc{}, err
		}

		byPhase := make(map[string][]string, len(p.MetricsByPhase()))
		var all []string
		for phaseID, metrics := range p.MetricsByPhase() {
			byPhase[phaseID] = sortedSet(metrics)
			all = append(all, metrics...)
		}
		allMetrics := sortedSet(all)

		kinds := make([]string, 0, len(p.ConditionTypes()))
		for _, k := range p.ConditionTypes() {
			kinds = append(kinds, string(k))
		}
		condTypes := sortedSet(kinds)

		capabilities[name] = Capability{
			SupportedConditionTypes: condTypes,
			MetricsByPhase:          byPhase,
			AllMetrics:              allMetrics,
		}

		profileType := ruleset.ProfileTypePreset
		var presetID *string
		if name == ruleset.DefaultProfileID {
			profileType = ruleset.ProfileTypeGeneric
		} else {
			starter := name + "_starter"
			presetID = &starter
		}
		profiles[name] = Profile{
			ID:                      name,
			Plugin:                  name,
			Type:                    profileType,
			PresetID:                presetID,
			MetricSpace:             catalog.MetricSpace,
			SupportedConditionTypes: condTypes,
			MetricsByPhase:          byPhase,
			AvailableMetricIDs:      sortedSet(append(append([]string{}, allMetrics...), catalogIDs...)),
			MetricCatalogRef:        CatalogRef,
		}
	}

	return CapabilityDoc{
		Version:          CapabilityVersion,
		DefaultProfileID: ruleset.DefaultProfileID,
		MetricCatalog: CatalogSummary{
			ID:                 CatalogRef,
			MetricSpace:        catalog.MetricSpace,
			AvailableMetricIDs: catalogIDs,
		},
		Profiles: profiles,
		Plugins:  capabilities,
	}, nil
}

func catalogMetricIDs(catalog Catalog) []string {
	ids := make([]string, 0, len(catalog.Metrics))
	for _, m := range catalog.Metrics {
		if id := strings.TrimSpace(m.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return sortedSet(ids)
}

// sortedSet sorts and deduplicates, always returning a non-nil slice so the
// document marshals arrays rather than nulls.
func sortedSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
