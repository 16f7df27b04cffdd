package plugin

import (
	"fmt"
	"strings"

	"github.com/okian/kata/internal/domain/ruleset"
)

// Auto asks ResolveName to pick the plugin from the rule definition itself.
const Auto = "auto"

// ResolveName picks the plugin for a rule definition. An explicit requested
// name other than Auto wins verbatim. Under Auto, schema v2 definitions name
// their plugin through metric_profile.id with the generic profile as
// fallback, while v1 definitions name it through their sport.
func ResolveName(def *ruleset.Definition, requested string) (string, error) {
	if requested != "" && requested != Auto {
		return requested, nil
	}

	if ruleset.SchemaMajor(def.SchemaVersion) >= 2 {
		if def.MetricProfile != nil {
			if id := strings.TrimSpace(def.MetricProfile.ID); id != "" {
				return id, nil
			}
		}
		return ruleset.DefaultProfileID, nil
	}

	if def.Sport == "" {
		return "", fmt.Errorf("%w: plugin is %q but the schema v1 rule set names no sport", ErrMissingSport, Auto)
	}
	return def.Sport, nil
}
