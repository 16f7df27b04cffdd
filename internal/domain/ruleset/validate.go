package ruleset

import (
	"fmt"
	"strings"
)

// ValidateRefs checks the cross references inside a parsed definition:
// unique phase and rule ids, rules pointing at declared phases, feedback
// pointing at declared conditions, and frame range signals pointing at
// declared phases.
func ValidateRefs(def *Definition) error {
	phaseIDs, err := uniqueIDs(len(def.Phases), func(i int) string { return def.Phases[i].ID }, "phases")
	if err != nil {
		return err
	}
	if _, err := uniqueIDs(len(def.Rules), func(i int) string { return def.Rules[i].ID }, "rules"); err != nil {
		return err
	}

	for i := range def.Rules {
		rule := &def.Rules[i]
		if !phaseIDs[rule.PhaseID] {
			return fmt.Errorf("%w: rule %q references missing phase %q", ErrCrossRef, rule.ID, rule.PhaseID)
		}

		condIDs, err := uniqueIDs(
			len(rule.Conditions),
			func(j int) string { return rule.Conditions[j].ID },
			fmt.Sprintf("rule %q conditions", rule.ID),
		)
		if err != nil {
			return err
		}

		for _, fb := range rule.Feedback {
			for _, cid := range fb.ConditionIDs {
				if !condIDs[cid] {
					return fmt.Errorf("%w: rule %q feedback references missing condition %q", ErrCrossRef, rule.ID, cid)
				}
			}
		}

		if rule.Signal != nil && rule.Signal.Type == SignalFrameRangeRef {
			ref, ok := strings.CutPrefix(rule.Signal.Ref, "phase:")
			if !ok {
				return fmt.Errorf("%w: rule %q has invalid signal ref %q, expected \"phase:<id>\"", ErrCrossRef, rule.ID, rule.Signal.Ref)
			}
			if !phaseIDs[ref] {
				return fmt.Errorf("%w: rule %q signal references missing phase %q", ErrCrossRef, rule.ID, ref)
			}
		}
	}
	return nil
}

// uniqueIDs collects ids while rejecting duplicates.
func uniqueIDs(n int, id func(int) string, context string) (map[string]bool, error) {
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		key := id(i)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate id %q in %s", ErrCrossRef, key, context)
		}
		seen[key] = true
	}
	return seen, nil
}
