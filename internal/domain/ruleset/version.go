package ruleset

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// SchemaMajor returns the major schema version of a rule set, defaulting to
// 1 whenever the version string is not a plain x.y.z triple. Legacy rule
// files predate the schema_version field entirely.
func SchemaMajor(version string) int {
	major, err := ParseSchemaMajor(version)
	if err != nil {
		return 1
	}
	return major
}

// ParseSchemaMajor extracts the major version from a schema_version string.
// Only plain x.y.z triples are accepted; prerelease and build suffixes are
// rejected.
func ParseSchemaMajor(version string) (int, error) {
	v := "v" + strings.TrimSpace(version)
	if !semver.IsValid(v) || semver.Canonical(v) != v || semver.Prerelease(v) != "" {
		return 0, fmt.Errorf("%w: %q, expected x.y.z", ErrSchemaVersion, version)
	}
	major, err := strconv.Atoi(strings.TrimPrefix(semver.Major(v), "v"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q, expected x.y.z", ErrSchemaVersion, version)
	}
	return major, nil
}
