package rules

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

const defaultMaxVersion = "999.999.999"

// Applies reports whether the migration is selected for an upgrade of
// its package from one version to another. A migration without conditions
// never applies through version selection.
func (m Migration) Applies(from, to string) (bool, error) {
	oldV, err := canonicalVersion(from)
	if err != nil {
		return false, err
	}
	newV, err := canonicalVersion(to)
	if err != nil {
		return false, err
	}
	for _, c := range m.VersionConditions {
		ok, err := c.holds(oldV, newV)
		if err != nil {
			return false, fmt.Errorf("migration %s: %w", m.ID, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (c VersionCondition) holds(oldV, newV string) (bool, error) {
	v, err := canonicalVersion(c.Version)
	if err != nil {
		return false, err
	}
	switch c.Type {
	case "greater_than":
		return semver.Compare(newV, v) > 0 && semver.Compare(oldV, v) <= 0, nil
	case "greater_than_or_equal":
		return semver.Compare(newV, v) >= 0 && semver.Compare(oldV, v) < 0, nil
	case "exact":
		return semver.Compare(newV, v) == 0, nil
	case "range":
		maxRaw := c.MaxVersion
		if maxRaw == "" {
			maxRaw = defaultMaxVersion
		}
		maxV, err := canonicalVersion(maxRaw)
		if err != nil {
			return false, err
		}
		return semver.Compare(v, newV) <= 0 && semver.Compare(newV, maxV) <= 0, nil
	}
	return false, nil
}

// canonicalVersion turns a NuGet style version ("8.0", "1.2.3-beta",
// "1.2.3.4") into a comparable semver string.
func canonicalVersion(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", fmt.Errorf("empty version")
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	// semver has no fourth component; fold the revision into build metadata.
	core, rest := v, ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core, rest = v[:i], v[i:]
	}
	if parts := strings.Split(core, "."); len(parts) == 4 {
		core = strings.Join(parts[:3], ".")
		if rest == "" {
			rest = "+" + parts[3]
		}
	}
	v = core + rest
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid version %q", raw)
	}
	return v, nil
}

// Select returns the rules to run for an upgrade of pkg from one version
// to another: every top-level rule plus the rules of each migration for pkg
// whose version conditions hold. With pkg empty, every migration is selected.
func (s *RuleSet) Select(pkg, from, to string) ([]Rule, error) {
	if pkg == "" {
		return s.All(), nil
	}
	out := append([]Rule(nil), s.Rules...)
	for _, m := range s.Migrations {
		if !strings.EqualFold(m.PackageName, pkg) {
			continue
		}
		ok, err := m.Applies(from, to)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m.Rules...)
		}
	}
	return out, nil
}

// ByID returns the migration with the given id.
func (s *RuleSet) ByID(id string) (Migration, bool) {
	for _, m := range s.Migrations {
		if m.ID == id {
			return m, true
		}
	}
	return Migration{}, false
}
