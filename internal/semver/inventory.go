package semver

import (
	"sort"

	mvc "github.com/Masterminds/semver/v3"
)

// FilterAndParse turns a registry tag listing into the set of versions that
// take part in promotion. Tags that do not carry prefix or do not parse
// (aliases like "1.2" or "latest", unrelated tags like "alpine") are skipped.
// Tags that parse to equal versions, e.g. differing only in build metadata,
// collapse to one entry. The result is sorted ascending.
func FilterAndParse(rawTags []string, prefix string) []Version {
	versions := make([]Version, 0, len(rawTags))
	for _, t := range rawTags {
		v, err := Parse(t, prefix)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return versions
	}

	sort.SliceStable(versions, func(i, j int) bool { return versions[i].LessThan(versions[j]) })

	out := versions[:1]
	for _, v := range versions[1:] {
		if !v.Equal(out[len(out)-1]) {
			out = append(out, v)
		}
	}
	return out
}

// Highest returns the highest release (non pre-release) version in versions
// that satisfies c. A nil c matches every release. The boolean is false when
// nothing matched.
func Highest(versions []Version, c *mvc.Constraints) (Version, bool) {
	var (
		best  Version
		found bool
	)
	for _, v := range versions {
		if v.IsPrerelease() {
			continue
		}
		if c != nil && !c.Check(v.Semver()) {
			continue
		}
		if !found || best.LessThan(v) {
			best = v
			found = true
		}
	}
	return best, found
}
