package semver

import (
	"fmt"
	"math"

	mvc "github.com/Masterminds/semver/v3"
)

// AliasLevel identifies one of the tags a version is published under.
type AliasLevel int

const (
	Major AliasLevel = iota
	MajorMinor
	Full
	Latest
)

// Levels lists every alias level in the order decisions are reported.
var Levels = []AliasLevel{Major, MajorMinor, Full, Latest}

func (l AliasLevel) String() string {
	switch l {
	case Major:
		return "major"
	case MajorMinor:
		return "major_minor"
	case Full:
		return "full"
	case Latest:
		return "latest"
	}
	return fmt.Sprintf("AliasLevel(%d)", int(l))
}

// MarshalText renders the level by name in JSON reports.
func (l AliasLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText parses a level name as written by MarshalText.
func (l *AliasLevel) UnmarshalText(text []byte) error {
	for _, candidate := range Levels {
		if candidate.String() == string(text) {
			*l = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown alias level %q", text)
}

// Tag renders the alias tag of v at level l.
func (l AliasLevel) Tag(v Version, prefix string) string {
	switch l {
	case Major:
		return fmt.Sprintf("%s%d", prefix, v.Major())
	case MajorMinor:
		return fmt.Sprintf("%s%d.%d", prefix, v.Major(), v.Minor())
	case Latest:
		return prefix + "latest"
	default:
		return prefix + v.String()
	}
}

// Expand maps every alias level to its tag for v.
func Expand(v Version, prefix string) map[AliasLevel]string {
	out := make(map[AliasLevel]string, len(Levels))
	for _, l := range Levels {
		out[l] = l.Tag(v, prefix)
	}
	return out
}

// Scope returns the constraint selecting the versions that compete with v
// for the alias at level l: same major for Major, same major.minor for
// MajorMinor. Latest competes with every version and returns nil. Full has
// no competition and also returns nil.
//
// At math.MaxUint64 the exclusive upper bound cannot be written, so the
// bound is widened (minor) or dropped (major).
func Scope(l AliasLevel, v Version) (*mvc.Constraints, error) {
	var expr string
	switch l {
	case Major:
		expr = fmt.Sprintf(">= %d.0.0", v.Major())
		if v.Major() < math.MaxUint64 {
			expr += fmt.Sprintf(", < %d.0.0", v.Major()+1)
		}
	case MajorMinor:
		expr = fmt.Sprintf(">= %d.%d.0", v.Major(), v.Minor())
		switch {
		case v.Minor() < math.MaxUint64:
			expr += fmt.Sprintf(", < %d.%d.0", v.Major(), v.Minor()+1)
		case v.Major() < math.MaxUint64:
			expr += fmt.Sprintf(", < %d.0.0", v.Major()+1)
		}
	default:
		return nil, nil
	}
	c, err := mvc.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid scope %q: %w", expr, err)
	}
	return c, nil
}
