// Package semver parses image tags as semantic versions, collects the
// versions already present in a repository and expands a version into its
// alias tags.
package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	mvc "github.com/Masterminds/semver/v3"
)

var (
	// ErrInvalidVersionFormat is returned when text is not MAJOR.MINOR.PATCH[-PRE][+BUILD].
	ErrInvalidVersionFormat = errors.New("invalid version format")
	// ErrPrefixMismatch is returned when a configured tag prefix is not present.
	ErrPrefixMismatch = errors.New("tag prefix mismatch")
)

// Version is an immutable semantic version. Build metadata is kept for
// display but never takes part in comparison or equality.
type Version struct {
	v *mvc.Version
}

// Parse strips prefix (when non-empty) from text and parses the remainder as
// a strict semantic version. No leading "v" and no shorthand like "1.2" is
// accepted.
func Parse(text, prefix string) (Version, error) {
	raw := text
	if prefix != "" {
		if !strings.HasPrefix(text, prefix) {
			return Version{}, fmt.Errorf("%w: %q does not start with %q", ErrPrefixMismatch, text, prefix)
		}
		raw = strings.TrimPrefix(text, prefix)
	}
	v, err := mvc.StrictNewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersionFormat, raw, err)
	}
	if err := checkPrerelease(v.Prerelease()); err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersionFormat, raw, err)
	}
	return Version{v: v}, nil
}

// checkPrerelease rejects numeric identifiers that do not fit in a uint64.
// They could not be ordered numerically against other numeric identifiers.
func checkPrerelease(pre string) error {
	if pre == "" {
		return nil
	}
	for _, id := range strings.Split(pre, ".") {
		if !isNumeric(id) {
			continue
		}
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return fmt.Errorf("numeric pre-release identifier %q out of range", id)
		}
	}
	return nil
}

func isNumeric(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MustParse is like Parse without a prefix but panics on error. Intended for
// tests and constants.
func MustParse(text string) Version {
	v, err := Parse(text, "")
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) Major() uint64 { return v.v.Major() }
func (v Version) Minor() uint64 { return v.v.Minor() }
func (v Version) Patch() uint64 { return v.v.Patch() }

// Prerelease returns the dot-separated pre-release identifiers, or "".
func (v Version) Prerelease() string { return v.v.Prerelease() }

// Metadata returns the build metadata, or "".
func (v Version) Metadata() string { return v.v.Metadata() }

// IsPrerelease reports whether v carries a pre-release suffix.
func (v Version) IsPrerelease() bool { return v.v.Prerelease() != "" }

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool { return v.v == nil }

// Compare returns -1, 0 or 1. Numeric fields compare numerically, a
// pre-release sorts below its release, pre-release identifiers compare
// element-wise (numeric below alphanumeric, a prefix below the longer list).
func (v Version) Compare(o Version) int {
	return v.v.Compare(o.v)
}

// Equal ignores build metadata.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// LessThan reports whether v orders strictly before o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// AtLeast reports whether v orders at or after o.
func (v Version) AtLeast(o Version) bool { return v.Compare(o) >= 0 }

// String renders major.minor.patch[-prerelease]. Build metadata is dropped
// because '+' is not allowed in OCI tags.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	if pre := v.Prerelease(); pre != "" {
		s += "-" + pre
	}
	return s
}

// Original returns the text the version was parsed from, prefix excluded.
func (v Version) Original() string { return v.v.Original() }

// Semver exposes the underlying Masterminds version for constraint checks.
func (v Version) Semver() *mvc.Version { return v.v }
