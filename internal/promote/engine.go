package promote

import (
	"fmt"

	mvc "github.com/Masterminds/semver/v3"

	"github.com/aixigo/oci-semver-tagging/internal/semver"
)

// Decision is the verdict for one alias tag.
type Decision struct {
	Level      semver.AliasLevel `json:"level"`
	Tag        string            `json:"tag"`
	ShouldMove bool              `json:"should_move"`
	Digest     string            `json:"digest"`
	Reason     string            `json:"reason"`
}

// Decide computes, for every alias level, whether incoming may claim the
// alias given the versions already in the repository. existing may or may not
// contain incoming itself. The result is ordered like semver.Levels and is a
// pure function of its arguments.
//
// The full tag always moves. A pre-release claims nothing else. Major,
// MajorMinor and Latest move when incoming is at least the highest release
// competing for them (same major, same major.minor, any version) or when no
// release competes yet.
func Decide(incoming semver.Version, prefix string, existing []semver.Version, digest string) ([]Decision, error) {
	out := make([]Decision, 0, len(semver.Levels))
	for _, level := range semver.Levels {
		d := Decision{Level: level, Tag: level.Tag(incoming, prefix), Digest: digest}
		switch {
		case level == semver.Full:
			d.ShouldMove = true
			d.Reason = "full version tag"
		case incoming.IsPrerelease():
			d.Reason = "pre-release only claims its full tag"
		default:
			scope, err := semver.Scope(level, incoming)
			if err != nil {
				return nil, err
			}
			d.ShouldMove, d.Reason = claim(incoming, existing, scope)
		}
		out = append(out, d)
	}
	return out, nil
}

func claim(incoming semver.Version, existing []semver.Version, scope *mvc.Constraints) (bool, string) {
	head, ok := semver.Highest(existing, scope)
	switch {
	case !ok:
		return true, "first release in line"
	case incoming.Equal(head):
		return true, "already the highest release"
	case incoming.AtLeast(head):
		return true, fmt.Sprintf("newer than %s", head)
	}
	return false, fmt.Sprintf("%s is newer", head)
}
