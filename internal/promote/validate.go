package promote

import (
	"context"
	"fmt"

	"github.com/aixigo/oci-semver-tagging/internal/logging"
	"github.com/aixigo/oci-semver-tagging/internal/semver"
)

// Finding statuses.
const (
	StatusOK      = "ok"
	StatusMissing = "missing"
	StatusStale   = "stale"
)

// Finding reports whether one alias points where promotion would put it.
type Finding struct {
	Alias    string `json:"alias"`
	Expected string `json:"expected"` // full tag the alias should follow
	Status   string `json:"status"`
}

// Validate checks a repository's aliases. For every major line, every
// major.minor line and the repository as a whole, the alias must exist and
// resolve to the same digest as the full tag of the highest release in that
// line. Pre-releases are ignored. Read failures are fatal.
func Validate(ctx context.Context, reg TagReader, repository, prefix string) ([]Finding, error) {
	tags, err := reg.ListTags(ctx, repository)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistryRead, err)
	}
	present := make(map[string]bool, len(tags))
	for _, t := range tags {
		present[t] = true
	}
	releases := releasesOf(semver.FilterAndParse(tags, prefix))

	digests := make(map[string]string)
	digestOf := func(tag string) (string, error) {
		if d, ok := digests[tag]; ok {
			return d, nil
		}
		d, err := reg.ResolveDigest(ctx, repository+":"+tag)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrRegistryRead, err)
		}
		digests[tag] = d
		return d, nil
	}

	var findings []Finding
	check := func(level semver.AliasLevel, head semver.Version) error {
		f := Finding{Alias: level.Tag(head, prefix), Expected: semver.Full.Tag(head, prefix)}
		if !present[f.Alias] {
			f.Status = StatusMissing
			findings = append(findings, f)
			return nil
		}
		want, err := digestOf(f.Expected)
		if err != nil {
			return err
		}
		got, err := digestOf(f.Alias)
		if err != nil {
			return err
		}
		f.Status = StatusOK
		if got != want {
			f.Status = StatusStale
		}
		findings = append(findings, f)
		return nil
	}

	for _, head := range lineHeads(releases, semver.Major) {
		if err := check(semver.Major, head); err != nil {
			return nil, err
		}
		for _, minorHead := range lineHeads(releases, semver.MajorMinor) {
			if minorHead.Major() != head.Major() {
				continue
			}
			if err := check(semver.MajorMinor, minorHead); err != nil {
				return nil, err
			}
		}
	}
	if top, ok := semver.Highest(releases, nil); ok {
		if err := check(semver.Latest, top); err != nil {
			return nil, err
		}
	}

	logging.Get().Debug().Str("repository", repository).Int("findings", len(findings)).Msg("validation complete")
	return findings, nil
}

// Failed returns the findings that are not ok.
func Failed(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Status != StatusOK {
			out = append(out, f)
		}
	}
	return out
}

func releasesOf(versions []semver.Version) []semver.Version {
	out := make([]semver.Version, 0, len(versions))
	for _, v := range versions {
		if !v.IsPrerelease() {
			out = append(out, v)
		}
	}
	return out
}

// lineHeads returns the highest release of every line at level, ascending.
// versions must be sorted ascending.
func lineHeads(versions []semver.Version, level semver.AliasLevel) []semver.Version {
	var heads []semver.Version
	for i, v := range versions {
		last := i == len(versions)-1
		if last || level.Tag(versions[i+1], "") != level.Tag(v, "") {
			heads = append(heads, v)
		}
	}
	return heads
}
