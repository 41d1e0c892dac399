package semver

import (
	"fmt"
	"math"
	"testing"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		version string
		prefix  string
		want    map[AliasLevel]string
	}{
		{"1.2.3", "", map[AliasLevel]string{Major: "1", MajorMinor: "1.2", Full: "1.2.3", Latest: "latest"}},
		{"1.2.3", "release-", map[AliasLevel]string{Major: "release-1", MajorMinor: "release-1.2", Full: "release-1.2.3", Latest: "release-latest"}},
		{"2.0.0-rc1", "v", map[AliasLevel]string{Major: "v2", MajorMinor: "v2.0", Full: "v2.0.0-rc1", Latest: "vlatest"}},
		{"0.8.1+zstd.1.5.0", "", map[AliasLevel]string{Major: "0", MajorMinor: "0.8", Full: "0.8.1", Latest: "latest"}},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+tt.version, func(t *testing.T) {
			got := Expand(MustParse(tt.version), tt.prefix)
			if len(got) != len(Levels) {
				t.Fatalf("expected %d aliases, got %d", len(Levels), len(got))
			}
			for l, want := range tt.want {
				if got[l] != want {
					t.Fatalf("level %s: expected %q, got %q", l, want, got[l])
				}
			}
		})
	}
}

func TestScope(t *testing.T) {
	v := MustParse("1.4.2")

	major, err := Scope(Major, v)
	if err != nil {
		t.Fatalf("Scope(Major): %v", err)
	}
	for s, want := range map[string]bool{"1.0.0": true, "1.99.0": true, "2.0.0": false, "0.9.0": false} {
		if got := major.Check(MustParse(s).Semver()); got != want {
			t.Fatalf("major scope of %s: Check(%s) = %v, want %v", v, s, got, want)
		}
	}

	minor, err := Scope(MajorMinor, v)
	if err != nil {
		t.Fatalf("Scope(MajorMinor): %v", err)
	}
	for s, want := range map[string]bool{"1.4.0": true, "1.4.99": true, "1.5.0": false, "1.3.9": false} {
		if got := minor.Check(MustParse(s).Semver()); got != want {
			t.Fatalf("minor scope of %s: Check(%s) = %v, want %v", v, s, got, want)
		}
	}

	for _, l := range []AliasLevel{Full, Latest} {
		c, err := Scope(l, v)
		if err != nil || c != nil {
			t.Fatalf("expected nil scope for %s, got %v (err=%v)", l, c, err)
		}
	}
}

func TestScopeAtNumericLimit(t *testing.T) {
	maxed := fmt.Sprint(uint64(math.MaxUint64))
	tests := []struct {
		name    string
		level   AliasLevel
		version string
		member  string
		outside string
	}{
		{"major line at max", Major, maxed + ".0.0", maxed + ".5.0", "1.0.0"},
		{"minor line at max", MajorMinor, "3." + maxed + ".0", "3." + maxed + ".7", "4.0.0"},
		{"both at max", MajorMinor, maxed + "." + maxed + ".0", maxed + "." + maxed + ".2", maxed + ".0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Scope(tt.level, MustParse(tt.version))
			if err != nil {
				t.Fatalf("Scope(%s, %s): %v", tt.level, tt.version, err)
			}
			versions := []Version{MustParse(tt.outside), MustParse(tt.member)}
			got, ok := Highest(versions, c)
			if !ok || got.String() != tt.member {
				t.Fatalf("Highest in scope of %s = %s (found=%v), want %s", tt.version, got, ok, tt.member)
			}
			if c.Check(MustParse(tt.outside).Semver()) {
				t.Fatalf("scope of %s should not contain %s", tt.version, tt.outside)
			}
		})
	}
}

func TestAliasLevelString(t *testing.T) {
	if Major.String() != "major" || Latest.String() != "latest" {
		t.Fatalf("unexpected names: %s %s", Major, Latest)
	}
	b, _ := MajorMinor.MarshalText()
	if string(b) != "major_minor" {
		t.Fatalf("unexpected text: %s", b)
	}
}

func TestAliasLevelUnmarshalText(t *testing.T) {
	var l AliasLevel
	if err := l.UnmarshalText([]byte("major_minor")); err != nil || l != MajorMinor {
		t.Fatalf("got %v, err=%v", l, err)
	}
	if err := l.UnmarshalText([]byte("patch")); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
