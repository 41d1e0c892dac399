package semver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		prefix  string
		want    string
		wantErr error
	}{
		{"plain", "1.2.3", "", "1.2.3", nil},
		{"zero", "0.0.0", "", "0.0.0", nil},
		{"prerelease", "2.0.0-rc.1", "", "2.0.0-rc.1", nil},
		{"build metadata dropped", "0.8.1+zstd.1.5.0", "", "0.8.1", nil},
		{"prefix stripped", "v16.0.0", "v", "16.0.0", nil},
		{"long prefix", "release-1.2.3", "release-", "1.2.3", nil},
		{"missing prefix", "1.2.3", "v", "", ErrPrefixMismatch},
		{"other prefix", "v9.9.9", "release-", "", ErrPrefixMismatch},
		{"leading v without prefix", "v1.2.3", "", "", ErrInvalidVersionFormat},
		{"two parts", "1.2", "", "", ErrInvalidVersionFormat},
		{"one part", "1", "", "", ErrInvalidVersionFormat},
		{"latest", "latest", "", "", ErrInvalidVersionFormat},
		{"leading zero major", "01.2.3", "", "", ErrInvalidVersionFormat},
		{"leading zero patch", "1.2.03", "", "", ErrInvalidVersionFormat},
		{"negative", "-1.2.3", "", "", ErrInvalidVersionFormat},
		{"empty", "", "", "", ErrInvalidVersionFormat},
		{"prefix only", "v", "v", "", ErrInvalidVersionFormat},
		{"numeric prerelease at uint64 max", "1.0.0-18446744073709551615", "", "1.0.0-18446744073709551615", nil},
		{"numeric prerelease overflows", "1.0.0-100000000000000000000", "", "", ErrInvalidVersionFormat},
		{"later numeric prerelease overflows", "1.0.0-rc.18446744073709551616", "", "", ErrInvalidVersionFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.text, tt.prefix)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse(%q, %q) error = %v, want %v", tt.text, tt.prefix, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q, %q) failed: %v", tt.text, tt.prefix, err)
			}
			if got := v.String(); got != tt.want {
				t.Fatalf("Parse(%q, %q) = %q, want %q", tt.text, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestCompareOrdering(t *testing.T) {
	// Ascending, taken from the SemVer 2.0 precedence example plus numeric edge cases.
	ordered := []string{
		"0.9.9",
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-alpha.beta",
		"1.0.0-beta",
		"1.0.0-beta.2",
		"1.0.0-beta.11",
		"1.0.0-rc.1",
		"1.0.0",
		"1.0.1",
		"1.2.0",
		"1.10.0",
		"2.0.0-rc1",
		"2.0.0",
		"10.0.0",
	}
	for i := range ordered {
		for j := range ordered {
			a, b := MustParse(ordered[i]), MustParse(ordered[j])
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			if got := a.Compare(b); got != want {
				t.Fatalf("Compare(%s, %s) = %d, want %d", a, b, got, want)
			}
		}
	}
}

func TestEqualIgnoresBuildMetadata(t *testing.T) {
	a := MustParse("1.2.3+build.1")
	b := MustParse("1.2.3+build.2")
	if !a.Equal(b) {
		t.Fatalf("expected %s and %s to be equal", a.Original(), b.Original())
	}
	if a.Metadata() != "build.1" {
		t.Fatalf("expected metadata to be kept, got %q", a.Metadata())
	}
}

func genVersion() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		major := rapid.IntRange(0, 4).Draw(t, "major")
		minor := rapid.IntRange(0, 4).Draw(t, "minor")
		patch := rapid.IntRange(0, 4).Draw(t, "patch")
		s := fmt.Sprintf("%d.%d.%d", major, minor, patch)
		if rapid.Bool().Draw(t, "pre") {
			ids := rapid.SliceOfN(rapid.OneOf(
				rapid.StringMatching(`[1-9][0-9]?`),
				rapid.StringMatching(`0`),
				rapid.StringMatching(`(alpha|beta|rc)[0-9]?`),
			), 1, 3).Draw(t, "ids")
			for i, id := range ids {
				if i == 0 {
					s += "-" + id
				} else {
					s += "." + id
				}
			}
		}
		if rapid.Bool().Draw(t, "build") {
			s += "+" + rapid.StringMatching(`[a-z0-9]{1,6}`).Draw(t, "meta")
		}
		return s
	})
}

func TestProperty_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := genVersion().Draw(rt, "version")
		v, err := Parse(text, "")
		require.NoError(rt, err, "generated version must parse")

		again, err := Parse(v.String(), "")
		require.NoError(rt, err, "rendered version must parse")
		require.True(rt, v.Equal(again), "round trip of %q produced %q", text, again.String())
		require.Empty(rt, again.Metadata(), "rendering drops build metadata")
	})
}

func TestProperty_PrefixRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := genVersion().Draw(rt, "version")
		prefix := rapid.StringMatching(`[a-z]{1,8}-?`).Draw(rt, "prefix")
		v, err := Parse(prefix+text, prefix)
		require.NoError(rt, err)
		require.True(rt, v.Equal(MustParse(text)))
	})
}

func TestProperty_TotalOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := MustParse(genVersion().Draw(rt, "a"))
		b := MustParse(genVersion().Draw(rt, "b"))
		c := MustParse(genVersion().Draw(rt, "c"))

		// antisymmetry
		require.Equal(rt, a.Compare(b), -b.Compare(a), "Compare(%s,%s) not antisymmetric", a, b)
		// reflexivity
		require.Equal(rt, 0, a.Compare(a))
		// transitivity
		if a.Compare(b) <= 0 && b.Compare(c) <= 0 {
			require.LessOrEqual(rt, a.Compare(c), 0, "%s <= %s <= %s but not %s <= %s", a, b, c, a, c)
		}
		// equality matches rendered identity
		require.Equal(rt, a.String() == b.String(), a.Equal(b))
	})
}

func TestProperty_NumericFieldsDominate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := MustParse(genVersion().Draw(rt, "a"))
		b := MustParse(genVersion().Draw(rt, "b"))

		triple := func(v Version) [3]uint64 { return [3]uint64{v.Major(), v.Minor(), v.Patch()} }
		ta, tb := triple(a), triple(b)
		for i := 0; i < 3; i++ {
			if ta[i] != tb[i] {
				if ta[i] < tb[i] {
					require.Equal(rt, -1, a.Compare(b))
				} else {
					require.Equal(rt, 1, a.Compare(b))
				}
				return
			}
		}
		// same triple: a pre-release sorts below the release
		if a.IsPrerelease() && !b.IsPrerelease() {
			require.Equal(rt, -1, a.Compare(b))
		}
		if !a.IsPrerelease() && !b.IsPrerelease() {
			require.Equal(rt, 0, a.Compare(b))
		}
	})
}
