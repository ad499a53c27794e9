package semverx

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec_ClassifiesKind(t *testing.T) {
	tests := []struct {
		raw  string
		kind ConstraintKind
	}{
		{"1.2.3", KindExact},
		{"^20.10", KindCaret},
		{"~1.2", KindTilde},
		{">=1.0,<2.0", KindRange},
		{"1.2.*", KindWildcard},
		{"1.2", KindPartial},
		{"20", KindMajor},
		{"latest", KindLatest},
		{"*", KindAny},
		{"", KindAny},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			spec, err := ParseSpec(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, spec.Kind)
		})
	}
}

func TestParseSpec_InvalidReturnsError(t *testing.T) {
	_, err := ParseSpec("not-a-version!!")
	assert.Error(t, err)
}

func TestSpec_Satisfies(t *testing.T) {
	spec, err := ParseSpec("^20.0.0")
	require.NoError(t, err)

	v1 := semver.MustParse("20.10.0")
	v2 := semver.MustParse("21.0.0")

	assert.True(t, spec.Satisfies(v1))
	assert.False(t, spec.Satisfies(v2))
}

func TestSpec_Latest_SatisfiesAnything(t *testing.T) {
	spec, err := ParseSpec("latest")
	require.NoError(t, err)

	assert.True(t, spec.Satisfies(semver.MustParse("0.0.1")))
	assert.True(t, spec.Satisfies(semver.MustParse("99.0.0")))
}

func TestSortDescending(t *testing.T) {
	versions := []*semver.Version{
		semver.MustParse("1.0.0"),
		semver.MustParse("3.0.0"),
		semver.MustParse("2.0.0"),
	}

	SortDescending(versions)

	assert.Equal(t, "3.0.0", versions[0].String())
	assert.Equal(t, "2.0.0", versions[1].String())
	assert.Equal(t, "1.0.0", versions[2].String())
}

func TestFilterNonPrerelease(t *testing.T) {
	versions := []*semver.Version{
		semver.MustParse("1.0.0"),
		semver.MustParse("1.1.0-beta.1"),
		semver.MustParse("2.0.0"),
	}

	filtered := FilterNonPrerelease(versions)

	require.Len(t, filtered, 2)
	assert.Equal(t, "1.0.0", filtered[0].String())
	assert.Equal(t, "2.0.0", filtered[1].String())
}

func TestMaxSatisfying_PrefersNonPrerelease(t *testing.T) {
	spec, err := ParseSpec("^20.0.0")
	require.NoError(t, err)

	versions := []*semver.Version{
		semver.MustParse("20.10.0"),
		semver.MustParse("20.11.0-rc.1"),
	}

	got, ok := MaxSatisfying(spec, versions)
	require.True(t, ok)
	assert.Equal(t, "20.10.0", got.String())
}

func TestMaxSatisfying_NoCandidates(t *testing.T) {
	spec, err := ParseSpec("^30.0.0")
	require.NoError(t, err)

	_, ok := MaxSatisfying(spec, []*semver.Version{semver.MustParse("20.0.0")})
	assert.False(t, ok)
}

func TestIsPrereleaseMarker(t *testing.T) {
	assert.True(t, IsPrereleaseMarker("20.0.0-alpha.1"))
	assert.True(t, IsPrereleaseMarker("1.0.0-rc1"))
	assert.True(t, IsPrereleaseMarker("2024.1.0-canary"))
	assert.False(t, IsPrereleaseMarker("20.0.0"))
}

func TestStripPrefix(t *testing.T) {
	assert.Equal(t, "20.0.0", StripPrefix("v20.0.0", "v"))
	assert.Equal(t, "20.0.0", StripPrefix("20.0.0", "v"))
	assert.Equal(t, "20.0.0", StripPrefix("20.0.0", ""))
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, ">=3.11", Intersect("", ">=3.11"))
	assert.Equal(t, "<=3.9", Intersect("<=3.9", ""))
	assert.Equal(t, ">=3.11,<=3.9", Intersect(">=3.11", "<=3.9"))
}
