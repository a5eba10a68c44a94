package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSatisfies(t *testing.T) {
	r := MustParseRange("^1.2.0")

	assert.True(t, Satisfies(MustParse("1.2.0"), r))
	assert.True(t, Satisfies(MustParse("1.9.9"), r))
	assert.False(t, Satisfies(MustParse("2.0.0"), r))
	assert.False(t, Satisfies(Version{}, r), "zero version never satisfies")
}

func TestParseRange(t *testing.T) {
	t.Run("empty range matches anything", func(t *testing.T) {
		r, err := ParseRange("  ")
		require.NoError(t, err)
		assert.Equal(t, "*", r.String())
		assert.True(t, Satisfies(MustParse("0.0.1"), r))
	})

	t.Run("compound range", func(t *testing.T) {
		r := MustParseRange(">=1.0.0 <2.0.0")
		assert.True(t, Satisfies(MustParse("1.4.0"), r))
		assert.False(t, Satisfies(MustParse("2.0.0"), r))
	})

	t.Run("invalid range", func(t *testing.T) {
		_, err := ParseRange(">>nope")
		assert.Error(t, err)
	})
}

func TestExact(t *testing.T) {
	r := Exact(MustParse("1.2.3"))
	assert.True(t, Satisfies(MustParse("1.2.3"), r))
	assert.False(t, Satisfies(MustParse("1.2.4"), r))
}

func TestMaxSatisfying(t *testing.T) {
	ranges := []Range{MustParseRange(">=1.0.0"), MustParseRange("<2.0.0")}
	candidates := []Version{
		MustParse("0.9.0"),
		MustParse("1.0.0"),
		MustParse("1.5.0"),
		MustParse("2.0.0"),
	}

	best, ok := MaxSatisfying(ranges, candidates)
	require.True(t, ok)
	assert.Equal(t, "1.5.0", best.String())

	_, ok = MaxSatisfying([]Range{MustParseRange(">=3.0.0")}, candidates)
	assert.False(t, ok)
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, Compare(MustParse("1.0"), MustParse("1.0.0")))
	assert.Equal(t, -1, Compare(Version{}, MustParse("0.0.1")))
	assert.Equal(t, 1, Compare(MustParse("1.10.0"), MustParse("1.9.0")))
	assert.True(t, MustParse("1.0").Equal(MustParse("1.0.0")))
}
