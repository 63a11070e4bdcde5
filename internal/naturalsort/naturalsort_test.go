package naturalsort

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"chapter2", "chapter10", -1},
		{"chapter10", "chapter2", 1},
		{"ch9", "ch10", -1},
		{"Vol 2", "vol 11", -1},
		{"abc", "abd", -1},
		{"ABC", "abd", -1},
		{"page", "page1", -1},
		{"page1", "page", 1},
		{"1", "01", -1},
		{"01", "1", 1},
		{"007", "7", 1},
		{"a1b2", "a1b10", -1},
		{"x", "x", 0},
		{"", "", 0},
		{"", "a", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestCompareReflexiveAndAntisymmetric(t *testing.T) {
	values := []string{"a", "A", "a1", "a01", "a001", "b", "B2", "b10", "10", "9", "", "z9z", "Z10z"}

	for _, x := range values {
		assert.Equal(t, 0, Compare(x, x), "Compare(%q, %q)", x, x)
		for _, y := range values {
			if x == y {
				continue
			}
			cxy, cyx := Compare(x, y), Compare(y, x)
			assert.NotZero(t, cxy, "distinct strings %q and %q compared equal", x, y)
			assert.Equal(t, -cxy, cyx, "Compare(%q, %q) not antisymmetric", x, y)
		}
	}
}

func TestCompareTransitive(t *testing.T) {
	values := []string{"a", "A", "a1", "a01", "a2", "a10", "b", "B2", "b10", "10", "9", "", "09"}

	for _, x := range values {
		for _, y := range values {
			for _, z := range values {
				if Compare(x, y) < 0 && Compare(y, z) < 0 {
					assert.Negative(t, Compare(x, z), "%q < %q < %q but not %q < %q", x, y, z, x, z)
				}
			}
		}
	}
}

func TestStringsSortsShuffledVolumes(t *testing.T) {
	want := []string{"Vol 1", "Vol 2", "Vol 3", "Vol 9", "Vol 10", "Vol 11", "Vol 20", "Vol 100"}

	got := append([]string(nil), want...)
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(got), func(i, j int) { got[i], got[j] = got[j], got[i] })

	Strings(got)
	require.Equal(t, want, got)
}

func TestSortByKey(t *testing.T) {
	type chapter struct{ title string }
	items := []chapter{{"c10"}, {"c2"}, {"c1"}}

	Sort(items, func(c chapter) string { return c.title })

	assert.Equal(t, []chapter{{"c1"}, {"c2"}, {"c10"}}, items)
}
