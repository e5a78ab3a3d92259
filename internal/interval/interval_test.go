package interval

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestIntersect(t *testing.T) {
	a := Set{{0, 10}, {20, 30}}
	b := Set{{5, 25}}
	require.Equal(t, Set{{5, 10}, {20, 25}}, Intersect(a, b))
}

func TestIntersectDisjoint(t *testing.T) {
	a := Set{{0, 5}}
	b := Set{{5, 10}}
	require.Empty(t, Intersect(a, b))
}

func TestSubtract(t *testing.T) {
	a := Set{{0, 100}}
	b := Set{{10, 20}, {50, 60}}
	require.Equal(t, Set{{0, 10}, {20, 50}, {60, 100}}, Subtract(a, b))
}

func TestSubtractNoOverlap(t *testing.T) {
	a := Set{{0, 10}, {50, 60}}
	b := Set{{20, 30}}
	require.Equal(t, Set{{0, 10}, {50, 60}}, Subtract(a, b))
}

func TestSubtractFullyCovered(t *testing.T) {
	a := Set{{10, 20}}
	b := Set{{0, 100}}
	require.Empty(t, Subtract(a, b))
}

func TestDeoverlapCoalescesCloseGaps(t *testing.T) {
	in := List{{0, 10}, {60, 100}, {10200, 10300}}
	got := Deoverlap(in, 100)
	require.Equal(t, Set{{0, 100}, {10200, 10300}}, got)
}

func TestDeoverlapKeepsFarApart(t *testing.T) {
	in := List{{0, 10}, {1000, 1010}}
	got := Deoverlap(in, 100)
	require.Equal(t, Set{{0, 10}, {1000, 1010}}, got)
}

func TestMergeClose(t *testing.T) {
	in := []SecInterval{{0, 1}, {1.1, 2}, {5, 6}}
	got := MergeClose(in, 0.25)
	require.Equal(t, []SecInterval{{0, 2}, {5, 6}}, got)
}

func TestSumSet(t *testing.T) {
	s := Set{{0, 1000}, {2000, 2500}}
	require.Equal(t, int64(1500), s.Sum())
}

// TestDeoverlapTable exercises several fuzz boundaries at once; cmp.Diff
// gives a readable element-by-element diff when a case regresses,
// rather than testify's whole-value dump.
func TestDeoverlapTable(t *testing.T) {
	cases := []struct {
		name string
		in   List
		fuzz int64
		want Set
	}{
		{"adjacent coalesces", List{{0, 10}, {10, 20}}, 0, Set{{0, 20}}},
		{"gap under fuzz coalesces", List{{0, 10}, {15, 20}}, 10, Set{{0, 20}}},
		{"gap at fuzz stays split", List{{0, 10}, {20, 30}}, 10, Set{{0, 10}, {20, 30}}},
		{"nested interval absorbed", List{{0, 100}, {10, 20}}, 0, Set{{0, 100}}},
		{"three-way chain", List{{0, 10}, {10, 20}, {20, 30}}, 0, Set{{0, 30}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Deoverlap(c.in, c.fuzz)
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("Deoverlap(%v, %d) mismatch (-want +got):\n%s", c.in, c.fuzz, diff)
			}
		})
	}
}
