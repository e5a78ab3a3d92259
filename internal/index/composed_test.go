package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvnews/newsquery/internal/interval"
)

func TestIListToISetFiltersAndDeoverlaps(t *testing.T) {
	path := buildListMapFile(t, map[uint32][]PayloadInterval{
		1: {
			{Start: 0, End: 100, Payload: 0x4},
			{Start: 150, End: 250, Payload: 0x4},
			{Start: 500, End: 600, Payload: 0x0},
		},
	})
	r, err := OpenListMap(path, 1)
	require.NoError(t, err)
	defer r.Close()

	view := NewIListToISet(r, 0x4, 0x4, 100, 0)
	got := view.GetIntervals(1, false)
	assert.Equal(t, interval.Set{{Start: 0, End: 250}}, got)
}

func TestIListToISetPad(t *testing.T) {
	path := buildListMapFile(t, map[uint32][]PayloadInterval{
		1: {{Start: 100, End: 200, Payload: 0x0}},
	})
	r, err := OpenListMap(path, 1)
	require.NoError(t, err)
	defer r.Close()

	view := NewIListToISet(r, 0x0, 0x0, 0, 50)
	got := view.GetIntervals(1, false)
	assert.Equal(t, interval.Set{{Start: 50, End: 250}}, got)
}

func TestUnionIListsToISet(t *testing.T) {
	pathA := buildListMapFile(t, map[uint32][]PayloadInterval{
		1: {{Start: 0, End: 100, Payload: 0x0}},
	})
	pathB := buildListMapFile(t, map[uint32][]PayloadInterval{
		1: {{Start: 50, End: 150, Payload: 0x0}},
	})
	a, err := OpenListMap(pathA, 1)
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenListMap(pathB, 1)
	require.NoError(t, err)
	defer b.Close()

	view := NewUnionIListsToISet([]IListMap{a, b}, 0x0, 0x0, 100, 0)
	got := view.GetIntervals(1, false)
	assert.Equal(t, interval.Set{{Start: 0, End: 150}}, got)
	assert.ElementsMatch(t, []uint32{1}, view.GetIDs())
}

func TestISetIntersection(t *testing.T) {
	pathA := buildSetMapFile(t, map[uint32]interval.Set{
		1: {{Start: 0, End: 100}},
	})
	pathB := buildSetMapFile(t, map[uint32]interval.Set{
		1: {{Start: 50, End: 150}},
	})
	a, err := OpenSetMap(pathA)
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenSetMap(pathB)
	require.NoError(t, err)
	defer b.Close()

	view := NewISetIntersection([]ISetMap{a, b})
	got := view.GetIntervals(1, false)
	assert.Equal(t, interval.Set{{Start: 50, End: 100}}, got)
	assert.True(t, view.HasID(1))
}

func TestISetSubset(t *testing.T) {
	path := buildSetMapFile(t, map[uint32]interval.Set{
		1: {{Start: 0, End: 100}},
		2: {{Start: 0, End: 100}},
	})
	r, err := OpenSetMap(path)
	require.NoError(t, err)
	defer r.Close()

	view := NewISetSubset(r, []uint32{1})
	assert.True(t, view.HasID(1))
	assert.False(t, view.HasID(2))
	assert.Equal(t, []uint32{1}, view.GetIDs())
	assert.Nil(t, view.GetIntervals(2, false))
}
