package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/searchctx"
)

type fakeIndex struct {
	cost     float64
	costErr  error
	postings map[string][]PostingSec
	gotRestrict map[string]struct{}
}

func (f *fakeIndex) EstimateCost(phrase string) (float64, error) { return f.cost, f.costErr }

func (f *fakeIndex) Search(phrase string, restrictTo map[string]struct{}) (map[string][]PostingSec, error) {
	f.gotRestrict = restrictTo
	return f.postings, nil
}

func dataWithVideo(id uint32, name string) *datacontext.DataContext {
	v := &datacontext.Video{ID: id, Name: name, NumFrames: 3000, FPS: 30}
	return &datacontext.DataContext{
		VideosByID:      map[uint32]*datacontext.Video{id: v},
		VideosByName:    map[string]*datacontext.Video{name: v},
		OrderedVideoIDs: []uint32{id},
	}
}

func TestSearchAppliesCostGate(t *testing.T) {
	data := dataWithVideo(1, "v1")
	idx := &fakeIndex{cost: 0.1}
	_, err := Search(idx, data, "hello", searchctx.Empty())
	require.Error(t, err)
}

func TestSearchSkipsCostGateWhenVideosRestricted(t *testing.T) {
	data := dataWithVideo(1, "v1")
	idx := &fakeIndex{cost: 0.9, postings: map[string][]PostingSec{"v1": {{Start: 1, End: 2}}}}
	ctx := searchctx.Context{Videos: searchctx.NewU32Set(1)}
	results, err := Search(idx, data, "hello", ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotNil(t, idx.gotRestrict)
}

func TestSearchConvertsToMilliseconds(t *testing.T) {
	data := dataWithVideo(1, "v1")
	idx := &fakeIndex{cost: 0.0001, postings: map[string][]PostingSec{"v1": {{Start: 1.5, End: 2.5}}}}
	results, err := Search(idx, data, "hello", searchctx.Empty())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1500), results[0].Intervals[0].Start)
	assert.Equal(t, int64(2500), results[0].Intervals[0].End)
}

func TestSearchDilatesWithTextWindow(t *testing.T) {
	data := dataWithVideo(1, "v1")
	idx := &fakeIndex{cost: 0.0001, postings: map[string][]PostingSec{"v1": {{Start: 10, End: 10}}}}
	ctx := searchctx.Context{TextWindow: 4}
	results, err := Search(idx, data, "hello", ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(8000), results[0].Intervals[0].Start)
	assert.Equal(t, int64(12000), results[0].Intervals[0].End)
}
