package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/index"
	"github.com/tvnews/newsquery/internal/interval"
	"github.com/tvnews/newsquery/internal/searchctx"
)

// memSetMap is an in-memory ISetMap used to exercise the evaluator
// without touching real mmapped files.
type memSetMap struct {
	byID map[uint32]interval.Set
}

func newMemSetMap(data map[uint32]interval.Set) *memSetMap { return &memSetMap{byID: data} }

func (m *memSetMap) GetIntervals(id uint32, _ bool) interval.Set { return m.byID[id] }
func (m *memSetMap) Intersect(id uint32, q interval.Set, _ bool) interval.Set {
	return interval.Intersect(m.byID[id], q)
}
func (m *memSetMap) Minus(id uint32, q interval.Set, _ bool) interval.Set {
	return interval.Subtract(q, m.byID[id])
}
func (m *memSetMap) IsContained(id uint32, t int64, _ bool) bool {
	for _, iv := range m.byID[id] {
		if t >= iv.Start && t < iv.End {
			return true
		}
	}
	return false
}
func (m *memSetMap) IntersectSum(id uint32, q interval.Set, d bool) int64 {
	return m.Intersect(id, q, d).Sum()
}
func (m *memSetMap) GetIDs() []uint32 {
	ids := make([]uint32, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	return ids
}
func (m *memSetMap) HasID(id uint32) bool { _, ok := m.byID[id]; return ok }

var _ index.ISetMap = (*memSetMap)(nil)

func testVideo(id uint32, name, channel, show string, hour int) *datacontext.Video {
	return &datacontext.Video{
		ID: id, Name: name, Channel: channel, Show: show, Hour: hour,
		NumFrames: 3600 * 30, FPS: 30,
	}
}

func testData() *datacontext.DataContext {
	v1 := testVideo(1, "v1", "CNN", "Newsroom", 5)
	v2 := testVideo(2, "v2", "FOX", "Report", 10)
	v3 := testVideo(3, "v3", "CNN", "Report", 15)

	return &datacontext.DataContext{
		VideosByID: map[uint32]*datacontext.Video{1: v1, 2: v2, 3: v3},
		VideosByName: map[string]*datacontext.Video{
			"v1": v1, "v2": v2, "v3": v3,
		},
		OrderedVideoIDs: []uint32{1, 2, 3},
		PersonsByName: map[string]*datacontext.PersonIntervals{
			"jane doe": {
				Name: "Jane Doe",
				ISetMap: newMemSetMap(map[uint32]interval.Set{
					1: {{Start: 0, End: 1000}},
				}),
			},
		},
		PersonTags: datacontext.NewAllPersonTags(nil),
	}
}

func TestEvalAllReturnsVideoSet(t *testing.T) {
	e := &Evaluator{Data: testData()}
	r, err := e.Eval(Node{Kind: "all"}, searchctx.Empty())
	require.NoError(t, err)
	vs, ok := r.(VideoSet)
	require.True(t, ok)
	assert.True(t, vs.Ctx.Unconstrained())
}

func TestEvalChannelConstrains(t *testing.T) {
	e := &Evaluator{Data: testData()}
	r, err := e.Eval(Node{Kind: "channel", Value: "CNN"}, searchctx.Empty())
	require.NoError(t, err)
	got := ToLazyISetResult(e.Data, r)
	assert.Len(t, got.Items, 2) // v1, v3
}

func TestEvalChannelContradictsHoistedContext(t *testing.T) {
	e := &Evaluator{Data: testData()}
	fox := "FOX"
	r, err := e.Eval(Node{Kind: "channel", Value: "CNN"}, searchctx.Context{Channel: &fox})
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestEvalFaceNameUnknownPerson(t *testing.T) {
	e := &Evaluator{Data: testData()}
	_, err := e.Eval(Node{Kind: "face_name", Value: "nobody"}, searchctx.Empty())
	assert.Error(t, err)
}

func TestEvalFaceNameKnownPerson(t *testing.T) {
	e := &Evaluator{Data: testData()}
	r, err := e.Eval(Node{Kind: "face_name", Value: "jane doe"}, searchctx.Empty())
	require.NoError(t, err)
	ri, ok := r.(RustISet)
	require.True(t, ok)
	assert.True(t, ri.Data.HasID(1))
}

func TestSearchAndHoistsChannelAndEvaluatesFaceName(t *testing.T) {
	e := &Evaluator{Data: testData()}
	node := Node{Kind: "and", Children: []Node{
		{Kind: "channel", Value: "CNN"},
		{Kind: "face_name", Value: "jane doe"},
	}}
	r, err := e.Eval(node, searchctx.Empty())
	require.NoError(t, err)
	got := ToLazyISetResult(e.Data, r)
	require.Len(t, got.Items, 1)
	assert.Equal(t, uint32(1), got.Items[0].Video.ID)
	assert.Equal(t, interval.Set{{Start: 0, End: 1000}}, got.Items[0].Intervals)
}

func TestSearchOrUnconstrainedChildShortCircuits(t *testing.T) {
	e := &Evaluator{Data: testData()}
	node := Node{Kind: "or", Children: []Node{
		{Kind: "all"},
		{Kind: "channel", Value: "CNN"},
	}}
	r, err := e.Eval(node, searchctx.Empty())
	require.NoError(t, err)
	vs, ok := r.(VideoSet)
	require.True(t, ok)
	assert.True(t, vs.Ctx.Unconstrained())
}

func TestSearchOrUnionsChannels(t *testing.T) {
	e := &Evaluator{Data: testData()}
	node := Node{Kind: "or", Children: []Node{
		{Kind: "channel", Value: "CNN"},
		{Kind: "channel", Value: "FOX"},
	}}
	r, err := e.Eval(node, searchctx.Empty())
	require.NoError(t, err)
	got := ToLazyISetResult(e.Data, r)
	assert.Len(t, got.Items, 3)
}

func TestFaceTagRejectsSimultaneousMaleFemale(t *testing.T) {
	data := testData()
	_, err := resolveFaceTag(data, "male,female")
	assert.Error(t, err)
}

func TestFaceTagAllResolves(t *testing.T) {
	data := testData()
	data.Faces.AllISetMap = newMemSetMap(map[uint32]interval.Set{1: {{Start: 0, End: 10}}})
	m, err := resolveFaceTag(data, "all")
	require.NoError(t, err)
	assert.True(t, m.HasID(1))
}
