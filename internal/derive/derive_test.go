package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tvnews/newsquery/internal/index"
	"github.com/tvnews/newsquery/internal/interval"
)

// memIListMap is an in-memory index.IListMap used to exercise derivation
// logic without mmapped files.
type memIListMap struct {
	byID map[uint32][]index.PayloadInterval
}

func (m memIListMap) GetIntervalsWithPayload(id uint32, _ bool) []index.PayloadInterval {
	return m.byID[id]
}
func (m memIListMap) Intersect(id uint32, query interval.Set, mask, value byte, deoverlap bool) interval.Set {
	var filtered interval.List
	for _, pi := range m.byID[id] {
		if pi.Payload&mask != value {
			continue
		}
		filtered = append(filtered, interval.Interval{Start: pi.Start, End: pi.End})
	}
	base := interval.Set(filtered)
	if deoverlap {
		base = interval.Deoverlap(filtered, interval.DefaultRuntimeFuzzMS)
	}
	return interval.Intersect(base, query)
}
func (m memIListMap) GetIDs() []uint32 {
	ids := make([]uint32, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	return ids
}
func (m memIListMap) HasID(id uint32) bool { _, ok := m.byID[id]; return ok }

var _ index.IListMap = memIListMap{}

func TestAccumulateFilteredCoalescesCloseDetections(t *testing.T) {
	ilist := memIListMap{byID: map[uint32][]index.PayloadInterval{
		1: {
			{Start: 0, End: 100, Payload: 0b001},
			{Start: 150, End: 250, Payload: 0b001}, // gap 50 < 250ms fuzz
			{Start: 10000, End: 10100, Payload: 0b001},
		},
	}}
	got := accumulateFiltered(ilist, 0b011, 0b001, 250)
	assert.Equal(t, interval.Set{{Start: 0, End: 250}, {Start: 10000, End: 10100}}, got[1])
}

func TestAccumulateFilteredDropsNonMatchingPayload(t *testing.T) {
	ilist := memIListMap{byID: map[uint32][]index.PayloadInterval{
		1: {{Start: 0, End: 100, Payload: 0b000}}, // female
	}}
	got := accumulateFiltered(ilist, 0b011, 0b001, 250) // male only
	assert.Nil(t, got[1])
}

func TestNumFacesForVideoNoFacesWholeVideo(t *testing.T) {
	got := numFacesForVideo(nil, 5000)
	assert.Equal(t, []index.PayloadInterval{{Start: 0, End: 5000, Payload: 0}}, got)
}

func TestNumFacesForVideoLeadingGapBelowThresholdOmitted(t *testing.T) {
	raw := []index.PayloadInterval{{Start: 500, End: 1000, Payload: 1}}
	got := numFacesForVideo(raw, 5000)
	// leading gap of 500ms < minNoFacesMS so no zero-filler segment
	assert.Equal(t, []index.PayloadInterval{
		{Start: 500, End: 1000, Payload: 1},
		{Start: 1000, End: 5000, Payload: 0},
	}, got)
}

func TestNumFacesForVideoCountsConcurrentDetections(t *testing.T) {
	raw := []index.PayloadInterval{
		{Start: 0, End: 1000, Payload: 1},
		{Start: 0, End: 1000, Payload: 0}, // second simultaneous face, different payload bits
		{Start: 3000, End: 4000, Payload: 1},
	}
	got := numFacesForVideo(raw, 5000)
	assert.Equal(t, []index.PayloadInterval{
		{Start: 0, End: 1000, Payload: 2},
		{Start: 1000, End: 3000, Payload: 0},
		{Start: 3000, End: 4000, Payload: 1},
		// trailing gap of exactly minNoFacesMS gets no zero-filler
	}, got)
}

func TestDeoverlapByPayloadCoalescesSamePayloadOnly(t *testing.T) {
	in := []index.PayloadInterval{
		{Start: 0, End: 100, Payload: 1},
		{Start: 150, End: 200, Payload: 1},
		{Start: 210, End: 300, Payload: 2},
	}
	got := deoverlapByPayload(in, 100)
	assert.Equal(t, []index.PayloadInterval{
		{Start: 0, End: 200, Payload: 1},
		{Start: 210, End: 300, Payload: 2},
	}, got)
}

func TestMergeTagIntervalsUnionsAcrossPeople(t *testing.T) {
	personA := memIListMap{byID: map[uint32][]index.PayloadInterval{
		1: {{Start: 0, End: 100, Payload: 0b001}},
	}}
	personB := memIListMap{byID: map[uint32][]index.PayloadInterval{
		1: {{Start: 120, End: 200, Payload: 0b001}}, // gap 20 < tagFuzzMS, coalesces
		2: {{Start: 0, End: 50, Payload: 0b100}},
	}}
	got := mergeTagIntervals([]index.IListMap{personA, personB})
	assert.Equal(t, []index.PayloadInterval{{Start: 0, End: 200, Payload: 0b001}}, got[1])
	assert.Equal(t, []index.PayloadInterval{{Start: 0, End: 50, Payload: 0b100}}, got[2])
}
