package index

import (
	"sort"

	"github.com/tvnews/newsquery/internal/interval"
)

// The four composed views below all implement ISetMap by delegating to an
// underlying IListMap or ISetMap view. Construction is O(1); all work
// happens lazily on per-video access, so cloning one of these is cheap —
// it is a handle, never a copy of the underlying mmap.

// IListToISet projects a payload-filtered ilist to a deoverlapped iset on
// demand. pad expands each endpoint outward by padMS before deoverlap
// (used by face-tag resolution; num-faces views use pad=0).
type IListToISet struct {
	list  IListMap
	mask  byte
	value byte
	fuzz  int64
	pad   int64
}

// NewIListToISet builds a lazy projection of list, keeping only entries
// whose payload satisfies payload&mask == value.
func NewIListToISet(list IListMap, mask, value byte, fuzzMS, padMS int64) *IListToISet {
	return &IListToISet{list: list, mask: mask, value: value, fuzz: fuzzMS, pad: padMS}
}

func (v *IListToISet) filtered(videoID uint32) interval.List {
	raw := v.list.GetIntervalsWithPayload(videoID, false)
	out := make(interval.List, 0, len(raw))
	for _, pi := range raw {
		if pi.Payload&v.mask != v.value {
			continue
		}
		start, end := pi.Start, pi.End
		if v.pad != 0 {
			start -= v.pad
			if start < 0 {
				start = 0
			}
			end += v.pad
		}
		out = append(out, interval.Interval{Start: start, End: end})
	}
	return out
}

func (v *IListToISet) GetIntervals(videoID uint32, deoverlap bool) interval.Set {
	s := interval.Deoverlap(v.filtered(videoID), v.fuzz)
	if !deoverlap {
		return s
	}
	return interval.Deoverlap(interval.List(s), interval.DefaultRuntimeFuzzMS)
}

func (v *IListToISet) Intersect(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	out := interval.Intersect(v.GetIntervals(videoID, true), query)
	if deoverlap {
		return interval.Deoverlap(interval.List(out), interval.DefaultRuntimeFuzzMS)
	}
	return out
}

func (v *IListToISet) Minus(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	out := interval.Subtract(query, v.GetIntervals(videoID, true))
	if deoverlap {
		return interval.Deoverlap(interval.List(out), interval.DefaultRuntimeFuzzMS)
	}
	return out
}

func (v *IListToISet) IsContained(videoID uint32, t int64, deoverlap bool) bool {
	for _, iv := range v.GetIntervals(videoID, deoverlap) {
		if t >= iv.Start && t < iv.End {
			return true
		}
	}
	return false
}

func (v *IListToISet) IntersectSum(videoID uint32, query interval.Set, deoverlap bool) int64 {
	return v.Intersect(videoID, query, deoverlap).Sum()
}

func (v *IListToISet) GetIDs() []uint32 { return v.list.GetIDs() }

func (v *IListToISet) HasID(videoID uint32) bool { return v.list.HasID(videoID) }

// UnionIListsToISet projects and merges multiple ilists (e.g. every
// person carrying a non-global face tag) into a single deoverlapped iset.
type UnionIListsToISet struct {
	lists []IListMap
	mask  byte
	value byte
	fuzz  int64
	pad   int64
}

// NewUnionIListsToISet builds a lazy union-projection over lists.
func NewUnionIListsToISet(lists []IListMap, mask, value byte, fuzzMS, padMS int64) *UnionIListsToISet {
	return &UnionIListsToISet{lists: lists, mask: mask, value: value, fuzz: fuzzMS, pad: padMS}
}

func (v *UnionIListsToISet) filtered(videoID uint32) interval.List {
	var out interval.List
	for _, l := range v.lists {
		for _, pi := range l.GetIntervalsWithPayload(videoID, false) {
			if pi.Payload&v.mask != v.value {
				continue
			}
			start, end := pi.Start, pi.End
			if v.pad != 0 {
				start -= v.pad
				if start < 0 {
					start = 0
				}
				end += v.pad
			}
			out = append(out, interval.Interval{Start: start, End: end})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func (v *UnionIListsToISet) GetIntervals(videoID uint32, deoverlap bool) interval.Set {
	s := interval.Deoverlap(v.filtered(videoID), v.fuzz)
	if !deoverlap {
		return s
	}
	return interval.Deoverlap(interval.List(s), interval.DefaultRuntimeFuzzMS)
}

func (v *UnionIListsToISet) Intersect(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	out := interval.Intersect(v.GetIntervals(videoID, true), query)
	if deoverlap {
		return interval.Deoverlap(interval.List(out), interval.DefaultRuntimeFuzzMS)
	}
	return out
}

func (v *UnionIListsToISet) Minus(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	out := interval.Subtract(query, v.GetIntervals(videoID, true))
	if deoverlap {
		return interval.Deoverlap(interval.List(out), interval.DefaultRuntimeFuzzMS)
	}
	return out
}

func (v *UnionIListsToISet) IsContained(videoID uint32, t int64, deoverlap bool) bool {
	for _, iv := range v.GetIntervals(videoID, deoverlap) {
		if t >= iv.Start && t < iv.End {
			return true
		}
	}
	return false
}

func (v *UnionIListsToISet) IntersectSum(videoID uint32, query interval.Set, deoverlap bool) int64 {
	return v.Intersect(videoID, query, deoverlap).Sum()
}

func (v *UnionIListsToISet) GetIDs() []uint32 {
	seen := map[uint32]struct{}{}
	for _, l := range v.lists {
		for _, id := range l.GetIDs() {
			seen[id] = struct{}{}
		}
	}
	ids := make([]uint32, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (v *UnionIListsToISet) HasID(videoID uint32) bool {
	for _, l := range v.lists {
		if l.HasID(videoID) {
			return true
		}
	}
	return false
}

// ISetIntersection pairwise-intersects N ISetMap views on demand.
type ISetIntersection struct {
	sets []ISetMap
}

// NewISetIntersection builds a lazy intersection view over sets.
func NewISetIntersection(sets []ISetMap) *ISetIntersection {
	return &ISetIntersection{sets: sets}
}

func (v *ISetIntersection) GetIntervals(videoID uint32, deoverlap bool) interval.Set {
	if len(v.sets) == 0 {
		return nil
	}
	acc := v.sets[0].GetIntervals(videoID, true)
	for _, s := range v.sets[1:] {
		acc = interval.Intersect(acc, s.GetIntervals(videoID, true))
		if len(acc) == 0 {
			return nil
		}
	}
	return acc
}

func (v *ISetIntersection) Intersect(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	return interval.Intersect(v.GetIntervals(videoID, true), query)
}

func (v *ISetIntersection) Minus(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	return interval.Subtract(query, v.GetIntervals(videoID, true))
}

func (v *ISetIntersection) IsContained(videoID uint32, t int64, deoverlap bool) bool {
	for _, iv := range v.GetIntervals(videoID, deoverlap) {
		if t >= iv.Start && t < iv.End {
			return true
		}
	}
	return false
}

func (v *ISetIntersection) IntersectSum(videoID uint32, query interval.Set, deoverlap bool) int64 {
	return v.Intersect(videoID, query, deoverlap).Sum()
}

func (v *ISetIntersection) GetIDs() []uint32 {
	if len(v.sets) == 0 {
		return nil
	}
	present := make(map[uint32]int)
	for _, s := range v.sets {
		for _, id := range s.GetIDs() {
			present[id]++
		}
	}
	ids := make([]uint32, 0)
	for id, count := range present {
		if count == len(v.sets) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (v *ISetIntersection) HasID(videoID uint32) bool {
	for _, s := range v.sets {
		if !s.HasID(videoID) {
			return false
		}
	}
	return len(v.sets) > 0
}

// ISetSubset restricts inner to a fixed allowed set of video ids.
type ISetSubset struct {
	inner   ISetMap
	allowed map[uint32]struct{}
}

// NewISetSubset builds a view of inner restricted to allowedIDs.
func NewISetSubset(inner ISetMap, allowedIDs []uint32) *ISetSubset {
	m := make(map[uint32]struct{}, len(allowedIDs))
	for _, id := range allowedIDs {
		m[id] = struct{}{}
	}
	return &ISetSubset{inner: inner, allowed: m}
}

func (v *ISetSubset) ok(videoID uint32) bool {
	_, found := v.allowed[videoID]
	return found
}

func (v *ISetSubset) GetIntervals(videoID uint32, deoverlap bool) interval.Set {
	if !v.ok(videoID) {
		return nil
	}
	return v.inner.GetIntervals(videoID, deoverlap)
}

func (v *ISetSubset) Intersect(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	if !v.ok(videoID) {
		return nil
	}
	return v.inner.Intersect(videoID, query, deoverlap)
}

func (v *ISetSubset) Minus(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	if !v.ok(videoID) {
		return nil
	}
	return v.inner.Minus(videoID, query, deoverlap)
}

func (v *ISetSubset) IsContained(videoID uint32, t int64, deoverlap bool) bool {
	if !v.ok(videoID) {
		return false
	}
	return v.inner.IsContained(videoID, t, deoverlap)
}

func (v *ISetSubset) IntersectSum(videoID uint32, query interval.Set, deoverlap bool) int64 {
	if !v.ok(videoID) {
		return 0
	}
	return v.inner.IntersectSum(videoID, query, deoverlap)
}

func (v *ISetSubset) GetIDs() []uint32 {
	out := make([]uint32, 0, len(v.allowed))
	for _, id := range v.inner.GetIDs() {
		if v.ok(id) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (v *ISetSubset) HasID(videoID uint32) bool {
	return v.ok(videoID) && v.inner.HasID(videoID)
}
