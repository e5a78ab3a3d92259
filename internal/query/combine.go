package query

import (
	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/interval"
	"github.com/tvnews/newsquery/internal/index"
	"github.com/tvnews/newsquery/internal/searchctx"
)

// entireVideoInterval returns the [0, duration_ms) interval covering an
// entire video, used when a "whole" item must be turned into concrete
// intervals (e.g. for a commercial join in the accumulator).
func entireVideoInterval(v *datacontext.Video) interval.Set {
	durationMS := int64(v.DurationSeconds() * 1000)
	if durationMS <= 0 {
		return nil
	}
	return interval.Set{{Start: 0, End: durationMS}}
}

// sortedVideos returns every loaded video, sorted by id.
func sortedVideos(data *datacontext.DataContext) []*datacontext.Video {
	out := make([]*datacontext.Video, 0, len(data.OrderedVideoIDs))
	for _, id := range data.OrderedVideoIDs {
		out = append(out, data.VideosByID[id])
	}
	return out
}

// videoSetItems materializes a VideoSet's matching videos as whole-video
// Items, in id order.
func videoSetItems(data *datacontext.DataContext, vs VideoSet) []Item {
	filter := searchctx.BuildVideoFilter(vs.Ctx)
	var out []Item
	for _, v := range sortedVideos(data) {
		if filter == nil || filter(v) {
			out = append(out, Item{Video: v, Whole: true})
		}
	}
	return out
}

// rustISetItems materializes a RustISet's matching videos, filtered by
// its context, as concrete (non-whole) Items.
func rustISetItems(data *datacontext.DataContext, r RustISet) []Item {
	filter := searchctx.BuildVideoFilter(r.Ctx)
	var out []Item
	for _, id := range r.Data.GetIDs() {
		v, ok := data.VideosByID[id]
		if !ok {
			continue
		}
		if filter != nil && !filter(v) {
			continue
		}
		ivs := r.Data.GetIntervals(id, true)
		if len(ivs) == 0 {
			continue
		}
		out = append(out, Item{Video: v, Intervals: ivs})
	}
	sortItems(out)
	return out
}

// ToLazyISetResult concretises any Result into the fully-resolved,
// sorted item list the accumulator consumes.
func ToLazyISetResult(data *datacontext.DataContext, r Result) LazyISetResult {
	switch v := r.(type) {
	case VideoSet:
		return LazyISetResult{Items: videoSetItems(data, v)}
	case RustISet:
		return LazyISetResult{Items: rustISetItems(data, v)}
	case LazyISetResult:
		return v
	default:
		return LazyISetResult{}
	}
}

// andCombine implements the pairwise AND combine table from the
// canonicalised pair (r1 has rank <= r2's).
func andCombine(data *datacontext.DataContext, r1, r2 Result) (Result, error) {
	r1, r2 = canonicalize(r1, r2)

	switch a := r1.(type) {
	case VideoSet:
		switch b := r2.(type) {
		case VideoSet:
			ctx, ok := searchctx.And(a.Ctx, b.Ctx)
			if !ok {
				return nil, nil
			}
			return VideoSet{Ctx: ctx}, nil
		case LazyISetResult:
			filter := searchctx.BuildVideoFilter(a.Ctx)
			if filter == nil {
				return b, nil
			}
			var out []Item
			for _, it := range b.Items {
				if filter(it.Video) {
					out = append(out, it)
				}
			}
			return LazyISetResult{Items: out}, nil
		case RustISet:
			ctx, ok := searchctx.And(a.Ctx, b.Ctx)
			if !ok {
				return nil, nil
			}
			return RustISet{Ctx: ctx, Data: b.Data}, nil
		}

	case LazyISetResult:
		switch b := r2.(type) {
		case LazyISetResult:
			return LazyISetResult{Items: andLazyLazy(a.Items, b.Items)}, nil
		case RustISet:
			return LazyISetResult{Items: andLazyRust(data, a.Items, b)}, nil
		}

	case RustISet:
		b := r2.(RustISet)
		ctx, ok := searchctx.And(a.Ctx, b.Ctx)
		if !ok {
			return nil, nil
		}
		return RustISet{Ctx: ctx, Data: index.NewISetIntersection([]index.ISetMap{a.Data, b.Data})}, nil
	}
	return nil, nil
}

// andLazyLazy intersects two sorted item streams by video id.
func andLazyLazy(a, b []Item) []Item {
	var out []Item
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Video.ID < b[j].Video.ID:
			i++
		case a[i].Video.ID > b[j].Video.ID:
			j++
		default:
			if merged, ok := andItems(a[i], b[j]); ok {
				out = append(out, merged)
			}
			i++
			j++
		}
	}
	return out
}

func andItems(a, b Item) (Item, bool) {
	switch {
	case a.Whole:
		return b, true
	case b.Whole:
		return a, true
	default:
		ivs := interval.Deoverlap(interval.List(interval.Intersect(a.Intervals, b.Intervals)), interval.DefaultRuntimeFuzzMS)
		if len(ivs) == 0 {
			return Item{}, false
		}
		return Item{Video: a.Video, Intervals: ivs}, true
	}
}

// andLazyRust intersects a sorted item stream against a RustISet,
// filtering by the RustISet's context first.
func andLazyRust(data *datacontext.DataContext, items []Item, r RustISet) []Item {
	filter := searchctx.BuildVideoFilter(r.Ctx)
	var out []Item
	for _, it := range items {
		if filter != nil && !filter(it.Video) {
			continue
		}
		var base interval.Set
		if it.Whole {
			base = r.Data.GetIntervals(it.Video.ID, true)
		} else {
			base = r.Data.Intersect(it.Video.ID, it.Intervals, true)
		}
		if len(base) == 0 {
			continue
		}
		out = append(out, Item{Video: it.Video, Intervals: base})
	}
	return out
}

// orCombine implements the pairwise OR combine table.
func orCombine(data *datacontext.DataContext, r1, r2 Result) (Result, error) {
	r1, r2 = canonicalize(r1, r2)

	switch a := r1.(type) {
	case VideoSet:
		aFilter := searchctx.BuildVideoFilter(a.Ctx)
		switch b := r2.(type) {
		case VideoSet:
			if aFilter == nil {
				return a, nil
			}
			bFilter := searchctx.BuildVideoFilter(b.Ctx)
			if bFilter == nil {
				return b, nil
			}
			return LazyISetResult{Items: orByPredicate(data, aFilter, bFilter)}, nil
		case LazyISetResult:
			if aFilter == nil {
				return a, nil
			}
			return LazyISetResult{Items: orVideoSetWithLazy(data, aFilter, b.Items)}, nil
		case RustISet:
			if aFilter == nil {
				return a, nil
			}
			bFilter := searchctx.BuildVideoFilter(b.Ctx)
			return LazyISetResult{Items: orVideoSetWithRust(data, aFilter, bFilter, b.Data)}, nil
		}

	case LazyISetResult:
		switch b := r2.(type) {
		case LazyISetResult:
			return LazyISetResult{Items: orLazyLazy(a.Items, b.Items)}, nil
		case RustISet:
			return LazyISetResult{Items: orLazyRust(data, a.Items, b)}, nil
		}

	case RustISet:
		b := r2.(RustISet)
		return LazyISetResult{Items: orRustRust(data, a, b)}, nil
	}
	return nil, nil
}

func orByPredicate(data *datacontext.DataContext, a, b searchctx.VideoFilter) []Item {
	var out []Item
	for _, v := range sortedVideos(data) {
		if a(v) || b(v) {
			out = append(out, Item{Video: v, Whole: true})
		}
	}
	return out
}

func orVideoSetWithLazy(data *datacontext.DataContext, filter searchctx.VideoFilter, items []Item) []Item {
	all := sortedVideos(data)
	var out []Item
	ii := 0
	for _, v := range all {
		for ii < len(items) && items[ii].Video.ID < v.ID {
			out = append(out, items[ii])
			ii++
		}
		if ii < len(items) && items[ii].Video.ID == v.ID {
			if filter(v) {
				out = append(out, Item{Video: v, Whole: true})
			} else {
				out = append(out, items[ii])
			}
			ii++
			continue
		}
		if filter(v) {
			out = append(out, Item{Video: v, Whole: true})
		}
	}
	for ; ii < len(items); ii++ {
		out = append(out, items[ii])
	}
	return out
}

func orVideoSetWithRust(data *datacontext.DataContext, aFilter, bFilter searchctx.VideoFilter, rdata index.ISetMap) []Item {
	var out []Item
	for _, v := range sortedVideos(data) {
		if aFilter(v) {
			out = append(out, Item{Video: v, Whole: true})
			continue
		}
		if rdata.HasID(v.ID) && (bFilter == nil || bFilter(v)) {
			ivs := rdata.GetIntervals(v.ID, true)
			if len(ivs) > 0 {
				out = append(out, Item{Video: v, Intervals: ivs})
			}
		}
	}
	return out
}

func orLazyLazy(a, b []Item) []Item {
	var out []Item
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Video.ID < b[j].Video.ID:
			out = append(out, a[i])
			i++
		case a[i].Video.ID > b[j].Video.ID:
			out = append(out, b[j])
			j++
		default:
			out = append(out, orItems(a[i], b[j]))
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func orItems(a, b Item) Item {
	switch {
	case a.Whole:
		return a
	case b.Whole:
		return b
	default:
		merged := interval.Deoverlap(interval.MergeSorted(a.Intervals, b.Intervals), interval.DefaultRuntimeFuzzMS)
		return Item{Video: a.Video, Intervals: merged}
	}
}

func orLazyRust(data *datacontext.DataContext, items []Item, r RustISet) []Item {
	filter := searchctx.BuildVideoFilter(r.Ctx)
	byID := make(map[uint32]int, len(items))
	for i, it := range items {
		byID[it.Video.ID] = i
	}
	consumed := make([]bool, len(items))

	var out []Item
	for _, id := range r.Data.GetIDs() {
		v, ok := data.VideosByID[id]
		if !ok {
			continue
		}
		if idx, found := byID[id]; found {
			consumed[idx] = true
			if items[idx].Whole || (filter != nil && !filter(v)) {
				out = append(out, items[idx])
				continue
			}
			rivs := r.Data.GetIntervals(id, true)
			merged := interval.Deoverlap(interval.MergeSorted(items[idx].Intervals, rivs), interval.DefaultRuntimeFuzzMS)
			out = append(out, Item{Video: v, Intervals: merged})
			continue
		}
		if filter == nil || filter(v) {
			ivs := r.Data.GetIntervals(id, true)
			if len(ivs) > 0 {
				out = append(out, Item{Video: v, Intervals: ivs})
			}
		}
	}
	for i, it := range items {
		if !consumed[i] {
			out = append(out, it)
		}
	}
	sortItems(out)
	return out
}

func orRustRust(data *datacontext.DataContext, a, b RustISet) []Item {
	aFilter := searchctx.BuildVideoFilter(a.Ctx)
	bFilter := searchctx.BuildVideoFilter(b.Ctx)
	ids := make(map[uint32]struct{})
	for _, id := range a.Data.GetIDs() {
		ids[id] = struct{}{}
	}
	for _, id := range b.Data.GetIDs() {
		ids[id] = struct{}{}
	}

	var out []Item
	for id := range ids {
		v, ok := data.VideosByID[id]
		if !ok {
			continue
		}
		var aIvs, bIvs interval.Set
		if a.Data.HasID(id) && (aFilter == nil || aFilter(v)) {
			aIvs = a.Data.GetIntervals(id, true)
		}
		if b.Data.HasID(id) && (bFilter == nil || bFilter(v)) {
			bIvs = b.Data.GetIntervals(id, true)
		}
		switch {
		case len(aIvs) > 0 && len(bIvs) > 0:
			merged := interval.Deoverlap(interval.MergeSorted(aIvs, bIvs), interval.DefaultRuntimeFuzzMS)
			out = append(out, Item{Video: v, Intervals: merged})
		case len(aIvs) > 0:
			out = append(out, Item{Video: v, Intervals: aIvs})
		case len(bIvs) > 0:
			out = append(out, Item{Video: v, Intervals: bIvs})
		}
	}
	sortItems(out)
	return out
}
