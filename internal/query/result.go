package query

import (
	"sort"

	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/index"
	"github.com/tvnews/newsquery/internal/interval"
	"github.com/tvnews/newsquery/internal/searchctx"
)

// Item is one entry of a LazyISet: either the entire video ("whole") or
// a concrete set of intervals within it.
type Item struct {
	Video     *datacontext.Video
	Whole     bool
	Intervals interval.Set
}

// Result is the evaluator's tagged-union return value. The three
// concrete types below are the only implementations; combine logic
// switches on them directly rather than through an open interface.
type Result interface {
	rank() int
}

// VideoSet says "every video passing Ctx, whole-video interval."
type VideoSet struct {
	Ctx searchctx.Context
}

func (VideoSet) rank() int { return 0 }

// LazyISetResult is a concrete, already-resolved, video.id-sorted list
// of items: the LazyISet variant of Result.
type LazyISetResult struct {
	Items []Item
}

func (LazyISetResult) rank() int { return 1 }

// RustISet is a composed/mmapped ISetMap view plus the context that
// still applies to it (video filter, not yet folded into Data).
type RustISet struct {
	Ctx  searchctx.Context
	Data index.ISetMap
}

func (RustISet) rank() int { return 2 }

// canonicalize swaps a and b, if needed, so that the "weaker"
// representation (VideoSet ≺ LazyISet ≺ RustISet) is always r1.
func canonicalize(a, b Result) (r1, r2 Result) {
	if a.rank() > b.rank() {
		return b, a
	}
	return a, b
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].Video.ID < items[j].Video.ID })
}
