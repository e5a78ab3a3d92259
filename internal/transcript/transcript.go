// Package transcript adapts the external caption/transcript index into
// the query evaluator's "text" atom: a cost-gated phrase search that
// yields per-video posting intervals.
package transcript

import (
	"sort"

	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/errs"
	"github.com/tvnews/newsquery/internal/interval"
	"github.com/tvnews/newsquery/internal/searchctx"
)

// MaxTranscriptSearchCost is the fraction-of-total-postings ceiling a
// whole-corpus phrase search must stay under before the cost gate
// rejects it as too expensive to run.
const MaxTranscriptSearchCost = 0.005

// PostingSec is one match from the external index, in video-local
// seconds (the caption index's native unit).
type PostingSec struct {
	Start float64
	End   float64
}

// Index is the external caption/transcript search backend: phrase
// lookup plus a cost estimate used by the gate below.
type Index interface {
	// EstimateCost returns phrase's selectivity as a fraction of the
	// total postings in the index (0 = matches nothing, 1 = matches
	// everything).
	EstimateCost(phrase string) (float64, error)
	// Search returns postings per document name. When restrictTo is
	// non-nil, only those document names are searched.
	Search(phrase string, restrictTo map[string]struct{}) (map[string][]PostingSec, error)
}

// Result is one video's resolved transcript match, in integer
// milliseconds, sorted by Video.ID ascending across a full Search call.
type Result struct {
	Video     *datacontext.Video
	Intervals interval.Set
}

// Search runs phrase against idx, applying the cost gate (skipped when
// ctx already restricts to specific videos) and the video filter, then
// dilates and deoverlaps postings per ctx.TextWindow.
func Search(idx Index, data *datacontext.DataContext, phrase string, ctx searchctx.Context) ([]Result, error) {
	var restrictNames map[string]struct{}
	if ctx.Videos != nil {
		restrictNames = make(map[string]struct{}, len(ctx.Videos))
		for id := range ctx.Videos {
			if v, ok := data.VideosByID[id]; ok {
				restrictNames[v.Name] = struct{}{}
			}
		}
	} else {
		cost, err := idx.EstimateCost(phrase)
		if err != nil {
			return nil, errs.Internal(err, "estimating transcript search cost")
		}
		if cost > MaxTranscriptSearchCost {
			return nil, errs.ExpensiveQuery("transcript search for %q is too expensive (cost %.4f > %.4f)", phrase, cost, MaxTranscriptSearchCost)
		}
	}

	postings, err := idx.Search(phrase, restrictNames)
	if err != nil {
		return nil, errs.Internal(err, "running transcript search")
	}

	filter := searchctx.BuildVideoFilter(ctx)
	var out []Result
	for name, ps := range postings {
		v, ok := data.VideosByName[name]
		if !ok {
			continue
		}
		if filter != nil && !filter(v) {
			continue
		}
		ivs := toIntervals(ps, ctx.TextWindow)
		if len(ivs) == 0 {
			continue
		}
		out = append(out, Result{Video: v, Intervals: ivs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Video.ID < out[j].Video.ID })
	return out, nil
}

// toIntervals converts postings to millisecond intervals. When
// windowSeconds > 0, each posting is first dilated to a fixed length
// centered on its midpoint before conversion.
func toIntervals(postings []PostingSec, windowSeconds int) interval.Set {
	list := make(interval.List, 0, len(postings))
	for _, p := range postings {
		start, end := p.Start, p.End
		if windowSeconds > 0 {
			center := (start + end) / 2
			half := float64(windowSeconds) / 2
			start, end = center-half, center+half
			if start < 0 {
				start = 0
			}
		}
		list = append(list, interval.Interval{
			Start: int64(start * 1000),
			End:   int64(end * 1000),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
	return interval.Deoverlap(list, interval.DefaultRuntimeFuzzMS)
}
