package query

import (
	"sort"
	"strings"

	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/errs"
	"github.com/tvnews/newsquery/internal/searchctx"
	"github.com/tvnews/newsquery/internal/transcript"
)

// Evaluator binds a query tree to the loaded data and transcript index
// it evaluates against. Stateless and safe for concurrent use across
// requests — all fields are read-only after construction.
type Evaluator struct {
	Data       *datacontext.DataContext
	Transcript transcript.Index
}

// Eval recursively evaluates node under ctx. A nil Result (with a nil
// error) means the query is provably empty under this context — a
// distinct outcome from an actual error.
func (e *Evaluator) Eval(node Node, ctx searchctx.Context) (Result, error) {
	switch node.Kind {
	case "all":
		return VideoSet{Ctx: ctx}, nil

	case "and":
		return e.searchAnd(node.Children, ctx)

	case "or":
		return e.searchOr(node.Children, ctx)

	case "video":
		v, ok := e.Data.VideosByName[node.Value]
		if !ok {
			return nil, errs.NotFound("video %q not found", node.Value)
		}
		if ctx.Videos != nil {
			if _, ok := ctx.Videos[v.ID]; !ok {
				return nil, nil
			}
		}
		next := ctx
		next.Videos = searchctx.NewU32Set(v.ID)
		return VideoSet{Ctx: next}, nil

	case "channel":
		if ctx.Channel != nil && *ctx.Channel != node.Value {
			return nil, nil
		}
		next := ctx
		val := node.Value
		next.Channel = &val
		return VideoSet{Ctx: next}, nil

	case "show":
		if ctx.Show != nil && *ctx.Show != node.Value {
			return nil, nil
		}
		next := ctx
		val := node.Value
		next.Show = &val
		return VideoSet{Ctx: next}, nil

	case "hour":
		hours, err := searchctx.ParseHourSet(node.Value)
		if err != nil {
			return nil, err
		}
		if len(ctx.Hours) > 0 {
			hours = intersectIntSetOrNil(hours, ctx.Hours)
			if len(hours) == 0 {
				return nil, nil
			}
		}
		next := ctx
		next.Hours = hours
		return VideoSet{Ctx: next}, nil

	case "day_of_week":
		days, err := searchctx.ParseDayOfWeekSet(node.Value)
		if err != nil {
			return nil, err
		}
		if len(ctx.DaysOfWeek) > 0 {
			days = intersectIntSetOrNil(days, ctx.DaysOfWeek)
			if len(days) == 0 {
				return nil, nil
			}
		}
		next := ctx
		next.DaysOfWeek = days
		return VideoSet{Ctx: next}, nil

	case "text_window":
		// A bare text_window atom outside "and" has no well-defined
		// meaning on its own.
		return nil, nil

	case "face_name":
		p, ok := e.Data.PersonsByName[strings.ToLower(node.Value)]
		if !ok {
			return nil, errs.NotFound("person %q not found", node.Value)
		}
		return RustISet{Ctx: ctx, Data: p.ISetMap}, nil

	case "face_tag":
		m, err := resolveFaceTag(e.Data, strings.ToLower(node.Value))
		if err != nil {
			return nil, err
		}
		return RustISet{Ctx: ctx, Data: m}, nil

	case "face_count", "facecount":
		m, err := resolveFaceCount(e.Data, node.Value)
		if err != nil {
			return nil, err
		}
		return RustISet{Ctx: ctx, Data: m}, nil

	case "text":
		if e.Transcript == nil {
			return nil, errs.Internal(nil, "transcript search is not configured")
		}
		results, err := transcript.Search(e.Transcript, e.Data, node.Value, ctx)
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(results))
		for _, r := range results {
			items = append(items, Item{Video: r.Video, Intervals: r.Intervals})
		}
		return LazyISetResult{Items: items}, nil
	}

	return nil, errs.Internal(nil, "unknown query atom kind %q", node.Kind)
}

func intersectIntSetOrNil(a, b searchctx.IntSet) searchctx.IntSet {
	out := make(searchctx.IntSet)
	for v := range a {
		if _, ok := b[v]; ok {
			out[v] = struct{}{}
		}
	}
	return out
}

// searchAnd implements the two-pass AND planner: hoist metadata
// children into ctx, then fold the remaining "deferred" children
// pairwise in SEARCH_KEY_EXEC_PRIORITY order.
func (e *Evaluator) searchAnd(children []Node, ctx searchctx.Context) (Result, error) {
	var deferred []Node

	for _, c := range children {
		switch c.Kind {
		case "video":
			v, ok := e.Data.VideosByName[c.Value]
			if !ok {
				return nil, errs.NotFound("video %q not found", c.Value)
			}
			if ctx.Videos != nil {
				if _, ok := ctx.Videos[v.ID]; !ok {
					return nil, nil
				}
			}
			ctx.Videos = searchctx.NewU32Set(v.ID)

		case "channel":
			if ctx.Channel != nil && *ctx.Channel != c.Value {
				return nil, nil
			}
			val := c.Value
			ctx.Channel = &val

		case "show":
			if ctx.Show != nil && *ctx.Show != c.Value {
				return nil, nil
			}
			val := c.Value
			ctx.Show = &val

		case "hour":
			hours, err := searchctx.ParseHourSet(c.Value)
			if err != nil {
				return nil, err
			}
			if len(ctx.Hours) > 0 {
				hours = intersectIntSetOrNil(hours, ctx.Hours)
				if len(hours) == 0 {
					return nil, nil
				}
			}
			ctx.Hours = hours

		case "day_of_week":
			days, err := searchctx.ParseDayOfWeekSet(c.Value)
			if err != nil {
				return nil, err
			}
			if len(ctx.DaysOfWeek) > 0 {
				days = intersectIntSetOrNil(days, ctx.DaysOfWeek)
				if len(days) == 0 {
					return nil, nil
				}
			}
			ctx.DaysOfWeek = days

		case "text_window":
			n, err := atoiStrict(c.Value)
			if err != nil {
				return nil, err
			}
			ctx.TextWindow = n

		default:
			deferred = append(deferred, c)
		}
	}

	if len(deferred) == 0 {
		return VideoSet{Ctx: ctx}, nil
	}

	sort.SliceStable(deferred, func(i, j int) bool {
		return priorityOf(deferred[i].Kind) < priorityOf(deferred[j].Kind)
	})

	var curr Result
	for _, c := range deferred {
		next, err := e.Eval(c, ctx)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}
		if curr == nil {
			curr = next
			continue
		}
		curr, err = andCombine(e.Data, curr, next)
		if err != nil {
			return nil, err
		}
		if curr == nil {
			return nil, nil
		}
	}
	return curr, nil
}

// searchOr implements the two-pass OR planner: collect VideoSet-
// producing children into a single filter-union, short-circuiting to
// "everything" if any of them is unconstrained, then fold the rest
// pairwise.
func (e *Evaluator) searchOr(children []Node, ctx searchctx.Context) (Result, error) {
	var videoSetResults []VideoSet
	var deferred []Node

	for _, c := range children {
		if isVideoSetProducingKind(c.Kind) {
			r, err := e.Eval(c, ctx)
			if err != nil {
				return nil, err
			}
			if r == nil {
				continue
			}
			vs, ok := r.(VideoSet)
			if !ok {
				return nil, errs.Internal(nil, "metadata atom %q did not evaluate to a VideoSet", c.Kind)
			}
			videoSetResults = append(videoSetResults, vs)
		} else if c.Kind == "text_window" {
			continue // no-op inside or
		} else {
			deferred = append(deferred, c)
		}
	}

	var filters []searchctx.VideoFilter
	for _, vs := range videoSetResults {
		f := searchctx.BuildVideoFilter(vs.Ctx)
		if f == nil {
			return vs, nil // "everything" short-circuits the whole or
		}
		filters = append(filters, f)
	}

	var curr Result
	if len(filters) > 0 {
		combined := func(v *datacontext.Video) bool {
			for _, f := range filters {
				if f(v) {
					return true
				}
			}
			return false
		}
		curr = filterItems(LazyISetResult{Items: videoSetItems(e.Data, VideoSet{Ctx: searchctx.Empty()})}, combined)
	}

	for _, c := range deferred {
		next, err := e.Eval(c, ctx)
		if err != nil {
			return nil, err
		}
		if next == nil {
			continue
		}
		if curr == nil {
			curr = next
			continue
		}
		curr, err = orCombine(e.Data, curr, next)
		if err != nil {
			return nil, err
		}
		if vs, ok := curr.(VideoSet); ok && searchctx.BuildVideoFilter(vs.Ctx) == nil {
			return curr, nil
		}
	}
	return curr, nil
}

func filterItems(r LazyISetResult, pred func(*datacontext.Video) bool) LazyISetResult {
	out := make([]Item, 0, len(r.Items))
	for _, it := range r.Items {
		if pred(it.Video) {
			out = append(out, it)
		}
	}
	return LazyISetResult{Items: out}
}

func atoiStrict(s string) (int, error) {
	n := 0
	neg := false
	if s == "" {
		return 0, errs.InvalidUsage("text_window value must be an integer, got %q", s)
	}
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0, errs.InvalidUsage("text_window value must be an integer, got %q", s)
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
