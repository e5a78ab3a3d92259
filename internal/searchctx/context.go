// Package searchctx implements SearchContext: the bundle of hoistable,
// field-wise-conjoinable filters every query atom can narrow, and the
// per-video predicate built from one.
package searchctx

import (
	"time"

	"github.com/tvnews/newsquery/internal/datacontext"
)

// IntSet is a small unordered set of ints, used for hour and
// day-of-week constraints.
type IntSet map[int]struct{}

// NewIntSet builds an IntSet from the given members.
func NewIntSet(members ...int) IntSet {
	s := make(IntSet, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

func (s IntSet) has(v int) bool {
	_, ok := s[v]
	return ok
}

func intersectIntSet(a, b IntSet) IntSet {
	out := make(IntSet)
	for v := range a {
		if b.has(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

// U32Set is an unordered set of video ids.
type U32Set map[uint32]struct{}

// NewU32Set builds a U32Set from the given members.
func NewU32Set(members ...uint32) U32Set {
	s := make(U32Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

func (s U32Set) has(v uint32) bool {
	_, ok := s[v]
	return ok
}

func intersectU32Set(a, b U32Set) U32Set {
	out := make(U32Set)
	for v := range a {
		if b.has(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

// Context is a bundle of hoistable filters. Every pointer/map field is
// "unconstrained if nil/empty, constrained otherwise." TextWindow has no
// predicate role; it only configures the transcript adapter.
type Context struct {
	StartDate *time.Time
	EndDate   *time.Time
	Videos    U32Set
	Channel   *string
	Show      *string
	Hours     IntSet
	DaysOfWeek IntSet
	TextWindow int
}

// Empty returns a wholly unconstrained context.
func Empty() Context {
	return Context{}
}

// Unconstrained reports whether no field narrows anything, the
// short-circuit the planner uses to recognise "everything."
func (c Context) Unconstrained() bool {
	return c.StartDate == nil && c.EndDate == nil && c.Videos == nil &&
		c.Channel == nil && c.Show == nil && len(c.Hours) == 0 && len(c.DaysOfWeek) == 0
}

// And computes the field-wise conjunction of c and other. ok is false
// when the two contexts contradict (empty result set, distinct from
// "unconstrained").
func And(c, other Context) (result Context, ok bool) {
	result.TextWindow = c.TextWindow
	if other.TextWindow != 0 {
		result.TextWindow = other.TextWindow
	}

	result.StartDate = maxDate(c.StartDate, other.StartDate)
	result.EndDate = minDate(c.EndDate, other.EndDate)
	if result.StartDate != nil && result.EndDate != nil && result.StartDate.After(*result.EndDate) {
		return Context{}, false
	}

	var ok1 bool
	result.Videos, ok1 = andSet(c.Videos, other.Videos, intersectU32Set)
	if !ok1 {
		return Context{}, false
	}

	var ok2 bool
	result.Channel, ok2 = andScalar(c.Channel, other.Channel)
	if !ok2 {
		return Context{}, false
	}

	var ok3 bool
	result.Show, ok3 = andScalar(c.Show, other.Show)
	if !ok3 {
		return Context{}, false
	}

	var ok4 bool
	result.Hours, ok4 = andIntSet(c.Hours, other.Hours)
	if !ok4 {
		return Context{}, false
	}

	var ok5 bool
	result.DaysOfWeek, ok5 = andIntSet(c.DaysOfWeek, other.DaysOfWeek)
	if !ok5 {
		return Context{}, false
	}

	return result, true
}

func andScalar(a, b *string) (*string, bool) {
	switch {
	case a == nil:
		return b, true
	case b == nil:
		return a, true
	case *a == *b:
		return a, true
	default:
		return nil, false
	}
}

func andIntSet(a, b IntSet) (IntSet, bool) {
	switch {
	case len(a) == 0:
		return b, true
	case len(b) == 0:
		return a, true
	default:
		merged := intersectIntSet(a, b)
		if len(merged) == 0 {
			return nil, false
		}
		return merged, true
	}
}

func andSet(a, b U32Set, intersect func(a, b U32Set) U32Set) (U32Set, bool) {
	switch {
	case a == nil:
		return b, true
	case b == nil:
		return a, true
	default:
		merged := intersect(a, b)
		if len(merged) == 0 {
			return nil, false
		}
		return merged, true
	}
}

func maxDate(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.After(*b):
		return a
	default:
		return b
	}
}

func minDate(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Before(*b):
		return a
	default:
		return b
	}
}

// VideoFilter reports whether a given video passes the context's
// constraints. A nil VideoFilter means "everything passes" — the
// planner's short-circuit for an unconstrained context.
type VideoFilter func(v *datacontext.Video) bool

// BuildVideoFilter returns nil when c is wholly unconstrained, else a
// predicate testing every present field.
func BuildVideoFilter(c Context) VideoFilter {
	if c.Unconstrained() {
		return nil
	}
	return func(v *datacontext.Video) bool {
		if c.StartDate != nil && v.Date.Before(*c.StartDate) {
			return false
		}
		if c.EndDate != nil && v.Date.After(*c.EndDate) {
			return false
		}
		if c.Videos != nil && !c.Videos.has(v.ID) {
			return false
		}
		if c.Channel != nil && v.Channel != *c.Channel {
			return false
		}
		if c.Show != nil && v.Show != *c.Show {
			return false
		}
		if len(c.DaysOfWeek) > 0 && !c.DaysOfWeek.has(v.DayOfWeek) {
			return false
		}
		if len(c.Hours) > 0 && !hourRangeIntersects(v, c.Hours) {
			return false
		}
		return true
	}
}

// hourRangeIntersects implements the "video spans hours
// [hour, hour+ceil(duration/3600)]" rule.
func hourRangeIntersects(v *datacontext.Video, hours IntSet) bool {
	spanHours := int((v.DurationSeconds() + 3599) / 3600)
	for h := v.Hour; h <= v.Hour+spanHours; h++ {
		if hours.has(h % 24) {
			return true
		}
	}
	return false
}
