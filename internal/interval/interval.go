// Package interval implements the half-open millisecond interval algebra
// that the query engine composes: sorted-disjoint set operations, sorted
// overlapping list deoverlap, and the float-seconds presentational merge.
package interval

import "sort"

// Interval is a half-open [Start, End) range in integer milliseconds.
type Interval struct {
	Start int64
	End   int64
}

// Set is a strictly sorted, pairwise-disjoint list of intervals: for
// consecutive entries, Set[i].End <= Set[i+1].Start.
type Set []Interval

// List is a list of intervals sorted by Start, allowed to overlap or
// repeat. No disjointness invariant holds.
type List []Interval

// Sum returns the total duration in milliseconds.
func (s Set) Sum() int64 {
	var total int64
	for _, iv := range s {
		total += iv.End - iv.Start
	}
	return total
}

// Intersect performs the classic two-pointer merge of two sorted disjoint
// interval sets, emitting (max(a0,b0), min(a1,b1)) whenever it is positive.
func Intersect(a, b Set) Set {
	out := make(Set, 0, minInt(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := maxI64(a[i].Start, b[j].Start)
		end := minI64(a[i].End, b[j].End)
		if end > start {
			out = append(out, Interval{Start: start, End: end})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// Subtract removes every interval in b from a, a standard disjoint-set
// difference.
func Subtract(a, b Set) Set {
	out := make(Set, 0, len(a))
	j := 0
	for _, av := range a {
		start := av.Start
		for start < av.End {
			for j < len(b) && b[j].End <= start {
				j++
			}
			if j >= len(b) || b[j].Start >= av.End {
				out = append(out, Interval{Start: start, End: av.End})
				break
			}
			if b[j].Start > start {
				out = append(out, Interval{Start: start, End: b[j].Start})
			}
			if b[j].End > start {
				start = b[j].End
			}
		}
	}
	return out
}

// DefaultRuntimeFuzzMS is the deoverlap coalescing gap used when the
// engine merges interval streams produced during query execution.
const DefaultRuntimeFuzzMS = 100

// DefaultDerivationFuzzMS is the coalescing gap the offline derivation
// pipeline uses when building fast isets.
const DefaultDerivationFuzzMS = 250

// MergeSorted merges two already start-sorted sets into a single
// start-sorted List, the interval-algebra equivalent of heapq.merge.
// Deoverlap requires its input sorted by Start; a plain append of two
// Sets is only sorted if the two ranges don't interleave, so any caller
// combining two Sets before deoverlapping must go through this first.
func MergeSorted(a, b Set) List {
	out := make(List, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Start <= b[j].Start {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, List(a[i:])...)
	out = append(out, List(b[j:])...)
	return out
}

// Deoverlap consumes a list sorted by Start (possibly overlapping or
// repeating) and returns a disjoint Set, coalescing any two consecutive
// intervals whose gap is smaller than fuzzMS.
func Deoverlap(in List, fuzzMS int64) Set {
	out := make(Set, 0, len(in))
	var curr *Interval
	for _, iv := range in {
		if curr == nil {
			c := iv
			curr = &c
			continue
		}
		if iv.Start-curr.End < fuzzMS {
			if iv.End > curr.End {
				curr.End = iv.End
			}
		} else {
			out = append(out, *curr)
			c := iv
			curr = &c
		}
	}
	if curr != nil {
		out = append(out, *curr)
	}
	return out
}

// SecInterval is a presentational interval expressed in float seconds.
type SecInterval struct {
	Start float64
	End   float64
}

// DefaultMergeCloseFuzzSec is the default gap, in seconds, used by
// MergeClose for presentational output.
const DefaultMergeCloseFuzzSec = 0.25

// MergeClose coalesces a sorted-by-start stream of (possibly overlapping)
// float-second intervals, merging any two whose gap is smaller than
// fuzzSec. It mirrors Deoverlap but operates on the seconds domain used
// for user-facing responses.
func MergeClose(in []SecInterval, fuzzSec float64) []SecInterval {
	out := make([]SecInterval, 0, len(in))
	var curr *SecInterval
	for _, iv := range in {
		if curr == nil {
			c := iv
			curr = &c
			continue
		}
		gap := maxF(curr.Start, iv.Start) - minF(curr.End, iv.End)
		if gap < fuzzSec {
			curr.Start = minF(curr.Start, iv.Start)
			curr.End = maxF(curr.End, iv.End)
		} else {
			out = append(out, *curr)
			c := iv
			curr = &c
		}
	}
	if curr != nil {
		out = append(out, *curr)
	}
	return out
}

// SortedByStart reports whether in is sorted ascending by Start; this is
// the ordering invariant every producer in the engine must uphold.
func SortedByStart(in []Interval) bool {
	return sort.SliceIsSorted(in, func(i, j int) bool { return in[i].Start < in[j].Start })
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
