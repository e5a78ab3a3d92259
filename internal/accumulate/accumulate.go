// Package accumulate turns the evaluator's final stream of
// (video, intervals) items into the two output shapes the search
// endpoints return: a per-bucket detailed breakdown and a per-bucket
// total.
package accumulate

import (
	"sort"
	"time"

	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/index"
	"github.com/tvnews/newsquery/internal/interval"
	"github.com/tvnews/newsquery/internal/query"
)

// Commercial selects how commercial-break time is treated relative to
// the query's matched intervals.
type Commercial int

const (
	// CommercialFalse strips commercial time from every match (default).
	CommercialFalse Commercial = iota
	// CommercialTrue keeps only commercial time.
	CommercialTrue
	// CommercialBoth keeps matched time unmodified either way.
	CommercialBoth
)

// BucketFunc maps a video's broadcast date to the bucket date it
// contributes to.
type BucketFunc func(time.Time) time.Time

// BucketByDay is the identity aggregation: one bucket per calendar day.
func BucketByDay(d time.Time) time.Time { return d }

// BucketByWeek buckets to the Monday of d's week.
func BucketByWeek(d time.Time) time.Time {
	offset := int(d.Weekday())
	if offset == 0 {
		offset = 7 // Sunday -> end of week, not start
	}
	return d.AddDate(0, 0, -(offset - 1))
}

// BucketByMonth buckets to the first of d's month.
func BucketByMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
}

// BucketByYear buckets to January 1st of d's year.
func BucketByYear(d time.Time) time.Time {
	return time.Date(d.Year(), 1, 1, 0, 0, 0, 0, d.Location())
}

// VideoContribution is one video's seconds contributed to a bucket.
type VideoContribution struct {
	VideoID uint32
	Seconds float64
}

// Accumulate folds items into per-bucket contributions, joining against
// commercials according to mode. detailed controls which of the two
// return maps is populated; the other is nil.
func Accumulate(commercials index.ISetMap, bucketFn BucketFunc, mode Commercial, detailed bool, items []query.Item, videos map[uint32]*datacontext.Video) (
	detailedOut map[string][]VideoContribution, simpleOut map[string]float64,
) {
	if detailed {
		detailedOut = make(map[string][]VideoContribution)
	} else {
		simpleOut = make(map[string]float64)
	}

	for _, it := range items {
		v := it.Video
		if v == nil {
			continue
		}

		var ivs interval.Set
		if mode == CommercialBoth && it.Whole {
			// Short-circuit: whole video with no commercial split needs
			// only its duration, not a materialized interval list.
			seconds := v.DurationSeconds()
			addContribution(detailedOut, simpleOut, bucketFn(v.Date), v.ID, seconds)
			continue
		}

		if it.Whole {
			ivs = entireVideoIntervals(v)
		} else {
			ivs = it.Intervals
		}
		if len(ivs) == 0 {
			continue
		}

		ivs = joinCommercials(commercials, v.ID, ivs, mode)
		if len(ivs) == 0 {
			continue
		}
		addContribution(detailedOut, simpleOut, bucketFn(v.Date), v.ID, ivs.Sum()/1000.0)
	}

	return detailedOut, simpleOut
}

func entireVideoIntervals(v *datacontext.Video) interval.Set {
	return EntireVideoIntervals(v)
}

// EntireVideoIntervals returns the [0, duration_ms) interval covering an
// entire video, exported for callers (e.g. the per-video detail
// endpoint) that need to turn a "whole video matched" item into concrete
// intervals, the same way the bucketed accumulator does internally.
func EntireVideoIntervals(v *datacontext.Video) interval.Set {
	durationMS := int64(v.DurationSeconds() * 1000)
	if durationMS <= 0 {
		return nil
	}
	return interval.Set{{Start: 0, End: durationMS}}
}

func joinCommercials(commercials index.ISetMap, videoID uint32, ivs interval.Set, mode Commercial) interval.Set {
	return JoinCommercials(commercials, videoID, ivs, mode)
}

// JoinCommercials applies mode's commercial-break policy to ivs for one
// video: intersect (commercial time only), subtract (non-commercial
// time only), or leave untouched (both). Exported so the per-video
// interval detail endpoint can apply the same join the bucketed
// accumulator uses internally.
func JoinCommercials(commercials index.ISetMap, videoID uint32, ivs interval.Set, mode Commercial) interval.Set {
	if commercials == nil || mode == CommercialBoth {
		return ivs
	}
	if mode == CommercialTrue {
		return commercials.Intersect(videoID, ivs, true)
	}
	return commercials.Minus(videoID, ivs, true)
}

func addContribution(detailedOut map[string][]VideoContribution, simpleOut map[string]float64, bucket time.Time, videoID uint32, seconds float64) {
	key := bucket.Format("2006-01-02")
	if detailedOut != nil {
		detailedOut[key] = append(detailedOut[key], VideoContribution{VideoID: videoID, Seconds: seconds})
		return
	}
	simpleOut[key] += seconds
}

// SortDetailed sorts each bucket's contributions by video id, for
// deterministic output.
func SortDetailed(m map[string][]VideoContribution) {
	for _, contribs := range m {
		sort.Slice(contribs, func(i, j int) bool { return contribs[i].VideoID < contribs[j].VideoID })
	}
}
