package httpapi

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"

	"github.com/tvnews/newsquery/internal/accumulate"
	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/errs"
	"github.com/tvnews/newsquery/internal/interval"
	"github.com/tvnews/newsquery/internal/query"
	"github.com/tvnews/newsquery/internal/searchctx"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleSearch serves /search: evaluates the query, joins commercials,
// and buckets by date, returning either a detailed per-video breakdown
// or a scalar sum per bucket.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	node, rerr := parseQueryNode(r)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	ctx, rerr := parseDateRange(r)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	bucketFn, rerr := parseAggregate(r)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	detailed, rerr := parseDetailed(r)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	mode, rerr := parseCommercial(r)
	if rerr != nil {
		writeError(w, rerr)
		return
	}

	result, err := s.Evaluator.Eval(node, ctx)
	if err != nil {
		writeError(w, asRequestError(err))
		return
	}
	if result == nil {
		if detailed {
			writeJSON(w, http.StatusOK, map[string][][]interface{}{})
		} else {
			writeJSON(w, http.StatusOK, map[string]float64{})
		}
		return
	}

	items := query.ToLazyISetResult(s.Data, result).Items
	detailedOut, simpleOut := accumulate.Accumulate(s.Data.Commercials, bucketFn, mode, detailed, items, s.Data.VideosByID)

	if detailed {
		accumulate.SortDetailed(detailedOut)
		resp := make(map[string][][]interface{}, len(detailedOut))
		for bucket, contribs := range detailedOut {
			rows := make([][]interface{}, len(contribs))
			for i, c := range contribs {
				rows[i] = []interface{}{c.VideoID, c.Seconds}
			}
			resp[bucket] = rows
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, simpleOut)
}

type videoMetadata struct {
	ID        uint32  `json:"id"`
	Name      string  `json:"name"`
	Channel   string  `json:"channel"`
	Show      string  `json:"show"`
	Date      string  `json:"date"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FPS       float64 `json:"fps"`
	NumFrames int     `json:"num_frames"`
}

type videoDetail struct {
	Metadata  videoMetadata `json:"metadata"`
	Intervals [][2]float64  `json:"intervals"`
}

// handleSearchVideos serves /search-videos: evaluates the query
// restricted to an explicit id list and returns per-video interval
// detail in seconds, smoothed with the presentational merge-close fuzz
// rather than the runtime deoverlap fuzz used during evaluation.
func (s *Server) handleSearchVideos(w http.ResponseWriter, r *http.Request) {
	node, rerr := parseQueryNode(r)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	ids, rerr := parseVideoIDs(r, s.MaxVideoSearchIDs)
	if rerr != nil {
		writeError(w, rerr)
		return
	}
	mode, rerr := parseCommercial(r)
	if rerr != nil {
		writeError(w, rerr)
		return
	}

	for _, id := range ids {
		if _, ok := s.Data.VideosByID[id]; !ok {
			writeError(w, errs.NotFound("video id %d not found", id))
			return
		}
	}

	ctx := searchctx.Context{Videos: searchctx.NewU32Set(ids...)}
	result, err := s.Evaluator.Eval(node, ctx)
	if err != nil {
		writeError(w, asRequestError(err))
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, []videoDetail{})
		return
	}

	items := query.ToLazyISetResult(s.Data, result).Items
	out := make([]videoDetail, 0, len(items))
	for _, it := range items {
		v := it.Video
		var ivs interval.Set
		if it.Whole {
			ivs = accumulate.EntireVideoIntervals(v)
		} else {
			ivs = it.Intervals
		}
		ivs = accumulate.JoinCommercials(s.Data.Commercials, v.ID, ivs, mode)
		if len(ivs) == 0 {
			continue
		}
		out = append(out, videoDetail{
			Metadata:  toVideoMetadata(v),
			Intervals: toSecIntervals(ivs),
		})
	}
	var payloadBytes int
	for _, d := range out {
		payloadBytes += len(d.Metadata.Name) + len(d.Metadata.Show) + 8*len(d.Intervals)
	}
	level.Debug(s.Logger).Log(
		"msg", "search-videos result",
		"videos", len(out),
		"approx_size", humanize.Bytes(uint64(payloadBytes)),
	)

	writeJSON(w, http.StatusOK, out)
}

func toVideoMetadata(v *datacontext.Video) videoMetadata {
	return videoMetadata{
		ID:        v.ID,
		Name:      v.Name,
		Channel:   v.Channel,
		Show:      v.Show,
		Date:      v.Date.Format(dateLayout),
		Width:     v.Width,
		Height:    v.Height,
		FPS:       v.FPS,
		NumFrames: v.NumFrames,
	}
}

func toSecIntervals(ivs interval.Set) [][2]float64 {
	sec := make([]interval.SecInterval, len(ivs))
	for i, iv := range ivs {
		sec[i] = interval.SecInterval{Start: float64(iv.Start) / 1000.0, End: float64(iv.End) / 1000.0}
	}
	merged := interval.MergeClose(sec, interval.DefaultMergeCloseFuzzSec)
	out := make([][2]float64, len(merged))
	for i, m := range merged {
		out[i] = [2]float64{m.Start, m.End}
	}
	return out
}

func asRequestError(err error) *errs.RequestError {
	if re, ok := errs.As(err); ok {
		return re
	}
	return errs.Internal(err, "unexpected error")
}

func writeError(w http.ResponseWriter, rerr *errs.RequestError) {
	writeJSON(w, rerr.Status, map[string]string{"error": rerr.Error()})
}
