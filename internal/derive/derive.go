// Package derive implements the offline job that turns the raw face and
// person interval lists into the precomputed indices the query engine
// reads at serve time: the nine face ISetMaps, the num-faces IListMap,
// per-person ISetMaps, and per-tag IListMaps. It is invoked by
// cmd/newsquery-derive, never by the server itself.
package derive

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/index"
	"github.com/tvnews/newsquery/internal/interval"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// faceDataMask covers the three payload bits the face encoding uses:
	// binary gender, nonbinary flag, host flag.
	faceDataMask byte = 0b111

	// minNoFacesMS: a no-faces gap must be longer than this for the
	// num-faces index to record it as its own zero-count segment.
	minNoFacesMS int64 = 1000

	// faceFuzzMS/personFuzzMS/tagFuzzMS coalesce adjacent same-payload
	// detections that are close enough in time to be the same
	// appearance, absorbing tracker jitter between frames.
	faceFuzzMS   int64 = 250
	personFuzzMS int64 = 250
	tagFuzzMS    int64 = 250

	// fullRangeEnd stands in for "no upper bound" when filtering a whole
	// video's intervals; video lengths never come close to it.
	fullRangeEnd int64 = 1 << 40
)

// Options configures one derivation run.
type Options struct {
	DataDir     string
	Incremental bool

	// TagLimit: a tag is precomputed only once at least this many
	// people carry it (or it already has a derived file to refresh).
	TagLimit int
	// PersonThresholdBytes: a person's ilist file must be at least this
	// large before an iset is precomputed for them (or already has one).
	PersonThresholdBytes int64

	Workers    int
	QueueDepth int
}

// DefaultOptions mirrors the upstream derivation CLI's defaults.
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:              dataDir,
		TagLimit:             250,
		PersonThresholdBytes: 1 << 20,
		Workers:              8,
		QueueDepth:           10000,
	}
}

var faceMaskValuePairs = []struct {
	mask, value byte
	file        string
}{
	{0b000, 0b000, "all.iset.bin"},
	{0b011, 0b001, "male.iset.bin"},
	{0b011, 0b000, "female.iset.bin"},
	{0b100, 0b100, "host.iset.bin"},
	{0b100, 0b000, "nonhost.iset.bin"},
	{0b111, 0b101, "male_host.iset.bin"},
	{0b111, 0b001, "male_nonhost.iset.bin"},
	{0b111, 0b100, "female_host.iset.bin"},
	{0b111, 0b000, "female_nonhost.iset.bin"},
}

// Run executes every derivation phase: face isets, the num-faces ilist,
// person isets, and tag ilists. The face, person, and tag phases each
// run their per-file jobs on a worker pool of their own, submitting all
// of a phase's jobs before waiting; the num-faces phase runs inline.
func Run(opts Options, logger log.Logger) error {
	outDir := filepath.Join(opts.DataDir, "derived")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "derive: creating derived dir")
	}

	level.Info(logger).Log("msg", "deriving face isets")
	if err := DeriveFaceISets(opts, logger); err != nil {
		return errors.Wrap(err, "derive: face isets")
	}

	level.Info(logger).Log("msg", "deriving num-faces ilist")
	if err := DeriveNumFacesIList(opts); err != nil {
		return errors.Wrap(err, "derive: num-faces ilist")
	}

	level.Info(logger).Log("msg", "deriving person isets")
	if err := DerivePersonISets(opts, logger); err != nil {
		return errors.Wrap(err, "derive: person isets")
	}

	level.Info(logger).Log("msg", "deriving tag ilists")
	if err := DeriveTagILists(opts, logger); err != nil {
		return errors.Wrap(err, "derive: tag ilists")
	}

	return nil
}

func fullRangeQuery() interval.Set {
	return interval.Set{{Start: 0, End: fullRangeEnd}}
}

// accumulateFiltered intersects every video's payload-filtered face
// interval list against the full video range, then coalesces the result
// with fuzzMS — equivalent to the upstream IntervalAccumulator fed
// entries in start order.
func accumulateFiltered(ilist index.IListMap, mask, value byte, fuzzMS int64) map[uint32]interval.Set {
	out := make(map[uint32]interval.Set)
	for _, id := range ilist.GetIDs() {
		raw := ilist.Intersect(id, fullRangeQuery(), mask, value, false)
		if len(raw) == 0 {
			continue
		}
		coalesced := interval.Deoverlap(interval.List(raw), fuzzMS)
		if len(coalesced) > 0 {
			out[id] = coalesced
		}
	}
	return out
}

// DeriveFaceISets computes and writes the nine face-attribute ISetMaps.
func DeriveFaceISets(opts Options, logger log.Logger) error {
	ilist, err := index.OpenListMap(filepath.Join(opts.DataDir, "faces.ilist.bin"), 1)
	if err != nil {
		return err
	}
	defer ilist.Close()

	outDir := filepath.Join(opts.DataDir, "derived", "face")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	pool := NewPool(opts.Workers, opts.QueueDepth)
	for _, pair := range faceMaskValuePairs {
		pair := pair
		jobID := uuid.New().String()
		outPath := filepath.Join(outDir, pair.file)
		pool.Submit(func() error {
			computed := accumulateFiltered(ilist, pair.mask, pair.value, faceFuzzMS)
			merged, err := mergeIncrementalSet(outPath, computed, opts.Incremental)
			if err != nil {
				return err
			}
			level.Info(logger).Log("msg", "writing face iset", "job_id", jobID, "file", pair.file, "videos", len(merged))
			return index.WriteSetMap(outPath, merged)
		})
	}
	pool.Shutdown()
	return pool.Wait()
}

// mergeIncrementalSet loads any existing output file and adds the
// computed videos it does not already hold; videos already present keep
// their existing intervals. In non-incremental mode it simply returns
// computed.
func mergeIncrementalSet(path string, computed map[uint32]interval.Set, incremental bool) (map[uint32]interval.Set, error) {
	if !incremental {
		return computed, nil
	}
	existing, err := index.ReadSetMapAll(path)
	if err != nil {
		return nil, err
	}
	for id, ivs := range computed {
		if _, ok := existing[id]; !ok {
			existing[id] = ivs
		}
	}
	return existing, nil
}

func mergeIncrementalList(path string, computed map[uint32][]index.PayloadInterval, incremental bool) (map[uint32][]index.PayloadInterval, error) {
	if !incremental {
		return computed, nil
	}
	existing, err := index.ReadListMapAll(path)
	if err != nil {
		return nil, err
	}
	for id, pis := range computed {
		if _, ok := existing[id]; !ok {
			existing[id] = pis
		}
	}
	return existing, nil
}

// DeriveNumFacesIList computes the video-total-complete concurrent-face
// count ilist: one record per maximal run of a constant face count,
// including explicit zero-count fillers over any no-faces gap longer
// than minNoFacesMS.
func DeriveNumFacesIList(opts Options) error {
	ilist, err := index.OpenListMap(filepath.Join(opts.DataDir, "faces.ilist.bin"), 1)
	if err != nil {
		return err
	}
	defer ilist.Close()

	durations, err := datacontext.LoadVideoDurationsMS(opts.DataDir)
	if err != nil {
		return err
	}

	outPath := filepath.Join(opts.DataDir, "derived", "num_faces.ilist.bin")
	var skip map[uint32]struct{}
	if opts.Incremental {
		if existing, err := index.ReadListMapAll(outPath); err == nil {
			skip = make(map[uint32]struct{}, len(existing))
			for id := range existing {
				skip[id] = struct{}{}
			}
		}
	}

	computed := make(map[uint32][]index.PayloadInterval)
	for _, id := range ilist.GetIDs() {
		if _, ok := skip[id]; ok {
			continue
		}
		computed[id] = numFacesForVideo(ilist.GetIntervalsWithPayload(id, false), durations[id])
	}

	merged, err := mergeIncrementalList(outPath, computed, opts.Incremental)
	if err != nil {
		return err
	}
	return index.WriteListMap(outPath, merged)
}

// numFacesForVideo walks one video's raw (possibly duplicated,
// start-sorted) face detections and produces the gap-filled,
// coalesced concurrent-count segments.
func numFacesForVideo(raw []index.PayloadInterval, durationMS int64) []index.PayloadInterval {
	var segments []index.PayloadInterval
	var curr *index.PayloadInterval
	var count byte

	flush := func(nextStart int64) {
		segments = append(segments, index.PayloadInterval{Start: curr.Start, End: curr.End, Payload: count})
		if nextStart-curr.End > minNoFacesMS {
			segments = append(segments, index.PayloadInterval{Start: curr.End, End: nextStart, Payload: 0})
		}
	}

	for _, pi := range raw {
		if curr == nil {
			if pi.Start > 0 && pi.Start > minNoFacesMS {
				segments = append(segments, index.PayloadInterval{Start: 0, End: pi.Start, Payload: 0})
			}
			c := pi
			curr = &c
			count = 1
			continue
		}
		if pi.Start == curr.Start && pi.End == curr.End {
			count++
			continue
		}
		flush(pi.Start)
		c := pi
		curr = &c
		count = 1
	}

	if curr != nil {
		segments = append(segments, index.PayloadInterval{Start: curr.Start, End: curr.End, Payload: count})
		if durationMS-curr.End > minNoFacesMS {
			segments = append(segments, index.PayloadInterval{Start: curr.End, End: durationMS, Payload: 0})
		}
	} else {
		segments = append(segments, index.PayloadInterval{Start: 0, End: durationMS, Payload: 0})
	}

	return deoverlapByPayload(segments, faceFuzzMS)
}

// deoverlapByPayload coalesces consecutive equal-payload segments whose
// gap is within fuzzMS, the payload-aware counterpart to interval.Deoverlap.
func deoverlapByPayload(in []index.PayloadInterval, fuzzMS int64) []index.PayloadInterval {
	out := make([]index.PayloadInterval, 0, len(in))
	for _, pi := range in {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.Payload == pi.Payload && pi.Start-last.End <= fuzzMS {
				if pi.End > last.End {
					last.End = pi.End
				}
				continue
			}
		}
		out = append(out, pi)
	}
	return out
}

// personFileName strips the double .ilist.bin extension a person file
// carries, returning the raw (not yet display-cased) person name.
func personFileName(fname string) string {
	base := strings.TrimSuffix(fname, filepath.Ext(fname))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DerivePersonISets precomputes an ISetMap for every person whose ilist
// file is at least PersonThresholdBytes, or which already has a derived
// file from a previous run.
func DerivePersonISets(opts Options, logger log.Logger) error {
	ilistDir := filepath.Join(opts.DataDir, "people")
	outDir := filepath.Join(opts.DataDir, "derived", "people")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(ilistDir)
	if err != nil {
		return err
	}

	pool := NewPool(opts.Workers, opts.QueueDepth)
	skipped := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".ilist.bin") {
			continue
		}
		name := personFileName(e.Name())
		inPath := filepath.Join(ilistDir, e.Name())
		outPath := filepath.Join(outDir, name+".iset.bin")

		info, err := e.Info()
		if err != nil {
			return err
		}
		if _, err := os.Stat(outPath); os.IsNotExist(err) && info.Size() < opts.PersonThresholdBytes {
			skipped++
			continue
		}

		jobID := uuid.New().String()
		pool.Submit(func() error {
			ilist, err := index.OpenListMap(inPath, 1)
			if err != nil {
				return err
			}
			defer ilist.Close()
			computed := accumulateFiltered(ilist, 0, 0, personFuzzMS)
			merged, err := mergeIncrementalSet(outPath, computed, opts.Incremental)
			if err != nil {
				return err
			}
			level.Info(logger).Log("msg", "writing person iset", "job_id", jobID, "person", name, "videos", len(merged))
			return index.WriteSetMap(outPath, merged)
		})
	}
	pool.Shutdown()
	if err := pool.Wait(); err != nil {
		return err
	}
	if skipped > 0 {
		level.Info(logger).Log("msg", "skipped small person files", "count", skipped)
	}
	return nil
}

// DeriveTagILists merges per-person ilists into one ilist per metadata
// tag, for every tag carried by at least TagLimit people (or which
// already has a derived file).
func DeriveTagILists(opts Options, logger log.Logger) error {
	ilistDir := filepath.Join(opts.DataDir, "people")
	metaPath := filepath.Join(opts.DataDir, "people.metadata.json")
	outDir := filepath.Join(opts.DataDir, "derived", "tags")

	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		level.Info(logger).Log("msg", "no people.metadata.json, skipping tag derivation")
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	available := make(map[string]struct{})
	entries, err := os.ReadDir(ilistDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".ilist.bin") {
			available[strings.ToLower(personFileName(e.Name()))] = struct{}{}
		}
	}

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return err
	}
	var parsed map[string][][2]string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return errors.Wrap(err, "derive: parsing people.metadata.json")
	}

	tagToPeople := make(map[string][]string)
	for person, pairs := range parsed {
		lower := strings.ToLower(person)
		if _, ok := available[lower]; !ok {
			continue
		}
		for _, pair := range pairs {
			tagToPeople[pair[0]] = append(tagToPeople[pair[0]], person)
		}
	}

	pool := NewPool(opts.Workers, opts.QueueDepth)
	for tag, people := range tagToPeople {
		tag, people := tag, people
		outPath := filepath.Join(outDir, tag+".ilist.bin")
		_, statErr := os.Stat(outPath)
		if statErr != nil && len(people) < opts.TagLimit {
			continue
		}
		jobID := uuid.New().String()
		pool.Submit(func() error {
			lists := make([]index.IListMap, 0, len(people))
			for _, p := range people {
				l, err := index.OpenListMap(filepath.Join(ilistDir, p+".ilist.bin"), 1)
				if err != nil {
					return err
				}
				defer l.Close()
				lists = append(lists, l)
			}
			computed := mergeTagIntervals(lists)
			merged, err := mergeIncrementalList(outPath, computed, opts.Incremental)
			if err != nil {
				return err
			}
			level.Info(logger).Log("msg", "writing tag ilist", "job_id", jobID, "tag", tag, "people", len(people), "videos", len(merged))
			return index.WriteListMap(outPath, merged)
		})
	}
	pool.Shutdown()
	return pool.Wait()
}

// mergeTagIntervals unions every list's postings per video, coalesces
// same-payload runs within tagFuzzMS (the ilist equivalent of
// heapq.merge plus a per-payload IntervalAccumulator), then interleaves
// the per-payload results back into one start-sorted list.
func mergeTagIntervals(lists []index.IListMap) map[uint32][]index.PayloadInterval {
	videoIDs := unionIDs(lists)
	out := make(map[uint32][]index.PayloadInterval, len(videoIDs))

	for _, id := range videoIDs {
		var all []index.PayloadInterval
		for _, l := range lists {
			all = append(all, l.GetIntervalsWithPayload(id, false)...)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })

		byPayload := make(map[byte]interval.List)
		for _, pi := range all {
			key := pi.Payload & faceDataMask
			byPayload[key] = append(byPayload[key], interval.Interval{Start: pi.Start, End: pi.End})
		}

		var merged []index.PayloadInterval
		for payload, list := range byPayload {
			for _, iv := range interval.Deoverlap(list, tagFuzzMS) {
				merged = append(merged, index.PayloadInterval{Start: iv.Start, End: iv.End, Payload: payload})
			}
		}
		sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
		out[id] = merged
	}
	return out
}

func unionIDs(lists []index.IListMap) []uint32 {
	seen := make(map[uint32]struct{})
	for _, l := range lists {
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
