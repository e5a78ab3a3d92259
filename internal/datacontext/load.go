package datacontext

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/tvnews/newsquery/internal/index"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config controls where Load looks for each on-disk artifact and the
// thresholds applied while filtering what it loads.
type Config struct {
	DataDir string

	// MinPersonScreenTimeSeconds excludes any person whose total
	// measured screen time falls below this threshold.
	MinPersonScreenTimeSeconds float64
}

// DataContext is the immutable, shared-read-only view of everything a
// query evaluates against. Built once by Load; never mutated afterward.
type DataContext struct {
	VideosByID   map[uint32]*Video
	VideosByName map[string]*Video
	OrderedVideoIDs []uint32

	Commercials index.ISetMap
	Faces       FaceIntervals

	// PersonsByName is keyed by lowercased person name;
	// PersonNamesSorted lists those keys in sorted order.
	PersonsByName map[string]*PersonIntervals
	PersonNamesSorted []string

	PersonTags AllPersonTags

	// TagIntervals holds precomputed per-tag ilists produced by the
	// derivation pipeline, keyed by sanitized tag name.
	TagIntervals map[string]index.IListMap

	// HostChannels maps a lowercased person name to the set of
	// channels on which they are a credited host.
	HostChannels map[string]map[string]struct{}
}

// Load reads every on-disk artifact under cfg.DataDir once and returns
// the assembled, read-only DataContext. logger receives progress
// messages at Info level, mirroring a long-running offline-style load.
func Load(cfg Config, logger log.Logger) (*DataContext, error) {
	level.Info(logger).Log("msg", "loading video metadata")
	videosByID, videosByName, orderedIDs, err := loadVideos(filepath.Join(cfg.DataDir, "videos.json"))
	if err != nil {
		return nil, errors.Wrap(err, "datacontext: loading videos")
	}

	level.Info(logger).Log("msg", "loading commercial intervals")
	commercials, err := index.OpenSetMap(filepath.Join(cfg.DataDir, "commercials.iset.bin"))
	if err != nil {
		return nil, errors.Wrap(err, "datacontext: loading commercials")
	}

	level.Info(logger).Log("msg", "loading face intervals")
	faces, err := loadFaceIntervals(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "datacontext: loading face intervals")
	}

	level.Info(logger).Log("msg", "loading person intervals")
	persons, personNames, err := loadPersonIntervals(cfg.DataDir, cfg.MinPersonScreenTimeSeconds, logger)
	if err != nil {
		return nil, errors.Wrap(err, "datacontext: loading person intervals")
	}

	level.Info(logger).Log("msg", "loading person metadata tags")
	tags, err := loadPersonTags(cfg.DataDir, persons)
	if err != nil {
		return nil, errors.Wrap(err, "datacontext: loading person tags")
	}

	level.Info(logger).Log("msg", "loading cached tag intervals")
	tagIntervals, err := loadTagIntervals(filepath.Join(cfg.DataDir, "derived", "tags"))
	if err != nil {
		return nil, errors.Wrap(err, "datacontext: loading tag intervals")
	}

	hostChannels, err := loadHostChannels(filepath.Join(cfg.DataDir, "hosts.csv"))
	if err != nil {
		return nil, errors.Wrap(err, "datacontext: loading host channels")
	}

	level.Info(logger).Log("msg", "data load complete",
		"videos", len(videosByID), "people", len(persons))

	return &DataContext{
		VideosByID:        videosByID,
		VideosByName:      videosByName,
		OrderedVideoIDs:   orderedIDs,
		Commercials:       commercials,
		Faces:             faces,
		PersonsByName:     persons,
		PersonNamesSorted: personNames,
		PersonTags:        tags,
		TagIntervals:      tagIntervals,
		HostChannels:      hostChannels,
	}, nil
}

type rawVideo struct {
	ID        uint32
	Name      string
	Show      string
	Channel   string
	NumFrames int
	FPS       float64
	Width     int
	Height    int
}

// UnmarshalJSON decodes a video record stored as a flat JSON tuple
// [id, name, show, channel, num_frames, fps, width, height].
func (r *rawVideo) UnmarshalJSON(b []byte) error {
	var tuple []jsoniter.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) < 8 {
		return errors.Errorf("datacontext: video tuple has %d fields, want 8", len(tuple))
	}
	fields := []interface{}{
		&r.ID, &r.Name, &r.Show, &r.Channel, &r.NumFrames, &r.FPS, &r.Width, &r.Height,
	}
	for i, f := range fields {
		if err := json.Unmarshal(tuple[i], f); err != nil {
			return errors.Wrapf(err, "datacontext: decoding video field %d", i)
		}
	}
	return nil
}

// LoadVideoDurationsMS reads videos.json and returns each video's runtime
// in milliseconds, keyed by id. Used by the derivation pipeline, which
// needs video length to pad the num-faces index to full coverage but has
// no use for the rest of Video (and must not fail on a name that doesn't
// parse as a broadcast timestamp).
func LoadVideoDurationsMS(dataDir string) (map[uint32]int64, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "videos.json"))
	if err != nil {
		return nil, err
	}
	var records []rawVideo
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrap(err, "parsing videos.json")
	}
	out := make(map[uint32]int64, len(records))
	for _, rv := range records {
		if rv.FPS <= 0 {
			out[rv.ID] = 0
			continue
		}
		out[rv.ID] = int64(float64(rv.NumFrames) / rv.FPS * 1000)
	}
	return out, nil
}

func videoBaseName(name string) string {
	base := filepath.Base(name)
	if strings.HasSuffix(base, ".word.srt") {
		return strings.TrimSuffix(base, ".word.srt")
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func loadVideos(path string) (byID map[uint32]*Video, byName map[string]*Video, ordered []uint32, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	var records []rawVideo
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, nil, nil, errors.Wrap(err, "parsing videos.json")
	}

	byID = make(map[uint32]*Video, len(records))
	byName = make(map[string]*Video, len(records))
	ordered = make([]uint32, 0, len(records))

	for _, rv := range records {
		name := videoBaseName(rv.Name)
		date, dow, hour, err := parseDateFromVideoName(name)
		if err != nil {
			return nil, nil, nil, err
		}
		v := &Video{
			ID:        rv.ID,
			Name:      name,
			Show:      rv.Show,
			Channel:   rv.Channel,
			Date:      date,
			DayOfWeek: dow,
			Hour:      hour,
			NumFrames: rv.NumFrames,
			FPS:       rv.FPS,
			Width:     rv.Width,
			Height:    rv.Height,
		}
		byID[v.ID] = v
		byName[v.Name] = v
		ordered = append(ordered, v.ID)
	}
	return byID, byName, ordered, nil
}

func loadFaceIntervals(dataDir string) (FaceIntervals, error) {
	faceISetDir := filepath.Join(dataDir, "derived", "face")

	allIList, err := index.OpenListMap(filepath.Join(dataDir, "faces.ilist.bin"), 1)
	if err != nil {
		return FaceIntervals{}, err
	}
	numFacesIList, err := index.OpenListMap(filepath.Join(dataDir, "derived", "num_faces.ilist.bin"), 1)
	if err != nil {
		return FaceIntervals{}, err
	}

	open := func(name string) (index.ISetMap, error) {
		return index.OpenSetMap(filepath.Join(faceISetDir, name))
	}
	var f FaceIntervals
	f.AllIListMap = allIList
	f.NumFacesIListMap = numFacesIList

	pairs := []struct {
		file string
		dst  *index.ISetMap
	}{
		{"all.iset.bin", &f.AllISetMap},
		{"male.iset.bin", &f.MaleISetMap},
		{"female.iset.bin", &f.FemaleISetMap},
		{"host.iset.bin", &f.HostISetMap},
		{"nonhost.iset.bin", &f.NonhostISetMap},
		{"male_host.iset.bin", &f.MaleHostISetMap},
		{"female_host.iset.bin", &f.FemaleHostISetMap},
		{"male_nonhost.iset.bin", &f.MaleNonhostISetMap},
		{"female_nonhost.iset.bin", &f.FemaleNonhostISetMap},
	}
	for _, p := range pairs {
		m, err := open(p.file)
		if err != nil {
			return FaceIntervals{}, err
		}
		*p.dst = m
	}
	return f, nil
}

// personRecordBytes backs the cheap pre-open rejection in
// loadPersonIntervals: treating every record as 4 bytes keeps the
// resulting maxPossibleSeconds a deliberate over-estimate (the real
// per-record size is larger once start/end/payload are packed in), so
// a person whose true screen time could still clear the threshold is
// never skipped before the authoritative post-open remeasurement.
const personRecordBytes = 4

func loadPersonIntervals(dataDir string, minScreenTimeSeconds float64, logger log.Logger) (map[string]*PersonIntervals, []string, error) {
	ilistDir := filepath.Join(dataDir, "people")
	isetDir := filepath.Join(dataDir, "derived", "people")

	entries, err := os.ReadDir(ilistDir)
	if err != nil {
		return nil, nil, err
	}

	prefixes := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		prefixes[personFilePrefix(e.Name())] = struct{}{}
	}

	result := make(map[string]*PersonIntervals, len(prefixes))
	skipped := 0

	for prefix := range prefixes {
		name := sanitizePersonName(prefix)
		nameLower := strings.ToLower(name)

		ilistPath := filepath.Join(ilistDir, prefix+".ilist.bin")
		fi, err := os.Stat(ilistPath)
		if err != nil {
			skipped++
			continue
		}
		// Each record holds at most ~3s of footage in practice; a file
		// this small cannot reach the threshold even optimistically.
		maxPossibleSeconds := float64(fi.Size()) / personRecordBytes / 2 * 3
		if maxPossibleSeconds < minScreenTimeSeconds {
			skipped++
			continue
		}

		ilist, err := index.OpenListMap(ilistPath, 1)
		if err != nil {
			skipped++
			continue
		}

		isetPath := filepath.Join(isetDir, prefix+".iset.bin")
		var iset index.ISetMap
		if _, err := os.Stat(isetPath); err == nil {
			iset, err = index.OpenSetMap(isetPath)
			if err != nil {
				skipped++
				continue
			}
		} else {
			iset = index.NewIListToISet(ilist, 0, 0, 3000, 100)
		}

		screenTimeMS := sumAllIntervals(iset)
		screenTimeSeconds := float64(screenTimeMS) / 1000
		if screenTimeSeconds < minScreenTimeSeconds {
			skipped++
			continue
		}

		result[nameLower] = &PersonIntervals{
			Name:              name,
			IListMap:          ilist,
			ISetMap:           iset,
			ScreenTimeSeconds: screenTimeSeconds,
		}
	}

	names := make([]string, 0, len(result))
	for n := range result {
		names = append(names, n)
	}
	sort.Strings(names)

	level.Info(logger).Log("msg", "loaded person intervals", "loaded", len(result), "skipped", skipped)
	return result, names, nil
}

func sumAllIntervals(m index.ISetMap) int64 {
	var total int64
	for _, id := range m.GetIDs() {
		for _, iv := range m.GetIntervals(id, false) {
			total += iv.End - iv.Start
		}
	}
	return total
}

func personFilePrefix(fname string) string {
	base := strings.TrimSuffix(fname, filepath.Ext(fname))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sanitizePersonName(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == ' ' || r == ':' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func loadPersonTags(dataDir string, persons map[string]*PersonIntervals) (AllPersonTags, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "people.metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return NewAllPersonTags(nil), nil
		}
		return AllPersonTags{}, err
	}

	var parsed map[string][][2]string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return AllPersonTags{}, errors.Wrap(err, "parsing people.metadata.json")
	}

	personToTags := make(map[string][]Tag)
	for name, pairs := range parsed {
		nameLower := strings.ToLower(name)
		if _, ok := persons[nameLower]; !ok {
			continue
		}
		var tags []Tag
		for _, pair := range pairs {
			tag := sanitizeTag(pair[0])
			if len(tag) > minPersonAttributeLen && len(tag) < maxPersonAttributeLen {
				tags = append(tags, Tag{Name: tag, Source: pair[1]})
			}
		}
		personToTags[nameLower] = tags
	}
	return NewAllPersonTags(personToTags), nil
}

func loadTagIntervals(tagDir string) (map[string]index.IListMap, error) {
	entries, err := os.ReadDir(tagDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]index.IListMap{}, nil
		}
		return nil, err
	}
	out := make(map[string]index.IListMap, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		tagName := sanitizeTag(personFilePrefix(e.Name()))
		m, err := index.OpenListMap(filepath.Join(tagDir, e.Name()), 1)
		if err != nil {
			return nil, err
		}
		out[tagName] = m
	}
	return out, nil
}

func loadHostChannels(path string) (map[string]map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]map[string]struct{}{}, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]struct{})
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(row[0]))
		channel := strings.TrimSpace(row[1])
		if out[name] == nil {
			out[name] = make(map[string]struct{})
		}
		out[name][channel] = struct{}{}
	}
	return out, nil
}
