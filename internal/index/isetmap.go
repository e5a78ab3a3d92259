package index

import (
	"encoding/binary"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"github.com/tvnews/newsquery/internal/interval"
)

const isetRecordSize = 8 // start u32, end u32

// ISetMap is the read-only interface every composed view also implements:
// a random-access, per-video sorted-disjoint interval set.
type ISetMap interface {
	GetIntervals(videoID uint32, deoverlap bool) interval.Set
	Intersect(videoID uint32, query interval.Set, deoverlap bool) interval.Set
	Minus(videoID uint32, query interval.Set, deoverlap bool) interval.Set
	IsContained(videoID uint32, t int64, deoverlap bool) bool
	IntersectSum(videoID uint32, query interval.Set, deoverlap bool) int64
	GetIDs() []uint32
	HasID(videoID uint32) bool
}

// SetMapReader is an mmapped ISetMap.bin file: *.iset.bin.
type SetMapReader struct {
	f   *os.File
	mm  mmap.MMap
	dir directory
}

// OpenSetMap mmaps path read-only and parses its directory.
func OpenSetMap(path string) (*SetMapReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "index: open iset")
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "index: mmap iset")
	}
	_, videoCount, err := parseHeader(m, magicISetMap)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}
	dir, _, err := parseDirectory(m, videoCount)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}
	return &SetMapReader{f: f, mm: m, dir: dir}, nil
}

// Close unmaps the file and releases the descriptor. Safe to call once
// all composed views referencing this reader have gone out of scope.
func (r *SetMapReader) Close() error {
	if err := r.mm.Unmap(); err != nil {
		return err
	}
	return r.f.Close()
}

func (r *SetMapReader) recordsFor(videoID uint32) interval.Set {
	e, ok := r.dir.find(videoID)
	if !ok {
		return nil
	}
	out := make(interval.Set, e.entryCount)
	off := int(e.byteOffset)
	for i := range out {
		start := binary.LittleEndian.Uint32(r.mm[off : off+4])
		end := binary.LittleEndian.Uint32(r.mm[off+4 : off+8])
		out[i] = interval.Interval{Start: int64(start), End: int64(end)}
		off += isetRecordSize
	}
	return out
}

func (r *SetMapReader) GetIntervals(videoID uint32, deoverlap bool) interval.Set {
	s := r.recordsFor(videoID)
	if deoverlap {
		return interval.Deoverlap(interval.List(s), interval.DefaultRuntimeFuzzMS)
	}
	return s
}

func (r *SetMapReader) Intersect(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	out := interval.Intersect(r.recordsFor(videoID), query)
	if deoverlap {
		return interval.Deoverlap(interval.List(out), interval.DefaultRuntimeFuzzMS)
	}
	return out
}

// Minus subtracts this map's own data from query (e.g. stripping
// commercial-break time out of a set of matched intervals), not the
// other way around.
func (r *SetMapReader) Minus(videoID uint32, query interval.Set, deoverlap bool) interval.Set {
	out := interval.Subtract(query, r.recordsFor(videoID))
	if deoverlap {
		return interval.Deoverlap(interval.List(out), interval.DefaultRuntimeFuzzMS)
	}
	return out
}

func (r *SetMapReader) IsContained(videoID uint32, t int64, deoverlap bool) bool {
	for _, iv := range r.GetIntervals(videoID, deoverlap) {
		if t >= iv.Start && t < iv.End {
			return true
		}
	}
	return false
}

func (r *SetMapReader) IntersectSum(videoID uint32, query interval.Set, deoverlap bool) int64 {
	return r.Intersect(videoID, query, deoverlap).Sum()
}

func (r *SetMapReader) GetIDs() []uint32 {
	return r.dir.ids()
}

func (r *SetMapReader) HasID(videoID uint32) bool {
	_, ok := r.dir.find(videoID)
	return ok
}
