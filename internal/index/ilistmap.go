package index

import (
	"encoding/binary"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"github.com/tvnews/newsquery/internal/interval"
)

// PayloadInterval is a (start, end) interval carrying a single payload
// byte; the low 3 bits encode face gender/role attributes (see
// datacontext.FacePayload).
type PayloadInterval struct {
	Start   int64
	End     int64
	Payload byte
}

// IListMap is the read-only interface for a per-video interval list with
// payloads: *.ilist.bin.
type IListMap interface {
	GetIntervalsWithPayload(videoID uint32, deoverlap bool) []PayloadInterval
	// Intersect filters entries by payload mask/value then intersects
	// against query, returning plain intervals (payload dropped).
	Intersect(videoID uint32, query interval.Set, mask, value byte, deoverlap bool) interval.Set
	GetIDs() []uint32
	HasID(videoID uint32) bool
}

// ListMapReader is an mmapped IListMap file. PayloadLen is fixed at open
// time (P=1 for every face/person ilist in this system).
type ListMapReader struct {
	f          *os.File
	mm         mmap.MMap
	dir        directory
	payloadLen int
	recordSize int
}

// OpenListMap mmaps path read-only and parses its directory. payloadLen
// must match the P the file was written with.
func OpenListMap(path string, payloadLen int) (*ListMapReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "index: open ilist")
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "index: mmap ilist")
	}
	gotPayloadLen, videoCount, err := parseHeader(m, magicIListMap)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}
	if int(gotPayloadLen) != payloadLen {
		m.Unmap()
		f.Close()
		return nil, errors.Errorf("index: ilist payload length mismatch: file has %d, want %d", gotPayloadLen, payloadLen)
	}
	dir, _, err := parseDirectory(m, videoCount)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}
	return &ListMapReader{
		f: f, mm: m, dir: dir,
		payloadLen: payloadLen,
		recordSize: 8 + payloadLen,
	}, nil
}

// Close unmaps the file and releases the descriptor.
func (r *ListMapReader) Close() error {
	if err := r.mm.Unmap(); err != nil {
		return err
	}
	return r.f.Close()
}

func (r *ListMapReader) GetIntervalsWithPayload(videoID uint32, deoverlap bool) []PayloadInterval {
	e, ok := r.dir.find(videoID)
	if !ok {
		return nil
	}
	out := make([]PayloadInterval, e.entryCount)
	off := int(e.byteOffset)
	for i := range out {
		start := binary.LittleEndian.Uint32(r.mm[off : off+4])
		end := binary.LittleEndian.Uint32(r.mm[off+4 : off+8])
		// Only P=1 payloads are used in this system; the format allows
		// wider payloads but nothing in this repo writes them.
		payload := r.mm[off+8]
		out[i] = PayloadInterval{Start: int64(start), End: int64(end), Payload: payload}
		off += r.recordSize
	}
	if !deoverlap {
		return out
	}
	return out
}

func (r *ListMapReader) Intersect(videoID uint32, query interval.Set, mask, value byte, deoverlap bool) interval.Set {
	raw := r.GetIntervalsWithPayload(videoID, false)
	filtered := make(interval.List, 0, len(raw))
	for _, pi := range raw {
		if pi.Payload&mask != value {
			continue
		}
		filtered = append(filtered, interval.Interval{Start: pi.Start, End: pi.End})
	}
	var base interval.Set
	if deoverlap {
		base = interval.Deoverlap(filtered, interval.DefaultRuntimeFuzzMS)
	} else {
		base = interval.Set(filtered)
	}
	return interval.Intersect(base, query)
}

func (r *ListMapReader) GetIDs() []uint32 {
	return r.dir.ids()
}

func (r *ListMapReader) HasID(videoID uint32) bool {
	_, ok := r.dir.find(videoID)
	return ok
}
