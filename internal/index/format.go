// Package index implements the two on-disk, mmapped, random-access binary
// formats the engine reads: ISetMap (video -> sorted disjoint intervals)
// and IListMap (video -> sorted intervals with a small payload), plus the
// lazy composed views built on top of them. Layout is grounded on
// friggdb/encoding's directory-plus-packed-records shape: a header, a
// directory mapping id -> (offset, length), and a packed payload section.
package index

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"
)

// magic identifies the two binary formats. Present purely so a reader
// refuses to mmap a file of the wrong kind.
const (
	magicISetMap  uint32 = 0x49534554 // "ISET"
	magicIListMap uint32 = 0x494c5354 // "ILST"

	headerSize = 16 // magic u32, payloadLen u32, videoCount u32, reserved u32
	dirEntrySize = 16 // videoID u32, byteOffset u64, entryCount u32
)

// dirEntry is one record in the directory section.
type dirEntry struct {
	videoID     uint32
	byteOffset  uint64
	entryCount  uint32
}

// directory is a video_id-sorted slice of dirEntry, binary-searchable.
type directory []dirEntry

func (d directory) find(videoID uint32) (dirEntry, bool) {
	i := sort.Search(len(d), func(i int) bool { return d[i].videoID >= videoID })
	if i < len(d) && d[i].videoID == videoID {
		return d[i], true
	}
	return dirEntry{}, false
}

func (d directory) ids() []uint32 {
	ids := make([]uint32, len(d))
	for i, e := range d {
		ids[i] = e.videoID
	}
	return ids
}

func parseHeader(b []byte, wantMagic uint32) (payloadLen, videoCount uint32, err error) {
	if len(b) < headerSize {
		return 0, 0, errors.New("index: truncated header")
	}
	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != wantMagic {
		return 0, 0, errors.Errorf("index: bad magic %x, want %x", magic, wantMagic)
	}
	payloadLen = binary.LittleEndian.Uint32(b[4:8])
	videoCount = binary.LittleEndian.Uint32(b[8:12])
	return payloadLen, videoCount, nil
}

func parseDirectory(b []byte, videoCount uint32) (directory, int, error) {
	need := headerSize + int(videoCount)*dirEntrySize
	if len(b) < need {
		return nil, 0, errors.New("index: truncated directory")
	}
	dir := make(directory, videoCount)
	off := headerSize
	for i := range dir {
		dir[i] = dirEntry{
			videoID:    binary.LittleEndian.Uint32(b[off : off+4]),
			byteOffset: binary.LittleEndian.Uint64(b[off+4 : off+12]),
			entryCount: binary.LittleEndian.Uint32(b[off+12 : off+16]),
		}
		off += dirEntrySize
	}
	if !sort.SliceIsSorted(dir, func(i, j int) bool { return dir[i].videoID < dir[j].videoID }) {
		return nil, 0, errors.New("index: directory not sorted by video id")
	}
	return dir, off, nil
}

// writeHeader and writeDirectory support the derivation pipeline (component
// H), which is the only code that ever produces these files.
func writeHeader(magic, payloadLen, videoCount uint32) []byte {
	b := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(b[0:4], magic)
	binary.LittleEndian.PutUint32(b[4:8], payloadLen)
	binary.LittleEndian.PutUint32(b[8:12], videoCount)
	return b
}

func writeDirEntry(b []byte, e dirEntry) {
	binary.LittleEndian.PutUint32(b[0:4], e.videoID)
	binary.LittleEndian.PutUint64(b[4:12], e.byteOffset)
	binary.LittleEndian.PutUint32(b[12:16], e.entryCount)
}

