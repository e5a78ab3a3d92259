package index

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/tvnews/newsquery/internal/interval"
)

// buildSetMapFile writes a minimal ISetMap file for videos in order and
// returns its path. Each entry in data is a video's sorted disjoint
// interval set.
func buildSetMapFile(t *testing.T, data map[uint32]interval.Set) string {
	t.Helper()

	ids := sortedKeys(data)
	dirBuf := make([]byte, 0, len(ids)*dirEntrySize)
	recBuf := make([]byte, 0)
	off := uint64(headerSize + len(ids)*dirEntrySize)

	for _, id := range ids {
		ivs := data[id]
		e := make([]byte, dirEntrySize)
		writeDirEntry(e, dirEntry{videoID: id, byteOffset: off, entryCount: uint32(len(ivs))})
		dirBuf = append(dirBuf, e...)

		for _, iv := range ivs {
			rec := make([]byte, isetRecordSize)
			binary.LittleEndian.PutUint32(rec[0:4], uint32(iv.Start))
			binary.LittleEndian.PutUint32(rec[4:8], uint32(iv.End))
			recBuf = append(recBuf, rec...)
		}
		off += uint64(len(ivs)) * isetRecordSize
	}

	header := writeHeader(magicISetMap, 0, uint32(len(ids)))
	all := append(header, dirBuf...)
	all = append(all, recBuf...)

	f, err := os.CreateTemp(t.TempDir(), "*.iset.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(all); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

// buildListMapFile writes a minimal P=1 IListMap file.
func buildListMapFile(t *testing.T, data map[uint32][]PayloadInterval) string {
	t.Helper()

	ids := sortedKeys(data)
	dirBuf := make([]byte, 0, len(ids)*dirEntrySize)
	recBuf := make([]byte, 0)
	const recSize = 9 // start u32, end u32, payload u8
	off := uint64(headerSize + len(ids)*dirEntrySize)

	for _, id := range ids {
		pis := data[id]
		e := make([]byte, dirEntrySize)
		writeDirEntry(e, dirEntry{videoID: id, byteOffset: off, entryCount: uint32(len(pis))})
		dirBuf = append(dirBuf, e...)

		for _, pi := range pis {
			rec := make([]byte, recSize)
			binary.LittleEndian.PutUint32(rec[0:4], uint32(pi.Start))
			binary.LittleEndian.PutUint32(rec[4:8], uint32(pi.End))
			rec[8] = pi.Payload
			recBuf = append(recBuf, rec...)
		}
		off += uint64(len(pis)) * uint64(recSize)
	}

	header := writeHeader(magicIListMap, 1, uint32(len(ids)))
	all := append(header, dirBuf...)
	all = append(all, recBuf...)

	f, err := os.CreateTemp(t.TempDir(), "*.ilist.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(all); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func sortedKeys(data interface{}) []uint32 {
	var ids []uint32
	switch m := data.(type) {
	case map[uint32]interval.Set:
		for id := range m {
			ids = append(ids, id)
		}
	case map[uint32][]PayloadInterval:
		for id := range m {
			ids = append(ids, id)
		}
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
