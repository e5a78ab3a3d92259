package index

import (
	"encoding/binary"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/tvnews/newsquery/internal/interval"
)

// WriteSetMap writes a complete ISetMap file to path. Unlike the upstream
// writer it does not support true incremental append; the derivation
// pipeline achieves "incremental" runs by reading any existing file first
// (ReadSetMapAll), adding the computed videos the file does not already
// hold, and rewriting the whole file. Files in this system are small
// enough (one per face mask, person, or tag) that a full rewrite is cheap.
func WriteSetMap(path string, data map[uint32]interval.Set) error {
	ids := make([]uint32, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

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

	all := writeHeader(magicISetMap, 0, uint32(len(ids)))
	all = append(all, dirBuf...)
	all = append(all, recBuf...)
	return atomicWriteFile(path, all)
}

// WriteListMap writes a complete P=1 IListMap file to path.
func WriteListMap(path string, data map[uint32][]PayloadInterval) error {
	ids := make([]uint32, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	const recSize = 9
	dirBuf := make([]byte, 0, len(ids)*dirEntrySize)
	recBuf := make([]byte, 0)
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

	all := writeHeader(magicIListMap, 1, uint32(len(ids)))
	all = append(all, dirBuf...)
	all = append(all, recBuf...)
	return atomicWriteFile(path, all)
}

// ReadSetMapAll opens path (if it exists) and returns every video's
// intervals as a plain map, for merging ahead of an incremental rewrite.
// A missing file is not an error; it returns an empty map.
func ReadSetMapAll(path string) (map[uint32]interval.Set, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[uint32]interval.Set{}, nil
	}
	r, err := OpenSetMap(path)
	if err != nil {
		return nil, errors.Wrap(err, "index: read existing iset")
	}
	defer r.Close()

	out := make(map[uint32]interval.Set)
	for _, id := range r.GetIDs() {
		out[id] = r.GetIntervals(id, false)
	}
	return out, nil
}

// ReadListMapAll opens path (if it exists) and returns every video's
// payload intervals as a plain map.
func ReadListMapAll(path string) (map[uint32][]PayloadInterval, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[uint32][]PayloadInterval{}, nil
	}
	r, err := OpenListMap(path, 1)
	if err != nil {
		return nil, errors.Wrap(err, "index: read existing ilist")
	}
	defer r.Close()

	out := make(map[uint32][]PayloadInterval)
	for _, id := range r.GetIDs() {
		out[id] = r.GetIntervalsWithPayload(id, false)
	}
	return out, nil
}

// atomicWriteFile writes to a temp file in the same directory then renames
// over path, so a reader mmapping the old file never observes a partial
// write.
func atomicWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "index: write temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "index: rename temp file")
	}
	return nil
}
