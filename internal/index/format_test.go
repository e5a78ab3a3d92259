package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectoryFind(t *testing.T) {
	dir := directory{
		{videoID: 1, byteOffset: 0, entryCount: 2},
		{videoID: 5, byteOffset: 16, entryCount: 1},
		{videoID: 9, byteOffset: 24, entryCount: 3},
	}

	e, ok := dir.find(5)
	assert.True(t, ok)
	assert.Equal(t, uint64(16), e.byteOffset)

	_, ok = dir.find(4)
	assert.False(t, ok)
}

func TestDirectoryIDs(t *testing.T) {
	dir := directory{
		{videoID: 1}, {videoID: 5}, {videoID: 9},
	}
	assert.Equal(t, []uint32{1, 5, 9}, dir.ids())
}

func TestParseHeaderBadMagic(t *testing.T) {
	b := writeHeader(magicISetMap, 0, 0)
	_, _, err := parseHeader(b, magicIListMap)
	assert.Error(t, err)
}

func TestParseHeaderTruncated(t *testing.T) {
	_, _, err := parseHeader([]byte{1, 2, 3}, magicISetMap)
	assert.Error(t, err)
}

func TestParseDirectoryRejectsUnsorted(t *testing.T) {
	b := writeHeader(magicISetMap, 0, 2)
	entry := make([]byte, dirEntrySize)
	writeDirEntry(entry, dirEntry{videoID: 9})
	b = append(b, entry...)
	writeDirEntry(entry, dirEntry{videoID: 1})
	b = append(b, entry...)

	_, _, err := parseDirectory(b, 2)
	assert.Error(t, err)
}
