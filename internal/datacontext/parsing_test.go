package datacontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateFromVideoName(t *testing.T) {
	date, dow, hour, err := parseDateFromVideoName("CNNW_20160101_050000_Newsroom")
	require.NoError(t, err)
	assert.Equal(t, 2016, date.Year())
	assert.Equal(t, 1, int(date.Month()))
	assert.Equal(t, 1, date.Day())
	assert.GreaterOrEqual(t, dow, 1)
	assert.LessOrEqual(t, dow, 7)
	assert.GreaterOrEqual(t, hour, 0)
	assert.LessOrEqual(t, hour, 23)
}

func TestParseDateFromVideoNameMalformed(t *testing.T) {
	_, _, _, err := parseDateFromVideoName("onlyonepart")
	assert.Error(t, err)
}

func TestSanitizeTag(t *testing.T) {
	assert.Equal(t, "ussenator", sanitizeTag("U.S. Senator"))
	assert.Equal(t, "talkshowhost", sanitizeTag("Talk-Show Host!"))
}

func TestVideoBaseName(t *testing.T) {
	assert.Equal(t, "CNNW_20160101_050000", videoBaseName("/data/CNNW_20160101_050000.word.srt"))
	assert.Equal(t, "CNNW_20160101_050000", videoBaseName("CNNW_20160101_050000.mp4"))
}

func TestAllPersonTagsLookup(t *testing.T) {
	tags := NewAllPersonTags(map[string][]Tag{
		"jane doe": {{Name: "senator", Source: "wikidata"}},
		"john roe": {{Name: "senator", Source: "wikidata"}},
	})

	names, ok := tags.PersonsForTag("senator")
	require.True(t, ok)
	assert.Equal(t, []string{"jane doe", "john roe"}, names)

	_, ok = tags.PersonsForTag("astronaut")
	assert.False(t, ok)

	assert.Equal(t, []Tag{{Name: "senator", Source: "wikidata"}}, tags.TagsForPerson("jane doe"))
}
