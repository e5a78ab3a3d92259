package searchctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvnews/newsquery/internal/datacontext"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAndUnconstrainedIdentity(t *testing.T) {
	channel := "CNN"
	c := Context{Channel: &channel}
	result, ok := And(c, Empty())
	require.True(t, ok)
	assert.Equal(t, "CNN", *result.Channel)
}

func TestAndScalarContradiction(t *testing.T) {
	cnn, fox := "CNN", "FOX"
	_, ok := And(Context{Channel: &cnn}, Context{Channel: &fox})
	assert.False(t, ok)
}

func TestAndSetIntersectionEmpty(t *testing.T) {
	_, ok := And(Context{Videos: NewU32Set(1, 2)}, Context{Videos: NewU32Set(3, 4)})
	assert.False(t, ok)
}

func TestAndSetIntersectionNonEmpty(t *testing.T) {
	result, ok := And(Context{Videos: NewU32Set(1, 2, 3)}, Context{Videos: NewU32Set(2, 3, 4)})
	require.True(t, ok)
	assert.Equal(t, NewU32Set(2, 3), result.Videos)
}

func TestAndDateRangeCrossedFails(t *testing.T) {
	start := date(2020, 6, 1)
	end := date(2020, 1, 1)
	_, ok := And(Context{StartDate: &start}, Context{EndDate: &end})
	assert.False(t, ok)
}

func TestAndDateRangeNarrows(t *testing.T) {
	s1, e1 := date(2020, 1, 1), date(2020, 12, 31)
	s2, e2 := date(2020, 6, 1), date(2021, 1, 1)
	result, ok := And(Context{StartDate: &s1, EndDate: &e1}, Context{StartDate: &s2, EndDate: &e2})
	require.True(t, ok)
	assert.True(t, result.StartDate.Equal(s2))
	assert.True(t, result.EndDate.Equal(e1))
}

func TestUnconstrainedBuildsNilFilter(t *testing.T) {
	assert.Nil(t, BuildVideoFilter(Empty()))
}

func TestBuildVideoFilterChannel(t *testing.T) {
	cnn := "CNN"
	filter := BuildVideoFilter(Context{Channel: &cnn})
	require.NotNil(t, filter)
	assert.True(t, filter(&datacontext.Video{Channel: "CNN"}))
	assert.False(t, filter(&datacontext.Video{Channel: "FOX"}))
}

func TestBuildVideoFilterHourSpansDuration(t *testing.T) {
	filter := BuildVideoFilter(Context{Hours: NewIntSet(5)})
	require.NotNil(t, filter)
	// 2 hour show starting at hour 4 spans [4,6]
	v := &datacontext.Video{Hour: 4, NumFrames: 2 * 3600 * 30, FPS: 30}
	assert.True(t, filter(v))

	v2 := &datacontext.Video{Hour: 10, NumFrames: 30 * 30, FPS: 30}
	assert.False(t, filter(v2))
}

func TestBuildVideoFilterDayOfWeek(t *testing.T) {
	filter := BuildVideoFilter(Context{DaysOfWeek: NewIntSet(1, 2)})
	require.NotNil(t, filter)
	assert.True(t, filter(&datacontext.Video{DayOfWeek: 1}))
	assert.False(t, filter(&datacontext.Video{DayOfWeek: 5}))
}
