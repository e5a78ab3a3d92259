package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvnews/newsquery/internal/datacontext"
)

func testVideo(id uint32, name, channel, show string, date time.Time) *datacontext.Video {
	return &datacontext.Video{
		ID: id, Name: name, Channel: channel, Show: show, Date: date,
		NumFrames: 3600 * 30, FPS: 30, Width: 1280, Height: 720,
	}
}

func testServer() *Server {
	v1 := testVideo(1, "v1", "CNN", "Newsroom", time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC))
	v2 := testVideo(2, "v2", "FOX", "Report", time.Date(2020, 1, 16, 0, 0, 0, 0, time.UTC))

	data := &datacontext.DataContext{
		VideosByID:      map[uint32]*datacontext.Video{1: v1, 2: v2},
		VideosByName:    map[string]*datacontext.Video{"v1": v1, "v2": v2},
		OrderedVideoIDs: []uint32{1, 2},
		PersonTags:      datacontext.NewAllPersonTags(nil),
	}
	return NewServer(data, nil, log.NewNopLogger(), 10)
}

func TestHandleSearchAllSimple(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, `/search?query=["all",null]&aggregate=year`, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2020-01-01")
}

func TestHandleSearchDetailed(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, `/search?query=["channel","CNN"]&aggregate=day&detailed=true`, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"2020-01-15"`)
	assert.NotContains(t, w.Body.String(), "v2")
}

func TestHandleSearchMissingQueryParam(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestHandleSearchUnknownAggregate(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, `/search?query=["all",null]&aggregate=fortnight`, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSearchUnknownVideoReturns404(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, `/search?query=["video","nope"]`, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSearchVideos(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, `/search-videos?query=["all",null]&ids=1`, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"v1"`)
	assert.Contains(t, w.Body.String(), `"intervals"`)
}

func TestHandleSearchVideosExceedsLimit(t *testing.T) {
	s := testServer()
	ids := ""
	for i := 0; i < 11; i++ {
		if i > 0 {
			ids += ","
		}
		ids += fmt.Sprintf("%d", i)
	}
	req := httptest.NewRequest(http.MethodGet, `/search-videos?query=["all",null]&ids=`+ids, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "expensive_query")
}

func TestHandleSearchVideosUnknownIDReturns404(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, `/search-videos?query=["all",null]&ids=999`, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleHealthz(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
