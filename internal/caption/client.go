// Package caption implements transcript.Index against an external
// caption full-text index service over HTTP, decoding responses with
// json-iterator for the fast-path JSON handling the rest of this
// system's loaders use.
package caption

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/tvnews/newsquery/internal/transcript"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is an HTTP-backed transcript.Index. No retries or backoff are
// implemented — the cost gate in transcript.Search is the correctness
// mechanism against runaway searches, not resiliency against a flaky
// backend.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a Client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

var _ transcript.Index = (*Client)(nil)

type costResponse struct {
	Cost float64 `json:"cost"`
}

// EstimateCost calls GET /estimate-cost?phrase=....
func (c *Client) EstimateCost(phrase string) (float64, error) {
	var resp costResponse
	if err := c.getJSON("/estimate-cost", url.Values{"phrase": {phrase}}, &resp); err != nil {
		return 0, err
	}
	return resp.Cost, nil
}

type searchResponse struct {
	Postings map[string][]searchPosting `json:"postings"`
}

type searchPosting struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Search calls GET /search?phrase=...&video=...(repeated), decoding the
// response into per-document posting lists.
func (c *Client) Search(phrase string, restrictTo map[string]struct{}) (map[string][]transcript.PostingSec, error) {
	values := url.Values{"phrase": {phrase}}
	for name := range restrictTo {
		values.Add("video", name)
	}

	var resp searchResponse
	if err := c.getJSON("/search", values, &resp); err != nil {
		return nil, err
	}

	out := make(map[string][]transcript.PostingSec, len(resp.Postings))
	for name, postings := range resp.Postings {
		ps := make([]transcript.PostingSec, len(postings))
		for i, p := range postings {
			ps[i] = transcript.PostingSec{Start: p.Start, End: p.End}
		}
		out[name] = ps
	}
	return out, nil
}

func (c *Client) getJSON(path string, values url.Values, dst interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.BaseURL, path, values.Encode())
	resp, err := c.HTTP.Get(reqURL)
	if err != nil {
		return errors.Wrapf(err, "caption: requesting %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("caption: %s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "caption: reading %s response", path)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.Wrapf(err, "caption: decoding %s response", path)
	}
	return nil
}
