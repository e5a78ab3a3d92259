package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/tvnews/newsquery/internal/accumulate"
	"github.com/tvnews/newsquery/internal/errs"
	"github.com/tvnews/newsquery/internal/query"
	"github.com/tvnews/newsquery/internal/searchctx"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const dateLayout = "2006-01-02"

// parseQueryNode decodes the "query" request parameter's [kind, value]
// wire form.
func parseQueryNode(r *http.Request) (query.Node, *errs.RequestError) {
	raw := r.URL.Query().Get("query")
	if raw == "" {
		return query.Node{}, errs.InvalidUsage("missing required parameter %q", "query")
	}
	var n query.Node
	if err := jsonAPI.Unmarshal([]byte(raw), &n); err != nil {
		return query.Node{}, errs.InvalidUsage("malformed query: %v", err)
	}
	return n, nil
}

// parseDateRange parses the optional start_date/end_date parameters
// into an initial SearchContext carrying only that constraint.
func parseDateRange(r *http.Request) (searchctx.Context, *errs.RequestError) {
	ctx := searchctx.Empty()
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return ctx, errs.InvalidUsage("start_date %q is not a YYYY-MM-DD date", s)
		}
		ctx.StartDate = &t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return ctx, errs.InvalidUsage("end_date %q is not a YYYY-MM-DD date", s)
		}
		ctx.EndDate = &t
	}
	return ctx, nil
}

// parseAggregate maps the aggregate parameter (default "day") to a
// BucketFunc.
func parseAggregate(r *http.Request) (accumulate.BucketFunc, *errs.RequestError) {
	switch v := r.URL.Query().Get("aggregate"); v {
	case "", "day":
		return accumulate.BucketByDay, nil
	case "week":
		return accumulate.BucketByWeek, nil
	case "month":
		return accumulate.BucketByMonth, nil
	case "year":
		return accumulate.BucketByYear, nil
	default:
		return nil, errs.InvalidUsage("unknown aggregate %q, expected day, week, month, or year", v)
	}
}

// parseDetailed parses the detailed parameter (default false).
func parseDetailed(r *http.Request) (bool, *errs.RequestError) {
	return parseBool(r, "detailed", false)
}

func parseBool(r *http.Request, name string, defaultValue bool) (bool, *errs.RequestError) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errs.InvalidUsage("%s must be true or false, got %q", name, v)
	}
	return b, nil
}

// parseCommercial parses the is_commercial parameter (default "false").
func parseCommercial(r *http.Request) (accumulate.Commercial, *errs.RequestError) {
	switch v := r.URL.Query().Get("is_commercial"); v {
	case "", "false":
		return accumulate.CommercialFalse, nil
	case "true":
		return accumulate.CommercialTrue, nil
	case "both":
		return accumulate.CommercialBoth, nil
	default:
		return 0, errs.InvalidUsage("is_commercial must be true, false, or both, got %q", v)
	}
}

// parseVideoIDs parses the comma-separated ids parameter, rejecting an
// empty list as an InvalidUsage error and an over-limit list as an
// ExpensiveQuery error.
func parseVideoIDs(r *http.Request, maxIDs int) ([]uint32, *errs.RequestError) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		return nil, errs.InvalidUsage("missing required parameter %q", "ids")
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxIDs {
		return nil, errs.ExpensiveQuery("ids lists %d videos, exceeding the limit of %d", len(parts), maxIDs)
	}
	out := make([]uint32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, errs.InvalidUsage("invalid video id %q", p)
		}
		out = append(out, uint32(n))
	}
	return out, nil
}
