package searchctx

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tvnews/newsquery/internal/errs"
)

var hourRe = regexp.MustCompile(`^(\d+)(?:-(\d+))?$`)

// ParseHourSet parses an "hour" atom value: "5" or "5-9" (inclusive,
// both endpoints 0..23, start < end).
func ParseHourSet(s string) (IntSet, error) {
	m := hourRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, errs.InvalidUsage("invalid hour filter: %q", s)
	}
	h0, _ := strconv.Atoi(m[1])
	if h0 >= 24 {
		return nil, errs.InvalidUsage("invalid hour filter: %q", s)
	}
	if m[2] == "" {
		return NewIntSet(h0), nil
	}
	h1, _ := strconv.Atoi(m[2])
	if !(h0 < h1 && h1 <= 23) {
		return nil, errs.InvalidUsage("invalid hour filter: %q", s)
	}
	out := make(IntSet, h1-h0+1)
	for h := h0; h <= h1; h++ {
		out[h] = struct{}{}
	}
	return out, nil
}

var daysOfWeek = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

func dayIndex(s string) int {
	for i, d := range daysOfWeek {
		if d == s {
			return i
		}
	}
	return -1
}

var dayOfWeekRe = regexp.MustCompile(`^(\w{3})(?:-(\w{3}))?$`)

// ParseDayOfWeekSet parses a "day_of_week" atom value: "mon" or
// "mon-wed" (1=Monday..7=Sunday, inclusive, start < end).
func ParseDayOfWeekSet(s string) (IntSet, error) {
	m := dayOfWeekRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return nil, errs.InvalidUsage("invalid day of week filter: %q", s)
	}
	d0 := dayIndex(m[1])
	if d0 < 0 {
		return nil, errs.InvalidUsage("invalid day of week filter: %q", s)
	}
	if m[2] == "" {
		return NewIntSet(d0 + 1), nil
	}
	d1 := dayIndex(m[2])
	if d1 < 0 || !(d0 < d1) {
		return nil, errs.InvalidUsage("invalid day of week filter: %q", s)
	}
	out := make(IntSet, d1-d0+1)
	for d := d0 + 1; d <= d1+1; d++ {
		out[d] = struct{}{}
	}
	return out, nil
}
