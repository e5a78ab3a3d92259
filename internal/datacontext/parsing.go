package datacontext

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// eastern is the timezone video names are timestamped against; broadcast
// schedules (hour-of-day filters, day-of-week) are meaningless in UTC.
var eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	eastern = loc
}

// parseDateFromVideoName extracts the local broadcast date, day of week,
// and hour from a video's file-name-derived identifier of the form
// "{channel}_{YYYYMMDD}_{HHMMSS}[_...]", e.g. "CNNW_20160101_050000_x".
func parseDateFromVideoName(name string) (date time.Time, dayOfWeek int, hour int, err error) {
	parts := strings.SplitN(name, "_", 4)
	if len(parts) < 3 {
		return time.Time{}, 0, 0, errors.Errorf("datacontext: malformed video name %q", name)
	}
	ymd, hms := parts[1], parts[2]
	ts, err := time.ParseInLocation("20060102150405", ymd+hms, time.UTC)
	if err != nil {
		return time.Time{}, 0, 0, errors.Wrapf(err, "datacontext: parsing timestamp from %q", name)
	}
	local := ts.In(eastern)
	dateOnly := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	dow := int(local.Weekday()) // Sunday=0..Saturday=6
	if dow == 0 {
		dow = 7
	}
	return dateOnly, dow, local.Hour(), nil
}

// sanitizeTag lowercases a raw tag string and strips everything but word
// characters, matching the metadata file's loose free-text tags.
func sanitizeTag(tag string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(tag) {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const (
	minPersonAttributeLen = 3
	maxPersonAttributeLen = 50
)
