package sop

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ProtonMail/sop-external/constants"
)

// TimeLayout is the canonical timestamp form emitted on the wire.
const TimeLayout = "2006-01-02T15:04:05Z"

// Layouts tried by ParseUTC, in order.
var parseLayouts = []string{
	TimeLayout,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"20060102T150405Z",
	"2006-01-02T15:04Z",
}

var (
	// DawnOfTime is the lower bound used for an unspecified --not-before.
	DawnOfTime = time.Unix(0, 0).UTC()
	// EndOfTime is the upper bound used for an unspecified --not-after.
	EndOfTime = time.UnixMilli(8640000000000000).UTC()
)

// FormatUTC formats t in the canonical second precision UTC form.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseUTC parses a timestamp in the canonical form or one of the lenient
// variants backends are known to emit. The result is in UTC.
func ParseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, WrapError(KindBadData, errors.Errorf("malformed timestamp %q", s), "")
}

// ParseNotBefore parses a --not-before argument: "now", "-" for the
// beginning of time, or a timestamp.
func ParseNotBefore(s string, now time.Time) (time.Time, error) {
	switch s {
	case constants.TimeNow:
		return now.UTC(), nil
	case constants.TimeUnspecified:
		return DawnOfTime, nil
	}
	return ParseUTC(s)
}

// ParseNotAfter parses a --not-after argument: "now", "-" for the end of
// time, or a timestamp.
func ParseNotAfter(s string, now time.Time) (time.Time, error) {
	switch s {
	case constants.TimeNow:
		return now.UTC(), nil
	case constants.TimeUnspecified:
		return EndOfTime, nil
	}
	return ParseUTC(s)
}
