package util

import (
	"strconv"
	"time"
)

// HourBucketLayout is the key format of an hour-aligned UTC bucket.
const HourBucketLayout = "2006-01-02T15:00:00Z"

var layouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime tries RFC3339 variants, naive ISO timestamps (read as UTC), plain
// dates, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// HourBucket returns the hour-aligned UTC key for t.
func HourBucket(t time.Time) string {
	return t.UTC().Truncate(time.Hour).Format(HourBucketLayout)
}

// HoursBetween returns the number of whole hours in [from, to).
func HoursBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / time.Hour)
}
