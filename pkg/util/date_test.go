package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeNaiveIsUTC(t *testing.T) {
	got, ok := ParseTime("2025-11-01T00:00:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2025-11-04")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Day() != 4 || got.Hour() != 0 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("garbage", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestHourBucket(t *testing.T) {
	ts := time.Date(2025, 11, 1, 13, 47, 5, 0, time.FixedZone("X", 2*3600))
	if got := HourBucket(ts); got != "2025-11-01T11:00:00Z" {
		t.Fatalf("unexpected bucket %s", got)
	}
}

func TestHoursBetween(t *testing.T) {
	from := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	if got := HoursBetween(from, from.Add(72*time.Hour)); got != 72 {
		t.Fatalf("unexpected hours %d", got)
	}
	if got := HoursBetween(from, from); got != 0 {
		t.Fatalf("expected zero, got %d", got)
	}
}
