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
	if got.UTC().Format(time.RFC3339) != s {
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
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestAddTradingDaysSkipsWeekend(t *testing.T) {
	// Friday + 1 trading day lands on Monday
	fri := time.Date(2024, 10, 11, 15, 0, 0, 0, time.UTC)
	got := AddTradingDays(fri, 1)
	want := time.Date(2024, 10, 14, 15, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAddTradingDaysWeek(t *testing.T) {
	mon := time.Date(2024, 10, 7, 9, 30, 0, 0, time.UTC)
	got := AddTradingDays(mon, 5)
	want := time.Date(2024, 10, 14, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAddTradingDaysZero(t *testing.T) {
	sat := time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC)
	if got := AddTradingDays(sat, 0); !got.Equal(sat) {
		t.Fatalf("expected unchanged, got %v", got)
	}
}
