// Package system exercises the real-time clock adapter.
package system

import (
	"testing"
	"time"
)

// TestClockNowUTC ensures the clock returns UTC timestamps.
func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

// TestLoadLocation resolves the reference timezone from the embedded database.
func TestLoadLocation(t *testing.T) {
	t.Parallel()

	loc, err := LoadLocation("Asia/Hong_Kong")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	noon := time.Date(2026, time.October, 19, 4, 0, 0, 0, time.UTC).In(loc)
	if noon.Hour() != 12 {
		t.Fatalf("expected HKT to be UTC+8, got hour %d", noon.Hour())
	}

	if _, err := LoadLocation(""); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := LoadLocation("Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
