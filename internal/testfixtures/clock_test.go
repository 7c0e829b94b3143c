package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}

	var unset *Clock
	if got := unset.NowFunc()(); !got.Equal(ReferenceTime()) {
		t.Fatalf("expected nil clock to report ReferenceTime, got %v", got)
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	clock := NewClock(start)
	nowFn := clock.NowFunc()

	if updated := clock.Advance(90 * time.Minute); !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}
	if got := nowFn(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("expected NowFunc to follow the clock, got %v", got)
	}

	clock.Set(start)
	if got := clock.Now(); !got.Equal(start) {
		t.Fatalf("expected %v after Set, got %v", start, got)
	}
}

func TestClockAdvanceDaysKeepsWallClockAcrossDST(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}
	// 2024-03-10 is the spring-forward day in New York.
	clock := NewClock(time.Date(2024, time.March, 9, 10, 0, 0, 0, newYork))

	got := clock.AdvanceDays(2)
	want := time.Date(2024, time.March, 11, 10, 0, 0, 0, newYork)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if elapsed := got.Sub(time.Date(2024, time.March, 9, 10, 0, 0, 0, newYork)); elapsed != 47*time.Hour {
		t.Fatalf("expected 47h across the DST change, got %v", elapsed)
	}
}
