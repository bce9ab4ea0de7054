package grid

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tm
}

func TestRoundUp(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "already on boundary",
			input:    "2025-03-01T10:15:00Z",
			expected: "2025-03-01T10:15:00Z",
		},
		{
			name:     "just past boundary",
			input:    "2025-03-01T10:15:01Z",
			expected: "2025-03-01T10:30:00Z",
		},
		{
			name:     "mid bucket",
			input:    "2025-03-01T10:22:30Z",
			expected: "2025-03-01T10:30:00Z",
		},
		{
			name:     "crossing the hour",
			input:    "2025-03-01T10:59:59Z",
			expected: "2025-03-01T11:00:00Z",
		},
		{
			name:     "crossing midnight",
			input:    "2025-03-01T23:46:00Z",
			expected: "2025-03-02T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundUp(mustTime(t, tt.input))
			if want := mustTime(t, tt.expected); !got.Equal(want) {
				t.Errorf("RoundUp(%s) expected %s, got %s", tt.input, want, got)
			}
		})
	}
}

func TestFloorAndNext(t *testing.T) {
	in := mustTime(t, "2025-03-01T10:22:30Z")
	if got := Floor(in); !got.Equal(mustTime(t, "2025-03-01T10:15:00Z")) {
		t.Errorf("Floor expected 10:15, got %s", got)
	}
	if got := Next(in); !got.Equal(mustTime(t, "2025-03-01T10:30:00Z")) {
		t.Errorf("Next expected 10:30, got %s", got)
	}
}

func TestAligned(t *testing.T) {
	if !Aligned(mustTime(t, "2025-03-01T10:45:00Z")) {
		t.Error("expected 10:45 to be aligned")
	}
	if Aligned(mustTime(t, "2025-03-01T10:45:30Z")) {
		t.Error("expected 10:45:30 not to be aligned")
	}
}

func TestDayKey(t *testing.T) {
	a := mustTime(t, "2025-03-01T23:45:00Z")
	b := mustTime(t, "2025-03-02T00:00:00Z")
	if DayKey(a) == DayKey(b) {
		t.Error("expected day keys to differ across midnight")
	}
	if DayKey(a) != "2025-03-01" {
		t.Errorf("unexpected day key %q", DayKey(a))
	}
}

func TestMonthBounds(t *testing.T) {
	in := mustTime(t, "2025-02-14T12:00:00Z")
	if got := StartOfMonth(in); !got.Equal(mustTime(t, "2025-02-01T00:00:00Z")) {
		t.Errorf("StartOfMonth expected Feb 1, got %s", got)
	}
	if got := EndOfMonth(in); got.Before(mustTime(t, "2025-02-28T23:59:59Z")) {
		t.Errorf("EndOfMonth expected end of Feb, got %s", got)
	}
}
