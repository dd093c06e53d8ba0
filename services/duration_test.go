package services

import (
	"errors"
	"testing"
)

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		-5:  "0 mins",
		0:   "0 mins",
		1:   "1 min",
		45:  "45 mins",
		60:  "1 hr",
		61:  "1 hr 1 min",
		135: "2 hrs 15 mins",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]int{
		"":              0,
		"45 mins":       45,
		"1 hr":          60,
		"2 hrs 15 mins": 135,
		"3hrs 5min":     185,
		"garbage":       0,
	}
	for in, want := range cases {
		if got := ParseDuration(in); got != want {
			t.Errorf("ParseDuration(%q) = %d, want %d", in, got, want)
		}
	}
	for _, m := range []int{1, 59, 60, 61, 600} {
		if got := ParseDuration(FormatDuration(m)); got != m {
			t.Errorf("round trip of %d gave %d", m, got)
		}
	}
}

func TestClockMinutes(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"09:00", "09:45", 45},
		{"09:30", "11:00", 90},
		{"23:30", "00:15", 45},
		{"10:00", "10:00", 0},
	}
	for _, tc := range cases {
		got, err := ClockMinutes(tc.start, tc.end)
		if err != nil || got != tc.want {
			t.Errorf("ClockMinutes(%s, %s) = %d, %v; want %d", tc.start, tc.end, got, err, tc.want)
		}
	}
	if _, err := ClockMinutes("9am", "10:00"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
