package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	hoursPattern   = regexp.MustCompile(`(\d+)\s*hrs?`)
	minutesPattern = regexp.MustCompile(`(\d+)\s*mins?`)
)

// FormatDuration renders whole minutes as "2 hrs 5 mins", "1 hr", "45 mins".
// Zero or negative input renders as "0 mins".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "0 mins"
	}
	h, m := minutes/60, minutes%60
	var parts []string
	if h > 0 {
		parts = append(parts, plural(h, "hr"))
	}
	if m > 0 {
		parts = append(parts, plural(m, "min"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ParseDuration reads the hour and minute figures out of a duration label.
// Anything it cannot read counts as zero.
func ParseDuration(label string) int {
	total := 0
	if m := hoursPattern.FindStringSubmatch(label); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m := minutesPattern.FindStringSubmatch(label); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n
	}
	return total
}

// ClockMinutes returns the minutes between two HH:mm wall-clock values.
// An end before the start is taken to be on the next day.
func ClockMinutes(start, end string) (int, error) {
	s, err := time.Parse("15:04", start)
	if err != nil {
		return 0, fmt.Errorf("%w: start time %q", ErrValidation, start)
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return 0, fmt.Errorf("%w: end time %q", ErrValidation, end)
	}
	d := int(e.Sub(s).Minutes())
	if d < 0 {
		d += 24 * 60
	}
	return d, nil
}
