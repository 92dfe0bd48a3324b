// Package dateparse turns human date input (exact, relative, weekday names)
// into the ISO day-bucket format (YYYY-MM-DD) used by record dates.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseDate parses a date string relative to the current time.
//
// Supported forms:
//   - exact dates: "2026-03-01"
//   - keywords: "today", "tomorrow", "next-week", "next-month"
//   - relative offsets: "+7d", "+2w", "+1m"
//   - weekday names: "monday" .. "sunday" (next occurrence)
func ParseDate(input string) (string, error) {
	return ParseDateFrom(input, time.Now())
}

// ParseDateFrom parses a date string against a fixed reference time, which
// keeps tests deterministic.
func ParseDateFrom(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return "", fmt.Errorf("empty date input")
	}

	if t, err := time.Parse("2006-01-02", input); err == nil {
		return formatDate(t), nil
	}

	switch input {
	case "today":
		return formatDate(now), nil
	case "tomorrow":
		return formatDate(now.AddDate(0, 0, 1)), nil
	case "next-week":
		return formatDate(now.AddDate(0, 0, daysUntil(time.Monday, now))), nil
	case "next-month":
		year, month, _ := now.Date()
		return formatDate(time.Date(year, month+1, 1, 0, 0, 0, 0, now.Location())), nil
	}

	if strings.HasPrefix(input, "+") && len(input) >= 3 {
		return parseOffset(input, now)
	}

	if target, ok := weekdays[input]; ok {
		return formatDate(now.AddDate(0, 0, daysUntil(target, now))), nil
	}

	return "", fmt.Errorf("unrecognized date format: %q", input)
}

// parseOffset handles "+Nd", "+Nw" and "+Nm".
func parseOffset(input string, now time.Time) (string, error) {
	unit := input[len(input)-1]
	n, err := strconv.Atoi(input[1 : len(input)-1])
	if err != nil || n < 0 {
		return "", fmt.Errorf("unrecognized date format: %q", input)
	}
	switch unit {
	case 'd':
		return formatDate(now.AddDate(0, 0, n)), nil
	case 'w':
		return formatDate(now.AddDate(0, 0, n*7)), nil
	case 'm':
		return formatDate(now.AddDate(0, n, 0)), nil
	}
	return "", fmt.Errorf("unknown relative unit %q in %q (use d, w, or m)", string(unit), input)
}

// daysUntil returns the days ahead to the next occurrence of the weekday,
// always advancing at least one day.
func daysUntil(target time.Weekday, now time.Time) int {
	days := (int(target) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return days
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
