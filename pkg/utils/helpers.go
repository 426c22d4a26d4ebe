package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the wire format used for timestamp cells.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// parseDuration safely parses duration string like "5s"
func ParseDuration(d string) time.Duration {
	if d == "" {
		return 5 * time.Second
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return 5 * time.Second
	}
	return duration
}

// ParseValue converts a raw cell string into a typed value. Timestamps
// are recognized first, then ints, then floats; anything else stays a
// string.
func ParseValue(s string) interface{} {
	// Trim whitespace first
	s = strings.TrimSpace(s)

	// try timestamp
	if t, err := ParseTimestamp(s); err == nil {
		return t
	}
	// try int
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	// try float
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ParseTimestamp parses a wire timestamp and normalizes it to UTC.
// Plain RFC3339 values without fractional seconds are accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatTimestamp renders a timestamp cell in the wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// UniqueStamp returns a sortable identifier for staged blobs: a compact
// timestamp plus a short random suffix so concurrent runs never collide.
func UniqueStamp(now time.Time) string {
	short := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return now.UTC().Format("20060102-150405") + "-" + short
}
