package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// unixMillisThreshold separates unix seconds from unix milliseconds; seconds
// values stay below it until the year 33658.
const unixMillisThreshold = 1e12

// ParseTimestamp accepts RFC3339, RFC3339Nano, and unix seconds or milliseconds
// encoded as a decimal string.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return FromUnixNumber(n), nil
	}
	return time.Time{}, fmt.Errorf("parse time %q: unsupported format", value)
}

// FromUnixNumber interprets n as unix seconds, or milliseconds when large enough.
func FromUnixNumber(n float64) time.Time {
	if n >= unixMillisThreshold {
		return time.UnixMilli(int64(n)).UTC()
	}
	sec := int64(n)
	nsec := int64((n - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// FormatTimestamp renders t as an ISO-8601 string in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
