package coltype

import "time"

// ParseTimestamp parses an RFC 3339 timestamp and canonicalizes it to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatTimestamp renders t as RFC 3339 in UTC, the canonical wire form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
