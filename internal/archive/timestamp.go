package archive

import "time"

// legacyTwitterFormat is the format Twitter's export uses for tweet and
// like timestamps: "Wed Jan 08 12:00:00 +0000 2025".
const legacyTwitterFormat = "Mon Jan 02 15:04:05 -0700 2006"

// ParseTimestamp accepts both the legacy Twitter format and ISO-8601
// (RFC 3339). It returns ok=false when neither parses, in which case the
// caller records a per-record warning and proceeds without a timestamp.
func ParseTimestamp(s string) (t time.Time, ok bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(legacyTwitterFormat, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
