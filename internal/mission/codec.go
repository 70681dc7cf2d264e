package mission

import (
	"strconv"
	"time"
)

// Scalar codec helpers, matching the conventions sharedstate.Record
// implementations use elsewhere (§4.4 Supported field types).

func encodeTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', 9, 64)
}

func decodeTimestamp(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return time.Unix(0, int64(secs*1e9))
}

func decodeInt(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
