package sharedstate

import (
	"strconv"
	"time"

	"github.com/sailcore/sailcore/internal/geo"
)

// Record is a process-wide typed record. Each implementation owns an
// explicit field schema and a hand-written codec (flatten/unflatten),
// rather than reflecting over struct tags: this keeps the wire format
// and the Go type in lock-step and lets each record type pick its own
// defaults.
//
// TypeName becomes the lowercased keyspace prefix (§6 Persisted state
// layout). Fields returns the current flattened field set, encoded as
// strings ("class_name.field", with composite fields further flattened
// to "class_name.field.subfield" and arrays to "class_name.field1",
// "class_name.field2", ...). Load repopulates the record from a
// flattened field map; any field absent from the map keeps the
// record's zero-value default, making Load/Setup idempotent.
type Record interface {
	TypeName() string
	Fields() map[string]string
	Load(fields map[string]string)
}

// --- scalar encode/decode helpers shared by every Record implementation ---

func encodeFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func decodeFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func encodeInt(v int64) string { return strconv.FormatInt(v, 10) }

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

func encodeBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func decodeBool(s string, fallback bool) bool {
	if s == "" {
		return fallback
	}
	return s == "1" || s == "true"
}

// encodeTimestamp stores a timestamp as fractional seconds since the
// epoch, per §4.4 Supported field types.
func encodeTimestamp(t time.Time) string {
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

// flattenLocation writes a Location's sub-fields under "<prefix>.latitude"
// and "<prefix>.longitude".
func flattenLocation(dst map[string]string, prefix string, loc geo.Location) {
	dst[prefix+".latitude"] = encodeFloat(loc.Lat)
	dst[prefix+".longitude"] = encodeFloat(loc.Lon)
}

func unflattenLocation(fields map[string]string, prefix string, fallback geo.Location) geo.Location {
	return geo.Location{
		Lat: decodeFloat(fields[prefix+".latitude"], fallback.Lat),
		Lon: decodeFloat(fields[prefix+".longitude"], fallback.Lon),
	}
}
