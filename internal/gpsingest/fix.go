package gpsingest

import (
	"strconv"
	"time"

	"github.com/sailcore/sailcore/internal/geo"
	"github.com/sailcore/sailcore/internal/sharedstate"
)

// Scalar codec helpers, matching the encoding sharedstate.Record
// implementations use elsewhere (§4.4 Supported field types): this
// package has no access to sharedstate's unexported helpers, so it
// keeps its own copy of the same conventions.

func encodeFixFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func decodeFixFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func encodeFixBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func decodeFixBool(s string, fallback bool) bool {
	if s == "" {
		return fallback
	}
	return s == "1" || s == "true"
}

func encodeFixTimestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', 9, 64)
}

func decodeFixTimestamp(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return time.Unix(0, int64(secs*1e9))
}

// GpsFix is the shared-state record for the latest decoded GPRMC fix
// (§3 GpsFix).
type GpsFix struct {
	Time     time.Time
	Location geo.Location
	SOG      float64
	CMG      float64
	MagVar   float64
	Valid    bool
}

func (f *GpsFix) TypeName() string { return "gpsfix" }

func (f *GpsFix) Fields() map[string]string {
	out := map[string]string{
		"gpsfix.time":    encodeFixTimestamp(f.Time),
		"gpsfix.sog":     encodeFixFloat(f.SOG),
		"gpsfix.cmg":     encodeFixFloat(f.CMG),
		"gpsfix.magvar":  encodeFixFloat(f.MagVar),
		"gpsfix.valid":   encodeFixBool(f.Valid),
	}
	out["gpsfix.location.latitude"] = encodeFixFloat(f.Location.Lat)
	out["gpsfix.location.longitude"] = encodeFixFloat(f.Location.Lon)
	return out
}

func (f *GpsFix) Load(fields map[string]string) {
	f.Time = decodeFixTimestamp(fields["gpsfix.time"], f.Time)
	f.SOG = decodeFixFloat(fields["gpsfix.sog"], f.SOG)
	f.CMG = decodeFixFloat(fields["gpsfix.cmg"], f.CMG)
	f.MagVar = decodeFixFloat(fields["gpsfix.magvar"], f.MagVar)
	f.Valid = decodeFixBool(fields["gpsfix.valid"], f.Valid)
	f.Location.Lat = decodeFixFloat(fields["gpsfix.location.latitude"], f.Location.Lat)
	f.Location.Lon = decodeFixFloat(fields["gpsfix.location.longitude"], f.Location.Lon)
}

var _ sharedstate.Record = (*GpsFix)(nil)

// FromFix converts a parsed NMEA Fix into the shared-state GpsFix record.
// Time is stamped as the current wall clock at publish rather than the
// NMEA sentence's own timestamp: a valid GpsFix's invariant is that time
// is current wall clock (§3), which staleness checks like
// GPSFreshnessHealthCheck depend on.
func FromFix(parsed Fix) *GpsFix {
	return &GpsFix{
		Time:     time.Now(),
		Location: parsed.Location,
		SOG:      parsed.SOG,
		CMG:      parsed.CMG,
		MagVar:   parsed.MagVar,
		Valid:    parsed.Valid,
	}
}
