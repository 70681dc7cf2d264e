// Package gpsingest reads NMEA sentences from the GPS serial port, parses
// GPRMC fixes, and publishes them to the shared-state store.
package gpsingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sailcore/sailcore/internal/geo"
)

// ParseError reports a malformed NMEA sentence; the caller logs and
// discards it, §7 ParseError.
type ParseError struct {
	Sentence string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gpsingest: malformed sentence %q: %s", e.Sentence, e.Reason)
}

// Fix is a decoded GPRMC sentence.
type Fix struct {
	Time     time.Time
	Location geo.Location
	SOG      float64 // speed over ground, knots
	CMG      float64 // course made good, radians, true
	MagVar   float64 // magnetic variation, radians, signed east-positive
	Valid    bool
}

// verifyChecksum reports whether the sentence's trailing "*HH" checksum
// matches the XOR of every byte between '$' and '*'.
func verifyChecksum(sentence string) bool {
	star := strings.LastIndexByte(sentence, '*')
	if star < 1 || star+3 > len(sentence) {
		return false
	}
	var sum byte
	for i := 1; i < star; i++ {
		sum ^= sentence[i]
	}
	want, err := strconv.ParseUint(sentence[star+1:star+3], 16, 8)
	if err != nil {
		return false
	}
	return sum == byte(want)
}

// SentenceID returns the talker+sentence identifier (e.g. "GPRMC") of a
// line beginning with '$', without the checksum suffix.
func SentenceID(line string) (string, error) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '$' {
		return "", &ParseError{Sentence: line, Reason: "does not begin with '$'"}
	}
	body := trimmed
	if star := strings.IndexByte(body, '*'); star > 0 {
		body = body[:star]
	}
	fields := strings.Split(body[1:], ",")
	if len(fields) == 0 || fields[0] == "" {
		return "", &ParseError{Sentence: line, Reason: "missing sentence identifier"}
	}
	return fields[0], nil
}

// ParseGPRMC decodes a "$..RMC" sentence per the field layout in §6: 12–13
// comma-separated fields — time, status, lat, N/S, lon, E/W, sog, cmg,
// date, magvar, E/W, mode (mode is optional, NMEA 2.3+).
func ParseGPRMC(line string) (Fix, error) {
	trimmed := strings.TrimSpace(line)
	if !verifyChecksum(trimmed) {
		return Fix{}, &ParseError{Sentence: line, Reason: "checksum mismatch"}
	}

	body := trimmed
	if star := strings.IndexByte(body, '*'); star > 0 {
		body = body[:star]
	}
	fields := strings.Split(body, ",")
	if len(fields) < 12 {
		return Fix{}, &ParseError{Sentence: line, Reason: "GPRMC needs at least 12 fields"}
	}

	status := fields[2]
	valid := status == "A"

	var loc geo.Location
	if fields[3] != "" && fields[4] != "" && fields[5] != "" && fields[6] != "" {
		lat, err := parseNMEACoordinate(fields[3], fields[4])
		if err != nil {
			return Fix{}, &ParseError{Sentence: line, Reason: "bad latitude: " + err.Error()}
		}
		lon, err := parseNMEACoordinate(fields[5], fields[6])
		if err != nil {
			return Fix{}, &ParseError{Sentence: line, Reason: "bad longitude: " + err.Error()}
		}
		loc = geo.NewFromDegrees(lat, lon)
	}

	sog, _ := strconv.ParseFloat(fields[7], 64)
	cmgDeg, _ := strconv.ParseFloat(fields[8], 64)

	var magvar float64
	if fields[10] != "" {
		mv, _ := strconv.ParseFloat(fields[10], 64)
		if fields[11] == "W" {
			mv = -mv
		}
		magvar = geo.DegreesToRadians(mv)
	}

	ts, err := parseNMEATimestamp(fields[1], fields[9])
	if err != nil {
		return Fix{}, &ParseError{Sentence: line, Reason: "bad time/date: " + err.Error()}
	}

	return Fix{
		Time:     ts,
		Location: loc,
		SOG:      sog,
		CMG:      geo.DegreesToRadians(cmgDeg),
		MagVar:   magvar,
		Valid:    valid,
	}, nil
}

// parseNMEACoordinate decodes "ddmm.mmmm"/"dddmm.mmmm" + hemisphere into
// signed decimal degrees.
func parseNMEACoordinate(coord, hemi string) (float64, error) {
	dot := strings.IndexByte(coord, '.')
	if dot < 2 {
		return 0, fmt.Errorf("malformed coordinate %q", coord)
	}
	degLen := dot - 2
	deg, err := strconv.ParseFloat(coord[:degLen], 64)
	if err != nil {
		return 0, err
	}
	min, err := strconv.ParseFloat(coord[degLen:], 64)
	if err != nil {
		return 0, err
	}
	v := deg + min/60.0
	switch hemi {
	case "S", "W":
		v = -v
	case "N", "E":
	default:
		return 0, fmt.Errorf("unknown hemisphere %q", hemi)
	}
	return v, nil
}

// parseNMEATimestamp combines the "hhmmss.sss" time field with the
// "ddmmyy" date field into a UTC time.Time. Two-digit years 80-99 are
// read as 1980-1999 and 00-79 as 2000-2079.
func parseNMEATimestamp(hms, dmy string) (time.Time, error) {
	if len(hms) < 6 || len(dmy) != 6 {
		return time.Time{}, fmt.Errorf("short time/date field")
	}
	hh, err := strconv.Atoi(hms[0:2])
	if err != nil {
		return time.Time{}, err
	}
	mm, err := strconv.Atoi(hms[2:4])
	if err != nil {
		return time.Time{}, err
	}
	secWhole, err := strconv.ParseFloat(hms[4:], 64)
	if err != nil {
		return time.Time{}, err
	}
	dd, err := strconv.Atoi(dmy[0:2])
	if err != nil {
		return time.Time{}, err
	}
	mon, err := strconv.Atoi(dmy[2:4])
	if err != nil {
		return time.Time{}, err
	}
	yy, err := strconv.Atoi(dmy[4:6])
	if err != nil {
		return time.Time{}, err
	}
	sec := int(secWhole)
	nsec := int((secWhole - float64(sec)) * 1e9)
	year := 2000 + yy
	if yy >= 80 {
		year = 1900 + yy
	}
	return time.Date(year, time.Month(mon), dd, hh, mm, sec, nsec, time.UTC), nil
}
