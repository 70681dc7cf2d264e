package ottolink

import (
	"fmt"

	"github.com/sailcore/sailcore/internal/sharedstate"
)

// TelemetryChannels is the number of telemetry samples carried by a '>'
// frame tag (high nibble selects the channel 0..15).
const TelemetryChannels = 16

// State is the shared OttoState record: the controller's mode, alarm
// bitmap, last-reported actuator positions (in application units), boot
// timestamp, and telemetry channels. Updated by the reader on every
// parsed frame and persisted via sharedstate.Store.
type State struct {
	Mode          ControllerMode
	AlarmStatus   uint16
	ActualRudder  float64 // degrees, [-40, 40]
	ActualSail    float64 // percent, [0, 100]
	ActualCompass float64 // radians, [0, 2*pi)
	ActualAWA     float64 // radians, (-pi, pi]
	BootTimestamp uint32  // seconds since controller boot, 24-bit
	Telemetry     [TelemetryChannels]uint16
}

// TypeName implements sharedstate.Record.
func (s *State) TypeName() string { return "ottostate" }

// Fields implements sharedstate.Record.
func (s *State) Fields() map[string]string {
	f := map[string]string{
		"ottostate.mode":           fmt.Sprintf("%d", int(s.Mode)),
		"ottostate.alarm_status":   fmt.Sprintf("%d", s.AlarmStatus),
		"ottostate.actual_rudder":  fmt.Sprintf("%g", s.ActualRudder),
		"ottostate.actual_sail":    fmt.Sprintf("%g", s.ActualSail),
		"ottostate.actual_compass": fmt.Sprintf("%g", s.ActualCompass),
		"ottostate.actual_awa":     fmt.Sprintf("%g", s.ActualAWA),
		"ottostate.otto_timestamp": fmt.Sprintf("%d", s.BootTimestamp),
	}
	for i, v := range s.Telemetry {
		f[fmt.Sprintf("ottostate.telemetry%d", i+1)] = fmt.Sprintf("%d", v)
	}
	return f
}

// Load implements sharedstate.Record.
func (s *State) Load(fields map[string]string) {
	s.Mode = ControllerMode(parseIntField(fields["ottostate.mode"], int(s.Mode)))
	s.AlarmStatus = uint16(parseIntField(fields["ottostate.alarm_status"], int(s.AlarmStatus)))
	s.ActualRudder = parseFloatField(fields["ottostate.actual_rudder"], s.ActualRudder)
	s.ActualSail = parseFloatField(fields["ottostate.actual_sail"], s.ActualSail)
	s.ActualCompass = parseFloatField(fields["ottostate.actual_compass"], s.ActualCompass)
	s.ActualAWA = parseFloatField(fields["ottostate.actual_awa"], s.ActualAWA)
	s.BootTimestamp = uint32(parseIntField(fields["ottostate.otto_timestamp"], int(s.BootTimestamp)))
	for i := range s.Telemetry {
		key := fmt.Sprintf("ottostate.telemetry%d", i+1)
		s.Telemetry[i] = uint16(parseIntField(fields[key], int(s.Telemetry[i])))
	}
}

var _ sharedstate.Record = (*State)(nil)
