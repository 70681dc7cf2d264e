// Package ottolink implements the framed, bidirectional serial link to the
// low-level microcontroller ("Otto") that owns the rudder/sail servos,
// compass, and apparent-wind sensor: the boot-time sync handshake, the
// frame reader and register writer, and the OttoState shared record.
package ottolink

// Register is a writable register on the controller. Numbering is part of
// the external wire contract (§4.5/§6) and must match bit-for-bit.
type Register int

const (
	AlarmClear Register = iota
	MissionControl
	Mode
	Buzzer
	RudderAngle
	SailAngle
	CompassHeading
	MinCompass
	MaxCompass
	AWAHeading
	MinAWA
	MaxAWA
	WakeDuration
	NextWakeup
	RudderPIDP
	RudderPIDI
	RudderPIDD
	RudderPIDENum
	RudderPIDEDen
	RudderPIDUDiv
	SailMXCM
	SailMXCC
	SailMXCUDiv
)

// ControllerMode is the controller's operating mode, written to the Mode
// register and forced by certain setters.
type ControllerMode int

const (
	ModeManual ControllerMode = iota
	ModeTrackCompass
	ModeTrackAWA
)
