// Package course models the boat's current heading, wind, apparent wind
// angle and resulting speed, and the relative-VMG utility the navigator
// uses to score candidate headings.
package course

import (
	"math"

	"github.com/sailcore/sailcore/internal/geo"
	"github.com/sailcore/sailcore/internal/polar"
	"github.com/sailcore/sailcore/internal/waypoint"
)

// Tack identifies which side of the boat the wind comes over.
type Tack int

const (
	Starboard Tack = iota
	Port
)

func (t Tack) String() string {
	if t == Port {
		return "port"
	}
	return "starboard"
}

// Course is heading, wind, apparent wind angle, and resulting speed, kept
// mutually consistent by its setters.
//
// Invariants: Heading in [0, 2*pi); AWA in (-pi, pi], sign denotes tack
// (negative = port, non-negative = starboard); AWA = Wind.Angle - Heading,
// renormalized. Mutating Heading or Wind recomputes AWA and Speed;
// mutating AWA directly recomputes Speed only.
type Course struct {
	heading float64
	wind    geo.Bearing
	awa     float64
	speed   float64
	curve   polar.Curve
}

// New constructs a Course with the given polar curve, heading, and wind.
func New(curve polar.Curve, heading float64, wind geo.Bearing) *Course {
	c := &Course{curve: curve}
	c.wind = wind
	c.SetHeading(heading)
	return c
}

// Heading returns the current heading in radians, [0, 2*pi).
func (c *Course) Heading() float64 { return c.heading }

// Wind returns the current wind bearing.
func (c *Course) Wind() geo.Bearing { return c.wind }

// AWA returns the apparent wind angle in radians, (-pi, pi].
func (c *Course) AWA() float64 { return c.awa }

// Speed returns the current boat speed in knots.
func (c *Course) Speed() float64 { return c.speed }

// Tack returns the current tack: Port if AWA < 0, else Starboard.
func (c *Course) Tack() Tack {
	if c.awa < 0 {
		return Port
	}
	return Starboard
}

// SetHeading sets the heading, normalizing to [0, 2*pi), then recomputes
// AWA from Wind and Speed from the polar curve.
func (c *Course) SetHeading(heading float64) {
	c.heading = geo.Absolute(heading)
	c.awa = geo.NormalizePi(c.wind.Angle - c.heading)
	c.recomputeSpeed()
}

// SetWind replaces the wind bearing, then recomputes AWA and Speed.
func (c *Course) SetWind(wind geo.Bearing) {
	c.wind = wind
	c.awa = geo.NormalizePi(c.wind.Angle - c.heading)
	c.recomputeSpeed()
}

// SetAWA sets the apparent wind angle directly, normalizing to (-pi, pi],
// then recomputes Speed only (Heading and Wind are left as-is).
func (c *Course) SetAWA(awa float64) {
	c.awa = geo.NormalizePi(awa)
	c.recomputeSpeed()
}

func (c *Course) recomputeSpeed() {
	c.speed = c.curve.Speed(c.awa)
}

// ComputeWind recovers the wind angle implied by the current heading and
// AWA: wind.angle = heading + awa. Used by the navigator after loading
// compass and AWA straight from the controller, before the wind bearing
// itself is known.
func (c *Course) ComputeWind() geo.Bearing {
	return geo.Bearing{Angle: geo.Absolute(c.heading + c.awa), Distance: c.wind.Distance}
}

// RelativeVMG projects the boat's velocity onto the bearing to w,
// normalized by distance: speed * cos(w.bearing.angle - heading) / w.distance.
// Returns 0 (not an error) when w.Distance is exactly 0 (the boat is, in
// effect, already there — the projection is undefined, so it cannot add to
// or detract from the candidate's utility).
func (c *Course) RelativeVMG(w *waypoint.Waypoint) float64 {
	if w.Distance() <= 0 {
		return 0
	}
	return c.speed * math.Cos(w.Bearing().Angle-c.heading) / w.Distance()
}
