// Package waypoint implements attractors and repellors: a half-disk
// "reached" coverage region around a Location, and the chord-adjusted
// distance used by the navigator.
package waypoint

import (
	"math"

	"github.com/sailcore/sailcore/internal/geo"
)

// ReachedThresholdNM is the GPS-error floor below which a waypoint's
// adjusted distance is considered reached (~10 m). A package variable
// rather than a constant so the core's configuration layer can tune it
// per deployment.
var ReachedThresholdNM = 0.0054

// Waypoint is an attractor (pulls the planner toward it) or a repellor
// (pushes the planner away), defined by a half-disk coverage region: a
// disk of radius Range centered on Location, clipped by the half-plane
// whose boundary is perpendicular to Normal.
type Waypoint struct {
	Location  geo.Location
	Normal    float64
	Range     float64
	Name      string
	Attractor bool

	bearing  geo.Bearing
	distance float64
}

// New constructs a Waypoint. rangeNM and normal are in nautical
// miles/radians respectively.
func New(name string, loc geo.Location, normal, rangeNM float64, attractor bool) *Waypoint {
	return &Waypoint{
		Location:  loc,
		Normal:    normal,
		Range:     rangeNM,
		Name:      name,
		Attractor: attractor,
	}
}

// ComputeBearing computes the bearing and chord-adjusted distance from the
// boat's position to this waypoint:
//
//  1. b = Bearing.compute(from, location)
//  2. raw_distance = b.distance
//  3. alpha = (b.back_angle - normal) mod 2*pi
//  4. if 0 <= alpha < pi: distance = max(0, raw_distance - range)
//     else:               distance = raw_distance
//
// This models a final-approach corridor: the boat is "at" a waypoint only
// when it arrives from the correct side of the chord.
func (w *Waypoint) ComputeBearing(from geo.Location) {
	b := geo.Compute(from, w.Location)
	rawDistance := b.Distance

	alpha := geo.Absolute(b.BackAngle() - w.Normal)

	var distance float64
	if alpha >= 0 && alpha < math.Pi {
		distance = rawDistance - w.Range
		if distance < 0 {
			distance = 0
		}
	} else {
		distance = rawDistance
	}

	w.bearing = b
	w.distance = distance
}

// Bearing returns the bearing computed by the most recent ComputeBearing
// call.
func (w *Waypoint) Bearing() geo.Bearing { return w.bearing }

// Distance returns the chord-adjusted distance computed by the most recent
// ComputeBearing call. Never negative.
func (w *Waypoint) Distance() float64 { return w.distance }

// Reached reports whether the waypoint's last-computed adjusted distance
// is within the GPS-error floor.
func (w *Waypoint) Reached() bool {
	return w.distance <= ReachedThresholdNM
}
