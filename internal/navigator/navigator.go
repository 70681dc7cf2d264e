// Package navigator implements the vector-field heading planner: each
// cycle it searches a swing window around the bearing to the current
// attractor and scores candidates by relative VMG toward nearby
// attractors, away from repellors, penalized for tacking.
package navigator

import (
	"fmt"
	"math"

	"github.com/sailcore/sailcore/internal/course"
	"github.com/sailcore/sailcore/internal/geo"
	"github.com/sailcore/sailcore/internal/polar"
	"github.com/sailcore/sailcore/internal/waypoint"
)

// NavError reports that no candidate heading in the swing window had
// non-zero utility; the caller holds the current heading and raises an
// alarm (§7 NavError).
type NavError struct {
	Reason string
}

func (e *NavError) Error() string { return fmt.Sprintf("navigator: %s", e.Reason) }

// SwingDegrees is the default half-width of the search window around the
// bearing to the current attractor.
const SwingDegrees = 45

// LookaheadWaypoints is the default number of attractors past the current
// one whose relative VMG also contributes to a candidate's utility.
const LookaheadWaypoints = 3

// TackPenalty scales the utility of any candidate whose tack differs from
// the current course (§4.6 step 6 — tacks are expensive).
const TackPenalty = 0.1

// MinSpeed is the speed below which a candidate heading is treated as
// head-to-wind and skipped outright.
const MinSpeed = 0.001

// Config tunes the search; zero value uses the package defaults.
type Config struct {
	SwingDegrees       int
	LookaheadWaypoints int
}

func (c Config) swing() int {
	if c.SwingDegrees > 0 {
		return c.SwingDegrees
	}
	return SwingDegrees
}

func (c Config) lookahead() int {
	if c.LookaheadWaypoints > 0 {
		return c.LookaheadWaypoints
	}
	return LookaheadWaypoints
}

// Input bundles the per-cycle state the planner reads (§4.6 Inputs).
type Input struct {
	Location geo.Location
	Compass  float64 // radians, from OttoState.ActualCompass
	AWA      float64 // radians, from OttoState.ActualAWA
	Curve    polar.Curve

	Attractors      []*waypoint.Waypoint
	Repellors       []*waypoint.Waypoint
	CurrentWaypoint int
	CurrentTack     course.Tack
}

// Result is a single planning cycle's outcome.
type Result struct {
	Heading         float64
	Tack            course.Tack
	Tacked          bool
	CurrentWaypoint int
	Complete        bool
}

// Plan runs one navigator cycle per §4.6 and returns the chosen heading.
func Plan(cfg Config, in Input) (Result, error) {
	currentWaypoint := in.CurrentWaypoint
	if currentWaypoint < 0 {
		currentWaypoint = 0
	}
	if len(in.Attractors) == 0 {
		return Result{}, &NavError{Reason: "no attractors configured"}
	}

	for _, a := range in.Attractors[currentWaypoint:] {
		a.ComputeBearing(in.Location)
	}
	for _, r := range in.Repellors {
		r.ComputeBearing(in.Location)
	}

	for currentWaypoint < len(in.Attractors) && in.Attractors[currentWaypoint].Reached() {
		currentWaypoint++
	}
	if currentWaypoint >= len(in.Attractors) {
		return Result{CurrentWaypoint: currentWaypoint, Complete: true}, nil
	}

	w := in.Attractors[currentWaypoint]

	cur := course.New(in.Curve, in.Compass, geo.Bearing{})
	cur.SetAWA(in.AWA)
	wind := cur.ComputeWind()
	cur.SetWind(wind)

	lookaheadEnd := currentWaypoint + cfg.lookahead() + 1
	if lookaheadEnd > len(in.Attractors) {
		lookaheadEnd = len(in.Attractors)
	}
	lookahead := in.Attractors[currentWaypoint:lookaheadEnd]

	swing := cfg.swing()
	bestUtility := math.Inf(-1)
	var best *course.Course

	for deg := -swing; deg <= swing; deg++ {
		heading := geo.Absolute(w.Bearing().Angle + geo.DegreesToRadians(float64(deg)))
		cand := course.New(in.Curve, heading, wind)
		if cand.Speed() < MinSpeed {
			continue
		}

		utility := cand.RelativeVMG(w)
		for _, a := range lookahead {
			utility += cand.RelativeVMG(a)
		}
		for _, r := range in.Repellors {
			utility -= cand.RelativeVMG(r)
		}
		if math.IsNaN(utility) || math.IsInf(utility, 0) {
			utility = math.Inf(-1)
		}

		if cand.Tack() != in.CurrentTack {
			utility *= TackPenalty
		}

		if utility >= bestUtility {
			bestUtility = utility
			best = cand
		}
	}

	if best == nil {
		return Result{}, &NavError{Reason: "no candidate heading had usable speed in the swing window"}
	}

	return Result{
		Heading:         best.Heading(),
		Tack:            best.Tack(),
		Tacked:          best.Tack() != in.CurrentTack,
		CurrentWaypoint: currentWaypoint,
		Complete:        false,
	}, nil
}
