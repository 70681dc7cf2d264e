// Package polar implements the boat-speed-as-function-of-apparent-wind-angle
// model: a degree-6 polynomial evaluated on |awa|, divided by a calibration
// factor, with a close-hauled dead zone.
package polar

import "math"

// CalibrationFactor divides the raw polynomial evaluation to produce the
// final speed in knots.
const CalibrationFactor = 2.5

// CloseHauledThreshold is the minimum |awa| (radians) at which the boat can
// make way; below it the hull cannot point close enough to the wind.
const CloseHauledThreshold = 0.75

// Curve is a degree-6 polynomial in |awa| (radians): speed(awa) =
// (c0 + c1*x + c2*x^2 + ... + c6*x^6) / CalibrationFactor, clamped to
// [0, +inf) and forced to 0 below CloseHauledThreshold.
type Curve struct {
	Coefficients [7]float64
}

// DefaultCurve is a reference polar curve for a small cruising hull: a
// downward-bowed curve in |awa| that is zero at the close-hauled
// threshold, peaks near a broad reach, and returns to near zero dead
// downwind. Expressed with the unused higher-degree terms zeroed.
var DefaultCurve = Curve{Coefficients: [7]float64{
	-28.86, 47.63, -12.24, 0, 0, 0, 0,
}}

// Speed evaluates the polar curve at the given apparent wind angle
// (radians, any sign — only the magnitude matters).
func (c Curve) Speed(awa float64) float64 {
	x := math.Abs(awa)
	if x < CloseHauledThreshold {
		return 0
	}

	var raw float64
	power := 1.0
	for _, coeff := range c.Coefficients {
		raw += coeff * power
		power *= x
	}

	speed := raw / CalibrationFactor
	if speed < 0 {
		return 0
	}
	return speed
}
