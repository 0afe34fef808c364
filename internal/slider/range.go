// Package slider holds the value mapping and the drag state machine of an
// analog slider.
package slider

import (
	"errors"
	"math"
)

var (
	// ErrInvalidRange is returned by Range.Validate.
	ErrInvalidRange = errors.New("invalid slider range")
	// ErrBusy is returned when reconfiguring a slider during a gesture.
	ErrBusy = errors.New("slider is busy")
)

// Range is the domain of a slider.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

// Validate checks min < max and step > 0.
func (r Range) Validate() error {
	if !(r.Min < r.Max) || !(r.Step > 0) {
		return ErrInvalidRange
	}
	return nil
}

// ToFraction maps a domain value to [0,1].
func (r Range) ToFraction(v float64) float64 {
	return (v - r.Min) / (r.Max - r.Min)
}

// ToValue maps a fraction to the nearest step multiple, clamped into [Min,Max].
func (r Range) ToValue(f float64) float64 {
	raw := r.Min + f*(r.Max-r.Min)
	return r.Clamp(roundStep(raw, r.Step))
}

// Quantize rounds v to the step and clamps it into the range.
func (r Range) Quantize(v float64) float64 {
	return r.Clamp(roundStep(v, r.Step))
}

// Clamp limits v to [Min,Max].
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Wrap maps v into [Min,Max) treating the range as cyclic, so Max ≡ Min.
func (r Range) Wrap(v float64) float64 {
	span := r.Max - r.Min
	w := math.Mod(v-r.Min, span)
	if w < 0 {
		w += span
	}
	return r.Min + w
}

// roundStep rounds to a multiple of step and strips float noise such as
// 0.30000000000000004 for step 0.1.
func roundStep(v, step float64) float64 {
	q := math.Round(v/step) * step
	return math.Round(q*1e9) / 1e9
}

// ClampFraction limits f to [0,1].
func ClampFraction(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}
