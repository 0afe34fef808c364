package slider

import (
	"fmt"
	"math"
)

// DefaultReleaseThreshold is how far a drag must move away from a hold point
// before tracking resumes, in domain units.
const DefaultReleaseThreshold = 10

// Remap replaces a forbidden domain value with an allowed one.
type Remap struct {
	From float64
	To   float64
}

// Config is the per-instance configuration of a slider.
type Config struct {
	Range            Range
	SnapPoints       []float64 // hold points, ascending
	ReleaseThreshold float64
	Cyclic           bool    // Max ≡ Min
	Remap            []Remap // applied after quantization and wrapping
	BoundaryFeedback bool    // heavy haptic when the lowest or highest allowed value is reached
}

// Validate checks the range and the snap configuration.
func (c Config) Validate() error {
	if err := c.Range.Validate(); err != nil {
		return fmt.Errorf("%w: min=%v max=%v step=%v", err, c.Range.Min, c.Range.Max, c.Range.Step)
	}
	if len(c.SnapPoints) > 0 && !(c.ReleaseThreshold > 0) {
		return fmt.Errorf("snap points require a positive release threshold")
	}
	for i, p := range c.SnapPoints {
		if p < c.Range.Min || p > c.Range.Max {
			return fmt.Errorf("snap point %v outside [%v,%v]", p, c.Range.Min, c.Range.Max)
		}
		if i > 0 && p <= c.SnapPoints[i-1] {
			return fmt.Errorf("snap points must be strictly ascending")
		}
	}
	return nil
}

// Normalize applies cyclic wrapping and forbidden-value remapping to an
// already quantized value.
func (c Config) Normalize(v float64) float64 {
	if c.Cyclic {
		v = c.Range.Wrap(v)
	}
	for _, m := range c.Remap {
		if v == m.From {
			return m.To
		}
	}
	return v
}

// ValueAt maps a track position to the value the slider emits there.
func (c Config) ValueAt(pos float64) float64 {
	return c.Normalize(c.Range.ToValue(ClampFraction(pos)))
}

// isBoundary reports whether v is the lowest or highest value the slider can
// emit. On a cyclic range Max wraps to Min, so the highest is one step below.
func (c Config) isBoundary(v float64) bool {
	hi := c.Range.Max
	if c.Cyclic {
		hi -= c.Range.Step
	}
	return v == c.Normalize(c.Range.Min) || v == c.Normalize(hi)
}

// snapTarget returns the hold point reached when moving from prev to v.
// A point is reached when v lands on it or the move crosses it; the first
// point crossed wins. exclude is never returned.
func (c Config) snapTarget(prev float64, hasPrev bool, v float64, exclude *float64) (float64, bool) {
	if len(c.SnapPoints) == 0 {
		return 0, false
	}
	best, found := 0.0, false
	for _, p := range c.SnapPoints {
		if exclude != nil && p == *exclude {
			continue
		}
		reached := p == v
		if hasPrev && p != prev {
			lo, hi := math.Min(prev, v), math.Max(prev, v)
			reached = reached || (p > lo && p < hi)
		}
		if !reached {
			continue
		}
		if !found || math.Abs(p-prev) < math.Abs(best-prev) {
			best, found = p, true
		}
	}
	return best, found
}
