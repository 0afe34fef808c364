package slider

import (
	"math"
	"testing"
)

func TestRange_ToValue(t *testing.T) {
	tests := []struct {
		name     string
		r        Range
		fraction float64
		expected float64
	}{
		{name: "percent/zero", r: Range{0, 100, 1}, fraction: 0, expected: 0},
		{name: "percent/one", r: Range{0, 100, 1}, fraction: 1, expected: 100},
		{name: "percent/round_up", r: Range{0, 100, 1}, fraction: 0.476, expected: 48},
		{name: "percent/round_down", r: Range{0, 100, 1}, fraction: 0.472, expected: 47},
		{name: "saturation/floor", r: Range{10, 100, 1}, fraction: 0, expected: 10},
		{name: "saturation/mid", r: Range{10, 100, 1}, fraction: 0.5, expected: 55},
		{name: "mireds/one", r: Range{153, 500, 1}, fraction: 1, expected: 500},
		{name: "step_5/clamped_at_max", r: Range{0, 98, 5}, fraction: 1, expected: 98},
		{name: "step_tenth/no_float_noise", r: Range{0, 1, 0.1}, fraction: 0.3, expected: 0.3},
		{name: "below_zero_clamped", r: Range{0, 100, 1}, fraction: -0.2, expected: 0},
		{name: "above_one_clamped", r: Range{0, 100, 1}, fraction: 1.3, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.ToValue(tt.fraction)
			if got != tt.expected {
				t.Errorf("ToValue(%v) = %v, want %v", tt.fraction, got, tt.expected)
			}
		})
	}
}

func TestRange_RoundTripWithinOneStep(t *testing.T) {
	ranges := []Range{
		{0, 100, 1},
		{10, 100, 1},
		{153, 500, 1},
		{0, 100, 5},
		{0, 1, 0.01},
	}

	for _, r := range ranges {
		tolerance := r.Step/(r.Max-r.Min) + 1e-9
		for i := 0; i <= 1000; i++ {
			f := float64(i) / 1000
			back := r.ToFraction(r.ToValue(f))
			if math.Abs(back-f) > tolerance {
				t.Fatalf("range %+v: fraction %v round-tripped to %v", r, f, back)
			}
		}
	}
}

func TestRange_Wrap(t *testing.T) {
	r := Range{0, 100, 1}
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{99, 99},
		{100, 0},
		{101, 1},
		{-1, 99},
	}
	for _, tt := range tests {
		if got := r.Wrap(tt.in); got != tt.want {
			t.Errorf("Wrap(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRange_Validate(t *testing.T) {
	if err := (Range{0, 100, 1}).Validate(); err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}
	for _, r := range []Range{{100, 0, 1}, {5, 5, 1}, {0, 100, 0}, {0, 100, -1}} {
		if err := r.Validate(); err == nil {
			t.Errorf("range %+v accepted", r)
		}
	}
}
