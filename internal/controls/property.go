// Package controls binds the generic slider engine to light properties and
// composes the per-track widget.
package controls

import (
	"math"
	"time"

	"github.com/dokzlo13/lightslider/internal/debounce"
	"github.com/dokzlo13/lightslider/internal/device"
	"github.com/dokzlo13/lightslider/internal/slider"
)

// Kind names a controllable property.
type Kind string

const (
	KindBrightness Kind = "brightness"
	KindColor      Kind = "color"
	KindColorTemp  Kind = "color_temp"
	KindSaturation Kind = "saturation"
)

// Property describes how one light property maps to a slider and a command.
type Property struct {
	Kind        Kind
	LiveDelay   time.Duration
	SettleDelay time.Duration

	// Slider returns the slider configuration for st. It may depend on the
	// light, e.g. its mired range.
	Slider func(st device.State) slider.Config
	// Supported reports whether the light exposes the property.
	Supported func(st device.State) bool
	// Read returns the authoritative value, or false if the light does not
	// report it.
	Read func(st device.State) (float64, bool)
	// Fallback is displayed when Read has nothing.
	Fallback func(st device.State) float64
	// Payload builds the turn_on payload for v. st is the latest snapshot.
	Payload func(st device.State, v float64) map[string]any
}

// Brightness controls brightness percent. 0 would turn the light off, so it
// is remapped to 1.
func Brightness() Property {
	cfg := slider.Config{
		Range:            slider.Range{Min: 0, Max: 100, Step: 1},
		SnapPoints:       []float64{25, 50, 75},
		ReleaseThreshold: slider.DefaultReleaseThreshold,
		Remap:            []slider.Remap{{From: 0, To: 1}},
		BoundaryFeedback: true,
	}
	return Property{
		Kind:        KindBrightness,
		SettleDelay: debounce.DefaultSettleDelay,
		Slider:      func(device.State) slider.Config { return cfg },
		Supported:   device.State.SupportsBrightness,
		Read: func(st device.State) (float64, bool) {
			if !st.On {
				return 0, true
			}
			if st.Brightness == nil {
				return 0, false
			}
			return math.Round(*st.Brightness), true
		},
		Fallback: func(device.State) float64 { return 0 },
		Payload: func(_ device.State, v float64) map[string]any {
			return map[string]any{device.KeyBrightnessPct: v}
		},
	}
}

// Color controls hue as a percent of the color wheel. 100 wraps to 0.
func Color() Property {
	cfg := slider.Config{
		Range:            slider.Range{Min: 0, Max: 100, Step: 1},
		Cyclic:           true,
		BoundaryFeedback: true,
	}
	return Property{
		Kind:        KindColor,
		SettleDelay: 50 * time.Millisecond,
		Slider:      func(device.State) slider.Config { return cfg },
		Supported:   device.State.SupportsColor,
		Read: func(st device.State) (float64, bool) {
			switch {
			case st.HS != nil:
				return math.Mod(math.Round(st.HS[0]/360*100), 100), true
			case st.RGB != nil:
				return math.Mod(math.Round(device.RGBToHuePercent(*st.RGB)), 100), true
			}
			return 0, false
		},
		Fallback: func(device.State) float64 { return 0 },
		Payload: func(_ device.State, v float64) map[string]any {
			rgb := device.HuePercentToRGB(v)
			return map[string]any{device.KeyRGBColor: []int{int(rgb[0]), int(rgb[1]), int(rgb[2])}}
		},
	}
}

// ColorTemp controls color temperature in mireds over the light's range.
func ColorTemp() Property {
	return Property{
		Kind:        KindColorTemp,
		SettleDelay: debounce.DefaultSettleDelay,
		Slider: func(st device.State) slider.Config {
			lo, hi := st.MiredRange()
			return slider.Config{Range: slider.Range{Min: math.Round(lo), Max: math.Round(hi), Step: 1}}
		},
		Supported: device.State.SupportsColorTemp,
		Read: func(st device.State) (float64, bool) {
			if st.ColorTemp == nil {
				return 0, false
			}
			return *st.ColorTemp, true
		},
		Fallback: func(st device.State) float64 {
			lo, _ := st.MiredRange()
			return math.Round(lo)
		},
		Payload: func(_ device.State, v float64) map[string]any {
			return map[string]any{device.KeyColorTemp: v}
		},
	}
}

// Saturation controls saturation percent with a floor of 10, keeping the
// light's current hue.
func Saturation() Property {
	cfg := slider.Config{Range: slider.Range{Min: 10, Max: 100, Step: 1}}
	return Property{
		Kind:        KindSaturation,
		SettleDelay: debounce.DefaultSettleDelay,
		Slider:      func(device.State) slider.Config { return cfg },
		Supported:   device.State.SupportsSaturation,
		Read: func(st device.State) (float64, bool) {
			switch {
			case st.HS != nil:
				return math.Round(st.HS[1]), true
			case st.RGB != nil:
				_, s := device.RGBToHS(*st.RGB)
				return math.Round(s), true
			}
			return 0, false
		},
		Fallback: func(device.State) float64 { return 100 },
		Payload: func(st device.State, v float64) map[string]any {
			return map[string]any{device.KeyHSColor: []float64{currentHue(st), v}}
		},
	}
}

// currentHue returns the light's hue in degrees, 0 if it reports none.
func currentHue(st device.State) float64 {
	switch {
	case st.HS != nil:
		return st.HS[0]
	case st.RGB != nil:
		h, _ := device.RGBToHS(*st.RGB)
		return h
	}
	return 0
}

// Properties returns every known property by kind.
func Properties() map[Kind]Property {
	return map[Kind]Property{
		KindBrightness: Brightness(),
		KindColor:      Color(),
		KindColorTemp:  ColorTemp(),
		KindSaturation: Saturation(),
	}
}
