// Package device defines the light state snapshot the engine renders from and
// the command shape it sends.
package device

// Features is the set of controls a light supports.
type Features uint8

const (
	FeatureBrightness Features = 1 << iota
	FeatureColor
	FeatureColorTemp
)

// Has reports whether all of f are set.
func (s Features) Has(f Features) bool {
	return s&f == f
}

// Color modes as reported by the bridge.
const (
	ColorModeHS        = "hs"
	ColorModeXY        = "xy"
	ColorModeColorTemp = "ct"
)

// Default mired bounds when the light does not report its own.
const (
	DefaultMinMireds = 153
	DefaultMaxMireds = 500
)

// State is a snapshot of a light delivered on every refresh.
// Optional attributes are nil when the light does not report them.
type State struct {
	ID        string
	Name      string
	Available bool
	On        bool
	Features  Features
	ColorMode string

	Brightness *float64    // percent 0-100
	HS         *[2]float64 // hue degrees 0-360, saturation percent 0-100
	RGB        *[3]uint8
	ColorTemp  *float64 // mired

	MinMireds float64
	MaxMireds float64
}

// Active reports whether the light is available and on.
func (s State) Active() bool {
	return s.Available && s.On
}

// SupportsBrightness reports whether brightness can be controlled.
func (s State) SupportsBrightness() bool {
	return s.Features.Has(FeatureBrightness)
}

// SupportsColor reports whether hue can be controlled.
func (s State) SupportsColor() bool {
	return s.Features.Has(FeatureColor)
}

// SupportsColorTemp reports whether color temperature can be controlled.
func (s State) SupportsColorTemp() bool {
	return s.Features.Has(FeatureColorTemp)
}

// SupportsSaturation reports whether saturation can be controlled.
func (s State) SupportsSaturation() bool {
	return s.Features.Has(FeatureColor)
}

// MiredRange returns the light's mired bounds, falling back to defaults.
func (s State) MiredRange() (float64, float64) {
	lo, hi := s.MinMireds, s.MaxMireds
	if lo <= 0 || hi <= lo {
		return DefaultMinMireds, DefaultMaxMireds
	}
	return lo, hi
}
