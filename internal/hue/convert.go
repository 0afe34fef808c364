package hue

import (
	"fmt"
	"math"
	"strconv"

	"github.com/amimof/huego"

	"github.com/dokzlo13/lightslider/internal/device"
)

// Bridge value ranges (v1 API).
const (
	maxBri = 254
	maxSat = 254
	maxHue = 65535
	minCt  = 153
	maxCt  = 500
)

// lightFeatures maps a v1 light type to the controls it supports.
var lightFeatures = map[string]device.Features{
	"Extended color light":    device.FeatureBrightness | device.FeatureColor | device.FeatureColorTemp,
	"Color light":             device.FeatureBrightness | device.FeatureColor,
	"Color temperature light": device.FeatureBrightness | device.FeatureColorTemp,
	"Dimmable light":          device.FeatureBrightness,
}

// toState converts a bridge light into a device snapshot.
func toState(l *huego.Light) device.State {
	st := device.State{
		ID:        strconv.Itoa(l.ID),
		Name:      l.Name,
		Features:  lightFeatures[l.Type],
		MinMireds: minCt,
		MaxMireds: maxCt,
	}
	if l.State == nil {
		return st
	}
	s := l.State
	st.Available = s.Reachable
	st.On = s.On
	st.ColorMode = s.ColorMode

	if st.Features.Has(device.FeatureBrightness) {
		bri := math.Round(float64(s.Bri) / maxBri * 100)
		st.Brightness = &bri
	}
	if st.Features.Has(device.FeatureColor) {
		hs := [2]float64{
			float64(s.Hue) / (maxHue + 1) * 360,
			float64(s.Sat) / maxSat * 100,
		}
		rgb := device.HSToRGB(hs[0], hs[1])
		st.HS = &hs
		st.RGB = &rgb
	}
	if st.Features.Has(device.FeatureColorTemp) && s.Ct > 0 {
		ct := float64(s.Ct)
		st.ColorTemp = &ct
	}
	return st
}

// toHueState converts a turn_on payload into a bridge state change.
func toHueState(payload map[string]any) (huego.State, error) {
	state := huego.State{On: true}

	for key, raw := range payload {
		switch key {
		case device.KeyBrightnessPct:
			pct, err := number(raw)
			if err != nil {
				return state, fmt.Errorf("%s: %w", key, err)
			}
			state.Bri = uint8(clamp(math.Round(pct*maxBri/100), 1, maxBri))

		case device.KeyColorTemp:
			ct, err := number(raw)
			if err != nil {
				return state, fmt.Errorf("%s: %w", key, err)
			}
			state.Ct = uint16(clamp(math.Round(ct), minCt, maxCt))

		case device.KeyKelvin:
			k, err := number(raw)
			if err != nil || k <= 0 {
				return state, fmt.Errorf("%s: invalid kelvin %v", key, raw)
			}
			state.Ct = uint16(clamp(math.Round(1e6/k), minCt, maxCt))

		case device.KeyHSColor:
			hs, err := numbers(raw, 2)
			if err != nil {
				return state, fmt.Errorf("%s: %w", key, err)
			}
			deg := math.Mod(hs[0], 360)
			if deg < 0 {
				deg += 360
			}
			state.Xy = xy(device.HSToRGB(deg, clamp(hs[1], 0, 100)))

		case device.KeyRGBColor:
			rgb, err := numbers(raw, 3)
			if err != nil {
				return state, fmt.Errorf("%s: %w", key, err)
			}
			state.Xy = xy([3]uint8{
				uint8(clamp(rgb[0], 0, 255)),
				uint8(clamp(rgb[1], 0, 255)),
				uint8(clamp(rgb[2], 0, 255)),
			})

		default:
			return state, fmt.Errorf("unsupported attribute %q", key)
		}
	}
	return state, nil
}

// xy converts rgb to bridge chromaticity. huego omits a zero hue, so color
// is never sent as hue/sat.
func xy(rgb [3]uint8) []float32 {
	x, y := device.RGBToXY(rgb)
	return []float32{float32(x), float32(y)}
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func numbers(v any, n int) ([]float64, error) {
	var out []float64
	switch xs := v.(type) {
	case []float64:
		out = append(out, xs...)
	case []int:
		for _, x := range xs {
			out = append(out, float64(x))
		}
	case []any:
		for _, x := range xs {
			f, err := number(x)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
	default:
		return nil, fmt.Errorf("not a list: %T", v)
	}
	if len(out) != n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(out))
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
