package device

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HuePercentToRGB returns the fully saturated, full value color at hue
// percent p (0-100, cyclic).
func HuePercentToRGB(p float64) [3]uint8 {
	p = math.Mod(p, 100)
	if p < 0 {
		p += 100
	}
	r, g, b := colorful.Hsv(360*p/100, 1, 1).RGB255()
	return [3]uint8{r, g, b}
}

// RGBToHuePercent returns the hue of rgb as a percent in [0,100).
func RGBToHuePercent(rgb [3]uint8) float64 {
	h, _, _ := toColor(rgb).Hsv()
	p := h / 360 * 100
	if p >= 100 {
		p -= 100
	}
	return p
}

// HSToRGB converts hue degrees and saturation percent to RGB at full value.
func HSToRGB(hue, sat float64) [3]uint8 {
	r, g, b := colorful.Hsv(math.Mod(hue, 360), clamp01(sat/100), 1).RGB255()
	return [3]uint8{r, g, b}
}

// RGBToHS converts rgb to hue degrees and saturation percent.
func RGBToHS(rgb [3]uint8) (float64, float64) {
	h, s, _ := toColor(rgb).Hsv()
	return h, s * 100
}

// RGBToXY returns the CIE 1931 chromaticity of rgb. Black maps to the D65
// white point.
func RGBToXY(rgb [3]uint8) (float64, float64) {
	x, y, _ := toColor(rgb).Xyy()
	return x, y
}

func toColor(rgb [3]uint8) colorful.Color {
	return colorful.Color{
		R: float64(rgb[0]) / 255,
		G: float64(rgb[1]) / 255,
		B: float64(rgb[2]) / 255,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
