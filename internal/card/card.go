// Package card decides which slider controls of a light are shown and
// handles switching between them.
package card

import (
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/controls"
	"github.com/dokzlo13/lightslider/internal/debounce"
	"github.com/dokzlo13/lightslider/internal/device"
	"github.com/dokzlo13/lightslider/internal/haptics"
)

// Control is a selectable group of sliders.
type Control string

const (
	ControlBrightness Control = "brightness_control"
	ControlColorTemp  Control = "color_temp_control"
	ControlColor      Control = "color_control"
	ControlAll        Control = "all_controls"
)

// fallbackMiredFactor picks a warm white when nothing better is known.
const fallbackMiredFactor = 0.925

// Config is the per-card configuration.
type Config struct {
	Entity                string  `yaml:"entity" json:"entity"`
	ShowBrightnessControl bool    `yaml:"show_brightness_control" json:"show_brightness_control"`
	ShowColorTempControl  bool    `yaml:"show_color_temp_control" json:"show_color_temp_control"`
	ShowColorControl      bool    `yaml:"show_color_control" json:"show_color_control"`
	ShowAllControls       bool    `yaml:"show_all_controls" json:"show_all_controls"`
	CollapsibleControls   bool    `yaml:"collapsible_controls" json:"collapsible_controls"`
	DefaultKelvin         float64 `yaml:"default_kelvin" json:"default_kelvin,omitempty"`
	DefaultRGB            []int   `yaml:"default_rgb" json:"default_rgb,omitempty"`
	DisableAutoSwitchMode bool    `yaml:"disable_auto_switch_mode" json:"disable_auto_switch_mode"`
}

// Card tracks the controls available for one light. Not safe for concurrent
// use.
type Card struct {
	cfg        Config
	dispatcher debounce.Dispatcher
	haptics    haptics.Sink

	state     device.State
	controls  []Control
	active    Control
	colorMode string

	savedColorTemp *float64
	savedHS        *[2]float64
	showSaturation bool
}

// New creates a card. dispatcher receives mode switch commands.
func New(cfg Config, dispatcher debounce.Dispatcher, sink haptics.Sink) *Card {
	if sink == nil {
		sink = haptics.Discard
	}
	return &Card{cfg: cfg, dispatcher: dispatcher, haptics: sink}
}

// Config returns the card configuration.
func (c *Card) Config() Config {
	return c.cfg
}

// Update recomputes the control set from a fresh snapshot. In auto mode the
// active control follows the light's color mode whenever that mode changes.
func (c *Card) Update(st device.State) {
	c.state = st
	c.controls = availableControls(c.cfg, st)

	if len(c.controls) == 0 {
		c.active = ""
		c.colorMode = st.ColorMode
		return
	}

	follow := !c.cfg.DisableAutoSwitchMode && st.ColorMode != c.colorMode
	if follow || !slices.Contains(c.controls, c.active) {
		c.active = defaultControl(c.controls, st.ColorMode)
	}
	c.colorMode = st.ColorMode
}

// Controls returns the selectable controls in display order.
func (c *Card) Controls() []Control {
	return c.controls
}

// Active returns the displayed control, "" if none.
func (c *Card) Active() Control {
	return c.active
}

// ShowSaturation reports whether the saturation slider is expanded under the
// color slider.
func (c *Card) ShowSaturation() bool {
	return c.showSaturation
}

// Select switches to ctrl. Unless auto switching is disabled, picking a
// temperature or color control also switches the light into that mode,
// restoring the last value seen in it.
func (c *Card) Select(ctrl Control) bool {
	if !slices.Contains(c.controls, ctrl) {
		return false
	}
	c.haptics.Haptic(haptics.Medium)

	if !c.cfg.DisableAutoSwitchMode && (ctrl == ControlColorTemp || ctrl == ControlColor) {
		c.switchMode(ctrl)
	}
	c.active = ctrl
	return true
}

// ToggleSaturation expands or collapses the saturation slider.
func (c *Card) ToggleSaturation() {
	c.haptics.Haptic(haptics.Medium)
	c.showSaturation = !c.showSaturation
}

// Sliders returns the property sliders shown for the active control.
func (c *Card) Sliders() []controls.Kind {
	st := c.state
	withBrightness := c.cfg.ShowBrightnessControl && st.SupportsBrightness()

	var out []controls.Kind
	switch c.active {
	case ControlAll:
		if st.SupportsBrightness() {
			out = append(out, controls.KindBrightness)
		}
		if st.SupportsColorTemp() {
			out = append(out, controls.KindColorTemp)
		}
		if st.SupportsColor() {
			out = append(out, controls.KindColor)
		}
		if st.SupportsSaturation() {
			out = append(out, controls.KindSaturation)
		}
	case ControlBrightness:
		out = append(out, controls.KindBrightness)
	case ControlColorTemp:
		if withBrightness {
			out = append(out, controls.KindBrightness)
		}
		out = append(out, controls.KindColorTemp)
	case ControlColor:
		if withBrightness {
			out = append(out, controls.KindBrightness)
		}
		out = append(out, controls.KindColor)
		if c.showSaturation && st.SupportsSaturation() {
			out = append(out, controls.KindSaturation)
		}
	}
	return out
}

func (c *Card) switchMode(ctrl Control) {
	st := c.state
	switch st.ColorMode {
	case device.ColorModeColorTemp:
		if st.ColorTemp != nil {
			v := *st.ColorTemp
			c.savedColorTemp = &v
		}
	case device.ColorModeHS:
		if st.HS != nil {
			v := *st.HS
			c.savedHS = &v
		}
	}

	payload := map[string]any{}
	switch ctrl {
	case ControlColorTemp:
		switch {
		case c.cfg.DefaultKelvin > 0:
			payload[device.KeyKelvin] = c.cfg.DefaultKelvin
		case c.savedColorTemp != nil:
			payload[device.KeyColorTemp] = *c.savedColorTemp
		default:
			_, hi := st.MiredRange()
			payload[device.KeyColorTemp] = hi * fallbackMiredFactor
		}
	case ControlColor:
		switch {
		case len(c.cfg.DefaultRGB) == 3:
			payload[device.KeyRGBColor] = []int{c.cfg.DefaultRGB[0], c.cfg.DefaultRGB[1], c.cfg.DefaultRGB[2]}
		case c.savedHS != nil:
			payload[device.KeyHSColor] = []float64{c.savedHS[0], c.savedHS[1]}
		case st.RGB != nil:
			payload[device.KeyRGBColor] = []int{int(st.RGB[0]), int(st.RGB[1]), int(st.RGB[2])}
		default:
			log.Debug().Str("entity", c.cfg.Entity).Msg("No color to restore, mode switch skipped")
			return
		}
	}

	cmd := device.TurnOn(c.cfg.Entity, payload)
	cmd.Committed = true
	if err := c.dispatcher.Dispatch(cmd); err != nil {
		log.Warn().Err(err).Str("entity", c.cfg.Entity).Msg("Mode switch failed")
	}
}

func availableControls(cfg Config, st device.State) []Control {
	if cfg.CollapsibleControls && !st.Active() {
		return nil
	}
	var out []Control
	if cfg.ShowBrightnessControl && st.SupportsBrightness() && !st.SupportsColorTemp() && !st.SupportsColor() {
		out = append(out, ControlBrightness)
	}
	if cfg.ShowColorTempControl && st.SupportsColorTemp() {
		out = append(out, ControlColorTemp)
	}
	if cfg.ShowColorControl && st.SupportsColor() {
		out = append(out, ControlColor)
	}
	if cfg.ShowAllControls && (st.SupportsBrightness() || st.SupportsColorTemp() || st.SupportsColor()) {
		out = append(out, ControlAll)
	}
	return out
}

func defaultControl(available []Control, colorMode string) Control {
	if colorMode == device.ColorModeHS || colorMode == device.ColorModeXY {
		if slices.Contains(available, ControlColor) {
			return ControlColor
		}
	}
	return available[0]
}
