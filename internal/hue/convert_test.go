package hue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lightslider/internal/device"
)

func TestToHueState_ColorSentAsXY(t *testing.T) {
	wrapped := device.HuePercentToRGB(100)
	tests := []struct {
		name    string
		payload map[string]any
		wantX   float64
		wantY   float64
	}{
		{name: "red", payload: map[string]any{device.KeyRGBColor: []int{255, 0, 0}}, wantX: 0.64, wantY: 0.33},
		{name: "hue_percent_zero", payload: map[string]any{device.KeyRGBColor: []int{int(wrapped[0]), int(wrapped[1]), int(wrapped[2])}}, wantX: 0.64, wantY: 0.33},
		{name: "green", payload: map[string]any{device.KeyRGBColor: []any{0.0, 255.0, 0.0}}, wantX: 0.30, wantY: 0.60},
		{name: "hs_red", payload: map[string]any{device.KeyHSColor: []float64{360, 100}}, wantX: 0.64, wantY: 0.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := toHueState(tt.payload)
			require.NoError(t, err)

			body, err := json.Marshal(state)
			require.NoError(t, err)

			var wire map[string]any
			require.NoError(t, json.Unmarshal(body, &wire))
			xy, ok := wire["xy"].([]any)
			require.True(t, ok, "no xy in %s", body)
			require.Len(t, xy, 2)
			assert.InDelta(t, tt.wantX, xy[0].(float64), 0.01)
			assert.InDelta(t, tt.wantY, xy[1].(float64), 0.01)
			assert.NotContains(t, wire, "hue")
		})
	}
}

func TestToHueState_Brightness(t *testing.T) {
	state, err := toHueState(map[string]any{device.KeyBrightnessPct: 1.0})
	require.NoError(t, err)
	assert.True(t, state.On)
	assert.Equal(t, uint8(3), state.Bri)

	state, err = toHueState(map[string]any{device.KeyBrightnessPct: 100})
	require.NoError(t, err)
	assert.Equal(t, uint8(254), state.Bri)
}

func TestToHueState_RejectsUnknownAttribute(t *testing.T) {
	_, err := toHueState(map[string]any{"effect": "colorloop"})
	assert.Error(t, err)
}
