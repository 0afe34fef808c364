package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LIGHTSLIDER_TEST_TOKEN", "abc")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "set", in: "token: ${LIGHTSLIDER_TEST_TOKEN}", want: "token: abc"},
		{name: "set_with_default", in: "${LIGHTSLIDER_TEST_TOKEN:zzz}", want: "abc"},
		{name: "unset_default", in: "${LIGHTSLIDER_TEST_UNSET:8765}", want: "8765"},
		{name: "unset_empty", in: "x${LIGHTSLIDER_TEST_UNSET}y", want: "xy"},
		{name: "plain", in: "no vars", want: "no vars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.in))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hue:
  bridge: 192.168.1.2
  token: secret
cards:
  desk:
    entity: "3"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:8765", cfg.Server.Addr())
	assert.Equal(t, 2500*time.Millisecond, cfg.Session.OverlayDelay.Duration())
	assert.Equal(t, 250*time.Millisecond, cfg.Session.ScrollCooldown.Duration())
	assert.Equal(t, 10.0, cfg.Dispatch.RateLimitRPS)
	assert.Equal(t, 30, cfg.Ledger.RetentionDays)
	assert.True(t, cfg.Hue.IsEventStreamEnabled())

	desk := cfg.Cards["desk"]
	assert.True(t, desk.ShowBrightnessControl)
	assert.True(t, desk.ShowColorTempControl)
	assert.True(t, desk.ShowColorControl)
	assert.False(t, desk.ShowAllControls)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("LIGHTSLIDER_TEST_BRIDGE", "bridge.lan")
	cfg, err := Parse([]byte(`
hue:
  bridge: ${LIGHTSLIDER_TEST_BRIDGE}
  token: t
  event_stream: false
session:
  overlay_delay: 1s
  threshold: 4
cards:
  living:
    entity: "7"
    show_all_controls: true
    default_rgb: [255, 128, 0]
    disable_auto_switch_mode: true
`))
	require.NoError(t, err)

	assert.Equal(t, "bridge.lan", cfg.Hue.Bridge)
	assert.False(t, cfg.Hue.IsEventStreamEnabled())
	assert.Equal(t, time.Second, cfg.Session.OverlayDelay.Duration())
	assert.Equal(t, 4.0, cfg.Session.Threshold)

	living := cfg.Cards["living"]
	assert.True(t, living.ShowAllControls)
	assert.False(t, living.ShowColorControl)
	assert.Equal(t, []int{255, 128, 0}, living.DefaultRGB)
	assert.True(t, living.DisableAutoSwitchMode)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing_bridge", yaml: "hue: {token: t}"},
		{name: "missing_token", yaml: "hue: {bridge: b}"},
		{name: "card_without_entity", yaml: "hue: {bridge: b, token: t}\ncards: {desk: {}}"},
		{name: "short_rgb", yaml: "hue: {bridge: b, token: t}\ncards: {desk: {entity: '1', default_rgb: [1, 2]}}"},
		{name: "bad_duration", yaml: "hue: {bridge: b, token: t}\nsession: {overlay_delay: soon}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
