package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lightslider/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
hue:
  bridge: 127.0.0.1
  token: test
cards:
  desk:
    entity: "3"
`))
	require.NoError(t, err)
	return cfg
}

func TestHTTPService_HealthAndReady(t *testing.T) {
	cfg := testConfig(t)
	hue := NewHueService(cfg, nil)
	t.Cleanup(func() { hue.Bus.Close(context.Background()) })
	svc := NewHTTPService(cfg, hue)

	get := func(path string) (int, map[string]any) {
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	code, body := get("/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, _ = get("/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	hue.connected.Store(true)
	code, body = get("/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
	assert.EqualValues(t, 0, body["sessions"])
}

func TestHTTPService_WebsocketRouteRequiresUpgrade(t *testing.T) {
	cfg := testConfig(t)
	hue := NewHueService(cfg, nil)
	t.Cleanup(func() { hue.Bus.Close(context.Background()) })
	svc := NewHTTPService(cfg, hue)

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
