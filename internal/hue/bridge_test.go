package hue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lightslider/internal/device"
)

// hangingBridge accepts requests and never answers them.
func hangingBridge(t *testing.T) *Bridge {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return NewBridge(srv.URL, "token")
}

func TestBridge_CallsHonorContextDeadline(t *testing.T) {
	b := hangingBridge(t)

	calls := map[string]func(ctx context.Context) error{
		"light_state": func(ctx context.Context) error {
			_, err := b.LightState(ctx, "3")
			return err
		},
		"lights": func(ctx context.Context) error {
			_, err := b.Lights(ctx)
			return err
		},
		"apply": func(ctx context.Context) error {
			return b.Apply(ctx, device.TurnOn("3", map[string]any{device.KeyBrightnessPct: 40.0}))
		},
		"connect": b.Connect,
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- call(ctx) }()

			select {
			case err := <-done:
				require.Error(t, err)
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			case <-time.After(2 * time.Second):
				t.Fatal("call outlived its context")
			}
		})
	}
}

func TestDispatcher_TimeoutFreesWorker(t *testing.T) {
	b := hangingBridge(t)
	rec := &memRecorder{}
	d := NewDispatcher(b, rec, nil, DispatcherConfig{Timeout: 50 * time.Millisecond})

	require.NoError(t, d.Dispatch(brightness("3", 40, true)))
	require.NoError(t, d.Dispatch(brightness("3", 60, true)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.entries) == 2
	}, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, e := range rec.entries {
		assert.Contains(t, e.Error, "deadline exceeded")
	}
}
