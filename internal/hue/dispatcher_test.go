package hue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lightslider/internal/device"
	"github.com/dokzlo13/lightslider/internal/eventbus"
	"github.com/dokzlo13/lightslider/internal/ledger"
)

type fakeApplier struct {
	mu      sync.Mutex
	applied []device.Command
	fail    map[string]error
	done    chan struct{}
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{fail: map[string]error{}, done: make(chan struct{}, 100)}
}

func (a *fakeApplier) Apply(_ context.Context, cmd device.Command) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, cmd)
	a.done <- struct{}{}
	return a.fail[cmd.Target]
}

func (a *fakeApplier) commands() []device.Command {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]device.Command(nil), a.applied...)
}

type memRecorder struct {
	mu      sync.Mutex
	entries []ledger.Entry
}

func (r *memRecorder) Append(e ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *memPublisher) Publish(e eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func brightness(target string, v float64, committed bool) device.Command {
	cmd := device.TurnOn(target, map[string]any{device.KeyBrightnessPct: v})
	cmd.Committed = committed
	return cmd
}

func payloadValue(cmd device.Command) any {
	return cmd.Payload[device.KeyBrightnessPct]
}

// runUntil starts the worker and waits for n applications.
func runUntil(t *testing.T, d *Dispatcher, a *fakeApplier, n int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	for i := 0; i < n; i++ {
		select {
		case <-a.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d commands applied", i, n)
		}
	}
	cancel()
	require.NoError(t, <-done)
}

func TestDispatcher_CoalescesConsecutiveLiveCommands(t *testing.T) {
	a := newFakeApplier()
	d := NewDispatcher(a, nil, nil, DispatcherConfig{})

	require.NoError(t, d.Dispatch(brightness("1", 10, false)))
	require.NoError(t, d.Dispatch(brightness("1", 20, false)))
	require.NoError(t, d.Dispatch(brightness("1", 30, false)))
	assert.Equal(t, 1, d.Len())

	runUntil(t, d, a, 1)
	got := a.commands()
	require.Len(t, got, 1)
	assert.Equal(t, 30.0, payloadValue(got[0]))
}

func TestDispatcher_CommittedIsNeverCoalescedOrReordered(t *testing.T) {
	a := newFakeApplier()
	d := NewDispatcher(a, nil, nil, DispatcherConfig{})

	require.NoError(t, d.Dispatch(brightness("1", 10, false)))
	require.NoError(t, d.Dispatch(brightness("1", 47, true)))
	require.NoError(t, d.Dispatch(brightness("1", 50, false)))
	require.NoError(t, d.Dispatch(brightness("1", 55, false)))
	assert.Equal(t, 3, d.Len())

	runUntil(t, d, a, 3)
	got := a.commands()
	require.Len(t, got, 3)
	assert.Equal(t, 10.0, payloadValue(got[0]))
	assert.True(t, got[1].Committed)
	assert.Equal(t, 47.0, payloadValue(got[1]))
	assert.Equal(t, 55.0, payloadValue(got[2]))
}

func TestDispatcher_DifferentTargetsKeepOrder(t *testing.T) {
	a := newFakeApplier()
	d := NewDispatcher(a, nil, nil, DispatcherConfig{})

	require.NoError(t, d.Dispatch(brightness("1", 10, false)))
	require.NoError(t, d.Dispatch(brightness("2", 20, false)))
	require.NoError(t, d.Dispatch(brightness("1", 30, false)))

	runUntil(t, d, a, 3)
	got := a.commands()
	assert.Equal(t, []string{"1", "2", "1"}, []string{got[0].Target, got[1].Target, got[2].Target})
}

func TestDispatcher_QueueFullRejectsLiveOnly(t *testing.T) {
	a := newFakeApplier()
	d := NewDispatcher(a, nil, nil, DispatcherConfig{QueueSize: 1})

	require.NoError(t, d.Dispatch(brightness("1", 10, false)))
	err := d.Dispatch(brightness("2", 20, false))
	assert.ErrorIs(t, err, ErrQueueFull)

	assert.NoError(t, d.Dispatch(brightness("2", 20, true)))
	assert.Equal(t, 2, d.Len())
}

func TestDispatcher_RecordsOutcomes(t *testing.T) {
	a := newFakeApplier()
	a.fail["2"] = errors.New("light unreachable")
	rec := &memRecorder{}
	pub := &memPublisher{}
	d := NewDispatcher(a, rec, pub, DispatcherConfig{})

	require.NoError(t, d.For("session-a").Dispatch(brightness("1", 10, false)))
	require.NoError(t, d.For("session-a").Dispatch(brightness("1", 40, true)))
	require.NoError(t, d.For("session-b").Dispatch(brightness("2", 20, true)))

	runUntil(t, d, a, 3)

	// The live command succeeded and leaves no trace.
	require.Len(t, rec.entries, 2)
	applied := rec.entries[0]
	assert.Equal(t, ledger.EventCommandApplied, applied.EventType)
	assert.Equal(t, "1", applied.Target)
	assert.Equal(t, "session-a", applied.Source)
	assert.NotEmpty(t, applied.IdempotencyKey)

	failed := rec.entries[1]
	assert.Equal(t, ledger.EventCommandFailed, failed.EventType)
	assert.Equal(t, "light unreachable", failed.Error)
	assert.Equal(t, "session-b", failed.Source)

	require.Len(t, pub.events, 2)
	assert.Equal(t, eventbus.EventTypeCommandApplied, pub.events[0].Type)
	assert.Equal(t, "1", pub.events[0].Data["light_id"])
	assert.Equal(t, eventbus.EventTypeCommandFailed, pub.events[1].Type)
	assert.Equal(t, "light unreachable", pub.events[1].Data["error"])
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	d := NewDispatcher(newFakeApplier(), nil, nil, DefaultDispatcherConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, d.Run(ctx))
}
