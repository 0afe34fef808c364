package debounce

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lightslider/internal/clock"
	"github.com/dokzlo13/lightslider/internal/device"
)

type sent struct {
	value     float64
	committed bool
	at        time.Time
}

type harness struct {
	clk       *clock.Fake
	d         *Debouncer
	sent      []sent
	overrides []*float64
	settled   int
}

func newHarness(cfg Config) *harness {
	h := &harness{clk: clock.NewFake(time.Unix(0, 0))}
	build := func(v float64) device.Command {
		return device.TurnOn("light.test", map[string]any{device.KeyBrightnessPct: v})
	}
	dispatch := DispatcherFunc(func(cmd device.Command) error {
		h.sent = append(h.sent, sent{
			value:     cmd.Payload[device.KeyBrightnessPct].(float64),
			committed: cmd.Committed,
			at:        h.clk.Now(),
		})
		return nil
	})
	h.d = New(cfg, h.clk, build, dispatch, Hooks{
		OnOverride: func(v *float64) { h.overrides = append(h.overrides, v) },
		OnSettle:   func() { h.settled++ },
	})
	return h
}

func (h *harness) values() []float64 {
	out := make([]float64, 0, len(h.sent))
	for _, s := range h.sent {
		out = append(out, s.value)
	}
	return out
}

func overrideValue(t *testing.T, d *Debouncer) float64 {
	t.Helper()
	v := d.Override()
	require.NotNil(t, v, "override expected")
	return *v
}

func TestDebouncer_BurstSendsLastValueOnce(t *testing.T) {
	h := newHarness(Config{})

	for v := 1.0; v <= 10; v++ {
		h.d.Live(v)
		assert.Equal(t, v, overrideValue(t, h.d), "override must update synchronously")
		h.clk.Advance(DefaultLiveDelay / 5)
	}
	assert.Empty(t, h.sent)

	h.clk.Advance(DefaultLiveDelay)
	assert.Equal(t, []float64{10}, h.values())
	assert.False(t, h.sent[0].committed)
}

func TestDebouncer_SpacedValuesEachSent(t *testing.T) {
	h := newHarness(Config{})

	for _, v := range []float64{10, 20, 30} {
		h.d.Live(v)
		h.clk.Advance(DefaultLiveDelay + time.Millisecond)
	}
	assert.Equal(t, []float64{10, 20, 30}, h.values())
}

func TestDebouncer_PendingReportsSchedule(t *testing.T) {
	h := newHarness(Config{})
	h.clk.Advance(time.Second)

	h.d.Live(42)
	p, ok := h.d.Pending()
	require.True(t, ok)
	assert.Equal(t, 42.0, p.Value)
	assert.Equal(t, time.Unix(1, 0).Add(DefaultLiveDelay), p.ScheduledAt)

	h.clk.Advance(DefaultLiveDelay)
	_, ok = h.d.Pending()
	assert.False(t, ok)
}

func TestDebouncer_CommitSendsExactlyOnceAndCancelsPending(t *testing.T) {
	h := newHarness(Config{})

	h.d.Live(30)
	h.d.Committed(31)
	require.Len(t, h.sent, 1)
	assert.Equal(t, sent{value: 31, committed: true, at: time.Unix(0, 0)}, h.sent[0])

	h.clk.Advance(time.Second)
	assert.Equal(t, []float64{31}, h.values())
}

func TestDebouncer_CommitEqualToLastLiveStillSent(t *testing.T) {
	h := newHarness(Config{})

	h.d.Live(50)
	h.clk.Advance(DefaultLiveDelay)
	h.d.Committed(50)

	assert.Equal(t, []float64{50, 50}, h.values())
	assert.True(t, h.sent[1].committed)
}

func TestDebouncer_DragFromTwentyToFortySeven(t *testing.T) {
	h := newHarness(Config{})
	start := h.clk.Now()

	for v := 21.0; v <= 47; v++ {
		h.d.Live(v)
		h.clk.Advance(4 * time.Millisecond)
		assert.Equal(t, v, overrideValue(t, h.d))
	}
	h.clk.Advance(40 * time.Millisecond)
	h.d.Committed(47)
	h.d.Finished()

	require.GreaterOrEqual(t, len(h.sent), 2)
	last := h.sent[len(h.sent)-1]
	assert.Equal(t, sent{value: 47, committed: true, at: start.Add(27*4*time.Millisecond + 40*time.Millisecond)}, last)
	beforeCommit := h.sent[len(h.sent)-2]
	assert.Equal(t, 47.0, beforeCommit.value)
	assert.False(t, beforeCommit.committed)

	committed := 0
	for _, s := range h.sent {
		if s.committed {
			committed++
		}
	}
	assert.Equal(t, 1, committed)

	h.clk.Advance(DefaultSettleDelay - time.Millisecond)
	assert.Equal(t, 47.0, overrideValue(t, h.d))
	h.clk.Advance(time.Millisecond)
	assert.Nil(t, h.d.Override())
	assert.Equal(t, 1, h.settled)
}

func TestDebouncer_LiveActivityCancelsSettle(t *testing.T) {
	h := newHarness(Config{SettleDelay: 100 * time.Millisecond})

	h.d.Committed(20)
	h.d.Finished()
	h.clk.Advance(50 * time.Millisecond)

	h.d.Live(25)
	h.clk.Advance(time.Second)

	assert.Equal(t, 25.0, overrideValue(t, h.d), "a stale settle must not clear a newer drag")
	assert.Equal(t, 0, h.settled)
}

func TestDebouncer_UnavailableFreezesDispatchKeepsOverride(t *testing.T) {
	h := newHarness(Config{})

	h.d.Live(10)
	h.d.SetAvailable(false)
	h.d.Live(20)
	assert.Equal(t, 20.0, overrideValue(t, h.d))
	assert.False(t, h.d.Committed(30), "commit must report the drop")
	h.clk.Advance(time.Second)

	assert.Empty(t, h.sent)
	_, ok := h.d.Pending()
	assert.False(t, ok)

	h.d.SetAvailable(true)
	assert.True(t, h.d.Committed(40))
	assert.Equal(t, []float64{40}, h.values())
}

func TestDebouncer_DispatchErrorIsNotRetried(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	calls := 0
	d := New(Config{}, clk, func(v float64) device.Command {
		return device.TurnOn("light.test", map[string]any{device.KeyBrightnessPct: v})
	}, DispatcherFunc(func(device.Command) error {
		calls++
		return errors.New("bridge unreachable")
	}), Hooks{})

	d.Committed(10)
	clk.Advance(time.Minute)
	assert.Equal(t, 1, calls)
}

func TestDebouncer_CloseSilencesTimers(t *testing.T) {
	h := newHarness(Config{})

	h.d.Live(10)
	h.d.Finished()
	h.d.Close()
	h.clk.Advance(time.Second)
	h.d.Live(11)
	h.d.Committed(12)

	assert.Empty(t, h.sent)
	assert.Equal(t, 0, h.settled)
	assert.Equal(t, 0, h.clk.Pending())
}

func TestDebouncer_OverrideNotificationsDeduplicated(t *testing.T) {
	h := newHarness(Config{})

	h.d.Live(10)
	h.d.Live(10)
	h.d.Committed(10)
	h.d.Finished()
	h.clk.Advance(time.Second)

	require.Len(t, h.overrides, 2)
	assert.Equal(t, 10.0, *h.overrides[0])
	assert.Nil(t, h.overrides[1])
}
