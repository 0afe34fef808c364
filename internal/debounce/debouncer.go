// Package debounce turns a slider's live and committed values into remote
// commands: live values are coalesced behind a short timer, committed values
// are sent at once, and the optimistic display value is held until the
// device has had time to settle.
package debounce

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/clock"
	"github.com/dokzlo13/lightslider/internal/device"
)

const (
	DefaultLiveDelay   = 25 * time.Millisecond
	DefaultSettleDelay = 250 * time.Millisecond
)

// Dispatcher sends a command to the device. It must not block; the result
// is not awaited.
type Dispatcher interface {
	Dispatch(cmd device.Command) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(cmd device.Command) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(cmd device.Command) error { return f(cmd) }

// BuildFunc maps a domain value to a command.
type BuildFunc func(v float64) device.Command

// Config tunes a Debouncer.
type Config struct {
	LiveDelay   time.Duration
	SettleDelay time.Duration
}

// Hooks are optional notifications. Each may be nil.
type Hooks struct {
	// OnOverride fires whenever the optimistic value changes; nil means the
	// authoritative value is displayed again.
	OnOverride func(v *float64)
	// OnSettle fires after the settle delay clears the override.
	OnSettle func()
}

// PendingCommand is a live value waiting for its timer.
type PendingCommand struct {
	Value       float64
	ScheduledAt time.Time
}

// Debouncer owns one live timer and one settle timer. Not safe for
// concurrent use.
type Debouncer struct {
	cfg        Config
	clock      clock.Clock
	build      BuildFunc
	dispatcher Dispatcher
	hooks      Hooks

	override  *float64
	pending   *PendingCommand
	liveTimer clock.Timer
	settle    clock.Timer
	available bool
	closed    bool
}

// New creates a debouncer. The target starts available.
func New(cfg Config, clk clock.Clock, build BuildFunc, dispatcher Dispatcher, hooks Hooks) *Debouncer {
	if cfg.LiveDelay <= 0 {
		cfg.LiveDelay = DefaultLiveDelay
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	return &Debouncer{
		cfg:        cfg,
		clock:      clk,
		build:      build,
		dispatcher: dispatcher,
		hooks:      hooks,
		available:  true,
	}
}

// Override returns the optimistic value, if any.
func (d *Debouncer) Override() *float64 {
	return d.override
}

// Pending returns the live value waiting to be sent.
func (d *Debouncer) Pending() (PendingCommand, bool) {
	if d.pending == nil {
		return PendingCommand{}, false
	}
	return *d.pending, true
}

// Available reports whether commands are currently sent.
func (d *Debouncer) Available() bool {
	return d.available
}

// SetAvailable freezes or resumes dispatch. Freezing drops the pending live
// value.
func (d *Debouncer) SetAvailable(available bool) {
	if d.available == available {
		return
	}
	d.available = available
	if !available {
		d.liveTimer = clock.Stop(d.liveTimer)
		d.pending = nil
	}
}

// Live records an in-progress value. The override updates immediately; the
// command follows after the live delay unless a newer value replaces it.
func (d *Debouncer) Live(v float64) {
	if d.closed {
		return
	}
	d.settle = clock.Stop(d.settle)
	d.setOverride(&v)

	d.liveTimer = clock.Stop(d.liveTimer)
	if !d.available {
		d.pending = nil
		return
	}
	d.pending = &PendingCommand{Value: v, ScheduledAt: d.clock.Now().Add(d.cfg.LiveDelay)}
	d.liveTimer = d.clock.AfterFunc(d.cfg.LiveDelay, d.flush)
}

// Committed sends v immediately, replacing any pending live value. It
// reports false when the commit was dropped.
func (d *Debouncer) Committed(v float64) bool {
	if d.closed {
		return false
	}
	d.liveTimer = clock.Stop(d.liveTimer)
	d.pending = nil
	d.setOverride(&v)

	if !d.available {
		log.Debug().Float64("value", v).Msg("Target unavailable, commit dropped")
		return false
	}
	cmd := d.build(v)
	cmd.Committed = true
	d.send(cmd)
	return true
}

// Finished starts the settle countdown. When it elapses the override is
// cleared so authoritative state is displayed again.
func (d *Debouncer) Finished() {
	if d.closed {
		return
	}
	d.settle = clock.Stop(d.settle)
	d.settle = d.clock.AfterFunc(d.cfg.SettleDelay, func() {
		d.settle = nil
		if d.closed {
			return
		}
		d.setOverride(nil)
		if d.hooks.OnSettle != nil {
			d.hooks.OnSettle()
		}
	})
}

// Close cancels both timers. Later calls are ignored.
func (d *Debouncer) Close() {
	d.closed = true
	d.liveTimer = clock.Stop(d.liveTimer)
	d.settle = clock.Stop(d.settle)
	d.pending = nil
}

func (d *Debouncer) flush() {
	d.liveTimer = nil
	p := d.pending
	d.pending = nil
	if d.closed || p == nil || !d.available {
		return
	}
	d.send(d.build(p.Value))
}

func (d *Debouncer) send(cmd device.Command) {
	if err := d.dispatcher.Dispatch(cmd); err != nil {
		log.Warn().Err(err).Str("command", cmd.String()).Msg("Dispatch failed")
	}
}

func (d *Debouncer) setOverride(v *float64) {
	if v == nil && d.override == nil {
		return
	}
	if v != nil && d.override != nil && *v == *d.override {
		return
	}
	d.override = v
	if d.hooks.OnOverride != nil {
		d.hooks.OnOverride(v)
	}
}
