package controls

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/clock"
	"github.com/dokzlo13/lightslider/internal/debounce"
	"github.com/dokzlo13/lightslider/internal/device"
	"github.com/dokzlo13/lightslider/internal/haptics"
	"github.com/dokzlo13/lightslider/internal/slider"
)

// Events are the notifications a controller sends to its container. Each
// field may be nil.
type Events struct {
	// LiveChange carries the optimistic value; nil once it has settled.
	LiveChange func(kind Kind, v *float64)
	// Committed carries the final value of a gesture.
	Committed func(kind Kind, v float64)
	// DragFinished fires when a gesture ends, committed or not.
	DragFinished func(kind Kind)
	// Settled fires when the optimistic value is dropped; the container
	// should fetch fresh state.
	Settled func(kind Kind)
}

// Snapshot is what a client renders for one control.
type Snapshot struct {
	Kind Kind `json:"kind"`
	slider.DisplayState
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Disabled bool    `json:"disabled"`
	Inactive bool    `json:"inactive"`
}

// Controller drives one property of one light: slider output goes through
// the debouncer to the dispatcher, device state comes back through Mount.
// Not safe for concurrent use.
type Controller struct {
	prop   Property
	target string
	events Events

	slider    *slider.Slider
	debouncer *debounce.Debouncer

	state     device.State
	committed *float64
}

// NewController creates a controller for target.
func NewController(
	prop Property,
	target string,
	clk clock.Clock,
	dispatcher debounce.Dispatcher,
	sink haptics.Sink,
	events Events,
) (*Controller, error) {
	c := &Controller{prop: prop, target: target, events: events}

	s, err := slider.New(prop.Slider(device.State{}), c, sink)
	if err != nil {
		return nil, fmt.Errorf("%s slider: %w", prop.Kind, err)
	}
	c.slider = s

	c.debouncer = debounce.New(
		debounce.Config{LiveDelay: prop.LiveDelay, SettleDelay: prop.SettleDelay},
		clk,
		c.build,
		dispatcher,
		debounce.Hooks{OnOverride: c.onOverride, OnSettle: c.onSettle},
	)
	return c, nil
}

// Kind returns the controlled property.
func (c *Controller) Kind() Kind {
	return c.prop.Kind
}

// Slider exposes the state machine; the widget feeds gestures into it.
func (c *Controller) Slider() *slider.Slider {
	return c.slider
}

// Supported reports whether the last mounted state exposes the property.
func (c *Controller) Supported() bool {
	return c.prop.Supported(c.state)
}

// Mount accepts a fresh device snapshot. The authoritative value replaces
// the displayed one only while no gesture or optimistic value is active.
func (c *Controller) Mount(st device.State) {
	c.state = st

	available := st.Available && c.prop.Supported(st)
	c.slider.SetDisabled(!available)
	c.debouncer.SetAvailable(available)

	if c.slider.State().Phase() != slider.PhaseIdle || c.debouncer.Override() != nil {
		return
	}
	if err := c.slider.SetConfig(c.prop.Slider(st)); err != nil {
		log.Warn().Err(err).Str("target", c.target).Str("control", string(c.prop.Kind)).Msg("Keeping previous slider config")
	}

	v, ok := c.prop.Read(st)
	if !ok {
		v = c.prop.Fallback(st)
	}
	c.committed = &v
	c.slider.SetValue(v)
}

// Value returns the displayed value: the optimistic one if set.
func (c *Controller) Value() (float64, bool) {
	return c.Snapshot().Value()
}

// Snapshot returns the current display state.
func (c *Controller) Snapshot() Snapshot {
	phase := c.slider.State().Phase()
	r := c.slider.Config().Range
	return Snapshot{
		Kind: c.prop.Kind,
		DisplayState: slider.DisplayState{
			Committed: c.committed,
			Override:  c.debouncer.Override(),
			Dragging:  phase != slider.PhaseIdle,
			Held:      phase == slider.PhaseHeldAtSnap,
		},
		Min:      r.Min,
		Max:      r.Max,
		Disabled: c.slider.Disabled(),
		Inactive: !c.state.Active(),
	}
}

// Pending returns the live command waiting to be sent.
func (c *Controller) Pending() (debounce.PendingCommand, bool) {
	return c.debouncer.Pending()
}

// SettleDelay is how long the optimistic value outlives a gesture.
func (c *Controller) SettleDelay() time.Duration {
	return c.prop.SettleDelay
}

// Close cancels timers and drops any gesture in progress.
func (c *Controller) Close() {
	c.debouncer.Close()
	c.slider.Reset()
}

// Live implements slider.Output.
func (c *Controller) Live(v float64) {
	c.debouncer.Live(v)
}

// Committed implements slider.Output. A commit the debouncer dropped is
// not reported upward.
func (c *Controller) Committed(v float64) bool {
	if !c.debouncer.Committed(v) {
		return false
	}
	c.committed = &v
	if c.events.Committed != nil {
		c.events.Committed(c.prop.Kind, v)
	}
	return true
}

// Finished implements slider.Output.
func (c *Controller) Finished() {
	c.debouncer.Finished()
	if c.events.DragFinished != nil {
		c.events.DragFinished(c.prop.Kind)
	}
}

func (c *Controller) build(v float64) device.Command {
	return device.TurnOn(c.target, c.prop.Payload(c.state, v))
}

func (c *Controller) onOverride(v *float64) {
	if c.events.LiveChange != nil {
		c.events.LiveChange(c.prop.Kind, v)
	}
}

func (c *Controller) onSettle() {
	if c.events.Settled != nil {
		c.events.Settled(c.prop.Kind)
	}
}
