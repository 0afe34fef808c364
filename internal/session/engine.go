package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/card"
	"github.com/dokzlo13/lightslider/internal/clock"
	"github.com/dokzlo13/lightslider/internal/controls"
	"github.com/dokzlo13/lightslider/internal/debounce"
	"github.com/dokzlo13/lightslider/internal/device"
	"github.com/dokzlo13/lightslider/internal/haptics"
)

// sliderOrder is the order controllers are built and reported in.
var sliderOrder = []controls.Kind{
	controls.KindBrightness,
	controls.KindColorTemp,
	controls.KindColor,
	controls.KindSaturation,
}

// EngineConfig tunes the input handling of one card.
type EngineConfig struct {
	Mobile         bool
	Threshold      float64
	ScrollCooldown time.Duration
	OverlayDelay   time.Duration
	LabelHold      time.Duration
}

// Engine is the transport-independent state of one card on one client:
// a widget per property, the card's control selection and the shared label.
// Not safe for concurrent use; the session loop owns it.
type Engine struct {
	name    string
	cfg     EngineConfig
	send    func(Outbound)
	refresh func()

	card    *card.Card
	label   *card.Label
	widgets map[controls.Kind]*controls.Widget
	locks   map[controls.Kind]bool

	state     device.State
	dirty     bool
	suspended int
	closed    bool
}

// NewEngine builds the widgets of one card. send receives every outbound
// message; refresh asks the owner to fetch fresh light state.
func NewEngine(
	name string,
	cardCfg card.Config,
	cfg EngineConfig,
	clk clock.Clock,
	dispatcher debounce.Dispatcher,
	send func(Outbound),
	refresh func(),
) (*Engine, error) {
	e := &Engine{
		name:    name,
		cfg:     cfg,
		send:    send,
		refresh: refresh,
		widgets: make(map[controls.Kind]*controls.Widget, len(sliderOrder)),
		locks:   make(map[controls.Kind]bool, len(sliderOrder)),
	}
	sink := haptics.SinkFunc(e.haptic)

	e.card = card.New(cardCfg, dispatcher, sink)
	e.label = card.NewLabel(clk, cfg.LabelHold)

	events := controls.Events{
		LiveChange: func(kind controls.Kind, v *float64) {
			if kind == controls.KindBrightness {
				e.label.Live(v)
			}
			e.dirty = true
		},
		Committed:    func(controls.Kind, float64) { e.dirty = true },
		DragFinished: func(controls.Kind) { e.dirty = true },
		Settled: func(controls.Kind) {
			e.dirty = true
			if e.refresh != nil {
				e.refresh()
			}
		},
	}

	props := controls.Properties()
	for _, kind := range sliderOrder {
		ctrl, err := controls.NewController(props[kind], cardCfg.Entity, clk, dispatcher, sink, events)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("card %s: %w", name, err)
		}
		e.widgets[kind] = controls.NewWidget(ctrl, clk, controls.WidgetConfig{
			Touch:          cfg.Mobile,
			Threshold:      cfg.Threshold,
			ScrollCooldown: cfg.ScrollCooldown,
			OverlayDelay:   cfg.OverlayDelay,
		}, e, sink, e.onLock)
		e.locks[kind] = e.widgets[kind].Locked()
	}
	return e, nil
}

// Entity returns the light this card controls.
func (e *Engine) Entity() string {
	return e.card.Config().Entity
}

// Mount applies a fresh light snapshot to the card and every controller.
func (e *Engine) Mount(st device.State) {
	if e.closed {
		return
	}
	e.state = st
	e.card.Update(st)
	e.label.Update(st)

	// A track the client no longer shows will not report its pointer up.
	shown := e.card.Sliders()
	for _, kind := range sliderOrder {
		if w := e.widgets[kind]; w.Active() && !slices.Contains(shown, kind) {
			log.Debug().Str("card", e.name).Str("slider", string(kind)).Msg("Slider hidden mid-gesture, cancelled")
			w.Cancel()
		}
	}
	for _, kind := range sliderOrder {
		e.widgets[kind].Controller().Mount(st)
	}
	e.dirty = true
}

// Handle applies one client message.
func (e *Engine) Handle(m Inbound) error {
	if e.closed {
		return ErrSessionClosed
	}
	switch m.Type {
	case TypeBounds:
		w, err := e.widget(m.Slider)
		if err != nil {
			return err
		}
		if m.Bounds == nil {
			return fmt.Errorf("bounds for %s missing", m.Slider)
		}
		w.SetBounds(*m.Bounds)

	case TypePointer:
		w, err := e.widget(m.Slider)
		if err != nil {
			return err
		}
		s, err := m.Sample()
		if err != nil {
			return err
		}
		// Tracks of hidden sliders do not exist on the client; a contact
		// already in progress still gets its remaining samples.
		if !w.Active() && !slices.Contains(e.card.Sliders(), m.Slider) {
			log.Trace().Str("card", e.name).Str("slider", string(m.Slider)).Msg("Sample for hidden slider ignored")
			return nil
		}
		w.Handle(s)
		e.dirty = true

	case TypeSelect:
		if !e.card.Select(m.Control) {
			return fmt.Errorf("control %q not available", m.Control)
		}
		e.dirty = true

	case TypeToggleSaturation:
		e.card.ToggleSaturation()
		e.dirty = true

	default:
		return fmt.Errorf("unexpected message %q", m.Type)
	}
	return nil
}

func (e *Engine) widget(kind controls.Kind) (*controls.Widget, error) {
	w, ok := e.widgets[kind]
	if !ok {
		return nil, fmt.Errorf("unknown slider %q", kind)
	}
	return w, nil
}

// Flush sends the render state if anything changed since the last flush.
func (e *Engine) Flush() {
	if !e.dirty || e.closed {
		return
	}
	e.dirty = false
	st := e.State()
	e.send(Outbound{Type: TypeState, State: &st})
}

// State builds the render state.
func (e *Engine) State() State {
	st := State{
		Card:           e.name,
		Entity:         e.Entity(),
		Name:           e.state.Name,
		Available:      e.state.Available,
		On:             e.state.On,
		Controls:       e.card.Controls(),
		Active:         e.card.Active(),
		ShowSaturation: e.card.ShowSaturation(),
		Label:          e.label.Value(),
		Sliders:        []controls.Snapshot{},
	}
	if st.Controls == nil {
		st.Controls = []card.Control{}
	}
	for _, kind := range e.card.Sliders() {
		st.Sliders = append(st.Sliders, e.widgets[kind].Controller().Snapshot())
		if e.locks[kind] {
			if st.Locks == nil {
				st.Locks = make(map[controls.Kind]bool)
			}
			st.Locks[kind] = true
		}
	}
	return st
}

// Close cancels every timer and releases page scroll.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	for _, w := range e.widgets {
		w.Close()
	}
	e.label.Close()
	e.closed = true
}

// haptic forwards feedback to mobile-class clients only.
func (e *Engine) haptic(kind haptics.Kind) {
	if !e.cfg.Mobile || e.closed {
		return
	}
	e.send(Outbound{Type: TypeHaptic, Haptic: kind})
}

func (e *Engine) onLock(kind controls.Kind, armed bool) {
	e.locks[kind] = armed
	if e.closed {
		return
	}
	e.send(Outbound{Type: TypeLock, Slider: kind, Armed: &armed})
	e.dirty = true
}

// SuspendScroll implements gesture.ScrollResolver across all tracks.
func (e *Engine) SuspendScroll() {
	e.suspended++
	if e.suspended == 1 {
		e.sendScroll(true)
	}
}

// ResumeScroll implements gesture.ScrollResolver across all tracks.
func (e *Engine) ResumeScroll() {
	if e.suspended == 0 {
		return
	}
	e.suspended--
	if e.suspended == 0 {
		e.sendScroll(false)
	}
}

func (e *Engine) sendScroll(suspended bool) {
	e.send(Outbound{Type: TypeScroll, Scroll: &suspended})
}
