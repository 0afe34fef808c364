package slider

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/haptics"
)

// Output receives the two value channels of a slider.
type Output interface {
	// Live is called for every new provisional value during a drag.
	Live(v float64)
	// Committed is called once with the final value of a gesture. It
	// returns false if the value was refused.
	Committed(v float64) bool
	// Finished is called when a gesture ends, committed or not.
	Finished()
}

// Slider is the stateful wrapper around Transition. It is not safe for
// concurrent use; callers drive it from a single goroutine.
type Slider struct {
	cfg      Config
	state    State
	value    float64
	disabled bool

	out     Output
	haptics haptics.Sink
}

// New creates a slider in the Idle state.
func New(cfg Config, out Output, sink haptics.Sink) (*Slider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = haptics.Discard
	}
	return &Slider{
		cfg:     cfg,
		state:   Idle{},
		value:   cfg.Range.Min,
		out:     out,
		haptics: sink,
	}, nil
}

// Config returns the slider configuration.
func (s *Slider) Config() Config {
	return s.cfg
}

// SetConfig replaces the configuration. It is only allowed between gestures.
func (s *Slider) SetConfig(cfg Config) error {
	if s.state.Phase() != PhaseIdle {
		return ErrBusy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// State returns the current state.
func (s *Slider) State() State {
	return s.state
}

// SetValue records the value currently displayed. A drag that never leaves
// this value emits nothing.
func (s *Slider) SetValue(v float64) {
	s.value = v
}

// SetDisabled blocks new gestures while the controlled property is
// unavailable. A gesture already in progress keeps tracking.
func (s *Slider) SetDisabled(disabled bool) {
	s.disabled = disabled
}

// Disabled reports whether new gestures are blocked.
func (s *Slider) Disabled() bool {
	return s.disabled
}

// Handle feeds ev through the state machine and performs its effects.
func (s *Slider) Handle(ev Event) {
	if s.disabled && s.state.Phase() == PhaseIdle {
		return
	}

	next, effects := Transition(s.cfg, s.state, ev)
	if next.Phase() != s.state.Phase() {
		log.Trace().
			Str("from", s.state.Phase().String()).
			Str("to", next.Phase().String()).
			Msg("Slider transition")
	}
	s.state = next

	refused := false
	for _, e := range effects {
		switch e.Kind {
		case EffectLive:
			s.value = e.Value
			s.out.Live(e.Value)
		case EffectCommitted:
			if !s.out.Committed(e.Value) {
				refused = true
				continue
			}
			s.value = e.Value
		case EffectFinished:
			s.out.Finished()
		case EffectHaptic:
			if refused && e.Haptic == haptics.Success {
				continue
			}
			s.haptics.Haptic(e.Haptic)
		}
	}
}

// DragStart implements gesture.Listener.
func (s *Slider) DragStart() { s.Handle(DragStart{Current: s.value}) }

// DragMove implements gesture.Listener.
func (s *Slider) DragMove(pos float64) { s.Handle(DragMove{Pos: pos}) }

// DragEnd implements gesture.Listener.
func (s *Slider) DragEnd(pos float64) { s.Handle(DragEnd{Pos: pos}) }

// DragCancel implements gesture.Listener.
func (s *Slider) DragCancel() { s.Handle(DragCancel{}) }

// Tap implements gesture.Listener.
func (s *Slider) Tap(pos float64) { s.Handle(Tap{Pos: pos}) }

// Reset drops any gesture in progress without emitting.
func (s *Slider) Reset() {
	s.state = Idle{}
}
