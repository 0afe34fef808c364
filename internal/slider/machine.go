package slider

import (
	"math"

	"github.com/dokzlo13/lightslider/internal/haptics"
)

// Phase is the coarse state of the slider.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseHeldAtSnap
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhaseHeldAtSnap:
		return "held_at_snap"
	default:
		return "unknown"
	}
}

// State is one of Idle, Dragging or HeldAtSnap.
type State interface {
	Phase() Phase
}

// Idle is the resting state.
type Idle struct{}

// Dragging tracks an in-progress drag.
type Dragging struct {
	Emitted float64 // last value shown to the user
	Raw     float64 // value under the pointer at the previous sample
	HasRaw  bool
}

// HeldAtSnap pins the emitted value to a hold point.
type HeldAtSnap struct {
	Point float64
	Raw   float64
}

func (Idle) Phase() Phase       { return PhaseIdle }
func (Dragging) Phase() Phase   { return PhaseDragging }
func (HeldAtSnap) Phase() Phase { return PhaseHeldAtSnap }

// Event is an input to the state machine.
type Event interface {
	event()
}

// DragStart begins a drag. Current is the value displayed when the drag began.
type DragStart struct{ Current float64 }

// DragMove reports the pointer at track position Pos in [0,1].
type DragMove struct{ Pos float64 }

// DragEnd finishes a drag at Pos.
type DragEnd struct{ Pos float64 }

// DragCancel aborts a drag without committing.
type DragCancel struct{}

// Tap selects the value at Pos without dragging.
type Tap struct{ Pos float64 }

func (DragStart) event()  {}
func (DragMove) event()   {}
func (DragEnd) event()    {}
func (DragCancel) event() {}
func (Tap) event()        {}

// EffectKind says what a transition asks the outside world to do.
type EffectKind int

const (
	EffectLive EffectKind = iota
	EffectCommitted
	EffectFinished
	EffectHaptic
)

// Effect is one output of a transition.
type Effect struct {
	Kind   EffectKind
	Value  float64
	Haptic haptics.Kind
}

func live(v float64) Effect         { return Effect{Kind: EffectLive, Value: v} }
func committed(v float64) Effect    { return Effect{Kind: EffectCommitted, Value: v} }
func feedback(k haptics.Kind) Effect { return Effect{Kind: EffectHaptic, Haptic: k} }

// Transition computes the next state and effects for ev. It is pure.
func Transition(cfg Config, s State, ev Event) (State, []Effect) {
	switch st := s.(type) {
	case Idle:
		return fromIdle(cfg, ev)
	case Dragging:
		return fromDragging(cfg, st, ev)
	case HeldAtSnap:
		return fromHeld(cfg, st, ev)
	}
	return Idle{}, nil
}

func fromIdle(cfg Config, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case DragStart:
		return Dragging{Emitted: e.Current}, nil
	case Tap:
		return commit(cfg, e.Pos)
	}
	// Move, end or cancel without a start: nothing to finish.
	return Idle{}, nil
}

func fromDragging(cfg Config, st Dragging, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case DragMove:
		return track(cfg, st, cfg.ValueAt(e.Pos), nil)
	case DragEnd:
		return commit(cfg, e.Pos)
	case Tap:
		return commit(cfg, e.Pos)
	case DragCancel:
		return Idle{}, []Effect{{Kind: EffectFinished}}
	}
	return st, nil
}

func fromHeld(cfg Config, st HeldAtSnap, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case DragMove:
		v := cfg.ValueAt(e.Pos)
		if math.Abs(v-st.Point) <= cfg.ReleaseThreshold {
			return HeldAtSnap{Point: st.Point, Raw: v}, nil
		}
		point := st.Point
		return track(cfg, Dragging{Emitted: st.Point, Raw: st.Raw, HasRaw: true}, v, &point)
	case DragEnd:
		return commit(cfg, e.Pos)
	case Tap:
		return commit(cfg, e.Pos)
	case DragCancel:
		return Idle{}, []Effect{{Kind: EffectFinished}}
	}
	return st, nil
}

// track handles a drag sample with value v while not held.
func track(cfg Config, st Dragging, v float64, exclude *float64) (State, []Effect) {
	if point, ok := cfg.snapTarget(st.Raw, st.HasRaw, v, exclude); ok && point != st.Emitted {
		return HeldAtSnap{Point: point, Raw: v}, []Effect{live(point), feedback(haptics.Heavy)}
	}

	next := Dragging{Emitted: st.Emitted, Raw: v, HasRaw: true}
	if v == st.Emitted {
		return next, nil
	}
	next.Emitted = v

	kind := haptics.Selection
	if cfg.BoundaryFeedback && cfg.isBoundary(v) {
		kind = haptics.Heavy
	}
	return next, []Effect{live(v), feedback(kind)}
}

// commit finishes the gesture at the raw terminal position, never the held point.
func commit(cfg Config, pos float64) (State, []Effect) {
	v := cfg.ValueAt(pos)
	return Idle{}, []Effect{
		committed(v),
		{Kind: EffectFinished},
		feedback(haptics.Success),
	}
}
