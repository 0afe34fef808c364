// Package overlay implements the tap-to-unlock layer that sits in front of a
// slider track on touch devices.
package overlay

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/clock"
	"github.com/dokzlo13/lightslider/internal/gesture"
	"github.com/dokzlo13/lightslider/internal/haptics"
)

// DefaultDelay is the quiet period after which an unlocked overlay re-arms.
const DefaultDelay = 2500 * time.Millisecond

// Config tunes a Lock.
type Config struct {
	Delay time.Duration
	// Touch enables the lock. On pointer devices the lock is never armed.
	Touch bool
}

// Lock intercepts input while armed. Only a tap on the overlay gets through,
// and it disarms the lock instead of reaching the slider.
type Lock struct {
	cfg      Config
	clock    clock.Clock
	haptics  haptics.Sink
	onChange func(armed bool)

	armed  bool
	timer  clock.Timer
	tap    *gesture.Recognizer
	closed bool
}

// New creates a lock, armed if cfg.Touch is set. onChange may be nil.
func New(cfg Config, clk clock.Clock, sink haptics.Sink, onChange func(armed bool)) *Lock {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if sink == nil {
		sink = haptics.Discard
	}
	if onChange == nil {
		onChange = func(bool) {}
	}
	l := &Lock{
		cfg:      cfg,
		clock:    clk,
		haptics:  sink,
		onChange: onChange,
		armed:    cfg.Touch,
	}
	// Page scroll stays with the host while the overlay is up.
	l.tap = gesture.NewRecognizer(gesture.Config{}, clk, tapListener{l}, nil)
	return l
}

// Armed reports whether input is currently intercepted.
func (l *Lock) Armed() bool {
	return l.armed
}

// Enabled reports whether the lock can ever arm.
func (l *Lock) Enabled() bool {
	return l.cfg.Touch
}

// SetBounds updates the overlay rectangle; it covers the slider track.
func (l *Lock) SetBounds(b gesture.Bounds) {
	l.tap.SetBounds(b)
}

// Intercepts reports whether the next sample belongs to the lock. A contact
// that started while armed stays with the lock until it ends.
func (l *Lock) Intercepts() bool {
	if l.closed {
		return false
	}
	return l.armed || l.tap.Active()
}

// Active reports whether a contact is in progress on the overlay.
func (l *Lock) Active() bool {
	return l.tap.Active()
}

// Reset drops the overlay contact in progress.
func (l *Lock) Reset() {
	l.tap.Reset()
}

// Handle feeds a sample to the overlay's tap detector.
func (l *Lock) Handle(s gesture.Sample) {
	if l.closed {
		return
	}
	l.tap.Handle(s)
}

// Unlock disarms the lock and starts the re-arm countdown.
func (l *Lock) Unlock() {
	if l.closed || !l.cfg.Touch {
		return
	}
	l.haptics.Haptic(haptics.Medium)
	l.restart()
}

// Touch records an interaction with the slider behind the lock, restarting
// the countdown.
func (l *Lock) Touch() {
	if l.closed || !l.cfg.Touch {
		return
	}
	l.restart()
}

// Close stops the countdown. A closed lock intercepts nothing.
func (l *Lock) Close() {
	l.closed = true
	l.timer = clock.Stop(l.timer)
	l.tap.Close()
}

func (l *Lock) restart() {
	l.timer = clock.Stop(l.timer)
	l.setArmed(false)
	l.timer = l.clock.AfterFunc(l.cfg.Delay, func() {
		l.timer = nil
		if l.closed {
			return
		}
		l.setArmed(true)
	})
}

func (l *Lock) setArmed(armed bool) {
	if l.armed == armed {
		return
	}
	l.armed = armed
	log.Trace().Bool("armed", armed).Msg("Overlay lock changed")
	l.onChange(armed)
}

// tapListener forwards overlay taps and discards drags; a horizontal swipe
// over the armed overlay does nothing.
type tapListener struct {
	l *Lock
}

func (t tapListener) DragStart()       {}
func (t tapListener) DragMove(float64) {}
func (t tapListener) DragEnd(float64)  {}
func (t tapListener) DragCancel()      {}
func (t tapListener) Tap(float64)      { t.l.Unlock() }
