// Package gesture turns raw pointer samples over a slider track into drag and
// tap events, ceding vertical swipes to the page scroll.
package gesture

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/clock"
)

const (
	// DefaultThreshold is the displacement, in logical pixels, before a
	// contact is classified as a drag or a scroll.
	DefaultThreshold = 10
	// DefaultScrollCooldown keeps page scroll suspended after a drag ends.
	DefaultScrollCooldown = 250 * time.Millisecond
)

// Listener receives recognized gestures. Positions are normalized to [0,1]
// across the track width.
type Listener interface {
	DragStart()
	DragMove(pos float64)
	DragEnd(pos float64)
	DragCancel()
	Tap(pos float64)
}

// ScrollResolver suspends and resumes the host page's vertical scroll.
type ScrollResolver interface {
	SuspendScroll()
	ResumeScroll()
}

type noScroll struct{}

func (noScroll) SuspendScroll() {}
func (noScroll) ResumeScroll()  {}

// SampleKind is the type of a pointer sample.
type SampleKind int

const (
	SampleDown SampleKind = iota
	SampleMove
	SampleUp
	SampleCancel
)

// Sample is one raw pointer input in page coordinates.
type Sample struct {
	Kind    SampleKind
	Pointer int
	X       float64
	Y       float64
}

// Bounds is the track rectangle in page coordinates.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Position returns x relative to the track as a clamped fraction.
func (b Bounds) Position(x float64) float64 {
	if b.Width <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, (x-b.Left)/b.Width))
}

// Config tunes a Recognizer.
type Config struct {
	Threshold      float64
	Touch          bool // touch-capable device: suspend page scroll while dragging
	ScrollCooldown time.Duration
}

type contactPhase int

const (
	contactPending contactPhase = iota
	contactDragging
	contactCeded
)

type contact struct {
	pointer int
	startX  float64
	startY  float64
	phase   contactPhase
}

// Recognizer classifies a single contact at a time. Samples from other
// pointers while a contact is active are ignored.
type Recognizer struct {
	cfg      Config
	clock    clock.Clock
	listener Listener
	scroll   ScrollResolver
	bounds   Bounds

	contact   *contact
	suspended bool
	cooldown  clock.Timer
}

// NewRecognizer creates a recognizer. scroll may be nil.
func NewRecognizer(cfg Config, clk clock.Clock, listener Listener, scroll ScrollResolver) *Recognizer {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.ScrollCooldown <= 0 {
		cfg.ScrollCooldown = DefaultScrollCooldown
	}
	if scroll == nil {
		scroll = noScroll{}
	}
	return &Recognizer{
		cfg:      cfg,
		clock:    clk,
		listener: listener,
		scroll:   scroll,
	}
}

// SetBounds updates the track rectangle.
func (r *Recognizer) SetBounds(b Bounds) {
	r.bounds = b
}

// Bounds returns the track rectangle.
func (r *Recognizer) Bounds() Bounds {
	return r.bounds
}

// Dragging reports whether the current contact was promoted to a drag.
func (r *Recognizer) Dragging() bool {
	return r.contact != nil && r.contact.phase == contactDragging
}

// Active reports whether a contact is in progress.
func (r *Recognizer) Active() bool {
	return r.contact != nil
}

// Handle processes one sample.
func (r *Recognizer) Handle(s Sample) {
	switch s.Kind {
	case SampleDown:
		r.down(s)
	case SampleMove:
		r.move(s)
	case SampleUp:
		r.up(s)
	case SampleCancel:
		if r.owns(s) {
			r.abort()
		}
	}
}

func (r *Recognizer) down(s Sample) {
	if r.contact != nil {
		if r.contact.pointer != s.Pointer {
			return
		}
		// Second down for the same pointer: the up was lost.
		r.abort()
	}
	r.contact = &contact{pointer: s.Pointer, startX: s.X, startY: s.Y}
}

func (r *Recognizer) move(s Sample) {
	if !r.owns(s) {
		return
	}
	c := r.contact

	switch c.phase {
	case contactPending:
		dx := math.Abs(s.X - c.startX)
		dy := math.Abs(s.Y - c.startY)
		if math.Max(dx, dy) <= r.cfg.Threshold {
			return
		}
		if dx > dy {
			c.phase = contactDragging
			r.suspendScroll()
			r.listener.DragStart()
			r.listener.DragMove(r.bounds.Position(s.X))
			return
		}
		c.phase = contactCeded
		log.Trace().Int("pointer", s.Pointer).Msg("Vertical swipe ceded to page scroll")

	case contactDragging:
		r.listener.DragMove(r.bounds.Position(s.X))
	}
}

func (r *Recognizer) up(s Sample) {
	if !r.owns(s) {
		return
	}
	c := r.contact
	r.contact = nil

	switch c.phase {
	case contactPending:
		r.listener.Tap(r.bounds.Position(s.X))
	case contactDragging:
		r.listener.DragEnd(r.bounds.Position(s.X))
		r.scheduleResume()
	}
}

// abort ends the current contact, cancelling a drag if one was recognized.
func (r *Recognizer) abort() {
	c := r.contact
	r.contact = nil
	if c != nil && c.phase == contactDragging {
		r.listener.DragCancel()
		r.scheduleResume()
	}
}

// Reset aborts the current contact.
func (r *Recognizer) Reset() {
	r.abort()
}

// Close aborts the current contact and restores page scroll immediately.
func (r *Recognizer) Close() {
	r.abort()
	r.cooldown = clock.Stop(r.cooldown)
	if r.suspended {
		r.suspended = false
		r.scroll.ResumeScroll()
	}
}

func (r *Recognizer) owns(s Sample) bool {
	return r.contact != nil && r.contact.pointer == s.Pointer
}

func (r *Recognizer) suspendScroll() {
	if !r.cfg.Touch {
		return
	}
	r.cooldown = clock.Stop(r.cooldown)
	if !r.suspended {
		r.suspended = true
		r.scroll.SuspendScroll()
	}
}

func (r *Recognizer) scheduleResume() {
	if !r.suspended {
		return
	}
	r.cooldown = clock.Stop(r.cooldown)
	r.cooldown = r.clock.AfterFunc(r.cfg.ScrollCooldown, func() {
		r.cooldown = nil
		r.suspended = false
		r.scroll.ResumeScroll()
	})
}
