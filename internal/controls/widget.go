package controls

import (
	"time"

	"github.com/dokzlo13/lightslider/internal/clock"
	"github.com/dokzlo13/lightslider/internal/gesture"
	"github.com/dokzlo13/lightslider/internal/haptics"
	"github.com/dokzlo13/lightslider/internal/overlay"
)

// WidgetConfig tunes the input side of a widget.
type WidgetConfig struct {
	Touch          bool
	Threshold      float64
	ScrollCooldown time.Duration
	OverlayDelay   time.Duration
}

// Widget is one slider track: an overlay lock in front of a gesture
// recognizer feeding a controller.
type Widget struct {
	ctrl       *Controller
	recognizer *gesture.Recognizer
	lock       *overlay.Lock
}

// NewWidget wires ctrl behind a recognizer and a lock. scroll and onLock may
// be nil.
func NewWidget(
	ctrl *Controller,
	clk clock.Clock,
	cfg WidgetConfig,
	scroll gesture.ScrollResolver,
	sink haptics.Sink,
	onLock func(kind Kind, armed bool),
) *Widget {
	w := &Widget{ctrl: ctrl}
	w.lock = overlay.New(overlay.Config{Delay: cfg.OverlayDelay, Touch: cfg.Touch}, clk, sink, func(armed bool) {
		if onLock != nil {
			onLock(ctrl.Kind(), armed)
		}
	})
	w.recognizer = gesture.NewRecognizer(gesture.Config{
		Threshold:      cfg.Threshold,
		Touch:          cfg.Touch,
		ScrollCooldown: cfg.ScrollCooldown,
	}, clk, &trackListener{w: w}, scroll)
	return w
}

// Controller returns the bound controller.
func (w *Widget) Controller() *Controller {
	return w.ctrl
}

// Locked reports whether the overlay is armed.
func (w *Widget) Locked() bool {
	return w.lock.Armed()
}

// SetBounds updates the track rectangle. The overlay covers the same area.
func (w *Widget) SetBounds(b gesture.Bounds) {
	w.recognizer.SetBounds(b)
	w.lock.SetBounds(b)
}

// Handle routes a pointer sample. A contact stays with whichever layer
// received its down.
func (w *Widget) Handle(s gesture.Sample) {
	if !w.recognizer.Active() && w.lock.Intercepts() {
		w.lock.Handle(s)
		return
	}
	w.recognizer.Handle(s)
}

// Active reports whether a contact is in progress on the track or the overlay.
func (w *Widget) Active() bool {
	return w.recognizer.Active() || w.lock.Active()
}

// Cancel drops the contact in progress. A drag finishes without a commit and
// page scroll is handed back after the cooldown.
func (w *Widget) Cancel() {
	w.recognizer.Reset()
	w.lock.Reset()
}

// Close releases the scroll lock and cancels every timer of the widget.
func (w *Widget) Close() {
	w.recognizer.Close()
	w.lock.Close()
	w.ctrl.Close()
}

// trackListener forwards gestures to the slider and keeps the overlay
// unlocked while the user is interacting.
type trackListener struct {
	w *Widget
}

func (t *trackListener) DragStart() {
	t.w.ctrl.Slider().DragStart()
}

func (t *trackListener) DragMove(pos float64) {
	t.w.lock.Touch()
	t.w.ctrl.Slider().DragMove(pos)
}

func (t *trackListener) DragEnd(pos float64) {
	t.w.lock.Touch()
	t.w.ctrl.Slider().DragEnd(pos)
}

func (t *trackListener) DragCancel() {
	t.w.ctrl.Slider().DragCancel()
}

func (t *trackListener) Tap(pos float64) {
	t.w.lock.Touch()
	t.w.ctrl.Slider().Tap(pos)
}
