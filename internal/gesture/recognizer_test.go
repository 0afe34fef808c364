package gesture

import (
	"fmt"
	"testing"
	"time"

	"github.com/dokzlo13/lightslider/internal/clock"
)

type eventLog struct {
	events []string
}

func (l *eventLog) DragStart()           { l.events = append(l.events, "start") }
func (l *eventLog) DragMove(pos float64) { l.events = append(l.events, fmt.Sprintf("move:%.2f", pos)) }
func (l *eventLog) DragEnd(pos float64)  { l.events = append(l.events, fmt.Sprintf("end:%.2f", pos)) }
func (l *eventLog) DragCancel()          { l.events = append(l.events, "cancel") }
func (l *eventLog) Tap(pos float64)      { l.events = append(l.events, fmt.Sprintf("tap:%.2f", pos)) }

type scrollLog struct {
	suspends int
	resumes  int
}

func (s *scrollLog) SuspendScroll() { s.suspends++ }
func (s *scrollLog) ResumeScroll()  { s.resumes++ }

func newTestRecognizer(touch bool) (*Recognizer, *eventLog, *scrollLog, *clock.Fake) {
	clk := clock.NewFake(time.Unix(0, 0))
	events := &eventLog{}
	scroll := &scrollLog{}
	r := NewRecognizer(Config{Touch: touch}, clk, events, scroll)
	r.SetBounds(Bounds{Left: 100, Top: 0, Width: 200, Height: 40})
	return r, events, scroll, clk
}

func assertEvents(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

// TestHorizontalDrag_PromotedAfterThreshold verifies drags start only past the threshold.
func TestHorizontalDrag_PromotedAfterThreshold(t *testing.T) {
	r, events, _, _ := newTestRecognizer(false)

	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 158, Y: 21})
	assertEvents(t, events.events)

	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 162, Y: 22})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 200, Y: 40})
	r.Handle(Sample{Kind: SampleUp, Pointer: 1, X: 220, Y: 40})

	assertEvents(t, events.events, "start", "move:0.31", "move:0.50", "end:0.60")
}

// TestVerticalSwipe_Ceded verifies vertical motion produces no events at all.
func TestVerticalSwipe_Ceded(t *testing.T) {
	r, events, scroll, _ := newTestRecognizer(true)

	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 153, Y: 40})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 190, Y: 60})
	r.Handle(Sample{Kind: SampleUp, Pointer: 1, X: 190, Y: 60})

	assertEvents(t, events.events)
	if scroll.suspends != 0 {
		t.Fatalf("scroll suspended %d times during a vertical swipe", scroll.suspends)
	}
}

// TestTap_OnlyWithoutPromotion verifies a short contact yields one tap.
func TestTap_OnlyWithoutPromotion(t *testing.T) {
	r, events, _, _ := newTestRecognizer(false)

	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 200, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 204, Y: 20})
	r.Handle(Sample{Kind: SampleUp, Pointer: 1, X: 204, Y: 20})

	assertEvents(t, events.events, "tap:0.52")
}

// TestPosition_ClampedToTrack verifies positions outside the track clamp to [0,1].
func TestPosition_ClampedToTrack(t *testing.T) {
	r, events, _, _ := newTestRecognizer(false)

	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 120, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 40, Y: 20})
	r.Handle(Sample{Kind: SampleUp, Pointer: 1, X: 500, Y: 20})

	assertEvents(t, events.events, "start", "move:0.00", "end:1.00")
}

// TestDragEnd_ExactlyOncePerDrag verifies cancel, lost ups and resets never double-finish.
func TestDragEnd_ExactlyOncePerDrag(t *testing.T) {
	r, events, _, _ := newTestRecognizer(false)

	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 180, Y: 20})
	r.Handle(Sample{Kind: SampleCancel, Pointer: 1})
	r.Handle(Sample{Kind: SampleUp, Pointer: 1, X: 180, Y: 20})
	r.Reset()

	// Lost up: a second down for the same pointer cancels the first drag.
	r.Handle(Sample{Kind: SampleDown, Pointer: 2, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 2, X: 180, Y: 20})
	r.Handle(Sample{Kind: SampleDown, Pointer: 2, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleUp, Pointer: 2, X: 150, Y: 20})

	assertEvents(t, events.events,
		"start", "move:0.40", "cancel",
		"start", "move:0.40", "cancel", "tap:0.25",
	)
}

// TestOtherPointer_Ignored verifies a second finger does not disturb the active contact.
func TestOtherPointer_Ignored(t *testing.T) {
	r, events, _, _ := newTestRecognizer(false)

	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleDown, Pointer: 2, X: 290, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 2, X: 100, Y: 20})
	r.Handle(Sample{Kind: SampleUp, Pointer: 2, X: 100, Y: 20})
	r.Handle(Sample{Kind: SampleUp, Pointer: 1, X: 150, Y: 20})

	assertEvents(t, events.events, "tap:0.25")
}

// TestTouchDrag_SuspendsScrollWithCooldown verifies scroll is held during the drag plus cooldown.
func TestTouchDrag_SuspendsScrollWithCooldown(t *testing.T) {
	r, _, scroll, clk := newTestRecognizer(true)

	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 180, Y: 20})
	if scroll.suspends != 1 {
		t.Fatalf("suspends = %d, want 1", scroll.suspends)
	}
	r.Handle(Sample{Kind: SampleUp, Pointer: 1, X: 180, Y: 20})

	clk.Advance(DefaultScrollCooldown - time.Millisecond)
	if scroll.resumes != 0 {
		t.Fatal("scroll resumed before cooldown")
	}

	// A new drag inside the cooldown keeps scroll suspended without a second suspend.
	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 180, Y: 20})
	clk.Advance(time.Second)
	if scroll.suspends != 1 || scroll.resumes != 0 {
		t.Fatalf("suspends=%d resumes=%d mid-drag", scroll.suspends, scroll.resumes)
	}

	r.Handle(Sample{Kind: SampleUp, Pointer: 1, X: 180, Y: 20})
	clk.Advance(DefaultScrollCooldown)
	if scroll.resumes != 1 {
		t.Fatalf("resumes = %d, want 1", scroll.resumes)
	}
}

// TestPointerDevice_NeverTouchesScroll verifies mouse drags leave page scroll alone.
func TestPointerDevice_NeverTouchesScroll(t *testing.T) {
	r, _, scroll, clk := newTestRecognizer(false)

	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 180, Y: 20})
	r.Handle(Sample{Kind: SampleUp, Pointer: 1, X: 180, Y: 20})
	clk.Advance(time.Second)

	if scroll.suspends != 0 || scroll.resumes != 0 {
		t.Fatalf("suspends=%d resumes=%d", scroll.suspends, scroll.resumes)
	}
}

// TestClose_RestoresScrollImmediately verifies unmount cancels the cooldown timer.
func TestClose_RestoresScrollImmediately(t *testing.T) {
	r, events, scroll, clk := newTestRecognizer(true)

	r.Handle(Sample{Kind: SampleDown, Pointer: 1, X: 150, Y: 20})
	r.Handle(Sample{Kind: SampleMove, Pointer: 1, X: 180, Y: 20})
	r.Close()

	if scroll.resumes != 1 {
		t.Fatalf("resumes = %d, want 1", scroll.resumes)
	}
	if clk.Pending() != 0 {
		t.Fatalf("pending timers = %d after Close", clk.Pending())
	}
	assertEvents(t, events.events, "start", "move:0.40", "cancel")
}
