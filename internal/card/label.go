package card

import (
	"time"

	"github.com/dokzlo13/lightslider/internal/clock"
	"github.com/dokzlo13/lightslider/internal/device"
)

// Label is the brightness readout shared by every control of the card. It
// follows the brightness slider's live value and ignores device refreshes
// until the drag has been quiet for the hold delay.
type Label struct {
	clock clock.Clock
	hold  time.Duration

	value   *float64
	holding clock.Timer
}

// NewLabel creates a label.
func NewLabel(clk clock.Clock, hold time.Duration) *Label {
	return &Label{clock: clk, hold: hold}
}

// Value returns the displayed brightness percent.
func (l *Label) Value() *float64 {
	return l.value
}

// Live records a live brightness value. nil is ignored.
func (l *Label) Live(v *float64) {
	if v == nil {
		return
	}
	x := *v
	l.value = &x
	l.holding = clock.Stop(l.holding)
	l.holding = l.clock.AfterFunc(l.hold, func() { l.holding = nil })
}

// Update takes the brightness from a device snapshot unless a drag is being
// followed. An unavailable or off light shows no brightness.
func (l *Label) Update(st device.State) {
	if l.holding != nil {
		return
	}
	if !st.Active() || st.Brightness == nil {
		l.value = nil
		return
	}
	x := *st.Brightness
	l.value = &x
}

// Close cancels the hold timer.
func (l *Label) Close() {
	l.holding = clock.Stop(l.holding)
}
