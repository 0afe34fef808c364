package slider

// DisplayState merges the two value sources of a slider: the authoritative
// value from the device and the optimistic override set by user input.
type DisplayState struct {
	Committed *float64 `json:"committed,omitempty"`
	Override  *float64 `json:"override,omitempty"`
	Dragging  bool     `json:"dragging"`
	Held      bool     `json:"held"`
}

// Value returns Override if set, else Committed.
func (d DisplayState) Value() (float64, bool) {
	if d.Override != nil {
		return *d.Override, true
	}
	if d.Committed != nil {
		return *d.Committed, true
	}
	return 0, false
}
