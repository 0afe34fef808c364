// Package haptics defines fire-and-forget haptic feedback requests.
package haptics

// Kind is a feedback intensity, named after the iOS HIG patterns.
type Kind string

const (
	Success   Kind = "success"
	Warning   Kind = "warning"
	Failure   Kind = "failure"
	Light     Kind = "light"
	Medium    Kind = "medium"
	Heavy     Kind = "heavy"
	Selection Kind = "selection"
)

// Sink receives haptic requests. Implementations must not block.
type Sink interface {
	Haptic(kind Kind)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(kind Kind)

// Haptic calls f.
func (f SinkFunc) Haptic(kind Kind) { f(kind) }

// Discard drops every request.
var Discard Sink = SinkFunc(func(Kind) {})

// Recorder collects requests in order. Useful in tests.
type Recorder struct {
	Kinds []Kind
}

// Haptic appends kind.
func (r *Recorder) Haptic(kind Kind) {
	r.Kinds = append(r.Kinds, kind)
}

// Last returns the most recent request, or "" if none.
func (r *Recorder) Last() Kind {
	if len(r.Kinds) == 0 {
		return ""
	}
	return r.Kinds[len(r.Kinds)-1]
}

// Reset clears recorded requests.
func (r *Recorder) Reset() {
	r.Kinds = nil
}
