package session

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/dokzlo13/lightslider/internal/card"
	"github.com/dokzlo13/lightslider/internal/controls"
	"github.com/dokzlo13/lightslider/internal/gesture"
	"github.com/dokzlo13/lightslider/internal/haptics"
)

// Inbound message types.
const (
	TypeHello            = "hello"
	TypeBounds           = "bounds"
	TypePointer          = "pointer"
	TypeSelect           = "select"
	TypeToggleSaturation = "toggle_saturation"
)

// Outbound message types.
const (
	TypeState  = "state"
	TypeHaptic = "haptic"
	TypeScroll = "scroll"
	TypeLock   = "lock"
	TypeError  = "error"
)

// Pointer sample kinds on the wire.
const (
	PointerDown   = "down"
	PointerMove   = "move"
	PointerUp     = "up"
	PointerCancel = "cancel"
)

// Inbound is a client message. Fields not used by Type are zero.
type Inbound struct {
	Type string `json:"type"`

	// hello
	Card   string `json:"card,omitempty"`
	Mobile bool   `json:"mobile,omitempty"`

	// bounds, pointer: which slider track
	Slider controls.Kind   `json:"slider,omitempty"`
	Bounds *gesture.Bounds `json:"bounds,omitempty"`

	// pointer
	Phase   string  `json:"phase,omitempty"`
	Pointer int     `json:"pointer,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`

	// select
	Control card.Control `json:"control,omitempty"`
}

// Sample converts a pointer message.
func (m Inbound) Sample() (gesture.Sample, error) {
	s := gesture.Sample{Pointer: m.Pointer, X: m.X, Y: m.Y}
	switch m.Phase {
	case PointerDown:
		s.Kind = gesture.SampleDown
	case PointerMove:
		s.Kind = gesture.SampleMove
	case PointerUp:
		s.Kind = gesture.SampleUp
	case PointerCancel:
		s.Kind = gesture.SampleCancel
	default:
		return gesture.Sample{}, fmt.Errorf("unknown pointer phase %q", m.Phase)
	}
	return s, nil
}

// State is the full render state of a card.
type State struct {
	Card           string                 `json:"card"`
	Entity         string                 `json:"entity"`
	Name           string                 `json:"name,omitempty"`
	Available      bool                   `json:"available"`
	On             bool                   `json:"on"`
	Controls       []card.Control         `json:"controls"`
	Active         card.Control           `json:"active,omitempty"`
	ShowSaturation bool                   `json:"show_saturation"`
	Sliders        []controls.Snapshot    `json:"sliders"`
	Locks          map[controls.Kind]bool `json:"locks,omitempty"`
	Label          *float64               `json:"label,omitempty"`
}

// Outbound is a server message.
type Outbound struct {
	Type string `json:"type"`

	State   *State        `json:"state,omitempty"`
	Haptic  haptics.Kind  `json:"haptic,omitempty"`
	Scroll  *bool         `json:"scroll_suspended,omitempty"`
	Slider  controls.Kind `json:"slider,omitempty"`
	Armed   *bool         `json:"armed,omitempty"`
	Message string        `json:"message,omitempty"`
}

// Codec encodes one frame format. JSON travels in text frames, CBOR in
// binary frames; a session answers in the format of its hello.
type Codec interface {
	Decode(data []byte, v any) error
	Encode(v any) ([]byte, error)
	Binary() bool
}

type jsonCodec struct{}

func (jsonCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Encode(v any) ([]byte, error)    { return json.Marshal(v) }
func (jsonCodec) Binary() bool                    { return false }

var cborEncMode cbor.EncMode
var cborDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	cborEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient so older clients with extra fields keep working
	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	cborDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

type cborCodec struct{}

func (cborCodec) Decode(data []byte, v any) error { return cborDecMode.Unmarshal(data, v) }
func (cborCodec) Encode(v any) ([]byte, error)    { return cborEncMode.Marshal(v) }
func (cborCodec) Binary() bool                    { return true }

// JSON and CBOR are the supported codecs.
var (
	JSON Codec = jsonCodec{}
	CBOR Codec = cborCodec{}
)

// CodecFor returns the codec of a websocket frame, by its binary flag.
func CodecFor(binary bool) Codec {
	if binary {
		return CBOR
	}
	return JSON
}
