package device

import (
	"fmt"
	"sort"
	"strings"
)

// ServiceTurnOn is the only command name the controls send.
const ServiceTurnOn = "turn_on"

// Payload keys.
const (
	KeyBrightnessPct = "brightness_pct"
	KeyRGBColor      = "rgb_color"
	KeyColorTemp     = "color_temp"
	KeyHSColor       = "hs_color"
	KeyKelvin        = "kelvin"
)

// Command is one remote call.
type Command struct {
	Target    string
	Service   string
	Payload   map[string]any
	Committed bool // final value of a gesture; never coalesced away
}

// TurnOn builds a turn_on command for target.
func TurnOn(target string, payload map[string]any) Command {
	return Command{Target: target, Service: ServiceTurnOn, Payload: payload}
}

// Key identifies commands that supersede each other: same target, service
// and payload attribute set.
func (c Command) Key() string {
	keys := make([]string, 0, len(c.Payload))
	for k := range c.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return c.Target + "/" + c.Service + "/" + strings.Join(keys, ",")
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s %v", c.Service, c.Target, c.Payload)
}
