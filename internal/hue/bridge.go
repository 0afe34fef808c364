// Package hue connects the slider engine to a Philips Hue bridge: reading
// light state, applying commands and following the bridge event stream.
package hue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/device"
)

// Bridge reads and writes lights over the v1 API.
type Bridge struct {
	bridge  *huego.Bridge
	address string
	token   string
}

// NewBridge creates a bridge client.
func NewBridge(address, token string) *Bridge {
	return &Bridge{
		bridge:  huego.New(address, token),
		address: address,
		token:   token,
	}
}

// Address returns the bridge host.
func (b *Bridge) Address() string {
	return b.address
}

// Connect verifies the bridge is reachable with the configured token.
func (b *Bridge) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg, err := b.bridge.GetConfigContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to Hue bridge: %w", err)
	}
	log.Info().
		Str("address", b.address).
		Str("name", cfg.Name).
		Str("api_version", cfg.APIVersion).
		Msg("Connected to Hue bridge")
	return nil
}

// LightState fetches the current state of one light.
func (b *Bridge) LightState(ctx context.Context, id string) (device.State, error) {
	if err := ctx.Err(); err != nil {
		return device.State{}, err
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return device.State{}, fmt.Errorf("invalid light id %q: %w", id, err)
	}
	l, err := b.bridge.GetLightContext(ctx, n)
	if err != nil {
		return device.State{}, fmt.Errorf("get light %s: %w", id, err)
	}
	return toState(l), nil
}

// Lights lists every light known to the bridge.
func (b *Bridge) Lights(ctx context.Context) ([]device.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lights, err := b.bridge.GetLightsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get lights: %w", err)
	}
	out := make([]device.State, 0, len(lights))
	for i := range lights {
		out = append(out, toState(&lights[i]))
	}
	return out, nil
}

// Apply sends one command to the bridge.
func (b *Bridge) Apply(ctx context.Context, cmd device.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cmd.Service != device.ServiceTurnOn {
		return fmt.Errorf("unsupported service %q", cmd.Service)
	}
	n, err := strconv.Atoi(cmd.Target)
	if err != nil {
		return fmt.Errorf("invalid light id %q: %w", cmd.Target, err)
	}
	state, err := toHueState(cmd.Payload)
	if err != nil {
		return err
	}

	log.Debug().
		Str("light", cmd.Target).
		Interface("state", state).
		Bool("committed", cmd.Committed).
		Msg("Applying state to light")

	if _, err := b.bridge.SetLightStateContext(ctx, n, state); err != nil {
		return fmt.Errorf("set light %s: %w", cmd.Target, err)
	}
	return nil
}
