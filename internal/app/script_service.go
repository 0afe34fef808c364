package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/config"
	"github.com/dokzlo13/lightslider/internal/eventbus"
	"github.com/dokzlo13/lightslider/internal/script"
)

// ScriptService wraps the optional Lua runtime reacting to committed values.
type ScriptService struct {
	cfg         *config.Config
	Runtime     *script.Runtime
	unsubscribe func()
}

// NewScriptService creates a new ScriptService. The runtime exists only when
// a script is configured.
func NewScriptService(cfg *config.Config, dispatcher script.Dispatcher) *ScriptService {
	s := &ScriptService{cfg: cfg}
	if cfg.Script != "" {
		s.Runtime = script.NewRuntime(dispatcher)
	}
	return s
}

// LoadScript loads and executes the Lua script.
// Must be called before Start().
func (s *ScriptService) LoadScript() error {
	if s.Runtime == nil {
		log.Debug().Msg("No script configured")
		return nil
	}
	return s.Runtime.LoadScript(s.cfg.Script)
}

// Start begins the Lua worker goroutine and forwards commits to it.
func (s *ScriptService) Start(ctx context.Context, bus *eventbus.Bus) {
	if s.Runtime == nil {
		return
	}
	// Lua worker goroutine - the ONLY goroutine that touches Lua
	go s.Runtime.Run(ctx)
	s.unsubscribe = s.Runtime.Subscribe(ctx, bus)
}

// Close stops forwarding commits and closes the Lua runtime.
func (s *ScriptService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}
