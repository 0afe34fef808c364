package app

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/config"
	"github.com/dokzlo13/lightslider/internal/eventbus"
	"github.com/dokzlo13/lightslider/internal/hue"
	"github.com/dokzlo13/lightslider/internal/ledger"
)

// HueService wraps all Hue-related components: bridge, dispatcher, event stream and bus.
type HueService struct {
	cfg *config.Config

	Bridge      *hue.Bridge
	Reader      *hue.CachedReader
	Dispatcher  *hue.Dispatcher
	EventStream *hue.EventStream
	Bus         *eventbus.Bus

	connected atomic.Bool
	done      chan struct{} // closed when the dispatcher stops; nil until started
}

// NewHueService creates a new HueService with all components initialized but not connected.
func NewHueService(cfg *config.Config, l *ledger.Ledger) *HueService {
	bridge := hue.NewBridge(cfg.Hue.Bridge, cfg.Hue.Token)
	cache := hue.NewStateCache(hue.DefaultStateTTL)

	bus := eventbus.NewWithConfig(cfg.EventBus.Workers, cfg.EventBus.QueueSize)

	dispatcher := hue.NewDispatcher(bridge, l, bus, hue.DispatcherConfig{
		RateLimit: cfg.Dispatch.RateLimitRPS,
		Burst:     cfg.Dispatch.Burst,
		QueueSize: cfg.Dispatch.QueueSize,
		Timeout:   cfg.Hue.Timeout.Duration(),
	})

	// Initialize event stream with retry configuration
	eventStreamConfig := hue.EventStreamConfig{
		MinBackoff:    cfg.Hue.MinRetryBackoff.Duration(),
		MaxBackoff:    cfg.Hue.MaxRetryBackoff.Duration(),
		Multiplier:    cfg.Hue.RetryMultiplier,
		MaxReconnects: cfg.Hue.MaxReconnects,
	}
	eventStream := hue.NewEventStreamWithConfig(cfg.Hue.Bridge, cfg.Hue.Token, eventStreamConfig).WithCache(cache)

	return &HueService{
		cfg:         cfg,
		Bridge:      bridge,
		Reader:      hue.NewCachedReader(bridge, cache),
		Dispatcher:  dispatcher,
		EventStream: eventStream,
		Bus:         bus,
	}
}

// Start connects to the Hue bridge.
func (s *HueService) Start(ctx context.Context) error {
	if err := s.Bridge.Connect(ctx); err != nil {
		return err
	}
	s.connected.Store(true)
	return nil
}

// Ready reports whether the bridge was reached and the dispatcher is running.
func (s *HueService) Ready() bool {
	return s.connected.Load()
}

// StartBackground starts the dispatcher and the event stream listener.
// The optional onFatalError callback is called when a fatal error occurs (e.g., max reconnects exceeded).
func (s *HueService) StartBackground(ctx context.Context, onFatalError func(error)) {
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.Dispatcher.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Dispatcher error")
		}
	}()

	if !s.cfg.Hue.IsEventStreamEnabled() {
		log.Info().Msg("Bridge event stream disabled, relying on periodic refresh")
		return
	}
	go func() {
		if err := s.EventStream.Run(ctx, s.Bus); err != nil {
			if errors.Is(err, hue.ErrMaxReconnectsExceeded) {
				log.Error().Msg("Event stream: max reconnects exceeded, triggering shutdown")
				s.connected.Store(false)
				if onFatalError != nil {
					onFatalError(err)
				}
			} else {
				log.Error().Err(err).Msg("Event stream error")
			}
		}
	}()
}

// Close waits for the dispatcher to stop and releases the bus.
func (s *HueService) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
	defer cancel()

	if s.done != nil {
		select {
		case <-s.done:
		case <-ctx.Done():
			log.Warn().Msg("Dispatcher did not stop in time")
		}
	}
	if s.Bus != nil {
		s.Bus.Close(ctx)
	}
}
