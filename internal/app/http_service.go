package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/config"
	"github.com/dokzlo13/lightslider/internal/debounce"
	"github.com/dokzlo13/lightslider/internal/discovery"
	"github.com/dokzlo13/lightslider/internal/session"
)

// HTTPService serves websocket sessions and health endpoints on one listener.
type HTTPService struct {
	cfg        *config.Config
	hue        *HueService
	Sessions   *session.Server
	advertiser *discovery.Advertiser
	server     *http.Server
}

// NewHTTPService creates a new HTTPService.
func NewHTTPService(cfg *config.Config, hue *HueService) *HTTPService {
	sessions := session.NewServer(session.Config{
		Cards: cfg.Cards,
		Engine: session.EngineConfig{
			Threshold:      cfg.Session.Threshold,
			ScrollCooldown: cfg.Session.ScrollCooldown.Duration(),
			OverlayDelay:   cfg.Session.OverlayDelay.Duration(),
			LabelHold:      cfg.Session.LabelHold.Duration(),
		},
		RefreshInterval: cfg.Session.RefreshInterval.Duration(),
		ReadTimeout:     cfg.Hue.Timeout.Duration(),
		WriteTimeout:    cfg.Session.WriteTimeout.Duration(),
	}, hue.Reader, func(id string) debounce.Dispatcher {
		return hue.Dispatcher.For(id)
	}, hue.Bus)

	s := &HTTPService{
		cfg:      cfg,
		hue:      hue,
		Sessions: sessions,
	}
	if cfg.Discovery.Enabled {
		s.advertiser = discovery.NewAdvertiser(discovery.Config{
			Name:      cfg.Discovery.Name,
			Interface: cfg.Discovery.Interface,
		})
	}
	return s
}

// Handler returns the routes of the service.
func (s *HTTPService) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Sessions)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "healthy"})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !s.hue.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready"})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{
			"status":   "ready",
			"sessions": s.Sessions.Count(),
			"queued":   s.hue.Dispatcher.Len(),
		})
	})
	return mux
}

func writeStatus(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write status")
	}
}

// Start binds the listener and serves in the background.
func (s *HTTPService) Start(ctx context.Context) error {
	addr := s.cfg.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler: s.Handler(),
	}

	log.Info().Str("addr", ln.Addr().String()).Strs("cards", s.Sessions.Cards()).Msg("Starting HTTP server")

	if s.advertiser != nil {
		port := ln.Addr().(*net.TCPAddr).Port
		if err := s.advertiser.Register(port, s.Sessions.Cards()); err != nil {
			log.Warn().Err(err).Msg("mDNS advertisement failed, continuing without it")
		}
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()
	return nil
}

// Close stops advertising, ends sessions and shuts the listener down.
func (s *HTTPService) Close() {
	if s.advertiser != nil {
		s.advertiser.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server.Shutdown
	if err := s.Sessions.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("Sessions did not close in time")
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}
}
