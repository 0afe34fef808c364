package session

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/card"
	"github.com/dokzlo13/lightslider/internal/debounce"
	"github.com/dokzlo13/lightslider/internal/device"
	"github.com/dokzlo13/lightslider/internal/eventbus"
)

// StateReader fetches the current state of a light.
type StateReader interface {
	LightState(ctx context.Context, id string) (device.State, error)
}

// DispatcherFunc returns the dispatcher for the commands of one session.
type DispatcherFunc func(sessionID string) debounce.Dispatcher

// Config wires a Server.
type Config struct {
	Cards           map[string]card.Config
	Engine          EngineConfig
	RefreshInterval time.Duration
	ReadTimeout     time.Duration // light state fetch
	WriteTimeout    time.Duration // websocket frame write
}

// Server upgrades HTTP requests to sessions.
type Server struct {
	cards           map[string]card.Config
	engineConfig    EngineConfig
	refreshInterval time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration

	reader     StateReader
	dispatcher DispatcherFunc
	bus        *eventbus.Bus
	upgrader   websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewServer creates a session server. bus may be nil.
func NewServer(cfg Config, reader StateReader, dispatcher DispatcherFunc, bus *eventbus.Bus) *Server {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cards:           cfg.Cards,
		engineConfig:    cfg.Engine,
		refreshInterval: cfg.RefreshInterval,
		readTimeout:     cfg.ReadTimeout,
		writeTimeout:    cfg.WriteTimeout,
		reader:          reader,
		dispatcher:      dispatcher,
		bus:             bus,
		upgrader: websocket.Upgrader{
			// Dashboards are served from other origins on the LAN
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Cards returns the configured card names, sorted.
func (s *Server) Cards() []string {
	names := make([]string, 0, len(s.cards))
	for name := range s.cards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of open sessions.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ServeHTTP upgrades the request and runs the session until it ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	sess := newSession(s, conn)
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.sessions[sess.id] = sess
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		s.wg.Done()
	}()
	sess.run(s.ctx)
}

// Close ends every session and waits for them, up to ctx.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("All sessions closed")
		return nil
	case <-ctx.Done():
		log.Warn().Int("sessions", s.Count()).Msg("Session shutdown timed out")
		return ctx.Err()
	}
}
