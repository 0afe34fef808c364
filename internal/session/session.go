// Package session serves dashboard clients over websockets. Each connection
// drives one card through a single-goroutine event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/clock"
	"github.com/dokzlo13/lightslider/internal/device"
	"github.com/dokzlo13/lightslider/internal/eventbus"
)

// ErrSessionClosed is returned for work posted after the session ended.
var ErrSessionClosed = errors.New("session closed")

const (
	helloWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
	sendBuffer = 64
	workBuffer = 64
)

type frame struct {
	binary bool
	data   []byte
}

// Session is one websocket connection bound to one card.
type Session struct {
	id     string
	server *Server
	conn   *websocket.Conn
	logger zerolog.Logger

	codec  Codec
	engine *Engine

	work   chan func()
	out    chan frame
	done   chan struct{}
	closer sync.Once

	// Loop-owned refresh state.
	refreshing   bool
	refreshAgain bool
}

func newSession(server *Server, conn *websocket.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		server: server,
		conn:   conn,
		logger: log.With().Str("session", id).Str("remote_addr", conn.RemoteAddr().String()).Logger(),
		codec:  JSON,
		work:   make(chan func(), workBuffer),
		out:    make(chan frame, sendBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// post runs f on the session loop. It is the executor of the session clock.
func (s *Session) post(f func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.work <- f:
		return true
	case <-s.done:
		return false
	}
}

// Do runs f on the session loop.
func (s *Session) Do(f func()) error {
	if !s.post(f) {
		return ErrSessionClosed
	}
	return nil
}

// close ends the session once; safe from any goroutine. The connection is
// closed by run after pending writes are flushed.
func (s *Session) close() {
	s.closer.Do(func() {
		close(s.done)
	})
}

// run serves the connection until it closes or ctx is cancelled.
func (s *Session) run(ctx context.Context) {
	defer s.conn.Close()
	defer s.close()

	hello, err := s.readHello()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Session rejected")
		s.writeError(err)
		return
	}

	cardCfg, ok := s.server.cards[hello.Card]
	if !ok {
		err := fmt.Errorf("unknown card %q", hello.Card)
		s.logger.Warn().Err(err).Msg("Session rejected")
		s.writeError(err)
		return
	}
	s.logger = s.logger.With().Str("card", hello.Card).Str("entity", cardCfg.Entity).Logger()

	cfg := s.server.engineConfig
	cfg.Mobile = hello.Mobile
	engine, err := NewEngine(hello.Card, cardCfg, cfg, clock.NewReal(s.post), s.server.dispatcher(s.id), s.send, s.requestRefresh)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build card")
		s.writeError(err)
		return
	}
	s.engine = engine

	s.logger.Info().Bool("mobile", hello.Mobile).Bool("binary", s.codec.Binary()).Msg("Session started")

	writerDone := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()
	go func() {
		defer close(readerDone)
		s.readPump()
	}()

	unsubscribe := s.subscribe()
	s.requestRefresh()
	s.loop(ctx)

	unsubscribe()
	// Releases page scroll on the client if a drag was in progress.
	s.engine.Close()
	s.close()
	<-writerDone
	_ = s.conn.Close()
	<-readerDone
	s.logger.Info().Msg("Session ended")
}

func (s *Session) readHello() (Inbound, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(helloWait))
	mt, data, err := s.conn.ReadMessage()
	if err != nil {
		return Inbound{}, fmt.Errorf("read hello: %w", err)
	}
	s.codec = CodecFor(mt == websocket.BinaryMessage)

	var m Inbound
	if err := s.codec.Decode(data, &m); err != nil {
		return Inbound{}, fmt.Errorf("decode hello: %w", err)
	}
	if m.Type != TypeHello {
		return Inbound{}, fmt.Errorf("expected hello, got %q", m.Type)
	}
	return m, nil
}

func (s *Session) loop(ctx context.Context) {
	ticker := time.NewTicker(s.server.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.requestRefresh()
		case f := <-s.work:
			f()
		}
		s.engine.Flush()
	}
}

// subscribe refreshes on bridge changes to this card's light.
func (s *Session) subscribe() func() {
	bus := s.server.bus
	if bus == nil {
		return func() {}
	}
	entity := s.engine.Entity()
	unsubChanged := bus.Subscribe(eventbus.EventTypeLightChanged, func(e eventbus.Event) {
		if id, _ := e.Data["light_id"].(string); id == entity {
			s.post(s.requestRefresh)
		}
	})
	unsubConnected := bus.Subscribe(eventbus.EventTypeBridgeConnected, func(eventbus.Event) {
		s.post(s.requestRefresh)
	})
	return func() {
		unsubChanged()
		unsubConnected()
	}
}

// requestRefresh fetches the light state off the loop and mounts it on the
// loop. Requests during a fetch collapse into one follow-up fetch.
func (s *Session) requestRefresh() {
	if s.refreshing {
		s.refreshAgain = true
		return
	}
	s.refreshing = true
	entity := s.engine.Entity()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.server.readTimeout)
		defer cancel()
		st, err := s.server.reader.LightState(ctx, entity)

		s.post(func() {
			s.refreshing = false
			if err != nil {
				s.logger.Warn().Err(err).Msg("Failed to read light state")
				// Controls freeze until the light is readable again.
				st = device.State{ID: entity}
			}
			s.engine.Mount(st)
			if s.refreshAgain {
				s.refreshAgain = false
				s.requestRefresh()
			}
		})
	}()
}

func (s *Session) readPump() {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("Read failed")
			}
			s.close()
			return
		}

		var m Inbound
		if err := CodecFor(mt == websocket.BinaryMessage).Decode(data, &m); err != nil {
			s.logger.Debug().Err(err).Msg("Dropping undecodable frame")
			continue
		}
		if !s.post(func() { s.handle(m) }) {
			return
		}
	}
}

func (s *Session) handle(m Inbound) {
	if err := s.engine.Handle(m); err != nil {
		s.logger.Debug().Err(err).Str("type", m.Type).Msg("Message rejected")
		s.send(Outbound{Type: TypeError, Message: err.Error()})
	}
}

// send encodes m for the write pump. A client that cannot keep up is
// disconnected.
func (s *Session) send(m Outbound) {
	data, err := s.codec.Encode(m)
	if err != nil {
		s.logger.Error().Err(err).Str("type", m.Type).Msg("Failed to encode message")
		return
	}
	select {
	case <-s.done:
	case s.out <- frame{binary: s.codec.Binary(), data: data}:
	default:
		s.logger.Warn().Msg("Client too slow, closing session")
		s.close()
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			s.drainWrites()
			return
		case f := <-s.out:
			if err := s.write(f); err != nil {
				s.logger.Debug().Err(err).Msg("Write failed")
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.server.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}

func (s *Session) write(f frame) error {
	mt := websocket.TextMessage
	if f.binary {
		mt = websocket.BinaryMessage
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.server.writeTimeout))
	return s.conn.WriteMessage(mt, f.data)
}

// drainWrites flushes frames queued before close, such as the final scroll
// resume. The connection may already be gone.
func (s *Session) drainWrites() {
	for {
		select {
		case f := <-s.out:
			if s.write(f) != nil {
				return
			}
		default:
			return
		}
	}
}

// writeError reports a fatal error before the pumps are running.
func (s *Session) writeError(err error) {
	data, encErr := s.codec.Encode(Outbound{Type: TypeError, Message: err.Error()})
	if encErr != nil {
		return
	}
	_ = s.write(frame{binary: s.codec.Binary(), data: data})
}
