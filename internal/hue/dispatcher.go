package hue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/lightslider/internal/device"
	"github.com/dokzlo13/lightslider/internal/eventbus"
	"github.com/dokzlo13/lightslider/internal/ledger"
)

// ErrQueueFull is returned for a live command when the dispatch queue is at
// capacity. Committed commands are always accepted.
var ErrQueueFull = errors.New("dispatch queue full")

// Default dispatch settings. The bridge tolerates roughly ten light updates
// per second.
const (
	DefaultRateLimit = 10.0
	DefaultBurst     = 1
	DefaultQueueSize = 64
)

// Applier sends one command to a light.
type Applier interface {
	Apply(ctx context.Context, cmd device.Command) error
}

// Recorder persists command outcomes.
type Recorder interface {
	Append(e ledger.Entry) error
}

// Publisher receives command outcome events.
type Publisher interface {
	Publish(event eventbus.Event)
}

// DispatcherConfig tunes the dispatch worker.
type DispatcherConfig struct {
	RateLimit float64       // commands per second, 0 = unlimited
	Burst     int           // limiter burst
	QueueSize int           // live command capacity
	Timeout   time.Duration // per command, 0 = none
}

// DefaultDispatcherConfig returns the bridge-friendly defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		RateLimit: DefaultRateLimit,
		Burst:     DefaultBurst,
		QueueSize: DefaultQueueSize,
	}
}

type queued struct {
	cmd    device.Command
	source string
}

// Dispatcher serializes commands from every session onto one worker.
// Consecutive live commands for the same light and attributes collapse to the
// newest; committed commands are never dropped or reordered.
type Dispatcher struct {
	applier  Applier
	recorder Recorder
	bus      Publisher
	limiter  *rate.Limiter
	config   DispatcherConfig

	mu    sync.Mutex
	queue []queued
	wake  chan struct{}
}

// NewDispatcher creates a dispatcher. recorder and bus may be nil.
func NewDispatcher(applier Applier, recorder Recorder, bus Publisher, config DispatcherConfig) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.Burst <= 0 {
		config.Burst = DefaultBurst
	}
	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	return &Dispatcher{
		applier:  applier,
		recorder: recorder,
		bus:      bus,
		limiter:  rate.NewLimiter(limit, config.Burst),
		config:   config,
		wake:     make(chan struct{}, 1),
	}
}

// Dispatch enqueues cmd without blocking.
func (d *Dispatcher) Dispatch(cmd device.Command) error {
	return d.DispatchFrom("", cmd)
}

// DispatchFrom enqueues cmd, tagging it with the session that sent it.
func (d *Dispatcher) DispatchFrom(source string, cmd device.Command) error {
	d.mu.Lock()
	if !cmd.Committed {
		if i := d.lastFor(cmd.Target); i >= 0 && !d.queue[i].cmd.Committed && d.queue[i].cmd.Key() == cmd.Key() {
			d.queue[i] = queued{cmd: cmd, source: source}
			d.mu.Unlock()
			log.Trace().Str("light", cmd.Target).Msg("Coalesced live command")
			return nil
		}
		if d.liveCount() >= d.config.QueueSize {
			d.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrQueueFull, cmd)
		}
	}
	d.queue = append(d.queue, queued{cmd: cmd, source: source})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// For wraps d so every command carries source.
func (d *Dispatcher) For(source string) SourceDispatcher {
	return SourceDispatcher{d: d, source: source}
}

// SourceDispatcher tags commands with a fixed source.
type SourceDispatcher struct {
	d      *Dispatcher
	source string
}

// Dispatch enqueues cmd on the shared dispatcher.
func (s SourceDispatcher) Dispatch(cmd device.Command) error {
	return s.d.DispatchFrom(s.source, cmd)
}

// Len returns the number of queued commands.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// lastFor returns the index of the newest queued command for target, or -1.
func (d *Dispatcher) lastFor(target string) int {
	for i := len(d.queue) - 1; i >= 0; i-- {
		if d.queue[i].cmd.Target == target {
			return i
		}
	}
	return -1
}

func (d *Dispatcher) liveCount() int {
	n := 0
	for _, q := range d.queue {
		if !q.cmd.Committed {
			n++
		}
	}
	return n
}

func (d *Dispatcher) pop() (queued, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return queued{}, false
	}
	q := d.queue[0]
	d.queue[0] = queued{}
	d.queue = d.queue[1:]
	return q, true
}

// Run applies queued commands until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Info().
		Float64("rate_limit", d.config.RateLimit).
		Int("queue_size", d.config.QueueSize).
		Msg("Command dispatcher started")

	for {
		q, ok := d.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-d.wake:
				continue
			}
		}

		if err := d.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				log.Warn().Int("pending", d.Len()+1).Msg("Dispatcher stopped with pending commands")
				return nil
			}
			return err
		}
		d.apply(ctx, q)
	}
}

func (d *Dispatcher) apply(ctx context.Context, q queued) {
	applyCtx := ctx
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		applyCtx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := q.cmd
	err := d.applier.Apply(applyCtx, cmd)
	if err != nil {
		log.Warn().
			Err(err).
			Str("light", cmd.Target).
			Str("source", q.source).
			Bool("committed", cmd.Committed).
			Msg("Command failed")
		d.record(ledger.Entry{
			EventType: ledger.EventCommandFailed,
			Target:    cmd.Target,
			Service:   cmd.Service,
			Payload:   cmd.Payload,
			Committed: cmd.Committed,
			Source:    q.source,
			Error:     err.Error(),
		})
		d.publish(eventbus.EventTypeCommandFailed, q, err)
		return
	}

	// Live commands are too frequent to audit; only the final value is kept.
	if !cmd.Committed {
		return
	}
	d.record(ledger.Entry{
		EventType:      ledger.EventCommandApplied,
		Target:         cmd.Target,
		Service:        cmd.Service,
		Payload:        cmd.Payload,
		Committed:      true,
		Source:         q.source,
		IdempotencyKey: uuid.NewString(),
	})
	d.publish(eventbus.EventTypeCommandApplied, q, nil)
}

func (d *Dispatcher) record(e ledger.Entry) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Append(e); err != nil {
		log.Error().Err(err).Str("light", e.Target).Msg("Failed to write ledger entry")
	}
}

func (d *Dispatcher) publish(t eventbus.EventType, q queued, err error) {
	if d.bus == nil {
		return
	}
	data := map[string]interface{}{
		"light_id":  q.cmd.Target,
		"service":   q.cmd.Service,
		"payload":   q.cmd.Payload,
		"committed": q.cmd.Committed,
		"source":    q.source,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	d.bus.Publish(eventbus.Event{Type: t, Data: data})
}
