// Package script runs a user Lua script that reacts to committed slider
// values. The script may define a global on_commit(event) function and use
// the log and lights modules.
package script

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/lightslider/internal/device"
	"github.com/dokzlo13/lightslider/internal/eventbus"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = errors.New("lua runtime closed")

// CommitHook is the global function the runtime calls for each committed value.
const CommitHook = "on_commit"

// DefaultQueueSize bounds pending hook invocations.
const DefaultQueueSize = 100

// Work represents work to be executed on the Lua VM.
// All Lua execution MUST go through this to ensure thread safety
type Work func(ctx context.Context)

// Dispatcher accepts commands issued by the script.
type Dispatcher interface {
	DispatchFrom(source string, cmd device.Command) error
}

// Runtime manages the Lua VM with single-threaded execution
type Runtime struct {
	L *lua.LState

	// Work queue for thread-safe Lua execution
	workQueue chan Work

	// Closing this channel signals senders to stop
	closing   chan struct{}
	closeOnce sync.Once
}

// NewRuntime creates a Lua runtime with the log and lights modules preloaded.
// dispatcher may be nil, in which case lights.turn_on raises an error.
func NewRuntime(dispatcher Dispatcher) *Runtime {
	L := lua.NewState()
	r := &Runtime{
		L:         L,
		workQueue: make(chan Work, DefaultQueueSize),
		closing:   make(chan struct{}),
	}

	L.PreloadModule("log", NewLogModule().Loader)
	L.PreloadModule("lights", NewLightsModule(dispatcher).Loader)
	return r
}

// LoadScript executes the script at path (must be called before Run)
func (r *Runtime) LoadScript(path string) error {
	log.Info().Str("path", path).Msg("Loading Lua script")
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}
	log.Info().Bool("on_commit", r.hasHook()).Msg("Lua script loaded successfully")
	return nil
}

// LoadString executes source (must be called before Run)
func (r *Runtime) LoadString(source string) error {
	if err := r.L.DoString(source); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}
	return nil
}

func (r *Runtime) hasHook() bool {
	_, ok := r.L.GetGlobal(CommitHook).(*lua.LFunction)
	return ok
}

// Subscribe forwards command_applied events for committed values to the
// on_commit hook. It returns the unsubscribe function.
func (r *Runtime) Subscribe(ctx context.Context, bus *eventbus.Bus) func() {
	return bus.Subscribe(eventbus.EventTypeCommandApplied, func(e eventbus.Event) {
		if committed, _ := e.Data["committed"].(bool); !committed {
			return
		}
		r.Do(ctx, func(ctx context.Context) {
			if err := r.CallCommit(e.Data); err != nil {
				log.Warn().Err(err).Msg("on_commit failed")
			}
		})
	})
}

// CallCommit invokes on_commit(event) if the script defined it.
// Must run on the Lua worker.
func (r *Runtime) CallCommit(event map[string]interface{}) error {
	fn, ok := r.L.GetGlobal(CommitHook).(*lua.LFunction)
	if !ok {
		return nil
	}
	return r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, GoToLuaValue(r.L, event))
}

// Close signals the runtime to stop accepting new work and closes the Lua state.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)
	})
}

// Do queues work to be executed on the Lua VM (thread-safe, non-blocking)
// Returns false if the runtime is closing, queue is full, or context is cancelled.
func (r *Runtime) Do(ctx context.Context, work Work) bool {
	select {
	case <-r.closing:
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	case <-ctx.Done():
		log.Warn().Msg("Context cancelled, dropping Lua work")
		return false
	case r.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Lua work queue full, dropping work")
		return false
	}
}

// Run starts the Lua worker goroutine - this is the ONLY goroutine that touches Lua.
// Exits when context is cancelled or runtime is closed, and closes the Lua state.
func (r *Runtime) Run(ctx context.Context) {
	defer r.L.Close()
	for {
		select {
		case <-ctx.Done():
			r.drainQueue(ctx)
			return
		case <-r.closing:
			r.drainQueue(ctx)
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

// drainQueue processes any remaining work in the queue before exiting
func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (r *Runtime) executeWork(ctx context.Context, work Work) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Lua work panicked - worker continuing")
		}
	}()
	r.L.SetContext(ctx)
	work(ctx)
}
