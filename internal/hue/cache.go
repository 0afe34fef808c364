package hue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/device"
)

// DefaultStateTTL bounds how long a light read is reused. Several sessions
// showing the same light refresh on the same bridge event.
const DefaultStateTTL = time.Second

type cachedState struct {
	state     device.State
	fetchedAt time.Time
}

// StateCache is a pure cache for light state.
// It does NOT fetch from network - CachedReader does that.
type StateCache struct {
	mu     sync.RWMutex
	lights map[string]*cachedState
	ttl    time.Duration
	now    func() time.Time
}

// NewStateCache creates a new light state cache.
// Parameters:
//   - ttl: Time-to-live for cache entries (0 = DefaultStateTTL)
func NewStateCache(ttl time.Duration) *StateCache {
	if ttl == 0 {
		ttl = DefaultStateTTL
	}

	log.Debug().Dur("ttl", ttl).Msg("Light state cache initialized")

	return &StateCache{
		lights: make(map[string]*cachedState),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns cached state, or false if not cached or stale.
func (c *StateCache) Get(id string) (device.State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.lights[id]
	if !ok || c.now().Sub(cached.fetchedAt) > c.ttl {
		return device.State{}, false
	}
	return cached.state, true
}

// Set stores light state in the cache.
func (c *StateCache) Set(id string, state device.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lights[id] = &cachedState{state: state, fetchedAt: c.now()}
}

// Invalidate removes an entry from the cache.
func (c *StateCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.lights, id)
}

// Clear removes all entries from the cache.
func (c *StateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lights = make(map[string]*cachedState)
}

// StateReader reads one light.
type StateReader interface {
	LightState(ctx context.Context, id string) (device.State, error)
}

// CachedReader serves light reads from a StateCache, falling through to the
// bridge on a miss. Failed reads are not cached.
type CachedReader struct {
	reader StateReader
	cache  *StateCache
}

// NewCachedReader wraps reader with cache.
func NewCachedReader(reader StateReader, cache *StateCache) *CachedReader {
	return &CachedReader{reader: reader, cache: cache}
}

// LightState returns the cached state of id or reads it.
func (r *CachedReader) LightState(ctx context.Context, id string) (device.State, error) {
	if st, ok := r.cache.Get(id); ok {
		return st, nil
	}
	st, err := r.reader.LightState(ctx, id)
	if err != nil {
		return device.State{}, err
	}
	r.cache.Set(id, st)
	return st, nil
}
