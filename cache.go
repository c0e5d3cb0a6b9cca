package parkour

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// levelCache shares loaded levels between the sessions playing them.
type levelCache struct {
	provider LevelProvider
	options  ProviderOptions
	log      *slog.Logger

	entries map[uuid.UUID]*levelCacheEntry
	mu      sync.Mutex

	// now returns the current time; replaced in tests
	now func() time.Time

	// cleanupInterval is how often to run cache cleanup
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// levelCacheEntry holds one loaded level.
type levelCacheEntry struct {
	level *Level

	// refCount tracks how many sessions play this level
	refCount int

	// releasedAt is when refCount last dropped to zero
	releasedAt time.Time
}

// newLevelCache creates a new level cache. The cleanup loop is not started.
func newLevelCache(provider LevelProvider, options ProviderOptions, log *slog.Logger) *levelCache {
	interval := options.GracePeriod / 2
	if interval < time.Second {
		interval = time.Second
	}
	return &levelCache{
		provider:        provider,
		options:         options,
		log:             log,
		entries:         make(map[uuid.UUID]*levelCacheEntry),
		now:             time.Now,
		cleanupInterval: interval,
		stopCleanup:     make(chan struct{}),
	}
}

// acquire returns the level with the given id, loading it if needed, and takes a reference.
func (c *levelCache) acquire(ctx context.Context, id uuid.UUID) (*Level, error) {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		e.refCount++
		c.mu.Unlock()
		return e.level, nil
	}
	c.mu.Unlock()

	if c.options.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.FetchTimeout)
		defer cancel()
	}
	lvl, err := c.provider.LoadLevel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load level %s: %w", id, err)
	}
	if lvl == nil {
		return nil, fmt.Errorf("load level %s: %w", id, ErrLevelNotFound)
	}
	if err := lvl.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		// Loaded concurrently; keep the first one so every session shares it.
		e.refCount++
		return e.level, nil
	}
	c.entries[id] = &levelCacheEntry{level: lvl, refCount: 1}
	c.log.Debug("parkour: level cached", "level", lvl.Name, "id", id)
	return lvl, nil
}

// release drops a reference taken by acquire.
func (c *levelCache) release(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || e.refCount == 0 {
		return
	}
	e.refCount--
	if e.refCount == 0 {
		e.releasedAt = c.now()
	}
}

// invalidate drops the level from the cache regardless of references.
func (c *levelCache) invalidate(id uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// refs returns the number of references held on the level.
func (c *levelCache) refs(id uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.refCount
	}
	return 0
}

// len returns the number of cached levels.
func (c *levelCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// start runs the cleanup loop until stop is called.
func (c *levelCache) start() {
	go c.cleanupLoop()
}

// cleanupLoop periodically cleans up unused cache entries.
func (c *levelCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCleanup:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes entries with zero references past their grace period and returns
// how many were removed.
func (c *levelCache) cleanup() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, e := range c.entries {
		if e.refCount > 0 || now.Sub(e.releasedAt) < c.options.GracePeriod {
			continue
		}
		delete(c.entries, id)
		removed++
	}
	return removed
}

// stop shuts down the cleanup loop and empties the cache.
func (c *levelCache) stop() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}
