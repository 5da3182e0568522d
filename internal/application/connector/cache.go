// Package connector contains the application services around sync
// connections: the write-back connection cache, connection and SKU mapping
// management, and the request authentication decision.
package connector

import (
	"context"
	"sync"
	"time"

	"github.com/shopsync/backend/internal/domain/connector"
	"go.uber.org/zap"
)

// defaultFlushInterval is how often dirty counters are written back.
const defaultFlushInterval = 5 * time.Minute

type cachedConnection struct {
	conn  *connector.Connection
	dirty bool
}

// ConnectionCache keeps all connections in memory so the hot authentication
// path never hits the database. Counter updates are applied in memory, marked
// dirty and flushed back periodically and on shutdown. This write-back is
// best effort: a crash loses recent counter updates, which is acceptable
// because the counters are observational.
type ConnectionCache struct {
	repo   connector.ConnectionRepository
	logger *zap.Logger

	mu     sync.Mutex
	loaded bool
	byID   map[int]*cachedConnection

	stopChan chan struct{}
	stopOnce sync.Once
}

// CacheOption configures a ConnectionCache.
type CacheOption func(*ConnectionCache)

// WithCacheLogger sets the cache logger.
func WithCacheLogger(logger *zap.Logger) CacheOption {
	return func(c *ConnectionCache) {
		c.logger = logger
	}
}

// NewConnectionCache creates the cache and starts its flush loop.
func NewConnectionCache(repo connector.ConnectionRepository, opts ...CacheOption) *ConnectionCache {
	c := &ConnectionCache{
		repo:     repo,
		logger:   zap.NewNop(),
		byID:     make(map[int]*cachedConnection),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.flushLoop()
	return c
}

func (c *ConnectionCache) flushLoop() {
	ticker := time.NewTicker(defaultFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Flush(context.Background()); err != nil {
				c.logger.Warn("connection cache flush failed", zap.Error(err))
			}
		case <-c.stopChan:
			return
		}
	}
}

// ensureLoaded populates the cache on first use. Callers must hold the lock.
func (c *ConnectionCache) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	conns, err := c.repo.FindAll(ctx)
	if err != nil {
		return err
	}
	c.byID = make(map[int]*cachedConnection, len(conns))
	for _, conn := range conns {
		c.byID[conn.ID] = &cachedConnection{conn: conn}
	}
	c.loaded = true
	c.logger.Debug("connection cache loaded", zap.Int("connections", len(conns)))
	return nil
}

// Lookup returns a copy of the connection matching direction and public key,
// or nil when none matches. Mutations go through Mutate.
func (c *ConnectionCache) Lookup(ctx context.Context, direction connector.Direction, publicKey string) (*connector.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	for _, entry := range c.byID {
		if entry.conn.Direction == direction && entry.conn.PublicKey == publicKey {
			snapshot := *entry.conn
			return &snapshot, nil
		}
	}
	return nil, nil
}

// Get returns a copy of the connection with the given id, or nil.
func (c *ConnectionCache) Get(ctx context.Context, id int) (*connector.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	entry, ok := c.byID[id]
	if !ok {
		return nil, nil
	}
	snapshot := *entry.conn
	return &snapshot, nil
}

// Mutate applies fn to the cached connection under the cache lock and marks
// it dirty for the next flush. Unknown ids are a no-op.
func (c *ConnectionCache) Mutate(ctx context.Context, id int, fn func(*connector.Connection)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}
	entry, ok := c.byID[id]
	if !ok {
		return nil
	}
	fn(entry.conn)
	entry.dirty = true
	return nil
}

// Flush writes all dirty connections back to the repository.
func (c *ConnectionCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return nil
	}

	var firstErr error
	for _, entry := range c.byID {
		if !entry.dirty {
			continue
		}
		if err := c.repo.Save(ctx, entry.conn); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			c.logger.Warn("connection write-back failed",
				zap.Int("connection_id", entry.conn.ID), zap.Error(err))
			continue
		}
		entry.dirty = false
	}
	return firstErr
}

// Invalidate flushes pending counter updates and drops the cached set so the
// next lookup reloads from the repository. Called after every connection
// mutation through the management API.
func (c *ConnectionCache) Invalidate(ctx context.Context) {
	if err := c.Flush(ctx); err != nil {
		c.logger.Warn("flush before invalidate failed", zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.byID = make(map[int]*cachedConnection)
}

// Close flushes pending updates and stops the flush loop.
func (c *ConnectionCache) Close() error {
	err := c.Flush(context.Background())
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	return err
}
