package pool

import (
	"DBHooks/internal/core/ports"
	"DBHooks/internal/events"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record persistently manages one physical connection across checkouts.
type Record struct {
	ID        uuid.UUID
	CreatedAt time.Time
	// Info is free-form per-connection state for listeners.
	Info map[string]any

	pool *Pool
	raw  ports.RawConn

	mu      sync.Mutex
	invalid bool
}

// Raw returns the physical connection.
func (r *Record) Raw() ports.RawConn { return r.raw }

// Invalid reports whether the connection was discarded.
func (r *Record) Invalid() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invalid
}

func (r *Record) invalidate(ctx context.Context) {
	r.mu.Lock()
	if r.invalid {
		r.mu.Unlock()
		return
	}
	r.invalid = true
	r.mu.Unlock()

	r.pool.mu.Lock()
	r.pool.stats.Invalidated++
	r.pool.mu.Unlock()
	if err := r.raw.Close(ctx); err != nil {
		r.pool.log.Warn().Err(err).Str("record_id", r.ID.String()).Msg("Failed to close invalidated connection")
	}
}

// Conn is the lease of a Record for the span of one checkout.
type Conn struct {
	pool   *Pool
	record *Record

	mu       sync.Mutex
	closed   bool
	detached bool
}

// Record returns the connection record.
func (c *Conn) Record() *Record { return c.record }

// Raw returns the physical connection.
func (c *Conn) Raw() ports.RawConn { return c.record.raw }

// Exec runs a statement on the physical connection.
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, ErrConnClosed
	}
	return c.record.raw.Exec(ctx, sql, args...)
}

// Detach removes the connection from pool management. It no longer counts
// against the pool size, Close closes it outright, and checkin never fires.
func (c *Conn) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.detached {
		return
	}
	c.detached = true
	<-c.pool.sem
}

// Invalidate closes the physical connection; it will not be reused.
func (c *Conn) Invalidate(ctx context.Context) {
	c.record.invalidate(ctx)
}

// Close returns the connection to the pool, firing checkin. Detached and
// invalidated connections skip checkin.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	c.closed = true
	detached := c.detached
	c.mu.Unlock()

	if detached {
		return c.record.raw.Close(ctx)
	}
	defer func() { <-c.pool.sem }()

	if c.record.Invalid() {
		return nil
	}
	if _, err := events.Pool.Fire(ctx, c.pool, events.Checkin, c.record.raw, c.record); err != nil {
		c.pool.log.Error().Err(err).Str("record_id", c.record.ID.String()).Msg("Checkin listener failed, discarding connection")
		c.record.invalidate(ctx)
		return err
	}
	c.pool.release(ctx, c.record)
	return nil
}
