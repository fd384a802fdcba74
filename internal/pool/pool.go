// Package pool is a connection pool that fires the pool event catalog at
// connect, first connect, checkout and checkin.
package pool

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"DBHooks/internal/events"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned by Checkout on a closed pool.
	ErrClosed = errors.New("pool is closed")

	// ErrCheckoutRetriesExhausted is returned when checkout listeners kept
	// reporting disconnection for every fresh connection.
	ErrCheckoutRetriesExhausted = errors.New("reconnection attempts exhausted on checkout")

	// ErrConnClosed is returned when a pooled connection is used after Close.
	ErrConnClosed = errors.New("connection already returned to the pool")
)

const (
	defaultSize    = 5
	defaultRetries = 1
)

type options struct {
	size    int
	retries int
	class   *event.Class
}

// Option configures a Pool.
type Option func(*options)

// WithSize caps the number of connections checked out at once and kept idle.
func WithSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithCheckoutRetries sets how many fresh connections Checkout tries after
// a checkout listener reports disconnection.
func WithCheckoutRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.retries = n
		}
	}
}

// WithClass makes the pool an instance of cls, which must descend from
// events.PoolClass.
func WithClass(cls *event.Class) Option {
	return func(o *options) {
		if cls != nil && cls.IsA(events.PoolClass) {
			o.class = cls
		}
	}
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Idle        int
	InUse       int
	Connects    int64
	Checkouts   int64
	Invalidated int64
}

// Pool hands out physical connections from a Connector.
type Pool struct {
	event.Hooks

	connector  ports.Connector
	opts       []Option
	cfg        options
	baseLogger *zerolog.Logger
	log        zerolog.Logger
	sem        chan struct{}

	mu     sync.Mutex
	idle   []*Record
	closed bool
	stats  Stats
}

var _ event.Target = (*Pool)(nil)

// New creates a pool over connector.
func New(connector ports.Connector, baseLogger *zerolog.Logger, opts ...Option) *Pool {
	cfg := options{size: defaultSize, retries: defaultRetries, class: events.PoolClass}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Pool{
		connector:  connector,
		opts:       opts,
		cfg:        cfg,
		baseLogger: baseLogger,
		log:        baseLogger.With().Str("component", "pool").Logger(),
		sem:        make(chan struct{}, cfg.size),
	}
}

// EventClass implements event.Target.
func (p *Pool) EventClass() *event.Class { return p.cfg.class }

// Size returns the pool capacity.
func (p *Pool) Size() int { return p.cfg.size }

// Checkout leases a connection. It blocks while the pool is at capacity.
//
// If a checkout listener returns an error wrapping event.ErrDisconnection
// the connection is invalidated and checkout restarts on a new physical
// connection, at most the configured number of times.
func (p *Pool) Checkout(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt <= p.cfg.retries; attempt++ {
		var rec *Record
		var err error
		if attempt == 0 {
			rec, err = p.acquire(ctx)
		} else {
			// Retries always use a new physical connection.
			rec, err = p.connect(ctx)
		}
		if err != nil {
			<-p.sem
			return nil, err
		}

		c := &Conn{pool: p, record: rec}
		if _, err := events.Pool.Fire(ctx, p, events.Checkout, rec.raw, rec, c); err != nil {
			if errors.Is(err, event.ErrDisconnection) {
				p.log.Warn().Err(err).Str("record_id", rec.ID.String()).Int("attempt", attempt+1).
					Msg("Checkout listener reported disconnection, retrying with a new connection")
				rec.invalidate(ctx)
				lastErr = err
				continue
			}
			p.release(ctx, rec)
			<-p.sem
			return nil, err
		}

		p.mu.Lock()
		p.stats.Checkouts++
		p.mu.Unlock()
		return c, nil
	}

	<-p.sem
	p.log.Error().Err(lastErr).Int("attempts", p.cfg.retries+1).Msg("Giving up on checkout")
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrCheckoutRetriesExhausted, p.cfg.retries+1, lastErr)
}

func (p *Pool) acquire(ctx context.Context) (*Record, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		rec := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return rec, nil
	}
	p.mu.Unlock()
	return p.connect(ctx)
}

// connect opens a physical connection and fires first_connect, then connect.
func (p *Pool) connect(ctx context.Context) (*Record, error) {
	raw, err := p.connector.Connect(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to open a new connection")
		return nil, err
	}
	rec := &Record{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		Info:      make(map[string]any),
		pool:      p,
		raw:       raw,
	}

	if _, err := events.Pool.Fire(ctx, p, events.FirstConnect, raw, rec); err != nil {
		_ = raw.Close(ctx)
		return nil, err
	}
	if _, err := events.Pool.Fire(ctx, p, events.Connect, raw, rec); err != nil {
		_ = raw.Close(ctx)
		return nil, err
	}

	p.mu.Lock()
	p.stats.Connects++
	p.mu.Unlock()
	p.log.Debug().Str("record_id", rec.ID.String()).Msg("New connection established")
	return rec, nil
}

// release puts a healthy record back into the idle set, or closes it
// when the pool is closed or full.
func (p *Pool) release(ctx context.Context, rec *Record) {
	p.mu.Lock()
	if !p.closed && len(p.idle) < p.cfg.size {
		p.idle = append(p.idle, rec)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	if err := rec.raw.Close(ctx); err != nil {
		p.log.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("Failed to close surplus connection")
	}
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Idle = len(p.idle)
	s.InUse = len(p.sem)
	return s
}

// Recreate returns a new, empty pool with the same connector and options.
// Listeners registered on this pool instance carry over.
func (p *Pool) Recreate() *Pool {
	np := New(p.connector, p.baseLogger, p.opts...)
	event.Inherit(np, p)
	p.log.Info().Msg("Pool recreated")
	return np
}

// Close closes idle connections. Connections still checked out are closed
// when they are returned.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, rec := range idle {
		if err := rec.raw.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.log.Info().Int("closed", len(idle)).Msg("Closing connection pool")
	return errors.Join(errs...)
}
