// Package engine executes statements and manages transactions over a pool,
// firing the engine event catalog at each step.
package engine

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/events"
	"DBHooks/internal/pool"
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	ErrConnectionClosed    = errors.New("connection is closed")
	ErrTransactionActive   = errors.New("a transaction is already in progress")
	ErrTransactionInactive = errors.New("transaction is no longer active")
	ErrNotTwoPhase         = errors.New("transaction is not two-phase")
	ErrBadRewrite          = errors.New("listener returned arguments of the wrong type")
)

// Engine is the entry point for executing statements against a pool.
type Engine struct {
	event.Hooks

	pool atomic.Pointer[pool.Pool]
	log  zerolog.Logger
}

var (
	_ event.Target        = (*Engine)(nil)
	_ events.PoolProvider = (*Engine)(nil)
)

// New creates an engine over p.
func New(p *pool.Pool, baseLogger *zerolog.Logger) *Engine {
	e := &Engine{log: baseLogger.With().Str("component", "engine").Logger()}
	e.pool.Store(p)
	return e
}

// EventClass implements event.Target.
func (e *Engine) EventClass() *event.Class { return events.EngineClass }

// Pool returns the pool currently in use.
func (e *Engine) Pool() *pool.Pool { return e.pool.Load() }

// EventPool resolves the engine to its current pool for pool events.
func (e *Engine) EventPool() event.Target {
	p := e.pool.Load()
	if p == nil {
		return nil
	}
	return p
}

// Dispose replaces the pool with a fresh one and closes the old pool.
// Pool listeners registered on the old pool instance move to the new one.
func (e *Engine) Dispose(ctx context.Context) error {
	old := e.pool.Load()
	e.pool.Store(old.Recreate())
	e.log.Info().Msg("Engine pool disposed")
	return old.Close(ctx)
}

// Connect checks out a pooled connection.
func (e *Engine) Connect(ctx context.Context) (*Connection, error) {
	pc, err := e.Pool().Checkout(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("Failed to check out a connection")
		return nil, err
	}
	return &Connection{engine: e, conn: pc, log: e.log}, nil
}
