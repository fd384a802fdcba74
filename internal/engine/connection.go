package engine

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"DBHooks/internal/events"
	"DBHooks/internal/pool"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Result describes a completed execution.
type Result struct {
	RowsAffected int64
	Context      *ExecutionContext
}

// ExecutionContext carries the state of one cursor-level execution. It is
// passed to cursor events and handle_error; Info is free for listeners to
// stash per-execution values between those events.
type ExecutionContext struct {
	Statement   string
	Parameters  any
	ExecuteMany bool
	StartedAt   time.Time
	Info        map[string]any
}

// Connection is a checked-out connection bound to an engine.
type Connection struct {
	engine *Engine
	conn   *pool.Conn
	log    zerolog.Logger

	mu           sync.Mutex
	closed       bool
	tx           *Transaction
	savepointSeq int
}

var _ ports.Executor = (*Connection)(nil)

// Engine returns the owning engine.
func (c *Connection) Engine() *Engine { return c.engine }

// Pooled returns the pooled connection underneath.
func (c *Connection) Pooled() *pool.Conn { return c.conn }

// Execute runs stmt once with positional params.
func (c *Connection) Execute(ctx context.Context, stmt string, params ...any) (*Result, error) {
	return c.execute(ctx, stmt, nil, params)
}

// ExecuteMany runs stmt once per parameter set.
func (c *Connection) ExecuteMany(ctx context.Context, stmt string, paramSets [][]any) (*Result, error) {
	return c.execute(ctx, stmt, paramSets, nil)
}

// Exec implements ports.Executor.
func (c *Connection) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	res, err := c.Execute(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (c *Connection) execute(ctx context.Context, stmt string, multiparams [][]any, params []any) (*Result, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	args, err := events.Engine.Fire(ctx, c.engine, events.BeforeExecute, c, stmt, multiparams, params)
	if err != nil {
		return nil, err
	}
	var ok bool
	if stmt, ok = args[1].(string); !ok {
		return nil, fmt.Errorf("%w: clauseelement is %T", ErrBadRewrite, args[1])
	}
	if multiparams, ok = args[2].([][]any); !ok && args[2] != nil {
		return nil, fmt.Errorf("%w: multiparams is %T", ErrBadRewrite, args[2])
	}
	if params, ok = args[3].([]any); !ok && args[3] != nil {
		return nil, fmt.Errorf("%w: params is %T", ErrBadRewrite, args[3])
	}

	sets := multiparams
	if len(sets) == 0 {
		sets = [][]any{params}
	}
	result, err := c.cursorExecute(ctx, stmt, sets)
	if err != nil {
		return nil, err
	}

	if _, err := events.Engine.Fire(ctx, c.engine, events.AfterExecute, c, stmt, multiparams, params, result); err != nil {
		return result, err
	}
	return result, nil
}

// cursorExecute fires the cursor-level events around the raw execution.
// parameters is a []any for a single execution and a [][]any for many.
func (c *Connection) cursorExecute(ctx context.Context, stmt string, sets [][]any) (*Result, error) {
	raw := c.conn.Raw()
	many := len(sets) > 1
	var parameters any = sets[0]
	if many {
		parameters = sets
	}
	ectx := &ExecutionContext{
		Statement:   stmt,
		Parameters:  parameters,
		ExecuteMany: many,
		StartedAt:   time.Now(),
		Info:        make(map[string]any),
	}

	// From here on every failure goes through handle_error.
	args, err := events.Engine.Fire(ctx, c.engine, events.BeforeCursorExecute, c, raw, stmt, parameters, ectx, many)
	if err != nil {
		return nil, c.handleError(ctx, ectx, err)
	}
	statement, ok := args[2].(string)
	if !ok {
		return nil, c.handleError(ctx, ectx, fmt.Errorf("%w: statement is %T", ErrBadRewrite, args[2]))
	}
	parameters = args[3]
	if sets, err = paramSets(parameters); err != nil {
		return nil, c.handleError(ctx, ectx, err)
	}
	ectx.Statement, ectx.Parameters = statement, parameters

	var total int64
	for _, set := range sets {
		n, err := raw.Exec(ctx, statement, set...)
		if err != nil {
			return nil, c.handleError(ctx, ectx, err)
		}
		total += n
	}

	if _, err := events.Engine.Fire(ctx, c.engine, events.AfterCursorExecute, c, raw, statement, parameters, ectx, many); err != nil {
		return nil, err
	}
	return &Result{RowsAffected: total, Context: ectx}, nil
}

// handleError fires handle_error. A listener error replaces the driver
// error; a disconnection also invalidates the pooled connection.
func (c *Connection) handleError(ctx context.Context, ectx *ExecutionContext, cause error) error {
	c.log.Error().Err(cause).Str("statement", ectx.Statement).Msg("Statement execution failed")
	if _, err := events.Engine.Fire(ctx, c.engine, events.HandleError, c, ectx, cause); err != nil {
		cause = err
	}
	if errors.Is(cause, event.ErrDisconnection) {
		c.log.Warn().Str("record_id", c.conn.Record().ID.String()).Msg("Invalidating disconnected connection")
		c.conn.Invalidate(ctx)
	}
	return cause
}

func paramSets(parameters any) ([][]any, error) {
	switch p := parameters.(type) {
	case nil:
		return [][]any{nil}, nil
	case []any:
		return [][]any{p}, nil
	case [][]any:
		if len(p) == 0 {
			return [][]any{nil}, nil
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: parameters is %T", ErrBadRewrite, parameters)
}

func (c *Connection) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	return nil
}

// Close rolls back any open transaction without firing events and
// returns the connection to the pool.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.closed = true
	tx := c.tx
	c.tx = nil
	c.mu.Unlock()

	if tx != nil {
		tx.deactivate()
		if _, err := c.conn.Exec(ctx, "ROLLBACK"); err != nil {
			c.log.Warn().Err(err).Msg("Failed to roll back open transaction on close")
			c.conn.Invalidate(ctx)
		}
	}
	return c.conn.Close(ctx)
}
