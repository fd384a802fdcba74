// Package eventlog attaches logging listeners: statement echo on engines
// and lifecycle logging on pools.
package eventlog

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/engine"
	"DBHooks/internal/events"
	"DBHooks/internal/pool"
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes engine and pool events to a zerolog logger.
type Logger struct {
	log zerolog.Logger
}

func New(baseLogger *zerolog.Logger) *Logger {
	return &Logger{log: baseLogger.With().Str("component", "sql").Logger()}
}

// EchoStatements logs every statement after it ran, with its parameters
// and duration, and every failed statement at error level.
func (l *Logger) EchoStatements(reg *event.Registry, target any) ([]*event.Listener, error) {
	return attach(reg, events.Engine, target, map[string]event.Func{
		events.AfterCursorExecute: l.statement,
		events.HandleError:        l.failure,
		events.Begin:              l.tx("BEGIN"),
		events.Commit:             l.tx("COMMIT"),
		events.Rollback:           l.tx("ROLLBACK"),
	})
}

// PoolLifecycle logs connects, checkouts and checkins at debug level.
func (l *Logger) PoolLifecycle(reg *event.Registry, target any) ([]*event.Listener, error) {
	return attach(reg, events.Pool, target, map[string]event.Func{
		events.FirstConnect: l.poolEvent(events.FirstConnect),
		events.Connect:      l.poolEvent(events.Connect),
		events.Checkout:     l.poolEvent(events.Checkout),
		events.Checkin:      l.poolEvent(events.Checkin),
	})
}

func (l *Logger) statement(ctx context.Context, args event.Args) (event.Args, error) {
	e := l.log.Info().Str("statement", args[2].(string)).Interface("parameters", args[3])
	if ectx, ok := args[4].(*engine.ExecutionContext); ok {
		e = e.Dur("elapsed", time.Since(ectx.StartedAt))
	}
	e.Bool("executemany", args[5] == true).Msg("Statement executed")
	return nil, nil
}

func (l *Logger) failure(ctx context.Context, args event.Args) (event.Args, error) {
	e := l.log.Error()
	if err, ok := args[2].(error); ok {
		e = e.Err(err)
	}
	if ectx, ok := args[1].(*engine.ExecutionContext); ok {
		e = e.Str("statement", ectx.Statement).Interface("parameters", ectx.Parameters)
	}
	e.Msg("Statement failed")
	return nil, nil
}

func (l *Logger) tx(verb string) event.Func {
	return func(ctx context.Context, args event.Args) (event.Args, error) {
		l.log.Info().Msg(verb)
		return nil, nil
	}
}

func (l *Logger) poolEvent(name string) event.Func {
	return func(ctx context.Context, args event.Args) (event.Args, error) {
		e := l.log.Debug().Str("event", name)
		if rec, ok := args[1].(*pool.Record); ok {
			e = e.Str("record_id", rec.ID.String())
		}
		e.Msg("Pool event")
		return nil, nil
	}
}

// attach registers fns in catalog order so log output is deterministic.
func attach(reg *event.Registry, c *event.Catalog, target any, fns map[string]event.Func) ([]*event.Listener, error) {
	var attached []*event.Listener
	for _, d := range c.Descriptors() {
		fn, ok := fns[d.Name]
		if !ok {
			continue
		}
		l, err := reg.ListenCatalog(c, target, d.Name, fn)
		if err != nil {
			for _, done := range attached {
				_ = done.Remove()
			}
			return nil, err
		}
		attached = append(attached, l)
	}
	return attached, nil
}
