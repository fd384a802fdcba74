// Package tracing turns engine events into OpenTelemetry spans: one client
// span per cursor execution, with transaction boundaries recorded as span
// events on the caller's span.
package tracing

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/engine"
	"DBHooks/internal/events"
	"context"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "DBHooks/engine"
	spanInfoKey         = "otel.span"
)

// Instrumentation owns the tracer used by the listeners.
type Instrumentation struct {
	tracer trace.Tracer
	system string
	log    zerolog.Logger
}

// New creates instrumentation on tp, or the global provider when tp is nil.
// system is reported as db.system.name, e.g. "postgresql" or "sqlite".
func New(tp trace.TracerProvider, system string, baseLogger *zerolog.Logger) *Instrumentation {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Instrumentation{
		tracer: tp.Tracer(instrumentationName),
		system: system,
		log:    baseLogger.With().Str("component", "tracing").Logger(),
	}
}

// Attach registers the tracing listeners on target, an engine or
// events.EngineClass, and returns them so the caller can remove them.
func (in *Instrumentation) Attach(reg *event.Registry, target any) ([]*event.Listener, error) {
	hooks := []struct {
		name string
		fn   event.Func
	}{
		{events.BeforeCursorExecute, in.startSpan},
		{events.AfterCursorExecute, in.endSpan},
		{events.HandleError, in.failSpan},
		{events.Begin, in.mark("db.transaction.begin")},
		{events.Commit, in.mark("db.transaction.commit")},
		{events.Rollback, in.mark("db.transaction.rollback")},
	}

	var attached []*event.Listener
	for _, h := range hooks {
		l, err := reg.ListenCatalog(events.Engine, target, h.name, h.fn)
		if err != nil {
			for _, done := range attached {
				_ = done.Remove()
			}
			return nil, err
		}
		attached = append(attached, l)
	}
	in.log.Debug().Int("listeners", len(attached)).Msg("Tracing attached")
	return attached, nil
}

func (in *Instrumentation) startSpan(ctx context.Context, args event.Args) (event.Args, error) {
	stmt, _ := args[2].(string)
	ectx, ok := args[4].(*engine.ExecutionContext)
	if !ok {
		return nil, nil
	}
	many, _ := args[5].(bool)
	_, span := in.tracer.Start(ctx, spanName(stmt),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(ectx.StartedAt),
		trace.WithAttributes(
			attribute.String("db.system.name", in.system),
			attribute.String("db.query.text", stmt),
			attribute.Bool("db.executemany", many),
		),
	)
	ectx.Info[spanInfoKey] = span
	return nil, nil
}

func (in *Instrumentation) endSpan(ctx context.Context, args event.Args) (event.Args, error) {
	if span := spanOf(args[4]); span != nil {
		span.SetStatus(codes.Ok, "")
		span.End()
	}
	return nil, nil
}

func (in *Instrumentation) failSpan(ctx context.Context, args event.Args) (event.Args, error) {
	span := spanOf(args[1])
	if span == nil {
		return nil, nil
	}
	if err, ok := args[2].(error); ok {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return nil, nil
}

func (in *Instrumentation) mark(name string) event.Func {
	return func(ctx context.Context, args event.Args) (event.Args, error) {
		trace.SpanFromContext(ctx).AddEvent(name)
		return nil, nil
	}
}

func spanOf(v any) trace.Span {
	ectx, ok := v.(*engine.ExecutionContext)
	if !ok {
		return nil
	}
	span, _ := ectx.Info[spanInfoKey].(trace.Span)
	return span
}

// spanName is the statement's leading keyword, e.g. "INSERT".
func spanName(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return "db.exec"
	}
	return strings.ToUpper(fields[0])
}
