package eventbus

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"DBHooks/internal/engine"
	"DBHooks/internal/events"
	"DBHooks/internal/pool"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct{}

func (stubConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) { return 1, nil }
func (stubConn) Ping(ctx context.Context) error                                  { return nil }
func (stubConn) Close(ctx context.Context) error                                 { return nil }

type stubConnector struct{}

func (stubConnector) Connect(ctx context.Context) (ports.RawConn, error) { return stubConn{}, nil }

type collector struct {
	mu     sync.Mutex
	events []ports.Event
}

func (c *collector) handle(ctx context.Context, e ports.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func TestInMemoryBus_PublishSubscribe(t *testing.T) {
	nopLogger := zerolog.Nop()
	bus := NewInMemoryBus(&nopLogger)
	var a, b collector
	bus.Subscribe("t", a.handle)
	bus.Subscribe("t", b.handle)
	bus.Subscribe("failing", func(ctx context.Context, e ports.Event) error { return errors.New("nope") })

	require.NoError(t, bus.Publish(context.Background(), "t", 1))
	require.NoError(t, bus.Publish(context.Background(), "failing", 2))
	require.NoError(t, bus.Publish(context.Background(), "nobody", 3))
	bus.Wait()

	assert.Equal(t, []ports.Event{{Topic: "t", Data: 1}}, a.events)
	assert.Equal(t, []ports.Event{{Topic: "t", Data: 1}}, b.events)
}

func TestForward_EngineEvents(t *testing.T) {
	nopLogger := zerolog.Nop()
	bus := NewInMemoryBus(&nopLogger)
	reg := events.NewRegistry(&nopLogger)
	eng := engine.New(pool.New(stubConnector{}, &nopLogger), &nopLogger)
	defer eng.Pool().Close(context.Background())

	var got collector
	bus.Subscribe(Topic(events.Engine, events.AfterExecute), got.handle)
	listeners, err := Forward(reg, bus, events.Engine, eng, events.AfterExecute, events.Commit)
	require.NoError(t, err)
	assert.Len(t, listeners, 2)

	ctx := context.Background()
	conn, err := eng.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close(ctx)
	_, err = conn.Execute(ctx, "DELETE FROM t")
	require.NoError(t, err)
	bus.Wait()

	require.Len(t, got.events, 1)
	assert.Equal(t, "engine.after_execute", got.events[0].Topic)
	n := got.events[0].Data.(Notification)
	assert.Equal(t, "engine", n.Catalog)
	assert.Equal(t, events.AfterExecute, n.Event)
	assert.Equal(t, "DELETE FROM t", n.Args[1])
	assert.Same(t, conn, n.Args[0])
}

func TestForward_UnknownEventAttachesNothing(t *testing.T) {
	nopLogger := zerolog.Nop()
	bus := NewInMemoryBus(&nopLogger)
	reg := events.NewRegistry(&nopLogger)
	eng := engine.New(pool.New(stubConnector{}, &nopLogger), &nopLogger)

	_, err := Forward(reg, bus, events.Engine, eng, events.Commit, "no_such_event")
	var unknown *event.UnknownEventError
	require.ErrorAs(t, err, &unknown)
	assert.Empty(t, events.Engine.Listeners(eng, events.Commit))
}
