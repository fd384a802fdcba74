package events

import "DBHooks/internal/core/event"

// Pool event names.
const (
	Connect      = "connect"
	FirstConnect = "first_connect"
	Checkout     = "checkout"
	Checkin      = "checkin"
)

// PoolClass is the class of connection pools.
var PoolClass = event.NewClass("Pool", nil)

// PoolProvider is implemented by objects that own a pool, such as an
// engine. The pool catalog resolves them to the pool they hold at the
// moment of resolution.
type PoolProvider interface {
	EventPool() event.Target
}

// Pool holds connection pool lifecycle events. Engines and the engine
// class are accepted as targets and resolve to their pool, live on every
// listen and fire.
//
// A checkout listener may return an error wrapping event.ErrDisconnection;
// the pool then discards the connection and retries with a new one.
var Pool = event.NewCatalog("pool",
	event.Binding{
		Primary: PoolClass,
		Wrappers: []event.Wrapper{{
			Class:   EngineClass,
			Wrapped: PoolClass,
			Unwrap:  unwrapPool,
		}},
	},
	event.Descriptor{Name: Connect, Params: []string{"dbapi_connection", "connection_record"}},
	event.Descriptor{Name: FirstConnect, Params: []string{"dbapi_connection", "connection_record"}, Once: true},
	event.Descriptor{Name: Checkout, Params: []string{"dbapi_connection", "connection_record", "connection_proxy"}},
	event.Descriptor{Name: Checkin, Params: []string{"dbapi_connection", "connection_record"}},
)

func unwrapPool(candidate any) (any, bool) {
	p, ok := candidate.(PoolProvider)
	if !ok {
		return nil, false
	}
	t := p.EventPool()
	if t == nil {
		return nil, false
	}
	return t, true
}
