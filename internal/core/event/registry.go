package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// nextIndex orders listeners across every table in the process.
var nextIndex atomic.Uint64

// Listener is the handle of one registration.
type Listener struct {
	ID      uuid.UUID
	event   string
	index   uint64
	fn      Func
	retval  bool
	target  any
	catalog *Catalog

	mu    sync.Mutex
	homes []*listenerTable
}

// Event returns the event name the listener is attached to.
func (l *Listener) Event() string { return l.event }

// Index returns the insertion index.
func (l *Listener) Index() uint64 { return l.index }

// Target returns the canonical target, either a *Class or a Target.
func (l *Listener) Target() any { return l.target }

// Catalog returns the catalog the listener was registered through.
func (l *Listener) Catalog() *Catalog { return l.catalog }

// Retval reports whether the listener was registered with WithRetval.
func (l *Listener) Retval() bool { return l.retval }

func (l *Listener) addHome(t *listenerTable) {
	l.mu.Lock()
	l.homes = append(l.homes, t)
	l.mu.Unlock()
}

// Remove detaches the listener from every table holding it. Fires already
// in progress still call it; later fires do not.
func (l *Listener) Remove() error {
	l.mu.Lock()
	homes := l.homes
	l.homes = nil
	l.mu.Unlock()

	removed := false
	for _, t := range homes {
		if t.remove(l) {
			removed = true
		}
	}
	if !removed {
		return ErrListenerNotFound
	}
	return nil
}

type listenOptions struct {
	retval bool
	once   bool
}

// Option modifies how a listener is invoked.
type Option func(*listenOptions)

// WithRetval declares that the listener returns replacement arguments.
func WithRetval() Option {
	return func(o *listenOptions) { o.retval = true }
}

// Once runs the listener on the first firing only.
func Once() Option {
	return func(o *listenOptions) { o.once = true }
}

// Registry is the registration entry point over a fixed set of catalogs.
type Registry struct {
	catalogs []*Catalog
	log      zerolog.Logger
}

// NewRegistry creates a registry over catalogs. Lookup tries them in order.
func NewRegistry(baseLogger *zerolog.Logger, catalogs ...*Catalog) *Registry {
	return &Registry{
		catalogs: catalogs,
		log:      baseLogger.With().Str("component", "event_registry").Logger(),
	}
}

// Catalogs returns the catalogs known to the registry.
func (r *Registry) Catalogs() []*Catalog {
	out := make([]*Catalog, len(r.catalogs))
	copy(out, r.catalogs)
	return out
}

// Listen attaches fn to the named event on target, picking the catalog
// that binds target and declares name.
func (r *Registry) Listen(target any, name string, fn Func, opts ...Option) (*Listener, error) {
	bound := false
	for _, c := range r.catalogs {
		if !c.binding.accepts(c.Resolve(target)) {
			continue
		}
		bound = true
		if _, ok := c.Descriptor(name); ok {
			return r.ListenCatalog(c, target, name, fn, opts...)
		}
	}
	if !bound {
		return nil, &TargetError{Target: target}
	}
	return nil, &UnknownEventError{Event: name, Target: target}
}

// ListenCatalog attaches fn to the named event of an explicit catalog.
func (r *Registry) ListenCatalog(c *Catalog, target any, name string, fn Func, opts ...Option) (*Listener, error) {
	d, ok := c.Descriptor(name)
	if !ok {
		return nil, &UnknownEventError{Event: name, Target: target}
	}
	var o listenOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.retval && !d.RetvalEligible() {
		return nil, &ConfigurationError{Event: name, Message: "listeners of this event do not accept retval"}
	}

	resolved := c.Resolve(target)
	if !c.binding.accepts(resolved) {
		return nil, &TargetError{Catalog: c.name, Target: target}
	}

	if d.RetvalEligible() && !o.retval {
		fn = passthrough(d, fn)
	}
	if o.once {
		fn = onlyOnce(d, fn)
	}

	l := &Listener{
		ID:      uuid.New(),
		event:   name,
		index:   nextIndex.Add(1),
		fn:      fn,
		retval:  o.retval,
		target:  resolved,
		catalog: c,
	}
	switch t := resolved.(type) {
	case *Class:
		t.table.add(l)
	case Target:
		t.EventHooks().ensure(t.EventClass()).table.add(l)
	}

	r.log.Debug().
		Str("catalog", c.name).
		Str("event", name).
		Str("listener_id", l.ID.String()).
		Bool("retval", o.retval).
		Msg("Listener registered")
	return l, nil
}

// Remove detaches a listener.
func (r *Registry) Remove(l *Listener) error {
	if err := l.Remove(); err != nil {
		r.log.Warn().Str("event", l.event).Str("listener_id", l.ID.String()).Msg("Listener was not registered")
		return err
	}
	r.log.Debug().Str("event", l.event).Str("listener_id", l.ID.String()).Msg("Listener removed")
	return nil
}

// passthrough gives a plain listener of a retval event the uniform
// contract of returning the (unchanged) replacement tuple.
func passthrough(d *Descriptor, fn Func) Func {
	return func(ctx context.Context, args Args) (Args, error) {
		if _, err := fn(ctx, args); err != nil {
			return nil, err
		}
		return d.passthrough(args), nil
	}
}

func onlyOnce(d *Descriptor, fn Func) Func {
	var done atomic.Bool
	return func(ctx context.Context, args Args) (Args, error) {
		if !done.CompareAndSwap(false, true) {
			if d.RetvalEligible() {
				return d.passthrough(args), nil
			}
			return nil, nil
		}
		return fn(ctx, args)
	}
}
