package event

import (
	"sync"
	"sync/atomic"
)

// listenerTable maps event names to listener slices. Writers serialize on
// mu and publish a fresh map; slices in a published map are never
// mutated, so a reader's snapshot stays stable for a whole fire.
type listenerTable struct {
	mu   sync.Mutex
	snap atomic.Pointer[map[string][]*Listener]
}

func (t *listenerTable) listeners(name string) []*Listener {
	m := t.snap.Load()
	if m == nil {
		return nil
	}
	return (*m)[name]
}

func (t *listenerTable) cloneLocked() map[string][]*Listener {
	next := make(map[string][]*Listener)
	if m := t.snap.Load(); m != nil {
		for k, v := range *m {
			next[k] = v
		}
	}
	return next
}

func (t *listenerTable) add(l *Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.cloneLocked()
	cur := next[l.event]
	list := make([]*Listener, len(cur), len(cur)+1)
	copy(list, cur)
	next[l.event] = append(list, l)
	t.snap.Store(&next)
	l.addHome(t)
}

func (t *listenerTable) remove(l *Listener) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.cloneLocked()
	cur := next[l.event]
	list := make([]*Listener, 0, len(cur))
	found := false
	for _, x := range cur {
		if x == l {
			found = true
			continue
		}
		list = append(list, x)
	}
	if !found {
		return false
	}
	if len(list) == 0 {
		delete(next, l.event)
	} else {
		next[l.event] = list
	}
	t.snap.Store(&next)
	return true
}

// all returns every listener in the table ordered by insertion index.
func (t *listenerTable) all() []*Listener {
	m := t.snap.Load()
	if m == nil {
		return nil
	}
	var out []*Listener
	for _, list := range *m {
		out = append(out, list...)
	}
	sortByIndex(out)
	return out
}

func sortByIndex(list []*Listener) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].index < list[j-1].index; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}

// Dispatcher is the listener table of one target instance. It refers to
// its class's table without owning it.
type Dispatcher struct {
	class *Class
	table listenerTable

	mu    sync.Mutex
	gates map[string]*onceGate
}

type onceGate struct {
	mu    sync.Mutex
	fired bool
}

// Class returns the class whose table this dispatcher consults at fire time.
func (d *Dispatcher) Class() *Class { return d.class }

func (d *Dispatcher) gate(name string) *onceGate {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gates == nil {
		d.gates = make(map[string]*onceGate)
	}
	g, ok := d.gates[name]
	if !ok {
		g = &onceGate{}
		d.gates[name] = g
	}
	return g
}

// Fired reports whether a once event has completed on this target.
func (d *Dispatcher) Fired(name string) bool {
	g := d.gate(name)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}

// Hooks holds a target's Dispatcher, created on first use. Embed it in a
// target type; the zero value is ready.
type Hooks struct {
	d atomic.Pointer[Dispatcher]
}

// EventHooks returns h, satisfying Target for embedding types.
func (h *Hooks) EventHooks() *Hooks { return h }

// Dispatcher returns the instance dispatcher or nil if none was created yet.
func (h *Hooks) Dispatcher() *Dispatcher { return h.d.Load() }

func (h *Hooks) ensure(cls *Class) *Dispatcher {
	if d := h.d.Load(); d != nil {
		return d
	}
	h.d.CompareAndSwap(nil, &Dispatcher{class: cls})
	return h.d.Load()
}

// Inherit copies the instance listeners of from onto to, preserving their
// order. Removing an inherited listener removes it from both targets.
// Once-event state is not carried over.
func Inherit(to, from Target) {
	src := from.EventHooks().Dispatcher()
	if src == nil {
		return
	}
	listeners := src.table.all()
	if len(listeners) == 0 {
		return
	}
	dst := to.EventHooks().ensure(to.EventClass())
	for _, l := range listeners {
		dst.table.add(l)
	}
}
