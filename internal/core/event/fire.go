package event

import (
	"context"
	"fmt"
)

// Fire runs the listeners of the named event on target and returns the
// arguments the triggering operation should proceed with.
//
// Listeners run on the calling goroutine, class-level groups first (root
// ancestor to target class) and then the instance group, each in
// registration order. The first listener error aborts the fire and is
// returned as-is along with the original arguments.
func (c *Catalog) Fire(ctx context.Context, target any, name string, args ...any) (Args, error) {
	d, ok := c.byName[name]
	if !ok {
		return args, &UnknownEventError{Event: name, Target: target}
	}
	if len(args) != len(d.Params) {
		return args, fmt.Errorf("%w: %s.%s takes %d, got %d", ErrArgCount, c.name, name, len(d.Params), len(args))
	}

	t, ok := c.binding.Resolve(target).(Target)
	if !ok {
		return args, nil
	}
	chain := collect(t, name)
	if len(chain) == 0 {
		return args, nil
	}

	if !d.Once {
		return run(ctx, d, chain, args)
	}
	g := t.EventHooks().ensure(t.EventClass()).gate(name)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fired {
		return args, nil
	}
	out, err := run(ctx, d, chain, args)
	if err == nil {
		g.fired = true
	}
	return out, err
}

// Listeners returns the listeners a fire of name on target would visit, in order.
func (c *Catalog) Listeners(target any, name string) []*Listener {
	t, ok := c.binding.Resolve(target).(Target)
	if !ok {
		return nil
	}
	return collect(t, name)
}

// collect snapshots the firing order. It allocates only when something
// is registered.
func collect(t Target, name string) []*Listener {
	cls := t.EventClass()
	n, depth := 0, 0
	for k := cls; k != nil; k = k.parent {
		n += len(k.table.listeners(name))
		depth++
	}
	var inst []*Listener
	if d := t.EventHooks().Dispatcher(); d != nil {
		inst = d.table.listeners(name)
	}
	n += len(inst)
	if n == 0 {
		return nil
	}

	out := make([]*Listener, 0, n)
	for i := depth - 1; i >= 0; i-- {
		k := cls
		for j := 0; j < i; j++ {
			k = k.parent
		}
		out = append(out, k.table.listeners(name)...)
	}
	return append(out, inst...)
}

func run(ctx context.Context, d *Descriptor, chain []*Listener, args Args) (Args, error) {
	if !d.RetvalEligible() {
		for _, l := range chain {
			if _, err := l.fn(ctx, args); err != nil {
				return args, err
			}
		}
		return args, nil
	}

	cur := args
	for _, l := range chain {
		out, err := l.fn(ctx, cur)
		if err != nil {
			return args, err
		}
		if len(out) != len(d.retvalIdx) {
			return args, &ListenerReturnError{Event: d.Name, Want: len(d.retvalIdx), Got: len(out)}
		}
		next := make(Args, len(cur))
		copy(next, cur)
		for i, idx := range d.retvalIdx {
			next[idx] = out[i]
		}
		cur = next
	}
	return cur, nil
}
