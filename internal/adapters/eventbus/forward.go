package eventbus

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"context"
	"fmt"
)

// Notification is the payload forwarded for one fired event.
type Notification struct {
	Catalog string
	Event   string
	Args    event.Args
}

// Topic is the bus topic events of name in catalog c are published on.
func Topic(c *event.Catalog, name string) string {
	return c.Name() + "." + name
}

// Forward registers listeners on target that publish each named event of c
// to bus. Subscribers see a copy of the arguments. A publish error aborts
// the triggering operation like any listener error.
func Forward(reg *event.Registry, bus ports.EventBus, c *event.Catalog, target any, names ...string) ([]*event.Listener, error) {
	var attached []*event.Listener
	for _, name := range names {
		if _, ok := c.Descriptor(name); !ok {
			detach(attached)
			return nil, &event.UnknownEventError{Event: name, Target: target}
		}
		topic := Topic(c, name)
		catalog, evt := c.Name(), name
		l, err := reg.ListenCatalog(c, target, name, func(ctx context.Context, args event.Args) (event.Args, error) {
			n := Notification{Catalog: catalog, Event: evt, Args: append(event.Args(nil), args...)}
			if err := bus.Publish(ctx, topic, n); err != nil {
				return nil, fmt.Errorf("publish %s: %w", topic, err)
			}
			return nil, nil
		})
		if err != nil {
			detach(attached)
			return nil, err
		}
		attached = append(attached, l)
	}
	return attached, nil
}

func detach(listeners []*event.Listener) {
	for _, l := range listeners {
		_ = l.Remove()
	}
}
