package event

import (
	"context"
	"fmt"
)

// Args is the positional argument list of one event firing, ordered as
// the descriptor's Params.
type Args []any

// Func is a listener. For retval events the returned Args replace the
// descriptor's Retval parameters; for all other events they are ignored.
type Func func(ctx context.Context, args Args) (Args, error)

// Descriptor declares one named event point.
type Descriptor struct {
	Name   string
	Params []string
	// Retval names the parameters a retval listener returns, in order.
	// Empty means listeners may not register with WithRetval.
	Retval []string
	// Once limits the event to a single successful firing per target.
	Once bool

	retvalIdx []int
}

// RetvalEligible reports whether listeners may replace arguments.
func (d *Descriptor) RetvalEligible() bool { return len(d.retvalIdx) > 0 }

// passthrough extracts the Retval subset from args.
func (d *Descriptor) passthrough(args Args) Args {
	out := make(Args, len(d.retvalIdx))
	for i, idx := range d.retvalIdx {
		out[i] = args[idx]
	}
	return out
}

// Catalog is a named family of descriptors bound to one target hierarchy.
// It is immutable once built.
type Catalog struct {
	name    string
	binding Binding
	order   []*Descriptor
	byName  map[string]*Descriptor
}

// NewCatalog builds a catalog. It panics on malformed descriptors since
// catalogs are declared once at package initialization.
func NewCatalog(name string, binding Binding, descriptors ...Descriptor) *Catalog {
	c := &Catalog{
		name:    name,
		binding: binding,
		byName:  make(map[string]*Descriptor, len(descriptors)),
	}
	for i := range descriptors {
		d := descriptors[i]
		if _, dup := c.byName[d.Name]; dup {
			panic(fmt.Sprintf("event: catalog %s declares %q twice", name, d.Name))
		}
		for _, rv := range d.Retval {
			idx := indexOf(d.Params, rv)
			if idx < 0 {
				panic(fmt.Sprintf("event: %s.%s retval %q is not a parameter", name, d.Name, rv))
			}
			d.retvalIdx = append(d.retvalIdx, idx)
		}
		c.byName[d.Name] = &d
		c.order = append(c.order, &d)
	}
	return c
}

// Name returns the catalog name.
func (c *Catalog) Name() string { return c.name }

// Descriptor looks up an event by name.
func (c *Catalog) Descriptor(name string) (*Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Descriptors returns the events in declaration order.
func (c *Catalog) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(c.order))
	copy(out, c.order)
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
