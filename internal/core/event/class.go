// Package event is the dispatch core: named event points on targets,
// class-level templates, listener chaining and removal safe under
// concurrent firing.
package event

// Class is the identity of a target type. Listeners registered on a
// Class apply to every instance of it and of its subclasses, including
// instances created after registration.
type Class struct {
	name   string
	parent *Class
	table  listenerTable
}

// NewClass creates a class. parent may be nil.
func NewClass(name string, parent *Class) *Class {
	return &Class{name: name, parent: parent}
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Parent returns the parent class or nil.
func (c *Class) Parent() *Class { return c.parent }

// IsA reports whether c is other or a subclass of it.
func (c *Class) IsA(other *Class) bool {
	for k := c; k != nil; k = k.parent {
		if k == other {
			return true
		}
	}
	return false
}

func (c *Class) String() string { return c.name }

// lineage returns the chain from the root ancestor down to c.
func (c *Class) lineage() []*Class {
	var chain []*Class
	for k := c; k != nil; k = k.parent {
		chain = append(chain, k)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Target is an object events can be attached to and fired on.
// Implementations embed Hooks and report their Class.
type Target interface {
	EventClass() *Class
	EventHooks() *Hooks
}
