package event

// Wrapper lets a higher-level object stand in for the target it wraps.
type Wrapper struct {
	// Class is the wrapper's class; subclasses match too.
	Class *Class
	// Wrapped is the class a class-level registration on Class resolves to.
	Wrapped *Class
	// Unwrap returns the object an instance currently wraps. It is called
	// on every resolution so a replaced inner object is always observed.
	Unwrap func(candidate any) (any, bool)
}

// Binding maps listen and fire candidates to canonical targets.
type Binding struct {
	Primary  *Class
	Wrappers []Wrapper
}

// Resolve returns the canonical target for candidate. Unrecognized
// candidates come back unchanged.
func (b Binding) Resolve(candidate any) any {
	if cls, ok := candidate.(*Class); ok {
		if cls.IsA(b.Primary) {
			return cls
		}
		for _, w := range b.Wrappers {
			if cls.IsA(w.Class) {
				return w.Wrapped
			}
		}
		return cls
	}
	if t, ok := candidate.(Target); ok && t.EventClass().IsA(b.Primary) {
		return t
	}
	for _, w := range b.Wrappers {
		if w.Unwrap == nil {
			continue
		}
		if inner, ok := w.Unwrap(candidate); ok {
			return inner
		}
	}
	return candidate
}

// accepts reports whether a resolved target belongs to the binding's hierarchy.
func (b Binding) accepts(resolved any) bool {
	switch t := resolved.(type) {
	case *Class:
		return t.IsA(b.Primary)
	case Target:
		return t.EventClass().IsA(b.Primary)
	}
	return false
}

// Resolve applies the catalog's binding to candidate.
func (c *Catalog) Resolve(candidate any) any {
	return c.binding.Resolve(candidate)
}
