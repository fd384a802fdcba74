package event

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// --- Test targets ---

type widget struct {
	Hooks
	class *Class
}

func (w *widget) EventClass() *Class { return w.class }

type wrapper struct {
	Hooks
	class *Class

	mu    sync.Mutex
	inner *widget
}

func (w *wrapper) EventClass() *Class { return w.class }

func (w *wrapper) Inner() *widget {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inner
}

func (w *wrapper) swap(inner *widget) {
	w.mu.Lock()
	w.inner = inner
	w.mu.Unlock()
}

// fixture builds fresh classes per test so class tables never leak between tests.
type fixture struct {
	base     *Class
	widget   *Class
	wrapper  *Class
	catalog  *Catalog
	registry *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		base:    NewClass("Base", nil),
		wrapper: NewClass("Wrapper", nil),
	}
	f.widget = NewClass("Widget", f.base)
	f.catalog = NewCatalog("test",
		Binding{
			Primary: f.base,
			Wrappers: []Wrapper{{
				Class:   f.wrapper,
				Wrapped: f.base,
				Unwrap: func(candidate any) (any, bool) {
					w, ok := candidate.(*wrapper)
					if !ok {
						return nil, false
					}
					inner := w.Inner()
					if inner == nil {
						return nil, false
					}
					return inner, true
				},
			}},
		},
		Descriptor{Name: "ping", Params: []string{"a", "b"}},
		Descriptor{Name: "rewrite", Params: []string{"conn", "stmt", "params"}, Retval: []string{"stmt", "params"}},
		Descriptor{Name: "first", Params: []string{"a"}, Once: true},
	)
	nopLogger := zerolog.Nop()
	f.registry = NewRegistry(&nopLogger, f.catalog)
	return f
}

func (f *fixture) newWidget() *widget { return &widget{class: f.widget} }

func (f *fixture) newWrapper(inner *widget) *wrapper {
	return &wrapper{class: f.wrapper, inner: inner}
}

// recorder collects listener tags in call order.
type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) listener(tag string) Func {
	return func(ctx context.Context, args Args) (Args, error) {
		r.mu.Lock()
		r.seen = append(r.seen, tag)
		r.mu.Unlock()
		return nil, nil
	}
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.seen))
	copy(out, r.seen)
	return out
}
