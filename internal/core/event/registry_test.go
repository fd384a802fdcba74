package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListen_RetvalOnIneligibleEvent(t *testing.T) {
	f := newFixture(t)
	w := f.newWidget()

	l, err := f.registry.Listen(w, "ping", func(ctx context.Context, args Args) (Args, error) {
		return args, nil
	}, WithRetval())

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "ping", cfgErr.Event)
	assert.Nil(t, l)
	assert.Nil(t, w.Dispatcher(), "a rejected registration must not create a table")
	assert.Empty(t, f.catalog.Listeners(w, "ping"))
}

func TestListen_UnknownEvent(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.Listen(f.newWidget(), "on_nothing", func(ctx context.Context, args Args) (Args, error) {
		return nil, nil
	})

	var unknown *UnknownEventError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "on_nothing", unknown.Event)
}

func TestListen_UnboundTarget(t *testing.T) {
	f := newFixture(t)
	other := &widget{class: NewClass("Stranger", nil)}

	_, err := f.registry.Listen(other, "ping", func(ctx context.Context, args Args) (Args, error) {
		return nil, nil
	})

	var targetErr *TargetError
	require.ErrorAs(t, err, &targetErr)

	_, err = f.registry.ListenCatalog(f.catalog, other, "ping", func(ctx context.Context, args Args) (Args, error) {
		return nil, nil
	})
	require.ErrorAs(t, err, &targetErr)
	assert.Equal(t, "test", targetErr.Catalog)
}

func TestListen_WrapperClassResolvesToWrappedClass(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}

	l := mustListen(t, f.registry, f.wrapper, "ping", rec.listener("class-via-wrapper"))
	assert.Same(t, f.base, l.Target())

	_, err := f.catalog.Fire(context.Background(), f.newWidget(), "ping", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"class-via-wrapper"}, rec.calls())
}

func TestListen_AssignsIncreasingIndexes(t *testing.T) {
	f := newFixture(t)
	w := f.newWidget()
	noop := func(ctx context.Context, args Args) (Args, error) { return nil, nil }

	a := mustListen(t, f.registry, w, "ping", noop)
	b := mustListen(t, f.registry, f.base, "first", noop)
	c := mustListen(t, f.registry, w, "rewrite", noop)

	assert.Less(t, a.Index(), b.Index())
	assert.Less(t, b.Index(), c.Index())
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, c.Retval())
	assert.Same(t, f.catalog, c.Catalog())
}

func TestListen_OnceOption(t *testing.T) {
	f := newFixture(t)
	w := f.newWidget()
	calls := 0
	mustListen(t, f.registry, w, "rewrite", func(ctx context.Context, args Args) (Args, error) {
		calls++
		return Args{"ONCE", nil}, nil
	}, WithRetval(), Once())

	out, err := f.catalog.Fire(context.Background(), w, "rewrite", "conn", "SELECT 1", nil)
	require.NoError(t, err)
	assert.Equal(t, "ONCE", out[1])

	out, err = f.catalog.Fire(context.Background(), w, "rewrite", "conn", "SELECT 1", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out[1])
	assert.Equal(t, 1, calls)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	w := f.newWidget()
	rec := &recorder{}

	l := mustListen(t, f.registry, w, "ping", rec.listener("gone"))
	require.NoError(t, f.registry.Remove(l))
	assert.ErrorIs(t, f.registry.Remove(l), ErrListenerNotFound)

	_, err := f.catalog.Fire(context.Background(), w, "ping", 1, 2)
	require.NoError(t, err)
	assert.Empty(t, rec.calls())
}

func TestInherit(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	old, fresh := f.newWidget(), f.newWidget()

	shared := mustListen(t, f.registry, old, "ping", rec.listener("a"))
	mustListen(t, f.registry, old, "first", rec.listener("b"))
	Inherit(fresh, old)

	_, err := f.catalog.Fire(context.Background(), fresh, "ping", 1, 2)
	require.NoError(t, err)
	_, err = f.catalog.Fire(context.Background(), fresh, "first", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rec.calls())

	require.NoError(t, shared.Remove())
	assert.Empty(t, f.catalog.Listeners(old, "ping"))
	assert.Empty(t, f.catalog.Listeners(fresh, "ping"))
}

func TestNewCatalog_RejectsMalformedDescriptors(t *testing.T) {
	cls := NewClass("X", nil)
	assert.Panics(t, func() {
		NewCatalog("bad", Binding{Primary: cls},
			Descriptor{Name: "a", Params: []string{"x"}, Retval: []string{"y"}})
	})
	assert.Panics(t, func() {
		NewCatalog("dup", Binding{Primary: cls},
			Descriptor{Name: "a"}, Descriptor{Name: "a"})
	})
}

func TestCatalog_Descriptors(t *testing.T) {
	f := newFixture(t)

	names := []string{}
	for _, d := range f.catalog.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"ping", "rewrite", "first"}, names)

	d, ok := f.catalog.Descriptor("rewrite")
	require.True(t, ok)
	assert.True(t, d.RetvalEligible())
	assert.Equal(t, "test", f.catalog.Name())
}
