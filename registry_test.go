// File: registry_test.go
package linkd

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestRegistry_NewRegistry(t *testing.T) {
	registry := NewRegistry()
	assert.NotNil(t, registry)
	assert.NotNil(t, registry.entries)
	assert.Empty(t, registry.Keys())
}

func TestRegistry_AddChild_GetChild(t *testing.T) {
	registry := NewRegistry()
	a := New[myState, message, response]()
	key := KeyFor[*testActor]()

	registry.AddChild(key, a)

	child, ok := registry.GetChild(key)
	require.True(t, ok)
	assert.Same(t, a, child)
}

func TestRegistry_GetChild_Miss(t *testing.T) {
	registry := NewRegistry()
	registry.AddChild(KeyFor[*testActor](), New[myState, message, response]())

	child, ok := registry.GetChild(KeyFor[*counterActor]())
	assert.False(t, ok)
	assert.Nil(t, child)
}

func TestRegistry_AddChild_Overwrites(t *testing.T) {
	registry := NewRegistry()
	first := New[myState, message, response]()
	second := New[myState, message, response]()

	Register(registry, first)
	Register(registry, second)

	got, err := Fetch[myState, message, response](registry)
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Len(t, registry.Keys(), 1)
}

func TestKey_Identity(t *testing.T) {
	a := New[myState, message, response]()

	assert.Equal(t, KeyFor[*testActor](), KeyOf(a))
	assert.NotEqual(t, KeyFor[*testActor](), KeyFor[*counterActor]())
	assert.NotEqual(t, KeyFor[*testActor](), KeyFor[testActor]())
	assert.True(t, strings.HasPrefix(KeyOf(a).String(), "*linkd.Actor["), KeyOf(a).String())
	assert.Equal(t, Key{}, KeyOf(nil))
}

func TestRegistry_Fetch_Miss(t *testing.T) {
	registry := NewRegistry()

	a, err := Fetch[myState, message, response](registry)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, ErrRegistryMiss)
	assert.Contains(t, err.Error(), KeyFor[*testActor]().String())

	assert.Panics(t, func() { MustFetch[myState, message, response](registry) })
}

func TestRegistry_Fetch_TypeMismatch(t *testing.T) {
	registry := NewRegistry()
	registry.AddChild(KeyFor[*testActor](), "not an actor")

	assert.PanicsWithValue(t,
		fmt.Sprintf("linkd: registry entry %s holds string", KeyFor[*testActor]()),
		func() { _, _ = Fetch[myState, message, response](registry) },
	)
}

func TestRegistry_Keys_Sorted(t *testing.T) {
	registry := NewRegistry()
	registry.AddChild(KeyFor[string](), "b")
	registry.AddChild(KeyFor[int](), 1)
	registry.AddChild(KeyFor[bool](), true)

	keys := registry.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, "bool", keys[0].String())
	assert.Equal(t, "int", keys[1].String())
	assert.Equal(t, "string", keys[2].String())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	key := KeyFor[*testActor]()

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				registry.AddChild(key, New[myState, message, response]())
			}
			return nil
		})
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				if child, ok := registry.GetChild(key); ok {
					if _, ok := child.(*testActor); !ok {
						return fmt.Errorf("unexpected child %T", child)
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	_, err := Fetch[myState, message, response](registry)
	assert.NoError(t, err)
}

// relay discovers the counter through the registry instead of holding it.
type (
	relayState struct{}
	relayMsg   struct{ n int }
)

func (m relayMsg) Handle(ctx Context, _ *relayState) int {
	c, err := Fetch[counter, counterMsg, int](ctx.Registry())
	if err != nil {
		ctx.Log().Warn().Err(err).Msg("counter not registered")
		return -1
	}
	res, err := c.Call(ctx, add(m.n))
	if err != nil {
		return -1
	}
	return res
}

func TestRegistry_Discovery(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	relay := New[relayState, relayMsg, int]()
	require.NoError(t, relay.Startup(relayState{}))
	defer relay.Stop()
	Register(registry, relay)

	res, err := relay.Call(ctx, relayMsg{n: 5})
	require.NoError(t, err)
	assert.Equal(t, -1, res, "counter is not registered yet")

	Register(registry, newCounter(t, Options{}, counter{}))

	res, err = relay.Call(ctx, relayMsg{n: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, res)

	res, err = MustFetch[relayState, relayMsg, int](registry).Call(ctx, relayMsg{n: 2})
	require.NoError(t, err)
	assert.Equal(t, 7, res)
}

func TestRegistry_Shutdown_Graceful(t *testing.T) {
	registry := NewRegistry()

	a := New[myState, message, response]()
	require.NoError(t, a.Startup(myState{}))
	Register(registry, a)

	stopped := make(chan []int, 1)
	c := newCounter(t, Options{}, counter{stopped: stopped})
	Register(registry, c)
	require.NoError(t, c.Cast(context.Background(), add(3)))

	// Non-actor entries are left alone.
	registry.AddChild(KeyFor[string](), "config")

	require.NoError(t, registry.Shutdown(time.Second))

	waitClosed(t, a.Done(), 100*time.Millisecond, "Actor did not stop")
	waitClosed(t, c.Done(), 100*time.Millisecond, "Counter did not stop")
	assert.Equal(t, []int{3}, <-stopped)

	// No un-registration: entries survive shutdown.
	assert.Len(t, registry.Keys(), 3)
	got, err := Fetch[myState, message, response](registry)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, got.Status())
}

func TestRegistry_Shutdown_Timeout(t *testing.T) {
	registry := NewRegistry()
	c := newCounter(t, Options{}, counter{})
	Register(registry, c)

	g := block(t, c)

	start := time.Now()
	err := registry.Shutdown(100 * time.Millisecond)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "did not stop within")
	assert.Contains(t, err.Error(), c.ID())
	assert.Less(t, time.Since(start), time.Second)

	close(g.release)
	waitClosed(t, c.Done(), 500*time.Millisecond, "Counter did not stop after release")
}

func TestRegistry_NilRegistry(t *testing.T) {
	var registry *Registry

	assert.NotPanics(t, func() {
		child, ok := registry.GetChild(KeyFor[*counterActor]())
		assert.False(t, ok)
		assert.Nil(t, child)
		assert.Empty(t, registry.Keys())
	})

	a, err := Fetch[counter, counterMsg, int](registry)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, ErrRegistryMiss)
}

func TestRegistry_Discovery_Unregistered(t *testing.T) {
	ctx := context.Background()

	// Never registered, so the handler sees a nil Context.Registry.
	relay := New[relayState, relayMsg, int]()
	require.NoError(t, relay.Startup(relayState{}))
	defer relay.Stop()

	res, err := relay.Call(ctx, relayMsg{n: 5})
	require.NoError(t, err)
	assert.Equal(t, -1, res)
	assert.Equal(t, StatusRunning, relay.Status())

	res, err = relay.Call(ctx, relayMsg{n: 1})
	require.NoError(t, err)
	assert.Equal(t, -1, res)
}
