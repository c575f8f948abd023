// File: registry.go
package linkd

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Key identifies a registry slot by a Go type.
type Key struct {
	name string
	typ  reflect.Type
}

// KeyFor returns the key for type T.
func KeyFor[T any]() Key {
	return keyForType(reflect.TypeOf((*T)(nil)).Elem())
}

// KeyOf returns the key for the dynamic type of v.
func KeyOf(v any) Key {
	return keyForType(reflect.TypeOf(v))
}

func keyForType(t reflect.Type) Key {
	if t == nil {
		return Key{}
	}
	return Key{name: t.String(), typ: t}
}

// String returns the type name, e.g. "*linkd.Actor[...]".
func (k Key) String() string { return k.name }

// Registry maps type keys to shared actor handles so actors can be found
// without passing them around. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex // Protects the entries map
	entries map[Key]any
	log     zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Key]any),
		log:     log.Logger.With().Str("component", "registry").Logger(),
	}
}

// AddChild stores child under key, replacing any previous entry.
func (r *Registry) AddChild(key Key, child any) {
	r.mu.Lock()
	_, replaced := r.entries[key]
	r.entries[key] = child
	r.mu.Unlock()

	r.log.Debug().Stringer("key", key).Bool("replaced", replaced).Msg("child registered")
}

// GetChild returns the entry stored under key. A nil registry is empty.
func (r *Registry) GetChild(key Key) (any, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	child, ok := r.entries[key]
	return child, ok
}

// Keys returns the registered keys sorted by name.
func (r *Registry) Keys() []Key {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	keys := make([]Key, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].name < keys[j].name })
	return keys
}

// stoppable is satisfied by every *Actor instantiation.
type stoppable interface {
	ID() string
	Stop()
	Done() <-chan struct{}
}

// Shutdown stops every registered actor and waits up to timeout for their
// workers to exit. Entries stay registered. The returned error names an
// actor that was still running at the deadline.
func (r *Registry) Shutdown(timeout time.Duration) error {
	r.mu.RLock()
	actors := make(map[Key]stoppable, len(r.entries))
	for k, child := range r.entries {
		if s, ok := child.(stoppable); ok {
			actors[k] = s
		}
	}
	r.mu.RUnlock()

	r.log.Debug().Int("actors", len(actors)).Dur("timeout", timeout).Msg("registry shutdown initiated")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var g errgroup.Group
	for key, a := range actors {
		key, a := key, a
		a.Stop()
		g.Go(func() error {
			select {
			case <-a.Done():
				return nil
			case <-ctx.Done():
				return fmt.Errorf("actor %s (%s) did not stop within %v", a.ID(), key, timeout)
			}
		})
	}

	if err := g.Wait(); err != nil {
		r.log.Warn().Err(err).Msg("registry shutdown timed out")
		return err
	}
	r.log.Debug().Msg("registry shutdown complete")
	return nil
}

// Register stores a under the key of its own type and makes the registry
// visible to its handlers through Context.Registry.
func Register[S any, M Handler[S, R], R any](r *Registry, a *Actor[S, M, R]) {
	a.registry.Store(r)
	r.AddChild(KeyFor[*Actor[S, M, R]](), a)
}

// Fetch returns the actor registered for the instantiation Actor[S, M, R].
// A missing entry, or a nil registry, yields ErrRegistryMiss. An entry of any other type means
// something bypassed Register under this key, and Fetch panics.
func Fetch[S any, M Handler[S, R], R any](r *Registry) (*Actor[S, M, R], error) {
	key := KeyFor[*Actor[S, M, R]]()

	child, ok := r.GetChild(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegistryMiss, key)
	}

	a, ok := child.(*Actor[S, M, R])
	if !ok {
		panic(fmt.Sprintf("linkd: registry entry %s holds %T", key, child))
	}
	return a, nil
}

// MustFetch is like Fetch but panics on a missing entry.
func MustFetch[S any, M Handler[S, R], R any](r *Registry) *Actor[S, M, R] {
	a, err := Fetch[S, M, R](r)
	if err != nil {
		panic(err)
	}
	return a
}
