// File: context.go
package linkd

import (
	"context"

	"github.com/rs/zerolog"
)

// Handler is implemented by an actor's message type. Handle computes the
// response for one message with exclusive access to the actor's state.
// The worker is the only caller, so Handle never runs concurrently with
// itself for the same state.
type Handler[S any, R any] interface {
	Handle(ctx Context, state *S) R
}

// Starter may be implemented by a state pointer; OnStart runs in the
// worker before the first message is handled.
type Starter interface {
	OnStart(ctx Context)
}

// Stopper may be implemented by a state pointer; OnStop runs in the worker
// after the last message is handled.
type Stopper interface {
	OnStop(ctx Context)
}

// Context is handed to Handle and the lifecycle hooks. It carries the values
// of Options.Context and is cancelled only when the worker exits.
type Context interface {
	context.Context
	// ID returns the actor's generated identifier.
	ID() string
	// Name returns the configured actor name, possibly empty.
	Name() string
	// Log returns the actor's logger.
	Log() *zerolog.Logger
	// IsCall reports whether the current message expects a reply.
	IsCall() bool
	// Registry returns the registry the actor was registered in, or nil.
	Registry() *Registry
}

// actorContext implements the Context interface.
type actorContext struct {
	context.Context
	id       string
	name     string
	log      *zerolog.Logger
	call     bool
	registry *Registry
}

func (c *actorContext) ID() string           { return c.id }
func (c *actorContext) Name() string         { return c.name }
func (c *actorContext) Log() *zerolog.Logger { return c.log }
func (c *actorContext) IsCall() bool         { return c.call }
func (c *actorContext) Registry() *Registry  { return c.registry }

var _ Context = (*actorContext)(nil)
