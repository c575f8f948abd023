// File: actor.go
package linkd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Status is an actor's lifecycle position.
type Status int32

const (
	// StatusConstructed means the mailbox is allocated and no worker runs yet.
	StatusConstructed Status = iota
	// StatusRunning means the worker is consuming the mailbox.
	StatusRunning
	// StatusStopped means the worker has exited, or the actor was stopped before Startup.
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusConstructed:
		return "constructed"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Actor owns a bounded mailbox and, once started, a single worker goroutine
// holding state of type S. Messages of type M are handled one at a time in
// the order they were enqueued and produce responses of type R.
//
// Call, Cast, TryCast and Stop are safe for concurrent use.
type Actor[S any, M Handler[S, R], R any] struct {
	id   string
	opts Options
	log  zerolog.Logger

	mailbox chan envelope[M, R]
	stopCh  chan struct{} // closed once no more items may be enqueued
	done    chan struct{} // closed after the worker exits

	status   atomic.Int32
	stopOnce sync.Once
	registry atomic.Pointer[Registry]
}

// New creates an actor with DefaultOptions. The worker is not running until Startup.
//
// A started actor runs until Stop is called or Options.Context is cancelled.
// Dropping the last reference does not stop it, so callers must do one of the
// two or the worker goroutine leaks.
func New[S any, M Handler[S, R], R any]() *Actor[S, M, R] {
	return NewWithOptions[S, M, R](DefaultOptions())
}

// NewWithOptions creates an actor with the given options. The same Stop or
// cancel obligation as New applies.
func NewWithOptions[S any, M Handler[S, R], R any](opts Options) *Actor[S, M, R] {
	opts = opts.withDefaults()
	id := "actor-" + gonanoid.Must(8)

	return &Actor[S, M, R]{
		id:      id,
		opts:    opts,
		log:     opts.Logger.With().Str("actor", id).Str("name", opts.Name).Logger(),
		mailbox: make(chan envelope[M, R], opts.MailboxSize),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ID returns the actor's generated identifier.
func (a *Actor[S, M, R]) ID() string { return a.id }

// Status returns the current lifecycle status.
func (a *Actor[S, M, R]) Status() Status { return Status(a.status.Load()) }

// Done is closed when the worker exits.
func (a *Actor[S, M, R]) Done() <-chan struct{} { return a.done }

// Startup moves state into a new worker goroutine and starts consuming the
// mailbox. It fails with ErrDoubleStartup unless the actor is freshly constructed.
func (a *Actor[S, M, R]) Startup(state S) error {
	if !a.status.CompareAndSwap(int32(StatusConstructed), int32(StatusRunning)) {
		return fmt.Errorf("%w: %s is %s", ErrDoubleStartup, a.id, a.Status())
	}

	p := newProcess(a, state)
	go p.run()
	return nil
}

// Stop closes the mailbox to new items. Items already enqueued are still
// handled before the worker exits; wait on Done to observe that. Stop does
// not block and may be called from a handler. Repeated calls are no-ops.
func (a *Actor[S, M, R]) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
		if a.status.CompareAndSwap(int32(StatusConstructed), int32(StatusStopped)) {
			close(a.done)
		}
		a.log.Debug().Msg("actor stopping")
	})
}

// Call enqueues msg and waits for its response. Enqueueing blocks while the
// mailbox is full. There is no built-in timeout; ctx bounds both waits.
func (a *Actor[S, M, R]) Call(ctx context.Context, msg M) (R, error) {
	var zero R

	switch a.Status() {
	case StatusConstructed:
		return zero, fmt.Errorf("call: %w", ErrNotStarted)
	case StatusStopped:
		return zero, fmt.Errorf("call: %w", ErrReplyChannelClosed)
	}

	reply := make(chan R, 1)
	if err := a.enqueue(ctx, envelope[M, R]{msg: msg, reply: reply}); err != nil {
		if errors.Is(err, errMailboxClosed) {
			return zero, fmt.Errorf("call: %w", ErrReplyChannelClosed)
		}
		return zero, fmt.Errorf("call: %w", err)
	}

	select {
	case res := <-reply:
		return res, nil
	case <-a.done:
		// The reply may have been written just before the worker exited.
		select {
		case res := <-reply:
			return res, nil
		default:
			return zero, fmt.Errorf("call: %w", ErrReplyChannelClosed)
		}
	case <-ctx.Done():
		return zero, fmt.Errorf("call abandoned: %w", ctx.Err())
	}
}

// Cast enqueues msg without waiting for it to be handled. It blocks only
// while the mailbox is full. A cast to a stopped actor is dropped.
func (a *Actor[S, M, R]) Cast(ctx context.Context, msg M) error {
	if a.Status() == StatusConstructed {
		return fmt.Errorf("cast: %w", ErrNotStarted)
	}

	err := a.enqueue(ctx, envelope[M, R]{msg: msg})
	if errors.Is(err, errMailboxClosed) {
		a.log.Debug().Str("msg", fmt.Sprintf("%T", msg)).Msg("actor stopped, cast dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("cast: %w", err)
	}
	return nil
}

// TryCast is a non-blocking Cast; it returns ErrMailboxFull instead of waiting.
func (a *Actor[S, M, R]) TryCast(msg M) error {
	if a.Status() == StatusConstructed {
		return fmt.Errorf("cast: %w", ErrNotStarted)
	}

	select {
	case <-a.stopCh:
		a.log.Debug().Str("msg", fmt.Sprintf("%T", msg)).Msg("actor stopped, cast dropped")
		return nil
	default:
	}

	select {
	case a.mailbox <- envelope[M, R]{msg: msg}:
		return nil
	default:
		return fmt.Errorf("cast: %w", ErrMailboxFull)
	}
}

func (a *Actor[S, M, R]) enqueue(ctx context.Context, env envelope[M, R]) error {
	// Prefer the closed signal over a free mailbox slot.
	select {
	case <-a.stopCh:
		return errMailboxClosed
	default:
	}

	select {
	case a.mailbox <- env:
		return nil
	case <-a.stopCh:
		return errMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
