// File: process.go
package linkd

import (
	"context"
	"runtime/debug"
)

// process is the worker side of an actor. It exclusively owns the state.
type process[S any, M Handler[S, R], R any] struct {
	actor *Actor[S, M, R]
	state S

	ctx context.Context
}

func newProcess[S any, M Handler[S, R], R any](a *Actor[S, M, R], state S) *process[S, M, R] {
	return &process[S, M, R]{
		actor: a,
		state: state,
	}
}

// run is the main loop for the worker.
func (p *process[S, M, R]) run() {
	a := p.actor

	// Handlers keep a live context while the mailbox drains after the
	// parent is cancelled; it is cancelled when the worker exits.
	ctx, cancel := context.WithCancel(context.WithoutCancel(a.opts.Context))
	p.ctx = ctx
	unwatch := context.AfterFunc(a.opts.Context, a.Stop)

	defer func() {
		unwatch()
		cancel()
		a.status.Store(int32(StatusStopped))
		close(a.done)
		a.log.Debug().Msg("actor stopped")
	}()

	a.log.Debug().Int("mailbox_size", cap(a.mailbox)).Msg("actor started")

	if starter, ok := any(&p.state).(Starter); ok {
		if !p.safely(Started{}, func() { starter.OnStart(p.newContext(false)) }) {
			return
		}
	}

	for {
		select {
		case env := <-a.mailbox:
			if !p.invoke(env) {
				return
			}
		case <-a.stopCh:
			// Handle whatever was enqueued before the mailbox closed.
			if !p.drain() {
				return
			}
			if stopper, ok := any(&p.state).(Stopper); ok {
				p.safely(Stopped{}, func() { stopper.OnStop(p.newContext(false)) })
			}
			return
		}
	}
}

func (p *process[S, M, R]) drain() bool {
	for {
		select {
		case env := <-p.actor.mailbox:
			if !p.invoke(env) {
				return false
			}
		default:
			return true
		}
	}
}

// invoke handles one envelope. It returns false if the handler panicked.
func (p *process[S, M, R]) invoke(env envelope[M, R]) bool {
	var res R
	ok := p.safely(env.msg, func() {
		res = env.msg.Handle(p.newContext(env.isCall()), &p.state)
	})
	if !ok {
		return false
	}

	if env.isCall() {
		// The reply channel has room for exactly this send; a caller
		// that gave up simply never reads it.
		select {
		case env.reply <- res:
		default:
		}
	}
	return true
}

// safely runs fn, converting a panic into a stopped actor.
func (p *process[S, M, R]) safely(msg any, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.actor.opts.OnPanic(r, debug.Stack(), msg)
			p.actor.Stop()
			ok = false
		}
	}()
	fn()
	return true
}

func (p *process[S, M, R]) newContext(call bool) *actorContext {
	a := p.actor
	return &actorContext{
		Context:  p.ctx,
		id:       a.id,
		name:     a.opts.Name,
		log:      &a.log,
		call:     call,
		registry: a.registry.Load(),
	}
}
