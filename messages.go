// File: messages.go
package linkd

// --- Lifecycle markers ---

// Started identifies the OnStart hook when reporting a panic to OnPanic.
type Started struct{}

// Stopped identifies the OnStop hook when reporting a panic to OnPanic.
type Stopped struct{}

// --- Mailbox item ---

// envelope is one mailbox item. A nil reply marks a cast.
type envelope[M any, R any] struct {
	msg   M
	reply chan R // buffered with capacity 1, written at most once
}

func (e envelope[M, R]) isCall() bool { return e.reply != nil }
