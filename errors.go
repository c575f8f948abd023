// File: errors.go
package linkd

import "errors"

var (
	// ErrDoubleStartup is returned by Startup on an actor that is running or stopped.
	ErrDoubleStartup = errors.New("linkd: actor cannot be started twice")
	// ErrNotStarted is returned by Call, Cast and TryCast before Startup.
	ErrNotStarted = errors.New("linkd: actor must be started before sending messages")
	// ErrReplyChannelClosed is returned by Call when the worker exits before replying.
	ErrReplyChannelClosed = errors.New("linkd: reply channel closed")
	// ErrMailboxFull is returned by TryCast when the mailbox is at capacity.
	ErrMailboxFull = errors.New("linkd: mailbox full")
	// ErrRegistryMiss is returned by Fetch when nothing is registered under the key.
	ErrRegistryMiss = errors.New("linkd: no actor registered")

	// errMailboxClosed reports an enqueue against a stopped actor.
	errMailboxClosed = errors.New("linkd: mailbox closed")
)
