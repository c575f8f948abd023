// File: options.go
package linkd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMailboxSize is the mailbox capacity used when none is configured.
const DefaultMailboxSize = 100

// OnPanic is called from the worker when a handler or lifecycle hook panics.
// msg is the message being handled, or Started{} / Stopped{} for hooks.
type OnPanic func(recovered any, stack []byte, msg any)

// Options configures an actor. Name and MailboxSize may be loaded from TOML.
type Options struct {
	Name        string `toml:"name"`
	MailboxSize int    `toml:"mailbox_size"`

	// Context bounds the actor's lifetime: cancelling it stops the actor.
	Context context.Context `toml:"-"`
	Logger  *zerolog.Logger `toml:"-"`
	OnPanic OnPanic         `toml:"-"`
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{MailboxSize: DefaultMailboxSize}
}

// Validate reports option values that cannot be defaulted.
func (o Options) Validate() error {
	if o.MailboxSize < 0 {
		return fmt.Errorf("mailbox_size must not be negative, got %d", o.MailboxSize)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.MailboxSize <= 0 {
		o.MailboxSize = DefaultMailboxSize
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Logger == nil {
		l := log.Logger
		o.Logger = &l
	}
	if o.OnPanic == nil {
		logger := o.Logger
		o.OnPanic = func(recovered any, stack []byte, msg any) {
			logger.Error().
				Interface("recovered", recovered).
				Str("msg", fmt.Sprintf("%T", msg)).
				Bytes("stack", stack).
				Msg("actor panicked")
		}
	}
	return o
}

// LoadOptions reads actor options from a TOML file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	opts, err := DecodeOptions(data)
	if err != nil {
		return Options{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return opts, nil
}

// DecodeOptions parses TOML options. Unknown keys are rejected.
func DecodeOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	md, err := toml.Decode(string(data), &opts)
	if err != nil {
		return Options{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Options{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if opts.MailboxSize == 0 {
		opts.MailboxSize = DefaultMailboxSize
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
