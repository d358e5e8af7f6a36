// Package command routes typed commands to their handlers through an explicit registry.
package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrHandlerNotFound is returned when no handler is registered for a command.
	ErrHandlerNotFound = errors.New("command: handler not registered")
	// ErrHandlerExists is returned when a command name is registered twice.
	ErrHandlerExists = errors.New("command: handler already registered")
	// ErrResultType is returned when a handler was registered with a different result type.
	ErrResultType = errors.New("command: unexpected result type")
)

// Command is implemented by every dispatchable message. CommandName is the registry key.
type Command interface {
	CommandName() string
}

// HandlerFunc handles a command of type C and produces R.
type HandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

type entry struct {
	handle func(ctx context.Context, cmd Command) (any, error)
}

// Dispatcher is a registry of command handlers keyed by command name.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]entry
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]entry)}
}

// Register binds handler to the command type C.
func Register[C Command, R any](d *Dispatcher, handler HandlerFunc[C, R]) error {
	var zero C
	name := zero.CommandName()

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerExists, name)
	}

	d.handlers[name] = entry{handle: func(ctx context.Context, cmd Command) (any, error) {
		typed, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("command: %s received %T", name, cmd)
		}
		return handler(ctx, typed)
	}}
	return nil
}

// MustRegister is Register for wiring code that treats duplicates as programmer error.
func MustRegister[C Command, R any](d *Dispatcher, handler HandlerFunc[C, R]) {
	if err := Register(d, handler); err != nil {
		panic(err)
	}
}

// Send dispatches cmd to its registered handler.
func Send[C Command, R any](ctx context.Context, d *Dispatcher, cmd C) (R, error) {
	var zero R

	d.mu.RLock()
	h, ok := d.handlers[cmd.CommandName()]
	d.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrHandlerNotFound, cmd.CommandName())
	}

	out, err := h.handle(ctx, cmd)
	if err != nil {
		return zero, err
	}
	result, ok := out.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", ErrResultType, cmd.CommandName(), out)
	}
	return result, nil
}
