package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownCommand indicates no handler is registered under the name.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidArgument indicates a malformed command argument.
	ErrInvalidArgument = errors.New("invalid command argument")
)

// Handler executes one named command.
type Handler func(args ...string) error

type registration struct {
	handler Handler
	// single commands receive everything between the parentheses as one argument.
	single bool
}

// Dispatcher maps command names to engine operations.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]registration
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]registration)}
}

// Register binds handler to name, replacing any previous binding.
func (dispatcher *Dispatcher) Register(name string, handler Handler) {
	dispatcher.register(name, registration{handler: handler})
}

// RegisterSingle binds a handler whose textual form takes one free-form
// argument, such as a path that may contain commas.
func (dispatcher *Dispatcher) RegisterSingle(name string, handler Handler) {
	dispatcher.register(name, registration{handler: handler, single: true})
}

func (dispatcher *Dispatcher) register(name string, entry registration) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	dispatcher.handlers[normalize(name)] = entry
}

func (dispatcher *Dispatcher) lookup(name string) (registration, error) {
	dispatcher.mu.RLock()
	entry, ok := dispatcher.handlers[normalize(name)]
	dispatcher.mu.RUnlock()
	if !ok {
		return registration{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return entry, nil
}

// Dispatch runs the handler registered under name.
func (dispatcher *Dispatcher) Dispatch(name string, args ...string) error {
	entry, err := dispatcher.lookup(name)
	if err != nil {
		return err
	}
	return entry.handler(args...)
}

// DispatchString parses `name` or `name(arg, ...)` and dispatches it.
func (dispatcher *Dispatcher) DispatchString(value string) error {
	entry, args, err := dispatcher.resolve(value)
	if err != nil {
		return err
	}
	return entry.handler(args...)
}

// Validate reports whether value parses and names a registered command.
func (dispatcher *Dispatcher) Validate(value string) error {
	_, _, err := dispatcher.resolve(value)
	return err
}

func (dispatcher *Dispatcher) resolve(value string) (registration, []string, error) {
	name, inner, err := split(value)
	if err != nil {
		return registration{}, nil, err
	}
	entry, err := dispatcher.lookup(name)
	if err != nil {
		return registration{}, nil, err
	}
	if entry.single {
		if inner == "" {
			return entry, nil, nil
		}
		return entry, []string{inner}, nil
	}
	return entry, splitArgs(inner), nil
}

// Names lists registered commands in sorted order.
func (dispatcher *Dispatcher) Names() []string {
	dispatcher.mu.RLock()
	defer dispatcher.mu.RUnlock()
	names := make([]string, 0, len(dispatcher.handlers))
	for name := range dispatcher.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse splits `set-playback-speed(2)` into its name and comma-separated
// arguments.
func Parse(value string) (string, []string, error) {
	name, inner, err := split(value)
	if err != nil {
		return "", nil, err
	}
	return name, splitArgs(inner), nil
}

func split(value string) (name, inner string, err error) {
	value = strings.TrimSpace(value)
	open := strings.IndexByte(value, '(')
	if open < 0 {
		if value == "" {
			return "", "", fmt.Errorf("%w: empty command", ErrInvalidArgument)
		}
		return normalize(value), "", nil
	}
	if !strings.HasSuffix(value, ")") {
		return "", "", fmt.Errorf("%w: unbalanced parentheses in %q", ErrInvalidArgument, value)
	}

	name = normalize(value[:open])
	if name == "" {
		return "", "", fmt.Errorf("%w: missing command name in %q", ErrInvalidArgument, value)
	}
	return name, strings.TrimSpace(value[open+1 : len(value)-1]), nil
}

func splitArgs(inner string) []string {
	if inner == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	args := make([]string, len(parts))
	for index, part := range parts {
		args[index] = strings.TrimSpace(part)
	}
	return args
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
