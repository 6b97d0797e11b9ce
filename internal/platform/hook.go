package platform

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"

	"mousereel/internal/core/macro"
)

// ErrUnknownKey indicates a key name missing from the hook's keycode table.
var ErrUnknownKey = errors.New("unknown key")

// InterruptKey is the hard-stop key polled by playback.
const InterruptKey = "esc"

// gohook reports the primary buttons as 1 (left) and 2 (right).
const (
	hookButtonLeft  = 1
	hookButtonRight = 2
)

var modifierAliases = map[string][]string{
	"ctrl":  {"ctrl", "rctrl"},
	"shift": {"shift", "rshift"},
	"alt":   {"alt", "ralt"},
	"cmd":   {"cmd", "rcmd"},
}

// Combo is a key plus the modifiers that must be held with it.
type Combo struct {
	Name      string
	Key       uint16
	Modifiers [][]uint16
}

type binding struct {
	combo   Combo
	command string
}

// Interrupter reports whether the hard-stop key is held.
type Interrupter interface {
	Interrupted() bool
}

// Logger is the logging surface used by platform adapters.
type Logger interface {
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

// Hook listens to global keyboard and mouse events. It fires bound commands
// on key-press edges and tracks which keys and buttons are held.
type Hook struct {
	logger    Logger
	interrupt uint16

	mu        sync.Mutex
	bindings  []binding
	keys      map[uint16]bool
	buttons   [2]bool
	onCommand func(command string)
	running   bool
	stop      chan struct{}
	done      chan struct{}
}

// NewHook creates an idle hook. Call Start to begin listening.
func NewHook(logger Logger) *Hook {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Hook{
		logger:    logger,
		interrupt: hook.Keycode[InterruptKey],
		keys:      make(map[uint16]bool),
	}
}

// ParseCombo resolves names like "ctrl+r" or "f10" against the keycode table.
func ParseCombo(value string) (Combo, error) {
	name := strings.ToLower(strings.TrimSpace(value))
	parts := strings.Split(name, "+")
	keyName := strings.TrimSpace(parts[len(parts)-1])
	key, ok := hook.Keycode[keyName]
	if !ok || keyName == "" {
		return Combo{}, fmt.Errorf("parse combo %q: %w: %s", value, ErrUnknownKey, keyName)
	}

	combo := Combo{Name: name, Key: key}
	for _, part := range parts[:len(parts)-1] {
		part = strings.TrimSpace(part)
		aliases, ok := modifierAliases[part]
		if !ok {
			aliases = []string{part}
		}
		var codes []uint16
		for _, alias := range aliases {
			if code, found := hook.Keycode[alias]; found {
				codes = append(codes, code)
			}
		}
		if len(codes) == 0 {
			return Combo{}, fmt.Errorf("parse combo %q: %w: %s", value, ErrUnknownKey, part)
		}
		combo.Modifiers = append(combo.Modifiers, codes)
	}
	return combo, nil
}

// Bind maps a key combo to a command string handed to the OnCommand callback.
func (inputHook *Hook) Bind(combo, command string) error {
	parsed, err := ParseCombo(combo)
	if err != nil {
		return err
	}
	inputHook.mu.Lock()
	defer inputHook.mu.Unlock()
	inputHook.bindings = append(inputHook.bindings, binding{combo: parsed, command: command})
	return nil
}

// ClearBindings removes every combo binding.
func (inputHook *Hook) ClearBindings() {
	inputHook.mu.Lock()
	defer inputHook.mu.Unlock()
	inputHook.bindings = nil
}

// SetOnCommand registers the callback fired from the hook goroutine.
func (inputHook *Hook) SetOnCommand(handler func(command string)) {
	inputHook.mu.Lock()
	defer inputHook.mu.Unlock()
	inputHook.onCommand = handler
}

// Start begins delivering global input events.
func (inputHook *Hook) Start() {
	inputHook.mu.Lock()
	defer inputHook.mu.Unlock()
	if inputHook.running {
		return
	}
	inputHook.running = true
	inputHook.stop = make(chan struct{})
	inputHook.done = make(chan struct{})
	events := hook.Start()
	go inputHook.loop(events, inputHook.stop, inputHook.done)
	inputHook.logger.Info("input hook started", "bindings", len(inputHook.bindings))
}

// Stop ends event delivery and waits for the listener goroutine.
func (inputHook *Hook) Stop() {
	inputHook.mu.Lock()
	if !inputHook.running {
		inputHook.mu.Unlock()
		return
	}
	inputHook.running = false
	close(inputHook.stop)
	done := inputHook.done
	inputHook.mu.Unlock()

	hook.End()
	<-done
	inputHook.logger.Info("input hook stopped")
}

// Down reports whether the hook last saw button pressed.
func (inputHook *Hook) Down(button macro.Button) bool {
	inputHook.mu.Lock()
	defer inputHook.mu.Unlock()
	if int(button) >= len(inputHook.buttons) {
		return false
	}
	return inputHook.buttons[button]
}

// Interrupted reports whether the hard-stop key is held.
func (inputHook *Hook) Interrupted() bool {
	inputHook.mu.Lock()
	defer inputHook.mu.Unlock()
	return inputHook.keys[inputHook.interrupt]
}

func (inputHook *Hook) loop(events chan hook.Event, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			inputHook.handle(event)
		}
	}
}

func (inputHook *Hook) handle(event hook.Event) {
	var fired []string
	var onCommand func(string)

	inputHook.mu.Lock()
	switch event.Kind {
	case hook.KeyHold:
		if !inputHook.keys[event.Keycode] {
			inputHook.keys[event.Keycode] = true
			fired = inputHook.matchLocked(event.Keycode)
		}
	case hook.KeyUp:
		delete(inputHook.keys, event.Keycode)
	case hook.MouseHold:
		inputHook.setButtonLocked(event.Button, true)
	case hook.MouseDown, hook.MouseUp:
		// gohook's MouseDown is the release event sent after every press.
		// MouseUp is the click event, which is skipped after a drag.
		inputHook.setButtonLocked(event.Button, false)
	}
	onCommand = inputHook.onCommand
	inputHook.mu.Unlock()

	if onCommand == nil {
		return
	}
	for _, command := range fired {
		onCommand(command)
	}
}

func (inputHook *Hook) matchLocked(key uint16) []string {
	var fired []string
	for _, bound := range inputHook.bindings {
		if bound.combo.Key != key || !inputHook.modifiersHeldLocked(bound.combo) {
			continue
		}
		fired = append(fired, bound.command)
	}
	return fired
}

func (inputHook *Hook) modifiersHeldLocked(combo Combo) bool {
	for _, alternatives := range combo.Modifiers {
		held := false
		for _, code := range alternatives {
			if inputHook.keys[code] {
				held = true
				break
			}
		}
		if !held {
			return false
		}
	}
	return true
}

func (inputHook *Hook) setButtonLocked(button uint16, down bool) {
	switch button {
	case hookButtonLeft:
		inputHook.buttons[macro.ButtonLeft] = down
	case hookButtonRight:
		inputHook.buttons[macro.ButtonRight] = down
	}
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
