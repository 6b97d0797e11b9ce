//go:build windows

package platform

import (
	"syscall"

	"mousereel/internal/core/macro"
)

const (
	vkLButton = 0x01
	vkRButton = 0x02
	vkEscape  = 0x1B
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

// asyncKeyState reads live key state from Win32 instead of hook events.
type asyncKeyState struct{}

// NewButtonState returns the Win32 async key reader; the hook is not consulted.
func NewButtonState(*Hook) ButtonState {
	return asyncKeyState{}
}

// NewInterrupter returns the Win32 async key reader for the Esc key.
func NewInterrupter(*Hook) Interrupter {
	return asyncKeyState{}
}

func (asyncKeyState) Down(button macro.Button) bool {
	switch button {
	case macro.ButtonLeft:
		return keyHeld(vkLButton)
	case macro.ButtonRight:
		return keyHeld(vkRButton)
	}
	return false
}

func (asyncKeyState) Interrupted() bool {
	return keyHeld(vkEscape)
}

func keyHeld(virtualKey uintptr) bool {
	result, _, _ := procGetAsyncKeyState.Call(virtualKey)
	return result&0x8000 != 0
}
