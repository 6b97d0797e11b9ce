//go:build !windows

package platform

// NewButtonState returns the hook itself; button state comes from hook events.
func NewButtonState(fallback *Hook) ButtonState {
	return fallback
}

// NewInterrupter returns the hook itself; the interrupt key is tracked from hook events.
func NewInterrupter(fallback *Hook) Interrupter {
	return fallback
}
