package platform

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"mousereel/internal/core/macro"
)

// ButtonState reports whether a physical mouse button is held.
type ButtonState interface {
	Down(button macro.Button) bool
}

// Input reads and drives the real pointer through robotgo.
type Input struct {
	buttons ButtonState
}

// NewInput creates an input adapter that reads button state from buttons.
// It turns on robotgo scaling so Move uses the same coordinate space that
// Location reports on scaled displays.
func NewInput(buttons ButtonState) *Input {
	robotgo.Scale = true
	return &Input{buttons: buttons}
}

// Sample reads the current pointer position and button state.
func (input *Input) Sample() macro.Sample {
	x, y := robotgo.Location()
	return macro.Sample{
		X:         x,
		Y:         y,
		LeftDown:  input.buttons.Down(macro.ButtonLeft),
		RightDown: input.buttons.Down(macro.ButtonRight),
	}
}

// Move places the pointer at absolute screen coordinates.
func (input *Input) Move(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

// ButtonDown injects a press of button.
func (input *Input) ButtonDown(button macro.Button) error {
	if err := robotgo.Toggle(robotgoButton(button)); err != nil {
		return fmt.Errorf("press %s: %w", button, err)
	}
	return nil
}

// ButtonUp injects a release of button.
func (input *Input) ButtonUp(button macro.Button) error {
	if err := robotgo.Toggle(robotgoButton(button), "up"); err != nil {
		return fmt.Errorf("release %s: %w", button, err)
	}
	return nil
}

// Click injects one full press-and-release of the left button.
func (input *Input) Click() error {
	robotgo.Click("left")
	return nil
}

func robotgoButton(button macro.Button) string {
	if button == macro.ButtonRight {
		return "right"
	}
	return "left"
}
