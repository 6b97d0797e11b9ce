package macro

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates the macro file does not exist.
	ErrNotFound = errors.New("macro file not found")
	// ErrEmpty indicates a macro without any playable samples.
	ErrEmpty = errors.New("macro has no samples")
)

// Button identifies one of the two tracked pointer buttons.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
)

// Buttons lists the tracked buttons in injection order.
var Buttons = []Button{ButtonLeft, ButtonRight}

func (button Button) String() string {
	if button == ButtonRight {
		return "right"
	}
	return "left"
}

// Sample is one pointer position and button-state reading.
// Timestamp is in milliseconds relative to the start of the session or pass.
type Sample struct {
	X         int
	Y         int
	LeftDown  bool
	RightDown bool
	Timestamp float64
}

// Down reports the state of the given button.
func (sample Sample) Down(button Button) bool {
	if button == ButtonRight {
		return sample.RightDown
	}
	return sample.LeftDown
}

// SameButtons reports whether both samples carry the same button state.
func (sample Sample) SameButtons(other Sample) bool {
	return sample.LeftDown == other.LeftDown && sample.RightDown == other.RightDown
}

// Macro is a named, fully loaded sample sequence.
type Macro struct {
	Name      string
	Path      string
	CreatedAt time.Time
	Samples   []Sample
}

// NameFromPath derives the display name of a macro file.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
