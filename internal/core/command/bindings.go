package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"mousereel/internal/core/model"
)

// Command names understood by the engine.
const (
	StartRecording    = "start-recording"
	StopRecording     = "stop-recording"
	PlaySelectedMacro = "play-selected-macro"
	SelectMacro       = "select-macro"
	ToggleLooping     = "toggle-looping"
	SetPlaybackSpeed  = "set-playback-speed"
	ForceStop         = "force-stop"
	StartClicker      = "start-clicker"
	StopClicker       = "stop-clicker"
	ToggleClicker     = "toggle-clicker"
	SetCPS            = "set-cps"
)

// ErrNoMacroSelected indicates play was requested without a selected macro.
var ErrNoMacroSelected = errors.New("no macro selected")

// Engine is the session surface driven by commands.
type Engine interface {
	StartRecording() bool
	StopRecording(quickSave bool) bool
	Play(path string, playback model.PlaybackConfig) bool
	ForceStopPlayback()
}

// Clicker is the fixed-rate clicker surface driven by commands.
type Clicker interface {
	Start() bool
	Stop() bool
	Toggle() bool
	SetCPS(cps float64) bool
}

// Selection holds the host-side playback choices read when a session starts.
type Selection struct {
	mu        sync.Mutex
	macroPath string
	speed     float64
	looping   bool
	quickSave bool
}

// NewSelection creates a selection; speed is the user-facing "times faster" value.
func NewSelection(speed float64, looping, quickSave bool) *Selection {
	if !validSpeed(speed) {
		speed = 1
	}
	return &Selection{speed: speed, looping: looping, quickSave: quickSave}
}

// SetMacro selects the macro file played by play-selected-macro.
func (selection *Selection) SetMacro(path string) {
	selection.mu.Lock()
	defer selection.mu.Unlock()
	selection.macroPath = path
}

// Macro returns the selected macro path.
func (selection *Selection) Macro() string {
	selection.mu.Lock()
	defer selection.mu.Unlock()
	return selection.macroPath
}

// SetSpeed sets the user-facing speed multiplier.
func (selection *Selection) SetSpeed(speed float64) error {
	if !validSpeed(speed) {
		return fmt.Errorf("%w: speed must be > 0, got %v", ErrInvalidArgument, speed)
	}
	selection.mu.Lock()
	defer selection.mu.Unlock()
	selection.speed = speed
	return nil
}

// Speed returns the user-facing speed multiplier.
func (selection *Selection) Speed() float64 {
	selection.mu.Lock()
	defer selection.mu.Unlock()
	return selection.speed
}

// ToggleLooping flips looping and returns the new value.
func (selection *Selection) ToggleLooping() bool {
	selection.mu.Lock()
	defer selection.mu.Unlock()
	selection.looping = !selection.looping
	return selection.looping
}

// SetLooping sets whether the next playback loops.
func (selection *Selection) SetLooping(looping bool) {
	selection.mu.Lock()
	defer selection.mu.Unlock()
	selection.looping = looping
}

// Looping returns whether the next playback loops.
func (selection *Selection) Looping() bool {
	selection.mu.Lock()
	defer selection.mu.Unlock()
	return selection.looping
}

// SetQuickSave chooses silent saving over prompting on stop.
func (selection *Selection) SetQuickSave(quickSave bool) {
	selection.mu.Lock()
	defer selection.mu.Unlock()
	selection.quickSave = quickSave
}

// QuickSave returns the stop-recording save mode.
func (selection *Selection) QuickSave() bool {
	selection.mu.Lock()
	defer selection.mu.Unlock()
	return selection.quickSave
}

// Playback converts the selection into engine parameters. The engine's speed
// factor is the inverse of the user-facing multiplier.
func (selection *Selection) Playback() model.PlaybackConfig {
	selection.mu.Lock()
	defer selection.mu.Unlock()
	return model.PlaybackConfig{
		SpeedFactor: 1 / selection.speed,
		Looping:     selection.looping,
	}
}

// Bind registers every engine command on dispatcher.
func Bind(dispatcher *Dispatcher, engine Engine, clicker Clicker, selection *Selection) {
	dispatcher.Register(StartRecording, func(...string) error {
		engine.StartRecording()
		return nil
	})
	dispatcher.Register(StopRecording, func(args ...string) error {
		quickSave := selection.QuickSave()
		if len(args) > 0 {
			parsed, err := parseSaveMode(args[0])
			if err != nil {
				return err
			}
			quickSave = parsed
		}
		engine.StopRecording(quickSave)
		return nil
	})
	dispatcher.Register(PlaySelectedMacro, func(...string) error {
		path := selection.Macro()
		if path == "" {
			return ErrNoMacroSelected
		}
		engine.Play(path, selection.Playback())
		return nil
	})
	dispatcher.RegisterSingle(SelectMacro, func(args ...string) error {
		if len(args) != 1 || args[0] == "" {
			return fmt.Errorf("%w: select-macro takes one path", ErrInvalidArgument)
		}
		selection.SetMacro(args[0])
		return nil
	})
	dispatcher.Register(ToggleLooping, func(...string) error {
		selection.ToggleLooping()
		return nil
	})
	dispatcher.Register(SetPlaybackSpeed, func(args ...string) error {
		speed, err := singleFloat(SetPlaybackSpeed, args)
		if err != nil {
			return err
		}
		return selection.SetSpeed(speed)
	})
	dispatcher.Register(ForceStop, func(...string) error {
		engine.StopRecording(selection.QuickSave())
		engine.ForceStopPlayback()
		clicker.Stop()
		return nil
	})
	dispatcher.Register(StartClicker, func(...string) error {
		clicker.Start()
		return nil
	})
	dispatcher.Register(StopClicker, func(...string) error {
		clicker.Stop()
		return nil
	})
	dispatcher.Register(ToggleClicker, func(...string) error {
		clicker.Toggle()
		return nil
	})
	dispatcher.Register(SetCPS, func(args ...string) error {
		cps, err := singleFloat(SetCPS, args)
		if err != nil {
			return err
		}
		// out-of-range values keep the previous interval
		clicker.SetCPS(cps)
		return nil
	})
}

func singleFloat(name string, args []string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s takes one number", ErrInvalidArgument, name)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidArgument, name, err)
	}
	return value, nil
}

func parseSaveMode(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "quick", "true", "1":
		return true, nil
	case "prompt", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown save mode %q", ErrInvalidArgument, value)
}

func validSpeed(speed float64) bool {
	return speed > 0 && !math.IsInf(speed, 0) && !math.IsNaN(speed)
}
