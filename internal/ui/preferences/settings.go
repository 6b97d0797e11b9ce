package preferences

import (
	"time"

	"mousereel/internal/core/command"
	"mousereel/internal/core/model"
)

// SpeedPresets are the user-facing "times faster" playback choices.
var SpeedPresets = []float64{0.1, 0.5, 1, 2, 5, 20}

// Settings defines editable user preferences.
type Settings struct {
	MacrosDir     string
	QuickSave     bool
	Looping       bool
	PlaybackSpeed float64
	ClickerCPS    float64

	SampleInterval time.Duration
	MinimumHold    time.Duration

	// Hotkeys maps a command string to a key combo such as "ctrl+r".
	Hotkeys map[string]string
}

// DefaultHotkeys returns the stock key bindings.
func DefaultHotkeys() map[string]string {
	return map[string]string{
		command.StartRecording:    "space",
		command.StopRecording:     "f10",
		command.PlaySelectedMacro: "ctrl+r",
		command.ForceStop:         "esc",
	}
}

// DefaultSettings returns default settings for MouseReel.
func DefaultSettings() Settings {
	return Settings{
		QuickSave:      true,
		Looping:        false,
		PlaybackSpeed:  1,
		ClickerCPS:     model.DefaultClickerCPS,
		SampleInterval: model.DefaultSampleInterval,
		MinimumHold:    model.DefaultMinimumHold,
		Hotkeys:        DefaultHotkeys(),
	}
}

// EngineConfig converts settings to the session engine configuration.
func (settings Settings) EngineConfig() model.EngineConfig {
	return model.EngineConfig{
		MacrosDir:      settings.MacrosDir,
		SampleInterval: settings.SampleInterval,
		PollInterval:   model.DefaultPollInterval,
		MinimumHold:    settings.MinimumHold,
	}.WithDefaults()
}

// PlaybackConfig converts the user-facing speed to the engine's speed factor.
func (settings Settings) PlaybackConfig() model.PlaybackConfig {
	speed := settings.PlaybackSpeed
	if speed <= 0 {
		speed = 1
	}
	return model.PlaybackConfig{
		SpeedFactor: 1 / speed,
		Looping:     settings.Looping,
	}
}

// ClickerConfig converts settings to the clicker configuration.
func (settings Settings) ClickerConfig() model.ClickerConfig {
	return model.ClickerConfig{
		CPS:          settings.ClickerCPS,
		PollInterval: model.DefaultPollInterval,
	}
}
