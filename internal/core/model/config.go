package model

import "time"

// Defaults shared by settings and the engine.
const (
	DefaultSampleInterval = 10 * time.Millisecond
	DefaultPollInterval   = time.Millisecond
	DefaultMinimumHold    = 30 * time.Millisecond
	DefaultClickerCPS     = 40.0

	MinClickerCPS = 0.1
	MaxClickerCPS = 1000.0
)

// EngineConfig contains runtime settings for the record/play session engine.
type EngineConfig struct {
	MacrosDir      string
	SampleInterval time.Duration
	PollInterval   time.Duration
	MinimumHold    time.Duration
}

// PlaybackConfig is read once when a playback session starts.
type PlaybackConfig struct {
	// SpeedFactor multiplies recorded timestamps: 0.5 plays twice as fast.
	SpeedFactor float64
	Looping     bool
}

// ClickerConfig configures the fixed-rate click loop.
type ClickerConfig struct {
	CPS          float64
	PollInterval time.Duration
}

// WithDefaults fills zero values.
func (config EngineConfig) WithDefaults() EngineConfig {
	if config.SampleInterval <= 0 {
		config.SampleInterval = DefaultSampleInterval
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.MinimumHold <= 0 {
		config.MinimumHold = DefaultMinimumHold
	}
	return config
}

// ValidCPS reports whether cps lies in the accepted clicker range.
func ValidCPS(cps float64) bool {
	return cps >= MinClickerCPS && cps <= MaxClickerCPS
}
