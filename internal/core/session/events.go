package session

import "time"

// State represents the current engine mode.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePlaying   State = "playing"
)

// EventType defines the type of session event.
type EventType string

const (
	EventRecordingChanged EventType = "recording_changed"
	EventPlaybackChanged  EventType = "playback_changed"
	EventMacroSaved       EventType = "macro_saved"
	EventError            EventType = "error"
)

// Event represents a session update for observers.
type Event struct {
	Type    EventType
	State   State
	Active  bool
	Path    string
	Message string
	At      time.Time
}
