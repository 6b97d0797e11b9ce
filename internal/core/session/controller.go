package session

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mousereel/internal/core/macro"
	"mousereel/internal/core/model"
)

// Logger is the logging surface used by the engine.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// SavePrompter asks the user where to save a recording.
// ok is false when the prompt was dismissed.
type SavePrompter interface {
	PromptSavePath(dir, suggestedName string) (path string, ok bool, err error)
}

// Options contains runtime collaborators for the Controller.
type Options struct {
	Logger Logger
	Now    func() time.Time
}

// Controller is the single owner of the idle/recording/playing state.
type Controller struct {
	mu          sync.Mutex
	config      model.EngineConfig
	sampler     Sampler
	injector    Injector
	interrupter Interrupter
	prompter    SavePrompter
	logger      Logger
	now         func() time.Time

	state     State
	recorder  *Recorder
	finishing bool
	playback  *playbackRun
	events    []chan Event
	closed    bool
}

type playbackRun struct {
	player    *Player
	done      chan struct{}
	cancelled bool
}

// New creates a Controller in the idle state.
func New(config model.EngineConfig, sampler Sampler, injector Injector, options Options) *Controller {
	if options.Logger == nil {
		options.Logger = nopLogger{}
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Controller{
		config:   config.WithDefaults(),
		sampler:  sampler,
		injector: injector,
		logger:   options.Logger,
		now:      options.Now,
		state:    StateIdle,
	}
}

// SetInterrupter injects the hard-stop key source polled by the player.
func (controller *Controller) SetInterrupter(interrupter Interrupter) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.interrupter = interrupter
}

// SetSavePrompter injects the destination prompt used by non-quick saves.
func (controller *Controller) SetSavePrompter(prompter SavePrompter) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.prompter = prompter
}

// UpdateConfig replaces the engine configuration. Active sessions keep the
// values they started with.
func (controller *Controller) UpdateConfig(config model.EngineConfig) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.config = config.WithDefaults()
}

// Subscribe registers a new observer channel.
func (controller *Controller) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.closed {
		close(ch)
		return ch
	}
	controller.events = append(controller.events, ch)
	return ch
}

// State returns the current engine state.
func (controller *Controller) State() State {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.state
}

// StartRecording begins sampling. It is a no-op unless the engine is idle.
func (controller *Controller) StartRecording() bool {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.closed || controller.state != StateIdle {
		return false
	}

	controller.state = StateRecording
	controller.recorder = newRecorder(controller.sampler, controller.config.SampleInterval, controller.config.PollInterval)
	controller.recorder.start()
	controller.logger.Info("recording started")
	controller.emitLocked(Event{Type: EventRecordingChanged, State: StateRecording, Active: true})
	return true
}

// StopRecording joins the sampling loop, saves the buffer and returns to idle.
// It reports false when no recording was active.
func (controller *Controller) StopRecording(quickSave bool) bool {
	controller.mu.Lock()
	if controller.state != StateRecording || controller.finishing {
		controller.mu.Unlock()
		return false
	}
	controller.finishing = true
	recorder := controller.recorder
	dir := controller.config.MacrosDir
	prompter := controller.prompter
	controller.mu.Unlock()

	samples := recorder.stop()
	path, err := controller.save(samples, dir, quickSave, prompter)

	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.finishing = false
	controller.recorder = nil
	controller.state = StateIdle
	controller.emitLocked(Event{Type: EventRecordingChanged, State: StateIdle})

	switch {
	case err != nil:
		controller.logger.Error("save macro failed", "err", err)
		controller.emitLocked(Event{Type: EventError, State: StateIdle, Message: err.Error()})
	case path == "":
		controller.logger.Info("save abandoned", "samples", len(samples))
	default:
		controller.logger.Info("macro saved", "path", path, "samples", len(samples))
		controller.emitLocked(Event{Type: EventMacroSaved, State: StateIdle, Path: path})
	}
	return true
}

// Play loads the macro at path and replays it on a background goroutine.
// It is a no-op while recording or while another playback is running.
func (controller *Controller) Play(path string, playback model.PlaybackConfig) bool {
	speedFactor := playback.SpeedFactor
	if speedFactor <= 0 || math.IsNaN(speedFactor) || math.IsInf(speedFactor, 0) {
		controller.logger.Warn("invalid speed factor, using realtime", "speed_factor", speedFactor)
		speedFactor = 1
	}

	controller.mu.Lock()
	if controller.closed || controller.state == StateRecording {
		controller.mu.Unlock()
		return false
	}
	if previous := controller.playback; previous != nil && previous.cancelled {
		controller.mu.Unlock()
		<-previous.done
		controller.mu.Lock()
	}
	if controller.closed || controller.state != StateIdle {
		controller.mu.Unlock()
		return false
	}

	run := &playbackRun{
		player: newPlayer(controller.injector, controller.interrupter, controller.config.MinimumHold,
			controller.config.PollInterval, playback.Looping, controller.logger),
		done: make(chan struct{}),
	}
	run.player.onInterrupt = controller.ForceStopPlayback
	controller.state = StatePlaying
	controller.playback = run
	minimumHold := controller.config.MinimumHold
	controller.mu.Unlock()

	loaded, skipped, err := macro.LoadFile(path)
	if err == nil && len(loaded.Samples) == 0 {
		err = fmt.Errorf("%w: %s", macro.ErrEmpty, path)
	}
	if err != nil {
		controller.abortPlayback(run, err)
		return false
	}
	if skipped > 0 {
		controller.logger.Warn("skipped malformed lines", "path", path, "lines", skipped)
	}
	samples := macro.Prepare(loaded.Samples, speedFactor, minimumHold)

	controller.mu.Lock()
	if run.cancelled {
		controller.mu.Unlock()
		controller.abortPlayback(run, nil)
		return false
	}
	controller.logger.Info("playback started", "macro", loaded.Name, "samples", len(samples),
		"speed_factor", speedFactor, "looping", playback.Looping)
	controller.emitLocked(Event{Type: EventPlaybackChanged, State: StatePlaying, Active: true, Path: path})
	controller.mu.Unlock()

	go func() {
		defer controller.finishPlayback(run)
		run.player.Run(samples)
	}()
	return true
}

// ForceStopPlayback cancels the active playback, including further loops.
// It is idempotent and safe to call from inside the playback loop.
func (controller *Controller) ForceStopPlayback() {
	controller.mu.Lock()
	run := controller.playback
	if run != nil {
		run.cancelled = true
	}
	controller.mu.Unlock()

	if run != nil {
		run.player.Stop()
	}
}

// Wait blocks until no playback goroutine is running.
func (controller *Controller) Wait() {
	controller.mu.Lock()
	run := controller.playback
	controller.mu.Unlock()
	if run != nil {
		<-run.done
	}
}

// Close stops any session, saving an active recording, and closes observers.
func (controller *Controller) Close() {
	controller.StopRecording(true)
	controller.ForceStopPlayback()
	controller.Wait()

	controller.mu.Lock()
	if controller.closed {
		controller.mu.Unlock()
		return
	}
	controller.closed = true
	events := controller.events
	controller.events = nil
	controller.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

func (controller *Controller) save(samples []macro.Sample, dir string, quickSave bool, prompter SavePrompter) (string, error) {
	suggested := macro.FileName(controller.now())
	if !quickSave && prompter == nil {
		controller.logger.Warn("no save prompt available, saving directly")
		quickSave = true
	}

	path := filepath.Join(dir, suggested)
	if !quickSave {
		chosen, ok, err := prompter.PromptSavePath(dir, suggested)
		if err != nil {
			return "", fmt.Errorf("prompt save path: %w", err)
		}
		if !ok || strings.TrimSpace(chosen) == "" {
			return "", nil
		}
		path = chosen
		if !strings.EqualFold(filepath.Ext(path), macro.Extension) {
			path += macro.Extension
		}
	}

	if err := macro.SaveFile(path, samples); err != nil {
		return "", err
	}
	return path, nil
}

func (controller *Controller) abortPlayback(run *playbackRun, err error) {
	controller.mu.Lock()
	if controller.playback == run {
		controller.playback = nil
	}
	controller.state = StateIdle
	if err != nil {
		message := err.Error()
		if errors.Is(err, macro.ErrNotFound) {
			message = "Macro file does not exist: " + strings.TrimPrefix(message, macro.ErrNotFound.Error()+": ")
		}
		controller.logger.Error("playback aborted", "err", err)
		controller.emitLocked(Event{Type: EventError, State: StateIdle, Message: message})
	}
	controller.mu.Unlock()
	close(run.done)
}

func (controller *Controller) finishPlayback(run *playbackRun) {
	controller.mu.Lock()
	if controller.playback == run {
		controller.playback = nil
	}
	controller.state = StateIdle
	controller.logger.Info("playback finished", "passes", run.player.Passes(), "cancelled", run.cancelled)
	controller.emitLocked(Event{Type: EventPlaybackChanged, State: StateIdle})
	controller.mu.Unlock()
	close(run.done)
}

func (controller *Controller) emitLocked(event Event) {
	if event.At.IsZero() {
		event.At = controller.now()
	}
	for _, ch := range controller.events {
		select {
		case ch <- event:
		default:
		}
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
