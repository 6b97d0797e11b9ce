package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mousereel/internal/core/macro"
	"mousereel/internal/core/model"
)

var realtime = model.PlaybackConfig{SpeedFactor: 1}

func newTestController(t *testing.T, sampler Sampler, injector Injector) (*Controller, string) {
	t.Helper()
	dir := t.TempDir()
	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	controller := New(testConfig(dir), sampler, injector, Options{Now: func() time.Time { return fixed }})
	t.Cleanup(controller.Close)
	return controller, dir
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for index, event := range events {
		types[index] = event.Type
	}
	return types
}

func TestStartRecordingTwiceKeepsSession(t *testing.T) {
	sampler := &scriptedSampler{script: []macro.Sample{{X: 1, Y: 2}}}
	controller, dir := newTestController(t, sampler, &recordingInjector{})

	require.True(t, controller.StartRecording())
	time.Sleep(30 * time.Millisecond)
	assert.False(t, controller.StartRecording())
	time.Sleep(20 * time.Millisecond)
	require.True(t, controller.StopRecording(true))

	files := listMacroFiles(t, dir)
	require.Len(t, files, 1)
	loaded, _, err := macro.LoadFile(files[0])
	require.NoError(t, err)
	require.NotEmpty(t, loaded.Samples)
	assert.Equal(t, 0.0, loaded.Samples[0].Timestamp)
	assert.Equal(t, sampler.callCount(), len(loaded.Samples))
	assert.GreaterOrEqual(t, len(loaded.Samples), 5)
	for index := 1; index < len(loaded.Samples); index++ {
		assert.GreaterOrEqual(t, loaded.Samples[index].Timestamp, loaded.Samples[index-1].Timestamp)
	}
}

func TestPlayWhileRecordingIsRejected(t *testing.T) {
	controller, dir := newTestController(t, &scriptedSampler{}, &recordingInjector{})
	path := writeMacro(t, dir, "existing.csv", []macro.Sample{{Timestamp: 0}})

	require.True(t, controller.StartRecording())
	assert.False(t, controller.Play(path, realtime))
	assert.Equal(t, StateRecording, controller.State())
	require.True(t, controller.StopRecording(true))
	assert.Equal(t, StateIdle, controller.State())
}

func TestStopRecordingQuickSaveWritesFile(t *testing.T) {
	controller, dir := newTestController(t, &scriptedSampler{script: []macro.Sample{{X: 3, Y: 4}}}, &recordingInjector{})
	events := controller.Subscribe(10)

	require.True(t, controller.StartRecording())
	time.Sleep(15 * time.Millisecond)
	require.True(t, controller.StopRecording(true))

	expected := filepath.Join(dir, "2024-06-01-10-00-00.csv")
	assert.True(t, fileExists(expected))

	received := drain(events)
	assert.Equal(t, []EventType{EventRecordingChanged, EventRecordingChanged, EventMacroSaved}, eventTypes(received))
	assert.True(t, received[0].Active)
	assert.False(t, received[1].Active)
	assert.Equal(t, expected, received[2].Path)
}

func TestStopRecordingWhenIdleIsNoop(t *testing.T) {
	controller, dir := newTestController(t, &scriptedSampler{}, &recordingInjector{})

	assert.False(t, controller.StopRecording(true))
	assert.Empty(t, listMacroFiles(t, dir))
}

func TestStopRecordingPromptCancelledAbandonsSave(t *testing.T) {
	controller, dir := newTestController(t, &scriptedSampler{}, &recordingInjector{})
	prompter := &fakePrompter{ok: false}
	controller.SetSavePrompter(prompter)
	events := controller.Subscribe(10)

	require.True(t, controller.StartRecording())
	require.True(t, controller.StopRecording(false))

	assert.EqualValues(t, 1, prompter.called.Load())
	assert.Empty(t, listMacroFiles(t, dir))
	assert.Equal(t, StateIdle, controller.State())
	assert.Equal(t, []EventType{EventRecordingChanged, EventRecordingChanged}, eventTypes(drain(events)))
}

func TestStopRecordingPromptChoosesPath(t *testing.T) {
	controller, _ := newTestController(t, &scriptedSampler{}, &recordingInjector{})
	chosen := filepath.Join(t.TempDir(), "clicks")
	controller.SetSavePrompter(&fakePrompter{path: chosen, ok: true})

	require.True(t, controller.StartRecording())
	require.True(t, controller.StopRecording(false))

	assert.True(t, fileExists(chosen+macro.Extension))
}

func TestStopRecordingPromptErrorReportsAndIdles(t *testing.T) {
	controller, _ := newTestController(t, &scriptedSampler{}, &recordingInjector{})
	controller.SetSavePrompter(&fakePrompter{err: errors.New("no window")})
	events := controller.Subscribe(10)

	require.True(t, controller.StartRecording())
	require.True(t, controller.StopRecording(false))

	received := drain(events)
	require.Len(t, received, 3)
	assert.Equal(t, EventError, received[2].Type)
	assert.Contains(t, received[2].Message, "no window")
	assert.Equal(t, StateIdle, controller.State())
}

func TestPlayMissingFileReturnsToIdle(t *testing.T) {
	controller, dir := newTestController(t, &scriptedSampler{}, &recordingInjector{})
	events := controller.Subscribe(10)
	missing := filepath.Join(dir, "missing.csv")

	assert.False(t, controller.Play(missing, realtime))
	assert.Equal(t, StateIdle, controller.State())

	received := drain(events)
	require.Len(t, received, 1)
	assert.Equal(t, EventError, received[0].Type)
	assert.Equal(t, "Macro file does not exist: "+missing, received[0].Message)

	assert.True(t, controller.StartRecording(), "engine must not stay wedged")
	controller.StopRecording(true)
}

func TestPlayEmptyMacroIsRejected(t *testing.T) {
	controller, dir := newTestController(t, &scriptedSampler{}, &recordingInjector{})
	path := writeMacro(t, dir, "empty.csv", nil)

	assert.False(t, controller.Play(path, realtime))
	assert.Equal(t, StateIdle, controller.State())
}

func TestPlayScenarioHoldsMinimum(t *testing.T) {
	injector := &recordingInjector{}
	controller, dir := newTestController(t, &scriptedSampler{}, injector)
	events := controller.Subscribe(10)
	path := writeMacro(t, dir, "click.csv", []macro.Sample{
		{X: 10, Y: 10, Timestamp: 0},
		{X: 10, Y: 10, LeftDown: true, Timestamp: 5},
		{X: 10, Y: 10, Timestamp: 10},
	})

	require.True(t, controller.Play(path, realtime))
	controller.Wait()

	buttons := injector.buttonActions()
	require.Len(t, buttons, 2)
	assert.Equal(t, actionDown, buttons[0].kind)
	assert.Equal(t, actionUp, buttons[1].kind)
	assert.GreaterOrEqual(t, buttons[1].at.Sub(buttons[0].at), 30*time.Millisecond)

	received := drain(events)
	require.Len(t, received, 2)
	assert.True(t, received[0].Active)
	assert.Equal(t, EventPlaybackChanged, received[1].Type)
	assert.False(t, received[1].Active)
	assert.Equal(t, StateIdle, controller.State())
}

func TestPlayWhilePlayingIsRejected(t *testing.T) {
	controller, dir := newTestController(t, &scriptedSampler{}, &recordingInjector{})
	path := writeMacro(t, dir, "long.csv", []macro.Sample{{Timestamp: 0}, {Timestamp: 200}})

	require.True(t, controller.Play(path, realtime))
	assert.False(t, controller.Play(path, realtime))
	assert.False(t, controller.StartRecording())
	assert.Equal(t, StatePlaying, controller.State())

	controller.ForceStopPlayback()
	controller.Wait()
	assert.Equal(t, StateIdle, controller.State())
}

func TestForceStopDuringLoopReleasesButtons(t *testing.T) {
	injector := &recordingInjector{}
	controller, dir := newTestController(t, &scriptedSampler{}, injector)
	path := writeMacro(t, dir, "hold.csv", []macro.Sample{
		{Timestamp: 0},
		{X: 1, Y: 1, LeftDown: true, RightDown: true, Timestamp: 5},
		{X: 2, Y: 2, LeftDown: true, RightDown: true, Timestamp: 500},
	})

	require.True(t, controller.Play(path, model.PlaybackConfig{SpeedFactor: 1, Looping: true}))
	require.Eventually(t, func() bool { return len(injector.heldButtons()) == 2 }, time.Second, time.Millisecond)

	controller.ForceStopPlayback()
	controller.ForceStopPlayback()
	controller.Wait()

	assert.Empty(t, injector.heldButtons())
	released := map[macro.Button]bool{}
	for _, entry := range injector.buttonActions() {
		if entry.kind == actionUp {
			released[entry.button] = true
		}
	}
	assert.True(t, released[macro.ButtonLeft])
	assert.True(t, released[macro.ButtonRight])
	assert.Equal(t, StateIdle, controller.State())
}

func TestInterruptKeyStopsLooping(t *testing.T) {
	injector := &recordingInjector{}
	controller, dir := newTestController(t, &scriptedSampler{}, injector)
	interrupter := &interruptSwitch{}
	controller.SetInterrupter(interrupter)
	path := writeMacro(t, dir, "loop.csv", []macro.Sample{{Timestamp: 0}, {X: 1, Timestamp: 5}})

	require.True(t, controller.Play(path, model.PlaybackConfig{SpeedFactor: 1, Looping: true}))
	time.Sleep(30 * time.Millisecond)
	interrupter.on.Store(true)

	require.Eventually(t, func() bool { return controller.State() == StateIdle }, time.Second, time.Millisecond)
	controller.Wait()
	interrupter.on.Store(false)

	moves := len(injector.snapshot())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, moves, len(injector.snapshot()), "no pass may run after the interrupt")
}

func TestPlayAfterForceStopWaitsForPreviousRun(t *testing.T) {
	controller, dir := newTestController(t, &scriptedSampler{}, &recordingInjector{})
	events := controller.Subscribe(20)
	long := writeMacro(t, dir, "long.csv", []macro.Sample{{LeftDown: true, Timestamp: 0}, {LeftDown: true, Timestamp: 1000}})
	short := writeMacro(t, dir, "short.csv", []macro.Sample{{Timestamp: 0}})

	require.True(t, controller.Play(long, model.PlaybackConfig{SpeedFactor: 1, Looping: true}))
	controller.ForceStopPlayback()
	require.True(t, controller.Play(short, realtime))
	controller.Wait()

	received := drain(events)
	require.Len(t, received, 4)
	assert.Equal(t, []bool{true, false, true, false}, []bool{
		received[0].Active, received[1].Active, received[2].Active, received[3].Active,
	})
	assert.Equal(t, long, received[0].Path)
	assert.Equal(t, short, received[2].Path)
}

func TestSpeedFactorScalesPlayback(t *testing.T) {
	injector := &recordingInjector{}
	controller, dir := newTestController(t, &scriptedSampler{}, injector)
	path := writeMacro(t, dir, "slow.csv", []macro.Sample{{Timestamp: 0}, {X: 1, Timestamp: 20}})

	start := time.Now()
	require.True(t, controller.Play(path, model.PlaybackConfig{SpeedFactor: 3}))
	controller.Wait()

	actions := injector.snapshot()
	require.Len(t, actions, 2)
	assert.GreaterOrEqual(t, actions[1].at.Sub(start), 60*time.Millisecond)
}

func TestRecordSaveLoadScenario(t *testing.T) {
	sampler := &scriptedSampler{script: []macro.Sample{
		{X: 10, Y: 10},
		{X: 10, Y: 10, LeftDown: true},
		{X: 10, Y: 10},
	}}
	controller, dir := newTestController(t, sampler, &recordingInjector{})
	events := controller.Subscribe(10)

	require.True(t, controller.StartRecording())
	time.Sleep(25 * time.Millisecond)
	require.True(t, controller.StopRecording(true))

	var saved string
	for _, event := range drain(events) {
		if event.Type == EventMacroSaved {
			saved = event.Path
		}
	}
	require.NotEmpty(t, saved)
	assert.Equal(t, dir, filepath.Dir(saved))

	loaded, skipped, err := macro.LoadFile(saved)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.GreaterOrEqual(t, len(loaded.Samples), 3)

	prepared := macro.Prepare(loaded.Samples, 1, 30*time.Millisecond)
	downAt := prepared[1].Timestamp
	require.True(t, prepared[1].LeftDown)
	require.False(t, prepared[2].LeftDown)
	assert.GreaterOrEqual(t, prepared[2].Timestamp, downAt+30)
}

func TestCloseClosesSubscribers(t *testing.T) {
	controller := New(testConfig(t.TempDir()), &scriptedSampler{}, &recordingInjector{}, Options{})
	events := controller.Subscribe(1)

	controller.Close()
	controller.Close()

	_, open := <-events
	assert.False(t, open)
	assert.False(t, controller.StartRecording())
}

func TestUpdateConfigRedirectsNextSave(t *testing.T) {
	controller, dir := newTestController(t, &scriptedSampler{}, &recordingInjector{})
	moved := filepath.Join(dir, "moved")
	controller.UpdateConfig(testConfig(moved))

	require.True(t, controller.StartRecording())
	time.Sleep(10 * time.Millisecond)
	require.True(t, controller.StopRecording(true))

	assert.True(t, fileExists(filepath.Join(moved, "2024-06-01-10-00-00.csv")))
}
