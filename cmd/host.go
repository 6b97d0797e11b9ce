package main

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"fyne.io/fyne/v2"

	"mousereel/internal/core/clicker"
	"mousereel/internal/core/command"
	"mousereel/internal/core/macro"
	"mousereel/internal/core/session"
	"mousereel/internal/logging"
	"mousereel/internal/platform"
	"mousereel/internal/storage"
	"mousereel/internal/ui/preferences"
	"mousereel/internal/ui/tray"
)

const (
	commandQueueSize    = 32
	clickerStatusPeriod = 500 * time.Millisecond
)

type hostDeps struct {
	app          fyne.App
	logger       *logging.Logger
	settingsPath string
	settings     preferences.Settings
	controller   *session.Controller
	clicker      *clicker.Clicker
	dispatcher   *command.Dispatcher
	selection    *command.Selection
	hook         *platform.Hook
}

type queuedCommand struct {
	label string
	run   func() error
}

// hostRuntime glues the engine to the tray, hotkeys and settings file. Commands run
// one at a time on a worker goroutine so a blocking save prompt never stalls
// the UI thread.
type hostRuntime struct {
	hostDeps

	tray  *tray.Manager
	prefs *preferences.Window

	commands chan queuedCommand
	quit     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	macros  []macro.Macro
	watcher *storage.Watcher
}

func newHost(deps hostDeps) *hostRuntime {
	return &hostRuntime{
		hostDeps: deps,
		commands: make(chan queuedCommand, commandQueueSize),
		quit:     make(chan struct{}),
	}
}

func (host *hostRuntime) setTray(manager *tray.Manager) {
	host.tray = manager
	host.tray.SetPlayback(host.selection.Speed(), host.selection.Looping())
}

func (host *hostRuntime) setPreferences(window *preferences.Window) {
	host.prefs = window
}

func (host *hostRuntime) start() {
	host.bindHotkeys(host.currentSettings().Hotkeys)
	host.hook.SetOnCommand(func(value string) {
		host.push(queuedCommand{label: value, run: func() error {
			return host.dispatcher.DispatchString(value)
		}})
	})
	host.hook.Start()

	if err := host.watchMacros(host.currentSettings().MacrosDir); err != nil {
		host.logger.Warn("macro watcher disabled", "err", err)
	}

	go host.runCommands()
	go host.forwardEvents(host.controller.Subscribe(16))
	go host.reportClicker(host.clicker.Subscribe(1))

	host.showMacros(host.loadMacros())
}

func (host *hostRuntime) shutdown() {
	host.stopOnce.Do(func() {
		close(host.quit)
		host.hook.Stop()
		host.clicker.Stop()
		host.controller.Close()

		host.mu.Lock()
		watcher := host.watcher
		host.watcher = nil
		host.mu.Unlock()
		if watcher != nil {
			_ = watcher.Close()
		}
		host.logger.Info("shutdown complete")
	})
}

func (host *hostRuntime) enqueue(name string, args ...string) {
	host.push(queuedCommand{label: name, run: func() error {
		return host.dispatcher.Dispatch(name, args...)
	}})
}

// acceptForwarded queues a command line received from another launch.
func (host *hostRuntime) acceptForwarded(value string) error {
	if err := host.dispatcher.Validate(value); err != nil {
		return err
	}
	host.push(queuedCommand{label: value, run: func() error {
		return host.dispatcher.DispatchString(value)
	}})
	return nil
}

func (host *hostRuntime) push(queued queuedCommand) {
	select {
	case <-host.quit:
	case host.commands <- queued:
	default:
		host.logger.Warn("command queue full, dropping", "command", queued.label)
	}
}

func (host *hostRuntime) runCommands() {
	for {
		select {
		case <-host.quit:
			return
		case queued := <-host.commands:
			host.logger.Debug("command", "name", queued.label)
			if err := queued.run(); err != nil {
				host.logger.Warn("command failed", "command", queued.label, "err", err)
			}
			host.syncPlayback()
		}
	}
}

func (host *hostRuntime) forwardEvents(events <-chan session.Event) {
	for event := range events {
		switch event.Type {
		case session.EventRecordingChanged, session.EventPlaybackChanged:
			state := event.State
			fyne.Do(func() { host.tray.SetState(state) })
		case session.EventMacroSaved:
			host.selection.SetMacro(event.Path)
			host.refreshMacros()
		case session.EventError:
			message := event.Message
			host.logger.Warn("session error", "message", message)
			fyne.Do(func() {
				host.app.SendNotification(fyne.NewNotification(platform.AppName, message))
			})
		}
	}
}

// reportClicker coalesces clicker updates into at most one tray refresh per
// period. Start and stop transitions are shown immediately.
func (host *hostRuntime) reportClicker(updates <-chan clicker.Status) {
	ticker := time.NewTicker(clickerStatusPeriod)
	defer ticker.Stop()

	var shown, latest clicker.Status
	show := func(status clicker.Status) {
		shown = status
		fyne.Do(func() { host.tray.SetClicker(status.Running, status.Clicks) })
	}
	for {
		select {
		case <-host.quit:
			return
		case latest = <-updates:
			if latest.Running != shown.Running {
				show(latest)
			}
		case <-ticker.C:
			if latest != shown {
				show(latest)
			}
		}
	}
}

// syncPlayback persists speed and looping changes made through commands.
func (host *hostRuntime) syncPlayback() {
	speed, looping := host.selection.Speed(), host.selection.Looping()

	host.mu.Lock()
	changed := host.settings.PlaybackSpeed != speed || host.settings.Looping != looping
	host.settings.PlaybackSpeed = speed
	host.settings.Looping = looping
	settings := host.settings
	macros := host.macros
	host.mu.Unlock()

	if changed {
		host.saveSettings(settings)
	}
	selected := host.selection.Macro()
	fyne.Do(func() {
		host.tray.SetPlayback(speed, looping)
		host.tray.SetMacros(macros, selected)
	})
}

func (host *hostRuntime) loadMacros() []macro.Macro {
	macros, err := storage.ListMacros(host.currentSettings().MacrosDir)
	if err != nil {
		host.logger.Warn("list macros", "err", err)
	}
	if host.selection.Macro() == "" && len(macros) > 0 {
		host.selection.SetMacro(macros[0].Path)
	}
	host.mu.Lock()
	host.macros = macros
	host.mu.Unlock()
	return macros
}

func (host *hostRuntime) showMacros(macros []macro.Macro) {
	host.tray.SetMacros(macros, host.selection.Macro())
}

// refreshMacros reloads the library from any goroutine.
func (host *hostRuntime) refreshMacros() {
	macros := host.loadMacros()
	fyne.Do(func() { host.showMacros(macros) })
}

func (host *hostRuntime) watchMacros(dir string) error {
	watcher, err := storage.WatchMacros(dir, storage.DefaultDebounce, host.refreshMacros, host.logger)
	if err != nil {
		return err
	}
	host.mu.Lock()
	previous := host.watcher
	host.watcher = watcher
	host.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	return nil
}

func (host *hostRuntime) showPreferences() {
	host.prefs.UpdateSettings(host.currentSettings())
	host.prefs.Show()
}

// applySettings runs on the UI thread after the preferences window saves.
func (host *hostRuntime) applySettings(updated preferences.Settings) {
	host.mu.Lock()
	previousDir := host.settings.MacrosDir
	host.settings = updated
	host.mu.Unlock()
	host.saveSettings(updated)

	host.controller.UpdateConfig(updated.EngineConfig())
	host.selection.SetQuickSave(updated.QuickSave)
	host.selection.SetLooping(updated.Looping)
	if err := host.selection.SetSpeed(updated.PlaybackSpeed); err != nil {
		host.logger.Warn("playback speed", "err", err)
	}
	if !host.clicker.SetCPS(updated.ClickerCPS) {
		host.logger.Warn("clicker rate out of range, keeping previous", "cps", updated.ClickerCPS)
	}

	host.hook.ClearBindings()
	host.bindHotkeys(updated.Hotkeys)

	if updated.MacrosDir != previousDir {
		host.selection.SetMacro("")
		if err := host.watchMacros(updated.MacrosDir); err != nil {
			host.logger.Warn("macro watcher disabled", "err", err)
		}
	}
	host.showMacros(host.loadMacros())
	host.tray.SetPlayback(host.selection.Speed(), host.selection.Looping())
}

func (host *hostRuntime) bindHotkeys(hotkeys map[string]string) {
	names := make([]string, 0, len(hotkeys))
	for name := range hotkeys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := host.hook.Bind(hotkeys[name], name); err != nil {
			host.logger.Warn("hotkey ignored", "command", name, "err", err)
		}
	}
}

func (host *hostRuntime) currentSettings() preferences.Settings {
	host.mu.Lock()
	defer host.mu.Unlock()
	return host.settings
}

func (host *hostRuntime) saveSettings(settings preferences.Settings) {
	if err := storage.SaveSettings(host.settingsPath, settings); err != nil {
		host.logger.Warn("save settings", "path", host.settingsPath, "err", err)
	}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
