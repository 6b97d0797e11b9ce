package main

import (
	"errors"
	"os"
	"strings"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"mousereel/internal/core/clicker"
	"mousereel/internal/core/command"
	"mousereel/internal/core/session"
	"mousereel/internal/logging"
	"mousereel/internal/platform"
	"mousereel/internal/storage"
	"mousereel/internal/ui/preferences"
	"mousereel/internal/ui/prompt"
	"mousereel/internal/ui/tray"
)

func main() {
	logger := logging.Default()
	logger.SetLevel(logging.ParseLevel(os.Getenv("MOUSEREEL_LOG")))

	// `mousereel play-selected-macro` drives an already running instance.
	launchCommand := strings.TrimSpace(strings.Join(os.Args[1:], " "))

	guard, err := platform.AcquireSingleInstance(platform.AppName, logger)
	if err != nil {
		if !errors.Is(err, platform.ErrAlreadyRunning) {
			logger.Error("single instance", "err", err)
			return
		}
		if launchCommand == "" {
			logger.Warn("another instance is running", "err", err)
			return
		}
		if err := platform.ForwardCommand(platform.AppName, launchCommand); err != nil {
			logger.Error("forward command", "command", launchCommand, "err", err)
			os.Exit(1)
		}
		logger.Info("command forwarded", "command", launchCommand)
		return
	}
	defer func() {
		_ = guard.Release()
	}()

	configDir, err := platform.ConfigDir()
	if err != nil {
		logger.Error("config dir", "err", err)
		return
	}
	settingsPath := storage.SettingsPath(configDir)
	settings, err := storage.LoadSettings(settingsPath)
	if err != nil {
		logger.Warn("load settings, using defaults", "path", settingsPath, "err", err)
	}
	if settings.MacrosDir == "" {
		if settings.MacrosDir, err = platform.DefaultMacrosDir(); err != nil {
			logger.Error("macros dir", "err", err)
			return
		}
	}

	fyneApp := app.NewWithID("com.mousereel.app")
	fyneApp.SetIcon(theme.MediaRecordIcon())
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		logger.Error("system tray unsupported on this platform")
		return
	}

	trayWindow := fyneApp.NewWindow("MouseReel")
	trayWindow.SetContent(widget.NewLabel("MouseReel is running in the system tray."))
	trayWindow.SetCloseIntercept(func() {
		trayWindow.Hide()
	})
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	inputHook := platform.NewHook(logger)
	input := platform.NewInput(platform.NewButtonState(inputHook))

	controller := session.New(settings.EngineConfig(), input, input, session.Options{Logger: logger})
	controller.SetInterrupter(platform.NewInterrupter(inputHook))
	controller.SetSavePrompter(prompt.NewSaveDialog(fyneApp))

	clickLoop := clicker.New(input, settings.ClickerConfig(), logger)

	selection := command.NewSelection(settings.PlaybackSpeed, settings.Looping, settings.QuickSave)
	dispatcher := command.NewDispatcher()
	command.Bind(dispatcher, controller, clickLoop, selection)

	host := newHost(hostDeps{
		app:          fyneApp,
		logger:       logger,
		settingsPath: settingsPath,
		settings:     settings,
		controller:   controller,
		clicker:      clickLoop,
		dispatcher:   dispatcher,
		selection:    selection,
		hook:         inputHook,
	})

	trayManager := tray.New(desktopApp, tray.Callbacks{
		OnStartRecording: func() { host.enqueue(command.StartRecording) },
		OnStopRecording:  func() { host.enqueue(command.StopRecording) },
		OnPlay:           func() { host.enqueue(command.PlaySelectedMacro) },
		OnForceStop:      func() { host.enqueue(command.ForceStop) },
		OnSelectMacro: func(path string) {
			host.enqueue(command.SelectMacro, path)
		},
		OnSetSpeed: func(speed float64) {
			host.enqueue(command.SetPlaybackSpeed, formatFloat(speed))
		},
		OnToggleLooping: func() { host.enqueue(command.ToggleLooping) },
		OnToggleClicker: func() { host.enqueue(command.ToggleClicker) },
		OnPreferences: func() {
			host.showPreferences()
		},
		OnQuit: func() {
			host.shutdown()
			fyneApp.Quit()
		},
	})
	host.setTray(trayManager)

	host.setPreferences(preferences.New(fyneApp, settings, func(updated preferences.Settings) {
		host.applySettings(updated)
	}))

	desktopApp.SetSystemTrayIcon(theme.MediaRecordIcon())

	host.start()
	guard.Serve(host.acceptForwarded)
	if launchCommand != "" {
		if err := host.acceptForwarded(launchCommand); err != nil {
			logger.Warn("launch command ignored", "command", launchCommand, "err", err)
		}
	}
	fyneApp.Lifecycle().SetOnStopped(host.shutdown)
	fyneApp.Run()
}
