package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"mousereel/internal/core/macro"
	"mousereel/internal/core/session"
	"mousereel/internal/ui/preferences"
)

const (
	menuTitle = "MouseReel"
	maxMacros = 20
)

// Callbacks defines tray action handlers. They run on the UI thread.
type Callbacks struct {
	OnStartRecording func()
	OnStopRecording  func()
	OnPlay           func()
	OnForceStop      func()
	OnSelectMacro    func(path string)
	OnSetSpeed       func(speed float64)
	OnToggleLooping  func()
	OnToggleClicker  func()
	OnPreferences    func()
	OnQuit           func()
}

// Manager handles system tray state.
type Manager struct {
	app       desktop.App
	callbacks Callbacks

	state          session.State
	clickerRunning bool
	clicks         int64
	macros         []macro.Macro
	selected       string
	speed          float64
	looping        bool
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
		state:     session.StateIdle,
		speed:     1,
	}
	manager.refreshMenu()
	return manager
}

// SetState updates the session state shown in the status line.
func (manager *Manager) SetState(state session.State) {
	manager.state = state
	manager.refreshMenu()
}

// SetClicker updates the clicker status.
func (manager *Manager) SetClicker(running bool, clicks int64) {
	manager.clickerRunning = running
	manager.clicks = clicks
	manager.refreshMenu()
}

// SetMacros replaces the macro list and the selected path.
func (manager *Manager) SetMacros(macros []macro.Macro, selected string) {
	manager.macros = macros
	manager.selected = selected
	manager.refreshMenu()
}

// SetPlayback updates the speed and looping marks.
func (manager *Manager) SetPlayback(speed float64, looping bool) {
	manager.speed = speed
	manager.looping = looping
	manager.refreshMenu()
}

func (manager *Manager) statusLabel() string {
	status := fmt.Sprintf("Status: %s", manager.state)
	if manager.clickerRunning {
		status = fmt.Sprintf("%s, clicking (%d)", status, manager.clicks)
	}
	return status
}

func (manager *Manager) menu() *fyne.Menu {
	status := fyne.NewMenuItem(manager.statusLabel(), nil)
	status.Disabled = true

	record := fyne.NewMenuItem("Start recording", manager.callbacks.OnStartRecording)
	stopRecord := fyne.NewMenuItem("Stop recording", manager.callbacks.OnStopRecording)
	play := fyne.NewMenuItem("Play selected macro", manager.callbacks.OnPlay)
	stop := fyne.NewMenuItem("Stop everything", manager.callbacks.OnForceStop)

	record.Disabled = manager.state != session.StateIdle
	stopRecord.Disabled = manager.state != session.StateRecording
	play.Disabled = manager.state != session.StateIdle || manager.selected == ""

	macros := fyne.NewMenuItem("Macros", nil)
	macros.ChildMenu = fyne.NewMenu("", manager.macroItems()...)

	speed := fyne.NewMenuItem("Playback speed", nil)
	speed.ChildMenu = fyne.NewMenu("", manager.speedItems()...)

	looping := fyne.NewMenuItem("Loop playback", manager.callbacks.OnToggleLooping)
	looping.Checked = manager.looping

	clickerLabel := "Start clicker"
	if manager.clickerRunning {
		clickerLabel = "Stop clicker"
	}
	clicker := fyne.NewMenuItem(clickerLabel, manager.callbacks.OnToggleClicker)

	prefs := fyne.NewMenuItem("Preferences", manager.callbacks.OnPreferences)
	quit := fyne.NewMenuItem("Quit", manager.callbacks.OnQuit)
	quit.IsQuit = true

	return fyne.NewMenu(menuTitle,
		status,
		fyne.NewMenuItemSeparator(),
		record, stopRecord, play, stop,
		fyne.NewMenuItemSeparator(),
		macros, speed, looping,
		fyne.NewMenuItemSeparator(),
		clicker, prefs, quit,
	)
}

func (manager *Manager) macroItems() []*fyne.MenuItem {
	if len(manager.macros) == 0 {
		empty := fyne.NewMenuItem("No macros recorded", nil)
		empty.Disabled = true
		return []*fyne.MenuItem{empty}
	}
	count := len(manager.macros)
	if count > maxMacros {
		count = maxMacros
	}
	items := make([]*fyne.MenuItem, 0, count)
	for _, entry := range manager.macros[:count] {
		path := entry.Path
		item := fyne.NewMenuItem(entry.Name, func() {
			if manager.callbacks.OnSelectMacro != nil {
				manager.callbacks.OnSelectMacro(path)
			}
		})
		item.Checked = path == manager.selected
		items = append(items, item)
	}
	return items
}

func (manager *Manager) speedItems() []*fyne.MenuItem {
	items := make([]*fyne.MenuItem, 0, len(preferences.SpeedPresets))
	for _, preset := range preferences.SpeedPresets {
		speed := preset
		item := fyne.NewMenuItem(preferences.SpeedLabel(speed), func() {
			if manager.callbacks.OnSetSpeed != nil {
				manager.callbacks.OnSetSpeed(speed)
			}
		})
		item.Checked = speed == manager.speed
		items = append(items, item)
	}
	return items
}

func (manager *Manager) refreshMenu() {
	if manager.app != nil {
		manager.app.SetSystemTrayMenu(manager.menu())
	}
}
