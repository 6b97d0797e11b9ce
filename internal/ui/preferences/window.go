package preferences

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"mousereel/internal/core/model"
)

// Window handles the preferences UI.
type Window struct {
	window    fyne.Window
	settings  Settings
	onSave    func(Settings)
	onCancel  func()
	macrosDir *widget.Entry
	quickSave *widget.Check
	looping   *widget.Check
	speed     *widget.Select
	cps       *widget.Entry
	interval  *widget.Entry
	hold      *widget.Entry
	hotkeys   map[string]*widget.Entry
}

// formValues is the raw text of every editable field.
type formValues struct {
	MacrosDir  string
	QuickSave  bool
	Looping    bool
	Speed      string
	CPS        string
	IntervalMS string
	HoldMS     string
	Hotkeys    map[string]string
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("MouseReel Settings")

	macrosDir := widget.NewEntry()
	quickSave := widget.NewCheck("Quick save (no file prompt)", nil)
	looping := widget.NewCheck("Loop playback", nil)
	speed := widget.NewSelect(speedLabels(), nil)
	cps := widget.NewEntry()
	interval := widget.NewEntry()
	hold := widget.NewEntry()

	hotkeys := make(map[string]*widget.Entry)
	hotkeyRows := container.NewVBox()
	for _, name := range sortedCommands(DefaultHotkeys(), settings.Hotkeys) {
		entry := widget.NewEntry()
		hotkeys[name] = entry
		hotkeyRows.Add(container.NewBorder(nil, nil, widget.NewLabel(name), nil, entry))
	}

	form := container.NewVBox(
		widget.NewLabelWithStyle("Recording", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, widget.NewLabel("Macros folder"), nil, macrosDir),
		quickSave,
		container.NewHBox(widget.NewLabel("Sample every"), interval, widget.NewLabel("ms")),
		container.NewHBox(widget.NewLabel("Minimum click hold"), hold, widget.NewLabel("ms")),
		widget.NewLabelWithStyle("Playback", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Speed"), speed),
		looping,
		widget.NewLabelWithStyle("Clicker", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Clicks per second"), cps),
		widget.NewLabelWithStyle("Hotkeys", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		hotkeyRows,
	)

	saveButton := widget.NewButton("Save", nil)
	cancelButton := widget.NewButton("Cancel", nil)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	content := container.NewBorder(nil, buttons, nil, nil, container.NewVScroll(form))
	window.SetContent(content)
	window.Resize(fyne.NewSize(460, 560))

	prefs := &Window{
		window:    window,
		onSave:    onSave,
		macrosDir: macrosDir,
		quickSave: quickSave,
		looping:   looping,
		speed:     speed,
		cps:       cps,
		interval:  interval,
		hold:      hold,
		hotkeys:   hotkeys,
	}
	prefs.UpdateSettings(settings)

	saveButton.OnTapped = prefs.handleSave
	cancelButton.OnTapped = func() {
		window.Hide()
		if prefs.onCancel != nil {
			prefs.onCancel()
		}
	}
	window.SetCloseIntercept(window.Hide)

	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.macrosDir.SetText(settings.MacrosDir)
	prefs.quickSave.SetChecked(settings.QuickSave)
	prefs.looping.SetChecked(settings.Looping)
	prefs.speed.SetSelected(SpeedLabel(settings.PlaybackSpeed))
	prefs.cps.SetText(strconv.FormatFloat(settings.ClickerCPS, 'f', -1, 64))
	prefs.interval.SetText(strconv.FormatInt(settings.SampleInterval.Milliseconds(), 10))
	prefs.hold.SetText(strconv.FormatInt(settings.MinimumHold.Milliseconds(), 10))
	for name, entry := range prefs.hotkeys {
		entry.SetText(settings.Hotkeys[name])
	}
}

func (prefs *Window) handleSave() {
	values := formValues{
		MacrosDir:  prefs.macrosDir.Text,
		QuickSave:  prefs.quickSave.Checked,
		Looping:    prefs.looping.Checked,
		Speed:      prefs.speed.Selected,
		CPS:        prefs.cps.Text,
		IntervalMS: prefs.interval.Text,
		HoldMS:     prefs.hold.Text,
		Hotkeys:    make(map[string]string, len(prefs.hotkeys)),
	}
	for name, entry := range prefs.hotkeys {
		values.Hotkeys[name] = entry.Text
	}

	settings := values.apply(prefs.settings)
	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

// apply overlays valid field values on settings; invalid fields keep the old value.
func (values formValues) apply(settings Settings) Settings {
	if dir := strings.TrimSpace(values.MacrosDir); dir != "" {
		settings.MacrosDir = dir
	}
	settings.QuickSave = values.QuickSave
	settings.Looping = values.Looping

	if speed, ok := ParseSpeedLabel(values.Speed); ok {
		settings.PlaybackSpeed = speed
	}
	if cps, err := strconv.ParseFloat(strings.TrimSpace(values.CPS), 64); err == nil && model.ValidCPS(cps) {
		settings.ClickerCPS = cps
	}
	if millis, ok := parsePositiveInt(values.IntervalMS); ok {
		settings.SampleInterval = time.Duration(millis) * time.Millisecond
	}
	if millis, ok := parsePositiveInt(values.HoldMS); ok {
		settings.MinimumHold = time.Duration(millis) * time.Millisecond
	}

	hotkeys := make(map[string]string, len(settings.Hotkeys))
	for name, combo := range settings.Hotkeys {
		hotkeys[name] = combo
	}
	for name, combo := range values.Hotkeys {
		combo = strings.ToLower(strings.TrimSpace(combo))
		if combo == "" {
			delete(hotkeys, name)
			continue
		}
		hotkeys[name] = combo
	}
	settings.Hotkeys = hotkeys
	return settings
}

// SpeedLabel renders a user-facing speed as "2x".
func SpeedLabel(speed float64) string {
	return fmt.Sprintf("%sx", strconv.FormatFloat(speed, 'f', -1, 64))
}

// ParseSpeedLabel accepts "2x" or "2" and rejects non-positive values.
func ParseSpeedLabel(label string) (float64, bool) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(label), "x")
	speed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || speed <= 0 || math.IsInf(speed, 0) || math.IsNaN(speed) {
		return 0, false
	}
	return speed, true
}

func speedLabels() []string {
	labels := make([]string, len(SpeedPresets))
	for index, preset := range SpeedPresets {
		labels[index] = SpeedLabel(preset)
	}
	return labels
}

func sortedCommands(sources ...map[string]string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, hotkeys := range sources {
		for name := range hotkeys {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
