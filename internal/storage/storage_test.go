package storage

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mousereel/internal/core/command"
	"mousereel/internal/core/macro"
	"mousereel/internal/ui/preferences"
)

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "nope", settingsFileName))
	require.NoError(t, err)
	assert.Equal(t, preferences.DefaultSettings(), settings)
}

func TestSettingsRoundTrip(t *testing.T) {
	path := SettingsPath(filepath.Join(t.TempDir(), "MouseReel"))

	settings := preferences.DefaultSettings()
	settings.MacrosDir = "/data/macros"
	settings.QuickSave = false
	settings.Looping = true
	settings.PlaybackSpeed = 5
	settings.ClickerCPS = 12.5
	settings.SampleInterval = 15 * time.Millisecond
	settings.MinimumHold = 40 * time.Millisecond
	settings.Hotkeys[command.ToggleClicker] = "f8"

	require.NoError(t, SaveSettings(path, settings))
	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}

func TestLoadSettingsIgnoresOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFileName)
	content := `
playback_speed: -2
clicker_cps: 5000
sample_interval_ms: 0
minimum_hold_ms: -5
hotkeys:
  force-stop: ""
  toggle-clicker: f8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	defaults := preferences.DefaultSettings()
	assert.Equal(t, defaults.PlaybackSpeed, settings.PlaybackSpeed)
	assert.Equal(t, defaults.ClickerCPS, settings.ClickerCPS)
	assert.Equal(t, defaults.SampleInterval, settings.SampleInterval)
	assert.Equal(t, defaults.MinimumHold, settings.MinimumHold)
	assert.True(t, settings.QuickSave, "omitted quick_save keeps the default")
	assert.NotContains(t, settings.Hotkeys, command.ForceStop)
	assert.Equal(t, "f8", settings.Hotkeys[command.ToggleClicker])
	assert.Equal(t, "space", settings.Hotkeys[command.StartRecording])
}

func TestLoadSettingsRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFileName)
	require.NoError(t, os.WriteFile(path, []byte("hotkeys: [unclosed"), 0o644))

	settings, err := LoadSettings(path)
	assert.ErrorContains(t, err, "parse settings yaml")
	assert.Equal(t, preferences.DefaultSettings(), settings)
}

func TestListMacrosNewestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for index, name := range []string{"old.csv", "newest.CSV", "middle.csv"} {
		path := filepath.Join(dir, name)
		require.NoError(t, macro.SaveFile(path, []macro.Sample{{X: index}}))
		stamp := base.Add(time.Duration([]int{0, 2, 1}[index]) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pending.csv.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	macros, err := ListMacros(dir)
	require.NoError(t, err)
	names := make([]string, len(macros))
	for index, item := range macros {
		names[index] = item.Name
		assert.Empty(t, item.Samples)
	}
	assert.Equal(t, []string{"newest", "middle", "old"}, names)
	assert.Equal(t, filepath.Join(dir, "newest.CSV"), macros[0].Path)
}

func TestListMacrosMissingDir(t *testing.T) {
	macros, err := ListMacros(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, macros)
}

func TestWatchMacrosReportsSaves(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "macros")
	var changes atomic.Int32
	watcher, err := WatchMacros(dir, 20*time.Millisecond, func() { changes.Add(1) }, nil)
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, changes.Load())

	require.NoError(t, macro.SaveFile(filepath.Join(dir, macro.FileName(time.Now())), []macro.Sample{{X: 1}}))
	require.Eventually(t, func() bool { return changes.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, watcher.Close())
	require.NoError(t, watcher.Close())
}
