package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"mousereel/internal/core/model"
	"mousereel/internal/ui/preferences"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	MacrosDir        string            `yaml:"macros_dir"`
	QuickSave        *bool             `yaml:"quick_save"`
	Looping          bool              `yaml:"looping"`
	PlaybackSpeed    float64           `yaml:"playback_speed"`
	ClickerCPS       float64           `yaml:"clicker_cps"`
	SampleIntervalMS int               `yaml:"sample_interval_ms"`
	MinimumHoldMS    int               `yaml:"minimum_hold_ms"`
	Hotkeys          map[string]string `yaml:"hotkeys"`
}

// SettingsPath returns the settings file location inside configDir.
func SettingsPath(configDir string) string {
	return filepath.Join(configDir, settingsFileName)
}

// LoadSettings reads user preferences from YAML.
// If the file does not exist, default settings are returned.
func LoadSettings(path string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func SaveSettings(path string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	quickSave := settings.QuickSave
	fileData := yamlSettings{
		MacrosDir:        settings.MacrosDir,
		QuickSave:        &quickSave,
		Looping:          settings.Looping,
		PlaybackSpeed:    settings.PlaybackSpeed,
		ClickerCPS:       settings.ClickerCPS,
		SampleIntervalMS: int(settings.SampleInterval / time.Millisecond),
		MinimumHoldMS:    int(settings.MinimumHold / time.Millisecond),
		Hotkeys:          settings.Hotkeys,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.MacrosDir != "" {
		settings.MacrosDir = fileData.MacrosDir
	}
	if fileData.QuickSave != nil {
		settings.QuickSave = *fileData.QuickSave
	}
	settings.Looping = fileData.Looping

	if fileData.PlaybackSpeed > 0 {
		settings.PlaybackSpeed = fileData.PlaybackSpeed
	}
	if model.ValidCPS(fileData.ClickerCPS) {
		settings.ClickerCPS = fileData.ClickerCPS
	}
	if fileData.SampleIntervalMS > 0 {
		settings.SampleInterval = time.Duration(fileData.SampleIntervalMS) * time.Millisecond
	}
	if fileData.MinimumHoldMS > 0 {
		settings.MinimumHold = time.Duration(fileData.MinimumHoldMS) * time.Millisecond
	}

	for name, combo := range fileData.Hotkeys {
		if combo == "" {
			delete(settings.Hotkeys, name)
			continue
		}
		settings.Hotkeys[name] = combo
	}
}
