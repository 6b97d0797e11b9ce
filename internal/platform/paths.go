package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user config directory and the instance lock.
const AppName = "MouseReel"

// ConfigDir returns the application directory under the OS-standard config root.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return filepath.Join(configDir, AppName), nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return filepath.Join(fallbackConfigDir(homeDir, runtime.GOOS), AppName), nil
}

// DefaultMacrosDir is where recordings land unless settings override it.
func DefaultMacrosDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get macros dir: %w", err)
	}
	return filepath.Join(homeDir, AppName, "macros"), nil
}

func fallbackConfigDir(homeDir, goos string) string {
	switch goos {
	case "windows":
		return filepath.Join(homeDir, "AppData", "Roaming")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support")
	default:
		return filepath.Join(homeDir, ".config")
	}
}
