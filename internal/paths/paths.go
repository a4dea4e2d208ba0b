// Package paths resolves where cursorbox keeps its configuration and data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under the platform locations.
const AppName = "cursorbox"

// ConfigFile is the configuration file name inside the config directory.
const ConfigFile = "config.yaml"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CURSORBOX_CONFIG_DIR"
	EnvDataDir   = "CURSORBOX_DATA_DIR"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	goos          string
	getenv        func(string) string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	getenv:        os.Getenv,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/cursorbox (fallback ~/.config/cursorbox)
// macOS:   ~/Library/Application Support/cursorbox
// Windows: %APPDATA%/cursorbox
func DefaultConfigDir() (string, error) {
	return xdgOrUserConfig("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/cursorbox (fallback ~/.local/share/cursorbox)
// macOS:   ~/Library/Application Support/cursorbox
// Windows: %APPDATA%/cursorbox
func DefaultDataDir() (string, error) {
	return xdgOrUserConfig("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgOrUserConfig(xdgVar, homeRel string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := platformDir.getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppName), nil
}

// ResolveConfigDir applies the precedence flag > CURSORBOX_CONFIG_DIR >
// DefaultConfigDir. Overrides are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(DefaultConfigDir, flag, platformDir.getenv(EnvConfigDir))
}

// ResolveDataDir applies the precedence flag > config file value >
// CURSORBOX_DATA_DIR > DefaultDataDir. Overrides are made absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(DefaultDataDir, flag, configValue, platformDir.getenv(EnvDataDir))
}

func resolve(fallback func() (string, error), overrides ...string) (string, error) {
	for _, o := range overrides {
		if o != "" {
			return filepath.Abs(o)
		}
	}
	return fallback()
}
