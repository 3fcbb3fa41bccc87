// Package paths resolves where the featurestore CLI keeps its config file
// and where stores live when a locator names no directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "featurestore"

// ConfigFileName is the CLI config file inside the config directory.
const ConfigFileName = "config.yaml"

// DefaultDataDirName is the CWD-relative store root used when nothing
// else is configured.
const DefaultDataDirName = ".featurestore"

// Environment variables that override directory resolution.
const (
	EnvConfigDir = "FEATURESTORE_CONFIG_DIR"
	EnvDataDir   = "FEATURESTORE_DATA_DIR"
)

var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// userDir returns the per-user directory for AppName. On Linux it honours
// xdgEnv and falls back to ~/<linuxRel>. Other platforms use
// os.UserConfigDir.
func userDir(xdgEnv string, linuxRel ...string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, linuxRel...), AppName)...), nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/featurestore on Linux
// (~/.config/featurestore when unset) and the user config dir elsewhere.
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// ResolveConfigDir applies flag > FEATURESTORE_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config file value > FEATURESTORE_DATA_DIR >
// $(CWD)/.featurestore. The result is always absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, dir := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	return filepath.Abs(DefaultDataDirName)
}
