// Package app provides the application initialization and wiring.
package app

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultReportsDir is where records and incident documents go, relative to
// the workspace.
const DefaultReportsDir = ".shipit/reports"

// DefaultConfigDir returns the user config directory for shipit.
// Uses $XDG_CONFIG_HOME/shipit, ~/.config/shipit as fallback.
func DefaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "shipit")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "shipit")
	}
	return ""
}

// ConfigureViper sets up viper with standard config file search paths.
// Config file: shipit.toml
// Search paths (in order): current directory, user config directory
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.SetConfigName("shipit")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if dir := DefaultConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	}
}

// resolvePath makes path absolute relative to base. Absolute paths are kept.
func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
