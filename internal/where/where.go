// Package where resolves the directories yomu reads from and writes to.
package where

import (
	"os"
	"path/filepath"

	"github.com/metcalfc/yomu/internal/filesystem"
)

const appName = "yomu"

// EnvConfigPath overrides the config directory when set.
const EnvConfigPath = "YOMU_CONFIG_PATH"

func mkdir(dir string) string {
	_ = filesystem.API().MkdirAll(dir, 0755)
	return dir
}

// Config returns XDG_CONFIG_HOME/yomu or ~/.config/yomu
func Config() string {
	if dir := os.Getenv(EnvConfigPath); dir != "" {
		return mkdir(dir)
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return mkdir(filepath.Join(dir, appName))
	}
	home, _ := os.UserHomeDir()
	return mkdir(filepath.Join(home, ".config", appName))
}

// State returns XDG_STATE_HOME/yomu or ~/.local/state/yomu
func State() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return mkdir(filepath.Join(dir, appName))
	}
	home, _ := os.UserHomeDir()
	return mkdir(filepath.Join(home, ".local", "state", appName))
}

// Logs returns the directory log files are written to.
func Logs() string {
	return mkdir(filepath.Join(State(), "logs"))
}
