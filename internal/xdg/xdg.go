// Package xdg resolves the per-user state and cache locations of the
// XDG Base Directory layout.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every base directory.
const AppName = "autotester"

type Dirs struct {
	stateHome string
	cacheHome string
}

func New() *Dirs {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
		if home == "" {
			home = os.TempDir()
		}
	}

	return &Dirs{
		stateHome: fromEnv("XDG_STATE_HOME", filepath.Join(home, ".local", "state")),
		cacheHome: fromEnv("XDG_CACHE_HOME", filepath.Join(home, ".cache")),
	}
}

// relative values are invalid per the layout and are ignored
func fromEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" && filepath.IsAbs(v) {
		return v
	}
	return fallback
}

// StateDir is where the last used session is remembered.
func (d *Dirs) StateDir() string {
	return filepath.Join(d.stateHome, AppName)
}

// CacheDir is where compiled programs are kept.
func (d *Dirs) CacheDir() string {
	return filepath.Join(d.cacheHome, AppName)
}
