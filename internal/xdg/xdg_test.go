package xdg_test

import (
	"path/filepath"
	"testing"

	"github.com/richardxx/ojtester/internal/xdg"
	"github.com/stretchr/testify/assert"
)

func TestFromEnvironment(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/srv/state")
	t.Setenv("XDG_CACHE_HOME", "/srv/cache")

	d := xdg.New()
	assert.Equal(t, "/srv/state/autotester", d.StateDir())
	assert.Equal(t, "/srv/cache/autotester", d.CacheDir())
}

func TestFallsBackToHome(t *testing.T) {
	t.Setenv("HOME", "/home/judge")
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "relative/cache")

	d := xdg.New()
	assert.Equal(t, filepath.Join("/home/judge", ".local", "state", "autotester"), d.StateDir())
	assert.Equal(t, filepath.Join("/home/judge", ".cache", "autotester"), d.CacheDir())
}
