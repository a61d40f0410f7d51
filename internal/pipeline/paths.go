package pipeline

import (
	"os"
	"path/filepath"
)

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentinsights")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "agentinsights")
}

// CachePath returns the default location of the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "cache.db")
}
