// Package config loads and saves the agentinsights settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/theirongolddev/agentinsights/internal/model"
)

// HomeEnv overrides the home directory the agent roots are derived from.
const HomeEnv = "AGENTINSIGHTS_HOME"

// Config holds all agentinsights configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Agents     AgentsConfig     `toml:"agents"`
	Cache      CacheConfig      `toml:"cache"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultDays int    `toml:"default_days"`
	HomeDir     string `toml:"home_dir,omitempty"`
}

// AgentsConfig overrides individual agent log roots.
type AgentsConfig struct {
	ClaudeDir string `toml:"claude_dir,omitempty"`
	CodexDir  string `toml:"codex_dir,omitempty"`
	GeminiDir string `toml:"gemini_dir,omitempty"`
}

// CacheConfig controls the record cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path,omitempty"`
}

// DaemonConfig holds settings for the background service.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	EventsBuffer int    `toml:"events_buffer"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDays: 365,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			EventsBuffer: 200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentinsights")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "agentinsights")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// EnvPath returns the optional dotenv file next to the config file.
func EnvPath() string {
	return filepath.Join(ConfigDir(), ".env")
}

// LoadEnv loads EnvPath into the process environment. Variables that are
// already set win. A missing file is not an error.
func LoadEnv() error {
	if err := godotenv.Load(EnvPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", EnvPath(), err)
	}
	return nil
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads the config at path, returning defaults if it doesn't exist.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to ConfigPath.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes the config to path with owner-only permissions.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if encErr != nil {
		encErr = fmt.Errorf("writing config file: %w", encErr)
	}
	return errors.Join(encErr, f.Close())
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// HomeDir returns the directory agent roots live under: $AGENTINSIGHTS_HOME,
// then general.home_dir, then the user's home directory.
func HomeDir(cfg Config) string {
	if h := os.Getenv(HomeEnv); h != "" {
		return h
	}
	if cfg.General.HomeDir != "" {
		return cfg.General.HomeDir
	}
	home, _ := os.UserHomeDir()
	return home
}

// AgentRoots returns the configured per-agent root overrides.
func AgentRoots(cfg Config) map[model.AgentKind]string {
	return map[model.AgentKind]string{
		model.AgentClaude: cfg.Agents.ClaudeDir,
		model.AgentCodex:  cfg.Agents.CodexDir,
		model.AgentGemini: cfg.Agents.GeminiDir,
	}
}
