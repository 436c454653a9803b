// Package config handles configuration loading for qacoord.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// ProjectConfigName is the project-level override file searched for in the
// working directory and its parents.
const ProjectConfigName = ".qacoord.yaml"

// Accessor is the read-only dotted-path view handed to wrappers.
type Accessor interface {
	// Get returns the value at key, or def when the key is unset.
	Get(key string, def any) any
	GetString(key, def string) string
	GetStringSlice(key string, def []string) []string
	GetInt(key string, def int) int
	GetBool(key string, def bool) bool
	GetDuration(key string, def time.Duration) time.Duration
}

// Config holds the typed top-level settings plus the raw store used by the accessor.
type Config struct {
	Execution ExecutionConfig        `mapstructure:"execution"`
	Logging   LoggingConfig          `mapstructure:"logging"`
	History   HistoryConfig          `mapstructure:"history"`
	Scopes    map[string]ScopeConfig `mapstructure:"scopes"`

	store *Store
}

// ExecutionConfig holds controller settings.
type ExecutionConfig struct {
	// DefaultTimeout applies to tools without their own timeout.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	// MaxParallel caps concurrent tools within a parallel group (0 = unlimited).
	MaxParallel int `mapstructure:"max_parallel"`
	// StopOnCritical aborts remaining groups after a critical failure.
	StopOnCritical bool `mapstructure:"stop_on_critical"`
	// SequentialDimensions forces extra dimensions to run one tool at a time.
	SequentialDimensions []string `mapstructure:"sequential_dimensions"`
	// Order is the group ordering: first_seen or canonical.
	Order string `mapstructure:"order"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables the .qacoord/logs/coordinator.log sink.
	File bool `mapstructure:"file"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ScopeConfig maps a scope to repository path prefixes.
type ScopeConfig struct {
	Paths []string `mapstructure:"paths"`
}

// Store is a concurrency-safe viper wrapper implementing Accessor.
type Store struct {
	mu sync.RWMutex
	v  *viper.Viper
}

// Accessor returns the dotted-path view of the loaded configuration.
func (c *Config) Accessor() Accessor {
	return c.store
}

// Store returns the underlying store.
func (c *Config) Store() *Store {
	return c.store
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (QACOORD_EXECUTION_DEFAULT_TIMEOUT, ...)
// 2. Project config (.qacoord.yaml in current directory or parent)
// 3. User config (~/.config/qacoord/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return decode(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)
	return decode(v)
}

// Default returns a Config with built-in defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		// Built-in defaults always decode.
		panic(err)
	}
	return cfg
}

// FromMap builds a Config from defaults overlaid with the given settings.
// Intended for tests and embedding callers.
func FromMap(settings map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := v.MergeConfigMap(settings); err != nil {
		return nil, fmt.Errorf("merging settings: %w", err)
	}
	return decode(v)
}

// Save writes a single key to the user config file, keeping other values.
func Save(key string, value any) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", configPath, err)
		}
	}
	v.Set(key, value)

	return v.WriteConfigAs(configPath)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.store = &Store{v: v}
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("QACOORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// getUserConfigDir returns the XDG config directory for qacoord.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "qacoord")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "qacoord")
	}
	return filepath.Join(home, ".config", "qacoord")
}

// findProjectConfig searches for .qacoord.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Get returns the value at key, or def when unset.
func (s *Store) Get(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.Get(key)
}

// GetString returns the string at key, or def when unset.
func (s *Store) GetString(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetString(key)
}

// GetStringSlice returns the string slice at key, or def when unset.
func (s *Store) GetStringSlice(key string, def []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetStringSlice(key)
}

// GetInt returns the int at key, or def when unset.
func (s *Store) GetInt(key string, def int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetInt(key)
}

// GetBool returns the bool at key, or def when unset.
func (s *Store) GetBool(key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetBool(key)
}

// GetDuration returns the duration at key, or def when unset.
func (s *Store) GetDuration(key string, def time.Duration) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetDuration(key)
}

// AllSettings returns a copy of every resolved setting.
func (s *Store) AllSettings() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.AllSettings()
}

// Keys returns every resolved key in dotted form.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.AllKeys()
}

var _ Accessor = (*Store)(nil)
