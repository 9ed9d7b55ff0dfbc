package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Storage backend names accepted by StorageConfig.Backend.
const (
	BackendSQLite  = "sqlite"
	BackendKeyring = "keyring"
)

// StorageConfig selects and tunes the persistence backend.
type StorageConfig struct {
	// Backend is "sqlite" or "keyring".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the SQLite database file, or the keyring file directory.
	Path string `mapstructure:"path" yaml:"path"`

	// QuotaBytes caps the total size of stored records. Zero disables it.
	QuotaBytes int64 `mapstructure:"quota_bytes" yaml:"quota_bytes"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AutosaveConfig controls the background save loop.
type AutosaveConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	IntervalSec int  `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// Interval returns the autosave period, falling back to 30s.
func (c AutosaveConfig) Interval() time.Duration {
	if c.IntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.IntervalSec) * time.Second
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Autosave AutosaveConfig `mapstructure:"autosave" yaml:"autosave"`

	// Locale is a BCP 47 tag used for alphabetical ordering.
	Locale string `mapstructure:"locale" yaml:"locale"`

	// SampleData seeds two users and a few tasks on an empty store.
	SampleData bool `mapstructure:"sample_data" yaml:"sample_data"`
}

// configDir returns ~/.config/taskboard, or "." when home is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskboard")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *AppConfig {
	dir := configDir()
	return &AppConfig{
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			Path:       filepath.Join(dir, "taskboard.db"),
			QuotaBytes: 5 << 20,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "taskboard.log"),
		},
		Display:    DisplayConfig{Theme: "default"},
		Autosave:   AutosaveConfig{Enabled: true, IntervalSec: 30},
		Locale:     "en",
		SampleData: true,
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("storage.backend", def.Storage.Backend)
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("storage.quota_bytes", def.Storage.QuotaBytes)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("autosave.enabled", def.Autosave.Enabled)
	v.SetDefault("autosave.interval_sec", def.Autosave.IntervalSec)
	v.SetDefault("locale", def.Locale)
	v.SetDefault("sample_data", def.SampleData)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &pathErr) || errors.As(err, &notFound) {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	switch cfg.Storage.Backend {
	case BackendSQLite, BackendKeyring:
	default:
		return nil, fmt.Errorf("config %s: unknown storage backend %q: %w",
			path, cfg.Storage.Backend, ErrValidation)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("storage.backend", cfg.Storage.Backend)
	v.Set("storage.path", cfg.Storage.Path)
	v.Set("storage.quota_bytes", cfg.Storage.QuotaBytes)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("display.theme", cfg.Display.Theme)
	v.Set("autosave.enabled", cfg.Autosave.Enabled)
	v.Set("autosave.interval_sec", cfg.Autosave.IntervalSec)
	v.Set("locale", cfg.Locale)
	v.Set("sample_data", cfg.SampleData)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
