package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every install target.
type Config struct {
	// UserAgent is sent with every HTTP request.
	UserAgent string `yaml:"user_agent"`
	// MaxAttempts bounds how many times an in-memory download is issued
	// when the server does not report a content length.
	MaxAttempts int `yaml:"max_attempts"`
	// TempDir is where large archives are staged before extraction.
	TempDir string `yaml:"temp_dir"`
	// Timeout limits a single HTTP request including the body transfer. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
	// Progress enables the progress bar on stderr.
	Progress *bool `yaml:"progress"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the settings file looked up when no path is given.
	DefaultConfigFilename = "plutonium-manager.yaml"

	// DefaultUserAgent identifies the tool to the remote hosts.
	DefaultUserAgent = "plutonium-manager"

	// DefaultMaxAttempts is the bound for the missing content length retry.
	DefaultMaxAttempts = 3

	// DefaultFilePermissions is the file permission for saved settings.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeAttempts is returned when max_attempts is below zero.
	errNegativeAttempts = errors.New("max_attempts must not be negative")
	// errNegativeTimeout is returned when timeout is below zero.
	errNegativeTimeout = errors.New("timeout must not be negative")

	// ErrSettingsExist is returned by Init when the file is already present.
	ErrSettingsExist = errors.New("settings file already exists")
)

// Default returns settings with every field populated.
func Default() *Config {
	cfg := new(Config)
	_ = Validate(cfg) //nolint:errcheck // Zero values always validate.

	return cfg
}

// Load reads settings from path and validates them.
// A missing file at the default location yields the defaults; a missing
// file that was asked for explicitly is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Init writes the default settings to path unless a file is already there.
// With overwrite, an existing file is replaced.
func Init(path string, overwrite bool) (string, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return "", fmt.Errorf("%s: %w", path, ErrSettingsExist)
	}

	if err := Save(path, Default()); err != nil {
		return "", err
	}

	return path, nil
}

// Validate rejects impossible values and fills in defaults for unset fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.MaxAttempts < 0 {
		return errNegativeAttempts
	}

	if cfg.Timeout < 0 {
		return errNegativeTimeout
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	if cfg.Progress == nil {
		enabled := true
		cfg.Progress = &enabled
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return nil
}

// ShowProgress reports whether the progress bar is enabled.
func (c *Config) ShowProgress() bool {
	return c.Progress == nil || *c.Progress
}
