// Package config provides configuration management for modstack.
// It loads and validates the YAML configuration file, fills in defaults and writes the
// file back atomically. Command line flags override individual settings at runtime.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Library settings
	LibraryDir string `yaml:"library_dir,omitempty"` // Defaults to <data_dir>/libraries/<game>
	Game       string `yaml:"game,omitempty"`

	// Target settings
	InstallDir    string `yaml:"install_dir,omitempty"`
	ArchiveFormat string `yaml:"archive_format"` // location id assigned to imported archive files

	// Script run after every apply, empty to disable
	PostApplyHook string `yaml:"post_apply_hook,omitempty"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // text, json
	ColorOutput  bool   `yaml:"color_output"`
	LogLevel     string `yaml:"log_level"` // error, warn, info, debug
}

const (
	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			ArchiveFormat: archive.LocationIDTar,
			OutputFormat:  "text",
			ColorOutput:   true,
			LogLevel:      "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errutils.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errutils.Wrap(errutils.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errutils.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errutils.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) (err error) {
	if path == "" {
		return errutils.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errutils.Wrap(errutils.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errutils.Wrap(errutils.ErrConfigDirectory, err.Error())
	}

	file, err := os.CreateTemp(filepath.Dir(absPath), ".config-*.tmp")
	if err != nil {
		return errutils.Wrap(errutils.ErrConfigFileCreate, err.Error())
	}
	tempPath := file.Name()
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(tempPath)
		}
	}()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)
	if err = encoder.Encode(c); err != nil {
		return errutils.Wrap(errutils.ErrConfigEncode, err.Error())
	}
	if err = encoder.Close(); err != nil {
		return errutils.Wrap(errutils.ErrConfigEncode, err.Error())
	}
	if err = file.Close(); err != nil {
		return errutils.Wrap(errutils.ErrConfigFileCreate, err.Error())
	}
	if err = os.Chmod(tempPath, fsutil.FileModeDefault); err != nil {
		return errutils.Wrap(errutils.ErrConfigFileCreate, err.Error())
	}

	// Atomically replace the config file
	if err = os.Rename(tempPath, absPath); err != nil {
		return errutils.Wrap(errutils.ErrConfigFileRename, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errutils.ErrConfigValidation
	}
	return validateSettings(c.Settings)
}

func validateSettings(s Settings) error {
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return fmt.Errorf("invalid output_format '%s', must be one of: text, json", s.OutputFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errutils.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	formats := archive.DefaultRegistry().IDs()
	if !slices.Contains(formats, s.ArchiveFormat) {
		return errutils.ErrInvalidArchiveFormatWithDetails(s.ArchiveFormat, formats)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, fsutil.AppName, "config.yaml"), nil
}

// GetLibraryDir returns the configured library directory or the default one of the
// configured game.
func (c *Config) GetLibraryDir() (string, error) {
	if c.Settings.LibraryDir != "" {
		return c.Settings.LibraryDir, nil
	}
	return fsutil.GetLibraryDir(c.Settings.Game)
}

// GetInstallDir returns the install directory or ErrEmptyInstallDir.
func (c *Config) GetInstallDir() (string, error) {
	if c.Settings.InstallDir == "" {
		return "", errutils.ErrEmptyInstallDir
	}
	return c.Settings.InstallDir, nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.ArchiveFormat == "" {
		c.Settings.ArchiveFormat = defaults.Settings.ArchiveFormat
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.Settings.OutputFormat
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
