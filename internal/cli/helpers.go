package cli

import (
	"fmt"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/config"
	"github.com/cperrin88/modstack/pkg/library"
	"github.com/cperrin88/modstack/pkg/model"
	"github.com/fatih/color"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
	LibraryDir *string
	InstallDir *string
)

// loadConfig loads the configuration file and applies the global flag overrides.
// A missing configuration file yields the defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if LibraryDir != nil && *LibraryDir != "" {
		cfg.Settings.LibraryDir = *LibraryDir
	}
	if InstallDir != nil && *InstallDir != "" {
		cfg.Settings.InstallDir = *InstallDir
	}
	if NoColor != nil && *NoColor {
		cfg.Settings.ColorOutput = false
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	logger.InitLogger(cfg.Settings.LogLevel, logger.OutputFormat(cfg.Settings.OutputFormat))
	color.NoColor = color.NoColor || !cfg.Settings.ColorOutput
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// openLibrary opens the configured library and loads its record.
func openLibrary(cfg *config.Config) (*library.Library, *model.PatchLibrary, error) {
	dir, err := cfg.GetLibraryDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to determine library directory: %w", err)
	}
	lib, err := library.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	rec, err := lib.Load()
	if err != nil {
		return nil, nil, err
	}
	if rec.GameIdentifier == "" {
		rec.GameIdentifier = cfg.Settings.Game
	}
	return lib, rec, nil
}
