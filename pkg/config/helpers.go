package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SetValue sets a configuration value by key
// Supported keys:
//   - library_dir: string - Directory holding the patch library
//   - install_dir: string - Install directory patches are applied to
//   - game: string - Game identifier recorded in the library
//   - archive_format: string - Location id assigned to imported archives (tar, tar.gz)
//   - post_apply_hook: string - Tengo script run after every apply
//   - output_format: string - Log output format (text, json)
//   - color_output: bool - Whether to use colored output
//   - log_level: string - Logging level (debug, info, warn, error)
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "library_dir":
		c.Settings.LibraryDir = value
	case "install_dir":
		c.Settings.InstallDir = value
	case "game":
		c.Settings.Game = value
	case "archive_format":
		c.Settings.ArchiveFormat = value
	case "post_apply_hook":
		c.Settings.PostApplyHook = value
	case "output_format":
		c.Settings.OutputFormat = value
	case "color_output":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		c.Settings.ColorOutput = boolVal
	case "log_level":
		c.Settings.LogLevel = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// GetValue returns the value of a configuration key as a string.
func (c *Config) GetValue(key string) (string, error) {
	switch key {
	case "library_dir":
		return c.Settings.LibraryDir, nil
	case "install_dir":
		return c.Settings.InstallDir, nil
	case "game":
		return c.Settings.Game, nil
	case "archive_format":
		return c.Settings.ArchiveFormat, nil
	case "post_apply_hook":
		return c.Settings.PostApplyHook, nil
	case "output_format":
		return c.Settings.OutputFormat, nil
	case "color_output":
		return strconv.FormatBool(c.Settings.ColorOutput), nil
	case "log_level":
		return c.Settings.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// ToMap returns the settings keyed by their YAML names, for display.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)

	settingsValue := reflect.ValueOf(c.Settings)
	settingsType := settingsValue.Type()
	for i := 0; i < settingsValue.NumField(); i++ {
		yamlTag := settingsType.Field(i).Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		yamlKey := strings.Split(yamlTag, ",")[0]

		fieldValue := settingsValue.Field(i)
		switch fieldValue.Kind() {
		case reflect.Bool:
			result[yamlKey] = strconv.FormatBool(fieldValue.Bool())
		case reflect.String:
			result[yamlKey] = fieldValue.String()
		default:
			result[yamlKey] = fmt.Sprintf("%v", fieldValue.Interface())
		}
	}
	return result
}
