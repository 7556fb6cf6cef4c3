// Package errutils provides the error vocabulary shared by the modstack packages.
// It defines sentinel errors for the conditions callers are expected to test with
// errors.Is, plus small helpers for adding context while an error propagates.
//
// Recoverable conditions (a missing archive, a path escaping the install root, an
// unreadable library file) are returned as errors and handled at the location
// boundary. Inconsistent patch data is a programming error and panics instead.
package errutils

import (
	"fmt"
)

// Common error types used throughout the application.
var (
	// Config errors are related to configuration file operations and validation.
	ErrEmptyConfigPath = fmt.Errorf(
		"config file path cannot be empty") // When config file path is empty

	ErrInvalidConfigPath = fmt.Errorf(
		"invalid config file path") // When provided config file path is invalid

	ErrConfigParse = fmt.Errorf(
		"failed to parse config") // When config file cannot be parsed

	// ErrConfigValidation is returned when configuration values fail validation.
	ErrConfigValidation = fmt.Errorf("invalid configuration")

	ErrConfigEncode = fmt.Errorf(
		"failed to encode config") // When config cannot be encoded

	ErrConfigDirectory = fmt.Errorf(
		"failed to create config directory") // When config dir cannot be created

	ErrConfigFileCreate = fmt.Errorf(
		"failed to create config file") // When config file cannot be created

	// ErrConfigFileExists is returned when attempting to create a configuration file that already exists.
	ErrConfigFileExists = fmt.Errorf("configuration file already exists (use --force to overwrite)")

	// ErrConfigFileRename is returned when renaming the temporary config file fails.
	ErrConfigFileRename = fmt.Errorf("failed to rename temporary config file")

	// ErrInvalidLogLevel is returned when an invalid log level is specified.
	ErrInvalidLogLevel = fmt.Errorf("invalid log level")

	// ErrInvalidArchiveFormat is returned when the configured default archive format is unknown.
	ErrInvalidArchiveFormat = fmt.Errorf("invalid archive format")

	// ErrEmptyLibraryDir is returned when no library directory is configured.
	ErrEmptyLibraryDir = fmt.Errorf("library directory cannot be empty")

	// ErrEmptyInstallDir is returned when no install directory is configured.
	ErrEmptyInstallDir = fmt.Errorf("install directory cannot be empty")

	// Library errors.

	// ErrUnsupportedFormat is returned when a library or patch file was written by a newer format.
	ErrUnsupportedFormat = fmt.Errorf("unsupported library format version")

	// ErrPatchNotFound is returned when a patch id is not known to the library.
	ErrPatchNotFound = fmt.Errorf("patch not found")

	// ErrPatchExists is returned when adding a patch whose id is already registered.
	ErrPatchExists = fmt.Errorf("patch already exists")

	// ErrInvalidPatchID is returned when a patch id cannot be used as a file name.
	ErrInvalidPatchID = fmt.Errorf("invalid patch id")

	// ErrInvalidManifest is returned when a patch.yaml manifest is malformed.
	ErrInvalidManifest = fmt.Errorf("invalid patch manifest")

	// ErrEmptyPatch is returned when an imported patch neither adds nor removes a file.
	ErrEmptyPatch = fmt.Errorf("patch contains no files")

	// Resource errors.

	// ErrResourceNotFound is returned when a resource blob is missing from the store.
	ErrResourceNotFound = fmt.Errorf("resource not found")

	// ErrChecksumMismatch is returned when stored bytes no longer match their checksum.
	ErrChecksumMismatch = fmt.Errorf("checksum mismatch")

	// Apply errors.

	// ErrArchiveNotFound is returned when a targeted archive does not exist on disk.
	ErrArchiveNotFound = fmt.Errorf("archive not found")

	// ErrUnknownArchiveType is returned when no archive manager is registered for a location id.
	ErrUnknownArchiveType = fmt.Errorf("unknown archive type")

	// ErrPathTraversal is returned when a patch path resolves outside the install root.
	ErrPathTraversal = fmt.Errorf("path escapes install root")

	// ErrInvalidPath is returned when a file or directory path is invalid.
	ErrInvalidPath = fmt.Errorf("invalid path")

	// ErrEmptyPaths is returned when source or destination paths are empty in file operations.
	ErrEmptyPaths = fmt.Errorf("source and destination paths cannot be empty")

	// ErrLocationFailed marks a location whose modifications could not be applied.
	ErrLocationFailed = fmt.Errorf("location failed")
)

// Wrap wraps an error with additional context.
// If the error is nil, Wrap returns nil.
//
// Example:
//
//	if err := store.Put(r); err != nil {
//	    return errutils.Wrap(err, "failed to snapshot file")
//	}
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
// If the error is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: error, warn, info, debug", ErrInvalidLogLevel, level)
}

// ErrInvalidArchiveFormatWithDetails creates an error naming the rejected archive format.
func ErrInvalidArchiveFormatWithDetails(format string, valid []string) error {
	return fmt.Errorf("%w: '%s'. Valid values are: %v", ErrInvalidArchiveFormat, format, valid)
}

// ErrPatchNotFoundWithID creates an error for a patch id that is not registered.
func ErrPatchNotFoundWithID(id string) error {
	return fmt.Errorf("%w: %s", ErrPatchNotFound, id)
}

// ErrPatchExistsWithID creates an error for a patch id that is already registered.
func ErrPatchExistsWithID(id string) error {
	return fmt.Errorf("%w: %s", ErrPatchExists, id)
}

// ErrUnknownArchiveTypeWithID creates an error naming the unregistered location id.
func ErrUnknownArchiveTypeWithID(locationID string) error {
	return fmt.Errorf("%w: %q", ErrUnknownArchiveType, locationID)
}
