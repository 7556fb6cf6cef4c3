package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cperrin88/modstack/pkg/errutils"
)

const (
	// AppName is the name of the application used in paths
	AppName = "modstack"
)

// getAppDataDir returns the platform-specific base data directory
// On Linux: ~/.local/share
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func getAppDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", errors.New("LOCALAPPDATA environment variable not set")
		}
		return localAppData, nil

	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil

	default: // Linux, BSD, etc.
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return xdgDataHome, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

// GetDataDir returns the platform-specific data directory for the application
// On Linux: ~/.local/share/modstack/
// On macOS: ~/Library/Application Support/modstack/
// On Windows: %LOCALAPPDATA%\modstack\
func GetDataDir() (string, error) {
	baseDir, err := getAppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, AppName), nil
}

// GetLibraryDir returns the default directory holding the patch library of a game.
// Format: <data_dir>/libraries/<game>/
func GetLibraryDir(game string) (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	if game == "" {
		game = "default"
	}
	return filepath.Join(dataDir, "libraries", game), nil
}

// ToSlash converts a path using either separator to forward slashes.
func ToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// IsWithin reports whether target is root itself or lies below root.
// Both paths are made absolute and cleaned before comparing.
func IsWithin(root, target string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// ResolveWithin joins rel onto root and returns the absolute result.
// An error wrapping errutils.ErrPathTraversal is returned when the result is not
// strictly below root, either textually or once the symlinks along the existing
// part of the path are followed.
func ResolveWithin(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	target := filepath.Join(absRoot, filepath.FromSlash(ToSlash(rel)))
	if target == absRoot || !IsWithin(absRoot, target) {
		return "", fmt.Errorf("%s: %w", rel, errutils.ErrPathTraversal)
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		// A missing root has nothing below it to follow.
		return target, nil
	}
	existing := deepestExisting(target)
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", existing, err)
	}
	if !IsWithin(realRoot, resolved) {
		return "", fmt.Errorf("%s: links outside of %s: %w", rel, root, errutils.ErrPathTraversal)
	}
	return target, nil
}

// deepestExisting returns p or its closest ancestor that exists.
func deepestExisting(p string) string {
	for {
		if _, err := os.Lstat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
