package hook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// HookFileExtension is the extension of hook script files.
const HookFileExtension = ".tengo"

// DirName is the directory inside a library holding its hook scripts.
const DirName = "hooks"

// LoadHooksFromLibraryDir loads <libraryDir>/hooks/<hook-type>.tengo scripts. A library
// without a hooks directory has no hooks.
func LoadHooksFromLibraryDir(manager HookManager, libraryDir string) error {
	hooksDir := filepath.Join(libraryDir, DirName)
	entries, err := os.ReadDir(hooksDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read hooks directory %s: %w", hooksDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != HookFileExtension {
			continue
		}
		hookType := HookType(strings.TrimSuffix(entry.Name(), HookFileExtension))
		if !isKnown(hookType) {
			continue
		}
		if err := LoadHookFile(manager, hookType, filepath.Join(hooksDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LoadHookFile registers the script at path for hookType, replacing any earlier one.
func LoadHookFile(manager HookManager, hookType HookType, path string) error {
	if !isKnown(hookType) {
		return ErrUnsupportedHookType(string(hookType))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrHookLoad, path, err)
	}
	if err := manager.AddHook(Hook{Type: hookType, Content: string(content), Source: path}); err != nil {
		return fmt.Errorf("error adding hook %s: %w", hookType, err)
	}
	return nil
}

func isKnown(hookType HookType) bool {
	for _, t := range Types {
		if t == hookType {
			return true
		}
	}
	return false
}

// HookTemplate generates a template for a hook script.
func HookTemplate(hookType HookType) string {
	switch hookType {
	case PreApply:
		return `// Pre-apply hook
// This script runs before patches are applied
// Available variables:
// - installDir: string - the game install directory
// - libraryDir: string - the patch library directory
// - game: string - the game identifier of the library
// Assign a non-empty string to err to report a failure.

// Example: refuse to run while the game is running
/*
os := import("os")
err := ""
if !is_error(os.stat(installDir + "/game.lock")) {
    err = "game is running"
}
*/`

	case PostApply:
		return `// Post-apply hook
// This script runs after patches are applied
// Available variables: same as pre-apply, plus
// - success: bool - whether every location was applied
// - added, replaced, removed: int - counts of the recorded history

// Example: print a summary
/*
fmt := import("fmt")
fmt.println("applied: ", added, " added, ", replaced, " replaced, ", removed, " removed")
*/`

	default:
		return "// Unknown hook type: " + string(hookType)
	}
}
