package patcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/fsutil"
	"github.com/cperrin88/modstack/pkg/history"
)

// PhysicalModifier applies modifications to loose files below the install root.
// It is not cancellable once started.
type PhysicalModifier struct {
	InstallRoot string
}

// NewPhysicalModifier creates a modifier for installRoot.
func NewPhysicalModifier(installRoot string) *PhysicalModifier {
	return &PhysicalModifier{InstallRoot: installRoot}
}

// Apply processes every modification in key order. Files resolving outside the install
// root are skipped with a warning.
func (m *PhysicalModifier) Apply(_ context.Context, scope *history.Scope, mods *LocationModifications, progress ProgressFunc) error {
	keys := mods.SortedKeys()
	total := len(keys)

	for i, key := range keys {
		mod := mods.Files[key]

		target, err := m.resolve(mod.Path.FilePath)
		if err != nil {
			if errors.Is(err, errutils.ErrPathTraversal) {
				logger.Warn("Skipping file outside install root", logger.Fields{"path": mod.Path.FilePath, "error": err})
				report(progress, i+1, total)
				continue
			}
			return err
		}

		if err := history.ProcessFile(scope, mod, &physicalTarget{path: target, scope: scope}); err != nil {
			return err
		}
		logger.Debug("Processed file", logger.Fields{"path": mod.Path.FilePath, "type": mod.Type.String(), "source": mod.Source.String()})
		report(progress, i+1, total)
	}
	return nil
}

func (m *PhysicalModifier) resolve(rel string) (string, error) {
	target, err := fsutil.ResolveWithin(m.InstallRoot, rel)
	if err != nil {
		if errors.Is(err, errutils.ErrPathTraversal) {
			return "", &PathTraversalError{Root: m.InstallRoot, Path: rel}
		}
		return "", err
	}
	return target, nil
}

// physicalTarget is a file on disk.
type physicalTarget struct {
	path  string
	scope *history.Scope
}

func (t *physicalTarget) Exists() (bool, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", t.path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory: %w", t.path, errutils.ErrInvalidPath)
	}
	return true, nil
}

func (t *physicalTarget) Open() (io.ReadCloser, error) {
	return os.Open(t.path)
}

func (t *physicalTarget) Write(r io.Reader) error {
	perm := os.FileMode(fsutil.FileModeDefault)
	if info, err := os.Stat(t.path); err == nil {
		perm = info.Mode().Perm()
	}
	return fsutil.WriteFileAtomic(t.path, r, perm)
}

func (t *physicalTarget) Delete() error {
	if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", t.path, err)
	}
	t.scope.MarkDirForCleanupIfEmpty(filepath.Dir(t.path))
	return nil
}

func report(progress ProgressFunc, current, total int) {
	if progress != nil {
		progress(current, total)
	}
}
