package patcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/fsutil"
	"github.com/cperrin88/modstack/pkg/history"
	"github.com/cperrin88/modstack/pkg/model"
)

// ArchiveModifier applies modifications to the files packed in one archive.
//
// The archive is diffed completely in memory before anything is written. The result is
// repacked into a temporary file next to the archive and moved over it, so the original
// archive stays untouched unless the whole repack succeeds.
type ArchiveModifier struct {
	InstallRoot string
}

// NewArchiveModifier creates a modifier for archives below installRoot.
func NewArchiveModifier(installRoot string) *ArchiveModifier {
	return &ArchiveModifier{InstallRoot: installRoot}
}

// Apply reports progress against twice the number of modifications: the first half
// covers the diff, the second half the repack. A missing archive is skipped with a
// warning and is not an error.
func (m *ArchiveModifier) Apply(ctx context.Context, scope *history.Scope, mods *LocationModifications, progress ProgressFunc) error {
	if mods.ManagerErr != nil {
		return mods.ManagerErr
	}
	manager := mods.Manager
	n := len(mods.Files)
	total := 2 * n

	archivePath, err := fsutil.ResolveWithin(m.InstallRoot, mods.Path)
	if err != nil {
		if errors.Is(err, errutils.ErrPathTraversal) {
			logger.Warn("Skipping archive outside install root", logger.Fields{"location": mods.Path})
			report(progress, total, total)
			return nil
		}
		return err
	}
	info, err := os.Stat(archivePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Archive not found, skipping", logger.Fields{"location": mods.Path, "files": n})
			report(progress, total, total)
			return nil
		}
		return fmt.Errorf("failed to stat archive %s: %w", archivePath, err)
	}

	handle, err := loadArchive(ctx, manager, archivePath)
	if err != nil {
		return err
	}
	entries, err := manager.Directory(handle)
	if err != nil {
		return fmt.Errorf("failed to read directory of %s: %w", mods.Path, err)
	}

	repack, changed, err := m.diff(scope, manager, handle, entries, mods, func(done int) {
		report(progress, done, total)
	})
	if err != nil {
		return err
	}
	report(progress, n, total)

	if !changed {
		logger.Debug("Archive unchanged, skipping repack", logger.Fields{"location": mods.Path})
		report(progress, total, total)
		return nil
	}

	return m.repack(ctx, manager, handle, repack, archivePath, info.Mode().Perm(), func(done, count int) {
		if count > 0 {
			report(progress, n+done*n/count, total)
		}
	})
}

// diff matches the archive entries against the modifications.
//
// The first pass walks the existing entries and resolves each one against an immutable
// lookup of the modifications, collecting the matched keys in a consumed set. The
// second pass turns the modifications that matched nothing into new entries.
func (m *ArchiveModifier) diff(
	scope *history.Scope,
	manager archive.Manager,
	handle archive.Handle,
	entries []archive.Entry,
	mods *LocationModifications,
	progress func(done int),
) ([]archive.RepackEntry, bool, error) {
	lookup := mods.Files
	consumed := make(map[string]bool, len(lookup))
	repack := make([]archive.RepackEntry, 0, len(entries)+len(lookup))
	changed := false

	for _, e := range entries {
		key := model.NormalizePath(manager.CombinePaths(e.Directory, e.Name))
		mod, ok := lookup[key]
		if !ok || consumed[key] {
			repack = append(repack, archive.RepackEntry{Token: e.Token})
			continue
		}
		consumed[key] = true

		target := &archiveTarget{manager: manager, handle: handle, token: e.Token, exists: true}
		if err := history.ProcessFile(scope, mod, target); err != nil {
			return nil, false, err
		}
		switch {
		case target.deleted:
			changed = true
		case target.encoded != nil:
			changed = true
			repack = append(repack, archive.RepackEntry{Token: e.Token, Encoded: target.encoded})
		default:
			repack = append(repack, archive.RepackEntry{Token: e.Token})
		}
		progress(len(consumed))
	}

	leftovers := make([]string, 0, len(lookup)-len(consumed))
	for key := range lookup {
		if !consumed[key] {
			leftovers = append(leftovers, key)
		}
	}
	sort.Strings(leftovers)

	for i, key := range leftovers {
		mod := lookup[key]
		target := &archiveTarget{
			manager:   manager,
			handle:    handle,
			directory: mod.Path.Dir(),
			name:      mod.Path.Base(),
		}
		if err := history.ProcessFile(scope, mod, target); err != nil {
			return nil, false, err
		}
		if target.encoded != nil {
			changed = true
			repack = append(repack, archive.RepackEntry{Token: target.token, Encoded: target.encoded})
		}
		progress(len(consumed) + i + 1)
	}
	return repack, changed, nil
}

func (m *ArchiveModifier) repack(
	ctx context.Context,
	manager archive.Manager,
	handle archive.Handle,
	entries []archive.RepackEntry,
	archivePath string,
	perm os.FileMode,
	progress archive.ProgressFunc,
) (err error) {
	tmpFile, err := os.CreateTemp(filepath.Dir(archivePath), "."+filepath.Base(archivePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary archive: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = manager.Repack(ctx, handle, entries, tmpFile, progress); err != nil {
		return fmt.Errorf("failed to repack %s: %w", archivePath, err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary archive: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary archive: %w", err)
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions on temporary archive: %w", err)
	}
	if err = fsutil.Move(tmpPath, archivePath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", archivePath, err)
	}
	logger.Debug("Repacked archive", logger.Fields{"path": archivePath, "entries": len(entries)})
	return nil
}

func loadArchive(ctx context.Context, manager archive.Manager, archivePath string) (archive.Handle, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer func() { _ = f.Close() }()

	handle, err := manager.Load(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive %s: %w", archivePath, err)
	}
	return handle, nil
}

// archiveTarget is an entry of a loaded archive. Writes and deletes are staged and
// only take effect when the archive is repacked.
type archiveTarget struct {
	manager archive.Manager
	handle  archive.Handle

	token     archive.Token
	directory string
	name      string
	exists    bool

	encoded []byte
	deleted bool
}

func (t *archiveTarget) Exists() (bool, error) {
	return t.exists && !t.deleted, nil
}

func (t *archiveTarget) Open() (io.ReadCloser, error) {
	if t.encoded != nil {
		return nil, fmt.Errorf("entry %s was already rewritten", t.name)
	}
	return t.manager.FileBytes(t.handle, t.token)
}

func (t *archiveTarget) Write(r io.Reader) error {
	if t.token == nil {
		token, err := t.manager.NewEntry(t.handle, t.directory, t.name)
		if err != nil {
			return fmt.Errorf("failed to create entry %s: %w", t.manager.CombinePaths(t.directory, t.name), err)
		}
		t.token = token
	}
	encoded, err := t.manager.Encode(r, t.token)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	if encoded == nil {
		encoded = []byte{}
	}
	t.encoded = encoded
	t.exists, t.deleted = true, false
	return nil
}

func (t *archiveTarget) Delete() error {
	t.deleted = true
	t.encoded = nil
	return nil
}
