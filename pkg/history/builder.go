// Package history accumulates the undo log of an apply run.
//
// Modifiers record what they did through a Scope, one per location. A scope is either
// committed into the Builder or discarded when its location fails, so a failed location
// never leaves half a history behind. Finish returns the new history and removes the
// directories that were emptied during the run.
package history

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/fsutil"
	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/resource"
)

// Builder collects the new history while modifications are applied.
type Builder struct {
	store       *resource.Store
	installRoot string

	history     *model.PatchLibraryHistory
	cleanupDirs map[string]bool
	closed      bool
}

// NewBuilder creates a builder whose snapshots go to store. Directory cleanup never
// touches installRoot or anything outside it.
func NewBuilder(store *resource.Store, installRoot string) *Builder {
	root, err := filepath.Abs(installRoot)
	if err != nil {
		root = filepath.Clean(installRoot)
	}
	return &Builder{
		store:       store,
		installRoot: root,
		history:     model.NewHistory(),
		cleanupDirs: make(map[string]bool),
	}
}

// Store returns the resource store backing snapshots.
func (b *Builder) Store() *resource.Store {
	return b.store
}

// RecordAdded records a path that was created by a patch. Modifiers record through a
// Scope, whose entries reach the builder here on Commit.
func (b *Builder) RecordAdded(path model.PatchFilePath, checksum resource.Checksum) {
	b.history.AddedFiles = append(b.history.AddedFiles, model.HistoryAddedFile{Path: path, Checksum: checksum})
}

// RecordReplaced records a path whose original bytes were overwritten.
func (b *Builder) RecordReplaced(path model.PatchFilePath, checksum resource.Checksum, original resource.Entry) {
	b.history.ReplacedFiles = append(b.history.ReplacedFiles, model.HistoryReplacedFile{
		Path:     path,
		Resource: original,
		Checksum: checksum,
	})
}

// RecordRemoved records a path whose original bytes were deleted.
func (b *Builder) RecordRemoved(path model.PatchFilePath, original resource.Entry) {
	b.history.RemovedFiles = append(b.history.RemovedFiles, model.HistoryRemovedFile{Path: path, Resource: original})
}

// CreateResourceEntry persists r to the store and returns a handle to it.
func (b *Builder) CreateResourceEntry(r io.Reader) (resource.Entry, error) {
	return b.store.Put(r)
}

// MarkDirForCleanupIfEmpty schedules dir for removal at Finish if it is empty by then.
func (b *Builder) MarkDirForCleanupIfEmpty(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return
	}
	b.cleanupDirs[abs] = true
}

// Preserve copies entries of a previous history unchanged into the new one.
func (b *Builder) Preserve(prior *model.PatchLibraryHistory) {
	b.record(prior)
}

// record replays every entry of h through the Record methods.
func (b *Builder) record(h *model.PatchLibraryHistory) {
	if h == nil {
		return
	}
	for _, f := range h.AddedFiles {
		b.RecordAdded(f.Path, f.Checksum)
	}
	for _, f := range h.ReplacedFiles {
		b.RecordReplaced(f.Path, f.Checksum, f.Resource)
	}
	for _, f := range h.RemovedFiles {
		b.RecordRemoved(f.Path, f.Resource)
	}
}

// Begin opens a recording scope for one location.
func (b *Builder) Begin(location string) *Scope {
	return &Scope{
		builder:  b,
		location: model.NormalizePath(location),
		history:  model.NewHistory(),
		settled:  make(map[string]bool),
	}
}

// Finish cleans up emptied directories and returns the accumulated history.
// The builder must not be used afterwards.
func (b *Builder) Finish() *model.PatchLibraryHistory {
	b.Close()
	return b.history
}

// Close performs the deferred directory cleanup without producing a history.
// Calling Close more than once is a no-op.
func (b *Builder) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.removeEmptyDirs()
}

// removeEmptyDirs walks up from each marked directory, deepest first, removing
// directories while they are empty and strictly below the install root.
func (b *Builder) removeEmptyDirs() {
	dirs := make([]string, 0, len(b.cleanupDirs))
	for dir := range b.cleanupDirs {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di := strings.Count(dirs[i], string(filepath.Separator))
		dj := strings.Count(dirs[j], string(filepath.Separator))
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	removed := make(map[string]bool)
	for _, dir := range dirs {
		for dir != b.installRoot && !removed[dir] && fsutil.IsWithin(b.installRoot, dir) {
			if !fsutil.IsDirEmpty(dir) {
				break
			}
			if err := os.Remove(dir); err != nil {
				logger.Warn("Could not remove empty directory", logger.Fields{"dir": dir, "error": err})
				break
			}
			logger.Debug("Removed empty directory", logger.Fields{"dir": dir})
			removed[dir] = true
			dir = filepath.Dir(dir)
		}
	}
	b.cleanupDirs = make(map[string]bool)
}
