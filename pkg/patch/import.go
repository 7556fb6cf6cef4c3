// Package patch turns a patch source into a PatchFile. A source is a directory or an
// archive (tar, tar.gz, zip and the other formats mholt/archives identifies) holding the
// files to install, laid out relative to the install root, plus an optional patch.yaml
// manifest at its root.
//
// Files below a manifest archive prefix are placed into that archive; every other file
// is written to disk. Payloads are copied into the resource store during import, so the
// source can be deleted afterwards.
package patch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/resource"
	"github.com/mholt/archives"
)

// Result is an imported patch.
type Result struct {
	Manifest *Manifest
	File     *model.PatchFile
}

// Entry returns a library entry for the imported patch. New patches start disabled.
func (r *Result) Entry(id string) model.PatchLibraryPatchEntry {
	return model.PatchLibraryPatchEntry{
		ID:          id,
		Name:        r.Manifest.Name,
		Version:     r.Manifest.Version,
		Description: r.Manifest.Description,
	}
}

// Options tune an import.
type Options struct {
	// DefaultLocationID is used for manifest archives that do not name a location_id.
	DefaultLocationID string
}

// Import reads the patch source at srcPath and stores its payloads in store.
func Import(ctx context.Context, store *resource.Store, srcPath string, opts Options) (*Result, error) {
	fsys, err := archives.FileSystem(ctx, srcPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open patch source %s: %w", srcPath, err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	return ImportFS(ctx, store, fsys, opts)
}

// ImportFS imports a patch from an already opened file system. On failure the blobs
// stored so far are deleted again.
func ImportFS(ctx context.Context, store *resource.Store, fsys fs.FS, opts Options) (_ *Result, err error) {
	var stored []string
	defer func() {
		if err != nil {
			discard(store, stored)
		}
	}()

	manifest, err := LoadManifest(fsys, opts.DefaultLocationID)
	if err != nil {
		return nil, err
	}

	var names []string
	err = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if name == ManifestName || !d.Type().IsRegular() {
			return nil
		}
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk patch source: %w", err)
	}
	sort.Strings(names)

	pf := &model.PatchFile{
		AddedFiles:   make([]model.AddedPatchFile, 0, len(names)),
		RemovedFiles: manifest.removedPaths(),
	}
	seen := make(map[string]string, len(names))
	for _, name := range names {
		target := manifest.route(name)
		if prev, dup := seen[target.Key()]; dup {
			return nil, fmt.Errorf("%w: %s and %s map to the same file", errutils.ErrInvalidManifest, prev, name)
		}
		seen[target.Key()] = name

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		added, err := importFile(store, fsys, name, target)
		if err != nil {
			return nil, err
		}
		stored = append(stored, added.Resource.ID)
		pf.AddedFiles = append(pf.AddedFiles, added)
		logger.Debug("Imported patch file", logger.Fields{"source": name, "target": target.String()})
	}

	if len(pf.AddedFiles) == 0 && len(pf.RemovedFiles) == 0 {
		return nil, errutils.ErrEmptyPatch
	}
	return &Result{Manifest: manifest, File: pf}, nil
}

func importFile(store *resource.Store, fsys fs.FS, name string, target model.PatchFilePath) (model.AddedPatchFile, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return model.AddedPatchFile{}, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	hr := resource.NewHashingReader(f)
	entry, err := store.Put(hr)
	if err != nil {
		return model.AddedPatchFile{}, fmt.Errorf("failed to store %s: %w", name, err)
	}
	return model.AddedPatchFile{
		Path:     target,
		Resource: entry,
		Checksum: hr.Checksum(),
	}, nil
}

func discard(store *resource.Store, ids []string) {
	for _, id := range ids {
		if err := store.Delete(id); err != nil {
			logger.Warn("Failed to delete imported resource", logger.Fields{"id": id, "error": err.Error()})
		}
	}
}
