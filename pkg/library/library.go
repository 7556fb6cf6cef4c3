// Package library stores the durable records of a patch library: the library file with
// the applied history, one file per patch and the resource blobs both refer to.
//
// Layout below the library directory:
//
//	library.json       the PatchLibrary record
//	patches/<id>.json  one PatchFile per registered patch
//	resources/         the blob store
//
// All records are JSON and written atomically through a temporary file.
package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/fsutil"
	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/resource"
)

const (
	// FormatVersion is written into every record. Records with a newer major version
	// are rejected.
	FormatVersion = "1.0"

	libraryFileName = "library.json"
	patchesDirName  = "patches"
	resourceDirName = "resources"
	patchFileExt    = ".json"
)

var patchIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// patchRecord is the on-disk form of a PatchFile.
type patchRecord struct {
	FormatVersion string `json:"format_version"`
	model.PatchFile
}

// Library is an opened library directory.
type Library struct {
	dir   string
	store *resource.Store
}

// Open prepares dir for use as a library directory.
func Open(dir string) (*Library, error) {
	if dir == "" {
		return nil, errutils.ErrEmptyLibraryDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library directory %s: %w", dir, err)
	}
	if err := fsutil.EnsureDir(filepath.Join(abs, patchesDirName)); err != nil {
		return nil, fmt.Errorf("failed to create library directory %s: %w", abs, err)
	}
	store, err := resource.NewStore(filepath.Join(abs, resourceDirName))
	if err != nil {
		return nil, err
	}
	return &Library{dir: abs, store: store}, nil
}

// Dir returns the absolute library directory.
func (l *Library) Dir() string {
	return l.dir
}

// Store returns the blob store of the library.
func (l *Library) Store() *resource.Store {
	return l.store
}

// New returns an empty record for game.
func New(game string) *model.PatchLibrary {
	return &model.PatchLibrary{
		FormatVersion:  FormatVersion,
		GameIdentifier: game,
		Patches:        []model.PatchLibraryPatchEntry{},
	}
}

// Load reads the library record. A missing file yields an empty record without
// history, which is the state before the first apply.
func (l *Library) Load() (*model.PatchLibrary, error) {
	data, err := os.ReadFile(l.libraryPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(""), nil
		}
		return nil, fmt.Errorf("failed to read library file: %w", err)
	}

	var lib model.PatchLibrary
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("failed to parse library file %s: %w", l.libraryPath(), err)
	}
	if err := CheckFormatVersion(lib.FormatVersion); err != nil {
		return nil, fmt.Errorf("library file %s: %w", l.libraryPath(), err)
	}
	if lib.Patches == nil {
		lib.Patches = []model.PatchLibraryPatchEntry{}
	}
	return &lib, nil
}

// Save writes the library record.
func (l *Library) Save(lib *model.PatchLibrary) error {
	lib.FormatVersion = FormatVersion
	if err := writeJSON(l.libraryPath(), lib); err != nil {
		return fmt.Errorf("failed to save library: %w", err)
	}
	logger.Debug("Saved patch library", logger.Fields{"path": l.libraryPath(), "patches": len(lib.Patches)})
	return nil
}

// LoadPatch reads the patch file of id.
func (l *Library) LoadPatch(id string) (*model.PatchFile, error) {
	if err := ValidatePatchID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.patchPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errutils.ErrPatchNotFoundWithID(id)
		}
		return nil, fmt.Errorf("failed to read patch %s: %w", id, err)
	}

	var rec patchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse patch %s: %w", id, err)
	}
	if err := CheckFormatVersion(rec.FormatVersion); err != nil {
		return nil, fmt.Errorf("patch %s: %w", id, err)
	}
	return &rec.PatchFile, nil
}

// SavePatch imports the pending payloads of pf into the store and writes its patch file.
func (l *Library) SavePatch(id string, pf *model.PatchFile) error {
	if err := ValidatePatchID(id); err != nil {
		return err
	}
	for i := range pf.AddedFiles {
		added := &pf.AddedFiles[i]
		if !added.Resource.IsPending() {
			continue
		}
		entry, err := l.store.Import(added.Resource)
		if err != nil {
			return fmt.Errorf("failed to import %s of patch %s: %w", added.Path, id, err)
		}
		added.Resource = entry
	}

	rec := patchRecord{FormatVersion: FormatVersion, PatchFile: *pf}
	if rec.AddedFiles == nil {
		rec.AddedFiles = []model.AddedPatchFile{}
	}
	if rec.RemovedFiles == nil {
		rec.RemovedFiles = []model.PatchFilePath{}
	}
	if err := writeJSON(l.patchPath(id), rec); err != nil {
		return fmt.Errorf("failed to save patch %s: %w", id, err)
	}
	return nil
}

// DeletePatch removes the patch file of id. Its blobs are released by the next Prune.
func (l *Library) DeletePatch(id string) error {
	if err := ValidatePatchID(id); err != nil {
		return err
	}
	if err := os.Remove(l.patchPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errutils.ErrPatchNotFoundWithID(id)
		}
		return fmt.Errorf("failed to delete patch %s: %w", id, err)
	}
	return nil
}

// PatchIDs lists the ids of all stored patch files in sorted order.
func (l *Library) PatchIDs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.dir, patchesDirName))
	if err != nil {
		return nil, fmt.Errorf("failed to list patches: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), patchFileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), patchFileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Prune deletes every blob that is referenced neither by the history of lib nor by a
// stored patch file.
func (l *Library) Prune(lib *model.PatchLibrary) (int, error) {
	keep := make(map[string]bool)
	for _, id := range lib.History.ResourceIDs() {
		keep[id] = true
	}

	ids, err := l.PatchIDs()
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		pf, err := l.LoadPatch(id)
		if err != nil {
			return 0, fmt.Errorf("failed to collect resources of patch %s: %w", id, err)
		}
		for _, rid := range pf.ResourceIDs() {
			keep[rid] = true
		}
	}

	removed, err := l.store.Prune(keep)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		logger.Debug("Pruned unreferenced resources", logger.Fields{"count": removed})
	}
	return removed, nil
}

// ValidatePatchID checks that id can be used as a file name.
func ValidatePatchID(id string) error {
	if !patchIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", errutils.ErrInvalidPatchID, id)
	}
	return nil
}

// CheckFormatVersion rejects records written by a newer major format.
func CheckFormatVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: missing format version", errutils.ErrUnsupportedFormat)
	}
	got, err := version.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q", errutils.ErrUnsupportedFormat, v)
	}
	supported := version.Must(version.NewVersion(FormatVersion))
	if got.Segments()[0] > supported.Segments()[0] {
		return fmt.Errorf("%w: %s (supported: %s)", errutils.ErrUnsupportedFormat, v, FormatVersion)
	}
	return nil
}

func (l *Library) libraryPath() string {
	return filepath.Join(l.dir, libraryFileName)
}

func (l *Library) patchPath(id string) string {
	return filepath.Join(l.dir, patchesDirName, id+patchFileExt)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return fsutil.WriteFileAtomic(path, bytes.NewReader(data), fsutil.FileModeDefault)
}
