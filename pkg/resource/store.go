// Package resource stores the byte blobs a patch library refers to: the payload of
// patch files and the original bytes saved before a patch overwrote or deleted them.
//
// Blobs are lz4-compressed on disk and named by a random UUID. Every write goes to a
// temporary file first and is renamed into place once complete.
package resource

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"

	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/fsutil"
)

const blobExt = ".lz4"

// Store is a directory of compressed blobs.
type Store struct {
	dir string
}

// NewStore opens (and creates if needed) a blob store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create resource directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Put persists everything readable from r as a new blob.
func (s *Store) Put(r io.Reader) (_ Entry, err error) {
	tmpFile, err := os.CreateTemp(s.dir, ".blob-*.tmp")
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create temporary blob in %s: %w", s.dir, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	zw := lz4.NewWriter(tmpFile)
	if _, err = io.Copy(zw, r); err != nil {
		return Entry{}, fmt.Errorf("failed to write blob: %w", err)
	}
	if err = zw.Close(); err != nil {
		return Entry{}, fmt.Errorf("failed to finish blob compression: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return Entry{}, fmt.Errorf("failed to sync blob: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return Entry{}, fmt.Errorf("failed to close blob: %w", err)
	}

	id := uuid.NewString()
	if err = os.Rename(tmpPath, s.blobPath(id)); err != nil {
		return Entry{}, fmt.Errorf("failed to store blob %s: %w", id, err)
	}
	return PersistedEntry(id), nil
}

// Open returns a reader over an entry's content. Pending entries are read from their
// opener, persisted ones are decompressed from disk.
func (s *Store) Open(e Entry) (io.ReadCloser, error) {
	if e.IsPending() {
		return e.open()
	}
	if e.ID == "" {
		return nil, fmt.Errorf("empty resource entry: %w", errutils.ErrResourceNotFound)
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return nil, fmt.Errorf("invalid resource id %q: %w", e.ID, errutils.ErrResourceNotFound)
	}

	f, err := os.Open(s.blobPath(e.ID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("resource %s: %w", e.ID, errutils.ErrResourceNotFound)
		}
		return nil, fmt.Errorf("failed to open resource %s: %w", e.ID, err)
	}
	return &blobReader{Reader: lz4.NewReader(f), file: f}, nil
}

// Import persists a pending entry and returns the persisted handle. Persisted entries
// are returned unchanged.
func (s *Store) Import(e Entry) (Entry, error) {
	if !e.IsPending() {
		return e, nil
	}
	rc, err := e.open()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to open pending resource: %w", err)
	}
	defer func() { _ = rc.Close() }()
	return s.Put(rc)
}

// Has reports whether a blob with the given id exists.
func (s *Store) Has(id string) bool {
	return fsutil.FileExists(s.blobPath(id))
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.blobPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete resource %s: %w", id, err)
	}
	return nil
}

// IDs lists the ids of all stored blobs.
func (s *Store) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, blobExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, blobExt))
	}
	return ids, nil
}

// Prune deletes every blob whose id is not in keep and returns how many were removed.
func (s *Store) Prune(keep map[string]bool) (int, error) {
	ids, err := s.IDs()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if keep[id] {
			continue
		}
		if err := s.Delete(id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *Store) blobPath(id string) string {
	return filepath.Join(s.dir, id+blobExt)
}

type blobReader struct {
	io.Reader
	file *os.File
}

func (b *blobReader) Close() error {
	return b.file.Close()
}
