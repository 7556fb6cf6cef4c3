package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholt/archives"
)

// TarManager implements Manager for plain or gzip compressed tar archives.
// Archives are held in memory between Load and Repack.
type TarManager struct {
	gzip bool
}

// NewTarManager creates a tar manager; gzip selects .tar.gz containers.
func NewTarManager(gzip bool) *TarManager {
	return &TarManager{gzip: gzip}
}

type tarArchive struct {
	entries []*tarEntry
}

type tarEntry struct {
	dir     string
	name    string
	mode    fs.FileMode
	modTime time.Time
	data    []byte
}

func (e *tarEntry) nameInArchive() string {
	if e.dir == "" {
		return e.name
	}
	return e.dir + "/" + e.name
}

// Load reads every regular file of the archive into memory.
func (m *TarManager) Load(ctx context.Context, r io.Reader) (Handle, error) {
	if m.gzip {
		zr, err := archives.Gz{}.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	ar := &tarArchive{}
	err := archives.Tar{}.Extract(ctx, r, func(_ context.Context, info archives.FileInfo) error {
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("unsupported entry type for %s: %s", info.NameInArchive, info.Mode().Type())
		}
		f, err := info.Open()
		if err != nil {
			return fmt.Errorf("failed to open entry %s: %w", info.NameInArchive, err)
		}
		defer func() { _ = f.Close() }()

		data, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("failed to read entry %s: %w", info.NameInArchive, err)
		}
		dir, name := path.Split(strings.TrimPrefix(info.NameInArchive, "./"))
		ar.entries = append(ar.entries, &tarEntry{
			dir:     strings.Trim(dir, "/"),
			name:    name,
			mode:    info.Mode().Perm(),
			modTime: info.ModTime(),
			data:    data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read tar archive: %w", err)
	}
	return ar, nil
}

// Directory lists the loaded entries in archive order.
func (m *TarManager) Directory(h Handle) ([]Entry, error) {
	ar, err := asTarArchive(h)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(ar.entries))
	for _, e := range ar.entries {
		entries = append(entries, Entry{Directory: e.dir, Name: e.name, Token: e})
	}
	return entries, nil
}

// FileBytes returns the content of an entry. Tar stores content unencoded.
func (m *TarManager) FileBytes(_ Handle, token Token) (io.ReadCloser, error) {
	e, err := asTarEntry(token)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

// Encode returns plain unchanged since tar applies no per-entry encoding.
func (m *TarManager) Encode(plain io.Reader, token Token) ([]byte, error) {
	if _, err := asTarEntry(token); err != nil {
		return nil, err
	}
	return io.ReadAll(plain)
}

// NewEntry creates a token for a file that is not part of the archive yet.
func (m *TarManager) NewEntry(h Handle, directory, name string) (Token, error) {
	if _, err := asTarArchive(h); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("entry name cannot be empty")
	}
	return &tarEntry{
		dir:     strings.Trim(directory, "/"),
		name:    name,
		mode:    0o644,
		modTime: time.Now(),
	}, nil
}

// CombinePaths joins a directory and a name with '/'.
func (m *TarManager) CombinePaths(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}

// Repack writes entries as a new tar (optionally gzip) stream to out.
func (m *TarManager) Repack(ctx context.Context, h Handle, entries []RepackEntry, out io.Writer, progress ProgressFunc) error {
	if _, err := asTarArchive(h); err != nil {
		return err
	}

	files := make([]archives.FileInfo, 0, len(entries))
	total := len(entries)
	for i, re := range entries {
		e, err := asTarEntry(re.Token)
		if err != nil {
			return err
		}
		data := e.data
		if re.Encoded != nil {
			data = re.Encoded
		}
		info := memFileInfo{name: e.name, size: int64(len(data)), mode: e.mode, modTime: e.modTime}
		done := i + 1
		files = append(files, archives.FileInfo{
			FileInfo:      info,
			NameInArchive: e.nameInArchive(),
			Open: func() (fs.File, error) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if progress != nil {
					progress(done, total)
				}
				return &memFile{Reader: bytes.NewReader(data), info: info}, nil
			},
		})
	}

	w := out
	var zw io.WriteCloser
	if m.gzip {
		var err error
		zw, err = archives.Gz{}.OpenWriter(out)
		if err != nil {
			return fmt.Errorf("failed to open gzip writer: %w", err)
		}
		w = zw
	}

	if err := (archives.Tar{}).Archive(ctx, w, files); err != nil {
		if zw != nil {
			_ = zw.Close()
		}
		return fmt.Errorf("failed to write tar archive: %w", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	return nil
}

// PackDir creates a tar archive at archivePath from the contents of sourceDir.
func PackDir(ctx context.Context, sourceDir, archivePath string, gzip bool) error {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}

	archiveFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	if gzip {
		format := archives.CompressedArchive{
			Compression: archives.Gz{},
			Archival:    archives.Tar{},
		}
		err = format.Archive(ctx, file, archiveFiles)
	} else {
		err = archives.Tar{}.Archive(ctx, file, archiveFiles)
	}
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}

func asTarArchive(h Handle) (*tarArchive, error) {
	ar, ok := h.(*tarArchive)
	if !ok || ar == nil {
		return nil, fmt.Errorf("handle %T was not created by the tar manager", h)
	}
	return ar, nil
}

func asTarEntry(t Token) (*tarEntry, error) {
	e, ok := t.(*tarEntry)
	if !ok || e == nil {
		return nil, fmt.Errorf("token %T was not created by the tar manager", t)
	}
	return e, nil
}

type memFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (fi memFileInfo) Name() string       { return fi.name }
func (fi memFileInfo) Size() int64        { return fi.size }
func (fi memFileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi memFileInfo) ModTime() time.Time { return fi.modTime }
func (fi memFileInfo) IsDir() bool        { return false }
func (fi memFileInfo) Sys() any           { return nil }

type memFile struct {
	*bytes.Reader
	info memFileInfo
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *memFile) Close() error               { return nil }
