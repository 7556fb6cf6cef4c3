//go:generate mockgen -destination=./mocks/archive.go -package mocks . Manager

// Package archive defines the contract modstack uses to edit files packed inside an
// archive container, plus a tar based implementation of it.
//
// The binary layout of a specific container stays behind Manager: callers list the
// entries, read and encode entry bytes, create new entries and finally hand the full
// entry list back for a repack into a fresh output stream.
package archive

import (
	"context"
	"io"
)

// Handle is an opened archive. Its concrete type belongs to the Manager that created it.
type Handle any

// Token identifies one entry of an opened archive. Its concrete type belongs to the
// Manager that created it.
type Token any

// Entry is one file listed in an archive directory.
type Entry struct {
	Directory string
	Name      string
	Token     Token
}

// RepackEntry is one file of the archive being written. A nil Encoded keeps the bytes
// the entry already has in the source archive.
type RepackEntry struct {
	Token   Token
	Encoded []byte
}

// ProgressFunc receives (done, total) entry counts while repacking.
type ProgressFunc func(done, total int)

// Manager hides the binary format of one archive container type.
type Manager interface {
	// Load opens an archive from its serialized form.
	Load(ctx context.Context, r io.Reader) (Handle, error)
	// Directory lists the file entries of an opened archive.
	Directory(h Handle) ([]Entry, error)
	// FileBytes returns the decoded content of an entry.
	FileBytes(h Handle, token Token) (io.ReadCloser, error)
	// Encode converts plain content into the stored form of the given entry.
	Encode(plain io.Reader, token Token) ([]byte, error)
	// NewEntry creates a token for a file that does not exist in the archive yet.
	NewEntry(h Handle, directory, name string) (Token, error)
	// CombinePaths joins a directory and a name the way the container stores them.
	CombinePaths(a, b string) string
	// Repack writes a complete archive holding exactly entries to out.
	Repack(ctx context.Context, h Handle, entries []RepackEntry, out io.Writer, progress ProgressFunc) error
}
