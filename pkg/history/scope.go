package history

import (
	"io"

	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/resource"
)

// Scope records the history of a single location until it is committed or discarded.
type Scope struct {
	builder  *Builder
	location string
	history  *model.PatchLibraryHistory

	// settled holds the keys whose outcome is final: either recorded or fully processed.
	settled map[string]bool
	done    bool
}

// Location returns the normalized location this scope records for.
func (s *Scope) Location() string {
	return s.location
}

// RecordAdded records a path that was created by a patch.
func (s *Scope) RecordAdded(path model.PatchFilePath, checksum resource.Checksum) {
	s.history.AddedFiles = append(s.history.AddedFiles, model.HistoryAddedFile{Path: path, Checksum: checksum})
	s.settled[path.Key()] = true
}

// RecordReplaced records a path whose original bytes were overwritten.
func (s *Scope) RecordReplaced(path model.PatchFilePath, checksum resource.Checksum, original resource.Entry) {
	s.history.ReplacedFiles = append(s.history.ReplacedFiles, model.HistoryReplacedFile{
		Path:     path,
		Resource: original,
		Checksum: checksum,
	})
	s.settled[path.Key()] = true
}

// RecordRemoved records a path whose original bytes were deleted.
func (s *Scope) RecordRemoved(path model.PatchFilePath, original resource.Entry) {
	s.history.RemovedFiles = append(s.history.RemovedFiles, model.HistoryRemovedFile{Path: path, Resource: original})
	s.settled[path.Key()] = true
}

// CreateResourceEntry persists r through the builder's store.
func (s *Scope) CreateResourceEntry(r io.Reader) (resource.Entry, error) {
	return s.builder.CreateResourceEntry(r)
}

// Open returns the content of a resource entry.
func (s *Scope) Open(e resource.Entry) (io.ReadCloser, error) {
	return s.builder.store.Open(e)
}

// MarkDirForCleanupIfEmpty forwards to the builder. Cleanup happens at Finish even
// when the scope is discarded, since it only removes directories that are empty.
func (s *Scope) MarkDirForCleanupIfEmpty(dir string) {
	s.builder.MarkDirForCleanupIfEmpty(dir)
}

// Settle marks key as completely processed.
func (s *Scope) Settle(key string) {
	s.settled[key] = true
}

// Len returns the number of entries recorded so far.
func (s *Scope) Len() int {
	return s.history.Len()
}

// Commit merges the recorded entries into the builder.
func (s *Scope) Commit() {
	if s.done {
		return
	}
	s.done = true
	s.builder.record(s.history)
}

// Discard drops the recorded entries.
func (s *Scope) Discard() {
	s.done = true
	s.history = model.NewHistory()
}

// Unsettled returns the entries of prior whose keys this scope never settled.
// After a partial failure these still describe files that were left untouched.
func (s *Scope) Unsettled(prior *model.PatchLibraryHistory) *model.PatchLibraryHistory {
	out := model.NewHistory()
	if prior == nil {
		return out
	}
	for _, f := range prior.AddedFiles {
		if !s.settled[f.Path.Key()] {
			out.AddedFiles = append(out.AddedFiles, f)
		}
	}
	for _, f := range prior.ReplacedFiles {
		if !s.settled[f.Path.Key()] {
			out.ReplacedFiles = append(out.ReplacedFiles, f)
		}
	}
	for _, f := range prior.RemovedFiles {
		if !s.settled[f.Path.Key()] {
			out.RemovedFiles = append(out.RemovedFiles, f)
		}
	}
	return out
}
