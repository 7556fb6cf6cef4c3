package model

import (
	"github.com/cperrin88/modstack/pkg/resource"
)

// HistoryAddedFile is a path that did not exist before patching. Reverting deletes it.
type HistoryAddedFile struct {
	Path     PatchFilePath     `json:"path"`
	Checksum resource.Checksum `json:"checksum,omitempty"`
}

// HistoryReplacedFile is a path that existed before patching and was overwritten.
// Resource holds the original bytes, Checksum the checksum of the patched content.
type HistoryReplacedFile struct {
	Path     PatchFilePath     `json:"path"`
	Resource resource.Entry    `json:"resource"`
	Checksum resource.Checksum `json:"checksum,omitempty"`
}

// HistoryRemovedFile is a path that existed before patching and was deleted.
// Resource holds the original bytes.
type HistoryRemovedFile struct {
	Path     PatchFilePath  `json:"path"`
	Resource resource.Entry `json:"resource"`
}

// PatchLibraryHistory is the undo log of the currently applied patch set.
type PatchLibraryHistory struct {
	AddedFiles    []HistoryAddedFile    `json:"added_files"`
	ReplacedFiles []HistoryReplacedFile `json:"replaced_files"`
	RemovedFiles  []HistoryRemovedFile  `json:"removed_files"`
}

// NewHistory returns an empty history with non-nil lists.
func NewHistory() *PatchLibraryHistory {
	return &PatchLibraryHistory{
		AddedFiles:    []HistoryAddedFile{},
		ReplacedFiles: []HistoryReplacedFile{},
		RemovedFiles:  []HistoryRemovedFile{},
	}
}

// IsEmpty reports whether the history records nothing to undo.
func (h *PatchLibraryHistory) IsEmpty() bool {
	return h == nil || len(h.AddedFiles)+len(h.ReplacedFiles)+len(h.RemovedFiles) == 0
}

// Len returns the number of recorded paths.
func (h *PatchLibraryHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.AddedFiles) + len(h.ReplacedFiles) + len(h.RemovedFiles)
}

// ResourceIDs returns the ids of all original-content blobs the history depends on.
func (h *PatchLibraryHistory) ResourceIDs() []string {
	if h == nil {
		return nil
	}
	ids := make([]string, 0, len(h.ReplacedFiles)+len(h.RemovedFiles))
	for _, f := range h.ReplacedFiles {
		if f.Resource.ID != "" {
			ids = append(ids, f.Resource.ID)
		}
	}
	for _, f := range h.RemovedFiles {
		if f.Resource.ID != "" {
			ids = append(ids, f.Resource.ID)
		}
	}
	return ids
}

// ForLocation returns the subset of the history whose paths live in the given
// normalized location.
func (h *PatchLibraryHistory) ForLocation(location string) *PatchLibraryHistory {
	out := NewHistory()
	if h == nil {
		return out
	}
	for _, f := range h.AddedFiles {
		if f.Path.NormalizedLocation() == location {
			out.AddedFiles = append(out.AddedFiles, f)
		}
	}
	for _, f := range h.ReplacedFiles {
		if f.Path.NormalizedLocation() == location {
			out.ReplacedFiles = append(out.ReplacedFiles, f)
		}
	}
	for _, f := range h.RemovedFiles {
		if f.Path.NormalizedLocation() == location {
			out.RemovedFiles = append(out.RemovedFiles, f)
		}
	}
	return out
}
