package model

import (
	"github.com/cperrin88/modstack/pkg/resource"
)

// ModificationType says whether a file ends up present or absent.
type ModificationType int

const (
	// ModificationAdd writes the file.
	ModificationAdd ModificationType = iota
	// ModificationRemove deletes the file.
	ModificationRemove
)

func (t ModificationType) String() string {
	if t == ModificationRemove {
		return "remove"
	}
	return "add"
}

// ModificationSource tells where a modification came from.
type ModificationSource int

const (
	// SourceHistory modifications revert the previously applied state.
	SourceHistory ModificationSource = iota
	// SourcePatch modifications come from an enabled patch.
	SourcePatch
)

func (s ModificationSource) String() string {
	if s == SourcePatch {
		return "patch"
	}
	return "history"
}

// HistoryEntryType mirrors the three lists of PatchLibraryHistory.
type HistoryEntryType int

const (
	// HistoryAdded paths had no original.
	HistoryAdded HistoryEntryType = iota
	// HistoryReplaced paths had an original that was overwritten.
	HistoryReplaced
	// HistoryRemoved paths had an original that was deleted.
	HistoryRemoved
)

func (t HistoryEntryType) String() string {
	switch t {
	case HistoryReplaced:
		return "replaced"
	case HistoryRemoved:
		return "removed"
	default:
		return "added"
	}
}

// HistoryEntry is what the previous history knew about a path.
// Original is set for HistoryReplaced and HistoryRemoved.
type HistoryEntry struct {
	Type     HistoryEntryType
	Original *resource.Entry
}

// HasOriginal reports whether the path existed before any patch touched it.
func (h *HistoryEntry) HasOriginal() bool {
	return h != nil && h.Type != HistoryAdded
}

// FileModification is the single decision taken for one file during an apply.
// HistoryEntry is nil when the previous history never touched the path.
type FileModification struct {
	Type         ModificationType
	Source       ModificationSource
	Path         PatchFilePath
	HistoryEntry *HistoryEntry
	NewResource  *resource.Entry
	Checksum     resource.Checksum
}
