package model

import (
	"github.com/cperrin88/modstack/pkg/resource"
)

// AddedPatchFile is a file a patch writes, together with its payload.
type AddedPatchFile struct {
	Path     PatchFilePath     `json:"path"`
	Resource resource.Entry    `json:"resource"`
	Checksum resource.Checksum `json:"checksum"`
}

// PatchFile is one patch's declared contribution.
type PatchFile struct {
	AddedFiles   []AddedPatchFile `json:"added_files"`
	RemovedFiles []PatchFilePath  `json:"removed_files"`
}

// ResourceIDs returns the ids of all persisted payload blobs.
func (p *PatchFile) ResourceIDs() []string {
	ids := make([]string, 0, len(p.AddedFiles))
	for _, f := range p.AddedFiles {
		if f.Resource.ID != "" {
			ids = append(ids, f.Resource.ID)
		}
	}
	return ids
}

// PatchLibraryPatchEntry is a patch registered in the library. The order of entries in
// the library is the declared order.
type PatchLibraryPatchEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}
