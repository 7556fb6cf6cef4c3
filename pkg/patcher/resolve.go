package patcher

import (
	"sort"

	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/model"
)

// LoadedPatch is an enabled patch together with its patch file.
type LoadedPatch struct {
	ID   string
	File *model.PatchFile
}

// LocationModifications are the modifications of a single location keyed by
// normalized file path.
type LocationModifications struct {
	// Location is the normalized location; empty for loose files.
	Location string
	// Path is the location as first declared, used to find the archive on disk.
	Path       string
	LocationID string
	// Manager is nil for the physical location.
	Manager archive.Manager
	// ManagerErr is set when no manager is registered for LocationID.
	ManagerErr error
	Files      map[string]*model.FileModification
}

// IsPhysical reports whether the location is the install directory itself.
func (lm *LocationModifications) IsPhysical() bool {
	return lm.Location == ""
}

// SortedKeys returns the file keys in lexical order.
func (lm *LocationModifications) SortedKeys() []string {
	keys := make([]string, 0, len(lm.Files))
	for k := range lm.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve merges the revert of prior with the enabled patches into one modification
// per file, grouped by location.
//
// Reverts are computed first. Patches are then visited in reverse declared order so
// the first declared patch is visited last and wins. A modification that replaces
// another for the same file inherits its history entry, which keeps the pristine
// original reachable through any chain of patches.
func Resolve(prior *model.PatchLibraryHistory, patches []LoadedPatch, registry *archive.Registry) map[string]*LocationModifications {
	mods := make(map[string]*model.FileModification)
	order := make([]string, 0)
	set := func(m *model.FileModification) {
		key := m.Path.Key()
		if existing, ok := mods[key]; ok {
			if m.HistoryEntry == nil {
				m.HistoryEntry = existing.HistoryEntry
			}
		} else {
			order = append(order, key)
		}
		mods[key] = m
	}

	if prior != nil {
		for _, f := range prior.AddedFiles {
			set(&model.FileModification{
				Type:         model.ModificationRemove,
				Source:       model.SourceHistory,
				Path:         f.Path,
				HistoryEntry: &model.HistoryEntry{Type: model.HistoryAdded},
			})
		}
		for _, f := range prior.ReplacedFiles {
			original := f.Resource
			set(&model.FileModification{
				Type:         model.ModificationAdd,
				Source:       model.SourceHistory,
				Path:         f.Path,
				HistoryEntry: &model.HistoryEntry{Type: model.HistoryReplaced, Original: &original},
				NewResource:  &original,
			})
		}
		for _, f := range prior.RemovedFiles {
			original := f.Resource
			set(&model.FileModification{
				Type:         model.ModificationAdd,
				Source:       model.SourceHistory,
				Path:         f.Path,
				HistoryEntry: &model.HistoryEntry{Type: model.HistoryRemoved, Original: &original},
				NewResource:  &original,
			})
		}
	}

	for i := len(patches) - 1; i >= 0; i-- {
		pf := patches[i].File
		if pf == nil {
			continue
		}
		for _, f := range pf.AddedFiles {
			payload := f.Resource
			set(&model.FileModification{
				Type:        model.ModificationAdd,
				Source:      model.SourcePatch,
				Path:        f.Path,
				NewResource: &payload,
				Checksum:    f.Checksum,
			})
		}
		for _, p := range pf.RemovedFiles {
			set(&model.FileModification{
				Type:   model.ModificationRemove,
				Source: model.SourcePatch,
				Path:   p,
			})
		}
	}

	managers := make(map[string]archive.Manager)
	managerErrs := make(map[string]error)
	locations := make(map[string]*LocationModifications)
	for _, key := range order {
		m := mods[key]
		loc := m.Path.NormalizedLocation()
		lm, ok := locations[loc]
		if !ok {
			lm = &LocationModifications{
				Location:   loc,
				Path:       m.Path.Location,
				LocationID: m.Path.LocationID,
				Files:      make(map[string]*model.FileModification),
			}
			if loc != "" {
				if _, cached := managers[lm.LocationID]; !cached {
					managers[lm.LocationID], managerErrs[lm.LocationID] = resolveManager(registry, lm.LocationID)
				}
				lm.Manager, lm.ManagerErr = managers[lm.LocationID], managerErrs[lm.LocationID]
			}
			locations[loc] = lm
		}
		lm.Files[m.Path.NormalizedFilePath()] = m
	}
	return locations
}

func resolveManager(registry *archive.Registry, id string) (archive.Manager, error) {
	if registry == nil {
		return nil, errutils.ErrUnknownArchiveTypeWithID(id)
	}
	return registry.Resolve(id)
}

// SortedLocations returns the locations in processing order: the physical location
// first, then archives in lexical order.
func SortedLocations(locations map[string]*LocationModifications) []*LocationModifications {
	out := make([]*LocationModifications, 0, len(locations))
	for _, lm := range locations {
		out = append(out, lm)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Location < out[j].Location
	})
	return out
}
