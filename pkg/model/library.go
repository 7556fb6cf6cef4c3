package model

import "time"

// PatchLibrary is the durable record of all known patches of a target plus the history
// of the last applied state.
type PatchLibrary struct {
	FormatVersion  string                   `json:"format_version"`
	GameIdentifier string                   `json:"game_identifier"`
	LastApplied    time.Time                `json:"last_applied,omitempty"`
	History        *PatchLibraryHistory     `json:"history,omitempty"`
	Patches        []PatchLibraryPatchEntry `json:"patches"`
}

// FindPatch returns the entry with the given id, or nil.
func (l *PatchLibrary) FindPatch(id string) *PatchLibraryPatchEntry {
	for i := range l.Patches {
		if l.Patches[i].ID == id {
			return &l.Patches[i]
		}
	}
	return nil
}

// EnabledPatches returns the enabled entries in declared order.
func (l *PatchLibrary) EnabledPatches() []PatchLibraryPatchEntry {
	enabled := make([]PatchLibraryPatchEntry, 0, len(l.Patches))
	for _, p := range l.Patches {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// RemovePatch drops an entry and reports whether it existed.
func (l *PatchLibrary) RemovePatch(id string) bool {
	for i, p := range l.Patches {
		if p.ID == id {
			l.Patches = append(l.Patches[:i], l.Patches[i+1:]...)
			return true
		}
	}
	return false
}
