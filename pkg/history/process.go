package history

import (
	"fmt"
	"io"

	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/resource"
)

// Target is the file a modification acts on, either on disk or inside an archive.
type Target interface {
	// Exists reports whether the file is currently present.
	Exists() (bool, error)
	// Open returns the current content of the file.
	Open() (io.ReadCloser, error)
	// Write replaces the file content, creating the file if needed.
	Write(r io.Reader) error
	// Delete removes the file.
	Delete() error
}

// ProcessFile applies mod to target and records into s whatever is needed to undo it.
//
// The current bytes of a file are snapshotted only the first time a patch touches it.
// When the previous history already knows the path, its original is carried over
// unchanged so the pristine content survives any number of apply cycles.
//
// A patch Add without a resource or checksum means the patch data is inconsistent and
// causes a panic.
func ProcessFile(s *Scope, mod *model.FileModification, target Target) error {
	var err error
	switch mod.Type {
	case model.ModificationAdd:
		err = processAdd(s, mod, target)
	case model.ModificationRemove:
		err = processRemove(s, mod, target)
	default:
		panic(fmt.Sprintf("unknown modification type %d for %s", mod.Type, mod.Path))
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", mod.Type, mod.Path, err)
	}
	s.Settle(mod.Path.Key())
	return nil
}

func processAdd(s *Scope, mod *model.FileModification, target Target) error {
	if mod.NewResource == nil {
		panic(fmt.Sprintf("add of %s has no resource", mod.Path))
	}

	if mod.Source == model.SourceHistory {
		if !mod.HistoryEntry.HasOriginal() {
			panic(fmt.Sprintf("revert of %s has no original to restore", mod.Path))
		}
		return writeResource(s, target, *mod.NewResource)
	}

	if mod.Checksum.IsZero() {
		panic(fmt.Sprintf("add of %s from a patch has no checksum", mod.Path))
	}

	entry := mod.HistoryEntry
	switch {
	case entry == nil:
		exists, err := target.Exists()
		if err != nil {
			return err
		}
		if !exists {
			s.RecordAdded(mod.Path, mod.Checksum)
			return writeResource(s, target, *mod.NewResource)
		}
		original, current, err := snapshot(s, target)
		if err != nil {
			return err
		}
		s.RecordReplaced(mod.Path, mod.Checksum, original)
		if current == mod.Checksum {
			return nil
		}
		return writeResource(s, target, *mod.NewResource)

	case entry.Type == model.HistoryAdded:
		s.RecordAdded(mod.Path, mod.Checksum)
		return writeUnlessCurrent(s, target, mod)

	default:
		s.RecordReplaced(mod.Path, mod.Checksum, originalOf(mod))
		return writeUnlessCurrent(s, target, mod)
	}
}

func processRemove(s *Scope, mod *model.FileModification, target Target) error {
	entry := mod.HistoryEntry

	if mod.Source == model.SourceHistory {
		if entry == nil || entry.Type != model.HistoryAdded {
			panic(fmt.Sprintf("revert removal of %s without an added history entry", mod.Path))
		}
		return deleteIfExists(target)
	}

	switch {
	case entry == nil:
		exists, err := target.Exists()
		if err != nil || !exists {
			return err
		}
		original, _, err := snapshot(s, target)
		if err != nil {
			return err
		}
		s.RecordRemoved(mod.Path, original)
		return target.Delete()

	case entry.Type == model.HistoryAdded:
		return deleteIfExists(target)

	default:
		s.RecordRemoved(mod.Path, originalOf(mod))
		return deleteIfExists(target)
	}
}

func originalOf(mod *model.FileModification) resource.Entry {
	if mod.HistoryEntry.Original == nil {
		panic(fmt.Sprintf("%s history entry of %s has no original", mod.HistoryEntry.Type, mod.Path))
	}
	return *mod.HistoryEntry.Original
}

// snapshot stores the current content of target and returns it with its checksum.
func snapshot(s *Scope, target Target) (resource.Entry, resource.Checksum, error) {
	rc, err := target.Open()
	if err != nil {
		return resource.Entry{}, "", fmt.Errorf("failed to open current file: %w", err)
	}
	defer func() { _ = rc.Close() }()

	hr := resource.NewHashingReader(rc)
	entry, err := s.CreateResourceEntry(hr)
	if err != nil {
		return resource.Entry{}, "", fmt.Errorf("failed to snapshot current file: %w", err)
	}
	return entry, hr.Checksum(), nil
}

func writeUnlessCurrent(s *Scope, target Target, mod *model.FileModification) error {
	exists, err := target.Exists()
	if err != nil {
		return err
	}
	if exists {
		rc, err := target.Open()
		if err != nil {
			return fmt.Errorf("failed to open current file: %w", err)
		}
		current, err := resource.ComputeChecksum(rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
		if current == mod.Checksum {
			return nil
		}
	}
	return writeResource(s, target, *mod.NewResource)
}

func writeResource(s *Scope, target Target, e resource.Entry) error {
	rc, err := s.Open(e)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	return target.Write(rc)
}

func deleteIfExists(target Target) error {
	exists, err := target.Exists()
	if err != nil || !exists {
		return err
	}
	return target.Delete()
}
