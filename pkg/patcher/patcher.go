// Package patcher applies the enabled patches of a library to an install directory.
//
// An apply run resolves the previous history and the enabled patches into one
// modification per file, applies each location with the matching LocationModifier and
// stores the history that undoes exactly what was done. Locations are processed one
// after another and fail independently: a failed location is logged, keeps its previous
// history where its files were left untouched, and makes Apply report false.
package patcher

import (
	"context"
	"fmt"
	"time"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/history"
	"github.com/cperrin88/modstack/pkg/library"
	"github.com/cperrin88/modstack/pkg/model"
)

// Event is a notification about the progress of an apply run.
type Event struct {
	Phase    string // resolving|applying|failed|done
	Location string // empty for loose files
	Msg      string
}

// Hooks carries callbacks for apply events.
type Hooks struct {
	OnEvent func(Event)
}

// Patcher applies patch libraries.
type Patcher struct {
	Registry *archive.Registry
	Hooks    Hooks
}

// New creates a patcher resolving archive locations through registry.
func New(registry *archive.Registry) *Patcher {
	return &Patcher{Registry: registry}
}

// ApplyRequest describes one apply run.
type ApplyRequest struct {
	Library *library.Library
	// Record is the library record to apply. It is loaded from Library when nil and is
	// updated in place with the new history.
	Record      *model.PatchLibrary
	InstallRoot string
	Progress    ProgressFunc
}

// Apply brings the install directory in line with the enabled patches of the record.
//
// The returned bool is false when at least one location failed. The error is only set
// when the run could not be attempted or its result could not be stored.
func (p *Patcher) Apply(ctx context.Context, req ApplyRequest) (bool, error) {
	lib := req.Library
	rec := req.Record
	if rec == nil {
		var err error
		if rec, err = lib.Load(); err != nil {
			return false, err
		}
	}

	p.emit(Event{Phase: "resolving", Msg: fmt.Sprintf("%d enabled patches", len(rec.EnabledPatches()))})
	patches := make([]LoadedPatch, 0, len(rec.Patches))
	for _, entry := range rec.EnabledPatches() {
		pf, err := lib.LoadPatch(entry.ID)
		if err != nil {
			return false, fmt.Errorf("failed to load patch %s: %w", entry.ID, err)
		}
		patches = append(patches, LoadedPatch{ID: entry.ID, File: pf})
	}

	locations := SortedLocations(Resolve(rec.History, patches, p.Registry))
	total := 0
	for _, lm := range locations {
		total += len(lm.Files)
	}

	builder := history.NewBuilder(lib.Store(), req.InstallRoot)
	defer builder.Close()

	success := true
	done := 0
	for _, lm := range locations {
		budget := len(lm.Files)
		prior := rec.History.ForLocation(lm.Location)
		scope := builder.Begin(lm.Location)

		if err := ctx.Err(); err != nil {
			logger.Error("Apply cancelled before location", logger.Fields{"location": lm.Path, "error": err})
			p.emit(Event{Phase: "failed", Location: lm.Path, Msg: err.Error()})
			builder.Preserve(prior)
			success = false
			done += budget
			continue
		}

		p.emit(Event{Phase: "applying", Location: lm.Path, Msg: fmt.Sprintf("%d files", budget)})
		base := done
		progress := func(current, count int) {
			if count > 0 {
				report(req.Progress, base+current*budget/count, total)
			}
		}

		err := p.modifierFor(lm, req.InstallRoot).Apply(ctx, scope, lm, progress)
		if err != nil && !lm.IsPhysical() {
			// The archive was not replaced, so its previous history still holds.
			scope.Discard()
			builder.Preserve(prior)
		} else {
			// Loose files processed before a failure are on disk already.
			scope.Commit()
			builder.Preserve(scope.Unsettled(prior))
		}
		if err != nil {
			success = false
			logger.Error("Failed to apply location", logger.Fields{"location": lm.Path, "error": err})
			p.emit(Event{Phase: "failed", Location: lm.Path, Msg: err.Error()})
		}

		done += budget
		report(req.Progress, done, total)
	}

	rec.History = builder.Finish()
	rec.LastApplied = time.Now()
	if err := lib.Save(rec); err != nil {
		return false, err
	}
	if _, err := lib.Prune(rec); err != nil {
		logger.Warn("Failed to prune unreferenced resources", logger.Fields{"error": err})
	}

	p.emit(Event{Phase: "done", Msg: fmt.Sprintf("%d locations, success=%t", len(locations), success)})
	if success {
		logger.Success("Applied patches", logger.Fields{"patches": len(patches), "files": total})
	}
	return success, nil
}

func (p *Patcher) modifierFor(lm *LocationModifications, installRoot string) LocationModifier {
	if lm.IsPhysical() {
		return NewPhysicalModifier(installRoot)
	}
	return NewArchiveModifier(installRoot)
}

func (p *Patcher) emit(e Event) {
	if p.Hooks.OnEvent != nil {
		p.Hooks.OnEvent(e)
	}
}
