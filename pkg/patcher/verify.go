package patcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/fsutil"
	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/resource"
)

// DriftKind classifies a Drift.
type DriftKind int

const (
	// DriftModified files exist with other content than the apply wrote.
	DriftModified DriftKind = iota
	// DriftMissing files were written by the apply and are gone.
	DriftMissing
	// DriftUnexpected files were removed by the apply and are back.
	DriftUnexpected
	// DriftUnreadable files could not be inspected.
	DriftUnreadable
)

// Drift is a file whose current state differs from what the last apply left behind.
type Drift struct {
	Kind DriftKind
	Path model.PatchFilePath
	Want resource.Checksum
	Got  resource.Checksum
	Err  error
}

func (d Drift) String() string {
	switch d.Kind {
	case DriftUnreadable:
		return fmt.Sprintf("%s: %v", d.Path, d.Err)
	case DriftUnexpected:
		return fmt.Sprintf("%s: should be absent", d.Path)
	case DriftMissing:
		return fmt.Sprintf("%s: missing", d.Path)
	default:
		return fmt.Sprintf("%s: checksum %s, expected %s", d.Path, short(d.Got), short(d.Want))
	}
}

func short(c resource.Checksum) string {
	if len(c) > 12 {
		return string(c[:12])
	}
	return string(c)
}

type expectation struct {
	path   model.PatchFilePath
	want   resource.Checksum
	absent bool
}

// Verify compares the install directory against a history. Added and replaced files
// must still carry the checksum the apply wrote, removed files must be absent. Entries
// recorded without a checksum are not checked for content. The drifts are returned
// sorted by path.
func (p *Patcher) Verify(ctx context.Context, h *model.PatchLibraryHistory, installRoot string) ([]Drift, error) {
	byLocation := map[string][]expectation{}
	locationIDs := map[string]string{}
	add := func(path model.PatchFilePath, want resource.Checksum, absent bool) {
		loc := path.NormalizedLocation()
		byLocation[loc] = append(byLocation[loc], expectation{path: path, want: want, absent: absent})
		if _, ok := locationIDs[loc]; !ok {
			locationIDs[loc] = path.LocationID
		}
	}
	if h != nil {
		for _, f := range h.AddedFiles {
			add(f.Path, f.Checksum, false)
		}
		for _, f := range h.ReplacedFiles {
			add(f.Path, f.Checksum, false)
		}
		for _, f := range h.RemovedFiles {
			add(f.Path, "", true)
		}
	}

	locations := make([]string, 0, len(byLocation))
	for loc := range byLocation {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	var drifts []Drift
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var current func(e expectation) (resource.Checksum, bool, error)
		if loc == "" {
			current = func(e expectation) (resource.Checksum, bool, error) {
				return physicalChecksum(installRoot, e.path.FilePath)
			}
		} else {
			wanted := make(map[string]bool, len(byLocation[loc]))
			for _, e := range byLocation[loc] {
				wanted[e.path.NormalizedFilePath()] = true
			}
			lookup, err := p.archiveChecksums(ctx, installRoot, byLocation[loc][0].path.Location, locationIDs[loc], wanted)
			if err != nil {
				for _, e := range byLocation[loc] {
					drifts = append(drifts, Drift{Kind: DriftUnreadable, Path: e.path, Want: e.want, Err: err})
				}
				continue
			}
			current = func(e expectation) (resource.Checksum, bool, error) {
				sum, ok := lookup[e.path.NormalizedFilePath()]
				return sum, ok, nil
			}
		}

		for _, e := range byLocation[loc] {
			sum, exists, err := current(e)
			switch {
			case err != nil:
				drifts = append(drifts, Drift{Kind: DriftUnreadable, Path: e.path, Want: e.want, Err: err})
			case e.absent && exists:
				drifts = append(drifts, Drift{Kind: DriftUnexpected, Path: e.path, Got: sum})
			case !e.absent && !exists:
				drifts = append(drifts, Drift{Kind: DriftMissing, Path: e.path, Want: e.want})
			case !e.absent && e.want != "" && sum != e.want:
				drifts = append(drifts, Drift{Kind: DriftModified, Path: e.path, Want: e.want, Got: sum})
			}
		}
	}

	sort.SliceStable(drifts, func(i, j int) bool { return drifts[i].Path.Key() < drifts[j].Path.Key() })
	return drifts, nil
}

// physicalChecksum hashes a file below root. Paths escaping root are reported as
// absent, matching the apply which never touches them.
func physicalChecksum(root, rel string) (resource.Checksum, bool, error) {
	path, err := fsutil.ResolveWithin(root, rel)
	if err != nil {
		return "", false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer func() { _ = f.Close() }()
	sum, err := resource.ComputeChecksum(f)
	if err != nil {
		return "", false, err
	}
	return sum, true, nil
}

// archiveChecksums hashes the wanted entries of an archive, keyed by normalized path.
// A missing archive yields an empty lookup.
func (p *Patcher) archiveChecksums(ctx context.Context, installRoot, location, locationID string, wanted map[string]bool) (map[string]resource.Checksum, error) {
	manager, err := resolveManager(p.Registry, locationID)
	if err != nil {
		return nil, err
	}
	archivePath, err := fsutil.ResolveWithin(installRoot, location)
	if err != nil {
		return map[string]resource.Checksum{}, nil
	}
	if !fsutil.FileExists(archivePath) {
		return map[string]resource.Checksum{}, nil
	}

	handle, err := loadArchive(ctx, manager, archivePath)
	if err != nil {
		return nil, err
	}
	entries, err := manager.Directory(handle)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory of %s: %w", location, err)
	}

	sums := make(map[string]resource.Checksum, len(wanted))
	for _, e := range entries {
		key := model.NormalizePath(manager.CombinePaths(e.Directory, e.Name))
		if !wanted[key] {
			continue
		}
		sum, err := entryChecksum(manager, handle, e)
		if err != nil {
			return nil, err
		}
		sums[key] = sum
	}
	return sums, nil
}

func entryChecksum(manager archive.Manager, handle archive.Handle, e archive.Entry) (resource.Checksum, error) {
	rc, err := manager.FileBytes(handle, e.Token)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", manager.CombinePaths(e.Directory, e.Name), err)
	}
	defer func() { _ = rc.Close() }()
	return resource.ComputeChecksum(rc)
}
