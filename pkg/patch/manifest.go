package patch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/model"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file at the root of a patch source that describes it.
const ManifestName = "patch.yaml"

// Manifest describes a patch source. Every field is optional.
type Manifest struct {
	Name        string           `yaml:"name,omitempty"`
	Version     string           `yaml:"version,omitempty"`
	Description string           `yaml:"description,omitempty"`
	Archives    []ArchiveMapping `yaml:"archives,omitempty"`
	Removed     []RemovedFile    `yaml:"removed,omitempty"`
}

// ArchiveMapping routes the files below Prefix into the archive at Location.
type ArchiveMapping struct {
	Prefix     string `yaml:"prefix"`
	Location   string `yaml:"location"`
	LocationID string `yaml:"location_id"`
}

// RemovedFile is a file the patch deletes. An empty Location means a loose file.
type RemovedFile struct {
	Location   string `yaml:"location,omitempty"`
	LocationID string `yaml:"location_id,omitempty"`
	Path       string `yaml:"path"`
}

// ParseManifest decodes and validates a manifest. Archive entries without a
// location_id get defaultLocationID.
func ParseManifest(r io.Reader, defaultLocationID string) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", errutils.ErrInvalidManifest, err)
	}
	m.setDefaultLocationID(defaultLocationID)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest reads ManifestName from the root of fsys. A source without a manifest
// yields an empty one.
func LoadManifest(fsys fs.FS, defaultLocationID string) (*Manifest, error) {
	f, err := fsys.Open(ManifestName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", ManifestName, err)
	}
	defer func() { _ = f.Close() }()
	return ParseManifest(f, defaultLocationID)
}

func (m *Manifest) setDefaultLocationID(id string) {
	for i := range m.Archives {
		if m.Archives[i].LocationID == "" {
			m.Archives[i].LocationID = id
		}
	}
	for i := range m.Removed {
		if m.Removed[i].LocationID == "" && model.NormalizePath(m.Removed[i].Location) != "" {
			m.Removed[i].LocationID = id
		}
	}
}

// Validate checks that every mapping and removal names a usable path.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Archives))
	for i, a := range m.Archives {
		prefix := model.NormalizePath(a.Prefix)
		switch {
		case prefix == "":
			return fmt.Errorf("%w: archives[%d] has no prefix", errutils.ErrInvalidManifest, i)
		case model.NormalizePath(a.Location) == "":
			return fmt.Errorf("%w: archives[%d] has no location", errutils.ErrInvalidManifest, i)
		case a.LocationID == "":
			return fmt.Errorf("%w: archives[%d] has no location_id", errutils.ErrInvalidManifest, i)
		case seen[prefix]:
			return fmt.Errorf("%w: prefix %q is mapped twice", errutils.ErrInvalidManifest, a.Prefix)
		}
		seen[prefix] = true
	}
	for i, r := range m.Removed {
		if model.NormalizePath(r.Path) == "" {
			return fmt.Errorf("%w: removed[%d] has no path", errutils.ErrInvalidManifest, i)
		}
		if model.NormalizePath(r.Location) != "" && r.LocationID == "" {
			return fmt.Errorf("%w: removed[%d] has a location but no location_id", errutils.ErrInvalidManifest, i)
		}
	}
	return nil
}

// route maps a slash separated source path to its patch file path. The longest
// matching prefix wins; unmatched files are loose files.
func (m *Manifest) route(name string) model.PatchFilePath {
	norm := model.NormalizePath(name)
	best := -1
	bestLen := 0
	for i, a := range m.Archives {
		prefix := model.NormalizePath(a.Prefix)
		if len(prefix) > bestLen && strings.HasPrefix(norm, prefix+"/") {
			best, bestLen = i, len(prefix)
		}
	}
	if best < 0 {
		return model.PatchFilePath{FilePath: name}
	}
	a := m.Archives[best]
	depth := strings.Count(model.NormalizePath(a.Prefix), "/") + 1
	return model.PatchFilePath{
		Location:   a.Location,
		LocationID: a.LocationID,
		FilePath:   strings.SplitN(name, "/", depth+1)[depth],
	}
}

// removedPaths returns the manifest removals in a stable order.
func (m *Manifest) removedPaths() []model.PatchFilePath {
	out := make([]model.PatchFilePath, 0, len(m.Removed))
	for _, r := range m.Removed {
		out = append(out, model.PatchFilePath{
			Location:   r.Location,
			LocationID: r.LocationID,
			FilePath:   r.Path,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
