package patcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/resource"
)

func persisted(id, content string) model.AddedPatchFile {
	return model.AddedPatchFile{
		Resource: resource.PersistedEntry(id),
		Checksum: resource.ChecksumBytes([]byte(content)),
	}
}

func addedAt(p model.PatchFilePath, id string) model.AddedPatchFile {
	f := persisted(id, id)
	f.Path = p
	return f
}

func TestResolve_RevertOnly(t *testing.T) {
	prior := model.NewHistory()
	prior.AddedFiles = append(prior.AddedFiles, model.HistoryAddedFile{Path: physical("a.bin")})
	prior.ReplacedFiles = append(prior.ReplacedFiles, model.HistoryReplacedFile{Path: physical("b.bin"), Resource: resource.PersistedEntry("orig-b")})
	prior.RemovedFiles = append(prior.RemovedFiles, model.HistoryRemovedFile{Path: physical("c.bin"), Resource: resource.PersistedEntry("orig-c")})

	locations := Resolve(prior, nil, nil)
	require.Len(t, locations, 1)
	files := locations[""].Files
	require.Len(t, files, 3)

	a := files["a.bin"]
	assert.Equal(t, model.ModificationRemove, a.Type)
	assert.Equal(t, model.SourceHistory, a.Source)
	assert.Equal(t, model.HistoryAdded, a.HistoryEntry.Type)

	b := files["b.bin"]
	assert.Equal(t, model.ModificationAdd, b.Type)
	assert.Equal(t, model.HistoryReplaced, b.HistoryEntry.Type)
	assert.Equal(t, "orig-b", b.NewResource.ID)
	assert.Equal(t, "orig-b", b.HistoryEntry.Original.ID)

	c := files["c.bin"]
	assert.Equal(t, model.ModificationAdd, c.Type)
	assert.Equal(t, model.HistoryRemoved, c.HistoryEntry.Type)
	assert.Equal(t, "orig-c", c.NewResource.ID)
}

func TestResolve_FirstDeclaredWinsAndInheritsHistory(t *testing.T) {
	prior := model.NewHistory()
	prior.ReplacedFiles = append(prior.ReplacedFiles, model.HistoryReplacedFile{
		Path:     physical("Data\\X.bin"),
		Resource: resource.PersistedEntry("pristine"),
	})

	patches := []LoadedPatch{
		{ID: "first", File: &model.PatchFile{AddedFiles: []model.AddedPatchFile{addedAt(physical("data/x.bin"), "first")}}},
		{ID: "second", File: &model.PatchFile{RemovedFiles: []model.PatchFilePath{physical("DATA/x.bin")}}},
	}

	locations := Resolve(prior, patches, nil)
	mod := locations[""].Files["data/x.bin"]
	require.NotNil(t, mod)
	assert.Equal(t, model.ModificationAdd, mod.Type)
	assert.Equal(t, model.SourcePatch, mod.Source)
	assert.Equal(t, "first", mod.NewResource.ID)
	require.NotNil(t, mod.HistoryEntry)
	assert.Equal(t, model.HistoryReplaced, mod.HistoryEntry.Type)
	assert.Equal(t, "pristine", mod.HistoryEntry.Original.ID)
}

func TestResolve_GroupsByLocationWithOneManagerPerID(t *testing.T) {
	built := 0
	registry := archive.NewRegistry()
	registry.Register(archive.LocationIDTar, func() archive.Manager {
		built++
		return archive.NewTarManager(false)
	})

	patches := []LoadedPatch{{ID: "a", File: &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			addedAt(packed("tex.cnt", "a.dds"), "1"),
			addedAt(packed("TEX.cnt", "b.dds"), "2"),
			addedAt(packed("sound/sfx.cnt", "c.wav"), "3"),
			addedAt(physical("d.bin"), "4"),
		},
		RemovedFiles: []model.PatchFilePath{
			{Location: "bad.cnt", LocationID: "unknown", FilePath: "e.bin"},
		},
	}}}

	locations := Resolve(nil, patches, registry)
	require.Len(t, locations, 4)
	assert.Equal(t, 1, built)

	assert.Nil(t, locations[""].Manager)
	assert.True(t, locations[""].IsPhysical())
	assert.Len(t, locations["tex.cnt"].Files, 2)
	assert.Equal(t, "tex.cnt", locations["tex.cnt"].Path, "first declared spelling locates the archive")
	assert.NotNil(t, locations["tex.cnt"].Manager)
	assert.Same(t, locations["tex.cnt"].Manager, locations["sound/sfx.cnt"].Manager)
	assert.ErrorIs(t, locations["bad.cnt"].ManagerErr, errutils.ErrUnknownArchiveType)

	sorted := SortedLocations(locations)
	assert.Equal(t, "", sorted[0].Location)
	assert.Equal(t, []string{"a.dds", "b.dds"}, locations["tex.cnt"].SortedKeys())
}
