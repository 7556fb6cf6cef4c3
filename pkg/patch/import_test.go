package patch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `name: Better Textures
version: 1.2.0
description: sharper walls
archives:
  - prefix: data/textures
    location: Data/Textures.tar
    location_id: tar
removed:
  - path: data/old.bin
  - location: Data/Textures.tar
    location_id: tar
    path: walls/legacy.dds
`

func writeSource(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func newStore(t *testing.T) *resource.Store {
	t.Helper()
	store, err := resource.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func readEntry(t *testing.T, store *resource.Store, e resource.Entry) string {
	t.Helper()
	rc, err := store.Open(e)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func byKey(pf *model.PatchFile) map[string]model.AddedPatchFile {
	out := make(map[string]model.AddedPatchFile, len(pf.AddedFiles))
	for _, f := range pf.AddedFiles {
		out[f.Path.Key()] = f
	}
	return out
}

func TestImport_Directory(t *testing.T) {
	src := writeSource(t, map[string]string{
		ManifestName:                    testManifest,
		"data/level1.bin":               "level one",
		"data/textures/walls/brick.dds": "brick",
		"data/textures/Floor/Stone.dds": "stone",
	})
	store := newStore(t)

	res, err := Import(context.Background(), store, src, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Better Textures", res.Manifest.Name)
	entry := res.Entry("textures")
	assert.Equal(t, "textures", entry.ID)
	assert.Equal(t, "1.2.0", entry.Version)
	assert.False(t, entry.Enabled)

	files := byKey(res.File)
	require.Len(t, files, 3)

	level := files["|data/level1.bin"]
	assert.True(t, level.Path.IsPhysical())
	assert.Equal(t, resource.ChecksumBytes([]byte("level one")), level.Checksum)
	assert.False(t, level.Resource.IsPending())
	assert.Equal(t, "level one", readEntry(t, store, level.Resource))

	stone := files["data/textures.tar|floor/stone.dds"]
	assert.Equal(t, "Data/Textures.tar", stone.Path.Location)
	assert.Equal(t, "tar", stone.Path.LocationID)
	assert.Equal(t, "Floor/Stone.dds", stone.Path.FilePath)
	assert.Equal(t, "stone", readEntry(t, store, stone.Resource))

	_, ok := files["data/textures.tar|walls/brick.dds"]
	assert.True(t, ok)

	require.Len(t, res.File.RemovedFiles, 2)
	assert.Equal(t, "data/textures.tar|walls/legacy.dds", res.File.RemovedFiles[0].Key())
	assert.Equal(t, "|data/old.bin", res.File.RemovedFiles[1].Key())
}

func TestImport_WithoutManifest(t *testing.T) {
	src := writeSource(t, map[string]string{"bin/game.exe": "patched"})

	res, err := Import(context.Background(), newStore(t), src, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.Manifest.Name)
	require.Len(t, res.File.AddedFiles, 1)
	assert.Equal(t, "bin/game.exe", res.File.AddedFiles[0].Path.FilePath)
	assert.Empty(t, res.File.RemovedFiles)
}

func TestImport_Archive(t *testing.T) {
	src := writeSource(t, map[string]string{
		ManifestName:                    testManifest,
		"data/textures/walls/brick.dds": "brick",
		"data/level1.bin":               "level one",
	})
	packed := filepath.Join(t.TempDir(), "patch.tar.gz")
	require.NoError(t, archive.PackDir(context.Background(), src, packed, true))
	store := newStore(t)

	res, err := Import(context.Background(), store, packed, Options{})
	require.NoError(t, err)

	files := byKey(res.File)
	require.Len(t, files, 2)
	assert.Equal(t, "brick", readEntry(t, store, files["data/textures.tar|walls/brick.dds"].Resource))
	assert.Equal(t, "level one", readEntry(t, store, files["|data/level1.bin"].Resource))
	assert.Len(t, res.File.RemovedFiles, 2)
}

func TestImport_Empty(t *testing.T) {
	src := writeSource(t, map[string]string{ManifestName: "name: nothing\n"})

	_, err := Import(context.Background(), newStore(t), src, Options{})
	assert.ErrorIs(t, err, errutils.ErrEmptyPatch)
}

func TestImport_Collision(t *testing.T) {
	src := writeSource(t, map[string]string{
		ManifestName: `archives:
  - prefix: a
    location: x.tar
    location_id: tar
  - prefix: b
    location: x.tar
    location_id: tar
`,
		"a/file.txt": "one",
		"b/FILE.txt": "two",
	})
	store := newStore(t)
	kept, err := store.Put(strings.NewReader("other patch"))
	require.NoError(t, err)

	_, err = Import(context.Background(), store, src, Options{})
	assert.ErrorIs(t, err, errutils.ErrInvalidManifest)

	ids, err := store.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{kept.ID}, ids, "blobs of the failed import are deleted")
}

func TestImport_Cancelled(t *testing.T) {
	src := writeSource(t, map[string]string{"a.txt": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Import(ctx, newStore(t), src, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "full", input: testManifest},
		{name: "empty document", input: ""},
		{name: "unknown field", input: "nmae: typo\n", wantErr: true},
		{name: "missing prefix", input: "archives:\n  - location: a.tar\n    location_id: tar\n", wantErr: true},
		{name: "missing location id", input: "archives:\n  - prefix: a\n    location: a.tar\n", wantErr: true},
		{name: "duplicate prefix", input: "archives:\n  - {prefix: a, location: a.tar, location_id: tar}\n  - {prefix: A/, location: b.tar, location_id: tar}\n", wantErr: true},
		{name: "removed without path", input: "removed:\n  - location: a.tar\n    location_id: tar\n", wantErr: true},
		{name: "removed archive without id", input: "removed:\n  - location: a.tar\n    path: x\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest(strings.NewReader(tt.input), "")
			if tt.wantErr {
				assert.ErrorIs(t, err, errutils.ErrInvalidManifest)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}

func TestParseManifest_DefaultLocationID(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(`archives:
  - prefix: data
    location: data.tar.gz
removed:
  - path: loose.txt
  - location: data.tar.gz
    path: old.txt
`), "tar.gz")
	require.NoError(t, err)

	assert.Equal(t, "tar.gz", m.Archives[0].LocationID)
	assert.Empty(t, m.Removed[0].LocationID)
	assert.Equal(t, "tar.gz", m.Removed[1].LocationID)
}

func TestManifest_RouteLongestPrefix(t *testing.T) {
	m := &Manifest{Archives: []ArchiveMapping{
		{Prefix: "data", Location: "data.tar", LocationID: "tar"},
		{Prefix: "data/sound", Location: "sound.tar.gz", LocationID: "tar.gz"},
	}}

	got := m.route("data/sound/Music/theme.ogg")
	assert.Equal(t, "sound.tar.gz", got.Location)
	assert.Equal(t, "Music/theme.ogg", got.FilePath)

	got = m.route("data/maps/one.map")
	assert.Equal(t, "data.tar", got.Location)
	assert.Equal(t, "maps/one.map", got.FilePath)

	got = m.route("database.bin")
	assert.True(t, got.IsPhysical())
	assert.Equal(t, "database.bin", got.FilePath)
}
