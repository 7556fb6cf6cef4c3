package patcher

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/library"
	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/resource"
)

type fixture struct {
	t        *testing.T
	lib      *library.Library
	rec      *model.PatchLibrary
	root     string
	registry *archive.Registry
	patcher  *Patcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lib, err := library.Open(filepath.Join(t.TempDir(), "library"))
	require.NoError(t, err)
	registry := archive.DefaultRegistry()
	return &fixture{
		t:        t,
		lib:      lib,
		rec:      library.New("test"),
		root:     t.TempDir(),
		registry: registry,
		patcher:  New(registry),
	}
}

func physical(p string) model.PatchFilePath {
	return model.PatchFilePath{FilePath: p}
}

func packed(location, p string) model.PatchFilePath {
	return model.PatchFilePath{Location: location, LocationID: archive.LocationIDTar, FilePath: p}
}

func added(p model.PatchFilePath, content string) model.AddedPatchFile {
	return model.AddedPatchFile{
		Path: p,
		Resource: resource.NewPendingEntry(func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		}),
		Checksum: resource.ChecksumBytes([]byte(content)),
	}
}

func (f *fixture) addPatch(id string, enabled bool, pf *model.PatchFile) {
	f.t.Helper()
	require.NoError(f.t, f.lib.SavePatch(id, pf))
	f.rec.Patches = append(f.rec.Patches, model.PatchLibraryPatchEntry{ID: id, Enabled: enabled})
}

func (f *fixture) setEnabled(id string, enabled bool) {
	f.t.Helper()
	entry := f.rec.FindPatch(id)
	require.NotNil(f.t, entry)
	entry.Enabled = enabled
}

func (f *fixture) apply() bool {
	f.t.Helper()
	ok, err := f.patcher.Apply(context.Background(), ApplyRequest{
		Library:     f.lib,
		Record:      f.rec,
		InstallRoot: f.root,
	})
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func (f *fixture) write(rel, content string) {
	f.t.Helper()
	require.NoError(f.t, os.MkdirAll(filepath.Dir(f.path(rel)), 0o755))
	require.NoError(f.t, os.WriteFile(f.path(rel), []byte(content), 0o644))
}

func (f *fixture) read(rel string) string {
	f.t.Helper()
	data, err := os.ReadFile(f.path(rel))
	require.NoError(f.t, err)
	return string(data)
}

func (f *fixture) packArchive(rel string, files map[string]string) {
	f.t.Helper()
	src := f.t.TempDir()
	for name, content := range files {
		full := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(f.t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(f.t, os.WriteFile(full, []byte(content), 0o644))
	}
	require.NoError(f.t, archive.PackDir(context.Background(), src, f.path(rel), false))
}

func (f *fixture) archiveContents(rel string) map[string]string {
	f.t.Helper()
	m := archive.NewTarManager(false)
	file, err := os.Open(f.path(rel))
	require.NoError(f.t, err)
	defer file.Close()

	h, err := m.Load(context.Background(), file)
	require.NoError(f.t, err)
	entries, err := m.Directory(h)
	require.NoError(f.t, err)

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		rc, err := m.FileBytes(h, e.Token)
		require.NoError(f.t, err)
		data, err := io.ReadAll(rc)
		require.NoError(f.t, err)
		out[m.CombinePaths(e.Directory, e.Name)] = string(data)
	}
	return out
}

func (f *fixture) age(rel string) time.Time {
	f.t.Helper()
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(f.t, os.Chtimes(f.path(rel), old, old))
	return old
}

func (f *fixture) modTime(rel string) time.Time {
	f.t.Helper()
	info, err := os.Stat(f.path(rel))
	require.NoError(f.t, err)
	return info.ModTime()
}

func TestApply_Level1Scenario(t *testing.T) {
	f := newFixture(t)
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("data/level1.bin"), "level one")},
	})

	require.True(t, f.apply())
	assert.Equal(t, "level one", f.read("data/level1.bin"))
	require.Len(t, f.rec.History.AddedFiles, 1)
	assert.Equal(t, "data/level1.bin", f.rec.History.AddedFiles[0].Path.FilePath)
	assert.Equal(t, resource.ChecksumBytes([]byte("level one")), f.rec.History.AddedFiles[0].Checksum)

	f.setEnabled("a", false)
	require.True(t, f.apply())
	assert.NoFileExists(t, f.path("data/level1.bin"))
	assert.Empty(t, f.rec.History.AddedFiles)
	assert.NoDirExists(t, f.path("data"))
}

func TestApply_PersistsLibrary(t *testing.T) {
	f := newFixture(t)
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("a.bin"), "a")},
	})
	require.True(t, f.apply())

	loaded, err := f.lib.Load()
	require.NoError(t, err)
	assert.Equal(t, f.rec.History, loaded.History)
	assert.False(t, loaded.LastApplied.IsZero())
}

func TestApply_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.write("bin/game.cfg", "original config")
	f.write("intro.bik", "intro")
	f.packArchive("tex.cnt", map[string]string{
		"textures/hero.dds":   "hero",
		"textures/ui/hud.dds": "hud",
	})
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			added(physical("bin/game.cfg"), "patched config"),
			added(physical("data/level1.bin"), "level"),
			added(packed("tex.cnt", "Textures\\Hero.DDS"), "hd hero"),
			added(packed("tex.cnt", "textures/new.dds"), "new"),
		},
		RemovedFiles: []model.PatchFilePath{
			physical("intro.bik"),
			packed("tex.cnt", "textures/ui/hud.dds"),
		},
	})

	require.True(t, f.apply())
	first := f.rec.History

	cfgTime := f.age("bin/game.cfg")
	levelTime := f.age("data/level1.bin")
	archiveTime := f.age("tex.cnt")

	require.True(t, f.apply())
	assert.Equal(t, first, f.rec.History)
	assert.True(t, cfgTime.Equal(f.modTime("bin/game.cfg")))
	assert.True(t, levelTime.Equal(f.modTime("data/level1.bin")))
	assert.True(t, archiveTime.Equal(f.modTime("tex.cnt")))
	assert.NoFileExists(t, f.path("intro.bik"))
}

func TestApply_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.write("bin/game.cfg", "original config")
	f.write("intro.bik", "intro")
	archived := map[string]string{
		"textures/hero.dds":   "hero",
		"textures/ui/hud.dds": "hud",
		"readme.txt":          "readme",
	}
	f.packArchive("tex.cnt", archived)

	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			added(physical("bin/game.cfg"), "patched config"),
			added(physical("mods/sub/extra.bin"), "extra"),
			added(packed("tex.cnt", "textures/hero.dds"), "hd hero"),
			added(packed("tex.cnt", "textures/new.dds"), "new"),
		},
		RemovedFiles: []model.PatchFilePath{
			physical("intro.bik"),
			packed("tex.cnt", "textures/ui/hud.dds"),
		},
	})

	require.True(t, f.apply())
	assert.Equal(t, "patched config", f.read("bin/game.cfg"))
	assert.NoFileExists(t, f.path("intro.bik"))
	assert.Equal(t, map[string]string{
		"textures/hero.dds": "hd hero",
		"textures/new.dds":  "new",
		"readme.txt":        "readme",
	}, f.archiveContents("tex.cnt"))

	f.setEnabled("a", false)
	require.True(t, f.apply())
	assert.Equal(t, "original config", f.read("bin/game.cfg"))
	assert.Equal(t, "intro", f.read("intro.bik"))
	assert.NoDirExists(t, f.path("mods"))
	assert.Equal(t, archived, f.archiveContents("tex.cnt"))
	assert.True(t, f.rec.History.IsEmpty())
}

func TestApply_MixedCaseArchiveLocation(t *testing.T) {
	f := newFixture(t)
	f.packArchive("Data/Tex.tar", map[string]string{"a.dds": "orig"})
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			added(packed("Data/Tex.tar", "a.dds"), "patched"),
			added(packed("Data/Tex.tar", "Maps/B.dds"), "new"),
		},
	})

	require.True(t, f.apply())
	assert.Equal(t, map[string]string{"a.dds": "patched", "Maps/B.dds": "new"}, f.archiveContents("Data/Tex.tar"))
	require.Len(t, f.rec.History.ReplacedFiles, 1)
	assert.Equal(t, "Data/Tex.tar", f.rec.History.ReplacedFiles[0].Path.Location)
	require.Len(t, f.rec.History.AddedFiles, 1)
	assert.Equal(t, "Maps/B.dds", f.rec.History.AddedFiles[0].Path.FilePath)

	f.setEnabled("a", false)
	require.True(t, f.apply())
	assert.Equal(t, map[string]string{"a.dds": "orig"}, f.archiveContents("Data/Tex.tar"))
	assert.True(t, f.rec.History.IsEmpty())
}

func TestApply_FirstDeclaredPatchWins(t *testing.T) {
	f := newFixture(t)
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("x.bin"), "from a")},
	})
	f.addPatch("b", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("x.bin"), "from b")},
	})

	require.True(t, f.apply())
	assert.Equal(t, "from a", f.read("x.bin"))
}

func TestApply_ChainedOriginal(t *testing.T) {
	f := newFixture(t)
	f.addPatch("b", false, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("x.bin"), "from b")},
	})
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("x.bin"), "from a")},
	})

	require.True(t, f.apply())
	assert.Equal(t, "from a", f.read("x.bin"))

	f.setEnabled("b", true)
	require.True(t, f.apply())
	assert.Equal(t, "from b", f.read("x.bin"))

	f.setEnabled("b", false)
	require.True(t, f.apply())
	assert.Equal(t, "from a", f.read("x.bin"))

	f.setEnabled("a", false)
	require.True(t, f.apply())
	assert.NoFileExists(t, f.path("x.bin"))
}

func TestApply_ChainedOriginalOfExistingFile(t *testing.T) {
	f := newFixture(t)
	f.write("x.bin", "pristine")
	f.addPatch("b", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("x.bin"), "from b")},
	})
	f.addPatch("a", true, &model.PatchFile{
		RemovedFiles: []model.PatchFilePath{physical("x.bin")},
	})

	require.True(t, f.apply())
	assert.Equal(t, "from b", f.read("x.bin"))

	f.setEnabled("b", false)
	require.True(t, f.apply())
	assert.NoFileExists(t, f.path("x.bin"))

	f.setEnabled("a", false)
	require.True(t, f.apply())
	assert.Equal(t, "pristine", f.read("x.bin"))
}

func TestApply_DirectoryCleanupBoundary(t *testing.T) {
	f := newFixture(t)
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("sub1/sub2/file.bin"), "x")},
	})
	require.True(t, f.apply())
	assert.FileExists(t, f.path("sub1/sub2/file.bin"))

	f.setEnabled("a", false)
	require.True(t, f.apply())
	assert.NoDirExists(t, f.path("sub1"))
	assert.DirExists(t, f.root)
}

func TestApply_MissingArchiveWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	logger.SetTestOutput(&buf)
	logger.InitLogger("warn", logger.FormatText)
	t.Cleanup(func() {
		logger.UnsetTestOutput()
		logger.InitLogger("info", logger.FormatText)
	})

	f := newFixture(t)
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			added(packed("tex.cnt", "textures/hero.dds"), "hero"),
			added(packed("tex.cnt", "textures/hud.dds"), "hud"),
			added(physical("data/level1.bin"), "level"),
		},
	})

	require.True(t, f.apply())
	assert.Equal(t, 1, strings.Count(buf.String(), "level=WARN"))
	assert.Contains(t, buf.String(), "tex.cnt")
	assert.NoFileExists(t, f.path("tex.cnt"))
	assert.Equal(t, "level", f.read("data/level1.bin"))
}

func TestApply_SkipsTraversal(t *testing.T) {
	f := newFixture(t)
	outside := filepath.Join(filepath.Dir(f.root), "escape.bin")
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			added(physical("../escape.bin"), "evil"),
			added(physical("ok.bin"), "ok"),
		},
	})

	require.True(t, f.apply())
	assert.NoFileExists(t, outside)
	assert.Equal(t, "ok", f.read("ok.bin"))
	require.Len(t, f.rec.History.AddedFiles, 1)
	assert.Equal(t, "ok.bin", f.rec.History.AddedFiles[0].Path.FilePath)
}

func TestApply_SkipsSymlinkedDirLeavingRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("creating symlinks needs extra privileges on Windows")
	}
	f := newFixture(t)
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, f.path("mods")))
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			added(physical("mods/evil.bin"), "evil"),
			added(physical("ok.bin"), "ok"),
		},
	})

	require.True(t, f.apply())
	assert.NoFileExists(t, filepath.Join(outside, "evil.bin"))
	assert.Equal(t, "ok", f.read("ok.bin"))
	require.Len(t, f.rec.History.AddedFiles, 1)
	assert.Equal(t, "ok.bin", f.rec.History.AddedFiles[0].Path.FilePath)
}

func TestApply_PhysicalPartialFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.path("data"), 0o755))
	f.write("data/keep.bin", "keep")
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			added(physical("a.bin"), "a"),
			added(physical("data"), "not a directory"),
		},
	})

	assert.False(t, f.apply())
	assert.Equal(t, "a", f.read("a.bin"))
	require.Len(t, f.rec.History.AddedFiles, 1)
	assert.Equal(t, "a.bin", f.rec.History.AddedFiles[0].Path.FilePath)
}

func TestApply_UnknownArchiveTypeFailsLocationOnly(t *testing.T) {
	f := newFixture(t)
	f.write("tex.cnt", "opaque")
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			added(model.PatchFilePath{Location: "tex.cnt", LocationID: "witcher-cnt", FilePath: "a.dds"}, "a"),
			added(physical("ok.bin"), "ok"),
		},
	})

	assert.False(t, f.apply())
	assert.Equal(t, "opaque", f.read("tex.cnt"))
	assert.Equal(t, "ok", f.read("ok.bin"))
}

func TestApply_ProgressReachesTotal(t *testing.T) {
	f := newFixture(t)
	f.packArchive("tex.cnt", map[string]string{"a.dds": "a"})
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{
			added(physical("one.bin"), "1"),
			added(physical("two.bin"), "2"),
			added(packed("tex.cnt", "a.dds"), "b"),
			added(packed("tex.cnt", "c.dds"), "c"),
		},
	})

	var ticks [][2]int
	var events []Event
	f.patcher.Hooks.OnEvent = func(e Event) { events = append(events, e) }
	ok, err := f.patcher.Apply(context.Background(), ApplyRequest{
		Library:     f.lib,
		Record:      f.rec,
		InstallRoot: f.root,
		Progress:    func(current, total int) { ticks = append(ticks, [2]int{current, total}) },
	})
	require.NoError(t, err)
	require.True(t, ok)

	require.NotEmpty(t, ticks)
	last := 0
	for _, tick := range ticks {
		assert.Equal(t, 4, tick[1])
		assert.GreaterOrEqual(t, tick[0], last)
		last = tick[0]
	}
	assert.Equal(t, 4, last)
	assert.Equal(t, "resolving", events[0].Phase)
	assert.Equal(t, "done", events[len(events)-1].Phase)
}

func TestApply_LoadsRecordFromLibrary(t *testing.T) {
	f := newFixture(t)
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("a.bin"), "a")},
	})
	require.NoError(t, f.lib.Save(f.rec))

	ok, err := f.patcher.Apply(context.Background(), ApplyRequest{Library: f.lib, InstallRoot: f.root})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", f.read("a.bin"))
}

func TestApply_MissingPatchFileAborts(t *testing.T) {
	f := newFixture(t)
	f.rec.Patches = append(f.rec.Patches, model.PatchLibraryPatchEntry{ID: "ghost", Enabled: true})

	ok, err := f.patcher.Apply(context.Background(), ApplyRequest{Library: f.lib, Record: f.rec, InstallRoot: f.root})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestApply_PrunesSupersededSnapshots(t *testing.T) {
	f := newFixture(t)
	f.write("x.bin", "pristine")
	f.addPatch("a", true, &model.PatchFile{
		AddedFiles: []model.AddedPatchFile{added(physical("x.bin"), "patched")},
	})
	require.True(t, f.apply())

	snapshot := f.rec.History.ReplacedFiles[0].Resource.ID
	assert.True(t, f.lib.Store().Has(snapshot))

	f.setEnabled("a", false)
	require.True(t, f.apply())
	assert.False(t, f.lib.Store().Has(snapshot))
}
