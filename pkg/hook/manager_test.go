package hook_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/hook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHookManager(t *testing.T) {
	manager := hook.NewHookManager()
	assert.NotNil(t, manager, "NewHookManager should return a non-nil manager")
}

func TestAddAndExecuteHook(t *testing.T) {
	manager := hook.NewHookManager()

	err := manager.AddHook(hook.Hook{
		Type:    hook.PostApply,
		Content: `// Simple hook that doesn't return anything`,
	})
	require.NoError(t, err, "AddHook should not return an error for valid hook")

	err = manager.Execute(context.Background(), hook.PostApply, hook.HookContext{InstallDir: "/games/test"})
	require.NoError(t, err, "Execute should not return an error for valid hook")
}

func TestAddHook_EmptyType(t *testing.T) {
	manager := hook.NewHookManager()
	assert.ErrorIs(t, manager.AddHook(hook.Hook{Content: "x := 1"}), hook.ErrHookTypeEmpty)
	assert.ErrorIs(t, manager.RemoveHook(""), hook.ErrHookTypeEmpty)
}

func TestHasAndRemoveHook(t *testing.T) {
	manager := hook.NewHookManager()
	assert.False(t, manager.HasHook(hook.PreApply), "Should not have hook before adding")

	require.NoError(t, manager.AddHook(hook.Hook{Type: hook.PreApply, Content: `// Test hook`}))
	assert.True(t, manager.HasHook(hook.PreApply), "Should have hook after adding")

	require.NoError(t, manager.RemoveHook(hook.PreApply))
	assert.False(t, manager.HasHook(hook.PreApply), "Should not have hook after removal")
}

func TestRun_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger.SetTestOutput(&buf)
	defer logger.UnsetTestOutput()
	logger.InitLogger("info", logger.FormatText)

	manager := hook.NewHookManager()
	assert.True(t, manager.Run(context.Background(), hook.PostApply, hook.HookContext{}), "Absent hook should count as success")

	require.NoError(t, manager.AddHook(hook.Hook{Type: hook.PostApply, Content: `err := "disk full"`}))
	assert.False(t, manager.Run(context.Background(), hook.PostApply, hook.HookContext{}))
	assert.Contains(t, buf.String(), "Hook failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestRun_Timeout(t *testing.T) {
	var buf bytes.Buffer
	logger.SetTestOutput(&buf)
	defer logger.UnsetTestOutput()
	logger.InitLogger("info", logger.FormatText)

	manager := hook.NewHookManager()
	manager.Timeout = 50 * time.Millisecond
	require.NoError(t, manager.AddHook(hook.Hook{Type: hook.PreApply, Content: `for {}`}))

	err := manager.Execute(context.Background(), hook.PreApply, hook.HookContext{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, manager.Run(context.Background(), hook.PreApply, hook.HookContext{}))
}

func TestLoadHooksFromLibraryDir(t *testing.T) {
	libraryDir := t.TempDir()
	hooksDir := filepath.Join(libraryDir, hook.DirName)
	require.NoError(t, os.MkdirAll(hooksDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, "post-apply.tengo"), []byte(`x := 1`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, "post-install.tengo"), []byte(`x := 1`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, "notes.txt"), []byte(`ignored`), 0o644))

	manager := hook.NewHookManager()
	require.NoError(t, hook.LoadHooksFromLibraryDir(manager, libraryDir))

	assert.True(t, manager.HasHook(hook.PostApply), "Should have loaded the post-apply hook")
	assert.Equal(t, filepath.Join(hooksDir, "post-apply.tengo"), manager.Source(hook.PostApply))
	assert.False(t, manager.HasHook(hook.PreApply))
}

func TestLoadHooksFromLibraryDir_Missing(t *testing.T) {
	manager := hook.NewHookManager()
	require.NoError(t, hook.LoadHooksFromLibraryDir(manager, t.TempDir()))
	assert.False(t, manager.HasHook(hook.PostApply))
}

func TestLoadHookFile(t *testing.T) {
	manager := hook.NewHookManager()
	path := filepath.Join(t.TempDir(), "after.tengo")
	require.NoError(t, os.WriteFile(path, []byte(`x := 1`), 0o644))

	require.NoError(t, hook.LoadHookFile(manager, hook.PostApply, path))
	assert.True(t, manager.HasHook(hook.PostApply))

	err := hook.LoadHookFile(manager, hook.HookType("post-install"), path)
	assert.ErrorIs(t, err, hook.ErrHookLoad)

	err = hook.LoadHookFile(manager, hook.PreApply, filepath.Join(t.TempDir(), "missing.tengo"))
	assert.ErrorIs(t, err, hook.ErrHookLoad)
}

func TestHookTemplate(t *testing.T) {
	tests := []struct {
		name     string
		hookType hook.HookType
		expected string
	}{
		{"PreApply", hook.PreApply, "Pre-apply hook"},
		{"PostApply", hook.PostApply, "Post-apply hook"},
		{"Unknown", hook.HookType("unknown"), "Unknown hook type"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			template := hook.HookTemplate(tc.hookType)
			assert.Contains(t, template, tc.expected, "Template should contain expected content")
		})
	}
}
