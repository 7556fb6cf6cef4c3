package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/fsutil"
	"github.com/cperrin88/modstack/pkg/hook"
	"github.com/spf13/cobra"
)

// NewHookCmd creates the hook command with subcommands.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage apply hooks",
		Long:  "Tengo scripts in the hooks directory of the library run before and after every apply.",
	}

	cmd.AddCommand(newHookInitCmd())

	return cmd
}

func newHookInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:       "init TYPE",
		Short:     "Write a hook script template",
		Long:      "Write a commented template for the pre-apply or post-apply hook into the library.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(hook.PreApply), string(hook.PostApply)},
		RunE: func(_ *cobra.Command, args []string) error {
			return runHookInit(hook.HookType(args[0]), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing hook script")

	return cmd
}

func runHookInit(hookType hook.HookType, force bool) error {
	if hookType != hook.PreApply && hookType != hook.PostApply {
		return hook.ErrUnsupportedHookType(string(hookType))
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, _, err := openLibrary(cfg)
	if err != nil {
		return err
	}

	path := filepath.Join(lib.Dir(), hook.DirName, string(hookType)+hook.HookFileExtension)
	if fsutil.FileExists(path) && !force {
		return fmt.Errorf("hook script %s already exists (use --force to overwrite)", path)
	}
	if err := fsutil.EnsureFileDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(hook.HookTemplate(hookType)+"\n"), fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("failed to write hook script: %w", err)
	}

	logger.Success("Hook script created", logger.Fields{"path": path})
	return nil
}
