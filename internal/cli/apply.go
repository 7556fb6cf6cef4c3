package cli

import (
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/config"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/hook"
	"github.com/cperrin88/modstack/pkg/library"
	"github.com/cperrin88/modstack/pkg/model"
	"github.com/cperrin88/modstack/pkg/patcher"
	"github.com/spf13/cobra"
)

const progressTemplate pb.ProgressBarTemplate = `{{string . "location" | printf "%-24.24s"}} {{counters . }} {{bar . }} {{percent . }}`

// NewApplyCmd creates the apply command.
func NewApplyCmd() *cobra.Command {
	var (
		noHooks    bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the enabled patches",
		Long: `Bring the install directory in line with the enabled patches of the library.

Files changed by the previous apply that no enabled patch touches any more are
restored to their original content. Locations are applied one after another; a
failing location is reported and leaves the others untouched.

A pre-apply hook that reports an error aborts the run before any file is touched.
Post-apply hook failures are only logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, noHooks, noProgress)
		},
	}

	cmd.Flags().BoolVar(&noHooks, "no-hooks", false, "Do not run pre-apply and post-apply hooks")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not render a progress bar")

	return cmd
}

func runApply(cmd *cobra.Command, noHooks, noProgress bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, rec, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	installDir, err := cfg.GetInstallDir()
	if err != nil {
		return err
	}

	hooks := hook.NewHookManager()
	if !noHooks {
		if err := loadHooks(hooks, cfg, lib); err != nil {
			return err
		}
	}
	hookCtx := hook.HookContext{
		InstallDir: installDir,
		LibraryDir: lib.Dir(),
		Game:       rec.GameIdentifier,
	}
	if err := hooks.Execute(cmd.Context(), hook.PreApply, hookCtx); err != nil {
		return fmt.Errorf("apply aborted: %w", err)
	}

	var bar *pb.ProgressBar
	p := patcher.New(archive.DefaultRegistry())
	req := patcher.ApplyRequest{Library: lib, Record: rec, InstallRoot: installDir}
	if !noProgress {
		bar = progressTemplate.New(0)
		bar.SetWriter(os.Stderr)
		bar.Start()
		req.Progress = func(current, total int) {
			bar.SetTotal(int64(total))
			bar.SetCurrent(int64(current))
		}
		p.Hooks.OnEvent = func(e patcher.Event) {
			if e.Phase == "applying" {
				bar.Set("location", displayLocation(e.Location))
			}
		}
	}

	ok, err := p.Apply(cmd.Context(), req)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	hookCtx.Success = ok
	hookCtx.Added = len(rec.History.AddedFiles)
	hookCtx.Replaced = len(rec.History.ReplacedFiles)
	hookCtx.Removed = len(rec.History.RemovedFiles)
	hooks.Run(cmd.Context(), hook.PostApply, hookCtx)

	printHistorySummary(rec.History)
	if !ok {
		return fmt.Errorf("apply finished with errors: %w", errutils.ErrLocationFailed)
	}
	return nil
}

func loadHooks(hooks *hook.DefaultHookManager, cfg *config.Config, lib *library.Library) error {
	if err := hook.LoadHooksFromLibraryDir(hooks, lib.Dir()); err != nil {
		return err
	}
	if cfg.Settings.PostApplyHook != "" {
		if err := hook.LoadHookFile(hooks, hook.PostApply, cfg.Settings.PostApplyHook); err != nil {
			return err
		}
	}
	return nil
}

func displayLocation(location string) string {
	if location == "" {
		return "(files)"
	}
	return location
}

func printHistorySummary(h *model.PatchLibraryHistory) {
	if h == nil {
		h = model.NewHistory()
	}
	fmt.Printf("%s added, %s replaced, %s removed\n",
		added(len(h.AddedFiles)), replaced(len(h.ReplacedFiles)), removed(len(h.RemovedFiles)))
}
