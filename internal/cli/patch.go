package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/cperrin88/modstack/pkg/library"
	"github.com/cperrin88/modstack/pkg/patch"
	"github.com/spf13/cobra"
)

// NewPatchCmd creates the patch command with subcommands.
func NewPatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Manage the patches of the library",
		Long:  "Import, list, reorder and remove patches. Changes take effect on the next apply.",
	}

	cmd.AddCommand(
		newPatchAddCmd(),
		newPatchListCmd(),
		newPatchRemoveCmd(),
		newPatchMoveCmd(),
	)

	return cmd
}

// Number of arguments expected by the add and move commands.
const patchPairArgs = 2

func newPatchAddCmd() *cobra.Command {
	var (
		enable bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "add ID SOURCE",
		Short: "Import a patch from a directory or archive",
		Long: `Import a patch into the library under ID.

SOURCE is a directory or an archive whose layout mirrors the install directory.
An optional patch.yaml at its root names the patch and routes sub trees into
game archives. New patches are appended last, giving them the lowest priority.`,
		Args: cobra.ExactArgs(patchPairArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatchAdd(cmd.Context(), args[0], args[1], enable, force)
		},
	}

	cmd.Flags().BoolVar(&enable, "enable", false, "Enable the patch right away")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing patch with the same ID")

	return cmd
}

func newPatchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List patches in declared order",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, rec, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			printPatchTable(rec.Patches)
			return nil
		},
	}
}

func newPatchRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a patch from the library",
		Long:  "Remove a patch. Files it changed are restored on the next apply.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPatchRemove(args[0])
		},
	}
}

func newPatchMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move ID POSITION",
		Short: "Change the priority of a patch",
		Long:  "Move a patch to POSITION (1 is the highest priority) in the declared order.",
		Args:  cobra.ExactArgs(patchPairArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[1], err)
			}
			return runPatchMove(args[0], pos)
		},
	}
}

func runPatchAdd(ctx context.Context, id, src string, enable, force bool) error {
	if err := library.ValidatePatchID(id); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, rec, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	existing := rec.FindPatch(id)
	if existing != nil && !force {
		return errutils.ErrPatchExistsWithID(id)
	}

	res, err := patch.Import(ctx, lib.Store(), src, patch.Options{DefaultLocationID: cfg.Settings.ArchiveFormat})
	if err != nil {
		return fmt.Errorf("failed to import patch %s: %w", id, err)
	}
	if err := lib.SavePatch(id, res.File); err != nil {
		return err
	}

	entry := res.Entry(id)
	if existing != nil {
		entry.Enabled = existing.Enabled || enable
		*existing = entry
	} else {
		entry.Enabled = enable
		rec.Patches = append(rec.Patches, entry)
	}
	if err := lib.Save(rec); err != nil {
		return err
	}

	logger.Success("Patch imported", logger.Fields{
		"id":      id,
		"added":   len(res.File.AddedFiles),
		"removed": len(res.File.RemovedFiles),
		"enabled": entry.Enabled,
	})
	return nil
}

func runPatchRemove(id string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, rec, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	if !rec.RemovePatch(id) {
		return errutils.ErrPatchNotFoundWithID(id)
	}
	if err := lib.Save(rec); err != nil {
		return err
	}
	if err := lib.DeletePatch(id); err != nil {
		return err
	}

	logger.Success("Patch removed, run apply to restore its files", logger.Fields{"id": id})
	return nil
}

func runPatchMove(id string, pos int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, rec, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	if pos < 1 || pos > len(rec.Patches) {
		return fmt.Errorf("position %d out of range 1..%d", pos, len(rec.Patches))
	}
	entry := rec.FindPatch(id)
	if entry == nil {
		return errutils.ErrPatchNotFoundWithID(id)
	}
	moved := *entry
	rec.RemovePatch(id)
	rec.Patches = slices.Insert(rec.Patches, pos-1, moved)
	if err := lib.Save(rec); err != nil {
		return err
	}

	logger.Success("Patch moved", logger.Fields{"id": id, "position": pos})
	return nil
}
