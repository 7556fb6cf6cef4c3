package cli

import (
	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/errutils"
	"github.com/spf13/cobra"
)

// NewEnableCmd creates the enable command.
func NewEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable ID...",
		Short: "Enable patches",
		Long:  "Mark patches as enabled. They are applied on the next apply.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSetEnabled(args, true)
		},
	}
}

// NewDisableCmd creates the disable command.
func NewDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable ID...",
		Short: "Disable patches",
		Long:  "Mark patches as disabled. Their files are restored on the next apply.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSetEnabled(args, false)
		},
	}
}

func runSetEnabled(ids []string, state bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, rec, err := openLibrary(cfg)
	if err != nil {
		return err
	}

	for _, id := range ids {
		entry := rec.FindPatch(id)
		if entry == nil {
			return errutils.ErrPatchNotFoundWithID(id)
		}
		entry.Enabled = state
	}
	if err := lib.Save(rec); err != nil {
		return err
	}

	msg := "Patches disabled"
	if state {
		msg = "Patches enabled"
	}
	logger.Success(msg, logger.Fields{"ids": ids})
	return nil
}
