package cli

import (
	"fmt"

	"github.com/cperrin88/modstack/internal/logger"
	"github.com/cperrin88/modstack/pkg/archive"
	"github.com/cperrin88/modstack/pkg/patcher"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ErrDrift is returned by verify when the install directory no longer matches the history.
var ErrDrift = fmt.Errorf("install directory differs from the applied state")

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the install directory against the last apply",
		Long: `Check that every file the last apply wrote still has the content it wrote,
and that every file it removed is still absent. Game updates and launchers that
repair files show up here; run apply to restore the patched state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, rec, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			installDir, err := cfg.GetInstallDir()
			if err != nil {
				return err
			}

			drifts, err := patcher.New(archive.DefaultRegistry()).Verify(cmd.Context(), rec.History, installDir)
			if err != nil {
				return err
			}
			if len(drifts) == 0 {
				logger.Success("Install directory matches the applied state", logger.Fields{"files": rec.History.Len()})
				return nil
			}

			warn := color.New(color.FgYellow).SprintFunc()
			for _, d := range drifts {
				fmt.Printf("  %s %s\n", warn("!"), d)
			}
			return fmt.Errorf("%d files: %w", len(drifts), ErrDrift)
		},
	}
}
