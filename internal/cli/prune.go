package cli

import (
	"github.com/cperrin88/modstack/internal/logger"
	"github.com/spf13/cobra"
)

// NewPruneCmd creates the prune command.
func NewPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete unreferenced resources",
		Long: `Delete stored file contents that neither a patch nor the history of the last
apply refers to. Apply prunes on its own; this is only needed after removing
patches without applying.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lib, rec, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			n, err := lib.Prune(rec)
			if err != nil {
				return err
			}
			logger.Success("Pruned library", logger.Fields{"removed": n})
			return nil
		},
	}
}
