package cli

import (
	"fmt"

	"github.com/cperrin88/modstack/pkg/library"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for modstack",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("modstack version %s\n", Version)
			fmt.Printf("Library format: %s\n", library.FormatVersion)
			fmt.Printf("Build date: %s\n", BuildDate)
			fmt.Printf("Git commit: %s\n", GitCommit)
		},
	}
}
