package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cperrin88/modstack/internal/cli"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	noColor    bool
	libraryDir string
	installDir string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modstack",
		Short: "A reversible patch stack for game installs",
		Long: `modstack applies an ordered stack of file patches to a game install:
- Library: import patches from directories or archives, enable, disable, reorder
- Apply: write loose files and repack game archives, recording how to undo it
- Revert: disabling a patch and applying again restores the original files`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&libraryDir, "library-dir", "", "patch library directory (overrides config)")
	cmd.PersistentFlags().StringVar(&installDir, "install-dir", "", "game install directory (overrides config)")

	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoColor = &noColor
	cli.LibraryDir = &libraryDir
	cli.InstallDir = &installDir

	cmd.AddCommand(
		cli.NewApplyCmd(),
		cli.NewEnableCmd(),
		cli.NewDisableCmd(),
		cli.NewPatchCmd(),
		cli.NewStatusCmd(),
		cli.NewVerifyCmd(),
		cli.NewPruneCmd(),
		cli.NewHookCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
