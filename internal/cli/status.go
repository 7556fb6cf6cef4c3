package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cperrin88/modstack/pkg/model"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	added    = color.New(color.FgGreen).SprintFunc()
	replaced = color.New(color.FgYellow).SprintFunc()
	removed  = color.New(color.FgRed).SprintFunc()
	enabled  = color.New(color.FgGreen, color.Bold).SprintFunc()
	disabled = color.New(color.Faint).SprintFunc()
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var showFiles bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the library and the applied state",
		Long: `Show the patches of the library in declared order, whether they are
enabled, and what the last apply changed in the install directory.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStatus(showFiles)
		},
	}

	cmd.Flags().BoolVar(&showFiles, "files", false, "List every file recorded in the history")

	return cmd
}

func runStatus(showFiles bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, rec, err := openLibrary(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Library:      %s\n", lib.Dir())
	if rec.GameIdentifier != "" {
		fmt.Printf("Game:         %s\n", rec.GameIdentifier)
	}
	if cfg.Settings.InstallDir != "" {
		fmt.Printf("Install dir:  %s\n", cfg.Settings.InstallDir)
	}
	if rec.LastApplied.IsZero() {
		fmt.Println("Last applied: never")
	} else {
		fmt.Printf("Last applied: %s\n", rec.LastApplied.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Println()

	printPatchTable(rec.Patches)
	fmt.Println()
	printHistorySummary(rec.History)

	if showFiles && !rec.History.IsEmpty() {
		fmt.Println()
		printHistoryFiles(rec.History)
	}
	return nil
}

func printPatchTable(patches []model.PatchLibraryPatchEntry) {
	if len(patches) == 0 {
		fmt.Println("No patches in library")
		return
	}

	// state goes last, escape codes would skew the column widths
	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "#\tID\tVERSION\tNAME\tSTATE")
	for i, p := range patches {
		state := disabled("disabled")
		if p.Enabled {
			state = enabled("enabled")
		}
		name := p.Name
		if len(name) > MaxDescriptionLength {
			name = name[:MaxDescriptionLength-3] + "..."
		}
		_, _ = fmt.Fprintf(tabWriter, "%d\t%s\t%s\t%s\t%s\n", i+1, p.ID, p.Version, name, state)
	}
	_ = tabWriter.Flush()
}

func printHistoryFiles(h *model.PatchLibraryHistory) {
	for _, f := range h.AddedFiles {
		fmt.Printf("  %s %s\n", added("A"), f.Path)
	}
	for _, f := range h.ReplacedFiles {
		fmt.Printf("  %s %s\n", replaced("M"), f.Path)
	}
	for _, f := range h.RemovedFiles {
		fmt.Printf("  %s %s\n", removed("D"), f.Path)
	}
}
