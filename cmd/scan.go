package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"batchconv/internal/media"
	"batchconv/internal/metadata"
	"batchconv/internal/tui"
)

var scanAll bool

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Show the metadata embedded in images without modifying them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := collectInputs(args, "")
		if err != nil {
			return err
		}
		files := loadInputs(inputs)
		for i, f := range files {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			writeScanReport(os.Stdout, f, scanAll)
		}
		return nil
	},
}

func writeScanReport(w io.Writer, f media.SourceFile, all bool) {
	fmt.Fprintf(w, "%s %s\n", scanFileStyle.Render(f.Name), scanDimStyle.Render(f.MIME))

	analysis := metadata.Analyze(f)
	cats := analysis.Categories()
	tags := metadata.Extract(f)
	if len(cats) == 0 && len(tags) == 0 {
		fmt.Fprintf(w, "  %s %s\n", scanBulletStyle.Render("-"), scanDimStyle.Render("none"))
		return
	}

	if len(cats) > 0 {
		fmt.Fprintf(w, "  %s\n", scanCategoryStyle.Render("Found:"))
		for _, c := range cats {
			fmt.Fprintf(w, "    %s %s\n", scanBulletStyle.Render("-"), scanValueStyle.Render(c))
		}
	}

	if insights := metadata.Insights(f); len(insights) > 0 {
		fmt.Fprintf(w, "  %s\n", scanCategoryStyle.Render("Insights:"))
		for _, in := range insights {
			fmt.Fprintf(w, "    %s %s\n", scanBulletStyle.Render("-"), scanValueStyle.Render(in.Message))
		}
	}

	if all && len(tags) > 0 {
		keys := make([]string, 0, len(tags))
		for k := range tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "  %s\n", scanCategoryStyle.Render("Tags:"))
		for _, k := range keys {
			fmt.Fprintf(w, "    %s %s\n", scanBulletStyle.Render(k+":"), scanValueStyle.Render(tags[k]))
		}
	}
}

var (
	scanFileStyle     = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	scanCategoryStyle = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	scanValueStyle    = lipgloss.NewStyle().Foreground(tui.ColorInk)
	scanDimStyle      = lipgloss.NewStyle().Foreground(tui.ColorDim)
	scanBulletStyle   = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	scanCmd.Flags().BoolVarP(&scanAll, "all", "a", false, "list every tag, not just the summary")
	rootCmd.AddCommand(scanCmd)
}
