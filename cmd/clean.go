package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"batchconv/internal/archive"
	"batchconv/internal/codec"
	"batchconv/internal/media"
	"batchconv/internal/metadata"
	"batchconv/internal/processor"
	"batchconv/internal/tui"
)

var (
	cleanInPlace     bool
	cleanOutputDir   string
	cleanPreserveICC bool
)

type cleanSummary struct {
	Processed  int
	Errors     int
	Leaks      int
	BytesSaved int64
}

var cleanCmd = &cobra.Command{
	Use:   "clean [flags] <path>...",
	Short: "Strip EXIF/XMP/IPTC metadata from images without converting them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanInPlace && cleanOutputDir != "" {
			return fmt.Errorf("--inplace cannot be used with --output")
		}
		outputDir := cleanOutputDir
		if !cleanInPlace && outputDir == "" {
			outputDir = "cleaned"
		}

		skip := ""
		if !cleanInPlace {
			skip = outputDir
		}
		inputs, err := collectInputs(args, skip)
		if err != nil {
			return err
		}

		stripper := metadata.NewStripper(codec.NewDefaultRegistry())
		stripper.PreserveICC = cleanPreserveICC

		summary, err := withProgress(cmd.Context(), "batchconv clean", func(ctx context.Context, updates chan<- processor.ProgressUpdate) (cleanSummary, error) {
			return cleanInputs(ctx, stripper, inputs, outputDir, updates)
		})
		if err != nil {
			return err
		}

		rows := []tui.SummaryRow{
			{Label: "Total files processed", Value: fmt.Sprintf("%d", summary.Processed)},
			{Label: "Errors", Value: fmt.Sprintf("%d", summary.Errors)},
			{Label: "Privacy leaks plugged", Value: fmt.Sprintf("%d", summary.Leaks)},
			{Label: "Space saved", Value: tui.FormatBytes(summary.BytesSaved)},
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))
		if cleanInPlace {
			fmt.Fprintln(os.Stdout, "In-place clean complete.")
		} else {
			outPath := outputDir
			if abs, absErr := filepath.Abs(outputDir); absErr == nil {
				outPath = abs
			}
			fmt.Fprintf(os.Stdout, "Cleaned files written to: %s\n", outPath)
			fmt.Fprintln(os.Stdout, "Note: originals are unchanged unless --inplace is used.")
		}
		return nil
	},
}

func cleanInputs(ctx context.Context, stripper *metadata.Stripper, inputs []inputPath, outputDir string, updates chan<- processor.ProgressUpdate) (cleanSummary, error) {
	summary := cleanSummary{}
	updates <- processor.ProgressUpdate{TotalDelta: len(inputs)}
	used := make(map[string]struct{})

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		u := processor.ProgressUpdate{ProcessedDelta: 1, Current: in.RelPath}
		leaks, saved, err := cleanOne(stripper, in, outputDir, used)
		summary.Processed++
		if err != nil {
			logger.Warn("clean failed", zap.String("path", in.Path), zap.Error(err))
			summary.Errors++
			u.ErrorDelta = 1
		} else {
			summary.Leaks += leaks
			summary.BytesSaved += saved
			u.BytesSavedDelta = saved
		}
		updates <- u
	}
	return summary, nil
}

// cleanOne strips one input and writes it. used holds the destinations
// already claimed in this run, lowercased.
func cleanOne(stripper *metadata.Stripper, in inputPath, outputDir string, used map[string]struct{}) (int, int64, error) {
	dest, err := cleanDestination(in, outputDir)
	if err != nil {
		return 0, 0, err
	}
	if !cleanInPlace {
		dest = archive.FreeName(dest, func(p string) bool {
			_, ok := used[strings.ToLower(p)]
			return ok
		})
	}
	used[strings.ToLower(dest)] = struct{}{}
	info, err := os.Stat(in.Path)
	if err != nil {
		return 0, 0, err
	}

	src, err := media.ReadFile(in.Path)
	if err != nil {
		return 0, 0, err
	}
	leaks := metadata.Analyze(src).Leaks()

	cleaned, err := stripper.Strip(src)
	if err != nil {
		return 0, 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, 0, err
	}
	if err := archive.WriteFile(dest, cleaned.Data, info.Mode().Perm()); err != nil {
		return 0, 0, err
	}
	return leaks, src.Size - cleaned.Size, nil
}

// cleanDestination is the input itself with --inplace, otherwise the input's
// relative path under outputDir.
func cleanDestination(in inputPath, outputDir string) (string, error) {
	if cleanInPlace {
		return in.Path, nil
	}
	if outputDir == "" {
		return "", fmt.Errorf("output directory required when not using --inplace")
	}
	dest := filepath.Join(outputDir, in.RelPath)
	if abs, err := filepath.Abs(dest); err == nil && filepath.Clean(abs) == filepath.Clean(in.Path) {
		return "", fmt.Errorf("output path resolves to input path; use --inplace or a different --output")
	}
	return dest, nil
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanInPlace, "inplace", "i", false, "modify files in place")
	cleanCmd.Flags().StringVarP(&cleanOutputDir, "output", "o", "", "destination folder for sanitized copies")
	cleanCmd.Flags().BoolVar(&cleanPreserveICC, "preserve-icc", false, "preserve ICC color profiles")

	rootCmd.AddCommand(cleanCmd)
}
