package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"batchconv/internal/archive"
	"batchconv/internal/processor"
	"batchconv/internal/session"
	"batchconv/internal/tui"
)

var (
	convertFlags     settingsFlags
	convertOutputDir string
	convertZipPath   string
)

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <path>...",
	Short: "Convert images to another format, quality or size",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := convertFlags.resolve(cmd)
		if err != nil {
			return err
		}

		skip := convertOutputDir
		if convertZipPath != "" {
			skip = ""
		}
		inputs, err := collectInputs(args, skip)
		if err != nil {
			return err
		}
		files := loadInputs(inputs)
		if len(files) == 0 {
			return fmt.Errorf("no images found in %v", args)
		}
		logger.Debug("converting", zap.Int("files", len(files)), zap.Stringer("settings", st))

		proc := processor.New(processor.Options{
			Logger:      logger,
			Workers:     convertFlags.workers,
			PreserveICC: convertFlags.preserveICC,
		})
		sess := session.New(proc, logger)
		if added := sess.Add(files...); added != len(files) {
			logger.Warn("duplicate inputs ignored", zap.Int("files", len(files)), zap.Int("added", added))
		}

		run, err := withProgress(cmd.Context(), "batchconv", func(ctx context.Context, updates chan<- processor.ProgressUpdate) (*processor.BatchRun, error) {
			return sess.Convert(ctx, st, updates)
		})
		if err != nil {
			return err
		}

		entries := archive.Entries(run.Outcomes)
		var written string
		switch {
		case len(entries) == 0:
		case convertZipPath != "":
			if err := archive.CreateZip(convertZipPath, entries); err != nil {
				return fmt.Errorf("write archive: %w", err)
			}
			written = convertZipPath
		default:
			if _, err := archive.WriteFiles(convertOutputDir, entries); err != nil {
				return fmt.Errorf("write outputs: %w", err)
			}
			written = convertOutputDir
		}

		fmt.Fprintln(os.Stdout, tui.RenderSummary(tui.BatchRows(run)))
		if written != "" {
			if abs, absErr := filepath.Abs(written); absErr == nil {
				written = abs
			}
			fmt.Fprintf(os.Stdout, "Converted files written to: %s\n", written)
		}
		if failures := tui.RenderFailures(run.Outcomes); failures != "" {
			fmt.Fprintln(os.Stdout, failures)
		}

		if failed := len(run.Failed()); failed > 0 {
			return errors.New(plural(failed, "file") + " failed to convert")
		}
		return nil
	},
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func init() {
	convertFlags.register(convertCmd)
	convertCmd.Flags().StringVarP(&convertOutputDir, "output", "o", "converted", "destination folder for converted files")
	convertCmd.Flags().StringVar(&convertZipPath, "zip", "", "bundle converted files into this zip instead of a folder")

	rootCmd.AddCommand(convertCmd)
}
