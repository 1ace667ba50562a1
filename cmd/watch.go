package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"batchconv/internal/archive"
	"batchconv/internal/processor"
	"batchconv/internal/session"
	"batchconv/internal/settings"
	"batchconv/internal/tui"
	"batchconv/pkg/imgutil"
)

var (
	watchFlags     settingsFlags
	watchOutputDir string
	watchDebounce  time.Duration
	watchExisting  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <inbox>",
	Short: "Convert images as they are dropped into a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := watchFlags.resolve(cmd)
		if err != nil {
			return err
		}
		inbox, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if info, err := os.Stat(inbox); err != nil {
			return err
		} else if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", inbox)
		}

		outputDir, err := filepath.Abs(watchOutputDir)
		if err != nil {
			return err
		}

		proc := processor.New(processor.Options{
			Logger:      logger,
			Workers:     watchFlags.workers,
			PreserveICC: watchFlags.preserveICC,
		})
		w := &inboxWatcher{
			sess:      session.New(proc, logger),
			settings:  st,
			outputDir: outputDir,
			out:       os.Stdout,
		}
		return w.run(cmd.Context(), inbox, watchDebounce, watchExisting)
	},
}

// inboxWatcher converts files dropped into a folder, one debounced batch at
// a time.
type inboxWatcher struct {
	sess      *session.Session
	settings  settings.Settings
	outputDir string
	out       io.Writer
}

func (w *inboxWatcher) run(ctx context.Context, inbox string, debounce time.Duration, existing bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(inbox); err != nil {
		return fmt.Errorf("watch %s: %w", inbox, err)
	}
	fmt.Fprintf(w.out, "Watching %s (%s); press Ctrl+C to stop.\n", inbox, w.settings)

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()

	if existing {
		entries, err := os.ReadDir(inbox)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				pending[filepath.Join(inbox, e.Name())] = struct{}{}
			}
		}
		if len(pending) > 0 {
			timer.Reset(0)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			logger.Debug("inbox event", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			pending[ev.Name] = struct{}{}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			if err := w.convert(ctx, paths); err != nil {
				logger.Warn("batch failed", zap.Error(err))
				fmt.Fprintln(w.out, tui.RenderBanner(err))
			}
		}
	}
}

// convert runs one batch over paths and writes the results. Paths that are
// gone or do not sniff as images are skipped.
func (w *inboxWatcher) convert(ctx context.Context, paths []string) error {
	var inputs []inputPath
	for _, p := range paths {
		if isWithin(p, w.outputDir) {
			continue
		}
		kind, err := imgutil.SniffFile(p)
		if err != nil || kind == imgutil.KindUnknown {
			continue
		}
		inputs = append(inputs, inputPath{Path: p, RelPath: filepath.Base(p)})
	}
	files := loadInputs(inputs)
	if len(files) == 0 {
		return nil
	}

	w.sess.Clear()
	w.sess.Add(files...)
	run, err := w.sess.Convert(ctx, w.settings, nil)
	if err != nil {
		return err
	}

	// Earlier batches already wrote into outputDir; never overwrite them.
	entries := archive.AvoidExisting(w.outputDir, archive.Entries(run.Outcomes))
	written, err := archive.WriteFiles(w.outputDir, entries)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "[%s] converted %d/%d → %s (%s)\n",
		time.Now().Format(time.TimeOnly), len(written), len(run.Outcomes), w.outputDir, tui.FormatBytes(-run.BytesSaved()))
	if failures := tui.RenderFailures(run.Outcomes); failures != "" {
		fmt.Fprintln(w.out, failures)
	}
	return nil
}

func init() {
	watchFlags.register(watchCmd)
	watchCmd.Flags().StringVarP(&watchOutputDir, "output", "o", "converted", "destination folder for converted files")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a batch of new files is converted")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also convert images already in the inbox")

	rootCmd.AddCommand(watchCmd)
}
