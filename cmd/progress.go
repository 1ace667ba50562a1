package cmd

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"batchconv/internal/processor"
	"batchconv/internal/tui"
)

// withProgress runs work while a progress view consumes its updates. The view
// is skipped when stdout is not a terminal or debug logging is on. Quitting
// the view cancels the context handed to work.
func withProgress[T any](ctx context.Context, title string, work func(context.Context, chan<- processor.ProgressUpdate) (T, error)) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan processor.ProgressUpdate, 64)
	uiDone := make(chan struct{})

	if verbose || !isatty.IsTerminal(os.Stdout.Fd()) {
		go func() {
			defer close(uiDone)
			for range updates {
			}
		}()
	} else {
		program := tea.NewProgram(tui.NewModel(title, updates), tea.WithContext(ctx))
		go func() {
			defer close(uiDone)
			_, _ = program.Run()
			cancel()
			for range updates {
			}
		}()
	}

	result, err := work(ctx, updates)
	close(updates)
	<-uiDone
	return result, err
}
