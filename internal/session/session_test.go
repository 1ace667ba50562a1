package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"batchconv/internal/failure"
	"batchconv/internal/media"
	"batchconv/internal/processor"
	"batchconv/internal/settings"
	"batchconv/internal/testutil"
)

var modTime = time.Date(2024, 8, 9, 10, 11, 12, 0, time.UTC)

func newSession(t *testing.T) *Session {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return New(processor.New(processor.Options{Logger: logger, Workers: 2}), logger)
}

func pngSettings() settings.Settings {
	s := settings.Default()
	s.Format = settings.FormatPNG
	s.Effort = settings.EffortFast
	return s
}

func sampleFiles(t *testing.T) []media.SourceFile {
	t.Helper()
	return []media.SourceFile{
		media.New("a.png", "image/png", testutil.PNG(t, 8, 8), modTime),
		media.New("b.jpg", "image/jpeg", testutil.JPEG(t, 8, 8), modTime),
		media.New("bad.jpg", "image/jpeg", []byte("nope"), modTime),
	}
}

type result struct {
	run *processor.BatchRun
	err error
}

// convertAsync starts Convert and waits until the session has snapshotted
// its files. The run cannot commit anything until updates is read.
func convertAsync(t *testing.T, s *Session, id string, updates chan processor.ProgressUpdate) <-chan result {
	t.Helper()
	done := make(chan result, 1)
	go func() {
		run, err := s.Convert(context.Background(), pngSettings(), updates)
		done <- result{run, err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if st, _ := s.Status(id); st == StatusConverting {
			return done
		}
		if time.Now().After(deadline) {
			t.Fatalf("conversion never started")
		}
		time.Sleep(time.Millisecond)
	}
}

func drain(updates <-chan processor.ProgressUpdate, done <-chan result) result {
	for {
		select {
		case <-updates:
		case r := <-done:
			return r
		}
	}
}

func TestAddDeduplicates(t *testing.T) {
	s := newSession(t)
	files := sampleFiles(t)
	if got := s.Add(files...); got != 3 {
		t.Fatalf("Add = %d, want 3", got)
	}
	if got := s.Add(files[0]); got != 0 {
		t.Fatalf("re-adding the same file added %d", got)
	}
	if st, ok := s.Status(files[0].ID); !ok || st != StatusWaiting {
		t.Fatalf("new file status = %v, want waiting", st)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
}

func TestAddKeepsSameNameFiles(t *testing.T) {
	s := newSession(t)
	first := media.New("/in/a/photo.png", "image/png", testutil.PNG(t, 8, 8), modTime)
	second := media.New("/in/b/photo.png", "image/png", testutil.PNG(t, 12, 6), modTime)
	if got := s.Add(first, second); got != 2 {
		t.Fatalf("Add = %d, want 2", got)
	}

	run, err := s.Convert(context.Background(), pngSettings(), nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(run.Outcomes) != 2 || len(s.Outcomes()) != 2 {
		t.Fatalf("got %d run outcomes and %d recorded, want 2", len(run.Outcomes), len(s.Outcomes()))
	}
	if run.Outcomes[0].Name != "photo.png" || run.Outcomes[1].Name != "photo_1.png" {
		t.Fatalf("names = %q, %q", run.Outcomes[0].Name, run.Outcomes[1].Name)
	}
	if run.Outcomes[1].Width != 12 {
		t.Fatalf("second outcome width = %d, want 12", run.Outcomes[1].Width)
	}
}

func TestConvertRecordsOutcomes(t *testing.T) {
	s := newSession(t)
	files := sampleFiles(t)
	s.Add(files...)

	run, err := s.Convert(context.Background(), pngSettings(), nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(run.Outcomes) != 3 {
		t.Fatalf("got %d outcomes", len(run.Outcomes))
	}

	want := []FileStatus{StatusCompleted, StatusCompleted, StatusError}
	for i, f := range files {
		if st, _ := s.Status(f.ID); st != want[i] {
			t.Fatalf("%s status = %v, want %v", f.Name, st, want[i])
		}
	}
	outcomes := s.Outcomes()
	if len(outcomes) != 3 || outcomes[0].Name != "a.png" || outcomes[1].Name != "b.png" {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if o, _ := s.Outcome(files[2].ID); o.Kind != failure.KindDecode {
		t.Fatalf("bad file kind = %v, want DecodeError", o.Kind)
	}
}

func TestConvertSettingsErrorKeepsFilesWaiting(t *testing.T) {
	s := newSession(t)
	files := sampleFiles(t)
	s.Add(files...)

	bad := settings.Default()
	bad.Lossless = true
	if _, err := s.Convert(context.Background(), bad, nil); !errors.Is(err, failure.ErrUnsupportedFormatCombination) {
		t.Fatalf("expected UnsupportedFormatCombination, got %v", err)
	}
	for _, f := range files {
		if st, _ := s.Status(f.ID); st != StatusWaiting {
			t.Fatalf("%s status = %v, want waiting", f.Name, st)
		}
	}

	if _, err := s.Convert(context.Background(), pngSettings(), nil); err != nil {
		t.Fatalf("retry Convert: %v", err)
	}
	if len(s.Outcomes()) != 3 {
		t.Fatalf("retry should record every file")
	}
}

func TestClearAbandonsRun(t *testing.T) {
	s := newSession(t)
	files := sampleFiles(t)
	s.Add(files...)

	updates := make(chan processor.ProgressUpdate)
	done := convertAsync(t, s, files[0].ID, updates)
	s.Clear()

	r := drain(updates, done)
	if !errors.Is(r.err, ErrAbandoned) {
		t.Fatalf("expected ErrAbandoned, got %v", r.err)
	}
	if s.Len() != 0 || len(s.Outcomes()) != 0 {
		t.Fatalf("abandoned results leaked into the session: %d files, %d outcomes", s.Len(), len(s.Outcomes()))
	}
}

func TestRemoveDropsLateOutcome(t *testing.T) {
	s := newSession(t)
	files := sampleFiles(t)
	s.Add(files...)

	updates := make(chan processor.ProgressUpdate)
	done := convertAsync(t, s, files[1].ID, updates)
	if !s.Remove(files[1].ID) {
		t.Fatalf("Remove returned false")
	}

	r := drain(updates, done)
	if r.err != nil {
		t.Fatalf("Convert: %v", r.err)
	}
	if len(r.run.Outcomes) != 3 {
		t.Fatalf("the run itself still covers every snapshotted file")
	}
	if _, ok := s.Outcome(files[1].ID); ok {
		t.Fatalf("outcome for removed file was recorded")
	}
	if _, ok := s.Outcome(files[0].ID); !ok {
		t.Fatalf("outcome for remaining file missing")
	}
	if len(s.Outcomes()) != 2 {
		t.Fatalf("Outcomes = %d, want 2", len(s.Outcomes()))
	}
}

func TestRemoveUnknown(t *testing.T) {
	if newSession(t).Remove("missing") {
		t.Fatalf("Remove of unknown id returned true")
	}
}
