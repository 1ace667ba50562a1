package tui

import (
	"errors"
	"strings"
	"testing"

	"batchconv/internal/failure"
	"batchconv/internal/media"
	"batchconv/internal/processor"
)

func TestModelAccumulatesUpdates(t *testing.T) {
	updates := make(chan processor.ProgressUpdate)
	var m Model = NewModel("batchconv", updates)

	ok := processor.Outcome{Source: media.SourceFile{Name: "a.png"}, Status: processor.StatusSucceeded, Name: "a.jpg", Size: 10}
	steps := []processor.ProgressUpdate{
		{TotalDelta: 2},
		{ProcessedDelta: 1, BytesSavedDelta: 100, Current: "a.png"},
		{Outcome: &ok},
	}
	for _, u := range steps {
		next, _ := m.Update(updateMsg(u))
		m = next.(Model)
	}

	view := m.View()
	for _, want := range []string{"Files: 1/2", "errors:0", "Last: a.png", "a.png → a.jpg"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	next, cmd := m.Update(doneMsg{})
	if cmd == nil || next.(Model).View() != "" {
		t.Fatalf("expected the model to quit on close")
	}
}

func TestRecentOutcomesAreCapped(t *testing.T) {
	m := NewModel("t", nil)
	for i := 0; i < recentLimit+3; i++ {
		o := processor.Outcome{Source: media.SourceFile{Name: "x.png"}, Message: "bad"}
		next, _ := m.Update(updateMsg(processor.ProgressUpdate{Outcome: &o}))
		m = next.(Model)
	}
	if len(m.recent) != recentLimit {
		t.Fatalf("recent = %d, want %d", len(m.recent), recentLimit)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:        "0 B",
		512:      "+512 B",
		-2048:    "-2.0 KiB",
		1 << 20:  "+1.0 MiB",
		-1536000: "-1.5 MiB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderFailures(t *testing.T) {
	outcomes := []processor.Outcome{
		{Source: media.SourceFile{Name: "ok.png"}, Status: processor.StatusSucceeded},
		{Source: media.SourceFile{Name: "bad.jpg"}, Kind: failure.KindDecode, Message: "decode jpeg: invalid"},
	}
	out := RenderFailures(outcomes)
	if !strings.Contains(out, "bad.jpg") || !strings.Contains(out, "DecodeError") || strings.Contains(out, "ok.png") {
		t.Fatalf("unexpected failure list:\n%s", out)
	}
	if RenderFailures(outcomes[:1]) != "" {
		t.Fatalf("expected no output when nothing failed")
	}
}

func TestRenderSummaryAndBanner(t *testing.T) {
	table := RenderSummary([]SummaryRow{{Label: "Files", Value: "3"}, {Label: "Size change", Value: "-1.0 KiB"}})
	if !strings.Contains(table, "Size change") || !strings.Contains(table, "-1.0 KiB") {
		t.Fatalf("unexpected summary:\n%s", table)
	}
	if banner := RenderBanner(errors.New("lossless jpeg")); !strings.Contains(banner, "lossless jpeg") {
		t.Fatalf("unexpected banner:\n%s", banner)
	}
}
