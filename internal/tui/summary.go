package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"batchconv/internal/processor"
)

type SummaryRow struct {
	Label string
	Value string
}

// RenderSummary draws rows as a two-column table.
func RenderSummary(rows []SummaryRow) string {
	labelWidth, valueWidth := 0, 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}
	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value)))
	}
	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// BatchRows summarises a finished run.
func BatchRows(run *processor.BatchRun) []SummaryRow {
	return []SummaryRow{
		{Label: "Files converted", Value: fmt.Sprintf("%d/%d", len(run.Succeeded()), len(run.Outcomes))},
		{Label: "Failures", Value: fmt.Sprintf("%d", len(run.Failed()))},
		{Label: "Output format", Value: string(run.Settings.Format)},
		{Label: "Size change", Value: FormatBytes(-run.BytesSaved())},
		{Label: "Took", Value: run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()},
	}
}

// RenderFailures lists each failed outcome with its kind and message. It
// returns "" when nothing failed.
func RenderFailures(outcomes []processor.Outcome) string {
	lines := []string{}
	for _, o := range outcomes {
		if o.Succeeded() {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s %s %s",
			warnStyle.Render("✗"),
			labelStyle.Render(o.Source.Name),
			dimStyle.Render(fmt.Sprintf("[%s] %s", o.Kind, o.Message)),
		))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(append([]string{errorStyle.Render("Failed files:")}, lines...), "\n")
}

// RenderBanner shows a batch-wide error once.
func RenderBanner(err error) string {
	return bannerStyle.Render("Batch not started: " + err.Error())
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

var (
	valueStyle  = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	bannerStyle = lipgloss.NewStyle().Foreground(ColorError).Bold(true).Border(lipgloss.NormalBorder()).BorderForeground(ColorError).Padding(0, 1)
)
