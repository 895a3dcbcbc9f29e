package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"emojify/internal/processor"
)

type SummaryRow struct {
	Label string
	Value string
}

// SweepRows describes a finished sweep.
func SweepRows(summary processor.Summary) []SummaryRow {
	return []SummaryRow{
		{Label: "Images processed", Value: fmt.Sprintf("%d", summary.Processed)},
		{Label: "Errors", Value: fmt.Sprintf("%d", summary.Errors)},
		{Label: "Over size limit", Value: fmt.Sprintf("%d", summary.Oversize)},
		{Label: "Written", Value: FormatKB(summary.BytesWritten)},
	}
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		if w := lipgloss.Width(row.Label); w > labelWidth {
			labelWidth = w
		}
		if w := lipgloss.Width(row.Value); w > valueWidth {
			valueWidth = w
		}
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value))
		lines = append(lines, line)
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// FormatKB renders n bytes as kilobytes with one decimal, e.g. "12.5KB".
func FormatKB(n int64) string {
	return fmt.Sprintf("%.1fKB", float64(n)/1024)
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

var (
	valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
)
