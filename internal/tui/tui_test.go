package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"emojify/internal/processor"
)

func TestConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Started("cat.png")
	c.Progress("cat.png", "Removing background...")
	c.Saved(processor.Artifact{Path: "/out/cat_emoji.png", Format: processor.FormatPNG, Size: 2048})
	c.Started("party.gif")
	c.Saved(processor.Artifact{Path: "/out/party_emoji.gif", Format: processor.FormatGIF, Size: 512, Frames: 12})
	c.Started("huge.png")
	c.Saved(processor.Artifact{Path: "/out/huge_emoji.png", Format: processor.FormatPNG, Size: 300 * 1024, Oversize: true})
	c.Started("bad.png")
	c.Failed("bad.png", errors.New("decode failure: unexpected EOF"))

	out := buf.String()
	for _, want := range []string{
		"Processing: cat.png",
		"  Removing background...",
		"  Saved: cat_emoji.png (2.0KB)",
		"  Saved: party_emoji.gif (0.5KB, 12 frames)",
		"  Over size limit: 300.0KB exceeds 256.0KB",
		"  Error processing bad.png: decode failure: unexpected EOF",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestConsoleFuncAndBanner(t *testing.T) {
	var lines []string
	c := NewConsoleFunc(func(s string) { lines = append(lines, s) })
	c.Banner("/in", "/out")

	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "Input folder:  /in") || !strings.Contains(joined, "Output folder: /out") {
		t.Fatalf("unexpected banner:\n%s", joined)
	}
	if !strings.Contains(lines[len(lines)-1], strings.Repeat("-", ruleWidth)) {
		t.Fatalf("banner should end with a rule, got %q", lines[len(lines)-1])
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(SweepRows(processor.Summary{Processed: 3, Errors: 1, Oversize: 1, BytesWritten: 10240}))
	for _, want := range []string{"Images processed", "Errors", "Over size limit", "10.0KB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in summary:\n%s", want, out)
		}
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 4 rows between rules, got %d lines", len(lines))
	}
}

func TestModelAccumulatesUpdates(t *testing.T) {
	m := NewModel(nil)
	var model tea.Model = m
	for _, u := range []processor.ProgressUpdate{
		{TotalDelta: 2},
		{ProcessedDelta: 1, BytesWrittenDelta: 1024},
		{ProcessedDelta: 1, ErrorDelta: 1},
	} {
		model, _ = model.Update(updateMsg(u))
	}

	got := model.(Model)
	if got.total != 2 || got.processed != 2 || got.errors != 1 || got.bytesWritten != 1024 {
		t.Fatalf("unexpected model state %+v", got)
	}
	if view := got.View(); !strings.Contains(view, "Images: 2/2") {
		t.Fatalf("unexpected view:\n%s", view)
	}

	model, cmd := got.Update(doneMsg{})
	if cmd == nil || model.View() != "" {
		t.Fatal("expected quit on done")
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(10, 0.5); got != "[=====     ]" {
		t.Fatalf("unexpected bar %q", got)
	}
	if got := renderBar(4, 2); got != "[====]" {
		t.Fatalf("unexpected bar %q", got)
	}
}

func TestModelCtrlCInterrupts(t *testing.T) {
	model, cmd := NewModel(nil).Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil || !model.(Model).Interrupted() {
		t.Fatal("expected Ctrl+C to quit and mark the model interrupted")
	}
}
