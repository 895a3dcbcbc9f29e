package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"emojify/internal/processor"
)

const ruleWidth = 50

// Console prints per-file status lines. It implements processor.Reporter.
type Console struct {
	mu   sync.Mutex
	emit func(string)

	// Limit is the byte limit quoted when an artifact is over size.
	Limit int64
}

var _ processor.Reporter = (*Console)(nil)

// NewConsole writes lines to w.
func NewConsole(w io.Writer) *Console {
	return NewConsoleFunc(func(line string) {
		fmt.Fprintln(w, line)
	})
}

// NewConsoleFunc hands every line to emit, e.g. tea.Program.Println while
// a progress view owns the terminal.
func NewConsoleFunc(emit func(string)) *Console {
	return &Console{emit: emit, Limit: processor.DefaultMaxBytes}
}

// SetOutput redirects subsequent lines.
func (c *Console) SetOutput(emit func(string)) {
	c.mu.Lock()
	c.emit = emit
	c.mu.Unlock()
}

func (c *Console) line(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emit(s)
}

func (c *Console) Started(name string) {
	c.line(fileStyle.Render("Processing: " + name))
}

func (c *Console) Progress(_ string, message string) {
	c.line("  " + dimStyle.Render(message))
}

func (c *Console) Saved(a processor.Artifact) {
	detail := FormatKB(a.Size)
	if a.Format == processor.FormatGIF {
		detail = fmt.Sprintf("%s, %d frames", detail, a.Frames)
	}
	c.line("  " + okStyle.Render(fmt.Sprintf("Saved: %s (%s)", filepath.Base(a.Path), detail)))
	if a.Oversize {
		c.line("  " + warnStyle.Render(fmt.Sprintf("Over size limit: %s exceeds %s", FormatKB(a.Size), FormatKB(c.Limit))))
	}
}

func (c *Console) Failed(name string, err error) {
	c.line("  " + errStyle.Render(fmt.Sprintf("Error processing %s: %v", name, err)))
}

// Banner prints the startup header.
func (c *Console) Banner(inputDir, outputDir string) {
	heavy := strings.Repeat("=", ruleWidth)
	c.line(heavy)
	c.line(titleStyle.Render("Discord Emoji Optimizer"))
	c.line(heavy)
	c.line(labelStyle.Render("Input folder:  ") + inputDir)
	c.line(labelStyle.Render("Output folder: ") + outputDir)
	c.Rule()
}

// Rule prints a light separator.
func (c *Console) Rule() {
	c.line(dimStyle.Render(strings.Repeat("-", ruleWidth)))
}

// Println prints an unstyled line.
func (c *Console) Println(s string) {
	c.line(s)
}

var (
	fileStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccentAlt)
	okStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
	warnStyle = lipgloss.NewStyle().Foreground(ColorWarn)
	errStyle  = lipgloss.NewStyle().Foreground(ColorError)
)
