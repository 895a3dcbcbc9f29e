package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"emojify/internal/processor"
	"emojify/internal/tui"
	"emojify/internal/watcher"
)

var (
	watchInput    string
	watchSettle   time.Duration
	watchOnce     bool
	watchProgress bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Optimize existing images, then watch the input folder for new ones",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&watchInput, "input", "i", "", "folder to watch for new images")
	cmd.Flags().DurationVar(&watchSettle, "settle", 0, "wait this long after a file appears before reading it")
	cmd.Flags().BoolVar(&watchOnce, "once", false, "process existing images and exit")
	cmd.Flags().BoolVar(&watchProgress, "progress", false, "show a progress bar while processing existing images")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.InputDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	console := tui.NewConsole(out)
	console.Limit = int64(cfg.Limits.MaxBytes)
	console.Banner(absPath(cfg.InputDir), absPath(cfg.OutputDir))

	opt, err := newOptimizer(cfg, console, &logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := watcher.New(opt, watcher.Options{
		InputDir: cfg.InputDir,
		Settle:   cfg.SettleDelay,
		Logger:   &logger,
	})
	defer d.Close()

	// Watch before sweeping so files dropped during the sweep are not missed.
	if !watchOnce {
		if err := d.Watch(); err != nil {
			return err
		}
	}

	pending, err := d.Pending()
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		console.Println(fmt.Sprintf("Processing %d existing image(s)...", len(pending)))
		var summary processor.Summary
		if watchProgress {
			summary, err = sweepWithProgress(ctx, stop, d, console, out)
		} else {
			summary, err = d.Sweep(ctx, nil)
		}
		if err != nil {
			return err
		}
		logger.Info().
			Int("processed", summary.Processed).
			Int("errors", summary.Errors).
			Int("oversize", summary.Oversize).
			Int64("bytes", summary.BytesWritten).
			Msg("sweep finished")
		console.Println(tui.RenderSummary(tui.SweepRows(summary)))
		console.Rule()
	}

	if watchOnce || ctx.Err() != nil {
		console.Println("Done!")
		return nil
	}

	console.Println("Watching for new images... (Press Ctrl+C to stop)")
	console.Println("")
	if err := d.Run(ctx); err != nil {
		return err
	}

	console.Println("")
	console.Println("Stopping...")
	console.Println("Done!")
	return nil
}

// sweepWithProgress runs the sweep under a bubbletea progress view. Status
// lines are printed above the view while it is active.
func sweepWithProgress(ctx context.Context, stop context.CancelFunc, d *watcher.Dispatcher, console *tui.Console, out io.Writer) (processor.Summary, error) {
	updates := make(chan processor.ProgressUpdate, 64)
	model := tui.NewModel(updates)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))

	uiDone := make(chan struct{})
	go func() {
		final, _ := program.Run()
		if m, ok := final.(tui.Model); ok && m.Interrupted() {
			stop()
		}
		close(uiDone)
	}()

	// Send drops lines once the view has quit; Program.Println would block.
	console.SetOutput(func(s string) { program.Send(tea.Println(s)()) })
	summary, err := d.Sweep(ctx, updates)
	close(updates)
	<-uiDone
	console.SetOutput(func(s string) { fmt.Fprintln(out, s) })

	return summary, err
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func init() {
	addWatchFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}
