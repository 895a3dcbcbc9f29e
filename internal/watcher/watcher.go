// Package watcher feeds image files from an input directory to the
// optimizer: once for files already present, then for every file created
// while the process runs.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"emojify/internal/processor"
	"emojify/pkg/imgutil"
)

// DefaultSettle is how long a new file is left alone before it is read, so
// writers have a chance to finish.
const DefaultSettle = 500 * time.Millisecond

// Processor optimizes a single file. *processor.Optimizer satisfies it.
type Processor interface {
	Process(ctx context.Context, path string) (processor.Artifact, error)
}

type Options struct {
	InputDir string
	Settle   time.Duration
	Logger   *zerolog.Logger
}

// Dispatcher hands files to a Processor one at a time. It remembers every
// path it has dispatched and never dispatches the same path twice.
type Dispatcher struct {
	opts      Options
	proc      Processor
	log       zerolog.Logger
	processed map[string]struct{}
	fsw       *fsnotify.Watcher
}

func New(proc Processor, opts Options) *Dispatcher {
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "watcher").Logger()
	}
	return &Dispatcher{
		opts:      opts,
		proc:      proc,
		log:       log,
		processed: make(map[string]struct{}),
	}
}

// Pending lists the supported regular files currently in the input
// directory, sorted by name.
func (d *Dispatcher) Pending() ([]string, error) {
	entries, err := os.ReadDir(d.opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !imgutil.IsSupportedPath(entry.Name()) {
			continue
		}
		path, err := d.key(filepath.Join(d.opts.InputDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, seen := d.processed[path]; seen {
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Sweep processes every pending file once. Per-file failures are counted
// and do not stop the sweep. updates may be nil.
func (d *Dispatcher) Sweep(ctx context.Context, updates chan<- processor.ProgressUpdate) (processor.Summary, error) {
	paths, err := d.Pending()
	if err != nil {
		return processor.Summary{}, err
	}

	summary := processor.Summary{Total: len(paths)}
	if updates != nil {
		updates <- processor.ProgressUpdate{TotalDelta: len(paths)}
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			return summary, nil
		}
		d.processed[path] = struct{}{}
		artifact, err := d.proc.Process(ctx, path)

		update := processor.ProgressUpdate{ProcessedDelta: 1}
		summary.Processed++
		if err != nil {
			d.log.Debug().Err(err).Str("path", path).Msg("sweep: file failed")
			summary.Errors++
			update.ErrorDelta = 1
		} else {
			summary.BytesWritten += artifact.Size
			update.BytesWrittenDelta = artifact.Size
			if artifact.Oversize {
				summary.Oversize++
				update.OversizeDelta = 1
			}
		}
		if updates != nil {
			updates <- update
		}
	}
	return summary, nil
}

// Watch starts observing the input directory. Failing to watch is fatal
// for the caller; nothing can be dispatched without it.
func (d *Dispatcher) Watch() error {
	if d.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(d.opts.InputDir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch folder %s: %w", d.opts.InputDir, err)
	}
	d.fsw = fsw
	d.log.Debug().Str("dir", d.opts.InputDir).Msg("watching")
	return nil
}

// Run dispatches created files until ctx is cancelled. Events are handled
// sequentially on the calling goroutine.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.Watch(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-d.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			d.HandleCreated(ctx, event.Name)
		case err, ok := <-d.fsw.Errors:
			if !ok {
				return nil
			}
			d.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// HandleCreated dispatches path after the settle delay. It reports whether
// the file was handed to the processor; unsupported, already seen and
// vanished files are skipped.
func (d *Dispatcher) HandleCreated(ctx context.Context, path string) bool {
	if !imgutil.IsSupportedPath(path) {
		return false
	}
	key, err := d.key(path)
	if err != nil {
		d.log.Warn().Err(err).Str("path", path).Msg("cannot resolve path")
		return false
	}
	if _, seen := d.processed[key]; seen {
		return false
	}

	timer := time.NewTimer(d.opts.Settle)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
	}

	info, err := os.Stat(key)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.log.Warn().Err(err).Str("path", key).Msg("stat failed")
		}
		return false
	}
	if !info.Mode().IsRegular() {
		return false
	}

	d.processed[key] = struct{}{}
	if _, err := d.proc.Process(ctx, key); err != nil {
		d.log.Debug().Err(err).Str("path", key).Msg("file failed")
	}
	return true
}

// Seen reports whether path has already been dispatched.
func (d *Dispatcher) Seen(path string) bool {
	key, err := d.key(path)
	if err != nil {
		return false
	}
	_, ok := d.processed[key]
	return ok
}

func (d *Dispatcher) Close() error {
	if d.fsw == nil {
		return nil
	}
	err := d.fsw.Close()
	d.fsw = nil
	return err
}

func (d *Dispatcher) key(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}
