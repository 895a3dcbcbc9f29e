package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/webp"

	"emojify/internal/segment"
	"emojify/pkg/imgutil"
)

// Optimizer turns source images into emoji artifacts. Calls are expected
// to be sequential; an Optimizer holds no per-call state.
type Optimizer struct {
	opts Options
	enc  *Encoder
}

func New(opts Options) *Optimizer {
	opts.defaults()
	if opts.RemoveBackground && opts.Remover == nil {
		opts.Remover = segment.NewFlood(segment.FloodOptions{})
	}
	return &Optimizer{opts: opts, enc: NewEncoder(opts)}
}

// OutputPath returns where the artifact for source is written in format.
func (o *Optimizer) OutputPath(source string, format Format) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(o.opts.OutputDir, stem+o.opts.Suffix+format.Ext())
}

// Process optimizes one file and reports the outcome. Failures are
// returned as *Error and never leave an output file behind.
func (o *Optimizer) Process(ctx context.Context, path string) (Artifact, error) {
	name := filepath.Base(path)
	log := o.opts.Logger.With().Str("file", name).Logger()

	o.opts.Reporter.Started(name)
	artifact, err := o.process(ctx, path)
	if err != nil {
		log.Debug().Err(err).Stringer("kind", KindOf(err)).Msg("optimize failed")
		o.opts.Reporter.Failed(name, err)
		return artifact, err
	}

	log.Debug().
		Str("output", artifact.Path).
		Stringer("format", artifact.Format).
		Int64("bytes", artifact.Size).
		Int("frames", artifact.Frames).
		Bool("oversize", artifact.Oversize).
		Msg("optimized")
	o.opts.Reporter.Saved(artifact)
	return artifact, nil
}

func (o *Optimizer) process(ctx context.Context, path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, newError(KindDecode, path, err)
	}

	kind, err := imgutil.SniffBytes(data)
	if err != nil {
		return Artifact{}, newError(KindDecode, path, err)
	}

	switch kind {
	case imgutil.KindGIF:
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return Artifact{}, newError(KindDecode, path, err)
		}
		switch len(g.Image) {
		case 0:
			return Artifact{}, newError(KindEmptyAnimation, path, ErrNoFrames)
		case 1:
			frames := composeFrames(g)
			return o.optimizeStatic(ctx, path, frames[0].Image)
		default:
			return o.optimizeAnimated(ctx, path, g)
		}

	case imgutil.KindPNG:
		if animated, err := isAnimatedPNG(bytes.NewReader(data)); err == nil && animated {
			o.opts.Logger.Warn().Str("file", filepath.Base(path)).Msg("animated PNG, using the default image only")
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return Artifact{}, newError(KindDecode, path, err)
		}
		return o.optimizeStatic(ctx, path, img)

	case imgutil.KindJPEG:
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return Artifact{}, newError(KindDecode, path, err)
		}
		orientation, err := readOrientation(bytes.NewReader(data))
		if err != nil {
			o.opts.Logger.Debug().Err(err).Str("file", filepath.Base(path)).Msg("exif unreadable, keeping orientation")
		}
		return o.optimizeStatic(ctx, path, applyOrientation(img, orientation))

	case imgutil.KindWebP:
		animated, err := isAnimatedWebP(bytes.NewReader(data))
		if err != nil {
			return Artifact{}, newError(KindDecode, path, err)
		}
		if animated {
			return Artifact{}, newError(KindDecode, path, ErrAnimatedWebP)
		}
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return Artifact{}, newError(KindDecode, path, err)
		}
		return o.optimizeStatic(ctx, path, img)

	default:
		return Artifact{}, newError(KindDecode, path, ErrUnsupportedFormat)
	}
}

// write stores data at the artifact's output path through a temp file in
// the output directory, so readers never see a partial emoji.
func (o *Optimizer) write(artifact Artifact, data []byte) (Artifact, error) {
	destPath := o.OutputPath(artifact.Source, artifact.Format)
	destDir := filepath.Dir(destPath)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Artifact{}, newError(KindWrite, artifact.Source, err)
	}

	tmpFile, err := os.CreateTemp(destDir, "emojify-*.tmp")
	if err != nil {
		return Artifact{}, newError(KindWrite, artifact.Source, err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return Artifact{}, newError(KindWrite, artifact.Source, err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return Artifact{}, newError(KindWrite, artifact.Source, err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return Artifact{}, newError(KindWrite, artifact.Source, err)
	}
	if err := tmpFile.Close(); err != nil {
		return Artifact{}, newError(KindWrite, artifact.Source, err)
	}

	if err := replaceFile(tmpFile.Name(), destPath); err != nil {
		return Artifact{}, newError(KindWrite, artifact.Source, err)
	}

	artifact.Path = destPath
	artifact.Size = int64(len(data))
	return artifact, nil
}

// Run optimizes paths in order, one at a time, and aggregates a summary.
// A failing file is counted and skipped; only cancellation stops the run.
func (o *Optimizer) Run(ctx context.Context, paths []string, updates chan<- ProgressUpdate) (Summary, []Result, error) {
	summary := Summary{}
	results := make([]Result, 0, len(paths))

	summary.Total = len(paths)
	if updates != nil {
		updates <- ProgressUpdate{TotalDelta: len(paths)}
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return summary, results, nil
			}
			return summary, results, err
		}

		artifact, err := o.Process(ctx, path)
		results = append(results, Result{Path: path, Artifact: artifact, Err: err})

		update := ProgressUpdate{ProcessedDelta: 1}
		summary.Processed++
		if err != nil {
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

	return summary, results, nil
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", destPath, err)
	}
	return os.Rename(tmpPath, destPath)
}
