package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"emojify/internal/segment"
)

// composeFrames renders every GIF frame onto the logical screen, honoring
// the source disposal methods, so each returned frame is a full picture.
func composeFrames(g *gif.GIF) []Frame {
	if len(g.Image) == 0 {
		return nil
	}

	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		screen = image.Rectangle{}
		for _, pm := range g.Image {
			screen = screen.Union(pm.Bounds())
		}
	}

	canvas := image.NewNRGBA(screen)
	frames := make([]Frame, 0, len(g.Image))
	for i, pm := range g.Image {
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var previous *image.NRGBA
		if disposal == gif.DisposalPrevious {
			previous = imaging.Clone(canvas)
		}

		draw.Draw(canvas, pm.Bounds(), pm, pm.Bounds().Min, draw.Over)
		frames = append(frames, Frame{Image: imaging.Clone(canvas), Delay: frameDelay(g, i)})

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, pm.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			draw.Draw(canvas, canvas.Bounds(), previous, image.Point{}, draw.Src)
		}
	}
	return frames
}

func frameDelay(g *gif.GIF, i int) time.Duration {
	if i >= len(g.Delay) || g.Delay[i] <= 0 {
		return DefaultFrameDelay
	}
	return time.Duration(g.Delay[i]) * 10 * time.Millisecond
}

// loopCount maps a decoded GIF loop count to the one written back. A GIF
// without a NETSCAPE block decodes as -1 and is written to loop forever.
func loopCount(g *gif.GIF) int {
	if g.LoopCount < 0 {
		return 0
	}
	return g.LoopCount
}

// reduceFrames keeps frames 0, 2, 4, ... and doubles their delay so total
// playback time stays roughly the same.
func reduceFrames(frames []Frame) []Frame {
	out := make([]Frame, 0, (len(frames)+1)/2)
	for i := 0; i < len(frames); i += 2 {
		f := frames[i]
		f.Delay *= 2
		out = append(out, f)
	}
	return out
}

func (o *Optimizer) optimizeAnimated(ctx context.Context, source string, g *gif.GIF) (Artifact, error) {
	name := filepath.Base(source)
	frames := composeFrames(g)
	if len(frames) == 0 {
		return Artifact{}, newError(KindEmptyAnimation, source, ErrNoFrames)
	}

	for i := range frames {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		img := frames[i].Image
		if o.opts.RemoveBackground {
			o.opts.Reporter.Progress(name, fmt.Sprintf("Removing background: frame %d/%d", i+1, len(frames)))
			removed, err := o.opts.Remover.RemoveBackground(ctx, img)
			switch {
			case errors.Is(err, segment.ErrNoSubject):
				// Blank frames (fades, solid keyframes) become fully transparent.
				img = image.NewNRGBA(img.Bounds())
			case err != nil:
				return Artifact{}, newError(KindSegmentation, source, fmt.Errorf("frame %d: %w", i, err))
			default:
				img = imaging.Clone(removed)
			}
		}
		frames[i].Image = fit(img, o.opts.MaxDimension)
	}

	loop := loopCount(g)
	enc, err := o.enc.EncodeAnimation(frames, loop)
	if err != nil {
		return Artifact{}, newError(KindEncode, source, err)
	}

	reduced := false
	if !enc.Fits && len(frames) > 1 {
		o.opts.Logger.Debug().Str("file", name).Int("gif_bytes", len(enc.Data)).Int("frames", len(frames)).Msg("gif over limit, dropping every second frame")
		frames = reduceFrames(frames)
		enc, err = o.enc.EncodeAnimation(frames, loop)
		if err != nil {
			return Artifact{}, newError(KindEncode, source, err)
		}
		reduced = true
	}

	b := frames[0].Image.Bounds()
	artifact := Artifact{
		Source:    source,
		Format:    FormatGIF,
		Mode:      ModeAlpha,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Frames:    len(frames),
		LoopCount: loop,
		Quantized: true,
		Reduced:   reduced,
		Oversize:  !enc.Fits,
	}
	return o.write(artifact, enc.Data)
}
