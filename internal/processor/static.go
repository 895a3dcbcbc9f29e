package processor

import (
	"context"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// colorMode reports whether img carries any transparency.
func colorMode(img image.Image) Mode {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		if o.Opaque() {
			return ModeOpaque
		}
		return ModeAlpha
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return ModeAlpha
			}
		}
	}
	return ModeOpaque
}

// fit shrinks img uniformly so neither side exceeds limit. Smaller images
// are returned unscaled.
func fit(img *image.NRGBA, limit int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return img
	}
	return imaging.Fit(img, limit, limit, imaging.Lanczos)
}

// flatten forces every pixel fully opaque.
func flatten(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}

func (o *Optimizer) optimizeStatic(ctx context.Context, source string, src image.Image) (Artifact, error) {
	name := filepath.Base(source)
	mode := colorMode(src)
	canvas := imaging.Clone(src)

	if o.opts.RemoveBackground {
		o.opts.Reporter.Progress(name, "Removing background...")
		removed, err := o.opts.Remover.RemoveBackground(ctx, canvas)
		if err != nil {
			return Artifact{}, newError(KindSegmentation, source, err)
		}
		canvas = imaging.Clone(removed)
		// Removal that cleared nothing leaves an opaque image, which may
		// still fall back to JPEG.
		mode = colorMode(canvas)
	}

	thumb := fit(canvas, o.opts.MaxDimension)
	if mode == ModeOpaque {
		flatten(thumb)
	}

	enc, err := o.enc.EncodePNG(thumb, mode)
	if err != nil {
		return Artifact{}, newError(KindEncode, source, err)
	}
	if !enc.Fits && mode == ModeOpaque {
		o.opts.Logger.Debug().Str("file", name).Int("png_bytes", len(enc.Data)).Msg("png over limit, falling back to jpeg")
		enc, err = o.enc.Encode(thumb, FormatJPEG)
		if err != nil {
			return Artifact{}, newError(KindEncode, source, err)
		}
	}

	b := thumb.Bounds()
	artifact := Artifact{
		Source:    source,
		Format:    enc.Format,
		Mode:      mode,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Frames:    1,
		Quality:   enc.Quality,
		Quantized: enc.Quantized,
		Oversize:  !enc.Fits,
	}
	return o.write(artifact, enc.Data)
}
