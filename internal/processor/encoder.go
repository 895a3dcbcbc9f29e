package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"time"

	"github.com/disintegration/imaging"
)

// Attempt records one encode in a size search.
type Attempt struct {
	Quality   int
	Quantized bool
	Size      int
}

// Encoded is the outcome of a size-constrained encode. Fits is false when
// every fallback was exhausted without reaching the limit; Data then holds
// the last (smallest-effort) encoding.
type Encoded struct {
	Data      []byte
	Format    Format
	Quality   int
	Quantized bool
	Attempts  []Attempt
	Fits      bool
}

// Encoder produces encodings bounded by a byte limit.
type Encoder struct {
	Limit        int
	StartQuality int
	Step         int
	MinQuality   int
}

func NewEncoder(opts Options) *Encoder {
	opts.defaults()
	return &Encoder{
		Limit:        opts.MaxBytes,
		StartQuality: opts.JPEGStartQuality,
		Step:         opts.JPEGStep,
		MinQuality:   opts.JPEGMinQuality,
	}
}

// QualityLadder returns the JPEG qualities tried in order, ending at the
// floor.
func (e *Encoder) QualityLadder() []int {
	start, floor, step := e.StartQuality, e.MinQuality, e.Step
	if step <= 0 {
		step = DefaultJPEGStep
	}
	if start < floor {
		start = floor
	}
	var ladder []int
	for q := start; ; q -= step {
		if q < floor {
			q = floor
		}
		ladder = append(ladder, q)
		if q == floor {
			break
		}
	}
	return ladder
}

// Encode encodes a still image as PNG or JPEG within the limit.
func (e *Encoder) Encode(img *image.NRGBA, format Format) (Encoded, error) {
	switch format {
	case FormatPNG:
		return e.EncodePNG(img, colorMode(img))
	case FormatJPEG:
		return e.encodeJPEG(img)
	default:
		return Encoded{}, fmt.Errorf("encode: %s is not a still format", format)
	}
}

// EncodePNG encodes img losslessly and, for alpha-mode images that do not
// fit, retries with a 256-color palette.
func (e *Encoder) EncodePNG(img *image.NRGBA, mode Mode) (Encoded, error) {
	data, err := encodePNGBytes(img)
	if err != nil {
		return Encoded{}, err
	}
	out := Encoded{
		Data:     data,
		Format:   FormatPNG,
		Attempts: []Attempt{{Size: len(data)}},
		Fits:     len(data) <= e.Limit,
	}
	if out.Fits || mode == ModeOpaque {
		return out, nil
	}

	q := quantizer{colors: 256}
	paletted := q.Quantize(img, q.Palette(img))
	data, err = encodePNGBytes(paletted)
	if err != nil {
		return Encoded{}, err
	}
	out.Data = data
	out.Quantized = true
	out.Attempts = append(out.Attempts, Attempt{Quantized: true, Size: len(data)})
	out.Fits = len(data) <= e.Limit
	return out, nil
}

func (e *Encoder) encodeJPEG(img *image.NRGBA) (Encoded, error) {
	out := Encoded{Format: FormatJPEG}
	for _, quality := range e.QualityLadder() {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return Encoded{}, fmt.Errorf("encode jpeg q%d: %w", quality, err)
		}
		out.Data = buf.Bytes()
		out.Quality = quality
		out.Attempts = append(out.Attempts, Attempt{Quality: quality, Size: buf.Len()})
		if buf.Len() <= e.Limit {
			out.Fits = true
			return out, nil
		}
	}
	return out, nil
}

// EncodeAnimation assembles frames into a looping GIF. Every frame shares
// one palette whose index 0 is transparent, and every frame is disposed to
// background so transparent regions never show the previous frame.
func (e *Encoder) EncodeAnimation(frames []Frame, loopCount int) (Encoded, error) {
	if len(frames) == 0 {
		return Encoded{}, ErrNoFrames
	}

	images := make([]*image.NRGBA, len(frames))
	for i, f := range frames {
		images[i] = f.Image
	}
	q := quantizer{colors: 256, binaryAlpha: true}
	palette := q.Palette(images...)

	bounds := frames[0].Image.Bounds()
	anim := &gif.GIF{
		LoopCount: loopCount,
		Config: image.Config{
			ColorModel: palette,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		},
		BackgroundIndex: 0,
	}
	for _, f := range frames {
		anim.Image = append(anim.Image, q.Quantize(f.Image, palette))
		anim.Delay = append(anim.Delay, delayCentiseconds(f.Delay))
		anim.Disposal = append(anim.Disposal, gif.DisposalBackground)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return Encoded{}, fmt.Errorf("encode gif: %w", err)
	}
	return Encoded{
		Data:      buf.Bytes(),
		Format:    FormatGIF,
		Quantized: true,
		Attempts:  []Attempt{{Quantized: true, Size: buf.Len()}},
		Fits:      buf.Len() <= e.Limit,
	}, nil
}

func encodePNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func delayCentiseconds(d time.Duration) int {
	return int(d / (10 * time.Millisecond))
}
