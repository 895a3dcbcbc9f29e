package processor

import (
	"context"
	"image"
	"time"

	"github.com/rs/zerolog"
)

// Discord emoji constraints.
const (
	DefaultMaxBytes     = 256 * 1024
	DefaultMaxDimension = 128
	DefaultSuffix       = "_emoji"

	DefaultJPEGStartQuality = 95
	DefaultJPEGStep         = 5
	DefaultJPEGMinQuality   = 10

	// DefaultFrameDelay applies to animation frames that carry no delay.
	DefaultFrameDelay = 100 * time.Millisecond
)

type Mode int

const (
	ModeOpaque Mode = iota
	ModeAlpha
)

func (m Mode) String() string {
	if m == ModeAlpha {
		return "rgba"
	}
	return "rgb"
}

type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatGIF
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatGIF:
		return "gif"
	default:
		return "png"
	}
}

// Ext returns the file extension written for the format.
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatGIF:
		return ".gif"
	default:
		return ".png"
	}
}

// BackgroundRemover makes the background of an image transparent. The
// returned image must have the same bounds as the input.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, img image.Image) (image.Image, error)
}

// Reporter receives per-file status for console output.
type Reporter interface {
	Started(name string)
	Progress(name, message string)
	Saved(artifact Artifact)
	Failed(name string, err error)
}

type Options struct {
	OutputDir    string
	Suffix       string
	MaxBytes     int
	MaxDimension int

	JPEGStartQuality int
	JPEGStep         int
	JPEGMinQuality   int

	// RemoveBackground toggles the segmentation stage for both still and
	// animated sources.
	RemoveBackground bool
	Remover          BackgroundRemover

	Reporter Reporter
	Logger   *zerolog.Logger
}

func (o *Options) defaults() {
	if o.Suffix == "" {
		o.Suffix = DefaultSuffix
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.JPEGStartQuality <= 0 {
		o.JPEGStartQuality = DefaultJPEGStartQuality
	}
	if o.JPEGStep <= 0 {
		o.JPEGStep = DefaultJPEGStep
	}
	if o.JPEGMinQuality <= 0 {
		o.JPEGMinQuality = DefaultJPEGMinQuality
	}
	if o.Reporter == nil {
		o.Reporter = nopReporter{}
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
}

// Frame is one fully composited animation frame.
type Frame struct {
	Image *image.NRGBA
	Delay time.Duration
}

// Artifact describes a written emoji.
type Artifact struct {
	Source    string
	Path      string
	Format    Format
	Mode      Mode
	Size      int64
	Width     int
	Height    int
	Frames    int
	LoopCount int
	Quality   int
	Quantized bool
	Reduced   bool
	// Oversize is set when no fallback could bring the encoding under the
	// byte limit. The artifact is still written.
	Oversize bool
}

type Result struct {
	Path     string
	Artifact Artifact
	Err      error
}

type Summary struct {
	Total        int
	Processed    int
	Errors       int
	Oversize     int
	BytesWritten int64
}

type ProgressUpdate struct {
	TotalDelta        int
	ProcessedDelta    int
	ErrorDelta        int
	OversizeDelta     int
	BytesWrittenDelta int64
}

type nopReporter struct{}

func (nopReporter) Started(string)          {}
func (nopReporter) Progress(string, string) {}
func (nopReporter) Saved(Artifact)          {}
func (nopReporter) Failed(string, error)    {}
