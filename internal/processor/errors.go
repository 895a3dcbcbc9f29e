package processor

import (
	"errors"
	"fmt"
)

// Kind classifies a per-file failure.
type Kind int

const (
	KindDecode Kind = iota + 1
	KindSegmentation
	KindEmptyAnimation
	KindEncode
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode failure"
	case KindSegmentation:
		return "segmentation failure"
	case KindEmptyAnimation:
		return "empty animation"
	case KindEncode:
		return "encode failure"
	case KindWrite:
		return "write failure"
	default:
		return "unknown failure"
	}
}

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrAnimatedWebP      = errors.New("animated WebP is not supported")
	ErrNoFrames          = errors.New("no decodable frames")
)

// Error is a failure of a single file. Nothing is written for the file
// when an Error is returned.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf returns the failure kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}
