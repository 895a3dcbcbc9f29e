package imgutil

import (
	"errors"
	"path/filepath"
	"strings"
)

// Kind identifies a supported image type.
type Kind int

const (
	KindUnknown Kind = iota
	KindJPEG
	KindPNG
	KindGIF
	KindWebP
)

func (k Kind) String() string {
	switch k {
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	case KindGIF:
		return "gif"
	case KindWebP:
		return "webp"
	default:
		return "unknown"
	}
}

// HeaderSize is the number of leading bytes DetectHeader needs.
const HeaderSize = 12

var (
	pngSig   = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegSig  = []byte{0xff, 0xd8, 0xff}
	gif87Sig = []byte("GIF87a")
	gif89Sig = []byte("GIF89a")
	riffSig  = []byte("RIFF")
	webpSig  = []byte("WEBP")
)

// SupportedExtensions lists the lower-cased source extensions the watcher
// picks up.
var SupportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// IsSupportedPath reports whether path has a supported image extension,
// ignoring case.
func IsSupportedPath(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// DetectHeader inspects the first 12 bytes of a file for known signatures.
func DetectHeader(header []byte) (Kind, error) {
	if len(header) < HeaderSize {
		return KindUnknown, errors.New("header too short")
	}

	if hasPrefix(header, jpegSig) {
		return KindJPEG, nil
	}
	if hasPrefix(header, pngSig) {
		return KindPNG, nil
	}
	if hasPrefix(header, gif87Sig) || hasPrefix(header, gif89Sig) {
		return KindGIF, nil
	}
	if hasPrefix(header, riffSig) && hasPrefix(header[8:], webpSig) {
		return KindWebP, nil
	}

	return KindUnknown, nil
}

// SniffBytes determines the type of an in-memory file.
func SniffBytes(data []byte) (Kind, error) {
	if len(data) < HeaderSize {
		return KindUnknown, errors.New("header too short")
	}
	return DetectHeader(data[:HeaderSize])
}

func hasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i := range prefix {
		if buf[i] != prefix[i] {
			return false
		}
	}
	return true
}
