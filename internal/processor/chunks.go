package processor

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

var (
	pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	riffHeader   = []byte("RIFF")
	webpFourCC   = []byte("WEBP")
)

// vp8xAnimationFlag marks an animated WebP in the VP8X feature byte.
const vp8xAnimationFlag = 0x02

// isAnimatedPNG walks the PNG chunk list looking for an acTL chunk before
// the first IDAT.
func isAnimatedPNG(r io.Reader) (bool, error) {
	br := bufio.NewReader(r)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return false, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return false, errors.New("invalid PNG signature")
	}

	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
		length := binary.BigEndian.Uint32(lenBuf)

		chunkType := make([]byte, 4)
		if _, err := io.ReadFull(br, chunkType); err != nil {
			return false, err
		}

		switch string(chunkType) {
		case "acTL":
			return true, nil
		case "IDAT", "IEND":
			return false, nil
		}

		if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
			return false, err
		}
	}
}

// isAnimatedWebP checks the VP8X chunk of a RIFF/WEBP container for the
// animation flag, or for an ANIM chunk.
func isAnimatedWebP(r io.Reader) (bool, error) {
	br := bufio.NewReader(r)

	header := make([]byte, 12)
	if _, err := io.ReadFull(br, header); err != nil {
		return false, err
	}
	if !bytes.Equal(header[:4], riffHeader) || !bytes.Equal(header[8:12], webpFourCC) {
		return false, errors.New("invalid WebP header")
	}

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(br, chunkHeader); err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
		fourCC := string(chunkHeader[:4])
		size := int64(binary.LittleEndian.Uint32(chunkHeader[4:]))
		padded := size + size&1

		switch fourCC {
		case "VP8X":
			flags, err := br.ReadByte()
			if err != nil {
				return false, err
			}
			if flags&vp8xAnimationFlag != 0 {
				return true, nil
			}
			if _, err := io.CopyN(io.Discard, br, padded-1); err != nil {
				return false, err
			}
			continue
		case "ANIM", "ANMF":
			return true, nil
		case "VP8 ", "VP8L":
			return false, nil
		}

		if _, err := io.CopyN(io.Discard, br, padded); err != nil {
			return false, err
		}
	}
}
