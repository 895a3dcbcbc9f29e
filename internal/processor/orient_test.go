package processor

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func TestReadOrientation(t *testing.T) {
	data := buildJPEGWithOrientation(t, image.NewRGBA(image.Rect(0, 0, 8, 4)), 6)

	orientation, err := readOrientation(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read orientation: %v", err)
	}
	if orientation != 6 {
		t.Fatalf("expected orientation 6, got %d", orientation)
	}
}

func TestReadOrientationWithoutExif(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}

	orientation, err := readOrientation(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read orientation: %v", err)
	}
	if orientation != 1 {
		t.Fatalf("expected orientation 1, got %d", orientation)
	}
}

func TestApplyOrientation(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	red := color.NRGBA{R: 255, A: 255}
	src.SetNRGBA(0, 0, red)

	cases := []struct {
		orientation int
		w, h        int
		redX, redY  int
	}{
		{1, 4, 2, 0, 0},
		{2, 4, 2, 3, 0},
		{3, 4, 2, 3, 1},
		{6, 2, 4, 1, 0},
		{8, 2, 4, 0, 3},
	}

	for _, tc := range cases {
		out := applyOrientation(src, tc.orientation)
		b := out.Bounds()
		if b.Dx() != tc.w || b.Dy() != tc.h {
			t.Fatalf("orientation %d: expected %dx%d, got %dx%d", tc.orientation, tc.w, tc.h, b.Dx(), b.Dy())
		}
		if r, _, _, _ := out.At(tc.redX, tc.redY).RGBA(); r != 0xffff {
			t.Fatalf("orientation %d: expected red at (%d,%d)", tc.orientation, tc.redX, tc.redY)
		}
	}
}

// buildJPEGWithOrientation encodes img and splices an APP1 EXIF segment
// carrying the Orientation tag right after SOI.
func buildJPEGWithOrientation(t *testing.T, img image.Image, orientation uint16) []byte {
	t.Helper()

	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	data := enc.Bytes()

	exif := append([]byte("Exif\x00\x00"), buildExifTIFF(orientation)...)

	var buf bytes.Buffer
	buf.Write(data[:2])
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exif)+2))
	buf.Write(exif)
	buf.Write(data[2:])
	return buf.Bytes()
}

func buildExifTIFF(orientation uint16) []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0112))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, orientation)
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	return tiff.Bytes()
}
