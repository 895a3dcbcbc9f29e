package imgutil

import (
	"testing"
)

func TestDetectHeader(t *testing.T) {
	cases := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d}, KindPNG},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0, 1}, KindJPEG},
		{"gif89", []byte("GIF89a\x01\x00\x01\x00\x00\x00"), KindGIF},
		{"gif87", []byte("GIF87a\x01\x00\x01\x00\x00\x00"), KindGIF},
		{"webp", []byte("RIFF\x24\x00\x00\x00WEBP"), KindWebP},
		{"riff-not-webp", []byte("RIFF\x24\x00\x00\x00WAVE"), KindUnknown},
		{"text", []byte("hello, world"), KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectHeader(tc.header)
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDetectHeaderTooShort(t *testing.T) {
	if _, err := DetectHeader([]byte{0xff, 0xd8}); err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestSniffBytes(t *testing.T) {
	kind, err := SniffBytes([]byte("GIF89a\x10\x00\x10\x00\x00\x00\x00;"))
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if kind != KindGIF {
		t.Fatalf("expected gif, got %s", kind)
	}
	if _, err := SniffBytes([]byte("GIF")); err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestIsSupportedPath(t *testing.T) {
	cases := map[string]bool{
		"cat.png":         true,
		"CAT.PNG":         true,
		"photo.JpEg":      true,
		"dance.gif":       true,
		"sticker.webp":    true,
		"notes.txt":       false,
		"archive.png.zip": false,
		"noext":           false,
	}
	for name, want := range cases {
		if got := IsSupportedPath(name); got != want {
			t.Errorf("IsSupportedPath(%q) = %v, want %v", name, got, want)
		}
	}
}
