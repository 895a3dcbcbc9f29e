package processor

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/soniakeys/quant/median"
)

// quantizer reduces NRGBA images to a shared palette of at most colors
// entries. With binaryAlpha every pixel is either fully opaque or mapped to
// the transparent entry at index 0, which is what GIF can express.
//
// When an image has few enough distinct colors they are kept exactly,
// partial alpha included. Otherwise the palette is a median cut over the
// opaque pixels, alpha is snapped at 50%, and pixels are mapped with 8x8
// Bayer ordered dithering.
type quantizer struct {
	colors      int
	binaryAlpha bool
}

var transparentColor = color.NRGBA{}

func packNRGBA(c color.NRGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// normalize folds fully transparent pixels into a single color, and with
// binary alpha also snaps partial alpha to opaque or transparent.
func normalize(c color.NRGBA, binary bool) (color.NRGBA, bool) {
	if binary {
		if c.A < 0x80 {
			return transparentColor, true
		}
		c.A = 0xff
		return c, false
	}
	if c.A == 0 {
		return transparentColor, true
	}
	return c, false
}

// Palette builds the shared palette for imgs. Transparent pixels, when
// present (or always with binaryAlpha), get index 0.
func (q quantizer) Palette(imgs ...*image.NRGBA) color.Palette {
	if palette, ok := q.exactPalette(imgs); ok {
		return palette
	}

	palette := make(color.Palette, 0, q.colors)
	reserved := 0
	if q.binaryAlpha || hasNonOpaque(imgs) {
		palette = append(palette, transparentColor)
		reserved = 1
	}
	available := q.colors - reserved
	if available < 1 {
		available = 1
	}

	cut := median.Quantizer(available).Palette(opaqueStrip(imgs)).ColorPalette()
	seen := make(map[uint32]bool, len(cut))
	for _, c := range cut {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		n.A = 0xff
		if key := packNRGBA(n); !seen[key] {
			seen[key] = true
			palette = append(palette, n)
		}
	}
	return palette
}

// exactPalette returns every distinct color, sorted, when they fit.
func (q quantizer) exactPalette(imgs []*image.NRGBA) (color.Palette, bool) {
	hist := make(map[uint32]color.NRGBA)
	hasTransparent := false
	for _, img := range imgs {
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c, transparent := normalize(img.NRGBAAt(x, y), q.binaryAlpha)
				if transparent {
					hasTransparent = true
					continue
				}
				hist[packNRGBA(c)] = c
				if len(hist) > q.colors {
					return nil, false
				}
			}
		}
	}

	keys := make([]uint32, 0, len(hist))
	for key := range hist {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	palette := make(color.Palette, 0, len(keys)+1)
	if hasTransparent || q.binaryAlpha {
		palette = append(palette, transparentColor)
	}
	if len(keys)+len(palette) > q.colors {
		return nil, false
	}
	for _, key := range keys {
		palette = append(palette, hist[key])
	}
	return palette, true
}

func hasNonOpaque(imgs []*image.NRGBA) bool {
	for _, img := range imgs {
		if !img.Opaque() {
			return true
		}
	}
	return false
}

// opaqueStrip lays the pixels that survive alpha snapping out in one row,
// in scan order, so the median cut sees every frame at once.
func opaqueStrip(imgs []*image.NRGBA) *image.NRGBA {
	n := 0
	for _, img := range imgs {
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] >= 0x80 {
				n++
			}
		}
	}
	if n == 0 {
		n = 1
	}
	strip := image.NewNRGBA(image.Rect(0, 0, n, 1))
	off := 0
	for _, img := range imgs {
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := img.NRGBAAt(x, y)
				if c.A < 0x80 {
					continue
				}
				strip.Pix[off], strip.Pix[off+1], strip.Pix[off+2], strip.Pix[off+3] = c.R, c.G, c.B, 0xff
				off += 4
			}
		}
	}
	return strip
}

// Quantize maps img onto palette. Colors present in the palette map
// exactly; everything else is ordered-dithered onto the opaque entries.
func (q quantizer) Quantize(img *image.NRGBA, palette color.Palette) *image.Paletted {
	b := img.Bounds()
	out := image.NewPaletted(b, palette)

	entries := make([]color.NRGBA, len(palette))
	exact := make(map[uint32]uint8, len(palette))
	for i, c := range palette {
		entries[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
		exact[packNRGBA(entries[i])] = uint8(i)
	}
	transparentIndex := -1
	if len(entries) > 0 && entries[0] == transparentColor {
		transparentIndex = 0
	}

	// First pass: transparent and exact pixels. The rest are collected
	// into an opaque copy for the ditherer.
	var pending []image.Point
	snapped := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, transparent := normalize(img.NRGBAAt(x, y), q.binaryAlpha)
			if transparent && transparentIndex >= 0 {
				out.SetColorIndex(x, y, uint8(transparentIndex))
				continue
			}
			if idx, ok := exact[packNRGBA(c)]; ok {
				out.SetColorIndex(x, y, idx)
				continue
			}
			c, transparent = normalize(c, true)
			if transparent && transparentIndex >= 0 {
				out.SetColorIndex(x, y, uint8(transparentIndex))
				continue
			}
			c.A = 0xff
			snapped.SetNRGBA(x, y, c)
			pending = append(pending, image.Point{X: x, Y: y})
		}
	}
	if len(pending) == 0 {
		return out
	}

	opaque := make([]color.Color, 0, len(entries))
	for i, e := range entries {
		if i != transparentIndex && e.A == 0xff {
			opaque = append(opaque, e)
		}
	}

	var d *dither.Ditherer
	if len(opaque) >= 2 {
		d = dither.NewDitherer(opaque)
	}
	if d == nil {
		for _, p := range pending {
			out.SetColorIndex(p.X, p.Y, nearest(entries, snapped.NRGBAAt(p.X, p.Y), transparentIndex))
		}
		return out
	}

	d.Mapper = dither.Bayer(8, 8, 1.0)
	dithered := d.DitherPaletted(snapped)
	for _, p := range pending {
		c := color.NRGBAModel.Convert(dithered.At(p.X, p.Y)).(color.NRGBA)
		idx, ok := exact[packNRGBA(c)]
		if !ok {
			idx = nearest(entries, c, transparentIndex)
		}
		out.SetColorIndex(p.X, p.Y, idx)
	}
	return out
}

func nearest(entries []color.NRGBA, c color.NRGBA, skip int) uint8 {
	best := 0
	bestDist := math.MaxInt64
	for i, e := range entries {
		if i == skip {
			continue
		}
		dr := int(c.R) - int(e.R)
		dg := int(c.G) - int(e.G)
		db := int(c.B) - int(e.B)
		da := int(c.A) - int(e.A)
		dist := dr*dr + dg*dg + db*db + da*da
		if dist < bestDist {
			bestDist = dist
			best = i
			if dist == 0 {
				break
			}
		}
	}
	return uint8(best)
}
