package segment

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
)

const (
	DefaultTolerance = 0.12
	DefaultFeather   = 1.0
)

type FloodOptions struct {
	// Tolerance is the largest color distance, as a fraction of the RGB
	// cube diagonal, still counted as background.
	Tolerance float64
	// Feather is the Gaussian sigma, in pixels, used to soften the subject
	// edge. Negative disables feathering.
	Feather float32
}

// Flood removes a uniform-ish background by flood-filling from the image
// border through pixels close to the dominant border color.
type Flood struct {
	tolerance float64
	feather   float32
}

func NewFlood(opts FloodOptions) *Flood {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.Feather == 0 {
		opts.Feather = DefaultFeather
	}
	return &Flood{tolerance: opts.Tolerance, feather: opts.Feather}
}

func (f *Flood) RemoveBackground(ctx context.Context, img image.Image) (image.Image, error) {
	src := imaging.Clone(img)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, ErrNoSubject
	}

	bg := dominantBorderColor(src)
	limit := f.tolerance * math.Sqrt(3) * 255
	limitSq := limit * limit

	isBackground := func(c color.NRGBA) bool {
		if c.A == 0 {
			return true
		}
		dr := float64(c.R) - float64(bg.R)
		dg := float64(c.G) - float64(bg.G)
		db := float64(c.B) - float64(bg.B)
		return dr*dr+dg*dg+db*db <= limitSq
	}

	mask := image.NewGray(image.Rect(0, 0, w, h))
	for i := range mask.Pix {
		mask.Pix[i] = 0xff
	}

	visited := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))
	push := func(x, y int) {
		i := y*w + x
		if visited[i] {
			return
		}
		visited[i] = true
		if isBackground(src.NRGBAAt(x, y)) {
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	removed := 0
	for len(queue) > 0 {
		if removed%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		i := queue[0]
		queue = queue[1:]
		mask.Pix[i] = 0
		removed++

		x, y := i%w, i/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
	if removed == w*h {
		return nil, ErrNoSubject
	}

	alpha := mask
	if f.feather > 0 {
		g := gift.New(gift.GaussianBlur(f.feather))
		blurred := image.NewGray(g.Bounds(mask.Bounds()))
		g.Draw(blurred, mask)
		alpha = blurred
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := mask.Pix[y*mask.Stride+x]
			if a := alpha.Pix[y*alpha.Stride+x]; a < m {
				m = a
			}
			off := y*src.Stride + x*4 + 3
			if m < src.Pix[off] {
				src.Pix[off] = m
			}
		}
	}
	return src, nil
}

// dominantBorderColor returns the mean of the most common 5-bit color
// bucket among the opaque border pixels.
func dominantBorderColor(img *image.NRGBA) color.NRGBA {
	b := img.Bounds()
	type bucket struct {
		r, g, b, n int
	}
	buckets := make(map[uint16]*bucket)
	add := func(x, y int) {
		c := img.NRGBAAt(x, y)
		if c.A == 0 {
			return
		}
		key := uint16(c.R>>3)<<10 | uint16(c.G>>3)<<5 | uint16(c.B>>3)
		bk, ok := buckets[key]
		if !ok {
			bk = &bucket{}
			buckets[key] = bk
		}
		bk.r += int(c.R)
		bk.g += int(c.G)
		bk.b += int(c.B)
		bk.n++
	}
	for x := b.Min.X; x < b.Max.X; x++ {
		add(x, b.Min.Y)
		add(x, b.Max.Y-1)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		add(b.Min.X, y)
		add(b.Max.X-1, y)
	}

	var bestKey uint16
	var best *bucket
	for key, bk := range buckets {
		if best == nil || bk.n > best.n || (bk.n == best.n && key < bestKey) {
			best, bestKey = bk, key
		}
	}
	if best == nil {
		return color.NRGBA{}
	}
	return color.NRGBA{
		R: uint8(best.r / best.n),
		G: uint8(best.g / best.n),
		B: uint8(best.b / best.n),
		A: 0xff,
	}
}
