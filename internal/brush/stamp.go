package brush

import (
	"image"
	"image/color"
	gomath "math"

	"github.com/aquilax/go-perlin"
	xdraw "golang.org/x/image/draw"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// Stamp is a square alpha field sampled from the red channel of an image.
// A stamp is immutable once built.
type Stamp struct {
	size  int
	alpha []float32
}

// NewStamp builds a stamp from the red channel of img, read non-premultiplied.
// Non-square images are resampled to a square of their larger side.
func NewStamp(img image.Image) *Stamp {
	b := img.Bounds()
	n := max(b.Dx(), b.Dy())
	if n == 0 {
		return nil
	}
	if b.Dx() != b.Dy() {
		dst := image.NewNRGBA64(image.Rect(0, 0, n, n))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img, b = dst, dst.Bounds()
	}

	s := &Stamp{size: n, alpha: make([]float32, n*n)}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			s.alpha[y*n+x] = float32(c.R) / 0xffff
		}
	}
	return s
}

// SolidStamp returns a size x size stamp of all ones.
func SolidStamp(size int) *Stamp {
	s := &Stamp{size: size, alpha: make([]float32, size*size)}
	for i := range s.alpha {
		s.alpha[i] = 1
	}
	return s
}

// CircleStamp returns a round stamp. Alpha is 1 inside hardness*radius and
// falls off smoothly to 0 at the rim.
func CircleStamp(size int, hardness float32) *Stamp {
	hardness = math.Clamp01(hardness)
	s := &Stamp{size: size, alpha: make([]float32, size*size)}
	r := float32(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			p := math.Vec2{X: float32(x) + 0.5 - r, Y: float32(y) + 0.5 - r}
			d := p.Length() / r
			var a float32
			switch {
			case d >= 1:
				a = 0
			case d <= hardness:
				a = 1
			default:
				t := (d - hardness) / (1 - hardness)
				a = 1 - t*t*(3-2*t)
			}
			s.alpha[y*size+x] = a
		}
	}
	return s
}

// NoiseStamp returns a Perlin noise stamp in [0, 1]. scale is the number of
// noise periods across the stamp.
func NoiseStamp(size int, seed int64, scale float64) *Stamp {
	p := perlin.NewPerlin(2, 2, 3, seed)
	s := &Stamp{size: size, alpha: make([]float32, size*size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			u := float64(x) / float64(size) * scale
			v := float64(y) / float64(size) * scale
			n := (p.Noise2D(u, v) + 1) / 2
			s.alpha[y*size+x] = float32(gomath.Max(0, gomath.Min(1, n)))
		}
	}
	return s
}

// Size returns the stamp's side length in samples.
func (s *Stamp) Size() int {
	return s.size
}

// At returns the alpha sample at (x, y). Coordinates are clamped to the stamp.
func (s *Stamp) At(x, y int) float32 {
	x = math.ClampInt(x, 0, s.size-1)
	y = math.ClampInt(y, 0, s.size-1)
	return s.alpha[y*s.size+x]
}

// Sample returns the nearest sample to normalized coordinates uv.
func (s *Stamp) Sample(uv math.Vec2) float32 {
	return s.At(int(uv.X*float32(s.size)), int(uv.Y*float32(s.size)))
}

// Image renders the stamp as a grayscale image.
func (s *Stamp) Image() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, s.size, s.size))
	for y := 0; y < s.size; y++ {
		for x := 0; x < s.size; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Clamp01(s.alpha[y*s.size+x])*0xffff + 0.5)})
		}
	}
	return img
}
