package raster

import (
	"image"
	"image/color"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// HeightImage converts a height layer to a 16-bit grayscale image, mapping
// lo to black and hi to white.
func (l *Layer) HeightImage(lo, hi float32) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, l.size, l.size))
	span := hi - lo
	for y := range l.size {
		for x := range l.size {
			var t float32
			if span > 0 {
				t = math.Clamp01((l.Height(x, y) - lo) / span)
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(t*65535 + 0.5)})
		}
	}
	return img
}

// ColorImage converts a color layer to an NRGBA image. Roughness lands in alpha.
func (l *Layer) ColorImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, l.size, l.size))
	copy(img.Pix, l.pix)
	return img
}

// ControlImage exposes the raw control words as RGBA bytes, low byte first.
func (l *Layer) ControlImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, l.size, l.size))
	copy(img.Pix, l.pix)
	return img
}

// ImportHeight writes img's luminance, scaled by scale, into a height layer.
// The image is sampled with nearest-neighbor lookup when its size differs.
func (l *Layer) ImportHeight(img image.Image, scale float32) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	for y := range l.size {
		sy := b.Min.Y + y*b.Dy()/l.size
		for x := range l.size {
			sx := b.Min.X + x*b.Dx()/l.size
			g := color.Gray16Model.Convert(img.At(sx, sy)).(color.Gray16)
			l.SetHeight(x, y, float32(g.Y)/65535*scale)
		}
	}
}
