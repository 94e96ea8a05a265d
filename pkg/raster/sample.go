package raster

import (
	gomath "math"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// SampleBilinear samples the layer at normalized coordinates (u, v) in [0, 1].
// Coordinates outside the range are clamped to the edge. Height and color
// layers are interpolated; control words cannot be blended, so control
// layers return the nearest pixel's index in R.
//
// Height is returned in R for height layers.
func (l *Layer) SampleBilinear(u, v float32) math.Color {
	fx := math.Clamp01(u)*float32(l.size) - 0.5
	fy := math.Clamp01(v)*float32(l.size) - 0.5

	if l.format == FormatControl {
		x := math.ClampInt(int(gomath.Round(float64(fx))), 0, l.size-1)
		y := math.ClampInt(int(gomath.Round(float64(fy))), 0, l.size-1)
		return math.Color{R: float32(ControlIndex(l.Control(x, y)))}
	}

	x0 := int(gomath.Floor(float64(fx)))
	y0 := int(gomath.Floor(float64(fy)))
	fracX := math.Clamp01(fx - float32(x0))
	fracY := math.Clamp01(fy - float32(y0))

	x1 := math.ClampInt(x0+1, 0, l.size-1)
	y1 := math.ClampInt(y0+1, 0, l.size-1)
	x0 = math.ClampInt(x0, 0, l.size-1)
	y0 = math.ClampInt(y0, 0, l.size-1)

	c00 := l.colorAt(x0, y0)
	c10 := l.colorAt(x1, y0)
	c01 := l.colorAt(x0, y1)
	c11 := l.colorAt(x1, y1)

	// Lerp along X on both rows, then between the rows.
	top := c00.Lerp(c10, fracX)
	bottom := c01.Lerp(c11, fracX)
	return top.Lerp(bottom, fracY)
}

func (l *Layer) colorAt(x, y int) math.Color {
	if l.format == FormatHeight {
		return math.Color{R: l.Height(x, y)}
	}
	return l.Color(x, y)
}
