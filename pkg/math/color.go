package math

// Color is a float RGBA color with components nominally in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Lerp interpolates each component from c to other by t.
func (c Color) Lerp(other Color, t float32) Color {
	return Color{
		R: Mix(c.R, other.R, t),
		G: Mix(c.G, other.G, t),
		B: Mix(c.B, other.B, t),
		A: Mix(c.A, other.A, t),
	}
}

// Clamped returns the color with every component limited to [0, 1].
func (c Color) Clamped() Color {
	return Color{Clamp01(c.R), Clamp01(c.G), Clamp01(c.B), Clamp01(c.A)}
}

// RGB returns the first three components.
func (c Color) RGB() [3]float32 {
	return [3]float32{c.R, c.G, c.B}
}

// WithRGB returns c with its first three components replaced.
func (c Color) WithRGB(rgb [3]float32) Color {
	return Color{rgb[0], rgb[1], rgb[2], c.A}
}
