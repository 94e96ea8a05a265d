// Package raster provides the fixed-size pixel layers that make up a terrain region.
//
// Every layer stores one 32-bit word per pixel, row-major, little endian.
// How the word is interpreted depends on the layer Format.
package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// BytesPerPixel is the storage size of one pixel in every format.
const BytesPerPixel = 4

// Format identifies how a layer's pixel words are interpreted.
type Format uint8

const (
	// FormatHeight stores one IEEE-754 float32 height per pixel.
	FormatHeight Format = iota
	// FormatControl stores a packed 32-bit control word per pixel.
	FormatControl
	// FormatColor stores 8-bit R, G, B and roughness (A) per pixel.
	FormatColor

	FormatCount
)

var formatNames = [FormatCount]string{"Float32", "Packed32", "RGBA8"}

// String returns the format name.
func (f Format) String() string {
	if f < FormatCount {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", f)
}

// Layer is a square pixel grid whose size never changes after creation.
// Coordinates are not bounds-checked beyond what slice indexing does;
// callers test bounds before reading or writing.
type Layer struct {
	size   int
	format Format
	pix    []byte
}

// New creates a zero-filled layer of size x size pixels.
func New(size int, format Format) *Layer {
	if size <= 0 {
		panic(fmt.Sprintf("raster: invalid layer size %d", size))
	}
	return &Layer{
		size:   size,
		format: format,
		pix:    make([]byte, size*size*BytesPerPixel),
	}
}

// Size returns the width (and height) in pixels.
func (l *Layer) Size() int {
	return l.size
}

// Format returns the pixel format.
func (l *Layer) Format() Format {
	return l.format
}

// InBounds reports whether (x, y) addresses a pixel of the layer.
func (l *Layer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.size && y < l.size
}

func (l *Layer) offset(x, y int) int {
	return (y*l.size + x) * BytesPerPixel
}

// Word returns the raw 32-bit pixel word at (x, y).
func (l *Layer) Word(x, y int) uint32 {
	return binary.LittleEndian.Uint32(l.pix[l.offset(x, y):])
}

// SetWord writes the raw 32-bit pixel word at (x, y).
func (l *Layer) SetWord(x, y int, w uint32) {
	binary.LittleEndian.PutUint32(l.pix[l.offset(x, y):], w)
}

// Height returns the height at (x, y) of a FormatHeight layer.
func (l *Layer) Height(x, y int) float32 {
	return gomath.Float32frombits(l.Word(x, y))
}

// SetHeight writes a height at (x, y) of a FormatHeight layer.
func (l *Layer) SetHeight(x, y int, h float32) {
	l.SetWord(x, y, gomath.Float32bits(h))
}

// Control returns the control word at (x, y) of a FormatControl layer.
func (l *Layer) Control(x, y int) uint32 {
	return l.Word(x, y)
}

// SetControl writes the control word at (x, y) of a FormatControl layer.
func (l *Layer) SetControl(x, y int, w uint32) {
	l.SetWord(x, y, w)
}

// Color returns the pixel at (x, y) of a FormatColor layer as a float color.
// A holds roughness.
func (l *Layer) Color(x, y int) math.Color {
	i := l.offset(x, y)
	return math.Color{
		R: float32(l.pix[i+0]) / 255,
		G: float32(l.pix[i+1]) / 255,
		B: float32(l.pix[i+2]) / 255,
		A: float32(l.pix[i+3]) / 255,
	}
}

// SetColor quantizes c to 8 bits per channel and writes it at (x, y).
func (l *Layer) SetColor(x, y int, c math.Color) {
	i := l.offset(x, y)
	l.pix[i+0] = quantize(c.R)
	l.pix[i+1] = quantize(c.G)
	l.pix[i+2] = quantize(c.B)
	l.pix[i+3] = quantize(c.A)
}

func quantize(v float32) uint8 {
	return uint8(math.Clamp01(v)*255 + 0.5)
}

// Fill sets every pixel to the raw word w.
func (l *Layer) Fill(w uint32) {
	if len(l.pix) == 0 {
		return
	}
	binary.LittleEndian.PutUint32(l.pix, w)
	for filled := BytesPerPixel; filled < len(l.pix); filled *= 2 {
		copy(l.pix[filled:], l.pix[:filled])
	}
}

// FillHeight sets every pixel of a height layer to h.
func (l *Layer) FillHeight(h float32) {
	l.Fill(gomath.Float32bits(h))
}

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	c := &Layer{size: l.size, format: l.format, pix: make([]byte, len(l.pix))}
	copy(c.pix, l.pix)
	return c
}

// CopyFrom overwrites the layer's pixels with other's.
// Layers of different size or format are an internal consistency failure.
func (l *Layer) CopyFrom(other *Layer) {
	if other.size != l.size || other.format != l.format {
		panic(fmt.Sprintf("raster: copy from %dpx %s layer into %dpx %s layer",
			other.size, other.format, l.size, l.format))
	}
	copy(l.pix, other.pix)
}

// Bytes returns the layer's backing pixel storage. The slice is shared.
func (l *Layer) Bytes() []byte {
	return l.pix
}

// SetBytes replaces the pixel contents with data, which must be exactly
// Size()*Size()*BytesPerPixel bytes long.
func (l *Layer) SetBytes(data []byte) error {
	if len(data) != len(l.pix) {
		return fmt.Errorf("raster: got %d bytes, want %d", len(data), len(l.pix))
	}
	copy(l.pix, data)
	return nil
}

// Equal reports whether both layers have the same size, format and pixels.
func (l *Layer) Equal(other *Layer) bool {
	if other == nil {
		return false
	}
	return l.size == other.size && l.format == other.format && bytes.Equal(l.pix, other.pix)
}

// HeightRange scans a height layer and returns its minimum and maximum.
func (l *Layer) HeightRange() (min, max float32) {
	min = l.Height(0, 0)
	max = min
	for y := range l.size {
		for x := range l.size {
			h := l.Height(x, y)
			if h < min {
				min = h
			}
			if h > max {
				max = h
			}
		}
	}
	return min, max
}
