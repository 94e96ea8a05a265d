package brush

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

func TestNewStampReadsRedChannel(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{R: 51, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 128})

	s := NewStamp(img)
	require.NotNil(t, s)
	assert.Equal(t, 2, s.Size())
	assert.InDelta(t, 1, s.At(0, 0), 1e-6)
	assert.Zero(t, s.At(1, 0))
	assert.InDelta(t, 0.2, s.At(0, 1), 1e-3)
	assert.InDelta(t, 1, s.At(1, 1), 1e-6, "red is read without premultiplication")
}

func TestNewStampResamplesNonSquare(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	s := NewStamp(img)
	require.NotNil(t, s)
	assert.Equal(t, 8, s.Size())
	assert.InDelta(t, 1, s.At(4, 4), 1e-3)
}

func TestNewStampEmpty(t *testing.T) {
	assert.Nil(t, NewStamp(image.NewGray(image.Rect(0, 0, 0, 0))))
}

func TestCircleStamp(t *testing.T) {
	s := CircleStamp(16, 0.5)
	assert.Equal(t, float32(1), s.At(8, 8))
	assert.Zero(t, s.At(0, 0))
	edge := s.At(14, 8)
	assert.Greater(t, edge, float32(0))
	assert.Less(t, edge, float32(1))
}

func TestNoiseStampRange(t *testing.T) {
	s := NoiseStamp(16, 42, 3)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			a := s.At(x, y)
			assert.GreaterOrEqual(t, a, float32(0))
			assert.LessOrEqual(t, a, float32(1))
		}
	}
	assert.Equal(t, s.alpha, NoiseStamp(16, 42, 3).alpha)
}

func TestSampleNearest(t *testing.T) {
	s := &Stamp{size: 4, alpha: make([]float32, 16)}
	s.alpha[2*4+3] = 0.75
	assert.Equal(t, float32(0.75), s.Sample(math.Vec2{X: 0.8, Y: 0.6}))
	assert.Equal(t, float32(0), s.Sample(math.Vec2{X: 0.1, Y: 0.6}))
	assert.Equal(t, s.At(3, 3), s.Sample(math.Vec2{X: 1, Y: 1}))
}

func TestStampImage(t *testing.T) {
	img := SolidStamp(3).Image()
	assert.Equal(t, image.Rect(0, 0, 3, 3), img.Bounds())
	assert.Equal(t, uint16(0xffff), img.Gray16At(1, 1).Y)
}
