package brush

import (
	gomath "math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

func TestConfigureRequiresStamp(t *testing.T) {
	_, _, err := Configure(DefaultOptions())
	assert.ErrorIs(t, err, ErrNoStamp)
}

func TestConfigureClamps(t *testing.T) {
	opts := DefaultOptions()
	opts.Stamp = SolidStamp(4)
	opts.Size = 0.25
	opts.Opacity = 1.5
	opts.Roughness = -1
	opts.Jitter = 2
	opts.Index = 70000
	opts.Gamma = 0
	opts.Color = math.Color{R: 2, G: 0.5, B: 0.5, A: 1}

	b, adj, err := Configure(opts)
	require.NoError(t, err)

	assert.Equal(t, float32(1), b.Size())
	assert.Equal(t, float32(1), b.Opacity())
	assert.Equal(t, float32(0), b.Roughness())
	assert.Equal(t, float32(1), b.Jitter())
	assert.Equal(t, uint32(65535), b.Index())
	assert.Equal(t, float32(1), b.Gamma())
	assert.Equal(t, float32(1), b.Color().R)

	fields := make([]string, 0, len(adj))
	for _, a := range adj {
		fields = append(fields, a.Field)
	}
	assert.ElementsMatch(t, []string{"size", "opacity", "roughness", "jitter", "index", "gamma", "color.r"}, fields)
}

func TestConfigureKeepsValidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Stamp = SolidStamp(2)
	opts.Height = -3
	opts.Gamma = 2.2
	opts.AlignToView = true
	opts.AutoRegions = true
	opts.Opacity = 0.25

	b, adj, err := Configure(opts)
	require.NoError(t, err)
	assert.Empty(t, adj)
	assert.Equal(t, float32(-3), b.Height())
	assert.Equal(t, float32(2.2), b.Gamma())
	assert.True(t, b.AlignToView())
	assert.True(t, b.AutoRegions())
	assert.Equal(t, float32(0.25), b.EffectiveOpacity())
}

func TestAlphaAtAppliesGammaAndOpacity(t *testing.T) {
	s := &Stamp{size: 2, alpha: []float32{0.5, 0, 1, 0.25}}
	opts := DefaultOptions()
	opts.Stamp = s
	opts.Opacity = 0.5
	opts.Gamma = 2
	b, _, err := Configure(opts)
	require.NoError(t, err)

	assert.InDelta(t, 0.125, b.AlphaAt(math.Vec2{X: 0.1, Y: 0.1}, nil), 1e-6)
	assert.Zero(t, b.AlphaAt(math.Vec2{X: 0.9, Y: 0.1}, nil))
	assert.InDelta(t, 0.5, b.AlphaAt(math.Vec2{X: 0.1, Y: 0.9}, nil), 1e-6)
	assert.InDelta(t, 0.03125, b.AlphaAt(math.Vec2{X: 1, Y: 1}, nil), 1e-6)
}

func TestAlphaAtJitterIsDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Stamp = NoiseStamp(32, 7, 4)
	opts.Jitter = 1
	b, _, err := Configure(opts)
	require.NoError(t, err)

	sample := func() []float32 {
		rng := rand.New(rand.NewPCG(1, 2))
		out := make([]float32, 16)
		for i := range out {
			out[i] = b.AlphaAt(math.Vec2{X: 0.5, Y: 0.5}, rng)
		}
		return out
	}
	assert.Equal(t, sample(), sample())
}

func TestRotateUV(t *testing.T) {
	uv := RotateUV(math.Vec2{X: 1, Y: 0.5}, gomath.Pi/2)
	assert.InDelta(t, 0.5, uv.X, 1e-6)
	assert.InDelta(t, 1, uv.Y, 1e-6)

	uv = RotateUV(math.Vec2{X: 1, Y: 1}, gomath.Pi/4)
	assert.LessOrEqual(t, uv.Y, float32(1))
	assert.GreaterOrEqual(t, uv.X, float32(0))

	uv = RotateUV(math.Vec2{X: 0.5, Y: 0.5}, 1.3)
	assert.InDelta(t, 0.5, uv.X, 1e-6)
	assert.InDelta(t, 0.5, uv.Y, 1e-6)
}

func TestPixelSpan(t *testing.T) {
	opts := DefaultOptions()
	opts.Stamp = SolidStamp(1)
	opts.Size = 4
	b, _, err := Configure(opts)
	require.NoError(t, err)

	assert.Equal(t, 4, b.PixelSpan(1))
	assert.Equal(t, 8, b.PixelSpan(0.5))
	assert.Equal(t, 1, b.PixelSpan(100))
}
