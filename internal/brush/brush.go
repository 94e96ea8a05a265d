// Package brush turns a stamp image and a set of paint parameters into the
// per-sample alpha the editor blends with.
package brush

import (
	"errors"
	"fmt"
	gomath "math"
	"math/rand/v2"

	"github.com/Faultbox/midgard-terrain/pkg/math"
	"github.com/Faultbox/midgard-terrain/pkg/raster"
)

// ErrNoStamp is returned when options carry no stamp.
var ErrNoStamp = errors.New("brush has no stamp")

// Options are the raw brush parameters supplied by the host.
type Options struct {
	Stamp       *Stamp     `yaml:"-"`
	Size        float32    `yaml:"size"`
	Opacity     float32    `yaml:"opacity"`
	Height      float32    `yaml:"height"`
	Color       math.Color `yaml:"color"`
	Roughness   float32    `yaml:"roughness"`
	Index       int        `yaml:"index"`
	Jitter      float32    `yaml:"jitter"`
	Gamma       float32    `yaml:"gamma"`
	AlignToView bool       `yaml:"align_to_view"`
	AutoRegions bool       `yaml:"auto_regions"`
}

// DefaultOptions returns the parameters of a fresh brush. The stamp is left nil.
func DefaultOptions() Options {
	return Options{
		Size:      10,
		Opacity:   1,
		Color:     math.Color{R: 1, G: 1, B: 1, A: 0.5},
		Roughness: 0.5,
		Gamma:     1,
	}
}

// Adjustment records one parameter clamped during Configure.
type Adjustment struct {
	Field string
	From  float64
	To    float64
}

func (a Adjustment) String() string {
	return fmt.Sprintf("%s %g clamped to %g", a.Field, a.From, a.To)
}

// Brush is a configured, validated brush.
type Brush struct {
	stamp       *Stamp
	size        float32
	opacity     float32
	height      float32
	color       math.Color
	roughness   float32
	index       uint32
	jitter      float32
	gamma       float32
	alignToView bool
	autoRegions bool
}

// Configure validates opts, clamping out-of-range values. Every clamp is
// reported as an Adjustment. A missing stamp is an error.
func Configure(opts Options) (*Brush, []Adjustment, error) {
	if opts.Stamp == nil || opts.Stamp.Size() == 0 {
		return nil, nil, ErrNoStamp
	}
	var adj []Adjustment
	clamp := func(field string, v, lo, hi float32) float32 {
		c := v
		if gomath.IsNaN(float64(v)) {
			c = lo
		}
		c = math.Clamp(c, lo, hi)
		if c != v {
			adj = append(adj, Adjustment{Field: field, From: float64(v), To: float64(c)})
		}
		return c
	}

	b := &Brush{
		stamp:       opts.Stamp,
		size:        clamp("size", opts.Size, 1, gomath.MaxFloat32),
		opacity:     clamp("opacity", opts.Opacity, 0, 1),
		height:      opts.Height,
		roughness:   clamp("roughness", opts.Roughness, 0, 1),
		jitter:      clamp("jitter", opts.Jitter, 0, 1),
		gamma:       opts.Gamma,
		alignToView: opts.AlignToView,
		autoRegions: opts.AutoRegions,
	}
	b.color = math.Color{
		R: clamp("color.r", opts.Color.R, 0, 1),
		G: clamp("color.g", opts.Color.G, 0, 1),
		B: clamp("color.b", opts.Color.B, 0, 1),
		A: clamp("color.a", opts.Color.A, 0, 1),
	}

	index := opts.Index
	if index < 0 || index > raster.MaxIndex {
		index = max(0, min(index, raster.MaxIndex))
		adj = append(adj, Adjustment{Field: "index", From: float64(opts.Index), To: float64(index)})
	}
	b.index = uint32(index)

	if !(b.gamma > 0) || gomath.IsInf(float64(b.gamma), 1) {
		adj = append(adj, Adjustment{Field: "gamma", From: float64(opts.Gamma), To: 1})
		b.gamma = 1
	}
	if gomath.IsNaN(float64(b.height)) || gomath.IsInf(float64(b.height), 0) {
		adj = append(adj, Adjustment{Field: "height", From: float64(opts.Height), To: 0})
		b.height = 0
	}
	return b, adj, nil
}

func (b *Brush) Stamp() *Stamp             { return b.stamp }
func (b *Brush) Size() float32             { return b.size }
func (b *Brush) Opacity() float32          { return b.opacity }
func (b *Brush) Height() float32           { return b.height }
func (b *Brush) Color() math.Color         { return b.color }
func (b *Brush) Roughness() float32        { return b.roughness }
func (b *Brush) Index() uint32             { return b.index }
func (b *Brush) Jitter() float32           { return b.jitter }
func (b *Brush) Gamma() float32            { return b.gamma }
func (b *Brush) AlignToView() bool         { return b.alignToView }
func (b *Brush) AutoRegions() bool         { return b.autoRegions }
func (b *Brush) EffectiveOpacity() float32 { return b.opacity }

// PixelSpan returns the number of samples per side of the footprint for
// pixels spacing world units apart.
func (b *Brush) PixelSpan(spacing float32) int {
	return max(1, int(gomath.Round(float64(b.size/spacing))))
}

// AlphaAt returns the brush weight at stamp coordinates uv in [0, 1]. When
// rng is non-nil and jitter is set, uv is displaced by up to jitter/2.
func (b *Brush) AlphaAt(uv math.Vec2, rng *rand.Rand) float32 {
	if b.jitter > 0 && rng != nil {
		angle := rng.Float64() * 2 * gomath.Pi
		r := rng.Float32() * b.jitter * 0.5
		sin, cos := gomath.Sincos(angle)
		uv = uv.Add(math.Vec2{X: float32(cos) * r, Y: float32(sin) * r}).Clamp(0, 1)
	}
	a := b.stamp.Sample(uv)
	if a <= 0 {
		return 0
	}
	if b.gamma != 1 {
		a = float32(gomath.Pow(float64(a), float64(b.gamma)))
	}
	return a * b.opacity
}

// RotateUV rotates uv by angle radians about the stamp center and clamps the
// result to [0, 1].
func RotateUV(uv math.Vec2, angle float32) math.Vec2 {
	center := math.Vec2{X: 0.5, Y: 0.5}
	return uv.Sub(center).Rotated(angle).Add(center).Clamp(0, 1)
}
