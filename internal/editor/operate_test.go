package editor

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/internal/brush"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
	"github.com/Faultbox/midgard-terrain/pkg/raster"
)

func TestBlend(t *testing.T) {
	tests := []struct {
		op   Operation
		src  float32
		v    float32
		a    float32
		mean float32
		want float32
	}{
		{OpAdd, 2, 3, 0.5, 0, 3.5},
		{OpSubtract, 2, 3, 0.5, 0, 0.5},
		{OpMultiply, 2, 3, 0.5, 0, 4},
		{OpMultiply, 2, 3, 0, 0, 2},
		{OpDivide, 8, 4, 1, 0, 2},
		{OpDivide, 8, 0, 1, 0, 8},
		{OpReplace, 2, 10, 0.25, 0, 4},
		{OpReplace, 2, 10, 1, 0, 10},
		{OpAverage, 2, 99, 0.5, 6, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, blend(tt.op, tt.src, tt.v, tt.a, tt.mean), 1e-6, "%v", tt.op)
	}
}

func TestZeroOpacityIsNoop(t *testing.T) {
	for tool := ToolHeight; tool < ToolRegion; tool++ {
		for op := OpAdd; op < OperationCount; op++ {
			f := newFixture(t, 32, 0)
			f.brush(t, func(o *brush.Options) {
				o.Opacity = 0
				o.Height = 4
				o.AutoRegions = true
			})
			f.createRegion(t, 0, 0)
			f.terrain.Regions.Get(math.Vec2i{}).Height.FillHeight(1)
			before := captureTerrain(f.terrain)

			f.use(tool, op)
			require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
			require.NoError(t, f.ed.Operate(at(100, 0), 0, false))
			assert.Equal(t, before, captureTerrain(f.terrain), "%v %v", tool, op)
		}
	}
}

func TestFootprintOutsideRegions(t *testing.T) {
	f := newFixture(t, 32, 0)
	f.brush(t, func(o *brush.Options) { o.Height = 3 })
	f.createRegion(t, 0, 0)
	before := captureTerrain(f.terrain)

	f.use(ToolHeight, OpAdd)
	require.NoError(t, f.ed.Operate(at(200, 200), 0, false))
	assert.Equal(t, before, captureTerrain(f.terrain))
}

func TestAddThenSubtractRestoresHeights(t *testing.T) {
	f := newFixture(t, 32, 0)
	f.brush(t, func(o *brush.Options) {
		o.Stamp = brush.CircleStamp(16, 0.3)
		o.Size = 9
		o.Opacity = 0.7
		o.Height = 3.3
		o.Gamma = 1.7
	})
	f.createRegion(t, 0, 0)
	r := f.terrain.Regions.Get(math.Vec2i{})
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			r.Height.SetHeight(x, y, float32(gomath.Sin(float64(x*y))*20))
		}
	}
	before := r.Height.Clone()

	f.use(ToolHeight, OpAdd)
	require.NoError(t, f.ed.Operate(at(1.5, -2), 0, false))
	assert.False(t, before.Equal(r.Height))

	f.use(ToolHeight, OpSubtract)
	require.NoError(t, f.ed.Operate(at(1.5, -2), 0, false))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			assert.InDelta(t, before.Height(x, y), r.Height.Height(x, y), 1e-5)
		}
	}
}

func TestAverageFlattensTowardMean(t *testing.T) {
	f := newFixture(t, 32, 0)
	f.brush(t, nil)
	f.createRegion(t, 0, 0)
	r := f.terrain.Regions.Get(math.Vec2i{})
	// Footprint pixels 14..17: two columns at 2, two at 6.
	for y := 14; y <= 17; y++ {
		r.Height.SetHeight(14, y, 2)
		r.Height.SetHeight(15, y, 2)
		r.Height.SetHeight(16, y, 6)
		r.Height.SetHeight(17, y, 6)
	}
	r.Height.SetHeight(0, 0, 100)

	f.use(ToolHeight, OpAverage)
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	for y := 14; y <= 17; y++ {
		for x := 14; x <= 17; x++ {
			assert.InDelta(t, 4, r.Height.Height(x, y), 1e-6)
		}
	}
	assert.Equal(t, float32(100), r.Height.Height(0, 0))
}

func TestSeamMatchesSingleRegion(t *testing.T) {
	paint := func(regionSize int, regions []math.Vec2i) *terrain.Terrain {
		f := newFixture(t, regionSize, 0)
		f.brush(t, func(o *brush.Options) {
			o.Stamp = brush.CircleStamp(12, 0.4)
			o.Size = 12
			o.Height = 2
			o.Jitter = 0.3
		})
		for _, off := range regions {
			_, _, err := f.terrain.Regions.Create(off)
			require.NoError(t, err)
		}
		f.use(ToolHeight, OpAdd)
		require.NoError(t, f.ed.Operate(at(8, 1), 0, false))
		require.NoError(t, f.ed.Operate(at(9, 3), 0, true))
		return f.terrain
	}

	split := paint(16, []math.Vec2i{{X: 0, Y: 0}, {X: 1, Y: 0}})
	whole := paint(64, []math.Vec2i{{X: 0, Y: 0}})

	for z := -8; z < 8; z++ {
		for x := -8; x < 24; x++ {
			w := math.Vec2{X: float32(x), Y: float32(z)}
			assert.Equal(t, whole.HeightAt(w), split.HeightAt(w), "world %v", w)
		}
	}
	assert.NotZero(t, split.HeightAt(math.Vec2{X: 7, Y: 1}))
	assert.NotZero(t, split.HeightAt(math.Vec2{X: 8, Y: 1}))
}

func TestAutoRegionMatchesExplicitRegion(t *testing.T) {
	edit := func(auto bool) *terrain.Region {
		f := newFixture(t, 32, 0)
		f.brush(t, func(o *brush.Options) {
			o.Stamp = brush.NoiseStamp(8, 3, 2)
			o.Size = 6
			o.Height = 5
			o.AutoRegions = auto
		})
		if !auto {
			f.createRegion(t, 40, 0)
		}
		f.use(ToolHeight, OpAdd)
		require.NoError(t, f.ed.Operate(at(40, 2), 0, false))
		f.use(ToolColor, OpReplace)
		require.NoError(t, f.ed.Operate(at(41, 0), 0, false))
		return f.terrain.Regions.Get(math.Vec2i{X: 1, Y: 0})
	}

	auto, explicit := edit(true), edit(false)
	require.NotNil(t, auto)
	require.NotNil(t, explicit)
	assert.Equal(t, explicit.ID, auto.ID)
	assert.True(t, explicit.Height.Equal(auto.Height))
	assert.True(t, explicit.Control.Equal(auto.Control))
	assert.True(t, explicit.Color.Equal(auto.Color))
}

func TestCapacityExceededKeepsCreatedRegions(t *testing.T) {
	f := newFixture(t, 16, 1)
	f.brush(t, func(o *brush.Options) {
		o.Height = 1
		o.AutoRegions = true
	})
	f.use(ToolHeight, OpAdd)

	err := f.ed.Operate(at(8, 0), 0, false)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.ErrorIs(t, err, terrain.ErrCapacityExceeded)
	assert.Equal(t, 1, f.terrain.Regions.Len())
	assert.Contains(t, f.host.kinds(), KindCapacityExceeded)

	r := f.terrain.Regions.Regions()[0]
	lo, hi := r.Height.HeightRange()
	assert.Zero(t, lo)
	assert.Zero(t, hi, "no pixel is written when creation fails")

	entry, err := f.ed.StoreUndo()
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NoError(t, f.ed.ApplyUndo(entry))
	assert.Zero(t, f.terrain.Regions.Len())
}

func TestColorToolPreservesAlpha(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, func(o *brush.Options) {
		o.Color = math.Color{R: 1, G: 0, B: 0, A: 0}
		o.Roughness = 0.2
	})
	f.createRegion(t, 0, 0)
	r := f.terrain.Regions.Get(math.Vec2i{})
	r.Color.SetColor(8, 8, math.Color{R: 0, G: 1, B: 1, A: 0.6})

	f.use(ToolColor, OpReplace)
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	c := r.Color.Color(8, 8)
	assert.InDelta(t, 1, c.R, 1e-6)
	assert.InDelta(t, 0, c.G, 1e-6)
	assert.InDelta(t, 0.6, c.A, 1.0/255)

	f.use(ToolRoughness, OpReplace)
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	c = r.Color.Color(8, 8)
	assert.InDelta(t, 1, c.R, 1e-6)
	assert.InDelta(t, 0.2, c.A, 1.0/255)
}

func TestTextureSubtractClearsIndex(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, func(o *brush.Options) {
		o.Index = 9
		o.Opacity = 0.5
	})
	f.createRegion(t, 0, 0)
	r := f.terrain.Regions.Get(math.Vec2i{})
	r.Control.Fill(4)

	f.use(ToolTexture, OpSubtract)
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	assert.Equal(t, uint32(4), r.Control.Control(8, 8), "weight 0.5 is below the write threshold")

	f.brush(t, nil)
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	assert.Equal(t, uint32(0), r.Control.Control(8, 8))
	assert.Equal(t, uint32(4), r.Control.Control(0, 0))
}

func TestTextureBelowThresholdCreatesNoRegion(t *testing.T) {
	f := newFixture(t, 64, 0)
	f.brush(t, func(o *brush.Options) {
		o.Opacity = 0.4
		o.Index = 3
		o.AutoRegions = true
	})
	f.use(ToolTexture, OpReplace)

	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	assert.Equal(t, 0, f.terrain.Regions.Len())
	entry, err := f.ed.StoreUndo()
	require.NoError(t, err)
	assert.Nil(t, entry)

	f.brush(t, func(o *brush.Options) {
		o.Opacity = 0.6
		o.Index = 3
		o.AutoRegions = true
	})
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	require.Equal(t, 1, f.terrain.Regions.Len())
	assert.Equal(t, uint32(3), raster.ControlIndex(f.terrain.Regions.Get(math.Vec2i{}).Control.Control(32, 32)))
}

func TestAlignToViewRotatesStamp(t *testing.T) {
	paint := func(angle float32) *terrain.Region {
		f := newFixture(t, 16, 0)
		f.brush(t, func(o *brush.Options) {
			o.Stamp = leftHalfStamp()
			o.Height = 1
			o.AlignToView = true
		})
		f.createRegion(t, 0, 0)
		f.use(ToolHeight, OpReplace)
		require.NoError(t, f.ed.Operate(at(0, 0), angle, false))
		return f.terrain.Regions.Get(math.Vec2i{})
	}

	plain := paint(0)
	assert.Equal(t, float32(1), plain.Height.Height(6, 8))
	assert.Zero(t, plain.Height.Height(9, 8))

	turned := paint(gomath.Pi)
	assert.Zero(t, turned.Height.Height(6, 8))
	assert.Equal(t, float32(1), turned.Height.Height(9, 8))
}

func TestRegionToolFootprint(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, func(o *brush.Options) { o.Size = 40 })

	f.use(ToolRegion, OpAdd)
	require.NoError(t, f.ed.Operate(at(2, 3), 0, false))
	// Centers at multiples of 16 within [-18, 22] x [-17, 23].
	assert.ElementsMatch(t, []math.Vec2i{
		{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
		{X: -1, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 0},
		{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
	}, f.terrain.Regions.Offsets())
	assert.Equal(t, math.Vec2i{}, f.terrain.Regions.Offsets()[0], "region under the cursor comes first")

	f.use(ToolRegion, OpMultiply)
	require.NoError(t, f.ed.Operate(at(2, 3), 0, false))
	assert.Equal(t, 9, f.terrain.Regions.Len())

	f.brush(t, func(o *brush.Options) { o.Size = 1 })
	f.use(ToolRegion, OpSubtract)
	require.NoError(t, f.ed.Operate(at(20, 0), 0, false))
	assert.Equal(t, 8, f.terrain.Regions.Len())
	assert.Nil(t, f.terrain.Regions.Get(math.Vec2i{X: 1, Y: 0}))

	entry, err := f.ed.StoreUndo()
	require.NoError(t, err)
	require.NoError(t, f.ed.ApplyUndo(entry))
	assert.Equal(t, 9, f.terrain.Regions.Len())
	assert.NotNil(t, f.terrain.Regions.Get(math.Vec2i{X: 1, Y: 0}))
}

func TestRegionsChangedNotification(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, func(o *brush.Options) {
		o.Height = 1
		o.AutoRegions = true
	})
	f.use(ToolHeight, OpAdd)
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	assert.Empty(t, f.host.changes, "notified at stroke end")

	_, err := f.ed.StoreUndo()
	require.NoError(t, err)
	require.Len(t, f.host.changes, 1)
	assert.Equal(t, []Change{
		{Offset: math.Vec2i{}, Layer: terrain.LayerHeight},
		{Offset: math.Vec2i{}, Layer: terrain.LayerControl},
		{Offset: math.Vec2i{}, Layer: terrain.LayerColor},
	}, f.host.changes[0])
}

func TestSetBrushDataReportsClamps(t *testing.T) {
	f := newFixture(t, 16, 0)
	opts := brush.DefaultOptions()
	opts.Stamp = brush.SolidStamp(2)
	opts.Opacity = 3

	adj, err := f.ed.SetBrushData(opts)
	require.NoError(t, err)
	require.Len(t, adj, 1)
	assert.Equal(t, []Kind{KindInvalidParameter}, f.host.kinds())
	assert.Equal(t, float32(1), f.ed.Brush().Opacity())

	opts.Stamp = nil
	_, err = f.ed.SetBrushData(opts)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.ErrorIs(t, err, brush.ErrNoStamp)
	assert.NotNil(t, f.ed.Brush(), "failed configure keeps the previous brush")
}

func leftHalfStamp() *brush.Stamp {
	img := image4x4(func(x, _ int) bool { return x < 2 })
	return brush.NewStamp(img)
}
