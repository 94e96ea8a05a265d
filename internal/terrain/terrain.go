// Package terrain holds the regionized heightfield: square region tiles, each
// owning a height, control and color layer, placed on a sparse grid.
//
// Regions are centered on their origin. Region (ox, oy) covers world X in
// [(ox-0.5)*stride, (ox+0.5)*stride) and world Z likewise for oy, where
// stride = RegionSize * VertexSpacing.
package terrain

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// Default geometry.
const (
	DefaultRegionSize    = 1024
	DefaultVertexSpacing = 1.0

	// MaxRegionIDs is the size of the region ID space. ID 0 means "unset".
	MaxRegionIDs = 1<<16 - 1
)

// Geometry errors.
var (
	ErrInvalidRegionSize    = errors.New("region size must be a power of two")
	ErrInvalidVertexSpacing = errors.New("vertex spacing must be positive")
)

// Terrain is the data the editor operates on: geometry parameters plus the region map.
type Terrain struct {
	RegionSize    int
	VertexSpacing float32
	Regions       *RegionMap
}

// New creates an empty terrain. maxRegions <= 0 selects MaxRegionIDs.
func New(regionSize int, vertexSpacing float32, maxRegions int) (*Terrain, error) {
	if regionSize <= 0 || regionSize&(regionSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRegionSize, regionSize)
	}
	if !(vertexSpacing > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVertexSpacing, vertexSpacing)
	}
	return &Terrain{
		RegionSize:    regionSize,
		VertexSpacing: vertexSpacing,
		Regions:       NewRegionMap(regionSize, maxRegions),
	}, nil
}

// Stride returns the world-space width of one region.
func (t *Terrain) Stride() float32 {
	return float32(t.RegionSize) * t.VertexSpacing
}

// OffsetAt returns the offset of the region tile containing the world XZ position.
func (t *Terrain) OffsetAt(world math.Vec2) math.Vec2i {
	return world.Div(t.Stride()).Add(math.Vec2{X: 0.5, Y: 0.5}).Floor()
}

// RegionCenter returns the world position of a region's origin.
func (t *Terrain) RegionCenter(offset math.Vec2i) math.Vec2 {
	return offset.Vec2().Scale(t.Stride())
}

// RegionMin returns the world position of a region's lowest corner.
func (t *Terrain) RegionMin(offset math.Vec2i) math.Vec2 {
	return offset.Vec2().Sub(math.Vec2{X: 0.5, Y: 0.5}).Scale(t.Stride())
}

// PixelAt returns the pixel of region offset that holds the world position.
// The result may lie outside the region when world does.
func (t *Terrain) PixelAt(offset math.Vec2i, world math.Vec2) math.Vec2i {
	local := world.Sub(t.RegionMin(offset)).Div(t.VertexSpacing)
	return math.Vec2i{
		X: int(gomath.Floor(float64(local.X) + 1e-4)),
		Y: int(gomath.Floor(float64(local.Y) + 1e-4)),
	}
}

// Lookup returns the region containing the world position, or nil.
func (t *Terrain) Lookup(world math.Vec2) *Region {
	return t.Regions.Get(t.OffsetAt(world))
}

// HeightAt samples the height under a world position, or 0 outside any region.
func (t *Terrain) HeightAt(world math.Vec2) float32 {
	offset := t.OffsetAt(world)
	r := t.Regions.Get(offset)
	if r == nil {
		return 0
	}
	p := t.PixelAt(offset, world)
	if !r.Height.InBounds(p.X, p.Y) {
		return 0
	}
	return r.Height.Height(p.X, p.Y)
}
