package terrain

import (
	"fmt"

	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
	"github.com/Faultbox/midgard-terrain/pkg/raster"
)

// LayerKind names one of the three layers of a region.
type LayerKind uint8

const (
	LayerHeight LayerKind = iota
	LayerControl
	LayerColor

	LayerCount
)

var layerNames = [LayerCount]string{"height", "control", "color"}

// String returns the layer name.
func (k LayerKind) String() string {
	if k < LayerCount {
		return layerNames[k]
	}
	return fmt.Sprintf("LayerKind(%d)", k)
}

// Region is one square tile of terrain.
type Region struct {
	Offset math.Vec2i
	ID     uint16

	Height  *raster.Layer
	Control *raster.Layer
	Color   *raster.Layer

	heightMin float32
	heightMax float32
}

// NewRegion creates a region with three zeroed layers of size x size pixels.
func NewRegion(offset math.Vec2i, id uint16, size int) *Region {
	return &Region{
		Offset:  offset,
		ID:      id,
		Height:  raster.New(size, raster.FormatHeight),
		Control: raster.New(size, raster.FormatControl),
		Color:   raster.New(size, raster.FormatColor),
	}
}

// Size returns the pixel size of the region's layers.
func (r *Region) Size() int {
	return r.Height.Size()
}

// Layer returns the layer of the given kind.
func (r *Region) Layer(kind LayerKind) *raster.Layer {
	switch kind {
	case LayerHeight:
		return r.Height
	case LayerControl:
		return r.Control
	case LayerColor:
		return r.Color
	}
	return nil
}

// Validate panics when the three layers disagree in size. Reaching that state
// is a programming error.
func (r *Region) Validate() {
	s := r.Height.Size()
	if r.Control.Size() != s || r.Color.Size() != s {
		panic(fmt.Sprintf("terrain: region %v has layers of %d/%d/%d pixels",
			r.Offset, s, r.Control.Size(), r.Color.Size()))
	}
}

// HeightRange returns the cached conservative bound over the region's heights.
func (r *Region) HeightRange() (min, max float32) {
	return r.heightMin, r.heightMax
}

// SetHeightRange overwrites the cached height bound.
func (r *Region) SetHeightRange(min, max float32) {
	r.heightMin, r.heightMax = min, max
}

// ExpandHeightRange grows the cached bound to include h.
func (r *Region) ExpandHeightRange(h float32) {
	if h < r.heightMin {
		r.heightMin = h
	}
	if h > r.heightMax {
		r.heightMax = h
	}
}

// RecalculateHeightRange rescans the height layer for an exact bound.
func (r *Region) RecalculateHeightRange() {
	r.heightMin, r.heightMax = r.Height.HeightRange()
}

// Clone returns a deep copy of the region.
func (r *Region) Clone() *Region {
	return &Region{
		Offset:    r.Offset,
		ID:        r.ID,
		Height:    r.Height.Clone(),
		Control:   r.Control.Clone(),
		Color:     r.Color.Clone(),
		heightMin: r.heightMin,
		heightMax: r.heightMax,
	}
}

// Tile converts the region to its persisted form. The tile shares the
// region's pixel storage.
func (r *Region) Tile() *formats.RegionTile {
	return &formats.RegionTile{
		OffsetX:   int32(r.Offset.X),
		OffsetY:   int32(r.Offset.Y),
		ID:        r.ID,
		Size:      uint32(r.Size()),
		HeightMin: r.heightMin,
		HeightMax: r.heightMax,
		Height:    r.Height.Bytes(),
		Control:   r.Control.Bytes(),
		Color:     r.Color.Bytes(),
	}
}

// RegionFromTile rebuilds a region from its persisted form.
func RegionFromTile(tile *formats.RegionTile) (*Region, error) {
	r := NewRegion(math.Vec2i{X: int(tile.OffsetX), Y: int(tile.OffsetY)}, tile.ID, int(tile.Size))
	if err := r.LoadTile(tile); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadTile copies a tile's pixels and height range into the region.
// Offset and ID are left unchanged.
func (r *Region) LoadTile(tile *formats.RegionTile) error {
	if int(tile.Size) != r.Size() {
		return fmt.Errorf("region %v: tile is %dpx, region is %dpx", r.Offset, tile.Size, r.Size())
	}
	if err := r.Height.SetBytes(tile.Height); err != nil {
		return fmt.Errorf("height layer: %w", err)
	}
	if err := r.Control.SetBytes(tile.Control); err != nil {
		return fmt.Errorf("control layer: %w", err)
	}
	if err := r.Color.SetBytes(tile.Color); err != nil {
		return fmt.Errorf("color layer: %w", err)
	}
	r.heightMin, r.heightMax = tile.HeightMin, tile.HeightMax
	return nil
}
