package terrain

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// Region map errors.
var (
	ErrCapacityExceeded = errors.New("region capacity exceeded")
	ErrRegionExists     = errors.New("region already exists")
	ErrRegionIDInUse    = errors.New("region id already in use")
	ErrRegionNotFound   = errors.New("region not found")
)

// RegionMap stores regions by offset and assigns each a small integer ID
// that control words use to reference it.
type RegionMap struct {
	regionSize int
	maxIDs     int

	byOffset map[math.Vec2i]*Region
	byID     map[uint16]*Region
	order    []math.Vec2i

	heightMin float32
	heightMax float32
}

// NewRegionMap creates an empty map for regions of regionSize pixels.
// maxIDs <= 0 selects MaxRegionIDs.
func NewRegionMap(regionSize, maxIDs int) *RegionMap {
	if maxIDs <= 0 || maxIDs > MaxRegionIDs {
		maxIDs = MaxRegionIDs
	}
	return &RegionMap{
		regionSize: regionSize,
		maxIDs:     maxIDs,
		byOffset:   make(map[math.Vec2i]*Region),
		byID:       make(map[uint16]*Region),
	}
}

// RegionSize returns the pixel size of every region in the map.
func (m *RegionMap) RegionSize() int {
	return m.regionSize
}

// Capacity returns the maximum number of live regions.
func (m *RegionMap) Capacity() int {
	return m.maxIDs
}

// Len returns the number of live regions.
func (m *RegionMap) Len() int {
	return len(m.order)
}

// Get returns the region at offset, or nil.
func (m *RegionMap) Get(offset math.Vec2i) *Region {
	return m.byOffset[offset]
}

// Resolve returns the region referenced by a control word's region ID.
// ID 0 and IDs of deleted regions resolve to nil.
func (m *RegionMap) Resolve(id uint16) *Region {
	if id == 0 {
		return nil
	}
	return m.byID[id]
}

// Offsets returns live offsets in creation order.
func (m *RegionMap) Offsets() []math.Vec2i {
	out := make([]math.Vec2i, len(m.order))
	copy(out, m.order)
	return out
}

// Regions returns live regions in creation order.
func (m *RegionMap) Regions() []*Region {
	out := make([]*Region, len(m.order))
	for i, off := range m.order {
		out[i] = m.byOffset[off]
	}
	return out
}

// Create adds a zeroed region at offset with the lowest free ID. An existing
// region at offset is returned unchanged with created == false.
func (m *RegionMap) Create(offset math.Vec2i) (r *Region, created bool, err error) {
	if r := m.byOffset[offset]; r != nil {
		return r, false, nil
	}
	id, ok := m.freeID()
	if !ok {
		return nil, false, fmt.Errorf("%w: %d regions", ErrCapacityExceeded, m.maxIDs)
	}
	r = NewRegion(offset, id, m.regionSize)
	m.add(r)
	return r, true, nil
}

// Delete removes the region at offset and frees its ID. Control words that
// still reference the ID resolve to nil afterwards.
func (m *RegionMap) Delete(offset math.Vec2i) (*Region, bool) {
	r := m.byOffset[offset]
	if r == nil {
		return nil, false
	}
	delete(m.byOffset, offset)
	delete(m.byID, r.ID)
	for i, off := range m.order {
		if off == offset {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return r, true
}

// Insert adds a fully formed region keeping its ID. Used when restoring
// journal snapshots.
func (m *RegionMap) Insert(r *Region) error {
	r.Validate()
	if r.Size() != m.regionSize {
		return fmt.Errorf("region %v is %dpx, map holds %dpx regions", r.Offset, r.Size(), m.regionSize)
	}
	if m.byOffset[r.Offset] != nil {
		return fmt.Errorf("%w: %v", ErrRegionExists, r.Offset)
	}
	if r.ID == 0 || int(r.ID) > m.maxIDs {
		return fmt.Errorf("region %v: id %d outside 1..%d", r.Offset, r.ID, m.maxIDs)
	}
	if m.byID[r.ID] != nil {
		return fmt.Errorf("%w: %d", ErrRegionIDInUse, r.ID)
	}
	m.add(r)
	return nil
}

// SetOrder reorders live regions. order must be a permutation of Offsets().
func (m *RegionMap) SetOrder(order []math.Vec2i) error {
	if len(order) != len(m.order) {
		return fmt.Errorf("order has %d offsets, map has %d regions", len(order), len(m.order))
	}
	seen := make(map[math.Vec2i]struct{}, len(order))
	for _, off := range order {
		if m.byOffset[off] == nil {
			return fmt.Errorf("%w: %v", ErrRegionNotFound, off)
		}
		if _, dup := seen[off]; dup {
			return fmt.Errorf("duplicate offset %v in order", off)
		}
		seen[off] = struct{}{}
	}
	m.order = append(m.order[:0], order...)
	return nil
}

// HeightRange returns the terrain-wide conservative height bound.
func (m *RegionMap) HeightRange() (min, max float32) {
	return m.heightMin, m.heightMax
}

// SetHeightRange overwrites the terrain-wide height bound.
func (m *RegionMap) SetHeightRange(min, max float32) {
	m.heightMin, m.heightMax = min, max
}

// ExpandHeightRange grows the terrain-wide bound to include [min, max].
func (m *RegionMap) ExpandHeightRange(min, max float32) {
	if min < m.heightMin {
		m.heightMin = min
	}
	if max > m.heightMax {
		m.heightMax = max
	}
}

// RecalculateHeightRange rebuilds every region's bound and the terrain-wide
// bound from pixel data.
func (m *RegionMap) RecalculateHeightRange() {
	m.heightMin, m.heightMax = 0, 0
	for i, off := range m.order {
		r := m.byOffset[off]
		r.RecalculateHeightRange()
		lo, hi := r.HeightRange()
		if i == 0 {
			m.heightMin, m.heightMax = lo, hi
			continue
		}
		m.ExpandHeightRange(lo, hi)
	}
}

func (m *RegionMap) add(r *Region) {
	m.byOffset[r.Offset] = r
	m.byID[r.ID] = r
	m.order = append(m.order, r.Offset)
}

func (m *RegionMap) freeID() (uint16, bool) {
	for id := 1; id <= m.maxIDs; id++ {
		if m.byID[uint16(id)] == nil {
			return uint16(id), true
		}
	}
	return 0, false
}
