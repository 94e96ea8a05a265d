package editor

import (
	gomath "math"

	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// operateRegion creates (Add) or deletes (Subtract) the region under pos and
// every region whose center lies in the brush footprint. Other operations do
// nothing.
func (e *Editor) operateRegion(pos math.Vec3) error {
	if e.op != OpAdd && e.op != OpSubtract {
		return nil
	}
	m := e.terrain.Regions
	n := 0
	for _, off := range e.regionFootprint(pos.XZ()) {
		switch e.op {
		case OpAdd:
			if m.Get(off) != nil {
				continue
			}
			if err := e.stroke.note(m, off); err != nil {
				return regionError(err)
			}
			if _, _, err := m.Create(off); err != nil {
				if n > 0 {
					e.metrics.RegionsCreated(n)
				}
				return regionError(err)
			}
		case OpSubtract:
			if m.Get(off) == nil {
				continue
			}
			if err := e.stroke.note(m, off); err != nil {
				return regionError(err)
			}
			m.Delete(off)
		}
		n++
		e.stroke.regionChanged(off)
	}
	if n > 0 {
		if e.op == OpAdd {
			e.metrics.RegionsCreated(n)
		} else {
			e.metrics.RegionsDeleted(n)
		}
	}
	return nil
}

// regionFootprint lists the region under center followed by every other
// region whose center lies in the brush square.
func (e *Editor) regionFootprint(center math.Vec2) []math.Vec2i {
	t := e.terrain
	stride := float64(t.Stride())
	half := float64(e.brush.Size()) / 2

	under := t.OffsetAt(center)
	out := []math.Vec2i{under}
	x0 := int(gomath.Ceil((float64(center.X)-half)/stride)) - 1
	x1 := int(gomath.Floor((float64(center.X)+half)/stride)) + 1
	y0 := int(gomath.Ceil((float64(center.Y)-half)/stride)) - 1
	y1 := int(gomath.Floor((float64(center.Y)+half)/stride)) + 1
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			off := math.Vec2i{X: x, Y: y}
			if off == under {
				continue
			}
			d := t.RegionCenter(off).Sub(center)
			if gomath.Abs(float64(d.X)) <= half && gomath.Abs(float64(d.Y)) <= half {
				out = append(out, off)
			}
		}
	}
	return out
}
