package editor

import (
	gomath "math"

	"github.com/Faultbox/midgard-terrain/internal/brush"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
	"github.com/Faultbox/midgard-terrain/pkg/raster"
)

// textureThreshold is the brush weight above which the texture tool writes.
const textureThreshold = 0.5

// sample is one stamp sample with a non-zero weight.
type sample struct {
	world math.Vec2
	alpha float32
}

// pixelSample is a sample resolved to a region pixel.
type pixelSample struct {
	x, y  int
	alpha float32
}

// stampSamples lays the brush over the footprint centered at center, one
// sample per vertex, and returns the samples that will write. For the texture
// tool that means a weight above textureThreshold.
func (e *Editor) stampSamples(center math.Vec2, cameraAngle float32) []sample {
	b := e.brush
	spacing := e.terrain.VertexSpacing
	n := b.PixelSpan(spacing)
	half := n / 2

	var out []sample
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			uv := math.Vec2{X: float32(x) / float32(n), Y: float32(y) / float32(n)}
			if b.AlignToView() {
				uv = brush.RotateUV(uv, cameraAngle)
			}
			a := b.AlphaAt(uv, e.stroke.rng)
			if !(a > 0) || (e.tool == ToolTexture && a <= textureThreshold) {
				continue
			}
			local := math.Vec2{X: float32(x - half), Y: float32(y - half)}
			out = append(out, sample{world: center.Add(local.Scale(spacing)), alpha: a})
		}
	}
	return out
}

func (e *Editor) operateMap(pos math.Vec3, cameraAngle float32) error {
	t := e.terrain
	samples := e.stampSamples(pos.XZ(), cameraAngle)
	if len(samples) == 0 {
		return nil
	}

	var order []math.Vec2i
	groups := make(map[math.Vec2i][]sample)
	for _, s := range samples {
		off := t.OffsetAt(s.world)
		if _, ok := groups[off]; !ok {
			order = append(order, off)
		}
		groups[off] = append(groups[off], s)
	}

	if e.brush.AutoRegions() {
		if err := e.createRegions(order); err != nil {
			return err
		}
	}

	layer, _ := e.tool.Layer()
	for _, off := range order {
		r := t.Regions.Get(off)
		if r == nil {
			continue
		}
		pixels := make([]pixelSample, 0, len(groups[off]))
		for _, s := range groups[off] {
			p := t.PixelAt(off, s.world)
			if r.Height.InBounds(p.X, p.Y) {
				pixels = append(pixels, pixelSample{x: p.X, y: p.Y, alpha: s.alpha})
			}
		}
		if len(pixels) == 0 {
			continue
		}
		if err := e.stroke.note(t.Regions, off); err != nil {
			return regionError(err)
		}
		if e.stampRegion(r, pixels) {
			e.stroke.changed(off, layer)
		}
	}
	return nil
}

// createRegions creates missing regions at offsets. Regions created before a
// capacity failure stay and are journaled.
func (e *Editor) createRegions(offsets []math.Vec2i) error {
	m := e.terrain.Regions
	created := 0
	defer func() {
		if created > 0 {
			e.metrics.RegionsCreated(created)
		}
	}()
	for _, off := range offsets {
		if m.Get(off) != nil {
			continue
		}
		if err := e.stroke.note(m, off); err != nil {
			return regionError(err)
		}
		if _, _, err := m.Create(off); err != nil {
			return regionError(err)
		}
		created++
		e.stroke.regionChanged(off)
	}
	return nil
}

// stampRegion blends the brush into one region and reports whether any
// pixel was written.
func (e *Editor) stampRegion(r *terrain.Region, pixels []pixelSample) bool {
	switch e.tool {
	case ToolHeight:
		return e.stampHeight(r, pixels)
	case ToolTexture:
		return e.stampTexture(r.Control, pixels)
	case ToolColor:
		return e.stampColor(r.Color, pixels)
	case ToolRoughness:
		return e.stampRoughness(r.Color, pixels)
	}
	return false
}

func (e *Editor) stampHeight(r *terrain.Region, pixels []pixelSample) bool {
	l := r.Height
	var mean weightedMean
	if e.op == OpAverage {
		for _, p := range pixels {
			mean.add(l.Height(p.x, p.y), p.alpha)
		}
	}
	lo, hi := float32(gomath.Inf(1)), float32(gomath.Inf(-1))
	v, m := e.brush.Height(), mean.value()
	for _, p := range pixels {
		h := blend(e.op, l.Height(p.x, p.y), v, p.alpha, m)
		l.SetHeight(p.x, p.y, h)
		lo, hi = min(lo, h), max(hi, h)
	}
	r.ExpandHeightRange(lo)
	r.ExpandHeightRange(hi)
	e.terrain.Regions.ExpandHeightRange(lo, hi)
	return true
}

func (e *Editor) stampTexture(l *raster.Layer, pixels []pixelSample) bool {
	index := e.brush.Index()
	if e.op == OpSubtract {
		index = 0
	}
	wrote := false
	for _, p := range pixels {
		if p.alpha <= textureThreshold {
			continue
		}
		l.SetControl(p.x, p.y, raster.ControlWithIndex(l.Control(p.x, p.y), index))
		wrote = true
	}
	return wrote
}

func (e *Editor) stampColor(l *raster.Layer, pixels []pixelSample) bool {
	var means [3]weightedMean
	if e.op == OpAverage {
		for _, p := range pixels {
			rgb := l.Color(p.x, p.y).RGB()
			for i := range means {
				means[i].add(rgb[i], p.alpha)
			}
		}
	}
	v := e.brush.Color().RGB()
	for _, p := range pixels {
		c := l.Color(p.x, p.y)
		rgb := c.RGB()
		for i := range rgb {
			rgb[i] = math.Clamp01(blend(e.op, rgb[i], v[i], p.alpha, means[i].value()))
		}
		l.SetColor(p.x, p.y, c.WithRGB(rgb))
	}
	return true
}

func (e *Editor) stampRoughness(l *raster.Layer, pixels []pixelSample) bool {
	var mean weightedMean
	if e.op == OpAverage {
		for _, p := range pixels {
			mean.add(l.Color(p.x, p.y).A, p.alpha)
		}
	}
	v, m := e.brush.Roughness(), mean.value()
	for _, p := range pixels {
		c := l.Color(p.x, p.y)
		c.A = math.Clamp01(blend(e.op, c.A, v, p.alpha, m))
		l.SetColor(p.x, p.y, c)
	}
	return true
}
