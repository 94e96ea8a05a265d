package editor

import (
	"bytes"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/internal/brush"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingHost struct {
	changes  [][]Change
	statuses []Status
}

func (h *recordingHost) RegionsChanged(changes []Change) {
	h.changes = append(h.changes, changes)
}

func (h *recordingHost) Status(s Status) {
	h.statuses = append(h.statuses, s)
}

func (h *recordingHost) kinds() []Kind {
	out := make([]Kind, len(h.statuses))
	for i, s := range h.statuses {
		out[i] = s.Kind
	}
	return out
}

type fixture struct {
	ed      *Editor
	terrain *terrain.Terrain
	host    *recordingHost
	clock   *fakeClock
}

func newFixture(t *testing.T, regionSize, maxRegions int, opts ...Option) *fixture {
	t.Helper()
	tr, err := terrain.New(regionSize, 1, maxRegions)
	require.NoError(t, err)
	f := &fixture{terrain: tr, host: &recordingHost{}, clock: newFakeClock()}
	opts = append([]Option{WithHost(f.host), WithClock(f.clock.Now), WithSeed(7)}, opts...)
	f.ed = New(opts...)
	f.ed.SetTerrain(tr)
	return f
}

func (f *fixture) brush(t *testing.T, mutate func(*brush.Options)) {
	t.Helper()
	opts := brush.DefaultOptions()
	opts.Stamp = brush.SolidStamp(4)
	opts.Size = 4
	opts.Opacity = 1
	if mutate != nil {
		mutate(&opts)
	}
	_, err := f.ed.SetBrushData(opts)
	require.NoError(t, err)
}

func (f *fixture) use(tool Tool, op Operation) {
	f.ed.SetTool(tool)
	f.ed.SetOperation(op)
}

// createRegion adds a region through the Region tool and commits the stroke.
func (f *fixture) createRegion(t *testing.T, x, z float32) {
	t.Helper()
	tool, op := f.ed.Tool(), f.ed.Operation()
	f.use(ToolRegion, OpAdd)
	require.NoError(t, f.ed.Operate(math.Vec3{X: x, Z: z}, 0, false))
	_, err := f.ed.StoreUndo()
	require.NoError(t, err)
	f.use(tool, op)
}

// terrainState is a byte-level copy of every region and the region order.
type terrainState struct {
	order   []RegionRef
	regions map[math.Vec2i][3][]byte
}

func captureTerrain(tr *terrain.Terrain) terrainState {
	s := terrainState{regions: make(map[math.Vec2i][3][]byte)}
	for _, r := range tr.Regions.Regions() {
		s.order = append(s.order, RegionRef{Offset: r.Offset, ID: r.ID})
		s.regions[r.Offset] = [3][]byte{
			bytes.Clone(r.Height.Bytes()),
			bytes.Clone(r.Control.Bytes()),
			bytes.Clone(r.Color.Bytes()),
		}
	}
	return s
}

func at(x, z float32) math.Vec3 {
	return math.Vec3{X: x, Z: z}
}

// image4x4 returns a 4x4 grayscale image, white where on reports true.
func image4x4(on func(x, y int) bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if on(x, y) {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return img
}
