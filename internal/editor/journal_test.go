package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-terrain/internal/brush"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

func TestUndoRedoRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.CompressSnapshots = compress
		f := newFixture(t, 16, 0, WithConfig(cfg))
		f.brush(t, func(o *brush.Options) {
			o.Stamp = brush.CircleStamp(8, 0.5)
			o.Size = 6
			o.Height = 2.5
			o.Jitter = 0.2
			o.AutoRegions = true
		})
		f.createRegion(t, 0, 0)
		f.terrain.Regions.Get(math.Vec2i{}).Height.FillHeight(1)
		f.terrain.Regions.SetHeightRange(0, 1)
		start := captureTerrain(f.terrain)

		f.use(ToolHeight, OpAdd)
		for i := 0; i < 6; i++ {
			require.NoError(t, f.ed.Operate(at(float32(i)*3, float32(i)), 0, i > 0))
		}
		entry, err := f.ed.StoreUndo()
		require.NoError(t, err)
		require.NotNil(t, entry)
		end := captureTerrain(f.terrain)
		endLo, endHi := f.terrain.Regions.HeightRange()
		require.Greater(t, f.terrain.Regions.Len(), 1, "stroke crosses into new regions")

		undone, err := f.ed.Undo()
		require.NoError(t, err)
		assert.Same(t, entry, undone)
		assert.Equal(t, start, captureTerrain(f.terrain), "compress=%v", compress)
		lo, hi := f.terrain.Regions.HeightRange()
		assert.Equal(t, float32(0), lo)
		assert.Equal(t, float32(1), hi)

		redone, err := f.ed.Redo()
		require.NoError(t, err)
		assert.Same(t, entry, redone)
		assert.Equal(t, end, captureTerrain(f.terrain), "compress=%v", compress)
		lo, hi = f.terrain.Regions.HeightRange()
		assert.Equal(t, endLo, lo)
		assert.Equal(t, endHi, hi)
	}
}

func TestUndoReusesRegionObjects(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, func(o *brush.Options) { o.Height = 1 })
	f.createRegion(t, 0, 0)
	r := f.terrain.Regions.Get(math.Vec2i{})

	f.use(ToolHeight, OpAdd)
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	_, err := f.ed.Undo()
	require.NoError(t, err)
	assert.Same(t, r, f.terrain.Regions.Get(math.Vec2i{}))
	assert.Zero(t, r.Height.Height(8, 8))
}

func TestNewStrokeClearsRedo(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, func(o *brush.Options) { o.Height = 1 })
	f.createRegion(t, 0, 0)
	f.use(ToolHeight, OpAdd)

	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	_, err := f.ed.Undo()
	require.NoError(t, err)
	undo, redo := f.ed.History()
	assert.Equal(t, 1, undo, "region creation stays")
	assert.Equal(t, 1, redo)

	require.NoError(t, f.ed.Operate(at(2, 0), 0, false))
	_, err = f.ed.StoreUndo()
	require.NoError(t, err)
	_, redo = f.ed.History()
	assert.Zero(t, redo)

	entry, err := f.ed.Redo()
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestHistoryLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 2
	f := newFixture(t, 16, 0, WithConfig(cfg))
	f.brush(t, func(o *brush.Options) { o.Height = 1 })
	f.createRegion(t, 0, 0)
	f.use(ToolHeight, OpAdd)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	}
	_, err := f.ed.StoreUndo()
	require.NoError(t, err)

	undo, _ := f.ed.History()
	assert.Equal(t, 2, undo)
	for i := 0; i < 2; i++ {
		entry, err := f.ed.Undo()
		require.NoError(t, err)
		require.NotNil(t, entry)
	}
	entry, err := f.ed.Undo()
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, float32(1), f.terrain.Regions.Get(math.Vec2i{}).Height.Height(8, 8))
}

func TestJournalBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JournalBudget = 1024
	f := newFixture(t, 32, 0, WithConfig(cfg))
	f.brush(t, func(o *brush.Options) { o.Height = 1 })
	_, _, err := f.terrain.Regions.Create(math.Vec2i{})
	require.NoError(t, err)

	f.use(ToolHeight, OpAdd)
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	entry, err := f.ed.StoreUndo()
	require.ErrorIs(t, err, ErrUndoUnavailable)
	require.NotNil(t, entry)
	assert.Equal(t, KindUndoUnavailable, KindOf(err))
	assert.Contains(t, f.host.kinds(), KindUndoUnavailable)

	assert.Equal(t, float32(1), f.terrain.Regions.Get(math.Vec2i{}).Height.Height(16, 16), "stroke stays applied")
	undo, _ := f.ed.History()
	assert.Zero(t, undo)
}

func TestJournalEvictsOldestOverBudget(t *testing.T) {
	j := newJournal(10, 100)
	mk := func(n int) *Entry {
		return &Entry{
			Before: &State{Regions: map[math.Vec2i][]byte{{}: make([]byte, n)}},
			After:  &State{Regions: map[math.Vec2i][]byte{}},
		}
	}
	a, b, c := mk(40), mk(40), mk(40)
	require.NoError(t, j.push(a))
	require.NoError(t, j.push(b))
	require.NoError(t, j.push(c))
	assert.Equal(t, []*Entry{b, c}, j.history)
	assert.Equal(t, int64(80), j.bytes)

	assert.ErrorIs(t, j.push(mk(101)), ErrUndoUnavailable)
	assert.Equal(t, []*Entry{b, c}, j.history)
}

func TestStrokeTimeout(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, func(o *brush.Options) { o.Height = 1 })
	f.createRegion(t, 0, 0)
	f.use(ToolHeight, OpAdd)

	require.NoError(t, f.ed.Operate(at(0, 0), 0, true))
	f.clock.Advance(100 * time.Millisecond)
	assert.False(t, f.ed.CommitIfIdle())
	require.NoError(t, f.ed.Operate(at(3, 0), 0, true))

	f.clock.Advance(time.Second)
	require.NoError(t, f.ed.Operate(at(-3, 0), 0, true))
	undo, _ := f.ed.History()
	assert.Equal(t, 2, undo, "timeout commits the first stroke")

	f.clock.Advance(time.Second)
	assert.True(t, f.ed.CommitIfIdle())
	assert.False(t, f.ed.Stroking())
	undo, _ = f.ed.History()
	assert.Equal(t, 3, undo)
}

func TestSetupUndoStartsStroke(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, func(o *brush.Options) { o.Height = 1 })
	f.createRegion(t, 0, 0)
	f.ed.SetOperationInterval(100)
	f.use(ToolHeight, OpAdd)

	require.NoError(t, f.ed.SetupUndo())
	assert.True(t, f.ed.Stroking())
	require.NoError(t, f.ed.Operate(at(0, 0), 0, true))
	assert.Equal(t, float32(1), f.terrain.Regions.Get(math.Vec2i{}).Height.Height(8, 8),
		"first stamp of a stroke is never skipped")

	entry, err := f.ed.StoreUndo()
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, ToolHeight, entry.Tool)
	assert.Equal(t, []math.Vec2i{{}}, entry.Offsets())
}

func TestRestoreIsAllOrNothing(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, func(o *brush.Options) {
		o.Height = 1
		o.AutoRegions = true
	})
	f.use(ToolHeight, OpAdd)
	require.NoError(t, f.ed.Operate(at(0, 0), 0, false))
	entry, err := f.ed.StoreUndo()
	require.NoError(t, err)

	// Another region appears outside the journal's knowledge.
	_, _, err = f.terrain.Regions.Create(math.Vec2i{X: 4, Y: 4})
	require.NoError(t, err)
	before := captureTerrain(f.terrain)

	err = f.ed.ApplyUndo(entry)
	assert.ErrorIs(t, err, ErrInternalConsistency)
	assert.Equal(t, before, captureTerrain(f.terrain))

	corrupt := *entry
	corrupt.After = &State{
		Order:   entry.After.Order,
		Regions: map[math.Vec2i][]byte{{}: []byte("garbage")},
	}
	assert.ErrorIs(t, f.ed.ApplyRedo(&corrupt), ErrInternalConsistency)
	assert.Equal(t, before, captureTerrain(f.terrain))
}

func TestSetTerrainClearsHistory(t *testing.T) {
	f := newFixture(t, 16, 0)
	f.brush(t, nil)
	f.createRegion(t, 0, 0)
	undo, _ := f.ed.History()
	require.Equal(t, 1, undo)

	f.ed.SetTerrain(f.terrain)
	undo, redo := f.ed.History()
	assert.Zero(t, undo)
	assert.Zero(t, redo)
}
