package editor

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// RegionRef is one entry of the region order.
type RegionRef struct {
	Offset math.Vec2i
	ID     uint16
}

// State is the part of the terrain a stroke touched, at one point in time.
type State struct {
	Order []RegionRef
	// Regions holds an encoded tile per touched offset. A nil value means no
	// region existed at that offset.
	Regions   map[math.Vec2i][]byte
	HeightMin float32
	HeightMax float32
}

func captureState(m *terrain.RegionMap) *State {
	s := &State{Regions: make(map[math.Vec2i][]byte)}
	for _, r := range m.Regions() {
		s.Order = append(s.Order, RegionRef{Offset: r.Offset, ID: r.ID})
	}
	s.HeightMin, s.HeightMax = m.HeightRange()
	return s
}

func (s *State) size() int64 {
	var n int64
	for _, data := range s.Regions {
		n += int64(len(data))
	}
	return n
}

// Entry is the journal record of one stroke.
type Entry struct {
	ID        uuid.UUID
	Tool      Tool
	Operation Operation
	Started   time.Time
	Before    *State
	After     *State
}

// Offsets returns the touched region offsets in sorted order.
func (e *Entry) Offsets() []math.Vec2i {
	out := make([]math.Vec2i, 0, len(e.Before.Regions))
	for off := range e.Before.Regions {
		out = append(out, off)
	}
	slices.SortFunc(out, compareOffsets)
	return out
}

// Size returns the snapshot bytes held by the entry.
func (e *Entry) Size() int64 {
	return e.Before.size() + e.After.size()
}

func compareOffsets(a, b math.Vec2i) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// stroke accumulates pre-edit snapshots between begin and commit.
type stroke struct {
	tool     Tool
	op       Operation
	started  time.Time
	rng      *rand.Rand
	compress bool
	stamped  bool // an operation has been applied
	before   *State
	changes  map[Change]struct{}
}

func newStroke(tool Tool, op Operation, now time.Time, m *terrain.RegionMap, seed uint64, compress bool) *stroke {
	return &stroke{
		tool:     tool,
		op:       op,
		started:  now,
		rng:      newRand(seed),
		compress: compress,
		before:   captureState(m),
		changes:  make(map[Change]struct{}),
	}
}

func (s *stroke) empty() bool {
	return len(s.before.Regions) == 0
}

// note snapshots the region at off the first time the stroke touches it.
// Call it before the region is modified, created or deleted.
func (s *stroke) note(m *terrain.RegionMap, off math.Vec2i) error {
	if _, ok := s.before.Regions[off]; ok {
		return nil
	}
	data, err := snapshot(m.Get(off), s.compress)
	if err != nil {
		return err
	}
	s.before.Regions[off] = data
	return nil
}

func (s *stroke) changed(off math.Vec2i, layer terrain.LayerKind) {
	s.changes[Change{Offset: off, Layer: layer}] = struct{}{}
}

func (s *stroke) regionChanged(off math.Vec2i) {
	for k := terrain.LayerKind(0); k < terrain.LayerCount; k++ {
		s.changed(off, k)
	}
}

func (s *stroke) changeList() []Change {
	out := make([]Change, 0, len(s.changes))
	for c := range s.changes {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Change) int {
		if c := compareOffsets(a.Offset, b.Offset); c != 0 {
			return c
		}
		return int(a.Layer) - int(b.Layer)
	})
	return out
}

// finish captures the post-stroke state of every touched region.
func (s *stroke) finish(m *terrain.RegionMap) (*Entry, error) {
	after := captureState(m)
	for off := range s.before.Regions {
		data, err := snapshot(m.Get(off), s.compress)
		if err != nil {
			return nil, err
		}
		after.Regions[off] = data
	}
	return &Entry{
		ID:        uuid.New(),
		Tool:      s.tool,
		Operation: s.op,
		Started:   s.started,
		Before:    s.before,
		After:     after,
	}, nil
}

func snapshot(r *terrain.Region, compress bool) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	r.Validate()
	data, err := formats.EncodeRegion(r.Tile(), compress)
	if err != nil {
		return nil, fmt.Errorf("snapshot region %v: %w", r.Offset, err)
	}
	return data, nil
}

// restore makes the touched part of m match s. Everything is validated
// before the first change, so a failed restore leaves m untouched.
func restore(m *terrain.RegionMap, s *State) error {
	tiles := make(map[math.Vec2i]*formats.RegionTile, len(s.Regions))
	for off, data := range s.Regions {
		if data == nil {
			continue
		}
		tile, err := formats.DecodeRegion(data)
		if err != nil {
			return fmt.Errorf("%w: region %v: %w", ErrInternalConsistency, off, err)
		}
		if int(tile.Size) != m.RegionSize() {
			return fmt.Errorf("%w: region %v snapshot is %dpx, terrain uses %dpx",
				ErrInternalConsistency, off, tile.Size, m.RegionSize())
		}
		if tile.ID == 0 || int(tile.ID) > m.Capacity() {
			return fmt.Errorf("%w: region %v snapshot has id %d", ErrInternalConsistency, off, tile.ID)
		}
		if tile.OffsetX != int32(off.X) || tile.OffsetY != int32(off.Y) {
			return fmt.Errorf("%w: snapshot for %v holds region (%d,%d)",
				ErrInternalConsistency, off, tile.OffsetX, tile.OffsetY)
		}
		tiles[off] = tile
	}

	target := make(map[math.Vec2i]uint16, len(s.Order))
	for _, r := range m.Regions() {
		if _, touched := s.Regions[r.Offset]; !touched {
			target[r.Offset] = r.ID
		}
	}
	for off, tile := range tiles {
		target[off] = tile.ID
	}
	if len(target) != len(s.Order) {
		return fmt.Errorf("%w: journal expects %d regions, restore yields %d",
			ErrInternalConsistency, len(s.Order), len(target))
	}
	ids := make(map[uint16]struct{}, len(s.Order))
	order := make([]math.Vec2i, len(s.Order))
	for i, ref := range s.Order {
		id, ok := target[ref.Offset]
		if !ok || id != ref.ID {
			return fmt.Errorf("%w: region %v id %d does not match journal", ErrInternalConsistency, ref.Offset, ref.ID)
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("%w: duplicate region id %d", ErrInternalConsistency, id)
		}
		ids[id] = struct{}{}
		order[i] = ref.Offset
	}

	for off := range s.Regions {
		cur := m.Get(off)
		if cur == nil {
			continue
		}
		if tile := tiles[off]; tile != nil && tile.ID == cur.ID {
			continue
		}
		m.Delete(off)
	}
	for off, tile := range tiles {
		if cur := m.Get(off); cur != nil {
			if err := cur.LoadTile(tile); err != nil {
				return fmt.Errorf("%w: %w", ErrInternalConsistency, err)
			}
			continue
		}
		r, err := terrain.RegionFromTile(tile)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInternalConsistency, err)
		}
		if err := m.Insert(r); err != nil {
			return fmt.Errorf("%w: %w", ErrInternalConsistency, err)
		}
	}
	if err := m.SetOrder(order); err != nil {
		return fmt.Errorf("%w: %w", ErrInternalConsistency, err)
	}
	m.SetHeightRange(s.HeightMin, s.HeightMax)
	return nil
}

// journal keeps committed entries for undo and undone entries for redo.
type journal struct {
	limit   int
	budget  int64
	history []*Entry
	redo    []*Entry
	bytes   int64
}

func newJournal(limit int, budget int64) *journal {
	return &journal{limit: limit, budget: budget}
}

func (j *journal) len() int {
	return len(j.history) + len(j.redo)
}

// push records a new entry, dropping the redo stack and evicting the oldest
// entries to stay within limits. An entry larger than the whole budget is
// not recorded.
func (j *journal) push(e *Entry) error {
	for _, r := range j.redo {
		j.bytes -= r.Size()
	}
	j.redo = nil
	size := e.Size()
	if j.budget > 0 && size > j.budget {
		return fmt.Errorf("%w: stroke snapshots need %d bytes, journal budget is %d",
			ErrUndoUnavailable, size, j.budget)
	}
	j.history = append(j.history, e)
	j.bytes += size
	for len(j.history) > j.limit || (j.budget > 0 && j.bytes > j.budget) {
		j.bytes -= j.history[0].Size()
		j.history[0] = nil
		j.history = j.history[1:]
	}
	return nil
}

func (j *journal) peekUndo() *Entry {
	if len(j.history) == 0 {
		return nil
	}
	return j.history[len(j.history)-1]
}

func (j *journal) peekRedo() *Entry {
	if len(j.redo) == 0 {
		return nil
	}
	return j.redo[len(j.redo)-1]
}

func (j *journal) undone() {
	e := j.history[len(j.history)-1]
	j.history = j.history[:len(j.history)-1]
	j.redo = append(j.redo, e)
}

func (j *journal) redone() {
	e := j.redo[len(j.redo)-1]
	j.redo = j.redo[:len(j.redo)-1]
	j.history = append(j.history, e)
}

func (j *journal) clear() {
	j.history, j.redo, j.bytes = nil, nil, 0
}

func appendRegionChanges(changes []Change, off math.Vec2i) []Change {
	for k := terrain.LayerKind(0); k < terrain.LayerCount; k++ {
		changes = append(changes, Change{Offset: off, Layer: k})
	}
	return changes
}
