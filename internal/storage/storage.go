// Package storage persists terrains in a Badger key-value store.
//
// Keys:
//
//	terrain:meta          JSON geometry and height range
//	terrain:order         JSON list of region offsets in map order
//	region:<ox>:<oy>      encoded region tile
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// ErrNoTerrain is returned when the store holds no terrain.
var ErrNoTerrain = errors.New("store holds no terrain")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store closed")

const (
	metaKey      = "terrain:meta"
	orderKey     = "terrain:order"
	regionPrefix = "region:"
)

type meta struct {
	RegionSize    int     `json:"region_size"`
	VertexSpacing float32 `json:"vertex_spacing"`
	MaxRegions    int     `json:"max_regions"`
	HeightMin     float32 `json:"height_min"`
	HeightMax     float32 `json:"height_max"`
}

// Store is a terrain database.
type Store struct {
	db       *badger.DB
	compress bool
	mu       sync.RWMutex
	closed   bool
	log      *zap.Logger
}

// Open opens or creates a store in dir. compress selects zstd for region tiles.
func Open(dir string, compress bool) (*Store, error) {
	return open(badger.DefaultOptions(dir), compress)
}

// OpenInMemory opens a store that lives only in memory.
func OpenInMemory(compress bool) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), compress)
}

func open(opts badger.Options, compress bool) (*Store, error) {
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db, compress: compress, log: logger.Named("storage")}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func regionKey(off math.Vec2i) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", regionPrefix, off.X, off.Y))
}

func parseRegionKey(key string) (math.Vec2i, bool) {
	rest, ok := strings.CutPrefix(key, regionPrefix)
	if !ok {
		return math.Vec2i{}, false
	}
	xs, ys, ok := strings.Cut(rest, ":")
	if !ok {
		return math.Vec2i{}, false
	}
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil {
		return math.Vec2i{}, false
	}
	return math.Vec2i{X: x, Y: y}, true
}

// SaveTerrain writes the whole terrain, removing regions no longer present.
func (s *Store) SaveTerrain(t *terrain.Terrain) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	stored, err := s.regionOffsets()
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	if err := s.writeHeader(wb, t); err != nil {
		return err
	}
	live := make(map[math.Vec2i]struct{}, t.Regions.Len())
	for _, r := range t.Regions.Regions() {
		if err := s.writeRegion(wb, r); err != nil {
			return err
		}
		live[r.Offset] = struct{}{}
	}
	removed := 0
	for _, off := range stored {
		if _, ok := live[off]; !ok {
			if err := wb.Delete(regionKey(off)); err != nil {
				return err
			}
			removed++
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("write terrain: %w", err)
	}
	s.log.Info("terrain saved", zap.Int("regions", len(live)), zap.Int("removed", removed))
	return nil
}

// SaveRegions writes the terrain header and the listed regions only. Offsets
// with no region in t are deleted from the store.
func (s *Store) SaveRegions(t *terrain.Terrain, offsets []math.Vec2i) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	if err := s.writeHeader(wb, t); err != nil {
		return err
	}
	for _, off := range offsets {
		if r := t.Regions.Get(off); r != nil {
			if err := s.writeRegion(wb, r); err != nil {
				return err
			}
			continue
		}
		if err := wb.Delete(regionKey(off)); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("write regions: %w", err)
	}
	s.log.Debug("regions saved", zap.Int("count", len(offsets)))
	return nil
}

// DeleteRegion removes one region tile and drops it from the stored order.
func (s *Store) DeleteRegion(off math.Vec2i) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var order []math.Vec2i
		if err := getJSON(txn, orderKey, &order); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("read order: %w", err)
		}
		kept := order[:0]
		for _, o := range order {
			if o != off {
				kept = append(kept, o)
			}
		}
		data, err := json.Marshal(kept)
		if err != nil {
			return fmt.Errorf("encode order: %w", err)
		}
		if err := txn.Set([]byte(orderKey), data); err != nil {
			return err
		}
		return txn.Delete(regionKey(off))
	})
}

func (s *Store) writeHeader(wb *badger.WriteBatch, t *terrain.Terrain) error {
	lo, hi := t.Regions.HeightRange()
	metaData, err := json.Marshal(meta{
		RegionSize:    t.RegionSize,
		VertexSpacing: t.VertexSpacing,
		MaxRegions:    t.Regions.Capacity(),
		HeightMin:     lo,
		HeightMax:     hi,
	})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	orderData, err := json.Marshal(t.Regions.Offsets())
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	if err := wb.Set([]byte(metaKey), metaData); err != nil {
		return err
	}
	return wb.Set([]byte(orderKey), orderData)
}

func (s *Store) writeRegion(wb *badger.WriteBatch, r *terrain.Region) error {
	data, err := formats.EncodeRegion(r.Tile(), s.compress)
	if err != nil {
		return fmt.Errorf("encode region %v: %w", r.Offset, err)
	}
	return wb.Set(regionKey(r.Offset), data)
}

// LoadTerrain reads the stored terrain.
func (s *Store) LoadTerrain() (*terrain.Terrain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var t *terrain.Terrain
	err := s.db.View(func(txn *badger.Txn) error {
		var m meta
		if err := getJSON(txn, metaKey, &m); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNoTerrain
			}
			return fmt.Errorf("read meta: %w", err)
		}
		var order []math.Vec2i
		if err := getJSON(txn, orderKey, &order); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("read order: %w", err)
		}

		var err error
		t, err = terrain.New(m.RegionSize, m.VertexSpacing, m.MaxRegions)
		if err != nil {
			return fmt.Errorf("stored geometry: %w", err)
		}
		for _, off := range order {
			item, err := txn.Get(regionKey(off))
			if err != nil {
				return fmt.Errorf("read region %v: %w", off, err)
			}
			r, err := decodeRegion(item)
			if err != nil {
				return fmt.Errorf("region %v: %w", off, err)
			}
			if err := t.Regions.Insert(r); err != nil {
				return fmt.Errorf("region %v: %w", off, err)
			}
		}
		t.Regions.SetHeightRange(m.HeightMin, m.HeightMax)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("terrain loaded", zap.Int("regions", t.Regions.Len()))
	return t, nil
}

// LoadRegion reads a single region tile, or returns badger.ErrKeyNotFound.
func (s *Store) LoadRegion(off math.Vec2i) (*terrain.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	var r *terrain.Region
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(regionKey(off))
		if err != nil {
			return err
		}
		r, err = decodeRegion(item)
		return err
	})
	return r, err
}

// Regions lists the offsets of stored region tiles.
func (s *Store) Regions() ([]math.Vec2i, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.regionOffsets()
}

func (s *Store) regionOffsets() ([]math.Vec2i, error) {
	var out []math.Vec2i
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(regionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if off, ok := parseRegionKey(string(it.Item().Key())); ok {
				out = append(out, off)
			}
		}
		return nil
	})
	return out, err
}

func decodeRegion(item *badger.Item) (*terrain.Region, error) {
	var r *terrain.Region
	err := item.Value(func(val []byte) error {
		tile, err := formats.DecodeRegion(val)
		if err != nil {
			return err
		}
		r, err = terrain.RegionFromTile(tile)
		return err
	})
	return r, err
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
