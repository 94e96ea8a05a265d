// Package assets loads brush stamps from image directories and caches them.
package assets

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"

	"github.com/Faultbox/midgard-terrain/internal/brush"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// ErrStampNotFound is returned when no directory or built-in holds a stamp.
var ErrStampNotFound = errors.New("stamp not found")

// Built-in stamp names.
const (
	StampSolid  = "solid"
	StampCircle = "circle"
	StampNoise  = "noise"
)

const builtinSize = 64

var imageExts = []string{".png", ".bmp", ".jpg", ".jpeg", ".gif"}

func isImageFile(path string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(path)))
}

// stampName maps a file path to the name it is loaded by.
func stampName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Library resolves stamp names against directories of images.
// Directories are searched in reverse order (last added = highest priority),
// then the built-in procedural stamps.
type Library struct {
	dirs  []string
	cache *Cache
	mu    sync.RWMutex
	log   *zap.Logger
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		cache: NewCache(),
		log:   logger.Named("assets"),
	}
}

// AddDir adds a directory of stamp images.
func (l *Library) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("brush directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("brush directory %s: not a directory", dir)
	}

	l.mu.Lock()
	l.dirs = append(l.dirs, dir)
	l.mu.Unlock()
	l.cache.Clear()
	return nil
}

// Dirs returns the search directories in the order they were added.
func (l *Library) Dirs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.dirs)
}

// Load returns the stamp named name, e.g. "rock" for rock.png.
func (l *Library) Load(name string) (*brush.Stamp, error) {
	if s, ok := l.cache.Get(name); ok {
		return s, nil
	}

	l.mu.RLock()
	dirs := slices.Clone(l.dirs)
	l.mu.RUnlock()

	for i := len(dirs) - 1; i >= 0; i-- {
		for _, ext := range imageExts {
			path := filepath.Join(dirs[i], name+ext)
			s, err := loadFile(path)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			l.log.Debug("stamp loaded", zap.String("name", name), zap.String("path", path), zap.Int("size", s.Size()))
			l.cache.Set(name, s)
			return s, nil
		}
	}

	if s := builtin(name); s != nil {
		l.cache.Set(name, s)
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrStampNotFound, name)
}

// Names lists every loadable stamp name, sorted.
func (l *Library) Names() ([]string, error) {
	names := []string{StampSolid, StampCircle, StampNoise}
	for _, dir := range l.Dirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() && isImageFile(e.Name()) {
				names = append(names, stampName(e.Name()))
			}
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Invalidate drops a cached stamp so the next Load rereads it.
func (l *Library) Invalidate(name string) {
	l.cache.Delete(name)
}

// Reload drops the cached stamp and loads it again.
func (l *Library) Reload(name string) (*brush.Stamp, error) {
	l.Invalidate(name)
	return l.Load(name)
}

// Stats returns cache hits and misses.
func (l *Library) Stats() (hits, misses int) {
	return l.cache.Stats()
}

func loadFile(path string) (*brush.Stamp, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	s := brush.NewStamp(img)
	if s == nil {
		return nil, fmt.Errorf("decode %s: empty image", path)
	}
	return s, nil
}

func builtin(name string) *brush.Stamp {
	switch name {
	case StampSolid:
		return brush.SolidStamp(builtinSize)
	case StampCircle:
		return brush.CircleStamp(builtinSize, 0.5)
	case StampNoise:
		return brush.NoiseStamp(builtinSize, 1, 4)
	}
	return nil
}

// Cache is an in-memory stamp cache.
type Cache struct {
	data map[string]*brush.Stamp
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string]*brush.Stamp)}
}

// Get retrieves a stamp.
func (c *Cache) Get(key string) (*brush.Stamp, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return s, ok
}

// Set stores a stamp.
func (c *Cache) Set(key string, s *brush.Stamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = s
}

// Delete removes one stamp.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear empties the cache and resets statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*brush.Stamp)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
