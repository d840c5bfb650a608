// Package assets resolves asset paths against layered GRF archives and
// data directories.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/midgard-3mf/pkg/encoding"
	"github.com/Faultbox/midgard-3mf/pkg/grf"
)

type source struct {
	name   string
	fsys   fs.FS
	closer io.Closer
}

// Manager loads files from its sources. Sources are searched in reverse
// order, so the last one added wins.
type Manager struct {
	mu      sync.RWMutex
	sources []source
	cache   *Cache
	loads   singleflight.Group
	log     *zap.Logger
}

// NewManager creates a manager with no sources.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cache: NewCache(),
		log:   log.With(zap.String("component", "assets")),
	}
}

// AddArchive opens a GRF archive and adds it as a source.
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.add(source{name: path, fsys: archive, closer: archive})
	m.log.Info("archive added",
		zap.String("path", path),
		zap.Int("files", archive.Header().Files()))
	return nil
}

// AddDir adds a directory tree as a source.
func (m *Manager) AddDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("adding data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding data dir %s: not a directory", path)
	}
	m.add(source{name: path, fsys: os.DirFS(path)})
	m.log.Info("data dir added", zap.String("path", path))
	return nil
}

// AddFS adds any file system as a source.
func (m *Manager) AddFS(name string, fsys fs.FS) {
	m.add(source{name: name, fsys: fsys})
}

func (m *Manager) add(s source) {
	m.mu.Lock()
	m.sources = append(m.sources, s)
	m.mu.Unlock()
	m.cache.Clear()
}

// Sources returns the source names in search order.
func (m *Manager) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sources))
	for i := len(m.sources) - 1; i >= 0; i-- {
		names = append(names, m.sources[i].name)
	}
	return names
}

// Load returns the contents of name. Concurrent loads of the same path
// share one read, and results are cached until a source is added.
func (m *Manager) Load(ctx context.Context, name string) ([]byte, error) {
	key := cacheKey(name)
	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	ch := m.loads.DoChan(key, func() (any, error) {
		if data, ok := m.cache.Get(key); ok {
			return data, nil
		}
		data, err := m.read(name)
		if err != nil {
			return nil, err
		}
		m.cache.Set(key, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Invalidate drops cached contents so the next loads read the sources
// again.
func (m *Manager) Invalidate() {
	m.cache.Clear()
}

// CacheStats returns cache hits and misses since the last invalidation.
func (m *Manager) CacheStats() (hits, misses int) {
	return m.cache.Stats()
}

// Exists reports whether any source has name.
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.sources) - 1; i >= 0; i-- {
		for _, p := range candidates(name) {
			if _, err := fs.Stat(m.sources[i].fsys, p); err == nil {
				return true
			}
		}
	}
	return false
}

func (m *Manager) read(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var firstErr error
	for i := len(m.sources) - 1; i >= 0; i-- {
		src := m.sources[i]
		for _, p := range candidates(name) {
			data, err := fs.ReadFile(src.fsys, p)
			if err == nil {
				m.log.Debug("asset loaded",
					zap.String("path", name),
					zap.String("source", src.name),
					zap.Int("bytes", len(data)))
				return data, nil
			}
			if !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
				firstErr = fmt.Errorf("reading %s from %s: %w", name, src.name, err)
			}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, &fs.PathError{Op: "load", Path: name, Err: fs.ErrNotExist}
}

// candidates lists the spellings tried for name: the name as given with
// forward slashes, then the lower-case archive form.
func candidates(name string) []string {
	given := strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/")
	norm := strings.TrimPrefix(encoding.NormalizeGRFPath(name), "/")
	var out []string
	if fs.ValidPath(given) {
		out = append(out, given)
	}
	if norm != given && fs.ValidPath(norm) {
		out = append(out, norm)
	}
	return out
}

func cacheKey(name string) string {
	return encoding.NormalizeGRFPath(name)
}

// Close closes every archive and drops all sources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, s := range m.sources {
		if s.closer != nil {
			if err := s.closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", s.name, err))
			}
		}
	}
	m.sources = nil
	m.cache.Clear()
	return errors.Join(errs...)
}

// Cache is an in-memory byte cache keyed by normalised path.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

// Get retrieves an item from the cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in the cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear empties the cache and resets its counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache hits and misses.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
