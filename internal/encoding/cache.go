// Package encoding persists identity vectors computed from enrollment photos
// so unchanged photos are never re-encoded across training runs.
package encoding

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/google/renameio"
)

// ComputeFunc produces the identity vector for an enrollment photo.
// It is only invoked on a cache miss.
type ComputeFunc func(ctx context.Context) ([]float32, error)

// Cache maps dataset-relative photo paths to identity vectors. Keys are
// relative so the artifact stays valid when the dataset root moves.
// The trainer is the single writer; Cache is not safe for concurrent use.
type Cache struct {
	path    string
	entries map[string][]float32
	hits    int
	misses  int
}

// Open loads the cache artifact from path. A missing artifact yields an
// empty cache, not an error.
func Open(path string) (*Cache, error) {
	c := &Cache{
		path:    path,
		entries: make(map[string][]float32),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading encoding cache: %w", err)
	}

	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&c.entries); err != nil {
		return nil, fmt.Errorf("decoding encoding cache %s: %w", path, err)
	}
	return c, nil
}

// GetOrCompute returns the cached vector for relPath, or invokes compute,
// stores the result, and returns it. A compute failure is returned to the
// caller and leaves the cache unchanged.
func (c *Cache) GetOrCompute(ctx context.Context, relPath string, compute ComputeFunc) ([]float32, error) {
	if vec, ok := c.entries[relPath]; ok {
		c.hits++
		return vec, nil
	}

	vec, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.entries[relPath] = vec
	c.misses++
	return vec, nil
}

// Prune drops every entry whose key was not observed in the current dataset
// pass. Returns the number of removed entries.
func (c *Cache) Prune(seen map[string]struct{}) int {
	removed := 0
	for key := range c.entries {
		if _, ok := seen[key]; !ok {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Save atomically replaces the cache artifact. A failed write leaves the
// previous artifact intact.
func (c *Cache) Save() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c.entries); err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := renameio.WriteFile(c.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing encoding cache %s: %w", c.path, err)
	}
	return nil
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Stats returns cache hits and misses since Open.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

// Has reports whether relPath has a cached vector.
func (c *Cache) Has(relPath string) bool {
	_, ok := c.entries[relPath]
	return ok
}
