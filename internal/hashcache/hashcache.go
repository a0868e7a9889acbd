// Package hashcache persists per-file content digests and answers "has
// this file changed since we last saw it". The cache is
// a hint, not a source of truth: any I/O or hash error fails open toward
// re-upload.
package hashcache

import (
	"crypto/md5" //nolint:gosec // change-detection digest only, not used for security.
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Cache is a persistent absolute-path to MD5-hex map used to detect file
// content changes across runs. Not safe for concurrent HasChanged calls on
// distinct paths — the caller (FileScanner) serializes its invocations.
type Cache struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]string
}

// New creates a Cache persisting to path. logger may be nil.
func New(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]string),
	}
}

// DefaultPath returns the conventional hash-cache location inside the OS
// temp directory.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "internxt-backup-hash-cache.json")
}

// normalize converts path separators to forward slashes before any
// insertion or lookup.
func normalize(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// Load reads the on-disk JSON map into memory. A missing file or a parse
// failure both return false and leave the cache empty; neither is treated
// as fatal.
func (c *Cache) Load() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return false
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		c.logger.Warn("hashcache: failed to parse cache file, starting empty",
			slog.String("path", c.path), slog.Any("error", err))

		return false
	}

	c.entries = m

	return true
}

// Save serializes the current map as pretty-printed JSON, writing to a
// temp file in the same directory and renaming over the target — cheap
// write-then-rename atomicity where the filesystem supports it.
func (c *Cache) Save() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.saveLocked()
}

func (c *Cache) saveLocked() bool {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		c.logger.Warn("hashcache: failed to marshal cache", slog.Any("error", err))

		return false
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // matches cache-file directory convention
		c.logger.Warn("hashcache: failed to create cache directory", slog.Any("error", err))

		return false
	}

	tmp, err := os.CreateTemp(dir, ".hashcache-*.tmp")
	if err != nil {
		c.logger.Warn("hashcache: failed to create temp file", slog.Any("error", err))

		return false
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return false
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return false
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		c.logger.Warn("hashcache: failed to rename cache file into place", slog.Any("error", err))
		os.Remove(tmpPath)

		return false
	}

	return true
}

// HasChanged computes the MD5 of path's current bytes and compares it to
// the cached digest. It stores and persists the new digest whenever the
// path is unknown or the digest differs, then reports whether a change was
// observed. Any I/O or hash error fails open: it returns true without
// mutating the cache.
func (c *Cache) HasChanged(path string) bool {
	digest, err := HashFile(path)
	if err != nil {
		c.logger.Warn("hashcache: failed to hash file, treating as changed",
			slog.String("path", path), slog.Any("error", err))

		return true
	}

	return c.Note(path, digest)
}

// Note records a precomputed digest for path and reports whether it
// differs from what was previously cached, exactly like HasChanged but
// without recomputing the hash. This lets callers (FileScanner with
// --scan-concurrency) hash files in parallel and then consult the cache
// serially, honoring the single-writer contract without hashing every file
// twice.
func (c *Cache) Note(path, digest string) bool {
	key := normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, known := c.entries[key]
	if known && prev == digest {
		return false
	}

	c.entries[key] = digest
	c.saveLocked()

	return true
}

// UpdateHash records digest for path in memory only; the caller decides
// when to persist via Save.
func (c *Cache) UpdateHash(path, digest string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[normalize(path)] = digest
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Clear empties the in-memory map without touching the on-disk file.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]string)
}

// Get returns the cached digest for path, if any.
func (c *Cache) Get(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[normalize(path)]

	return v, ok
}

// HashFile computes the MD5 hex digest of path's content. Exported so
// FileScanner can hash files in a bounded-concurrency pool and hand the
// result to Note, instead of hashing twice.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // see package doc: content-change digest, not a security boundary.
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
