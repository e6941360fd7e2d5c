// Package diskcache is the filesystem implementation of cache.Cache
// from spec.md §4.9: <md5(url)>.data / .meta file pairs, JSON
// metadata, and lazy directory-walk size accounting. Grounded on the
// same interface split as memcache but adapted for persistence the
// way nabbar-golib/file handles path-scoped I/O.
package diskcache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nabbar/netcore/cache"
)

// Disk is a directory-backed cache. Size accounting is lazy: Insert
// walks the directory once to compute the current total, then evicts
// entries ordered by ascending .data mtime until the new entry fits.
// Reads never touch mtime, preserving oldest-write-first eviction
// order.
type Disk struct {
	mu      sync.Mutex
	dir     string
	maxSize int64
}

// New builds a Disk cache rooted at dir, bounded at maxSize bytes.
// The directory is created if absent.
func New(dir string, maxSize int64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskcache: create %s: %w", dir, err)
	}
	return &Disk{dir: dir, maxSize: maxSize}, nil
}

func (d *Disk) keyFor(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (d *Disk) dataPath(key string) string { return filepath.Join(d.dir, key+".data") }
func (d *Disk) metaPath(key string) string { return filepath.Join(d.dir, key+".meta") }

func (d *Disk) Data(url string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := os.ReadFile(d.dataPath(d.keyFor(url)))
	if err != nil {
		return nil, false
	}
	return b, true
}

func (d *Disk) Metadata(url string) (cache.Metadata, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readMeta(d.keyFor(url))
}

func (d *Disk) readMeta(key string) (cache.Metadata, bool) {
	b, err := os.ReadFile(d.metaPath(key))
	if err != nil {
		return cache.Metadata{}, false
	}
	var m cache.Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return cache.Metadata{}, false
	}
	return m, true
}

// Insert writes the .data/.meta pair for url, evicting the oldest
// entries (by .data mtime) until the new total fits maxSize.
func (d *Disk) Insert(url string, data []byte, meta cache.Metadata) error {
	size := int64(len(data))
	if size > d.maxSize {
		return fmt.Errorf("diskcache: entry for %s (%d bytes) exceeds max cache size %d", url, size, d.maxSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := d.keyFor(url)

	current, err := d.walkSize()
	if err != nil {
		return err
	}
	if existing, ok := d.readMeta(key); ok {
		current -= existing.Size
	}

	if current+size > d.maxSize {
		if err := d.evictUntilFits(key, current, size); err != nil {
			return err
		}
	}

	meta.URL = url
	meta.Size = size
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("diskcache: marshal metadata for %s: %w", url, err)
	}

	if err := os.WriteFile(d.dataPath(key), data, 0o644); err != nil {
		return fmt.Errorf("diskcache: write data for %s: %w", url, err)
	}
	if err := os.WriteFile(d.metaPath(key), b, 0o644); err != nil {
		return fmt.Errorf("diskcache: write metadata for %s: %w", url, err)
	}
	return nil
}

type dataFile struct {
	key   string
	mtime int64
	size  int64
}

// walkSize computes the current total .data size by reading every
// .meta file's recorded Size, avoiding a stat() per data file.
func (d *Disk) walkSize() (int64, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, fmt.Errorf("diskcache: read dir %s: %w", d.dir, err)
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".meta" {
			continue
		}
		key := e.Name()[:len(e.Name())-len(".meta")]
		if m, ok := d.readMeta(key); ok {
			total += m.Size
		}
	}
	return total, nil
}

// evictUntilFits deletes entries other than excludeKey, ordered by
// ascending .data mtime, until current+incoming fits maxSize.
func (d *Disk) evictUntilFits(excludeKey string, current, incoming int64) error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("diskcache: read dir %s: %w", d.dir, err)
	}

	var files []dataFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".data" {
			continue
		}
		key := e.Name()[:len(e.Name())-len(".data")]
		if key == excludeKey {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		m, _ := d.readMeta(key)
		files = append(files, dataFile{key: key, mtime: info.ModTime().UnixNano(), size: m.Size})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime < files[j].mtime })

	for _, f := range files {
		if current+incoming <= d.maxSize {
			break
		}
		_ = os.Remove(d.dataPath(f.key))
		_ = os.Remove(d.metaPath(f.key))
		current -= f.size
	}
	return nil
}

func (d *Disk) Remove(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := d.keyFor(url)
	_ = os.Remove(d.dataPath(key))
	_ = os.Remove(d.metaPath(key))
	return nil
}

func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("diskcache: read dir %s: %w", d.dir, err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(d.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (d *Disk) CacheSize() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, _ := d.walkSize()
	return n
}

func (d *Disk) MaxCacheSize() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxSize
}

func (d *Disk) SetMaxCacheSize(n int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maxSize = n
}

var _ cache.Cache = (*Disk)(nil)
