// Package memcache is the in-process LRU implementation of
// cache.Cache from spec.md §4.9, grounded on the mutex-guarded map
// shape of nabbar-golib/cache/model.go, adapted from its TTL-ticker
// eviction to a byte-cost-bounded LRU.
package memcache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/nabbar/netcore/cache"
)

type entry struct {
	url  string
	data []byte
	meta cache.Metadata
}

// Memory is a byte-cost-bounded LRU. Insert rejects entries larger
// than the configured bound outright, per §4.9.
type Memory struct {
	mu sync.Mutex

	maxSize int64
	curSize int64

	ll    *list.List
	index map[string]*list.Element
}

// New builds a Memory cache bounded at maxSize bytes.
func New(maxSize int64) *Memory {
	return &Memory{
		maxSize: maxSize,
		ll:      list.New(),
		index:   make(map[string]*list.Element),
	}
}

func (m *Memory) Data(url string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.index[url]
	if !ok {
		return nil, false
	}
	m.ll.MoveToFront(el)
	return el.Value.(*entry).data, true
}

func (m *Memory) Metadata(url string) (cache.Metadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.index[url]
	if !ok {
		return cache.Metadata{}, false
	}
	return el.Value.(*entry).meta, true
}

// Insert stores data/meta for url, evicting least-recently-used
// entries until the cache fits, per §4.9's byte-cost LRU.
func (m *Memory) Insert(url string, data []byte, meta cache.Metadata) error {
	size := int64(len(data))
	if size > m.maxSize {
		return fmt.Errorf("memcache: entry for %s (%d bytes) exceeds max cache size %d", url, size, m.maxSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.index[url]; ok {
		m.curSize -= int64(len(el.Value.(*entry).data))
		m.ll.Remove(el)
		delete(m.index, url)
	}

	for m.curSize+size > m.maxSize && m.ll.Len() > 0 {
		m.evictOldest()
	}

	meta.Size = size
	el := m.ll.PushFront(&entry{url: url, data: data, meta: meta})
	m.index[url] = el
	m.curSize += size
	return nil
}

func (m *Memory) evictOldest() {
	back := m.ll.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	m.curSize -= int64(len(e.data))
	m.ll.Remove(back)
	delete(m.index, e.url)
}

func (m *Memory) Remove(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.index[url]
	if !ok {
		return nil
	}
	m.curSize -= int64(len(el.Value.(*entry).data))
	m.ll.Remove(el)
	delete(m.index, url)
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ll.Init()
	m.index = make(map[string]*list.Element)
	m.curSize = 0
	return nil
}

func (m *Memory) CacheSize() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.curSize
}

func (m *Memory) MaxCacheSize() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxSize
}

func (m *Memory) SetMaxCacheSize(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maxSize = n
	for m.curSize > m.maxSize && m.ll.Len() > 0 {
		m.evictOldest()
	}
}

var _ cache.Cache = (*Memory)(nil)
