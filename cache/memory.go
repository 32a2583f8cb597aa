package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// Memory is an in-process cache with TinyLFU admission and eviction,
// bounded by entry count.
type Memory struct {
	mu    sync.Mutex
	lfu   *tinylfu.T[string, []byte]
	sizes map[string]int64
	total int64
}

var _ Cache = (*Memory)(nil)

// NewMemory returns a cache holding at most entries items.
func NewMemory(entries int) *Memory {
	entries = max(entries, 1)
	m := &Memory{sizes: make(map[string]int64)}
	m.lfu = tinylfu.New[string, []byte](entries, entries*10, xxhash.Sum64String,
		tinylfu.OnEvict(m.evicted))
	return m
}

// evicted runs under m.mu, from inside lfu.Add.
func (m *Memory) evicted(key string, _ []byte) {
	m.total -= m.sizes[key]
	delete(m.sizes, key)
}

// Get implements Cache.
func (m *Memory) Get(key []byte) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	data, ok := m.lfu.Get(k)
	if !ok {
		// Rejected by admission without an eviction callback.
		if size, tracked := m.sizes[k]; tracked {
			m.total -= size
			delete(m.sizes, k)
		}
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	return data, true
}

// Put implements Cache. The cache keeps data; callers must not modify it.
func (m *Memory) Put(key, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	m.total -= m.sizes[k]
	m.sizes[k] = int64(len(data))
	m.total += int64(len(data))
	m.lfu.Add(k, data)
	return nil
}

// Delete implements Cache. The key stays admitted with a nil value, which
// reads as a miss, until TinyLFU evicts it.
func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(string(key))
	return nil
}

func (m *Memory) deleteLocked(k string) int64 {
	size, ok := m.sizes[k]
	if !ok {
		return 0
	}
	m.total -= size
	delete(m.sizes, k)
	m.lfu.Add(k, nil)
	return size
}

// MaxBytes implements Cache. Memory caches are bounded by entry count.
func (m *Memory) MaxBytes() int64 { return 0 }

// SizeBytes implements Cache.
func (m *Memory) SizeBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Prune implements Cache. Entries are dropped in no particular order.
func (m *Memory) Prune(targetBytes int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var freed int64
	for k := range m.sizes {
		if m.total <= targetBytes {
			break
		}
		freed += m.deleteLocked(k)
	}
	return freed, nil
}
