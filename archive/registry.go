package archive

import (
	"slices"
	"sync"
)

// Registry records the load order of open archives. Archives opened later
// get higher indexes; removing an archive keeps the relative order of the
// rest. Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	archives []*Archive
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a to the load order and returns its index. Adding an archive
// that is already registered returns its existing index.
func (r *Registry) Add(a *Archive) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := slices.Index(r.archives, a); i >= 0 {
		return i
	}
	r.archives = append(r.archives, a)
	return len(r.archives) - 1
}

// Remove drops a from the load order. It reports whether a was registered.
func (r *Registry) Remove(a *Archive) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.archives, a)
	if i < 0 {
		return false
	}
	r.archives = slices.Delete(r.archives, i, i+1)
	return true
}

// Index returns a's position in the load order, or -1 if it is not registered.
func (r *Registry) Index(a *Archive) int {
	if a == nil {
		return -1
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Index(r.archives, a)
}

// Archives returns the registered archives in load order.
func (r *Registry) Archives() []*Archive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.archives)
}

// Len returns the number of registered archives.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.archives)
}

// Find returns the registered archive with the given file name, or nil.
func (r *Registry) Find(filename string) *Archive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.archives {
		if a.filename == filename {
			return a
		}
	}
	return nil
}
