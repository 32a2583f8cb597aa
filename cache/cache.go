// Package cache stores extracted archive entry data.
//
// Opening a compressed archive inflates each entry the first time its data
// is needed. A Cache lets those results survive across archive instances
// (and, with the disk implementation, across processes) so reopening a
// large PK3 does not pay for decompression again.
//
// Keys are opaque byte strings; Key derives them from the identity of an
// archive entry.
package cache

import (
	"github.com/opencontainers/go-digest"
)

// Cache stores entry data under opaque keys.
//
// Implementations must be safe for concurrent use and handle their own size
// limits and eviction policies.
type Cache interface {
	// Get retrieves data by key. Returns nil, false on a miss.
	Get(key []byte) ([]byte, bool)

	// Put stores data under key.
	Put(key, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// MaxBytes returns the configured size limit (0 = unlimited).
	MaxBytes() int64

	// SizeBytes returns the current cache size in bytes.
	SizeBytes() int64

	// Prune removes cached entries until the cache is at or below targetBytes.
	// Returns the number of bytes freed.
	Prune(targetBytes int64) (int64, error)
}

// Key returns the sha256 of parts, each terminated by a NUL byte so that
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) []byte {
	h := digest.Canonical.Hash()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum(nil)
}
