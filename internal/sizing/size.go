// Package sizing provides safe size arithmetic and conversions for uint32
// entry sizes.
package sizing

import (
	"errors"
	"io"
	"math"
)

// ErrOverflow is returned when a size does not fit the 32-bit entry size limit.
var ErrOverflow = errors.New("sizing: size exceeds 32-bit limit")

// MaxEntrySize is the largest size an entry can hold.
const MaxEntrySize = math.MaxUint32

// ToUint32 converts an int to uint32, returning ErrOverflow if it doesn't fit.
func ToUint32(n int) (uint32, error) {
	if n < 0 || uint64(n) > MaxEntrySize {
		return 0, ErrOverflow
	}
	return uint32(n), nil
}

// Int64ToUint32 converts an int64 to uint32, returning ErrOverflow if it doesn't fit.
func Int64ToUint32(n int64) (uint32, error) {
	if n < 0 || n > MaxEntrySize {
		return 0, ErrOverflow
	}
	return uint32(n), nil
}

// AddUint32 adds two uint32 values, returning (result, false) on overflow.
func AddUint32(a, b uint32) (uint32, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// InBounds reports whether [off, off+n) lies within a buffer of size total.
func InBounds(off, n, total int64) bool {
	if off < 0 || n < 0 || off > total {
		return false
	}
	return n <= total-off
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns ErrOverflow if more than maxSize bytes are available.
func ReadAllWithLimit(r io.Reader, maxSize uint64) ([]byte, error) {
	if maxSize > uint64(math.MaxInt-1) {
		return nil, ErrOverflow
	}
	limit := int64(maxSize) + 1 //nolint:gosec // checked above
	lr := &io.LimitedReader{R: r, N: limit}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize { //nolint:gosec // len is always non-negative
		return nil, ErrOverflow
	}
	return data, nil
}
