// Package memchunk provides a growable byte buffer with a read/write cursor.
package memchunk

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/slade/internal/sizing"
)

// ErrOutOfRange is returned when a seek or import range falls outside the data.
var ErrOutOfRange = errors.New("memchunk: offset out of range")

// Interface compliance.
var (
	_ io.ReadWriteSeeker = (*Chunk)(nil)
	_ io.ReaderAt        = (*Chunk)(nil)
)

// Chunk is a growable byte buffer with a cursor.
//
// The zero value is an empty chunk ready for use. A Chunk is not safe for
// concurrent use.
type Chunk struct {
	data []byte
	pos  int64
}

// New returns a chunk holding a copy of b.
func New(b []byte) *Chunk {
	c := &Chunk{}
	c.Import(b)
	return c
}

// Size returns the length of the data.
func (c *Chunk) Size() uint32 {
	return uint32(len(c.data)) //nolint:gosec // imports are bounded by sizing.MaxEntrySize
}

// Bytes returns the underlying data. The slice aliases the chunk.
func (c *Chunk) Bytes() []byte {
	return c.data
}

// HasData reports whether the chunk holds any bytes.
func (c *Chunk) HasData() bool {
	return len(c.data) > 0
}

// Clear empties the chunk and resets the cursor.
func (c *Chunk) Clear() {
	c.data = nil
	c.pos = 0
}

// Import replaces the contents with a copy of b.
func (c *Chunk) Import(b []byte) {
	c.data = append([]byte(nil), b...)
	c.pos = 0
}

// ImportFile replaces the contents with length bytes of the file at path,
// starting at offset. A length of 0 reads to the end of the file.
func (c *Chunk) ImportFile(path string, offset, length int64) error {
	f, err := os.Open(path) //nolint:gosec // caller-provided import path
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if length == 0 {
		length = info.Size() - offset
	}
	if !sizing.InBounds(offset, length, info.Size()) {
		return &os.PathError{Op: "import", Path: path, Err: ErrOutOfRange}
	}
	if _, err := sizing.Int64ToUint32(length); err != nil {
		return err
	}
	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	c.data = buf
	c.pos = 0
	return nil
}

// ImportReader replaces the contents with exactly length bytes read from r.
func (c *Chunk) ImportReader(r io.Reader, length uint32) error {
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	c.data = buf
	c.pos = 0
	return nil
}

// ExportFile writes the contents to path, replacing it atomically.
func (c *Chunk) ExportFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(c.data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Read reads from the cursor position and advances it.
func (c *Chunk) Read(p []byte) (int, error) {
	if c.pos >= int64(len(c.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, c.data[c.pos:])
	c.pos += int64(n)
	return n, nil
}

// ReadAt reads len(p) bytes at off without moving the cursor.
func (c *Chunk) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrOutOfRange
	}
	if off >= int64(len(c.data)) {
		return 0, io.EOF
	}
	n := copy(p, c.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Write writes p at the cursor, growing the buffer as needed.
func (c *Chunk) Write(p []byte) (int, error) {
	end := c.pos + int64(len(p))
	if end > sizing.MaxEntrySize {
		return 0, sizing.ErrOverflow
	}
	if end > int64(len(c.data)) {
		if end <= int64(cap(c.data)) {
			old := int64(len(c.data))
			c.data = c.data[:end]
			clear(c.data[old:])
		} else {
			grown := make([]byte, end, max(end, int64(cap(c.data))*2))
			copy(grown, c.data)
			c.data = grown
		}
	}
	n := copy(c.data[c.pos:], p)
	c.pos += int64(n)
	return n, nil
}

// Seek moves the cursor. Seeking past the end is allowed; the next Write
// fills the gap with zeroes.
func (c *Chunk) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = c.pos + offset
	case io.SeekEnd:
		abs = int64(len(c.data)) + offset
	default:
		return 0, errors.New("memchunk: invalid whence")
	}
	if abs < 0 {
		return 0, ErrOutOfRange
	}
	c.pos = abs
	return abs, nil
}

// Tell returns the cursor position.
func (c *Chunk) Tell() int64 {
	return c.pos
}

// Resize changes the size to n. Growing zero-fills; with preserve false the
// whole buffer is zeroed. The cursor is clamped to the new size.
func (c *Chunk) Resize(n uint32, preserve bool) {
	buf := make([]byte, n)
	if preserve {
		copy(buf, c.data)
	}
	c.data = buf
	if c.pos > int64(n) {
		c.pos = int64(n)
	}
}

// CRC returns the CRC-32 (IEEE) of the data.
func (c *Chunk) CRC() uint32 {
	return crc32.ChecksumIEEE(c.data)
}

// Hash returns a 64-bit xxhash fingerprint of the data.
func (c *Chunk) Hash() uint64 {
	return xxhash.Sum64(c.data)
}

// Digest returns the sha256 content digest of the data.
func (c *Chunk) Digest() digest.Digest {
	return digest.FromBytes(c.data)
}
