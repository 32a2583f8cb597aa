package memchunk

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkWriteGrowsAndReads(t *testing.T) {
	t.Parallel()

	var c Chunk
	n, err := c.Write([]byte("DOOR"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint32(4), c.Size())
	assert.Equal(t, int64(4), c.Tell())

	_, err = c.Seek(8, io.SeekStart)
	require.NoError(t, err)
	_, err = c.Write([]byte("01"))
	require.NoError(t, err)
	assert.Equal(t, []byte("DOOR\x00\x00\x00\x0001"), c.Bytes())

	_, err = c.Seek(0, io.SeekStart)
	require.NoError(t, err)
	got, err := io.ReadAll(&c)
	require.NoError(t, err)
	assert.Equal(t, c.Bytes(), got)
}

func TestChunkSeek(t *testing.T) {
	t.Parallel()

	c := New([]byte("0123456789"))

	pos, err := c.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(8), pos)

	pos, err = c.Seek(-3, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	_, err = c.Seek(-1, io.SeekStart)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestChunkResize(t *testing.T) {
	t.Parallel()

	c := New([]byte{1, 2, 3, 4})
	c.Resize(6, true)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0}, c.Bytes())

	c.Resize(2, true)
	assert.Equal(t, []byte{1, 2}, c.Bytes())

	c.Resize(3, false)
	assert.Equal(t, []byte{0, 0, 0}, c.Bytes())
}

func TestChunkImportCopies(t *testing.T) {
	t.Parallel()

	src := []byte("PLAYPAL")
	c := New(src)
	src[0] = 'X'
	assert.Equal(t, []byte("PLAYPAL"), c.Bytes())
}

func TestChunkFileRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "lump.lmp")

	c := New([]byte("header-body-trailer"))
	require.NoError(t, c.ExportFile(path))

	var part Chunk
	require.NoError(t, part.ImportFile(path, 7, 4))
	assert.Equal(t, []byte("body"), part.Bytes())

	var whole Chunk
	require.NoError(t, whole.ImportFile(path, 0, 0))
	assert.Equal(t, c.Bytes(), whole.Bytes())

	err := part.ImportFile(path, 10, 100)
	require.ErrorIs(t, err, ErrOutOfRange)
	var pathErr *os.PathError
	require.ErrorAs(t, err, &pathErr)
}

func TestChunkImportReader(t *testing.T) {
	t.Parallel()

	var c Chunk
	require.NoError(t, c.ImportReader(bytes.NewReader([]byte("abcdef")), 3))
	assert.Equal(t, []byte("abc"), c.Bytes())

	require.Error(t, c.ImportReader(bytes.NewReader([]byte("ab")), 3))
}

func TestChunkChecksums(t *testing.T) {
	t.Parallel()

	c := New([]byte("123456789"))
	assert.Equal(t, uint32(0xCBF43926), c.CRC())
	assert.Equal(t, digest.FromString("123456789"), c.Digest())
	assert.Equal(t, New([]byte("123456789")).Hash(), c.Hash())
	assert.NotEqual(t, New([]byte("12345678")).Hash(), c.Hash())
}
