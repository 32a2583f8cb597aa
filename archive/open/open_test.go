package open

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/slade/cache"
	"github.com/meigma/slade/internal/testutil"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestSniff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"iwad", testutil.WAD("IWAD"), FormatWAD},
		{"pwad", testutil.WAD("PWAD"), FormatWAD},
		{"zip", testutil.Zip(t, testutil.ZipFile{Name: "A.txt", Data: []byte("a")}), FormatPK3},
		{"empty zip", testutil.Zip(t), FormatPK3},
		{"short", []byte("PK"), ""},
		{"text", []byte("hello world"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Sniff(testutil.NewByteSource(tt.data)))
		})
	}
}

func TestFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	wadPath := writeFile(t, dir, "maps.dat", testutil.WAD("PWAD",
		testutil.WADLump{Name: "MAP01"},
		testutil.WADLump{Name: "THINGS", Data: []byte{1, 2, 3}},
	))
	pk3Path := writeFile(t, dir, "mod.zip", testutil.Zip(t,
		testutil.ZipFile{Name: "flats/FLOOR.png", Data: testutil.PNG(64, 64)},
	))
	junk := writeFile(t, dir, "notes.pk3", []byte("not an archive"))

	a, err := File(wadPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.Equal(t, "wad", a.Format().ID(), "signature beats extension")
	assert.Equal(t, 2, a.NumEntries())

	b, err := File(pk3Path, WithCache(cache.NewMemory(8)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	assert.Equal(t, "pk3", b.Format().ID())
	assert.NotNil(t, b.EntryAtPath("flats/FLOOR.png"))

	_, err = File(junk)
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, err = File(filepath.Join(dir, "missing.wad"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestAllKeepsOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.wad", "b.pk3", "c.wad", "d.pk3", "e.wad"} {
		var data []byte
		if filepath.Ext(name) == ".wad" {
			data = testutil.WAD("PWAD", testutil.WADLump{Name: "LUMP", Data: []byte(name)})
		} else {
			data = testutil.Zip(t, testutil.ZipFile{Name: "LUMP", Data: []byte(name)})
		}
		paths = append(paths, writeFile(t, dir, name, data))
	}

	archives, err := All(context.Background(), paths, WithConcurrency(2))
	require.NoError(t, err)
	require.Len(t, archives, len(paths))
	for i, a := range archives {
		assert.Equal(t, paths[i], a.Filename())
		assert.Equal(t, filepath.Base(paths[i]), string(a.Entry("LUMP").Data(true)))
		require.NoError(t, a.Close())
	}
}

func TestAllFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.wad", testutil.WAD("PWAD"))
	bad := writeFile(t, dir, "bad.wad", []byte("PWAD"))

	archives, err := All(context.Background(), []string{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.wad")
	assert.Nil(t, archives)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = All(ctx, []string{good})
	require.ErrorIs(t, err, context.Canceled)

	archives, err = All(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, archives)
}
