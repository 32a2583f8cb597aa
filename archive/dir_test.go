package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/slade/archive/entrytype"
)

func names(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name()
	}
	return out
}

// assertLinks checks that sibling pointers mirror the entry order of d.
func assertLinks(t *testing.T, d *Dir) {
	t.Helper()
	for i := range d.NumEntries(false) {
		e := d.Entry(i)
		assert.Same(t, d, e.Parent())
		if i == 0 {
			assert.Nil(t, e.Prev(), "first entry has no prev")
		} else {
			assert.Same(t, d.Entry(i-1), e.Prev())
		}
		if i == d.NumEntries(false)-1 {
			assert.Nil(t, e.Next(), "last entry has no next")
		} else {
			assert.Same(t, d.Entry(i+1), e.Next())
		}
	}
}

func TestDirAddRemoveKeepsOrderAndLinks(t *testing.T) {
	t.Parallel()

	d := NewDir("")
	a, b, c := NewEntry("A", 0), NewEntry("B", 0), NewEntry("C", 0)
	require.NoError(t, d.AddEntry(a, -1))
	require.NoError(t, d.AddEntry(c, 99))
	require.NoError(t, d.AddEntry(b, 1))
	assert.Equal(t, []string{"A", "B", "C"}, names(d.EntryList()))
	assertLinks(t, d)
	assert.True(t, d.Modified())

	require.ErrorIs(t, d.AddEntry(b, 0), ErrAttached)

	require.NoError(t, d.RemoveEntry(b))
	assert.Nil(t, b.Parent())
	assert.Nil(t, b.Prev())
	assert.Nil(t, b.Next())
	assert.Equal(t, []string{"A", "C"}, names(d.EntryList()))
	assertLinks(t, d)

	require.ErrorIs(t, d.RemoveEntry(b), ErrNotInArchive)

	removed, err := d.RemoveEntryAt(0)
	require.NoError(t, err)
	assert.Same(t, a, removed)
	assertLinks(t, d)

	_, err = d.RemoveEntryAt(5)
	require.ErrorIs(t, err, ErrInvalidPosition)
}

func TestDirMoveAndSwap(t *testing.T) {
	t.Parallel()

	root := NewDir("")
	sub := root.AddDir("flats")
	for _, n := range []string{"A", "B", "C", "D"} {
		require.NoError(t, root.AddEntry(NewEntry(n, 0), -1))
	}

	require.NoError(t, root.SwapEntries(0, 3))
	assert.Equal(t, []string{"D", "B", "C", "A"}, names(root.EntryList()))
	assertLinks(t, root)

	b := root.EntryByName("b", false)
	require.NoError(t, root.MoveEntry(b, root, 0))
	assert.Equal(t, []string{"B", "D", "C", "A"}, names(root.EntryList()))
	assertLinks(t, root)

	require.NoError(t, root.MoveEntry(b, sub, -1))
	assert.Equal(t, []string{"D", "C", "A"}, names(root.EntryList()))
	assert.Same(t, sub, b.Parent())
	assert.Equal(t, "/flats/B", b.Path(true))
	assertLinks(t, root)
	assertLinks(t, sub)

	require.ErrorIs(t, root.SwapEntries(0, 9), ErrInvalidPosition)
}

func TestDirTree(t *testing.T) {
	t.Parallel()

	root := NewDir("")
	tex := root.DirAtPath("textures/walls", true)
	require.NotNil(t, tex)
	assert.Equal(t, "/textures/walls/", tex.Path())
	assert.Same(t, tex, root.DirAtPath("/TEXTURES/Walls", false))
	assert.Same(t, root, tex.Root())
	assert.Nil(t, root.DirAtPath("missing", false))
	assert.Same(t, root.Dir("textures"), tex.DirAtPath("..", false))

	assert.Same(t, root.Dir("textures"), root.AddDir("Textures"), "sibling dir names are unique")
	assert.Len(t, root.Dirs(), 1)

	require.NoError(t, tex.AddEntry(NewEntry("BRICK", 0), -1))
	require.NoError(t, root.AddEntry(NewEntry("PLAYPAL", 0), -1))
	assert.Equal(t, 2, root.NumEntries(true))
	assert.Equal(t, 1, root.NumEntries(false))
	assert.Equal(t, []string{"PLAYPAL", "BRICK"}, names(root.AllEntries()))

	detached := root.RemoveDir("textures")
	require.NotNil(t, detached)
	assert.Nil(t, detached.Parent())
	assert.Equal(t, 1, root.NumEntries(true))
	assert.Nil(t, root.RemoveDir("textures"))

	require.NoError(t, root.AttachDir(detached))
	require.ErrorIs(t, root.AttachDir(NewDir("textures")), ErrAttached)
}

func TestDirModifiedPropagates(t *testing.T) {
	t.Parallel()

	a, _ := newTestArchive(t, "sprites/TROOA1", "x")
	assert.False(t, a.Modified())
	sprites := a.Root().Dir("sprites")
	require.NoError(t, sprites.AddEntry(NewEntry("TROOB1", 0), -1))
	assert.True(t, sprites.Modified())
	assert.True(t, a.Root().Modified())
}

func TestFindPositionalTieBreak(t *testing.T) {
	t.Parallel()

	a, _ := newTestArchive(t,
		"PNAMES", "first",
		"TEXTURE1", "t1",
		"PNAMES", "second",
		"flats/PNAMES", "nested",
		"flats/FLOOR1.png", "f",
		"patches/DOOR01.lmp", "p",
	)

	first := a.FindFirst(SearchOptions{Name: "pnames"})
	require.NotNil(t, first)
	assert.Equal(t, []byte("first"), first.Data(true))

	last := a.FindLast(SearchOptions{Name: "PNAMES"})
	require.NotNil(t, last)
	assert.Equal(t, []byte("second"), last.Data(true))

	deepLast := a.FindLast(SearchOptions{Name: "PNAMES", SearchSubdirs: true})
	require.NotNil(t, deepLast)
	assert.Equal(t, []byte("nested"), deepLast.Data(true), "reverse scan visits subdirs before own entries")

	all := a.FindAll(SearchOptions{Name: "PNAMES", SearchSubdirs: true})
	require.Len(t, all, 3)
	assert.Equal(t, []byte("nested"), all[2].Data(true))

	assert.Nil(t, a.FindFirst(SearchOptions{Name: "FLOOR1"}))
	assert.NotNil(t, a.FindFirst(SearchOptions{Name: "FLOOR1", IgnoreExt: true, SearchSubdirs: true}))
	assert.NotNil(t, a.FindFirst(SearchOptions{Name: "floor?.*", SearchSubdirs: true}))

	inFlats := a.FindAll(SearchOptions{Namespace: "flats", SearchSubdirs: true})
	assert.Equal(t, []string{"PNAMES", "FLOOR1.png"}, names(inFlats))

	patches := a.Root().Dir("patches")
	assert.NotNil(t, a.FindFirst(SearchOptions{Name: "DOOR01.LMP", Dir: patches}))
	assert.Nil(t, a.FindFirst(SearchOptions{Name: "DOOR01.LMP", Dir: NewDir("other")}))
}

func TestFindByTypeDetects(t *testing.T) {
	t.Parallel()

	pn := []byte{1, 0, 0, 0, 'W', 'A', 'L', 'L', 0, 0, 0, 0}
	a, _ := newTestArchive(t, "PNAMES", string(pn), "README", "hello\n")

	pnamesType := entrytype.Default().Get(entrytype.IDPnames)
	e := a.FindLast(SearchOptions{Type: pnamesType})
	require.NotNil(t, e)
	assert.Equal(t, "PNAMES", e.Name())
	assert.Equal(t, entrytype.IDPnames, e.Type().ID)
	assert.False(t, e.IsLoaded(), "detection releases data it loaded")

	assert.Nil(t, a.FindFirst(SearchOptions{Type: pnamesType, Name: "README"}))
}
