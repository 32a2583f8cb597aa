package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/archive/wad"
	"github.com/meigma/slade/internal/testutil"
	"github.com/meigma/slade/texture"
)

func newManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	return New(archive.NewRegistry(), opts...)
}

// load builds an archive from lumps and adds it to m.
func load(t *testing.T, m *Manager, name string, lumps ...testutil.Lump) *archive.Archive {
	t.Helper()
	a, _ := testutil.NewArchive(t, name, lumps)
	m.AddArchive(a)
	return a
}

func patch(path string) testutil.Lump {
	return testutil.Lump{Path: path, Data: testutil.DoomGfx(8, 8, 1)}
}

// doorLumps define DOOR1 from DOOR01 and DOOR02.
func doorLumps() []testutil.Lump {
	return []testutil.Lump{
		{Path: "PNAMES", Data: testutil.PNAMES("DOOR01", "DOOR02")},
		{Path: "TEXTURE1", Data: testutil.TEXTUREX(testutil.TexDef{
			Name: "DOOR1", Width: 64, Height: 128,
			Patches: []testutil.PatchRef{{X: 0, Y: 0, Patch: 0}, {X: 32, Y: 0, Patch: 1}},
		})},
		patch("patches/DOOR01.lmp"),
		patch("patches/DOOR02.lmp"),
	}
}

func TestLaterArchiveWinsUnlessPriority(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "a.pk3", patch("patches/PATCH1.lmp"))
	b := load(t, m, "b.pk3", patch("patches/PATCH1.lmp"))

	fromA := a.EntryAtPath("patches/PATCH1.lmp")
	fromB := b.EntryAtPath("patches/PATCH1.lmp")

	assert.Same(t, fromB, m.PatchEntry("PATCH1", "", nil))
	assert.Same(t, fromB, m.PatchEntry("patch1", "", nil), "lookups ignore case")
	assert.Same(t, fromA, m.PatchEntry("PATCH1", "", a))
	assert.Nil(t, m.PatchEntry("PATCH2", "", nil))
}

func TestPriorityOverridesLoadOrder(t *testing.T) {
	t.Parallel()

	reg := archive.NewRegistry()
	m := New(reg)

	build := func(name string) *archive.Archive {
		a, _ := testutil.NewArchive(t, name, []testutil.Lump{patch("patches/WALL.lmp")})
		return a
	}
	filler := func() { reg.Add(archive.New("filler", testutil.NewMemFormat(true))) }

	c1 := build("c1.pk3")
	c2 := build("c2.pk3")
	c3 := build("c3.pk3")
	require.Equal(t, 0, reg.Add(c1))
	for range 4 {
		filler()
	}
	require.Equal(t, 5, reg.Add(c2))
	for range 4 {
		filler()
	}
	require.Equal(t, 10, reg.Add(c3))

	m.AddArchive(c1)
	m.AddArchive(c2)
	m.AddArchive(c3)

	want := c2.EntryAtPath("patches/WALL.lmp")
	assert.Same(t, want, m.PatchEntry("WALL", "", c2))
	assert.Same(t, c3.EntryAtPath("patches/WALL.lmp"), m.PatchEntry("WALL", "", nil))
}

func TestLaterWinsFollowsRegistryNotInsertion(t *testing.T) {
	t.Parallel()

	reg := archive.NewRegistry()
	m := New(reg)
	c1, _ := testutil.NewArchive(t, "c1.wad", []testutil.Lump{patch("patches/WALL.lmp")})
	c2, _ := testutil.NewArchive(t, "c2.wad", []testutil.Lump{patch("patches/WALL.lmp")})
	reg.Add(c1)
	for range 2 {
		reg.Add(archive.New("filler", testutil.NewMemFormat(true)))
	}
	require.Equal(t, 3, reg.Add(c2))

	// Index c2 before c1: the registry order decides, not the bucket order.
	m.AddArchive(c2)
	m.AddArchive(c1)

	assert.Same(t, c2.EntryAtPath("patches/WALL.lmp"), m.PatchEntry("WALL", "", nil))
}

func TestNamespaceFilters(t *testing.T) {
	t.Parallel()

	reg := archive.NewRegistry()
	m := New(reg)
	inPatches, _ := testutil.NewArchive(t, "patches.wad", []testutil.Lump{
		{Path: "X", Data: testutil.DoomGfx(8, 8, 1), Namespace: archive.NamespacePatches},
	})
	inFlats, _ := testutil.NewArchive(t, "flats.wad", []testutil.Lump{
		{Path: "X", Data: testutil.DoomGfx(8, 8, 2), Namespace: archive.NamespaceFlats},
	})
	reg.Add(inPatches)
	reg.Add(inFlats)
	m.AddArchive(inFlats)
	m.AddArchive(inPatches)

	c1 := inFlats.Entry("X")
	c2 := inPatches.Entry("X")

	tests := []struct {
		name       string
		ns         string
		nsRequired bool
		want       *archive.Entry
	}{
		{"required namespace filters", archive.NamespacePatches, true, c2},
		{"soft namespace prefers match", archive.NamespacePatches, false, c2},
		{"no namespace uses load order", "", false, c1},
		{"required flats", archive.NamespaceFlats, true, c1},
		{"required namespace with no match", archive.NamespaceSprites, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.buckets[bucketPatches]["X"].Get(nil, tt.ns, tt.nsRequired)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Same(t, tt.want, got)
		})
	}
}

func TestPriorityIncludesNestedArchives(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	outer := load(t, m, "outer.pk3", testutil.Lump{Path: "maps/E1.wad", Data: []byte("PWAD")})
	host := outer.EntryAtPath("maps/E1.wad")

	inner, _ := testutil.NewArchive(t, "E1.wad", []testutil.Lump{patch("patches/SIGN.lmp")},
		archive.WithParent(host))
	m.AddArchive(inner)
	later := load(t, m, "later.pk3", patch("patches/SIGN.lmp"))

	assert.Same(t, later.EntryAtPath("patches/SIGN.lmp"), m.PatchEntry("SIGN", "", nil))
	assert.Same(t, inner.EntryAtPath("patches/SIGN.lmp"), m.PatchEntry("SIGN", "", outer))
}

func TestDetachedEntriesAreNeverReturned(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "a.pk3", patch("patches/GONE.lmp"))
	b := load(t, m, "b.pk3", patch("patches/GONE.lmp"))

	// Directory-level removal is silent, so the index still holds the entry.
	e := b.EntryAtPath("patches/GONE.lmp")
	require.NoError(t, e.Parent().RemoveEntry(e))
	assert.Same(t, a.EntryAtPath("patches/GONE.lmp"), m.PatchEntry("GONE", "", nil))

	require.NoError(t, a.Close())
	assert.Nil(t, m.PatchEntry("GONE", "", nil))
	assert.Nil(t, m.PatchEntry("GONE", "", a))
	assert.Empty(t, m.AllPatchEntries(nil))
	assert.Zero(t, m.Stats().Patches)
}

func TestTextureRemovedWithItsLump(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "doors.pk3", doorLumps()...)

	door := m.Texture("DOOR1", nil, nil)
	require.NotNil(t, door)
	assert.Equal(t, int16(64), door.Width)
	require.Len(t, door.Patches, 2)
	assert.Same(t, a.EntryAtPath("patches/DOOR02.lmp"), m.ResolvePatch(door.Patches[1], nil))

	var updates int
	m.Subscribe(func(ev Event) {
		assert.Equal(t, EventResourcesUpdated, ev.Kind)
		updates++
	})

	require.NoError(t, a.RemoveEntry(a.Entry("TEXTURE1")))
	assert.Nil(t, m.Texture("DOOR1", nil, nil))
	assert.Empty(t, m.AllTextureNames())
	assert.Equal(t, 1, updates)
}

func TestTexturePriorityAndIgnore(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "a.pk3", doorLumps()...)
	b := load(t, m, "b.pk3",
		testutil.Lump{Path: "TEXTURES.txt", Data: []byte(`Texture "DOOR1", 128, 128 { Patch "DOOR01", 0, 0 }`)},
	)

	assert.Equal(t, int16(128), m.Texture("DOOR1", nil, nil).Width, "later archive wins")
	assert.Equal(t, int16(64), m.Texture("DOOR1", a, nil).Width)
	assert.Equal(t, int16(64), m.Texture("DOOR1", nil, b).Width)
	assert.Equal(t, int16(128), m.Texture("DOOR1", b, a).Width)

	refs := m.AllTextures(nil, nil)
	require.Len(t, refs, 1)
	assert.Same(t, b, refs[0].Archive)
	assert.Equal(t, []string{"DOOR1"}, m.AllTextureNames())
	assert.Equal(t, 1, m.Stats().Textures)
}

func TestZDoomTexturesLump(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "mod.pk3",
		testutil.Lump{Path: "TEXTURES.txt", Data: []byte(`
			WallTexture "BIGDOOR", 128, 96 { Patch "DOOR01", 0, 0 }
			Flat "FLOOR9", 64, 64 { Graphic "FLOORGFX", 0, 0 }
		`)},
		testutil.Lump{Path: "graphics/FLOORGFX.png", Data: testutil.PNG(64, 64)},
		patch("patches/DOOR01.lmp"),
	)

	big := m.Texture("BIGDOOR", nil, nil)
	require.NotNil(t, big)
	assert.Equal(t, texture.KindWallTexture, big.Kind)

	floor := m.Texture("FLOOR9", nil, nil)
	require.NotNil(t, floor)
	require.Len(t, floor.Patches, 1)
	assert.Same(t, a.EntryAtPath("graphics/FLOORGFX.png"), m.ResolvePatch(floor.Patches[0], nil))
	assert.Equal(t, []string{"BIGDOOR", "FLOOR9"}, m.AllTextureNames())
}

func TestBrokenTextureLumpDefinesNothing(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	load(t, m, "broken.pk3",
		testutil.Lump{Path: "TEXTURES.txt", Data: []byte(`Texture "OK", 64, 64 { } Texture "BROKEN" 64, 64 {`)},
	)
	assert.Nil(t, m.Texture("OK", nil, nil))
	assert.Empty(t, m.AllTextureNames())
}

func TestFlatLookups(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	pk3 := load(t, m, "mod.pk3",
		testutil.Lump{Path: "flats/FLOOR0_1.png", Data: testutil.PNG(64, 64)},
		testutil.Lump{Path: "textures/BRICK.png", Data: testutil.PNG(64, 128)},
	)
	data := testutil.WAD("PWAD",
		testutil.WADLump{Name: "F_START"},
		testutil.WADLump{Name: "NUKAGE1", Data: testutil.Flat(3)},
		testutil.WADLump{Name: "F_END"},
	)
	w, err := wad.Read(testutil.NewByteSource(data), int64(len(data)), "flats.wad")
	require.NoError(t, err)
	m.AddArchive(w)

	floor := pk3.EntryAtPath("flats/FLOOR0_1.png")
	assert.Same(t, floor, m.FlatEntry("FLOOR0_1", nil))
	assert.Same(t, floor, m.FlatEntry("flats/floor0_1.png", nil), "hierarchical archives index flats by path")
	assert.Same(t, w.Entry("NUKAGE1"), m.FlatEntry("NUKAGE1", nil))
	assert.Nil(t, m.FlatEntry("NUKAGE1.LMP", nil))

	brick := pk3.EntryAtPath("textures/BRICK.png")
	assert.Same(t, brick, m.FlatEntry("BRICK", nil), "flats fall back to stand-alone textures")
	assert.Same(t, brick, m.TextureEntry("BRICK", "", nil))
	assert.Same(t, brick, m.TextureEntry("TEXTURES/BRICK.PNG", "", nil))
	assert.Nil(t, m.TextureEntry("BRICK", archive.NamespaceHires, nil))

	assert.Same(t, floor, m.PatchEntry("FLOOR0_1", archive.NamespaceFlats, nil))
	assert.Same(t, brick, m.PatchEntry("BRICK", archive.NamespaceTextures, nil))
	assert.Same(t, brick, m.PatchEntry("BRICK", "", nil), "patches fall back to stand-alone textures")

	assert.Equal(t, []string{"FLATS/FLOOR0_1.PNG", "FLOOR0_1", "NUKAGE1"}, m.AllFlatNames())
	assert.Len(t, m.AllFlatEntries(nil), 2, "an entry indexed by name and path is listed once")
}

func TestGraphicAndPatchChains(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "mod.pk3",
		testutil.Lump{Path: "graphics/TITLE.png", Data: testutil.PNG(320, 200)},
		testutil.Lump{Path: "sprites/TROOA1.lmp", Data: testutil.DoomGfx(8, 8, 2)},
		patch("patches/TITLE.lmp"),
		testutil.Lump{Path: "flats/ONLYFLAT.png", Data: testutil.PNG(64, 64)},
		testutil.Lump{Path: "acs/SCRIPT.png", Data: testutil.PNG(8, 8)},
	)

	assert.Same(t, a.EntryAtPath("graphics/TITLE.png"), m.GraphicEntry("TITLE", nil))
	assert.Same(t, a.EntryAtPath("patches/TITLE.lmp"), m.PatchEntry("TITLE", "", nil))
	assert.Same(t, a.EntryAtPath("flats/ONLYFLAT.png"), m.GraphicEntry("ONLYFLAT", nil))

	sprite := a.EntryAtPath("sprites/TROOA1.lmp")
	assert.Same(t, sprite, m.PatchEntry("TROOA1", "", nil), "any namespace as a last resort")
	assert.Same(t, sprite, m.PatchEntry("TROOA1", archive.NamespaceSprites, nil))

	assert.Nil(t, m.PatchEntry("SCRIPT", "", nil), "graphics outside resource namespaces are ignored")
	assert.Equal(t, 1, m.Stats().Graphics)

	graphic := texture.Patch{Name: "TITLE", Kind: texture.PatchKindGraphic}
	assert.Same(t, a.EntryAtPath("graphics/TITLE.png"), m.ResolvePatch(graphic, nil))
	graphic.Kind = texture.PatchKindPatch
	assert.Same(t, a.EntryAtPath("patches/TITLE.lmp"), m.ResolvePatch(graphic, nil))
}

func TestPalettes(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "base.wad", testutil.Lump{Path: "PLAYPAL", Data: testutil.Palette(14)})
	b := load(t, m, "mod.pk3", testutil.Lump{Path: "PLAYPAL.pal", Data: testutil.Palette(1)})

	assert.Same(t, b.Entry("PLAYPAL.pal"), m.PaletteEntry("PLAYPAL", nil))
	assert.Same(t, a.Entry("PLAYPAL"), m.PaletteEntry("playpal", a))
	assert.Equal(t, 1, m.Stats().Palettes)
}

func TestEventsKeepIndexCurrent(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "live.pk3")

	var events []Event
	m.Subscribe(func(ev Event) { events = append(events, ev) })

	e := testutil.AddLump(t, a, patch("patches/NEWPATCH.lmp"))
	assert.Same(t, e, m.PatchEntry("NEWPATCH", "", nil))
	require.NotEmpty(t, events)
	assert.Same(t, e, events[len(events)-1].Entry)

	require.NoError(t, a.RenameEntry(e, "RENAMED.lmp"))
	assert.Nil(t, m.PatchEntry("NEWPATCH", "", nil))
	assert.Same(t, e, m.PatchEntry("RENAMED", "", nil))

	require.NoError(t, a.MoveEntry(e, a.Root().DirAtPath("flats", true), -1))
	assert.Same(t, e, m.FlatEntry("RENAMED", nil), "moving into flats/ changes the namespace")
	assert.Nil(t, m.get(bucketPatches, "RENAMED", nil, archive.NamespacePatches, true))

	require.NoError(t, e.ImportMem([]byte("not a graphic")))
	assert.Nil(t, m.FlatEntry("RENAMED", nil), "edited data is re-classified")

	require.NoError(t, a.RemoveEntry(e))
	assert.Nil(t, m.FlatEntry("RENAMED", nil))
	for _, ev := range events {
		assert.Same(t, a, ev.Archive)
	}
}

func TestTextureLumpEdited(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "doors.pk3", doorLumps()...)
	require.NotNil(t, m.Texture("DOOR1", nil, nil))

	tex1 := a.Entry("TEXTURE1")
	require.NoError(t, tex1.ImportMem(testutil.TEXTUREX(testutil.TexDef{
		Name: "DOOR2", Width: 64, Height: 64,
		Patches: []testutil.PatchRef{{Patch: 1}},
	})))
	assert.Nil(t, m.Texture("DOOR1", nil, nil))
	require.NotNil(t, m.Texture("DOOR2", nil, nil))
	assert.Equal(t, []string{"DOOR2"}, m.AllTextureNames())
}

func TestRemoveArchive(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "doors.pk3", doorLumps()...)
	require.Equal(t, 0, m.Registry().Index(a))
	require.Equal(t, 2, m.Stats().Patches)

	m.RemoveArchive(a)
	assert.Equal(t, -1, m.Registry().Index(a))
	assert.Equal(t, Stats{}, m.Stats())
	assert.Nil(t, m.Texture("DOOR1", nil, nil))

	testutil.AddLump(t, a, patch("patches/LATE.lmp"))
	assert.Nil(t, m.PatchEntry("LATE", "", nil), "removed archives are no longer followed")

	m.RemoveArchive(a)
}

func TestAddArchiveTwice(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "a.pk3", patch("patches/P.lmp"))
	m.AddArchive(a)
	m.AddEntry(a.EntryAtPath("patches/P.lmp"))

	assert.Equal(t, 1, m.buckets[bucketPatches]["P"].Len())
	assert.Len(t, m.AllPatchEntries(nil), 1)
}

func TestRemoveEntryDirectly(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	a := load(t, m, "doors.pk3", doorLumps()...)

	m.RemoveEntry(a.Entry("TEXTURE1"))
	assert.Nil(t, m.Texture("DOOR1", nil, nil))

	m.RemoveEntry(a.EntryAtPath("patches/DOOR01.lmp"))
	assert.Nil(t, m.PatchEntry("DOOR01", "", nil))
	assert.NotNil(t, m.PatchEntry("DOOR02", "", nil))

	m.RemoveEntry(archive.NewEntry("LOOSE", 0))
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	var n int
	cancel := m.Subscribe(func(Event) { n++ })
	load(t, m, "a.pk3")
	cancel()
	load(t, m, "b.pk3")
	assert.Equal(t, 1, n)
	assert.Equal(t, "resources updated", EventResourcesUpdated.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}

func TestParseCacheDisabled(t *testing.T) {
	t.Parallel()

	m := newManager(t, WithParseCache(0))
	a := load(t, m, "doors.pk3", doorLumps()...)
	require.NotNil(t, m.Texture("DOOR1", nil, nil))
	require.NoError(t, a.RemoveEntry(a.Entry("TEXTURE1")))
	assert.Nil(t, m.Texture("DOOR1", nil, nil))
}
