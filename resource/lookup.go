package resource

import (
	"maps"
	"slices"
	"strings"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/internal/strutil"
	"github.com/meigma/slade/texture"
)

// get resolves key in one bucket. Missing keys resolve to nil.
func (m *Manager) get(id bucketID, key string, priority *archive.Archive, ns string, nsRequired bool) *archive.Entry {
	r, ok := m.buckets[id][strutil.Upper(key)]
	if !ok {
		return nil
	}
	return r.Get(priority, ns, nsRequired)
}

// PaletteEntry returns the palette lump called name.
func (m *Manager) PaletteEntry(name string, priority *archive.Archive) *archive.Entry {
	return m.get(bucketPalettes, name, priority, "", false)
}

// PatchEntry returns the graphic to use as the patch called name.
//
// With ns "flats" the flat of that name is used, and with ns "textures" the
// stand-alone texture. Otherwise patches in ns (default "patches") are
// preferred, then graphics, then stand-alone textures, then a patch from
// any namespace.
func (m *Manager) PatchEntry(name, ns string, priority *archive.Archive) *archive.Entry {
	switch strings.ToLower(ns) {
	case archive.NamespaceFlats:
		return m.FlatEntry(name, priority)
	case archive.NamespaceTextures:
		return m.TextureEntry(name, archive.NamespaceTextures, priority)
	case "":
		ns = archive.NamespacePatches
	}
	if e := m.get(bucketPatches, name, priority, ns, true); e != nil {
		return e
	}
	if e := m.get(bucketPatches, name, priority, archive.NamespaceGraphics, true); e != nil {
		return e
	}
	if e := m.get(bucketStandalone, name, priority, archive.NamespaceTextures, true); e != nil {
		return e
	}
	return m.get(bucketPatches, name, priority, "", false)
}

// GraphicEntry returns the graphic called name, preferring the graphics
// namespace over patches and patches over flats.
func (m *Manager) GraphicEntry(name string, priority *archive.Archive) *archive.Entry {
	if e := m.get(bucketPatches, name, priority, archive.NamespaceGraphics, true); e != nil {
		return e
	}
	if e := m.get(bucketPatches, name, priority, archive.NamespacePatches, true); e != nil {
		return e
	}
	return m.get(bucketFlats, name, priority, "", false)
}

// FlatEntry returns the flat called name (or, in hierarchical archives, at
// that path), falling back to a stand-alone texture.
func (m *Manager) FlatEntry(name string, priority *archive.Archive) *archive.Entry {
	if e := m.get(bucketFlats, name, priority, archive.NamespaceFlats, false); e != nil {
		return e
	}
	return m.get(bucketStandalone, name, priority, archive.NamespaceTextures, false)
}

// TextureEntry returns the stand-alone texture called name. A non-empty ns
// restricts the result to that namespace.
func (m *Manager) TextureEntry(name, ns string, priority *archive.Archive) *archive.Entry {
	return m.get(bucketStandalone, name, priority, ns, true)
}

// Texture returns the composite texture called name, ignoring definitions
// from ignore. The result is shared and must not be modified.
func (m *Manager) Texture(name string, priority, ignore *archive.Archive) *texture.CTexture {
	r, ok := m.textures[strutil.Upper(name)]
	if !ok {
		return nil
	}
	return r.Get(priority, ignore).Texture
}

// ResolvePatch returns the entry p of a composite texture refers to.
func (m *Manager) ResolvePatch(p texture.Patch, priority *archive.Archive) *archive.Entry {
	if p.Kind == texture.PatchKindGraphic {
		return m.GraphicEntry(p.Name, priority)
	}
	return m.PatchEntry(p.Name, "", priority)
}

// allEntries resolves every key of a bucket, in key order. An entry
// reachable under several keys is listed once.
func (m *Manager) allEntries(id bucketID, priority *archive.Archive) []*archive.Entry {
	var out []*archive.Entry
	seen := make(map[*archive.Entry]bool)
	for _, key := range slices.Sorted(maps.Keys(m.buckets[id])) {
		e := m.buckets[id][key].Get(priority, "", false)
		if e == nil || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// AllPatchEntries returns the resolved entry of every patch name.
func (m *Manager) AllPatchEntries(priority *archive.Archive) []*archive.Entry {
	return m.allEntries(bucketPatches, priority)
}

// AllFlatEntries returns the resolved entry of every flat name and path.
func (m *Manager) AllFlatEntries(priority *archive.Archive) []*archive.Entry {
	return m.allEntries(bucketFlats, priority)
}

// AllTextures returns the resolved definition of every composite texture
// name, sorted by name, skipping definitions from ignore.
func (m *Manager) AllTextures(priority, ignore *archive.Archive) []TextureRef {
	var out []TextureRef
	for _, name := range slices.Sorted(maps.Keys(m.textures)) {
		if ref := m.textures[name].Get(priority, ignore); ref.Texture != nil {
			out = append(out, ref)
		}
	}
	return out
}

// AllTextureNames returns every composite texture name that resolves to a
// definition, sorted.
func (m *Manager) AllTextureNames() []string {
	var out []string
	for _, name := range slices.Sorted(maps.Keys(m.textures)) {
		if m.textures[name].Len() > 0 {
			out = append(out, name)
		}
	}
	return out
}

// AllFlatNames returns every flat name (and path) with a live entry, sorted.
func (m *Manager) AllFlatNames() []string {
	var out []string
	for _, name := range slices.Sorted(maps.Keys(m.buckets[bucketFlats])) {
		if m.buckets[bucketFlats][name].Len() > 0 {
			out = append(out, name)
		}
	}
	return out
}

// TextureName returns the stand-alone texture name last indexed under the
// Doom64 hash h, or "".
func (m *Manager) TextureName(h uint16) string {
	return m.hashes[h]
}
