package resource

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/archive/entrytype"
	"github.com/meigma/slade/texture"
)

const defaultParseCacheSize = 64

// parseCache remembers the definitions parsed from texture lumps, keyed by
// a hash of the bytes they were parsed from. Cached slices are never
// modified.
type parseCache struct {
	lfu *tinylfu.T[uint64, []*texture.CTexture]
}

func newParseCache(n int) *parseCache {
	if n <= 0 {
		return nil
	}
	return &parseCache{
		lfu: tinylfu.New[uint64, []*texture.CTexture](n, n*10, func(k uint64) uint64 { return k }),
	}
}

func (c *parseCache) get(key uint64) ([]*texture.CTexture, bool) {
	if c == nil {
		return nil, false
	}
	return c.lfu.Get(key)
}

func (c *parseCache) add(key uint64, textures []*texture.CTexture) {
	if c == nil {
		return
	}
	c.lfu.Add(key, textures)
}

// parseKey hashes the lump kind and every input the parse depends on.
func parseKey(kind string, inputs ...[]byte) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(kind)
	for _, in := range inputs {
		_, _ = d.Write(binary.LittleEndian.AppendUint64(nil, uint64(len(in))))
		_, _ = d.Write(in)
	}
	return d.Sum64()
}

// parseTextures returns the composite textures defined by e, which must be
// a TEXTUREx or TEXTURES lump. TEXTUREx lumps are read against the last
// PNAMES lump of the same archive. Lumps that fail to parse define nothing.
func (m *Manager) parseTextures(e *archive.Entry) []*texture.CTexture {
	a := e.Archive()
	if a == nil {
		return nil
	}
	data := e.Data(true)

	switch e.Type().ID {
	case entrytype.IDTextureX:
		var pnames []byte
		if typ := m.types.Get(entrytype.IDPnames); typ != nil {
			if pe := a.FindLast(archive.SearchOptions{Type: typ}); pe != nil {
				pnames = pe.Data(true)
			}
		}
		key := parseKey(entrytype.IDTextureX, data, pnames)
		if cached, ok := m.parsed.get(key); ok {
			return cached
		}
		var pt texture.PatchTable
		if err := pt.LoadPNAMES(pnames); err != nil {
			m.log().Warn("patch table unreadable", "archive", a.Filename(), "entry", e.Path(true), "error", err)
		}
		var list texture.TextureXList
		if err := list.ReadTEXTUREX(data, &pt); err != nil {
			m.log().Warn("texture list unreadable", "archive", a.Filename(), "entry", e.Path(true), "error", err)
		}
		m.parsed.add(key, list.Textures())
		return list.Textures()

	case entrytype.IDZDTextures:
		key := parseKey(entrytype.IDZDTextures, data)
		if cached, ok := m.parsed.get(key); ok {
			return cached
		}
		var list texture.TextureXList
		if err := list.ReadTEXTURES(data); err != nil {
			m.log().Warn("texture definitions unreadable", "archive", a.Filename(), "entry", e.Path(true), "error", err)
		}
		m.parsed.add(key, list.Textures())
		return list.Textures()
	}
	return nil
}
