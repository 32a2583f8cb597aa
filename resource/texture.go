package resource

import (
	"slices"
	"weak"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/texture"
)

// TextureRef is a composite texture definition together with the archive
// that defined it.
type TextureRef struct {
	Texture *texture.CTexture
	Archive *archive.Archive
}

type textureCopy struct {
	tex     *texture.CTexture
	archive *archive.Archive
	source  weak.Pointer[archive.Entry]
}

// TextureResource is every definition of one composite texture name. Each
// definition is a private copy; the lump it came from can change or go
// away without affecting it.
type TextureResource struct {
	reg      *archive.Registry
	textures []textureCopy
}

func newTextureResource(reg *archive.Registry) *TextureResource {
	return &TextureResource{reg: reg}
}

func (r *TextureResource) add(t *texture.CTexture, a *archive.Archive, source *archive.Entry) {
	r.textures = append(r.textures, textureCopy{
		tex:     t.Clone(),
		archive: a,
		source:  weak.Make(source),
	})
}

// removeFrom drops the definitions that came from source in a. A nil source
// matches every definition from a.
func (r *TextureResource) removeFrom(a *archive.Archive, source *archive.Entry) {
	var p weak.Pointer[archive.Entry]
	if source != nil {
		p = weak.Make(source)
	}
	r.textures = slices.DeleteFunc(r.textures, func(c textureCopy) bool {
		return c.archive == a && (source == nil || c.source == p)
	})
}

func (r *TextureResource) prune() {
	r.textures = slices.DeleteFunc(r.textures, func(c textureCopy) bool {
		return c.archive == nil || c.archive.IsClosed()
	})
}

// Len returns the number of definitions from open archives.
func (r *TextureResource) Len() int {
	r.prune()
	return len(r.textures)
}

// Get picks the definition that should be used, skipping any from ignore.
// A definition from priority (or an archive nested in it) wins outright;
// otherwise the one from the latest registered archive does. The returned
// texture is shared and must not be modified.
func (r *TextureResource) Get(priority, ignore *archive.Archive) TextureRef {
	r.prune()
	var best *textureCopy
	for i := range r.textures {
		c := &r.textures[i]
		if ignore != nil && c.archive == ignore {
			continue
		}
		if priority != nil && c.archive.IsSubArchiveOf(priority) {
			return TextureRef{Texture: c.tex, Archive: c.archive}
		}
		if best == nil || r.reg.Index(best.archive) <= r.reg.Index(c.archive) {
			best = c
		}
	}
	if best == nil {
		return TextureRef{}
	}
	return TextureRef{Texture: best.tex, Archive: best.archive}
}
