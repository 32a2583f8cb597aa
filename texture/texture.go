// Package texture models composite wall textures and reads and writes the
// lumps that define them: PNAMES, binary TEXTUREx and ZDoom TEXTURES.
package texture

import (
	"errors"
	"slices"
)

var (
	// ErrTruncated is returned when a texture lump ends before its contents.
	ErrTruncated = errors.New("texture: truncated data")

	// ErrSyntax is returned for malformed TEXTURES text.
	ErrSyntax = errors.New("texture: syntax error")

	// ErrFormat is returned when a TEXTUREx lump matches no known layout.
	ErrFormat = errors.New("texture: unrecognized format")
)

// Kind is the declaration a texture came from.
type Kind uint8

const (
	// KindTexture is a plain composite texture (TEXTUREx or "Texture").
	KindTexture Kind = iota
	// KindWallTexture is a ZDoom "WallTexture".
	KindWallTexture
	// KindFlat is a ZDoom "Flat".
	KindFlat
	// KindSprite is a ZDoom "Sprite".
	KindSprite
	// KindGraphic is a ZDoom "Graphic".
	KindGraphic
)

// String returns the TEXTURES keyword for the kind.
func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "Texture"
	case KindWallTexture:
		return "WallTexture"
	case KindFlat:
		return "Flat"
	case KindSprite:
		return "Sprite"
	case KindGraphic:
		return "Graphic"
	default:
		return "unknown"
	}
}

// PatchKind says where a patch's image is looked up.
type PatchKind uint8

const (
	// PatchKindPatch resolves through the patch namespace.
	PatchKindPatch PatchKind = iota
	// PatchKindGraphic resolves as a ZDoom graphic (any image lump).
	PatchKindGraphic
)

// Patch places an image inside a composite texture.
type Patch struct {
	Name string
	X, Y int16
	Kind PatchKind
}

// CTexture is a composite texture definition.
type CTexture struct {
	Name          string
	Width, Height int16
	// ScaleX and ScaleY are 1 for unscaled textures.
	ScaleX, ScaleY float64
	Kind           Kind
	// Extended is set for definitions read from ZDoom TEXTURES.
	Extended     bool
	Optional     bool
	WorldPanning bool
	NoDecals     bool
	NullTexture  bool
	Patches      []Patch
}

// Clone returns a deep copy of t.
func (t *CTexture) Clone() *CTexture {
	c := *t
	c.Patches = slices.Clone(t.Patches)
	return &c
}
