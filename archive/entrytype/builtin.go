package entrytype

import (
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"github.com/meigma/slade/internal/pathutil"
)

// Built-in type IDs.
const (
	IDMarker     = "marker"
	IDPalette    = "palette"
	IDPnames     = "pnames"
	IDTextureX   = "texturex"
	IDZDTextures = "zdtextures"
	IDGfxDoom    = "gfx_doom"
	IDGfxFlat    = "gfx_flat"
	IDPNG        = "png"
	IDWad        = "wad"
	IDZip        = "zip"
	IDText       = "text"
)

const paletteSize = 768

func builtins() []*Type {
	return []*Type{
		{
			ID: IDMarker, Name: "Marker", Format: "marker", Editor: EditorDefault,
			Reliability: 255,
			Detect: func(data []byte, _ string) uint8 {
				if len(data) == 0 {
					return 255
				}
				return 0
			},
		},
		{
			ID: IDWad, Name: "Wad Archive", Format: "archive_wad", Editor: EditorArchive,
			Extension: "wad", Reliability: 255,
			Detect: func(data []byte, _ string) uint8 {
				if len(data) >= 12 && (matchAt(data, 0, "IWAD") || matchAt(data, 0, "PWAD")) {
					return 255
				}
				return 0
			},
		},
		{
			ID: IDZip, Name: "Zip Archive", Format: "archive_zip", Editor: EditorArchive,
			Extension: "zip", Reliability: 255,
			Detect: func(data []byte, _ string) uint8 {
				if matchAt(data, 0, "PK\x03\x04") || matchAt(data, 0, "PK\x05\x06") {
					return 255
				}
				return 0
			},
		},
		{
			ID: IDPNG, Name: "PNG", Format: "img_png", Editor: EditorGfx,
			Extension: "png", Reliability: 255,
			Props:  map[string]string{PropPatch: "", PropImage: ""},
			Detect: func(data []byte, _ string) uint8 {
				if matchAt(data, 0, "\x89PNG\r\n\x1a\n") {
					return 255
				}
				return 0
			},
		},
		{
			ID: IDPalette, Name: "Palette", Format: "palette", Editor: EditorPalette,
			Extension: "pal", Reliability: 200,
			Detect: detectPalette,
		},
		{
			ID: IDPnames, Name: "Patch Table", Format: "pnames", Editor: EditorData,
			Extension: "lmp", Reliability: 255,
			Detect: detectPnames,
		},
		{
			ID: IDTextureX, Name: "TEXTUREx", Format: "texturex", Editor: EditorTexture,
			Extension: "lmp", Reliability: 255,
			Detect: detectTextureX,
		},
		{
			ID: IDZDTextures, Name: "ZDoom Textures", Format: "zdtextures", Editor: EditorTexture,
			Extension: "txt", Reliability: 255,
			Detect: func(data []byte, name string) uint8 {
				if baseName(name) == "TEXTURES" && looksLikeText(data) {
					return 255
				}
				return 0
			},
		},
		{
			ID: IDGfxDoom, Name: "Graphic (Doom)", Format: "img_doom", Editor: EditorGfx,
			Extension: "lmp", Reliability: 200,
			Props:  map[string]string{PropPatch: "", PropImage: ""},
			Detect: detectDoomGfx,
		},
		{
			ID: IDGfxFlat, Name: "Graphic (Flat)", Format: "img_raw", Editor: EditorGfx,
			Extension: "lmp", Reliability: 80,
			Props:  map[string]string{PropImage: ""},
			Detect: func(data []byte, _ string) uint8 {
				switch len(data) {
				case 4096, 4160, 8192, 16384, 65536:
					return 128
				}
				return 0
			},
		},
		{
			ID: IDText, Name: "Text", Format: "text", Editor: EditorText,
			Extension: "txt", Reliability: 50,
			Detect: func(data []byte, _ string) uint8 {
				if len(data) > 0 && looksLikeText(data) {
					return 64
				}
				return 0
			},
		},
	}
}

// matchAt reports whether data holds magic at offset.
func matchAt(data []byte, offset int, magic string) bool {
	return len(data) >= offset+len(magic) && string(data[offset:offset+len(magic)]) == magic
}

// baseName returns the upper-cased name up to its first dot.
func baseName(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return strings.ToUpper(pathutil.Base(name))
}

func detectPalette(data []byte, name string) uint8 {
	if len(data) < paletteSize || len(data)%paletteSize != 0 {
		return 0
	}
	switch baseName(name) {
	case "PLAYPAL", "PALETTE", "PAL":
		return 255
	}
	if len(data) == paletteSize {
		return 128
	}
	return 0
}

func detectPnames(data []byte, name string) uint8 {
	if baseName(name) != "PNAMES" || len(data) < 4 {
		return 0
	}
	n := binary.LittleEndian.Uint32(data)
	if uint64(n)*8+4 > uint64(len(data)) {
		return 0
	}
	return 255
}

func detectTextureX(data []byte, name string) uint8 {
	switch baseName(name) {
	case "TEXTURE1", "TEXTURE2", "TEXTURE3":
	default:
		return 0
	}
	if len(data) < 4 {
		return 0
	}
	n := binary.LittleEndian.Uint32(data)
	if n == 0 || uint64(n)*4+4 > uint64(len(data)) {
		return 0
	}
	for i := range n {
		off := binary.LittleEndian.Uint32(data[4+4*i:])
		if uint64(off) >= uint64(len(data)) {
			return 0
		}
	}
	return 255
}

// detectDoomGfx checks the Doom picture header and column offset table.
func detectDoomGfx(data []byte, _ string) uint8 {
	if len(data) < 8 {
		return 0
	}
	width := int16(binary.LittleEndian.Uint16(data[0:]))  //nolint:gosec // signed header field
	height := int16(binary.LittleEndian.Uint16(data[2:])) //nolint:gosec // signed header field
	if width <= 0 || height <= 0 || width > 4096 || height > 4096 {
		return 0
	}
	table := 8 + 4*int(width)
	if len(data) < table {
		return 0
	}
	for i := range int(width) {
		off := int(binary.LittleEndian.Uint32(data[8+4*i:]))
		if off < table || off >= len(data) {
			return 0
		}
	}
	return 200
}

func looksLikeText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, c := range data {
		if c < 0x20 && c != '\n' && c != '\r' && c != '\t' {
			return false
		}
	}
	return true
}
