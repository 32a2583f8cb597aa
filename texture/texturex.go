package texture

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/slade/internal/strutil"
)

// Format is the layout a texture list was read from.
type Format uint8

const (
	// FormatNormal is the Doom TEXTUREx layout.
	FormatNormal Format = iota
	// FormatStrife11 is the compact Strife 1.1 TEXTUREx layout.
	FormatStrife11
	// FormatNameless is the early alpha TEXTUREx layout without names.
	FormatNameless
	// FormatTextures is ZDoom TEXTURES text.
	FormatTextures
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatNormal:
		return "normal"
	case FormatStrife11:
		return "strife11"
	case FormatNameless:
		return "nameless"
	case FormatTextures:
		return "textures"
	default:
		return "unknown"
	}
}

// On-disk record sizes per layout.
const (
	normalHeader   = 22
	normalPatch    = 10
	strifeHeader   = 18
	strifePatch    = 6
	namelessHeader = 14
	namelessPatch  = 10

	flagWorldPanning = 0x8000
)

type layout struct {
	format       Format
	header       int
	patch        int
	countOffset  int
	hasName      bool
	hasColumnDir bool
}

var layouts = []layout{
	{FormatNormal, normalHeader, normalPatch, 20, true, true},
	{FormatStrife11, strifeHeader, strifePatch, 16, true, false},
	{FormatNameless, namelessHeader, namelessPatch, 12, false, true},
}

// TextureXList is an ordered list of composite textures read from one lump.
type TextureXList struct {
	textures []*CTexture
	format   Format
}

// Textures returns the definitions in lump order.
func (l *TextureXList) Textures() []*CTexture {
	return l.textures
}

// Len returns the number of definitions.
func (l *TextureXList) Len() int {
	return len(l.textures)
}

// Format returns the layout the list was read from.
func (l *TextureXList) Format() Format {
	return l.format
}

// Texture returns the first definition named name (case-insensitive), or nil.
func (l *TextureXList) Texture(name string) *CTexture {
	for _, t := range l.textures {
		if strutil.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// Add appends t to the list.
func (l *TextureXList) Add(t *CTexture) {
	l.textures = append(l.textures, t)
}

// ReadTEXTUREX replaces the list with the definitions of a binary TEXTUREx
// lump, resolving patch numbers through pt. Patch numbers outside pt are
// dropped. On error the list is left empty.
func (l *TextureXList) ReadTEXTUREX(data []byte, pt *PatchTable) error {
	l.textures = nil
	l.format = FormatNormal

	if len(data) < 4 {
		return fmt.Errorf("texturex header: %w", ErrTruncated)
	}
	n := binary.LittleEndian.Uint32(data)
	if uint64(n)*4+4 > uint64(len(data)) {
		return fmt.Errorf("texturex: %d offsets in %d bytes: %w", n, len(data), ErrTruncated)
	}
	if n == 0 {
		return nil
	}
	offsets := make([]int, n)
	for i := range offsets {
		offsets[i] = int(binary.LittleEndian.Uint32(data[4+4*i:]))
		if offsets[i] >= len(data) {
			return fmt.Errorf("texturex: texture %d at %d: %w", i, offsets[i], ErrTruncated)
		}
	}

	lay, err := detectLayout(data, offsets)
	if err != nil {
		return err
	}

	textures := make([]*CTexture, 0, n)
	for i, off := range offsets {
		t, err := readDef(data, off, lay, pt)
		if err != nil {
			return fmt.Errorf("texturex: texture %d: %w", i, err)
		}
		if !lay.hasName {
			t.Name = fmt.Sprintf("TEX%04d", i)
		}
		textures = append(textures, t)
	}
	l.textures = textures
	l.format = lay.format
	return nil
}

// detectLayout picks the layout whose record size exactly spans the first
// definition. When none fits exactly, the Doom layout is assumed if the
// definition fits inside the span (lumps padded by their writer).
func detectLayout(data []byte, offsets []int) (layout, error) {
	first := offsets[0]
	end := len(data)
	for _, off := range offsets {
		if off > first && off < end {
			end = off
		}
	}
	span := end - first

	var fallback *layout
	for i := range layouts {
		lay := &layouts[i]
		if span < lay.header {
			continue
		}
		count := int(int16(binary.LittleEndian.Uint16(data[first+lay.countOffset:]))) //nolint:gosec // signed field
		if count < 0 {
			continue
		}
		need := lay.header + count*lay.patch
		if need == span {
			return *lay, nil
		}
		if need < span && lay.format == FormatNormal {
			fallback = lay
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return layout{}, ErrFormat
}

func readDef(data []byte, off int, lay layout, pt *PatchTable) (*CTexture, error) {
	if off+lay.header > len(data) {
		return nil, ErrTruncated
	}
	rec := data[off:]
	t := &CTexture{ScaleX: 1, ScaleY: 1}
	pos := 0
	if lay.hasName {
		t.Name = strutil.DecodeLumpName(rec[:8])
		pos = 8
	}
	flags := binary.LittleEndian.Uint16(rec[pos:])
	t.WorldPanning = flags&flagWorldPanning != 0
	if sx := rec[pos+2]; sx != 0 {
		t.ScaleX = float64(sx) / 8
	}
	if sy := rec[pos+3]; sy != 0 {
		t.ScaleY = float64(sy) / 8
	}
	t.Width = int16(binary.LittleEndian.Uint16(rec[pos+4:]))  //nolint:gosec // signed field
	t.Height = int16(binary.LittleEndian.Uint16(rec[pos+6:])) //nolint:gosec // signed field
	count := int(int16(binary.LittleEndian.Uint16(rec[lay.countOffset:]))) //nolint:gosec // signed field
	if count < 0 || off+lay.header+count*lay.patch > len(data) {
		return nil, ErrTruncated
	}

	for i := range count {
		p := rec[lay.header+i*lay.patch:]
		idx := int(binary.LittleEndian.Uint16(p[4:]))
		name := pt.Name(idx)
		if name == "" {
			continue
		}
		t.Patches = append(t.Patches, Patch{
			Name: name,
			X:    int16(binary.LittleEndian.Uint16(p[0:])), //nolint:gosec // signed field
			Y:    int16(binary.LittleEndian.Uint16(p[2:])), //nolint:gosec // signed field
		})
	}
	return t, nil
}

// WriteTEXTUREX encodes the list in the Doom TEXTUREx layout. Patch names
// missing from pt are appended to it.
func (l *TextureXList) WriteTEXTUREX(pt *PatchTable) []byte {
	size := 4 + 4*len(l.textures)
	for _, t := range l.textures {
		size += normalHeader + normalPatch*len(t.Patches)
	}
	out := make([]byte, size)
	binary.LittleEndian.PutUint32(out, uint32(len(l.textures))) //nolint:gosec // bounded by size

	pos := 4 + 4*len(l.textures)
	for i, t := range l.textures {
		binary.LittleEndian.PutUint32(out[4+4*i:], uint32(pos)) //nolint:gosec // bounded by size
		rec := out[pos:]
		copy(rec, strutil.EncodeLumpName(t.Name, 8))
		var flags uint16
		if t.WorldPanning {
			flags |= flagWorldPanning
		}
		binary.LittleEndian.PutUint16(rec[8:], flags)
		rec[10] = encodeScale(t.ScaleX)
		rec[11] = encodeScale(t.ScaleY)
		binary.LittleEndian.PutUint16(rec[12:], uint16(t.Width))        //nolint:gosec // signed field
		binary.LittleEndian.PutUint16(rec[14:], uint16(t.Height))       //nolint:gosec // signed field
		binary.LittleEndian.PutUint16(rec[20:], uint16(len(t.Patches))) //nolint:gosec // bounded by int16 on read
		for j, p := range t.Patches {
			pr := rec[normalHeader+j*normalPatch:]
			binary.LittleEndian.PutUint16(pr[0:], uint16(p.X))            //nolint:gosec // signed field
			binary.LittleEndian.PutUint16(pr[2:], uint16(p.Y))            //nolint:gosec // signed field
			binary.LittleEndian.PutUint16(pr[4:], uint16(pt.Add(p.Name))) //nolint:gosec // PNAMES is small
			binary.LittleEndian.PutUint16(pr[6:], 1)
		}
		pos += normalHeader + normalPatch*len(t.Patches)
	}
	return out
}

func encodeScale(s float64) uint8 {
	if s == 1 || s <= 0 {
		return 0
	}
	return uint8(min(s*8, 255))
}

// Names returns the texture names in lump order.
func (l *TextureXList) Names() []string {
	names := make([]string, len(l.textures))
	for i, t := range l.textures {
		names[i] = t.Name
	}
	return names
}
