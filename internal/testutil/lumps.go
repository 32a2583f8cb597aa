package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

func le16(buf *bytes.Buffer, v int16) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}

func le32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}

// name8 pads or truncates s to an 8-byte lump name field.
func name8(s string) []byte {
	out := make([]byte, 8)
	copy(out, s)
	return out
}

// PNAMES encodes a patch name table.
func PNAMES(names ...string) []byte {
	var buf bytes.Buffer
	le32(&buf, uint32(len(names))) //nolint:gosec // test data is small
	for _, n := range names {
		buf.Write(name8(n))
	}
	return buf.Bytes()
}

// PatchRef places patch number Patch of PNAMES at X, Y.
type PatchRef struct {
	X, Y  int16
	Patch uint16
}

// TexDef is one composite texture definition.
type TexDef struct {
	Name          string
	Width, Height int16
	Patches       []PatchRef
}

// TEXTUREX encodes definitions in the standard Doom TEXTURE1 layout.
func TEXTUREX(defs ...TexDef) []byte {
	var body bytes.Buffer
	offsets := make([]uint32, len(defs))
	start := 4 + 4*len(defs)
	for i, d := range defs {
		offsets[i] = uint32(start + body.Len()) //nolint:gosec // test data is small
		body.Write(name8(d.Name))
		le16(&body, 0) // flags
		body.WriteByte(0)
		body.WriteByte(0)
		le16(&body, d.Width)
		le16(&body, d.Height)
		le32(&body, 0) // column directory
		le16(&body, int16(len(d.Patches))) //nolint:gosec // test data is small
		for _, p := range d.Patches {
			le16(&body, p.X)
			le16(&body, p.Y)
			le16(&body, int16(p.Patch)) //nolint:gosec // test data is small
			le16(&body, 1)              // step dir
			le16(&body, 0)              // colormap
		}
	}
	var buf bytes.Buffer
	le32(&buf, uint32(len(defs))) //nolint:gosec // test data is small
	for _, off := range offsets {
		le32(&buf, off)
	}
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// DoomGfx encodes a solid w×h picture in Doom column format.
func DoomGfx(w, h int16, color byte) []byte {
	var buf bytes.Buffer
	le16(&buf, w)
	le16(&buf, h)
	le16(&buf, 0)
	le16(&buf, 0)
	table := 8 + 4*int(w)
	column := 4 + int(h) + 1
	for i := range int(w) {
		le32(&buf, uint32(table+i*column)) //nolint:gosec // test data is small
	}
	for range int(w) {
		buf.WriteByte(0)
		buf.WriteByte(byte(h))
		buf.WriteByte(0)
		buf.Write(bytes.Repeat([]byte{color}, int(h)))
		buf.WriteByte(0)
		buf.WriteByte(0xFF)
	}
	return buf.Bytes()
}

// Flat returns a 64×64 raw flat filled with color.
func Flat(color byte) []byte {
	return bytes.Repeat([]byte{color}, 4096)
}

// Palette returns a grey-ramp PLAYPAL with n palettes.
func Palette(n int) []byte {
	out := make([]byte, 0, 768*n)
	for range n {
		for i := range 256 {
			out = append(out, byte(i), byte(i), byte(i))
		}
	}
	return out
}

// PNG returns a PNG signature and IHDR chunk for a w×h image.
func PNG(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	_ = binary.Write(&ihdr, binary.BigEndian, w)
	_ = binary.Write(&ihdr, binary.BigEndian, h)
	ihdr.Write([]byte{8, 6, 0, 0, 0})
	_ = binary.Write(&buf, binary.BigEndian, uint32(ihdr.Len()-4)) //nolint:gosec // fixed size
	buf.Write(ihdr.Bytes())
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))
	return buf.Bytes()
}

// WADLump is one lump of a WAD file built by WAD.
type WADLump struct {
	Name string
	Data []byte
}

// WAD encodes a WAD file with the given magic ("IWAD" or "PWAD"). Lump data
// follows the header and the directory comes last.
func WAD(magic string, lumps ...WADLump) []byte {
	var data bytes.Buffer
	offsets := make([]uint32, len(lumps))
	for i, l := range lumps {
		offsets[i] = uint32(12 + data.Len()) //nolint:gosec // test data is small
		data.Write(l.Data)
	}
	var buf bytes.Buffer
	buf.WriteString(magic)
	le32(&buf, uint32(len(lumps)))    //nolint:gosec // test data is small
	le32(&buf, uint32(12+data.Len())) //nolint:gosec // test data is small
	buf.Write(data.Bytes())
	for i, l := range lumps {
		off := offsets[i]
		if len(l.Data) == 0 {
			off = 0
		}
		le32(&buf, off)
		le32(&buf, uint32(len(l.Data))) //nolint:gosec // test data is small
		buf.Write(name8(l.Name))
	}
	return buf.Bytes()
}
