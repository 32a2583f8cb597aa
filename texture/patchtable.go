package texture

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/slade/internal/strutil"
)

// PatchTable is the PNAMES list that binary TEXTUREx definitions index into.
type PatchTable struct {
	names []string
}

// LoadPNAMES replaces the table with the contents of a PNAMES lump. On
// error the table is left empty.
func (pt *PatchTable) LoadPNAMES(data []byte) error {
	pt.names = nil
	if len(data) < 4 {
		return fmt.Errorf("pnames header: %w", ErrTruncated)
	}
	n := binary.LittleEndian.Uint32(data)
	if uint64(n)*8+4 > uint64(len(data)) {
		return fmt.Errorf("pnames: %d names in %d bytes: %w", n, len(data), ErrTruncated)
	}
	names := make([]string, n)
	for i := range names {
		off := 4 + 8*i
		names[i] = strutil.DecodeLumpName(data[off : off+8])
	}
	pt.names = names
	return nil
}

// Len returns the number of patch names.
func (pt *PatchTable) Len() int {
	return len(pt.names)
}

// Name returns patch name i, or "" if i is out of range.
func (pt *PatchTable) Name(i int) string {
	if i < 0 || i >= len(pt.names) {
		return ""
	}
	return pt.names[i]
}

// Index returns the position of name (case-insensitive), or -1.
func (pt *PatchTable) Index(name string) int {
	for i, n := range pt.names {
		if strutil.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

// Add returns the index of name, appending it if it is not present.
func (pt *PatchTable) Add(name string) int {
	if i := pt.Index(name); i >= 0 {
		return i
	}
	pt.names = append(pt.names, name)
	return len(pt.names) - 1
}

// WritePNAMES encodes the table as a PNAMES lump.
func (pt *PatchTable) WritePNAMES() []byte {
	out := make([]byte, 4, 4+8*len(pt.names))
	binary.LittleEndian.PutUint32(out, uint32(len(pt.names))) //nolint:gosec // bounded by the loaded lump
	for _, n := range pt.names {
		out = append(out, strutil.EncodeLumpName(n, 8)...)
	}
	return out
}
