package wad

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/internal/sizing"
	"github.com/meigma/slade/internal/strutil"
)

// Write encodes every entry of a, in tree order, as a WAD file: header,
// lump data, then the directory. IWAD archives keep their magic; anything
// else is written as a PWAD.
func Write(w io.Writer, a *archive.Archive) error {
	_, err := write(w, a)
	return err
}

func write(w io.Writer, a *archive.Archive) (map[*archive.Entry]lump, error) {
	magic := magicPWAD
	if f, ok := a.Format().(*Format); ok && f.iwad {
		magic = magicIWAD
	}

	entries := a.AllEntries()
	data := make([][]byte, len(entries))
	lumps := make(map[*archive.Entry]lump, len(entries))
	offset := uint32(headerSize)
	for i, e := range entries {
		b := e.Data(true)
		if !e.IsLoaded() && e.Size() > 0 {
			return nil, fmt.Errorf("write %s: %w", e.Name(), archive.ErrNoData)
		}
		size, err := sizing.ToUint32(len(b))
		if err != nil {
			return nil, err
		}
		data[i] = b
		lumps[e] = lump{offset: offset, size: size}
		var ok bool
		if offset, ok = sizing.AddUint32(offset, size); !ok {
			return nil, fmt.Errorf("write %s: %w", a.Filename(), sizing.ErrOverflow)
		}
	}
	count, err := sizing.ToUint32(len(entries))
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(w)
	var hdr [headerSize]byte
	copy(hdr[:], magic)
	binary.LittleEndian.PutUint32(hdr[4:], count)
	binary.LittleEndian.PutUint32(hdr[8:], offset)
	if _, err := bw.Write(hdr[:]); err != nil {
		return nil, err
	}
	for _, b := range data {
		if _, err := bw.Write(b); err != nil {
			return nil, err
		}
	}
	var rec [dirRecord]byte
	for _, e := range entries {
		l := lumps[e]
		binary.LittleEndian.PutUint32(rec[0:], l.offset)
		binary.LittleEndian.PutUint32(rec[4:], l.size)
		copy(rec[8:], strutil.EncodeLumpName(e.Name(), 8))
		if e.Encryption() == archive.EncryptionJaguar {
			rec[8] |= 0x80
		}
		if _, err := bw.Write(rec[:]); err != nil {
			return nil, err
		}
	}
	return lumps, bw.Flush()
}

// Save writes a to path atomically and marks it saved. If a was read by
// this package, later lazy loads come from the new file.
func Save(a *archive.Archive, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wad-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	lumps, err := write(tmp, a)
	if err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if f, ok := a.Format().(*Format); ok {
		if err := f.reopen(path, lumps); err != nil {
			return err
		}
	}
	a.MarkSaved()
	a.Logger().Debug("wad saved", "archive", a.Filename(), "path", path, "lumps", len(lumps))
	return nil
}

// reopen points lazy loads at the freshly written file.
func (f *Format) reopen(path string, lumps map[*archive.Entry]lump) error {
	file, err := os.Open(path) //nolint:gosec // path was just written by Save
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closer != nil {
		_ = f.closer.Close()
	}
	f.r, f.closer, f.lumps = file, file, lumps
	return nil
}
