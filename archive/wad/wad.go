// Package wad reads and writes Doom WAD files.
//
// A WAD is treeless: every lump lives in the root directory and namespaces
// are implied by marker lumps such as F_START/F_END.
package wad

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/archive/entrytype"
	"github.com/meigma/slade/internal/sizing"
	"github.com/meigma/slade/internal/strutil"
)

var (
	// ErrInvalidHeader is returned when data does not start with a WAD header.
	ErrInvalidHeader = errors.New("wad: invalid header")

	// ErrTruncated is returned when the directory or a lump lies past the end
	// of the file.
	ErrTruncated = errors.New("wad: truncated file")
)

const (
	headerSize = 12
	dirRecord  = 16

	magicIWAD = "IWAD"
	magicPWAD = "PWAD"
)

// Option configures reading.
type Option func(*config)

type config struct {
	logger *slog.Logger
	types  *entrytype.Registry
}

// WithLogger sets the logger for the archive and the reader.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithTypes sets the registry used to classify lumps.
func WithTypes(r *entrytype.Registry) Option {
	return func(c *config) {
		c.types = r
	}
}

func (c *config) archiveOptions() []archive.Option {
	var opts []archive.Option
	if c.logger != nil {
		opts = append(opts, archive.WithLogger(c.logger))
	}
	if c.types != nil {
		opts = append(opts, archive.WithTypes(c.types))
	}
	return opts
}

type lump struct {
	offset uint32
	size   uint32
}

// Format is the WAD half of an archive. Lump data is read lazily from the
// underlying io.ReaderAt.
type Format struct {
	mu     sync.Mutex
	r      io.ReaderAt
	closer io.Closer
	iwad   bool
	lumps  map[*archive.Entry]lump
}

var (
	_ archive.Format    = (*Format)(nil)
	_ archive.Forgetter = (*Format)(nil)
	_ io.Closer         = (*Format)(nil)
)

// ID implements archive.Format.
func (f *Format) ID() string { return "wad" }

// Treeless implements archive.Format.
func (f *Format) Treeless() bool { return true }

// IsIWAD reports whether the file was an IWAD.
func (f *Format) IsIWAD() bool { return f.iwad }

// LoadEntryData implements archive.Format.
func (f *Format) LoadEntryData(e *archive.Entry) ([]byte, error) {
	f.mu.Lock()
	l, ok := f.lumps[e]
	r := f.r
	f.mu.Unlock()
	if !ok || r == nil {
		return nil, archive.ErrNoData
	}
	buf := make([]byte, l.size)
	n, err := r.ReadAt(buf, int64(l.offset))
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = ErrTruncated
	}
	return nil, err
}

// ForgetEntry implements archive.Forgetter.
func (f *Format) ForgetEntry(e *archive.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lumps, e)
}

// Close closes the underlying file, if Open created it.
func (f *Format) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.r = nil
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}

// Open reads the WAD file at path. The file stays open for lazy lump loads
// until the archive is closed.
func Open(path string, opts ...Option) (*archive.Archive, error) {
	file, err := os.Open(path) //nolint:gosec // caller-provided archive path
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	a, err := Read(file, info.Size(), path, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	a.Format().(*Format).closer = file
	return a, nil
}

// Read parses the WAD directory from r and returns the populated archive.
// Lump data is loaded from r on demand, so r must stay readable for the
// life of the archive.
func Read(r io.ReaderAt, size int64, filename string, opts ...Option) (*archive.Archive, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	var hdr [headerSize]byte
	if n, _ := r.ReadAt(hdr[:], 0); n < headerSize {
		return nil, fmt.Errorf("read %s header: %w", filename, ErrInvalidHeader)
	}
	magic := string(hdr[0:4])
	if magic != magicIWAD && magic != magicPWAD {
		return nil, fmt.Errorf("read %s: %w", filename, ErrInvalidHeader)
	}
	count := int64(binary.LittleEndian.Uint32(hdr[4:]))
	dirOffset := int64(binary.LittleEndian.Uint32(hdr[8:]))
	if !sizing.InBounds(dirOffset, count*dirRecord, size) {
		return nil, fmt.Errorf("read %s: %d lumps at %d: %w", filename, count, dirOffset, ErrTruncated)
	}

	dir := make([]byte, count*dirRecord)
	if n, err := r.ReadAt(dir, dirOffset); n < len(dir) {
		return nil, fmt.Errorf("read %s directory: %w", filename, errors.Join(ErrTruncated, err))
	}

	f := &Format{
		r:     r,
		iwad:  magic == magicIWAD,
		lumps: make(map[*archive.Entry]lump, count),
	}
	a := archive.New(filename, f, cfg.archiveOptions()...)
	log := a.Logger()

	a.BeginLoad()
	for i := range count {
		rec := dir[i*dirRecord : (i+1)*dirRecord]
		l := lump{
			offset: binary.LittleEndian.Uint32(rec[0:]),
			size:   binary.LittleEndian.Uint32(rec[4:]),
		}
		raw := rec[8:16]
		jaguar := raw[0]&0x80 != 0
		if jaguar {
			raw = append([]byte{raw[0] &^ 0x80}, raw[1:]...)
		}
		name := strutil.DecodeLumpName(raw)

		if l.size > 0 && !sizing.InBounds(int64(l.offset), int64(l.size), size) {
			return nil, fmt.Errorf("read %s: lump %d (%s): %w", filename, i, name, ErrTruncated)
		}

		e := archive.NewEntry(name, l.size)
		if jaguar {
			e.SetEncryption(archive.EncryptionJaguar)
		}
		f.lumps[e] = l
		if err := a.AddEntry(e, nil, -1); err != nil {
			return nil, err
		}
	}
	a.EndLoad()

	if f.iwad {
		for _, e := range a.AllEntries() {
			e.Lock()
		}
	}
	a.DetectTypes()
	log.Debug("wad loaded", "archive", filename, "lumps", count, "iwad", f.iwad)
	return a, nil
}
