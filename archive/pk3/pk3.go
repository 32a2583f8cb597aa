// Package pk3 reads ZIP-based PK3 archives.
//
// Unlike a WAD, a PK3 has real directories. Every directory becomes a Dir
// node and the namespace of an entry is the name of its top-level directory.
package pk3

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/archive/entrytype"
	"github.com/meigma/slade/cache"
	"github.com/meigma/slade/internal/pathutil"
	"github.com/meigma/slade/internal/sizing"
)

// ErrNotZip is returned when data is not a readable ZIP archive.
var ErrNotZip = errors.New("pk3: not a zip archive")

// Option configures reading.
type Option func(*config)

type config struct {
	logger *slog.Logger
	types  *entrytype.Registry
	cache  cache.Cache
}

// WithLogger sets the logger for the archive and the reader.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithTypes sets the registry used to classify entries.
func WithTypes(r *entrytype.Registry) Option {
	return func(c *config) {
		c.types = r
	}
}

// WithCache stores inflated entry data in c, so reopening the same archive
// skips decompression.
func WithCache(c cache.Cache) Option {
	return func(cfg *config) {
		cfg.cache = c
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

// Format is the PK3 half of an archive.
type Format struct {
	filename string
	cache    cache.Cache
	logger   *slog.Logger

	mu     sync.Mutex
	closer io.Closer
	closed bool
	files  map[*archive.Entry]*zip.File
}

var (
	_ archive.Format    = (*Format)(nil)
	_ archive.Forgetter = (*Format)(nil)
	_ io.Closer         = (*Format)(nil)
)

// ID implements archive.Format.
func (f *Format) ID() string { return "pk3" }

// Treeless implements archive.Format.
func (f *Format) Treeless() bool { return false }

// Namespace implements archive.Format. Entries in the root directory are
// global; everything else belongs to its top-level directory.
func (f *Format) Namespace(e *archive.Entry) string {
	parts := pathutil.Split(e.Path(false))
	if len(parts) == 0 {
		return archive.NamespaceGlobal
	}
	return strings.ToLower(parts[0])
}

func (f *Format) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.logger
}

// LoadEntryData implements archive.Format. Entry data is inflated on every
// call unless a cache is configured.
func (f *Format) LoadEntryData(e *archive.Entry) ([]byte, error) {
	f.mu.Lock()
	zf, ok := f.files[e]
	closed := f.closed
	f.mu.Unlock()
	if !ok || closed {
		return nil, archive.ErrNoData
	}

	var key []byte
	if f.cache != nil {
		key = cacheKey(f.filename, zf)
		if data, ok := f.cache.Get(key); ok && uint64(len(data)) == zf.UncompressedSize64 {
			return data, nil
		}
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer rc.Close()
	data, err := sizing.ReadAllWithLimit(rc, zf.UncompressedSize64)
	if err != nil {
		return nil, fmt.Errorf("inflate %s: %w", zf.Name, err)
	}

	if f.cache != nil {
		if err := f.cache.Put(key, data); err != nil {
			f.log().Warn("cache put failed", "archive", f.filename, "entry", zf.Name, "error", err)
		}
	}
	return data, nil
}

// cacheKey identifies the stored form of zf. The CRC and size change
// whenever the file inside the archive does.
func cacheKey(filename string, zf *zip.File) []byte {
	return cache.Key(filename, zf.Name,
		strconv.FormatUint(uint64(zf.CRC32), 16),
		strconv.FormatUint(zf.UncompressedSize64, 10))
}

// ForgetEntry implements archive.Forgetter.
func (f *Format) ForgetEntry(e *archive.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, e)
}

// Close closes the underlying file, if Open created it. Later loads fail.
func (f *Format) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}

// Open reads the PK3 file at path. The file stays open for lazy loads until
// the archive is closed.
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
	f := a.Format().(*Format)
	f.mu.Lock()
	f.closer = file
	f.mu.Unlock()
	return a, nil
}

// Read parses the central directory of the ZIP in r and returns the
// populated archive. Stored, deflated and zstd (method 93) entries are
// supported.
func Read(r io.ReaderAt, size int64, filename string, opts ...Option) (*archive.Archive, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", filename, ErrNotZip, err)
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	f := &Format{
		filename: filename,
		cache:    cfg.cache,
		logger:   cfg.logger,
		files:    make(map[*archive.Entry]*zip.File, len(zr.File)),
	}
	a := archive.New(filename, f, cfg.archiveOptions()...)

	a.BeginLoad()
	for _, zf := range zr.File {
		name := strings.ReplaceAll(zf.Name, "\\", "/")
		if zf.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
			a.Root().DirAtPath(name, true)
			continue
		}
		if zf.UncompressedSize64 > math.MaxUint32 {
			return nil, fmt.Errorf("read %s: %s: %w", filename, zf.Name, sizing.ErrOverflow)
		}
		dir := a.Root().DirAtPath(pathutil.Dir(name), true)
		if dir == nil {
			// A path climbing above the root with "..".
			f.log().Warn("skipping entry outside archive root", "archive", filename, "entry", zf.Name)
			continue
		}
		e := archive.NewEntry(pathutil.Base(name), uint32(zf.UncompressedSize64))
		f.files[e] = zf
		if err := a.AddEntry(e, dir, -1); err != nil {
			return nil, err
		}
	}
	a.EndLoad()
	a.DetectTypes()

	a.Logger().Debug("pk3 loaded", "archive", filename, "entries", len(f.files))
	return a, nil
}
