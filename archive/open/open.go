// Package open picks the format of an archive file by its signature and
// opens many archives at once while keeping their load order.
package open

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/archive/entrytype"
	"github.com/meigma/slade/archive/pk3"
	"github.com/meigma/slade/archive/wad"
	"github.com/meigma/slade/cache"
)

// Format identifiers returned by Sniff.
const (
	FormatWAD = "wad"
	FormatPK3 = "pk3"
)

// ErrUnknownFormat is returned for files that are neither WADs nor PK3s.
var ErrUnknownFormat = errors.New("open: unknown archive format")

// Option configures opening.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	types       *entrytype.Registry
	cache       cache.Cache
	concurrency int
}

// WithLogger sets the logger passed to every opened archive.
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

// WithCache sets the extracted-entry cache used by PK3 archives.
func WithCache(c cache.Cache) Option {
	return func(cfg *config) {
		cfg.cache = c
	}
}

// WithConcurrency limits how many files All opens at once.
// Values below 1 mean no limit.
func WithConcurrency(n int) Option {
	return func(c *config) {
		c.concurrency = n
	}
}

func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

func (c *config) wadOptions() []wad.Option {
	var opts []wad.Option
	if c.logger != nil {
		opts = append(opts, wad.WithLogger(c.logger))
	}
	if c.types != nil {
		opts = append(opts, wad.WithTypes(c.types))
	}
	return opts
}

func (c *config) pk3Options() []pk3.Option {
	var opts []pk3.Option
	if c.logger != nil {
		opts = append(opts, pk3.WithLogger(c.logger))
	}
	if c.types != nil {
		opts = append(opts, pk3.WithTypes(c.types))
	}
	if c.cache != nil {
		opts = append(opts, pk3.WithCache(c.cache))
	}
	return opts
}

// Sniff returns FormatWAD or FormatPK3 for data starting with the matching
// signature, or "" otherwise.
func Sniff(r io.ReaderAt) string {
	var magic [4]byte
	if n, _ := r.ReadAt(magic[:], 0); n < len(magic) {
		return ""
	}
	switch string(magic[:]) {
	case "IWAD", "PWAD":
		return FormatWAD
	case "PK\x03\x04", "PK\x05\x06":
		return FormatPK3
	}
	return ""
}

func sniffFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // caller-provided archive path
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Sniff(f), nil
}

// File opens the archive at path with the format its signature names.
func File(path string, opts ...Option) (*archive.Archive, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.open(path)
}

func (c *config) open(path string) (*archive.Archive, error) {
	format, err := sniffFile(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatWAD:
		return wad.Open(path, c.wadOptions()...)
	case FormatPK3:
		return pk3.Open(path, c.pk3Options()...)
	}
	return nil, &os.PathError{Op: "open", Path: path, Err: ErrUnknownFormat}
}

// All opens paths concurrently. The result holds the archives in the order
// of paths, regardless of which finished first. If any open fails, the
// archives that did open are closed and the first error is returned.
func All(ctx context.Context, paths []string, opts ...Option) ([]*archive.Archive, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make([]*archive.Archive, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if cfg.concurrency > 0 {
		g.SetLimit(cfg.concurrency)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := cfg.open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, a := range out {
			if a != nil {
				_ = a.Close()
			}
		}
		return nil, err
	}
	cfg.log().Debug("archives opened", "count", len(out))
	return out, nil
}
