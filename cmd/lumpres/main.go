// Command lumpres opens Doom archives in load order and reports which entry
// each resource name resolves to.
//
// Usage:
//
//	lumpres [flags] archive... -- name...
//	lumpres [flags] -list textures|flats|patches archive...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/archive/open"
	"github.com/meigma/slade/cache"
	"github.com/meigma/slade/cache/disk"
	"github.com/meigma/slade/resource"
)

const (
	cacheNone   = "none"
	cacheMemory = "memory"
	cacheDisk   = "disk"
)

// Resource kinds accepted by -kind.
const (
	kindPatch   = "patch"
	kindFlat    = "flat"
	kindTexture = "texture"
	kindPalette = "palette"
	kindGraphic = "graphic"
)

var errUsage = errors.New("usage: lumpres [flags] archive... -- name...")

type config struct {
	priority     string
	kind         string
	list         string
	namespace    string
	cache        string
	cacheDir     string
	cacheEntries int
	workers      int
	verbose      bool

	archives []string
	names    []string
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, logger); err != nil {
		logger.Error("lumpres failed", "error", err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer is fine, stop only releases the signal
	}
}

func parseFlags(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("lumpres", flag.ContinueOnError)
	fs.StringVar(&cfg.priority, "priority", "", "archive whose resources win over load order")
	fs.StringVar(&cfg.kind, "kind", kindPatch, "resource kind: patch, flat, texture, palette, graphic")
	fs.StringVar(&cfg.list, "list", "", "list every resolved resource: textures, flats, patches")
	fs.StringVar(&cfg.namespace, "ns", "", "namespace for patch and texture lookups")
	fs.StringVar(&cfg.cache, "cache", cacheMemory, "pk3 entry cache: memory, disk, none")
	fs.StringVar(&cfg.cacheDir, "cache-dir", "", "cache directory (disk cache only)")
	fs.IntVar(&cfg.cacheEntries, "cache-entries", 1024, "entries kept by the memory cache")
	fs.IntVar(&cfg.workers, "workers", 0, "archives opened at once (0 means all)")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	rest := fs.Args()
	if i := slices.Index(rest, "--"); i >= 0 {
		cfg.archives, cfg.names = rest[:i], rest[i+1:]
	} else {
		cfg.archives = rest
	}

	switch {
	case len(cfg.archives) == 0:
		return cfg, errUsage
	case cfg.list == "" && len(cfg.names) == 0:
		return cfg, errUsage
	}
	switch cfg.kind {
	case kindPatch, kindFlat, kindTexture, kindPalette, kindGraphic:
	default:
		return cfg, fmt.Errorf("unknown kind %q", cfg.kind)
	}
	switch cfg.list {
	case "", "textures", "flats", "patches":
	default:
		return cfg, fmt.Errorf("unknown listing %q", cfg.list)
	}
	if cfg.cache == cacheDisk && cfg.cacheDir == "" {
		return cfg, errors.New("-cache-dir is required with -cache disk")
	}
	return cfg, nil
}

func buildCache(cfg config) (cache.Cache, error) {
	switch cfg.cache {
	case cacheNone, "":
		return nil, nil
	case cacheMemory:
		return cache.NewMemory(cfg.cacheEntries), nil
	case cacheDisk:
		return disk.New(cfg.cacheDir)
	}
	return nil, fmt.Errorf("unknown cache %q", cfg.cache)
}

func run(ctx context.Context, cfg config, out io.Writer, logger *slog.Logger) error {
	c, err := buildCache(cfg)
	if err != nil {
		return err
	}
	opts := []open.Option{open.WithLogger(logger), open.WithConcurrency(cfg.workers)}
	if c != nil {
		opts = append(opts, open.WithCache(c))
	}

	archives, err := open.All(ctx, cfg.archives, opts...)
	if err != nil {
		return err
	}
	defer func() {
		for _, a := range archives {
			_ = a.Close()
		}
	}()

	m := resource.New(archive.NewRegistry(), resource.WithLogger(logger))
	for _, a := range archives {
		m.AddArchive(a)
	}

	var priority *archive.Archive
	if cfg.priority != "" {
		if priority = m.Registry().Find(cfg.priority); priority == nil {
			return fmt.Errorf("priority archive %s is not open", cfg.priority)
		}
	}

	if cfg.list != "" {
		return list(out, m, cfg.list, priority)
	}
	for _, name := range cfg.names {
		resolve(out, m, cfg, name, priority)
	}
	return nil
}

func resolve(out io.Writer, m *resource.Manager, cfg config, name string, priority *archive.Archive) {
	var e *archive.Entry
	switch cfg.kind {
	case kindPatch:
		e = m.PatchEntry(name, cfg.namespace, priority)
	case kindFlat:
		e = m.FlatEntry(name, priority)
	case kindPalette:
		e = m.PaletteEntry(name, priority)
	case kindGraphic:
		e = m.GraphicEntry(name, priority)
	case kindTexture:
		if tex := m.Texture(name, priority, nil); tex != nil {
			fmt.Fprintf(out, "%s: %dx%d %s\n", name, tex.Width, tex.Height, tex.Kind)
			for _, p := range tex.Patches {
				fmt.Fprintf(out, "  %s @%d,%d -> %s\n", p.Name, p.X, p.Y, describe(m.ResolvePatch(p, priority)))
			}
			return
		}
		e = m.TextureEntry(name, cfg.namespace, priority)
	}
	fmt.Fprintf(out, "%s: %s\n", name, describe(e))
}

func list(out io.Writer, m *resource.Manager, what string, priority *archive.Archive) error {
	switch what {
	case "textures":
		for _, ref := range m.AllTextures(priority, nil) {
			fmt.Fprintf(out, "%s\t%s\n", ref.Texture.Name, ref.Archive.Filename())
		}
	case "flats":
		for _, e := range m.AllFlatEntries(priority) {
			fmt.Fprintln(out, describe(e))
		}
	case "patches":
		for _, e := range m.AllPatchEntries(priority) {
			fmt.Fprintln(out, describe(e))
		}
	default:
		return fmt.Errorf("unknown listing %q", what)
	}
	return nil
}

// describe formats e as archive:path (digest).
func describe(e *archive.Entry) string {
	if e == nil {
		return "not found"
	}
	return fmt.Sprintf("%s:%s (%s)", e.Archive().Filename(), e.Path(true), e.Digest())
}
