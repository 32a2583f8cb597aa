// Package resource indexes the resources of every open archive and
// resolves resource names to the entry or composite texture that should be
// used.
//
// When several archives provide the same resource, the one registered last
// wins unless the caller names a priority archive. The Manager keeps its
// index current by listening to the events of every archive added to it.
package resource

import (
	"log/slog"
	"strings"
	"weak"

	"github.com/meigma/slade/archive"
	"github.com/meigma/slade/archive/entrytype"
	"github.com/meigma/slade/internal/strutil"
)

// Namespaces whose graphics take part in resolution.
var resourceNamespaces = map[string]bool{
	archive.NamespaceGlobal:   true,
	archive.NamespacePatches:  true,
	archive.NamespaceSprites:  true,
	archive.NamespaceGraphics: true,
	archive.NamespaceHires:    true,
	archive.NamespaceTextures: true,
	archive.NamespaceFlats:    true,
}

type bucketID uint8

const (
	bucketPalettes bucketID = iota
	bucketPatches
	bucketFlats
	bucketGraphics
	bucketStandalone
	numBuckets
)

type slot struct {
	bucket bucketID
	key    string
}

// indexRecord is what AddEntry did for one entry, so RemoveEntry can undo
// it after the entry was renamed or edited.
type indexRecord struct {
	archive  *archive.Archive
	slots    []slot
	textures []string
}

// Manager resolves resource names across archives.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	reg    *archive.Registry
	types  *entrytype.Registry
	logger *slog.Logger

	buckets  [numBuckets]map[string]*EntryResource
	textures map[string]*TextureResource
	hashes   *hashTable
	parsed   *parseCache

	indexed  map[weak.Pointer[archive.Entry]]*indexRecord
	archives map[*archive.Archive]func()

	subs    []subscription
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithTypes sets the registry used to look up built-in types.
// Defaults to entrytype.Default().
func WithTypes(r *entrytype.Registry) Option {
	return func(m *Manager) {
		m.types = r
	}
}

// WithParseCache sets how many parsed texture lumps are kept for reuse.
// 0 disables the cache. Defaults to 64.
func WithParseCache(n int) Option {
	return func(m *Manager) {
		m.parsed = newParseCache(n)
	}
}

// New creates a Manager that orders archives by their position in reg.
func New(reg *archive.Registry, opts ...Option) *Manager {
	m := &Manager{
		reg:      reg,
		types:    entrytype.Default(),
		textures: make(map[string]*TextureResource),
		hashes:   new(hashTable),
		parsed:   newParseCache(defaultParseCacheSize),
		indexed:  make(map[weak.Pointer[archive.Entry]]*indexRecord),
		archives: make(map[*archive.Archive]func()),
	}
	for i := range m.buckets {
		m.buckets[i] = make(map[string]*EntryResource)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// log returns the logger, falling back to a discard logger if nil.
func (m *Manager) log() *slog.Logger {
	if m.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.logger
}

// Registry returns the registry archives are ordered by.
func (m *Manager) Registry() *archive.Registry { return m.reg }

// AddArchive registers a (if it is not already registered), indexes all of
// its entries and starts following its events.
func (m *Manager) AddArchive(a *archive.Archive) {
	if _, ok := m.archives[a]; ok {
		return
	}
	m.reg.Add(a)
	for _, e := range a.AllEntries() {
		m.AddEntry(e)
	}
	m.archives[a] = a.Subscribe(m.onArchiveEvent)
	m.log().Debug("archive indexed", "archive", a.Filename(), "entries", a.NumEntries())
	m.announce(Event{Kind: EventResourcesUpdated, Archive: a})
}

// RemoveArchive drops everything a contributed, stops following it and
// removes it from the registry.
func (m *Manager) RemoveArchive(a *archive.Archive) {
	cancel, ok := m.archives[a]
	if !ok {
		return
	}
	cancel()
	delete(m.archives, a)

	for p, rec := range m.indexed {
		if rec.archive != a {
			continue
		}
		if e := p.Value(); e != nil {
			m.unindex(e, rec)
		}
		delete(m.indexed, p)
	}
	for _, tr := range m.textures {
		tr.removeFrom(a, nil)
	}
	m.reg.Remove(a)
	m.log().Debug("archive removed", "archive", a.Filename())
	m.announce(Event{Kind: EventResourcesUpdated, Archive: a})
}

func (m *Manager) onArchiveEvent(ev archive.Event) {
	switch ev.Kind {
	case archive.EventEntryAdded:
		m.AddEntry(ev.Entry)
	case archive.EventEntryRemoving, archive.EventEntryRenaming:
		m.RemoveEntry(ev.Entry)
	case archive.EventEntryStateChanged:
		m.RemoveEntry(ev.Entry)
		m.AddEntry(ev.Entry)
	default:
		return
	}
	m.announce(Event{Kind: EventResourcesUpdated, Archive: ev.Archive, Entry: ev.Entry})
}

func (m *Manager) bucket(id bucketID, key string) *EntryResource {
	r, ok := m.buckets[id][key]
	if !ok {
		r = newEntryResource(m.reg)
		m.buckets[id][key] = r
	}
	return r
}

func (m *Manager) textureBucket(name string) *TextureResource {
	r, ok := m.textures[name]
	if !ok {
		r = newTextureResource(m.reg)
		m.textures[name] = r
	}
	return r
}

// entryPath is the upper-case path of e without the leading slash.
func entryPath(e *archive.Entry) string {
	return strutil.Upper(strings.TrimPrefix(e.Path(true), "/"))
}

// AddEntry indexes e by its type and namespace. Entries of unknown type are
// detected first; entries that stay unknown are not indexed.
func (m *Manager) AddEntry(e *archive.Entry) {
	a := e.Archive()
	if a == nil {
		return
	}
	if e.Type().IsUnknown() {
		a.DetectEntryType(e)
	}
	t := e.Type()
	if t.IsUnknown() {
		return
	}

	p := weak.Make(e)
	if rec, ok := m.indexed[p]; ok {
		m.unindex(e, rec)
	}
	rec := &indexRecord{archive: a}
	put := func(id bucketID, key string) {
		m.bucket(id, key).add(e)
		rec.slots = append(rec.slots, slot{bucket: id, key: key})
	}

	name := e.UpperNameNoExt()
	ns := a.DetectNamespace(e)
	hierarchical := !a.IsTreeless()

	if t.ID == entrytype.IDPalette {
		put(bucketPalettes, name)
	}

	if t.Editor == entrytype.EditorGfx && resourceNamespaces[ns] {
		if t.HasProp(entrytype.PropPatch) || ns == archive.NamespacePatches {
			put(bucketPatches, name)
		}
		if t.ID == entrytype.IDGfxFlat || ns == archive.NamespaceFlats {
			put(bucketFlats, name)
			if hierarchical {
				put(bucketFlats, entryPath(e))
			}
		}
		if ns == archive.NamespaceTextures || ns == archive.NamespaceHires {
			put(bucketStandalone, name)
			if hierarchical {
				put(bucketStandalone, entryPath(e))
			}
			m.hashes.record(name)
		}
		if ns == archive.NamespaceGraphics {
			put(bucketGraphics, name)
		}
	}

	if t.ID == entrytype.IDTextureX || t.ID == entrytype.IDZDTextures {
		for _, tex := range m.parseTextures(e) {
			key := strutil.Upper(tex.Name)
			m.textureBucket(key).add(tex, a, e)
			rec.textures = append(rec.textures, key)
		}
	}

	if len(rec.slots) > 0 || len(rec.textures) > 0 {
		m.indexed[p] = rec
	}
}

// RemoveEntry removes e from every bucket it was indexed in. For texture
// definition lumps the lump is parsed again and the definitions it yields
// are removed along with the ones it contributed when it was added.
func (m *Manager) RemoveEntry(e *archive.Entry) {
	p := weak.Make(e)
	rec, ok := m.indexed[p]
	if !ok {
		rec = &indexRecord{archive: e.Archive()}
	}
	delete(m.indexed, p)

	if a := e.Archive(); a != nil {
		if e.Type().IsUnknown() {
			a.DetectEntryType(e)
		}
		for _, tex := range m.parseTextures(e) {
			rec.textures = append(rec.textures, strutil.Upper(tex.Name))
		}
	}
	m.unindex(e, rec)
}

func (m *Manager) unindex(e *archive.Entry, rec *indexRecord) {
	for _, s := range rec.slots {
		if r, ok := m.buckets[s.bucket][s.key]; ok {
			r.remove(e)
			if len(r.refs) == 0 {
				delete(m.buckets[s.bucket], s.key)
			}
		}
	}
	for _, name := range rec.textures {
		if r, ok := m.textures[name]; ok {
			r.removeFrom(rec.archive, e)
			if len(r.textures) == 0 {
				delete(m.textures, name)
			}
		}
	}
}

// Stats counts the keys that currently resolve to something, per bucket.
type Stats struct {
	Palettes           int
	Patches            int
	Flats              int
	Graphics           int
	StandaloneTextures int
	Textures           int
}

// Stats returns the number of live keys in each bucket.
func (m *Manager) Stats() Stats {
	count := func(id bucketID) int {
		n := 0
		for _, r := range m.buckets[id] {
			if r.Len() > 0 {
				n++
			}
		}
		return n
	}
	s := Stats{
		Palettes:           count(bucketPalettes),
		Patches:            count(bucketPatches),
		Flats:              count(bucketFlats),
		Graphics:           count(bucketGraphics),
		StandaloneTextures: count(bucketStandalone),
	}
	for _, r := range m.textures {
		if r.Len() > 0 {
			s.Textures++
		}
	}
	return s
}
