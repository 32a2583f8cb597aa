// Package archive implements the in-memory entry tree shared by every
// archive format: entries, directories, searching, lifecycle events and the
// registry that orders open archives.
package archive

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/meigma/slade/archive/entrytype"
)

// Format is the format-specific half of an archive.
//
// A format populates the tree when an archive is opened and supplies entry
// data on demand. Namespace rules are also a format concern.
type Format interface {
	// ID names the format ("wad", "pk3").
	ID() string
	// Treeless reports whether the format has no real directories.
	Treeless() bool
	// LoadEntryData returns the stored data for e.
	LoadEntryData(e *Entry) ([]byte, error)
	// Namespace returns the namespace e belongs to.
	Namespace(e *Entry) string
}

// Forgetter is implemented by formats that track per-entry storage and want
// to drop it when an entry is removed.
type Forgetter interface {
	ForgetEntry(e *Entry)
}

// Archive is an entry tree bound to a format.
//
// Archives are not safe for concurrent use.
type Archive struct {
	filename string
	format   Format
	root     *Dir
	parent   *Entry
	types    *entrytype.Registry
	logger   *slog.Logger
	subs     []subscription
	nextSub  int
	loading  bool
	closed   bool
}

// Option configures an Archive.
type Option func(*Archive)

// WithParent marks the archive as nested inside entry e of another archive.
func WithParent(e *Entry) Option {
	return func(a *Archive) {
		a.parent = e
	}
}

// WithTypes sets the registry used for type detection.
// Defaults to entrytype.Default().
func WithTypes(r *entrytype.Registry) Option {
	return func(a *Archive) {
		a.types = r
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = l
	}
}

// New creates an empty archive named filename using format f.
func New(filename string, f Format, opts ...Option) *Archive {
	a := &Archive{
		filename: filename,
		format:   f,
		types:    entrytype.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.root = &Dir{archive: a}
	return a
}

// Logger returns the archive's logger. It is never nil.
func (a *Archive) Logger() *slog.Logger {
	return a.log()
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Filename returns the archive's file name.
func (a *Archive) Filename() string { return a.filename }

// Format returns the archive's format.
func (a *Archive) Format() Format { return a.format }

// Root returns the root directory.
func (a *Archive) Root() *Dir { return a.root }

// Types returns the type registry used for detection.
func (a *Archive) Types() *entrytype.Registry { return a.types }

// IsTreeless reports whether the format has no real directories.
func (a *Archive) IsTreeless() bool { return a.format.Treeless() }

// IsClosed reports whether Close has been called.
func (a *Archive) IsClosed() bool { return a.closed }

// Modified reports whether the tree or any entry changed since the archive
// was loaded or saved.
func (a *Archive) Modified() bool {
	if a.root.Modified() {
		return true
	}
	for _, e := range a.root.AllEntries() {
		if e.state != StateUnmodified {
			return true
		}
	}
	return false
}

// ParentEntry returns the entry this archive is nested in, or nil.
func (a *Archive) ParentEntry() *Entry { return a.parent }

// ParentArchive returns the archive this archive is nested in, or nil.
func (a *Archive) ParentArchive() *Archive {
	if a.parent == nil {
		return nil
	}
	return a.parent.Archive()
}

// IsSubArchiveOf reports whether a is other or nested (at any depth) inside it.
func (a *Archive) IsSubArchiveOf(other *Archive) bool {
	if other == nil {
		return false
	}
	for cur := a; cur != nil; cur = cur.ParentArchive() {
		if cur == other {
			return true
		}
	}
	return false
}

func (a *Archive) String() string {
	if a == nil {
		return "<nil>"
	}
	return a.format.ID() + ":" + a.filename
}

// BeginLoad starts a bulk population. Events are suppressed until EndLoad.
func (a *Archive) BeginLoad() {
	a.loading = true
}

// EndLoad finishes a bulk population: every entry is unlocked for state
// changes and reset to unmodified, and the tree is marked clean.
func (a *Archive) EndLoad() {
	for _, e := range a.root.AllEntries() {
		e.UnlockState()
		e.state = StateUnmodified
	}
	a.markClean(a.root)
	a.loading = false
}

func (a *Archive) markClean(d *Dir) {
	d.modified = false
	for _, sub := range d.dirs {
		a.markClean(sub)
	}
}

// MarkSaved resets every entry to unmodified after the archive was written.
func (a *Archive) MarkSaved() {
	for _, e := range a.root.AllEntries() {
		e.setState(StateUnmodified, true)
	}
	a.markClean(a.root)
}

// LoadEntryData loads e's data through the format. Loading an already
// loaded entry does nothing.
func (a *Archive) LoadEntryData(e *Entry) error {
	if e.loaded {
		return nil
	}
	if e.Archive() != a {
		return ErrNotInArchive
	}
	data, err := a.format.LoadEntryData(e)
	if err != nil {
		a.log().Debug("entry load failed", "archive", a.filename, "entry", e.Path(true), "error", err)
		return fmt.Errorf("load %s: %w", e.Path(true), err)
	}
	e.setLoaded(data)
	return nil
}

// DetectEntryType classifies e with the archive's type registry. Data loaded
// only for detection is released again. Entries whose data cannot be loaded
// keep their current type.
func (a *Archive) DetectEntryType(e *Entry) {
	wasLoaded := e.loaded
	data := e.Data(true)
	if !e.loaded && e.size > 0 {
		return
	}
	t, r := a.types.Detect(data, e.name)
	e.SetType(t, r)
	if !wasLoaded {
		e.UnloadData()
	}
}

// DetectTypes classifies every unclassified entry.
func (a *Archive) DetectTypes() {
	for _, e := range a.root.AllEntries() {
		if e.Type().IsUnknown() {
			a.DetectEntryType(e)
		}
	}
}

// DetectNamespace returns the namespace of e, or "" if e is not in a.
func (a *Archive) DetectNamespace(e *Entry) string {
	if e.Archive() != a {
		return ""
	}
	return strings.ToLower(a.format.Namespace(e))
}

// owns reports whether d belongs to a's tree.
func (a *Archive) owns(d *Dir) bool {
	return d != nil && d.Archive() == a
}

// AddEntry inserts a detached entry into dir (nil means the root) at pos
// and announces it.
func (a *Archive) AddEntry(e *Entry, dir *Dir, pos int) error {
	if a.closed {
		return ErrClosed
	}
	if dir == nil {
		dir = a.root
	}
	if !a.owns(dir) {
		return ErrNotInArchive
	}
	if a.loading {
		e.LockState()
	}
	if err := dir.AddEntry(e, pos); err != nil {
		return err
	}
	e.setState(StateNew, true)
	a.emit(Event{Kind: EventEntryAdded, Archive: a, Entry: e})
	return nil
}

// CreateEntry creates an empty entry named name in dir at pos.
func (a *Archive) CreateEntry(name string, dir *Dir, pos int) (*Entry, error) {
	e := NewEntry(name, 0)
	e.loaded = true
	if err := a.AddEntry(e, dir, pos); err != nil {
		return nil, err
	}
	return e, nil
}

// RemoveEntry announces and removes e. Locked entries cannot be removed.
func (a *Archive) RemoveEntry(e *Entry) error {
	if e.Archive() != a {
		return ErrNotInArchive
	}
	if e.locked {
		return ErrLocked
	}
	a.emit(Event{Kind: EventEntryRemoving, Archive: a, Entry: e})
	if err := e.parent.RemoveEntry(e); err != nil {
		return err
	}
	if f, ok := a.format.(Forgetter); ok {
		f.ForgetEntry(e)
	}
	return nil
}

// RenameEntry renames e.
func (a *Archive) RenameEntry(e *Entry, name string) error {
	if e.Archive() != a {
		return ErrNotInArchive
	}
	return e.Rename(name)
}

// MoveEntry moves e to dir (nil means the root) at pos. Subscribers see the
// entry leave and rejoin since its namespace may change.
func (a *Archive) MoveEntry(e *Entry, dir *Dir, pos int) error {
	if e.Archive() != a {
		return ErrNotInArchive
	}
	if dir == nil {
		dir = a.root
	}
	if !a.owns(dir) {
		return ErrNotInArchive
	}
	a.emit(Event{Kind: EventEntryRemoving, Archive: a, Entry: e})
	if err := e.parent.MoveEntry(e, dir, pos); err != nil {
		return err
	}
	a.emit(Event{Kind: EventEntryAdded, Archive: a, Entry: e})
	return nil
}

// Entry returns the first root entry named name (case-insensitive), or nil.
func (a *Archive) Entry(name string) *Entry {
	return a.root.EntryByName(name, false)
}

// EntryAtPath returns the entry at absolute path p, or nil.
func (a *Archive) EntryAtPath(p string) *Entry {
	return a.root.resolve(p)
}

// EntryIndex returns the index of e in its directory, or -1 if e is not in a.
func (a *Archive) EntryIndex(e *Entry) int {
	if e.Archive() != a {
		return -1
	}
	return e.Index()
}

// AllEntries returns every entry, depth-first.
func (a *Archive) AllEntries() []*Entry {
	return a.root.AllEntries()
}

// NumEntries returns the total number of entries.
func (a *Archive) NumEntries() int {
	return a.root.NumEntries(true)
}

func (a *Archive) searchRoot(opts SearchOptions) *Dir {
	if opts.Dir == nil {
		return a.root
	}
	if !a.owns(opts.Dir) {
		return nil
	}
	return opts.Dir
}

// FindFirst returns the first entry matching opts.
func (a *Archive) FindFirst(opts SearchOptions) *Entry {
	if d := a.searchRoot(opts); d != nil {
		return d.FindFirst(opts)
	}
	return nil
}

// FindLast returns the last entry matching opts.
func (a *Archive) FindLast(opts SearchOptions) *Entry {
	if d := a.searchRoot(opts); d != nil {
		return d.FindLast(opts)
	}
	return nil
}

// FindAll returns every entry matching opts.
func (a *Archive) FindAll(opts SearchOptions) []*Entry {
	if d := a.searchRoot(opts); d != nil {
		return d.FindAll(opts)
	}
	return nil
}

// Close detaches every entry and drops all subscribers. Entries referenced
// elsewhere become unresolvable. A format that implements io.Closer is
// closed as well.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.subs = nil
	a.root.detachAll()
	if c, ok := a.format.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close %s: %w", a.filename, err)
		}
	}
	return nil
}
