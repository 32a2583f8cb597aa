package archive

import (
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/slade/archive/entrytype"
	"github.com/meigma/slade/internal/pathutil"
	"github.com/meigma/slade/internal/sizing"
	"github.com/meigma/slade/internal/strutil"
	"github.com/meigma/slade/memchunk"
)

// State tracks whether an entry differs from its on-disk form.
type State uint8

const (
	// StateUnmodified means the entry matches what was loaded from disk.
	StateUnmodified State = iota
	// StateModified means the entry changed since it was loaded.
	StateModified
	// StateNew means the entry was created in memory.
	StateNew
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnmodified:
		return "unmodified"
	case StateModified:
		return "modified"
	case StateNew:
		return "new"
	default:
		return "unknown"
	}
}

// Encryption marks data that a format decoder must decrypt before use.
type Encryption uint8

const (
	EncryptionNone Encryption = iota
	EncryptionJaguar
	EncryptionBlood
	EncryptionSCRLE0
	EncryptionTXB
)

// Props holds format-specific metadata for an entry.
type Props map[string]any

// Interface compliance.
var (
	_ io.ReadWriteSeeker = (*Entry)(nil)
)

// Entry is a named, typed blob of data inside an archive.
//
// An Entry belongs to at most one Dir. Its data is loaded lazily from the
// owning archive on first access. Entries are not safe for concurrent use.
type Entry struct {
	name        string
	upper       string
	size        uint32
	data        memchunk.Chunk
	typ         *entrytype.Type
	reliability uint8
	props       Props
	state       State
	stateLocked bool
	locked      bool
	loaded      bool
	encryption  Encryption
	parent      *Dir
	prev, next  *Entry
}

// NewEntry creates a detached entry with the given name and cached size.
// The entry has no data until it is imported or loaded.
func NewEntry(name string, size uint32) *Entry {
	e := &Entry{size: size, state: StateNew, reliability: 255}
	e.SetName(name)
	return e
}

// Name returns the entry name in its original case.
func (e *Entry) Name() string { return e.name }

// UpperName returns the cached upper-case name.
func (e *Entry) UpperName() string { return e.upper }

// NameNoExt returns the name without its last extension.
func (e *Entry) NameNoExt() string { return pathutil.StripExt(e.name) }

// UpperNameNoExt returns the upper-case name without its last extension.
func (e *Entry) UpperNameNoExt() string { return pathutil.StripExt(e.upper) }

// SetName changes the name without touching state or notifying anyone.
func (e *Entry) SetName(name string) {
	e.name = name
	e.upper = strutil.Upper(name)
}

// Parent returns the directory holding the entry, or nil if detached.
func (e *Entry) Parent() *Dir { return e.parent }

// Next returns the following sibling, or nil.
func (e *Entry) Next() *Entry { return e.next }

// Prev returns the preceding sibling, or nil.
func (e *Entry) Prev() *Entry { return e.prev }

// Archive returns the archive that owns the entry, or nil.
func (e *Entry) Archive() *Archive {
	if e.parent == nil {
		return nil
	}
	return e.parent.Archive()
}

// Index returns the entry's position in its directory, or -1.
func (e *Entry) Index() int {
	if e.parent == nil {
		return -1
	}
	return e.parent.EntryIndex(e)
}

// Path returns the directory path of the entry, optionally followed by its name.
func (e *Entry) Path(includeName bool) string {
	p := "/"
	if e.parent != nil {
		p = e.parent.Path()
	}
	if includeName {
		p += e.name
	}
	return p
}

// Size returns the data size. It never forces a load.
func (e *Entry) Size() uint32 {
	if e.loaded {
		return e.data.Size()
	}
	return e.size
}

// IsLoaded reports whether the data is resident.
func (e *Entry) IsLoaded() bool { return e.loaded }

// Data returns the entry data. If the data is not resident and allowLoad is
// true, it is loaded through the owning archive. A failed load leaves the
// entry unloaded and returns whatever is resident.
func (e *Entry) Data(allowLoad bool) []byte {
	if !e.loaded && allowLoad {
		if a := e.Archive(); a != nil {
			_ = a.LoadEntryData(e)
		}
	}
	return e.data.Bytes()
}

// setLoaded installs data read from the backing store without changing state.
func (e *Entry) setLoaded(b []byte) {
	e.data.Import(b)
	e.size = e.data.Size()
	e.loaded = true
}

// UnloadData frees the resident data of an unmodified entry.
func (e *Entry) UnloadData() {
	if !e.loaded || e.state != StateUnmodified {
		return
	}
	e.size = e.data.Size()
	e.data.Clear()
	e.loaded = false
}

// State returns the modification state.
func (e *Entry) State() State { return e.state }

// SetState changes the modification state and notifies the owning archive.
// It does nothing while the state is locked. A new entry stays new when
// marked modified.
func (e *Entry) SetState(s State) {
	e.setState(s, false)
}

func (e *Entry) setState(s State, silent bool) {
	if e.stateLocked || (s == StateUnmodified && e.state == StateUnmodified) {
		return
	}
	if !(e.state == StateNew && s == StateModified) {
		e.state = s
	}
	if !silent {
		e.announce(EventEntryStateChanged, "")
	}
}

// LockState suppresses state changes.
func (e *Entry) LockState() { e.stateLocked = true }

// UnlockState re-enables state changes.
func (e *Entry) UnlockState() { e.stateLocked = false }

// IsStateLocked reports whether state changes are suppressed.
func (e *Entry) IsStateLocked() bool { return e.stateLocked }

// Lock makes the entry read-only.
func (e *Entry) Lock() { e.locked = true }

// Unlock makes the entry writable.
func (e *Entry) Unlock() { e.locked = false }

// IsLocked reports whether the entry is read-only.
func (e *Entry) IsLocked() bool { return e.locked }

// Encryption returns the encryption marker.
func (e *Entry) Encryption() Encryption { return e.encryption }

// SetEncryption sets the encryption marker.
func (e *Entry) SetEncryption(enc Encryption) { e.encryption = enc }

// Type returns the detected type; unclassified entries report the unknown type.
func (e *Entry) Type() *entrytype.Type {
	if e.typ == nil {
		return entrytype.Default().Unknown()
	}
	return e.typ
}

// SetType sets the detected type and the detection confidence (0–255).
func (e *Entry) SetType(t *entrytype.Type, reliability uint8) {
	e.typ = t
	e.reliability = reliability
}

// TypeReliability scales the type's reliability by the detection confidence.
func (e *Entry) TypeReliability() uint8 {
	return uint8(int(e.Type().Reliability) * int(e.reliability) / 255) //nolint:gosec // product/255 fits a byte
}

// Props returns the extra property map, creating it if needed.
func (e *Entry) Props() Props {
	if e.props == nil {
		e.props = make(Props)
	}
	return e.props
}

// Prop returns the extra property key.
func (e *Entry) Prop(key string) (any, bool) {
	v, ok := e.props[key]
	return v, ok
}

// SetProp sets the extra property key.
func (e *Entry) SetProp(key string, v any) {
	e.Props()[key] = v
}

// IsInNamespace reports whether the owning archive places the entry in ns.
func (e *Entry) IsInNamespace(ns string) bool {
	a := e.Archive()
	if a == nil {
		return false
	}
	return strutil.EqualFold(a.DetectNamespace(e), ns)
}

// RelativeEntry resolves p against the entry's directory. If nothing is
// found and allowAbsolute is true, p is resolved from the archive root.
func (e *Entry) RelativeEntry(p string, allowAbsolute bool) *Entry {
	if e.parent == nil {
		return nil
	}
	if found := e.parent.resolve(p); found != nil {
		return found
	}
	if allowAbsolute {
		return e.parent.Root().resolve(p)
	}
	return nil
}

// Rename changes the name, marks the entry modified and clears its type so
// it is re-detected under the new name.
func (e *Entry) Rename(name string) error {
	if e.locked {
		return ErrLocked
	}
	e.announce(EventEntryRenaming, name)
	e.SetName(name)
	if e.parent != nil {
		e.parent.SetModified(true)
	}
	e.typ, e.reliability = nil, 255
	e.setState(StateModified, false)
	return nil
}

// Resize grows or shrinks the data to n bytes. With preserve false the
// data is zeroed.
func (e *Entry) Resize(n uint32, preserve bool) error {
	if e.locked {
		return ErrLocked
	}
	if preserve {
		e.Data(true)
	}
	e.data.Resize(n, preserve)
	e.size = n
	e.loaded = true
	e.setState(StateModified, false)
	return nil
}

// Write writes p at the cursor, growing the data as needed.
func (e *Entry) Write(p []byte) (int, error) {
	if e.locked {
		return 0, ErrLocked
	}
	e.Data(true)
	n, err := e.data.Write(p)
	e.loaded = true
	if n > 0 {
		e.size = e.data.Size()
		e.setState(StateModified, false)
	}
	return n, err
}

// Read reads from the cursor, loading data first if needed.
func (e *Entry) Read(p []byte) (int, error) {
	e.Data(true)
	return e.data.Read(p)
}

// Seek moves the data cursor, loading data first if needed.
func (e *Entry) Seek(offset int64, whence int) (int64, error) {
	e.Data(true)
	return e.data.Seek(offset, whence)
}

// Tell returns the data cursor position.
func (e *Entry) Tell() int64 {
	return e.data.Tell()
}

// ImportMem replaces the data with a copy of b.
func (e *Entry) ImportMem(b []byte) error {
	if e.locked {
		return ErrLocked
	}
	if _, err := sizing.ToUint32(len(b)); err != nil {
		return err
	}
	e.commitImport(b)
	return nil
}

// ImportChunk replaces the data with a copy of c.
func (e *Entry) ImportChunk(c *memchunk.Chunk) error {
	return e.ImportMem(c.Bytes())
}

// ImportFile replaces the data with length bytes of the file at path,
// starting at offset. A length of 0 reads to the end of the file.
func (e *Entry) ImportFile(path string, offset, length int64) error {
	if e.locked {
		return ErrLocked
	}
	var c memchunk.Chunk
	if err := c.ImportFile(path, offset, length); err != nil {
		return err
	}
	e.commitImport(c.Bytes())
	return nil
}

// ImportReader replaces the data with exactly length bytes read from r.
func (e *Entry) ImportReader(r io.Reader, length uint32) error {
	if e.locked {
		return ErrLocked
	}
	var c memchunk.Chunk
	if err := c.ImportReader(r, length); err != nil {
		return err
	}
	e.commitImport(c.Bytes())
	return nil
}

// ImportEntry replaces the data with the data of other.
func (e *Entry) ImportEntry(other *Entry) error {
	if e.locked {
		return ErrLocked
	}
	e.commitImport(other.Data(true))
	return nil
}

func (e *Entry) commitImport(b []byte) {
	e.setLoaded(b)
	e.typ, e.reliability = nil, 255
	e.encryption = EncryptionNone
	e.setState(StateModified, false)
}

// ExportFile writes the data to path, loading it first if needed.
func (e *Entry) ExportFile(path string) error {
	if !e.loaded && e.size > 0 {
		a := e.Archive()
		if a == nil {
			return ErrNoArchive
		}
		if err := a.LoadEntryData(e); err != nil {
			return err
		}
	}
	return e.data.ExportFile(path)
}

// CRC returns the CRC-32 of the data, loading it if needed.
func (e *Entry) CRC() uint32 {
	e.Data(true)
	return e.data.CRC()
}

// Digest returns the sha256 digest of the data, loading it if needed.
func (e *Entry) Digest() digest.Digest {
	e.Data(true)
	return e.data.Digest()
}

// Hash returns the xxhash fingerprint of the data, loading it if needed.
func (e *Entry) Hash() uint64 {
	e.Data(true)
	return e.data.Hash()
}

// Clone returns a detached, new copy of the entry with its data, type and
// extra properties.
func (e *Entry) Clone() *Entry {
	c := NewEntry(e.name, e.Size())
	c.setLoaded(e.Data(true))
	c.typ, c.reliability = e.typ, e.reliability
	c.encryption = e.encryption
	for k, v := range e.props {
		c.SetProp(k, v)
	}
	return c
}

// announce sends an event for e to its archive's subscribers.
func (e *Entry) announce(kind EventKind, newName string) {
	if a := e.Archive(); a != nil {
		a.emit(Event{Kind: kind, Archive: a, Entry: e, NewName: newName})
	}
}
