package archive

import (
	"iter"
	"slices"

	"github.com/meigma/slade/internal/pathutil"
	"github.com/meigma/slade/internal/strutil"
)

// Dir is a directory node: an ordered list of entries and child directories.
//
// Entry order is significant and preserved across every mutation. Dir
// methods change structure only; they do not notify archive subscribers.
// Use the Archive methods for announced changes.
type Dir struct {
	name     string
	parent   *Dir
	archive  *Archive // set on the root only
	entries  []*Entry
	dirs     []*Dir
	modified bool
}

// NewDir creates a detached directory.
func NewDir(name string) *Dir {
	return &Dir{name: name}
}

// Name returns the directory name. The root's name is empty.
func (d *Dir) Name() string { return d.name }

// Parent returns the parent directory, or nil for a root.
func (d *Dir) Parent() *Dir { return d.parent }

// Root returns the topmost ancestor of d.
func (d *Dir) Root() *Dir {
	for d.parent != nil {
		d = d.parent
	}
	return d
}

// Archive returns the archive owning the tree, or nil.
func (d *Dir) Archive() *Archive {
	return d.Root().archive
}

// Path returns the absolute path of the directory, with leading and
// trailing slashes ("/" for the root).
func (d *Dir) Path() string {
	if d.parent == nil {
		return "/"
	}
	return d.parent.Path() + d.name + "/"
}

// Modified reports whether the directory structure changed.
func (d *Dir) Modified() bool { return d.modified }

// SetModified sets the modified flag. Marking a directory modified also
// marks its ancestors.
func (d *Dir) SetModified(m bool) {
	d.modified = m
	if m && d.parent != nil {
		d.parent.SetModified(true)
	}
}

// NumEntries returns the number of entries, including those in
// subdirectories when recursive is true.
func (d *Dir) NumEntries(recursive bool) int {
	n := len(d.entries)
	if recursive {
		for _, sub := range d.dirs {
			n += sub.NumEntries(true)
		}
	}
	return n
}

// Entry returns the entry at index i, or nil.
func (d *Dir) Entry(i int) *Entry {
	if i < 0 || i >= len(d.entries) {
		return nil
	}
	return d.entries[i]
}

// Entries iterates over the entries of d in order.
func (d *Dir) Entries() iter.Seq[*Entry] {
	return slices.Values(d.entries)
}

// EntryList returns a copy of the entries of d.
func (d *Dir) EntryList() []*Entry {
	return slices.Clone(d.entries)
}

// EntryByName returns the first entry named name, or nil.
func (d *Dir) EntryByName(name string, caseSensitive bool) *Entry {
	for _, e := range d.entries {
		if caseSensitive && e.name == name {
			return e
		}
		if !caseSensitive && strutil.EqualFold(e.name, name) {
			return e
		}
	}
	return nil
}

// EntryIndex returns the index of e in d, or -1.
func (d *Dir) EntryIndex(e *Entry) int {
	if e == nil || e.parent != d {
		return -1
	}
	return slices.Index(d.entries, e)
}

// AddEntry inserts e at pos. A negative or out-of-range pos appends.
func (d *Dir) AddEntry(e *Entry, pos int) error {
	if e.parent != nil {
		return ErrAttached
	}
	if pos < 0 || pos > len(d.entries) {
		pos = len(d.entries)
	}
	d.entries = slices.Insert(d.entries, pos, e)
	e.parent = d
	d.link(pos)
	d.SetModified(true)
	return nil
}

// RemoveEntry detaches e from d.
func (d *Dir) RemoveEntry(e *Entry) error {
	i := d.EntryIndex(e)
	if i < 0 {
		return ErrNotInArchive
	}
	_, err := d.RemoveEntryAt(i)
	return err
}

// RemoveEntryAt detaches and returns the entry at index i.
func (d *Dir) RemoveEntryAt(i int) (*Entry, error) {
	if i < 0 || i >= len(d.entries) {
		return nil, ErrInvalidPosition
	}
	e := d.entries[i]
	d.entries = slices.Delete(d.entries, i, i+1)
	e.parent, e.prev, e.next = nil, nil, nil
	d.link(i - 1)
	d.link(i)
	d.SetModified(true)
	return e, nil
}

// MoveEntry moves e from d to dst at pos. dst may be d itself; a negative
// or out-of-range pos appends.
func (d *Dir) MoveEntry(e *Entry, dst *Dir, pos int) error {
	if _, err := d.RemoveEntryAt(d.EntryIndex(e)); err != nil {
		return err
	}
	return dst.AddEntry(e, pos)
}

// SwapEntries exchanges the entries at i and j.
func (d *Dir) SwapEntries(i, j int) error {
	if i < 0 || j < 0 || i >= len(d.entries) || j >= len(d.entries) {
		return ErrInvalidPosition
	}
	d.entries[i], d.entries[j] = d.entries[j], d.entries[i]
	d.link(i)
	d.link(j)
	d.SetModified(true)
	return nil
}

// link repairs the sibling pointers around index i.
func (d *Dir) link(i int) {
	if i < 0 || i >= len(d.entries) {
		return
	}
	e := d.entries[i]
	e.prev, e.next = nil, nil
	if i > 0 {
		e.prev = d.entries[i-1]
		e.prev.next = e
	}
	if i+1 < len(d.entries) {
		e.next = d.entries[i+1]
		e.next.prev = e
	}
}

// Dirs returns a copy of the child directories.
func (d *Dir) Dirs() []*Dir {
	return slices.Clone(d.dirs)
}

// Dir returns the child directory named name (case-insensitive), or nil.
func (d *Dir) Dir(name string) *Dir {
	for _, sub := range d.dirs {
		if strutil.EqualFold(sub.name, name) {
			return sub
		}
	}
	return nil
}

// AddDir returns the child directory named name, creating it if needed.
func (d *Dir) AddDir(name string) *Dir {
	if sub := d.Dir(name); sub != nil {
		return sub
	}
	sub := &Dir{name: name, parent: d}
	d.dirs = append(d.dirs, sub)
	d.SetModified(true)
	return sub
}

// AttachDir adds a detached directory tree as a child of d.
func (d *Dir) AttachDir(sub *Dir) error {
	if sub.parent != nil || sub.archive != nil {
		return ErrAttached
	}
	if d.Dir(sub.name) != nil {
		return ErrAttached
	}
	sub.parent = d
	d.dirs = append(d.dirs, sub)
	d.SetModified(true)
	return nil
}

// RemoveDir detaches and returns the child directory named name, or nil.
// Entries inside it stay attached to the detached subtree.
func (d *Dir) RemoveDir(name string) *Dir {
	for i, sub := range d.dirs {
		if strutil.EqualFold(sub.name, name) {
			d.dirs = slices.Delete(d.dirs, i, i+1)
			sub.parent = nil
			d.SetModified(true)
			return sub
		}
	}
	return nil
}

// DirAtPath walks p from d. Missing directories are created when create is
// true; otherwise nil is returned.
func (d *Dir) DirAtPath(p string, create bool) *Dir {
	cur := d
	if pathutil.IsAbs(p) {
		cur = d.Root()
	}
	for _, part := range pathutil.Split(p) {
		switch part {
		case ".":
			continue
		case "..":
			if cur.parent == nil {
				return nil
			}
			cur = cur.parent
			continue
		}
		next := cur.Dir(part)
		if next == nil {
			if !create {
				return nil
			}
			next = cur.AddDir(part)
		}
		cur = next
	}
	return cur
}

// resolve finds the entry at relative path p below d.
func (d *Dir) resolve(p string) *Entry {
	parts := pathutil.Split(p)
	if len(parts) == 0 {
		return nil
	}
	cur := d
	for _, part := range parts[:len(parts)-1] {
		switch part {
		case ".":
			continue
		case "..":
			if cur.parent == nil {
				return nil
			}
			cur = cur.parent
		default:
			if cur = cur.Dir(part); cur == nil {
				return nil
			}
		}
	}
	return cur.EntryByName(parts[len(parts)-1], false)
}

// AllEntries returns every entry in the tree below d, depth-first with each
// directory's own entries before its subdirectories.
func (d *Dir) AllEntries() []*Entry {
	out := make([]*Entry, 0, d.NumEntries(true))
	return d.appendAll(out)
}

func (d *Dir) appendAll(out []*Entry) []*Entry {
	out = append(out, d.entries...)
	for _, sub := range d.dirs {
		out = sub.appendAll(out)
	}
	return out
}

// detachAll clears parent and sibling links of every entry in the tree.
func (d *Dir) detachAll() {
	for _, e := range d.entries {
		e.parent, e.prev, e.next = nil, nil, nil
	}
	d.entries = nil
	for _, sub := range d.dirs {
		sub.detachAll()
		sub.parent = nil
	}
	d.dirs = nil
}
