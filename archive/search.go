package archive

import (
	"github.com/meigma/slade/archive/entrytype"
	"github.com/meigma/slade/internal/strutil"
)

// SearchOptions selects entries for FindFirst, FindLast and FindAll.
// Zero-valued fields match everything.
type SearchOptions struct {
	// Name matches case-insensitively; '*' and '?' are wildcards.
	Name string
	// Type matches entries whose type has the same ID. Unclassified entries
	// are detected before comparison.
	Type *entrytype.Type
	// Namespace matches entries the owning archive places in it.
	Namespace string
	// IgnoreExt compares Name against the name without its extension.
	IgnoreExt bool
	// SearchSubdirs descends into subdirectories.
	SearchSubdirs bool
	// Dir is where the search starts. Nil means the archive root.
	Dir *Dir
}

func (o *SearchOptions) match(a *Archive, e *Entry) bool {
	if o.Type != nil {
		if e.Type().IsUnknown() && a != nil {
			a.DetectEntryType(e)
		}
		if e.Type().ID != o.Type.ID {
			return false
		}
	}
	if o.Name != "" {
		name := e.name
		if o.IgnoreExt {
			name = e.NameNoExt()
		}
		if !strutil.Match(o.Name, name) {
			return false
		}
	}
	if o.Namespace != "" {
		if a == nil || !strutil.EqualFold(a.DetectNamespace(e), o.Namespace) {
			return false
		}
	}
	return true
}

// FindFirst returns the first matching entry in sibling order, searching a
// directory's entries before its subdirectories.
func (d *Dir) FindFirst(opts SearchOptions) *Entry {
	a := d.Archive()
	for _, e := range d.entries {
		if opts.match(a, e) {
			return e
		}
	}
	if opts.SearchSubdirs {
		for _, sub := range d.dirs {
			if e := sub.FindFirst(opts); e != nil {
				return e
			}
		}
	}
	return nil
}

// FindLast returns the last matching entry: the exact reverse of FindFirst's
// scan order.
func (d *Dir) FindLast(opts SearchOptions) *Entry {
	a := d.Archive()
	if opts.SearchSubdirs {
		for i := len(d.dirs) - 1; i >= 0; i-- {
			if e := d.dirs[i].FindLast(opts); e != nil {
				return e
			}
		}
	}
	for i := len(d.entries) - 1; i >= 0; i-- {
		if opts.match(a, d.entries[i]) {
			return d.entries[i]
		}
	}
	return nil
}

// FindAll returns every matching entry in FindFirst order.
func (d *Dir) FindAll(opts SearchOptions) []*Entry {
	return d.findAll(d.Archive(), opts, nil)
}

func (d *Dir) findAll(a *Archive, opts SearchOptions, out []*Entry) []*Entry {
	for _, e := range d.entries {
		if opts.match(a, e) {
			out = append(out, e)
		}
	}
	if opts.SearchSubdirs {
		for _, sub := range d.dirs {
			out = sub.findAll(a, opts, out)
		}
	}
	return out
}
