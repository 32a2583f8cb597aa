package resource

import (
	"slices"
	"weak"

	"github.com/meigma/slade/archive"
)

// EntryResource is every entry indexed under one key of a bucket, in the
// order they were added.
//
// Entries are held weakly: the archive tree owns them. An entry that was
// collected, or that has been detached from its archive, is expired and
// never returned.
type EntryResource struct {
	reg  *archive.Registry
	refs []weak.Pointer[archive.Entry]
}

func newEntryResource(reg *archive.Registry) *EntryResource {
	return &EntryResource{reg: reg}
}

func (r *EntryResource) add(e *archive.Entry) {
	p := weak.Make(e)
	if slices.Contains(r.refs, p) {
		return
	}
	r.refs = append(r.refs, p)
}

func (r *EntryResource) remove(e *archive.Entry) {
	p := weak.Make(e)
	r.refs = slices.DeleteFunc(r.refs, func(q weak.Pointer[archive.Entry]) bool {
		return q == p
	})
}

// live returns the entry p points at, or nil if it expired.
func live(p weak.Pointer[archive.Entry]) *archive.Entry {
	e := p.Value()
	if e == nil || e.Archive() == nil {
		return nil
	}
	return e
}

// prune drops expired references and returns the live entries.
func (r *EntryResource) prune() []*archive.Entry {
	entries := make([]*archive.Entry, 0, len(r.refs))
	kept := r.refs[:0]
	for _, p := range r.refs {
		if e := live(p); e != nil {
			kept = append(kept, p)
			entries = append(entries, e)
		}
	}
	clear(r.refs[len(kept):])
	r.refs = kept
	return entries
}

// Len returns the number of live entries.
func (r *EntryResource) Len() int {
	return len(r.prune())
}

// Get picks the entry that should be used for this key.
//
// Candidates are considered in insertion order:
//  1. If nsRequired is set and ns is not empty, candidates outside ns are
//     skipped.
//  2. A candidate in priority, or in an archive nested inside it, wins
//     immediately.
//  3. If ns is a soft preference (nsRequired unset) and the current best is
//     outside ns while the candidate is inside, the candidate becomes best.
//  4. Otherwise the candidate becomes best if its archive was registered at
//     the same position as, or later than, the current best's.
//
// Get returns nil if no candidate survives.
func (r *EntryResource) Get(priority *archive.Archive, ns string, nsRequired bool) *archive.Entry {
	var best *archive.Entry
	for _, e := range r.prune() {
		if nsRequired && ns != "" && !e.IsInNamespace(ns) {
			continue
		}
		if priority != nil && e.Archive().IsSubArchiveOf(priority) {
			return e
		}
		if best == nil {
			best = e
			continue
		}
		if !nsRequired && ns != "" && !best.IsInNamespace(ns) && e.IsInNamespace(ns) {
			best = e
			continue
		}
		if r.reg.Index(best.Archive()) <= r.reg.Index(e.Archive()) {
			best = e
		}
	}
	return best
}
