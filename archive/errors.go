package archive

import "errors"

var (
	// ErrLocked is returned when a mutating operation targets a locked entry.
	ErrLocked = errors.New("archive: entry is locked")

	// ErrNotInArchive is returned when an entry or directory does not belong
	// to the archive an operation was called on.
	ErrNotInArchive = errors.New("archive: not in this archive")

	// ErrAttached is returned when adding an entry or directory that already
	// has a parent.
	ErrAttached = errors.New("archive: already attached")

	// ErrNoArchive is returned when an entry has no owning archive to load
	// data from.
	ErrNoArchive = errors.New("archive: entry has no archive")

	// ErrInvalidPosition is returned for out-of-range entry indexes.
	ErrInvalidPosition = errors.New("archive: invalid position")

	// ErrClosed is returned for operations on a closed archive.
	ErrClosed = errors.New("archive: closed")

	// ErrNoData is returned by formats asked to load an entry they have no
	// backing data for.
	ErrNoData = errors.New("archive: no backing data for entry")
)
