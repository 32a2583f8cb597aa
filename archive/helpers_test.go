package archive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// memFormat keeps entry data in a map and counts loads.
type memFormat struct {
	treeless bool
	store    map[*Entry][]byte
	loads    map[*Entry]int
}

func newMemFormat(treeless bool) *memFormat {
	return &memFormat{
		treeless: treeless,
		store:    make(map[*Entry][]byte),
		loads:    make(map[*Entry]int),
	}
}

func (f *memFormat) ID() string     { return "mem" }
func (f *memFormat) Treeless() bool { return f.treeless }

func (f *memFormat) LoadEntryData(e *Entry) ([]byte, error) {
	data, ok := f.store[e]
	if !ok {
		return nil, ErrNoData
	}
	f.loads[e]++
	return data, nil
}

// Namespace is the top-level directory name, or global at the root.
func (f *memFormat) Namespace(e *Entry) string {
	parts := strings.Split(strings.Trim(e.Path(false), "/"), "/")
	if parts[0] == "" {
		return NamespaceGlobal
	}
	return parts[0]
}

func (f *memFormat) ForgetEntry(e *Entry) {
	delete(f.store, e)
}

// newTestArchive builds an archive from path → data pairs, loaded like a
// format would: states reset to unmodified, data not resident.
func newTestArchive(t *testing.T, files ...string) (*Archive, *memFormat) {
	t.Helper()
	require.Zero(t, len(files)%2, "files must be path/data pairs")

	f := newMemFormat(false)
	a := New("test.pk3", f)
	a.BeginLoad()
	for i := 0; i < len(files); i += 2 {
		path, data := files[i], []byte(files[i+1])
		dir := a.Root()
		if j := strings.LastIndex(path, "/"); j >= 0 {
			dir = dir.DirAtPath(path[:j], true)
			path = path[j+1:]
		}
		e := NewEntry(path, uint32(len(data)))
		f.store[e] = data
		require.NoError(t, a.AddEntry(e, dir, -1))
	}
	a.EndLoad()
	return a, f
}

// recorder collects events.
type recorder struct {
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}
