// Package testutil provides in-memory archives and lump builders for tests.
package testutil

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/meigma/slade/archive"
)

// PropNamespace overrides the namespace MemFormat reports for an entry.
const PropNamespace = "namespace"

// MemFormat is an archive format that keeps entry data in memory and counts
// loads. Namespaces come from the PropNamespace property when set, otherwise
// from the top-level directory.
type MemFormat struct {
	treeless bool

	mu    sync.Mutex
	data  map[*archive.Entry][]byte
	loads map[*archive.Entry]int
}

// NewMemFormat returns an empty in-memory format.
func NewMemFormat(treeless bool) *MemFormat {
	return &MemFormat{
		treeless: treeless,
		data:     make(map[*archive.Entry][]byte),
		loads:    make(map[*archive.Entry]int),
	}
}

// ID implements archive.Format.
func (f *MemFormat) ID() string { return "mem" }

// Treeless implements archive.Format.
func (f *MemFormat) Treeless() bool { return f.treeless }

// LoadEntryData implements archive.Format.
func (f *MemFormat) LoadEntryData(e *archive.Entry) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[e]
	if !ok {
		return nil, archive.ErrNoData
	}
	f.loads[e]++
	return data, nil
}

// Namespace implements archive.Format.
func (f *MemFormat) Namespace(e *archive.Entry) string {
	if v, ok := e.Prop(PropNamespace); ok {
		if ns, ok := v.(string); ok {
			return ns
		}
	}
	top, _, _ := strings.Cut(strings.TrimPrefix(e.Path(false), "/"), "/")
	if top == "" {
		return archive.NamespaceGlobal
	}
	return top
}

// ForgetEntry implements archive.Forgetter.
func (f *MemFormat) ForgetEntry(e *archive.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, e)
}

// Loads returns how many times e's data was loaded.
func (f *MemFormat) Loads(e *archive.Entry) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads[e]
}

// Store replaces the backing data for e.
func (f *MemFormat) Store(e *archive.Entry, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[e] = data
}

// Lump describes one entry of a test archive. Path may include
// directories; Namespace, when set, overrides the directory-derived one.
type Lump struct {
	Path      string
	Data      []byte
	Namespace string
}

// NewArchive builds a loaded archive holding lumps in order. Entry data is
// not resident and types are detected, as after opening a real file.
func NewArchive(tb testing.TB, filename string, lumps []Lump, opts ...archive.Option) (*archive.Archive, *MemFormat) {
	tb.Helper()

	f := NewMemFormat(false)
	a := archive.New(filename, f, opts...)
	a.BeginLoad()
	for _, l := range lumps {
		dir, name := splitPath(a, l.Path)
		e := archive.NewEntry(name, uint32(len(l.Data))) //nolint:gosec // test data is small
		if l.Namespace != "" {
			e.SetProp(PropNamespace, l.Namespace)
		}
		f.Store(e, l.Data)
		if err := a.AddEntry(e, dir, -1); err != nil {
			tb.Fatalf("add %s: %v", l.Path, err)
		}
	}
	a.EndLoad()
	a.DetectTypes()
	return a, f
}

// AddLump adds a lump to an already loaded archive, announcing it to
// subscribers the way an editor would. The new entry is returned.
func AddLump(tb testing.TB, a *archive.Archive, l Lump) *archive.Entry {
	tb.Helper()

	dir, name := splitPath(a, l.Path)
	e := archive.NewEntry(name, 0)
	if err := e.ImportMem(l.Data); err != nil {
		tb.Fatalf("import %s: %v", l.Path, err)
	}
	if l.Namespace != "" {
		e.SetProp(PropNamespace, l.Namespace)
	}
	e.SetType(a.Types().Detect(l.Data, name))
	if err := a.AddEntry(e, dir, -1); err != nil {
		tb.Fatalf("add %s: %v", l.Path, err)
	}
	return e
}

func splitPath(a *archive.Archive, p string) (*archive.Dir, string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return a.Root(), p
	}
	return a.Root().DirAtPath(p[:i], true), p[i+1:]
}

// ByteSource is an in-memory io.ReaderAt with a size, standing in for an
// open archive file.
type ByteSource struct {
	data []byte
}

// NewByteSource returns a byte source backed by data.
func NewByteSource(data []byte) *ByteSource {
	return &ByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (b *ByteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (b *ByteSource) Size() int64 {
	return int64(len(b.data))
}
