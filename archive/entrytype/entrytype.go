// Package entrytype classifies entry data into typed descriptors.
//
// A Registry holds an ordered list of types. Detection asks every type's
// detector for a confidence score in [0, 255] and picks the type whose score,
// weighted by the type's intrinsic reliability, is highest.
package entrytype

import (
	"errors"
	"fmt"
	"sync"
)

// Editor identifiers used by entry types.
const (
	EditorDefault = "default"
	EditorGfx     = "gfx"
	EditorPalette = "palette"
	EditorTexture = "texture"
	EditorText    = "text"
	EditorData    = "data"
	EditorArchive = "archive"
)

// IDUnknown is the ID of the type assigned to unclassified entries.
const IDUnknown = "unknown"

// Common extra property keys.
const (
	PropPatch = "patch"
	PropImage = "image"
)

// ErrDuplicate is returned when a type ID is registered twice.
var ErrDuplicate = errors.New("entrytype: duplicate type id")

// DetectFunc scores how likely data (with entry name name) is of a type.
// 0 means "not this type" and 255 means certain.
type DetectFunc func(data []byte, name string) uint8

// Type describes one kind of entry.
type Type struct {
	ID          string
	Name        string
	Format      string
	Editor      string
	Extension   string
	Reliability uint8
	Props       map[string]string
	Detect      DetectFunc
}

// HasProp reports whether the type declares the extra property key.
func (t *Type) HasProp(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Props[key]
	return ok
}

// IsUnknown reports whether t is nil or the unknown type.
func (t *Type) IsUnknown() bool {
	return t == nil || t.ID == IDUnknown
}

func (t *Type) String() string {
	if t == nil {
		return IDUnknown
	}
	return t.ID
}

// Registry maps type IDs to types and runs detection.
//
// Register must not be called concurrently with other methods; once
// populated, a Registry is safe for concurrent reads.
type Registry struct {
	types   []*Type
	byID    map[string]*Type
	unknown *Type
}

// NewRegistry returns a registry holding only the unknown type.
func NewRegistry() *Registry {
	unknown := &Type{
		ID:          IDUnknown,
		Name:        "Unknown",
		Format:      "any",
		Editor:      EditorDefault,
		Reliability: 255,
	}
	return &Registry{
		byID:    map[string]*Type{IDUnknown: unknown},
		unknown: unknown,
	}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	for _, t := range builtins() {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
})

// Default returns the shared registry populated with the built-in types.
// Callers that need extra types should build their own with NewRegistry and
// RegisterBuiltins.
func Default() *Registry {
	return defaultRegistry()
}

// RegisterBuiltins adds the built-in types to r.
func RegisterBuiltins(r *Registry) error {
	for _, t := range builtins() {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Register adds t. Detection order follows registration order.
func (r *Registry) Register(t *Type) error {
	if t == nil || t.ID == "" {
		return errors.New("entrytype: type id is empty")
	}
	if _, ok := r.byID[t.ID]; ok {
		return fmt.Errorf("register %s: %w", t.ID, ErrDuplicate)
	}
	r.types = append(r.types, t)
	r.byID[t.ID] = t
	return nil
}

// Get returns the type with the given ID, or nil.
func (r *Registry) Get(id string) *Type {
	return r.byID[id]
}

// Unknown returns the unknown type.
func (r *Registry) Unknown() *Type {
	return r.unknown
}

// Types returns the registered types in detection order, excluding unknown.
func (r *Registry) Types() []*Type {
	return append([]*Type(nil), r.types...)
}

// Detect returns the best matching type for data and the detector's score.
// When nothing matches it returns the unknown type with a score of 255.
func (r *Registry) Detect(data []byte, name string) (*Type, uint8) {
	best, bestScore, bestWeight := r.unknown, uint8(255), 0
	for _, t := range r.types {
		if t.Detect == nil {
			continue
		}
		s := t.Detect(data, name)
		if s == 0 {
			continue
		}
		if w := int(t.Reliability) * int(s); w > bestWeight {
			best, bestScore, bestWeight = t, s, w
		}
	}
	return best, bestScore
}
