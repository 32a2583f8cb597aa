// Package strutil provides the case folding, wildcard matching and lump name
// encoding used for entry names.
package strutil

import (
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
)

// Upper returns s in upper case. ASCII names take a fast path; anything else
// goes through full Unicode case mapping.
func Upper(s string) string {
	if isASCII(s) {
		return strings.ToUpper(s)
	}
	// Casers carry state, so one is built per call.
	return cases.Upper(language.Und).String(s)
}

// EqualFold reports whether a and b are equal under Upper.
func EqualFold(a, b string) bool {
	if isASCII(a) && isASCII(b) {
		return strings.EqualFold(a, b)
	}
	return Upper(a) == Upper(b)
}

// HasWildcards reports whether pattern contains '*' or '?'.
func HasWildcards(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// Match reports whether name matches pattern case-insensitively. Only '*' and
// '?' are special; every other character matches itself.
func Match(pattern, name string) bool {
	if !HasWildcards(pattern) {
		return EqualFold(pattern, name)
	}
	ok, err := doublestar.Match(escapeMeta(Upper(pattern)), Upper(name))
	return err == nil && ok
}

// escapeMeta quotes the doublestar metacharacters that lump names may contain.
func escapeMeta(p string) string {
	if !strings.ContainsAny(p, `[]{}\`) {
		return p
	}
	var b strings.Builder
	b.Grow(len(p) + 4)
	for _, r := range p {
		switch r {
		case '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DecodeLumpName decodes a fixed-width, NUL-padded CP437 lump name.
func DecodeLumpName(b []byte) string {
	if i := indexNUL(b); i >= 0 {
		b = b[:i]
	}
	if isASCIIBytes(b) {
		return string(b)
	}
	out, err := charmap.CodePage437.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// EncodeLumpName encodes name as CP437 into a NUL-padded field of width n.
// Characters CP437 cannot represent become '?'; longer names are truncated.
func EncodeLumpName(name string, n int) []byte {
	field := make([]byte, n)
	enc := encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder())
	raw, err := enc.String(name)
	if err != nil {
		raw = name
	}
	copy(field, raw)
	return field
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isASCIIBytes(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
