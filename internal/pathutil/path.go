// Package pathutil provides path manipulation for slash-separated entry paths.
package pathutil

import "strings"

// Split breaks p into its non-empty elements.
//
// Leading, trailing and repeated slashes are ignored:
//   - "/flats/wall.png" → ["flats", "wall.png"]
//   - "flats//x/" → ["flats", "x"]
//   - "/" → []
//
// "." and ".." elements are preserved for the caller to resolve.
func Split(p string) []string {
	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// IsAbs reports whether p starts at the archive root.
func IsAbs(p string) bool {
	return strings.HasPrefix(p, "/")
}

// Base returns the last element of p, or "" if p has none.
func Base(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dir returns everything before the last element of p, without a trailing
// slash. Dir("a/b/c") is "a/b"; Dir("c") is "".
func Dir(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}

// Ext returns the extension of name without the dot, or "" if it has none.
// A leading dot does not start an extension.
func Ext(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i+1:]
	}
	return ""
}

// StripExt removes the last ".ext" suffix from name. Names without an
// extension are returned unchanged.
func StripExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}
