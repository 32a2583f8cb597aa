package wad

import (
	"strings"

	"github.com/meigma/slade/archive"
)

// markerNamespaces maps marker prefixes (the part before _START/_END) to
// namespaces. Sub-markers nest inside their parent section.
var markerNamespaces = map[string]string{
	"P":  archive.NamespacePatches,
	"PP": archive.NamespacePatches,
	"F":  archive.NamespaceFlats,
	"FF": archive.NamespaceFlats,
	"S":  archive.NamespaceSprites,
	"SS": archive.NamespaceSprites,
	"TX": archive.NamespaceTextures,
	"HI": archive.NamespaceHires,
	"C":  archive.NamespaceColormaps,
	"A":  archive.NamespaceACS,
	"V":  archive.NamespaceVoices,
	"VX": archive.NamespaceVoxels,
}

var subMarkers = map[string]bool{
	"P1": true, "P2": true, "P3": true,
	"F1": true, "F2": true, "F3": true,
}

// parseMarker splits a marker name into its prefix and whether it opens a
// section. ok is false for names that are not section markers.
func parseMarker(upper string) (prefix string, start bool, ok bool) {
	if p, found := strings.CutSuffix(upper, "_START"); found {
		return p, true, true
	}
	if p, found := strings.CutSuffix(upper, "_END"); found {
		return p, false, true
	}
	return "", false, false
}

// Namespace implements archive.Format. It walks back from e to the nearest
// section marker: inside an open section the entry takes its namespace,
// otherwise it is global. Marker lumps themselves are global.
func (f *Format) Namespace(e *archive.Entry) string {
	for cur := e.Prev(); cur != nil; cur = cur.Prev() {
		prefix, start, ok := parseMarker(cur.UpperName())
		if !ok {
			continue
		}
		if subMarkers[prefix] {
			continue
		}
		ns, known := markerNamespaces[prefix]
		if !known {
			continue
		}
		if start {
			return ns
		}
		return archive.NamespaceGlobal
	}
	return archive.NamespaceGlobal
}
