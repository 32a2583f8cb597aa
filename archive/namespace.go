package archive

// Namespaces an entry can be classified into. Formats derive them from marker
// lumps or top-level directory names.
const (
	NamespaceGlobal    = "global"
	NamespacePatches   = "patches"
	NamespaceFlats     = "flats"
	NamespaceSprites   = "sprites"
	NamespaceTextures  = "textures"
	NamespaceHires     = "hires"
	NamespaceGraphics  = "graphics"
	NamespaceColormaps = "colormaps"
	NamespaceACS       = "acs"
	NamespaceVoices    = "voices"
	NamespaceVoxels    = "voxels"
)
