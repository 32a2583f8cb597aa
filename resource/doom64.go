package resource

// textureHashSeed starts the Doom64 EX texture name hash.
const textureHashSeed uint32 = 1315423911

// TextureHash returns the 16-bit hash Doom64 EX uses to refer to a texture
// by number. Only the first 8 characters count, stopping early at a NUL.
func TextureHash(name string) uint16 {
	hash := textureHashSeed
	for i := 0; i < len(name) && i < 8 && name[i] != 0; i++ {
		c := name[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		hash ^= (hash << 5) + uint32(c) + (hash >> 2)
	}
	return uint16(hash % 65536) //nolint:gosec // reduced to 16 bits
}

// hashTable maps Doom64 texture hashes back to names. Colliding names
// overwrite each other; the most recently indexed one is kept.
type hashTable [1 << 16]string

func (t *hashTable) record(name string) {
	t[TextureHash(name)] = name
}
