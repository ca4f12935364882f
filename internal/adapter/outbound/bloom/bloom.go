// Package bloom implements the optional Target pre-selector: a
// fixed-size bitset keyed by hashes of (category, attributeId, literal)
// triples harvested from every Match in a policy's Target at load time.
// At evaluation time the same triples are derived from Request
// attribute values; a bitset miss prunes the candidate policy before
// Target evaluation runs. A hit is only a "maybe" and always falls
// through to full Target matching — the index must never admit a policy
// Target evaluation itself would reject, only skip running that
// evaluation when it provably would not match.
package bloom

import "github.com/cespare/xxhash/v2"

const defaultBits = 1 << 16 // 8KiB bitset per policy index

// Index is a per-Policy/PolicySet Bloom filter over the
// (category, attributeId, literal) triples appearing in that element's
// Target. A zero-value Index (bits == nil) is treated as "always maybe"
// so a PDP with the pre-filter disabled never prunes anything.
type Index struct {
	bits []uint64
	k int // hash functions
}

// NewIndex returns an empty Index. The fixed bitset size keeps the
// false-positive rate negligible for the common case of a handful of
// Match literals per Target (tens, not thousands).
func NewIndex() *Index {
	return &Index{bits: make([]uint64, defaultBits/64), k: 3}
}

func tripleKey(category, attributeID, literal string) string {
	return category + "\x00" + attributeID + "\x00" + literal
}

func (idx *Index) positions(key string) []uint64 {
	h1 := xxhash.Sum64String(key)
	h2 := xxhash.Sum64String(key + "\x01")
	out := make([]uint64, idx.k)
	for i := 0; i < idx.k; i++ {
		out[i] = (h1 + uint64(i)*h2) % uint64(len(idx.bits)*64)
	}
	return out
}

// Add records one (category, attributeId, literal) triple harvested from
// a Match in this element's Target.
func (idx *Index) Add(category, attributeID, literal string) {
	for _, p := range idx.positions(tripleKey(category, attributeID, literal)) {
		idx.bits[p/64] |= 1 << (p % 64)
	}
}

// MightContain reports whether the triple may have been Added. false is
// definitive (the triple was never added, so the Target this Index
// belongs to cannot match on it); true is a "maybe".
func (idx *Index) MightContain(category, attributeID, literal string) bool {
	if idx == nil || len(idx.bits) == 0 {
		return true
	}
	for _, p := range idx.positions(tripleKey(category, attributeID, literal)) {
		if idx.bits[p/64]&(1<<(p%64)) == 0 {
			return false
		}
	}
	return true
}
