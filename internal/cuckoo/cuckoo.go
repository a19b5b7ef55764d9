// Package cuckoo implements the deterministic Cuckoo and Simple
// hashing tables shared by the KKRT-PSI and Circuit-PSI schemes.
//
// Both tables are parameterized by (capacity m, seed s, number of
// hash functions h) with h in [1,4]. Hash function i maps an item to
// a bin index in [0,m) pseudorandomly using s and i, grounded on the
// same metro/murmur table hashers the teacher uses for its own cuckoo
// implementation (internal/cuckoo in the teacher repo), generalized
// here to a caller-chosen h and an explicit stash so both Sender and
// Receiver can independently build matching tables from one
// common-coin seed and agree, bit for bit, on occupancy.
package cuckoo

import (
	"fmt"

	"github.com/optable/psiengine/internal/hash"
)

const (
	// MaxHashFunctions bounds h; spec requires fun_num <= 256 for the
	// Circuit-PSI feature key space, but the hashing tables themselves
	// are only ever built with a handful of hash functions.
	MaxHashFunctions = 4
	// ReinsertLimit is the maximum number of evictions attempted
	// before an item is given up to the stash.
	ReinsertLimit = 200
)

// SeedLen is the length, in bytes, of a table seed (kRandSeedBytesLen).
const SeedLen = hash.SaltLength

func newHashers(seed []byte, h int) ([MaxHashFunctions]hash.Hasher, error) {
	var hashers [MaxHashFunctions]hash.Hasher
	if h < 1 || h > MaxHashFunctions {
		return hashers, fmt.Errorf("cuckoo: number of hash functions %d out of range [1,%d]", h, MaxHashFunctions)
	}
	if len(seed) != SeedLen {
		return hashers, fmt.Errorf("cuckoo: seed must be %d bytes, got %d", SeedLen, len(seed))
	}
	for i := 0; i < h; i++ {
		// derive one sub-seed per function by tagging the shared seed
		// with its function index, so all h hashers come from a single
		// common-coin-derived seed.
		sub := append(append([]byte{}, seed...), byte(i))
		sub = sub[:SeedLen]
		sub[SeedLen-1] ^= byte(i) * 0x5a
		typ := hash.Metro
		if i%2 == 1 {
			typ = hash.Murmur3
		}
		hr, err := hash.New(typ, sub)
		if err != nil {
			return hashers, err
		}
		hashers[i] = hr
	}
	return hashers, nil
}

func bucketIndices(hashers [MaxHashFunctions]hash.Hasher, h int, m uint64, item hash.Item) [MaxHashFunctions]uint64 {
	var idxs [MaxHashFunctions]uint64
	for i := 0; i < h; i++ {
		idxs[i] = hashers[i].Hash64(item[:]) % m
	}
	return idxs
}

// Address identifies one candidate bin for an item: the bin index and
// the originating function id that produced it.
type Address struct {
	Bin    uint64
	FuncID uint8
}
