package cuckoo

import (
	"encoding/binary"
	"fmt"
	mrand "math/rand"

	"github.com/optable/psiengine/internal/hash"
)

// slot describes who currently lives in a cuckoo bin.
type slot struct {
	occupied    bool
	item        hash.Item
	funcID      uint8
	sourceIndex int
}

// CuckooTable places each item in exactly one of its h candidate
// bins, evicting and displacing an occupant when every candidate bin
// is full, within a bounded displacement budget. Items that still
// cannot be placed land in the stash; the stash is expected to be
// empty for the protocol to proceed (spec invariant: non-empty stash
// is an abort).
type CuckooTable struct {
	seed    []byte
	h       int
	m       uint64
	hashers [MaxHashFunctions]hash.Hasher
	slots   []slot
	stash   []SimpleEntry
	prng    *mrand.Rand
}

// NewCuckooTable allocates an empty cuckoo table with m bins and h
// hash functions derived from seed.
func NewCuckooTable(m uint64, h int, seed []byte) (*CuckooTable, error) {
	hashers, err := newHashers(seed, h)
	if err != nil {
		return nil, err
	}
	return &CuckooTable{
		seed:    seed,
		h:       h,
		m:       m,
		hashers: hashers,
		slots:   make([]slot, m),
		prng:    mrand.New(mrand.NewSource(evictionSeed(seed))),
	}, nil
}

// evictionSeed derives the eviction PRNG's seed from the table seed so
// two tables built from the same (seed, h, items) evict identically
// (spec §4.1: "Deterministic in (s, h, insertion order)"), domain
// separated from newHashers's own per-function seed derivation by the
// trailing XOR byte.
func evictionSeed(seed []byte) int64 {
	b := append([]byte{}, seed[:8]...)
	b[7] ^= 0xe3
	return int64(binary.LittleEndian.Uint64(b))
}

// NumBins returns m.
func (c *CuckooTable) NumBins() uint64 { return c.m }

// NumHashFuncs returns h.
func (c *CuckooTable) NumHashFuncs() int { return c.h }

// Addresses returns the h candidate (bin, funcID) pairs for item,
// independent of where it was finally placed.
func (c *CuckooTable) Addresses(item hash.Item) []Address {
	addrs := bucketIndices(c.hashers, c.h, c.m, item)
	out := make([]Address, c.h)
	for f := 0; f < c.h; f++ {
		out[f] = Address{Bin: addrs[f], FuncID: uint8(f)}
	}
	return out
}

// Insert places item (source index idx) into the table, evicting an
// occupant and re-inserting it elsewhere if necessary. Items that
// cannot be placed within ReinsertLimit displacements are pushed to
// the stash.
func (c *CuckooTable) Insert(item hash.Item, idx int) {
	addrs := bucketIndices(c.hashers, c.h, c.m, item)
	if c.tryPlace(item, uint8(0), idx, addrs, -1) {
		return
	}

	cur := slot{occupied: true, item: item, sourceIndex: idx}
	curAddrs := addrs
	for i := 0; i < ReinsertLimit; i++ {
		evictF := c.prng.Intn(c.h)
		bin := curAddrs[evictF]
		evicted := c.slots[bin]

		c.slots[bin] = slot{occupied: true, item: cur.item, funcID: uint8(evictF), sourceIndex: cur.sourceIndex}

		if !evicted.occupied {
			return
		}

		cur = evicted
		curAddrs = bucketIndices(c.hashers, c.h, c.m, evicted.item)
	}

	c.stash = append(c.stash, SimpleEntry{Item: cur.item, SourceIndex: cur.sourceIndex})
}

func (c *CuckooTable) tryPlace(item hash.Item, _ uint8, idx int, addrs [MaxHashFunctions]uint64, skip int) bool {
	for f := 0; f < c.h; f++ {
		if f == skip {
			continue
		}
		bin := addrs[f]
		if !c.slots[bin].occupied {
			c.slots[bin] = slot{occupied: true, item: item, funcID: uint8(f), sourceIndex: idx}
			return true
		}
	}
	return false
}

// StashSize returns the number of items that overflowed into the
// stash.
func (c *CuckooTable) StashSize() int { return len(c.stash) }

// Occupied reports whether bin b holds an item.
func (c *CuckooTable) Occupied(b uint64) bool { return c.slots[b].occupied }

// At returns the item, its originating function id, and its source
// index stored at bin b. Panics if the bin is empty.
func (c *CuckooTable) At(b uint64) (item hash.Item, funcID uint8, sourceIndex int) {
	s := c.slots[b]
	if !s.occupied {
		panic(fmt.Sprintf("cuckoo: bin %d is empty", b))
	}
	return s.item, s.funcID, s.sourceIndex
}
