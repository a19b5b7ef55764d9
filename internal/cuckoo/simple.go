package cuckoo

import "github.com/optable/psiengine/internal/hash"

// SimpleEntry is one (item, originating-function-id, source-index)
// triple stored in a simple-hashing bin.
type SimpleEntry struct {
	Item        hash.Item
	FuncID      uint8
	SourceIndex int
}

// SimpleTable places a full copy of every item, tagged with its
// originating function id, into all h of its candidate bins.
type SimpleTable struct {
	seed    []byte
	h       int
	m       uint64
	hashers [MaxHashFunctions]hash.Hasher
	bins    [][]SimpleEntry
}

// NewSimpleTable allocates an empty simple-hashing table with m bins
// and h hash functions derived from seed.
func NewSimpleTable(m uint64, h int, seed []byte) (*SimpleTable, error) {
	hashers, err := newHashers(seed, h)
	if err != nil {
		return nil, err
	}
	return &SimpleTable{
		seed:    seed,
		h:       h,
		m:       m,
		hashers: hashers,
		bins:    make([][]SimpleEntry, m),
	}, nil
}

// Insert places item (source index idx in the caller's input order)
// into all of its candidate bins.
func (t *SimpleTable) Insert(item hash.Item, idx int) {
	addrs := bucketIndices(t.hashers, t.h, t.m, item)
	for f := 0; f < t.h; f++ {
		bin := addrs[f]
		t.bins[bin] = append(t.bins[bin], SimpleEntry{Item: item, FuncID: uint8(f), SourceIndex: idx})
	}
}

// Bin returns the list of entries placed in bin b.
func (t *SimpleTable) Bin(b uint64) []SimpleEntry {
	return t.bins[b]
}

// NumBins returns m, the bin count.
func (t *SimpleTable) NumBins() uint64 { return t.m }

// NumHashFuncs returns h.
func (t *SimpleTable) NumHashFuncs() int { return t.h }

// Addresses returns the h candidate (bin, funcID) addresses for item,
// without inserting it — used by a party that must compute the same
// candidate set as its peer (e.g. Circuit-PSI's receiver hint table).
func (t *SimpleTable) Addresses(item hash.Item) []Address {
	addrs := bucketIndices(t.hashers, t.h, t.m, item)
	out := make([]Address, t.h)
	for f := 0; f < t.h; f++ {
		out[f] = Address{Bin: addrs[f], FuncID: uint8(f)}
	}
	return out
}
