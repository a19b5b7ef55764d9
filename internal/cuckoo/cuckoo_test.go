package cuckoo

import (
	"testing"

	"github.com/optable/psiengine/internal/hash"
)

func testSeed() []byte {
	seed := make([]byte, SeedLen)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func TestSimpleTablePlacesInAllBins(t *testing.T) {
	tbl, err := NewSimpleTable(16, 3, testSeed())
	if err != nil {
		t.Fatalf("NewSimpleTable: %v", err)
	}
	it := hash.HashItem([]byte("hello"))
	tbl.Insert(it, 0)

	count := 0
	for b := uint64(0); b < tbl.NumBins(); b++ {
		for _, e := range tbl.Bin(b) {
			if e.Item == it {
				count++
			}
		}
	}
	if count != 3 {
		t.Fatalf("expected item in 3 bins, found %d", count)
	}
}

func TestCuckooTableNoStashAtModerateLoad(t *testing.T) {
	const n = 200
	m := uint64(float64(n) * 1.6)
	tbl, err := NewCuckooTable(m, 3, testSeed())
	if err != nil {
		t.Fatalf("NewCuckooTable: %v", err)
	}
	for i := 0; i < n; i++ {
		tbl.Insert(hash.HashItem([]byte{byte(i), byte(i >> 8)}), i)
	}
	if tbl.StashSize() != 0 {
		t.Fatalf("expected empty stash at epsilon=1.6, got stash size %d", tbl.StashSize())
	}
}

func TestCuckooTableLowEpsilonOverflowsStash(t *testing.T) {
	const n = 400
	m := uint64(float64(n) * 0.27)
	tbl, err := NewCuckooTable(m, 3, testSeed())
	if err != nil {
		t.Fatalf("NewCuckooTable: %v", err)
	}
	for i := 0; i < n; i++ {
		tbl.Insert(hash.HashItem([]byte{byte(i), byte(i >> 8), byte(i >> 16)}), i)
	}
	if tbl.StashSize() == 0 {
		t.Fatalf("expected non-empty stash at epsilon=0.27")
	}
}

func TestAddressesAreDeterministic(t *testing.T) {
	tbl, err := NewCuckooTable(32, 3, testSeed())
	if err != nil {
		t.Fatalf("NewCuckooTable: %v", err)
	}
	it := hash.HashItem([]byte("x"))
	a1 := tbl.Addresses(it)
	a2 := tbl.Addresses(it)
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("Addresses is not deterministic")
		}
	}
}
