// Package hash implements the non-cryptographic table hashers used by
// the cuckoo/simple hashing tables, and the cryptographic identifier
// digest ("Item") used as the hash-table key universe.
package hash

import (
	"crypto/sha256"
	"fmt"

	"github.com/shivakar/metrohash"
	"github.com/twmb/murmur3"
)

const (
	// SaltLength is the required length, in bytes, of a table-hash seed.
	SaltLength = 16

	Murmur3 = iota
	Metro
)

var (
	ErrUnknownHash        = fmt.Errorf("cannot create a hasher of unknown hash type")
	ErrSaltLengthMismatch = fmt.Errorf("provided salt is not %d bytes", SaltLength)
)

// Hasher maps arbitrary byte strings to a bin index universe of
// uint64s. Deterministic in (salt, function index).
type Hasher interface {
	Hash64([]byte) uint64
}

// New creates a hasher of type t seeded with salt.
func New(t int, salt []byte) (Hasher, error) {
	if len(salt) != SaltLength {
		return nil, ErrSaltLengthMismatch
	}
	switch t {
	case Murmur3:
		return murmur64{salt: salt}, nil
	case Metro:
		return metro{salt: salt}, nil
	default:
		return nil, ErrUnknownHash
	}
}

// murmur64 is a Murmur3 implementation of Hasher.
type murmur64 struct {
	salt []byte
}

func (t murmur64) Hash64(p []byte) uint64 {
	return murmur3.Sum64(append(append([]byte{}, t.salt...), p...))
}

// metro is a MetroHash implementation of Hasher.
type metro struct {
	salt []byte
}

func (m metro) Hash64(p []byte) uint64 {
	h := metrohash.NewMetroHash64()
	h.Write(m.salt)
	h.Write(p)
	return h.Sum64()
}

// ItemLen is the length, in bytes, of an Item digest (kItemBytesLen).
const ItemLen = 16

// Item is the fixed 16-byte digest of an identifier used as the
// universe for KKRT/Circuit hash tables.
type Item [ItemLen]byte

// HashItem truncates SHA-256(identifier) to its first 16 bytes.
func HashItem(identifier []byte) Item {
	sum := sha256.Sum256(identifier)
	var it Item
	copy(it[:], sum[:ItemLen])
	return it
}
