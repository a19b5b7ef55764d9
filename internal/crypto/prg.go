package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// XOF streams pseudorandom bytes from a fixed seed, used to expand
// OT-extension correction strings and to derive the garbled
// cuckoo-filter pads in Circuit-PSI (spec §4.5 step 5). Grounded on
// the teacher's internal/crypto PseudorandomGenerate/
// PseudorandomGeneratorWithBlake3, backed by blake3's XOF mode.
type XOF struct {
	h *blake3.Hasher
}

// NewXOF returns a fresh XOF keyed by seed.
func NewXOF(seed []byte) *XOF {
	h := blake3.New()
	h.Write(seed)
	return &XOF{h: h}
}

// Read fills dst with the first len(dst) bytes of the seed's output
// stream. Every call starts again from the beginning of the stream.
func (x *XOF) Read(dst []byte) error {
	d := x.h.Digest()
	_, err := d.Read(dst)
	return err
}

// StreamUint64 streams n consecutive 8-byte pseudorandom words from
// seed, re-deriving a fresh digest each call so that StreamUint64(seed,
// k) and StreamUint64(seed, k+1) share a common prefix — used by
// Circuit-PSI to "stream a local PRNG g+1 times" per spec §4.5.
func StreamUint64(seed []byte, count int) []uint64 {
	out := make([]uint64, count)
	buf := make([]byte, count*8)
	NewXOF(seed).Read(buf)
	for i := range out {
		var v uint64
		for j := 0; j < 8; j++ {
			v |= uint64(buf[i*8+j]) << (8 * j)
		}
		out[i] = v
	}
	return out
}

// PadUint64 derives the g+1-th 64-bit pad from seed, matching the
// garbled-cuckoo-filter construction: "stream a local PRNG g+1 times
// to obtain a 64-bit pad" (spec §4.5).
func PadUint64(seed []byte, g int) uint64 {
	words := StreamUint64(seed, g+1)
	return words[g]
}

// PseudorandomCode computes one AES(funcID+1 || x) tag under block, a
// single 16-byte (one AES-block) output for the given cuckoo hash
// function id. Callers needing tags for all of a table's hash
// functions call this once per funcID and concatenate the results —
// used by the KKRT OT-extension correlation step. Grounded on the
// teacher's internal/crypto.PseudorandomCode (internal/crypto/crypto.go).
func PseudorandomCode(block cipher.Block, src []byte, funcID byte) []byte {
	input := pad16(src)
	input[0] = funcID + 1
	out := make([]byte, aes.BlockSize)
	block.Encrypt(out, input)
	return out
}

// CodeWord computes a numBytes-long pseudorandom code C(x) under
// block by concatenating successive PseudorandomCode function-id
// blocks (0, 1, 2, ...) and truncating to numBytes. Used by the
// OT-extension-based OPRF to derive a k-bit tag per item, where k may
// span more than one AES block.
func CodeWord(block cipher.Block, src []byte, numBytes int) []byte {
	out := make([]byte, 0, numBytes+aes.BlockSize)
	for funcID := byte(0); len(out) < numBytes; funcID++ {
		out = append(out, PseudorandomCode(block, src, funcID)...)
	}
	return out[:numBytes]
}

// pad16 returns a single AES block (funcID byte, set by the caller,
// goes in tmp[0]) holding as much of src as fits. block.Encrypt only
// ever reads one block, so a larger buffer would just be truncated
// silently; sizing it to exactly aes.BlockSize makes that truncation
// explicit instead of implying more capacity than PseudorandomCode
// actually uses.
func pad16(src []byte) []byte {
	tmp := make([]byte, aes.BlockSize)
	copy(tmp[1:], src)
	return tmp
}

// XorCipherWithBlake2 returns H(key, ind) XOR src, the XOR-cipher mode
// the teacher uses as a cheap authenticated-enough-for-semi-honest
// encryption under a derived OT key (internal/crypto.xorCipherWithBlake2).
func XorCipherWithBlake2(key []byte, ind uint8, src []byte) ([]byte, error) {
	hash := make([]byte, len(src))
	d, err := blake2b.NewXOF(uint32(len(hash)), nil)
	if err != nil {
		return nil, err
	}
	d.Write(key)
	d.Write([]byte{ind})
	if _, err := d.Read(hash); err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	for i := range src {
		out[i] = src[i] ^ hash[i]
	}
	return out, nil
}
