package oprf

import (
	"crypto/aes"
	"crypto/rand"
	"io"

	"github.com/optable/psiengine/internal/crypto"
	"github.com/optable/psiengine/internal/ot"
	"github.com/optable/psiengine/internal/util"
)

// DefaultWidth is the OT-extension matrix width k, in bits, used when
// a caller does not need a narrower or wider security margin. 128 bits
// matches a single AES-128 block, so one pseudorandom-code call per
// item suffices (internal/crypto.CodeWord).
const DefaultWidth = 128

const seedLen = 16

type kkrt struct {
	baseOT ot.OT
	m      int
	k      int
}

// NewKKRT returns a KKRT-style OPRF for m evaluation slots, using an
// OT-extension matrix of width k bits (k must be a multiple of 8).
// Grounded on the teacher's internal/oprf/improved_kkrt.go.
func NewKKRT(m, k int) (OPRF, error) {
	msgLen := make([]int, k)
	for i := range msgLen {
		msgLen[i] = seedLen
	}
	baseOT, err := ot.NewBaseOT(k, msgLen, crypto.ModeXORBlake3)
	if err != nil {
		return nil, err
	}
	return kkrt{baseOT: baseOT, m: m, k: k}, nil
}

func paddedBitLen(n int) int {
	return ((n + 7) / 8) * 8
}

func (ext kkrt) Send(rw io.ReadWriter) (Key, error) {
	sk := make([]byte, 16)
	if _, err := rand.Read(sk); err != nil {
		return Key{}, err
	}
	if _, err := rw.Write(sk); err != nil {
		return Key{}, err
	}

	s := make([]byte, ext.k/8)
	if _, err := rand.Read(s); err != nil {
		return Key{}, err
	}

	seeds := make([][]byte, ext.k)
	if err := ext.baseOT.Receive(s, seeds, rw); err != nil {
		return Key{}, err
	}

	paddedM := paddedBitLen(ext.m)
	paddedBytes := paddedM / 8

	q := make([][]byte, ext.k)
	for i := 0; i < ext.k; i++ {
		qi := make([]byte, paddedBytes)
		if err := crypto.NewXOF(seeds[i]).Read(qi); err != nil {
			return Key{}, err
		}
		if util.TestBit(s, i) == 1 {
			ui := make([]byte, paddedBytes)
			if _, err := io.ReadFull(rw, ui); err != nil {
				return Key{}, err
			}
			util.XorBytesInto(qi, qi, ui)
		} else {
			// still drain the column the receiver sent, to stay in sync.
			discard := make([]byte, paddedBytes)
			if _, err := io.ReadFull(rw, discard); err != nil {
				return Key{}, err
			}
		}
		q[i] = qi
	}

	rows := util.TransposeBitMatrix(q, paddedM)[:ext.m]
	return Key{keyBytes: sk, s: s, q: rows}, nil
}

func (ext kkrt) Receive(m int, item func(i int) []byte, rw io.ReadWriter) ([][]byte, error) {
	if m != ext.m {
		return nil, ot.ErrBaseCountMismatch
	}

	sk := make([]byte, 16)
	if _, err := io.ReadFull(rw, sk); err != nil {
		return nil, err
	}
	aesBlock, err := aes.NewCipher(sk)
	if err != nil {
		return nil, err
	}

	paddedM := paddedBitLen(ext.m)
	codeLen := ext.k / 8
	d := make([][]byte, paddedM)
	for i := 0; i < ext.m; i++ {
		d[i] = crypto.CodeWord(aesBlock, item(i), codeLen)
	}
	for i := ext.m; i < paddedM; i++ {
		d[i] = make([]byte, codeLen)
	}
	dCols := util.TransposeBitMatrix(d, ext.k)

	seeds0 := make([][]byte, ext.k)
	seeds1 := make([][]byte, ext.k)
	baseMsgs := make([]ot.Message, ext.k)
	for j := 0; j < ext.k; j++ {
		seeds0[j] = make([]byte, seedLen)
		seeds1[j] = make([]byte, seedLen)
		if _, err := rand.Read(seeds0[j]); err != nil {
			return nil, err
		}
		if _, err := rand.Read(seeds1[j]); err != nil {
			return nil, err
		}
		baseMsgs[j] = ot.Message{seeds0[j], seeds1[j]}
	}

	if err := ext.baseOT.Send(baseMsgs, rw); err != nil {
		return nil, err
	}

	paddedBytes := paddedM / 8
	t := make([][]byte, ext.k)
	for j := 0; j < ext.k; j++ {
		tj := make([]byte, paddedBytes)
		if err := crypto.NewXOF(seeds0[j]).Read(tj); err != nil {
			return nil, err
		}
		uj := make([]byte, paddedBytes)
		if err := crypto.NewXOF(seeds1[j]).Read(uj); err != nil {
			return nil, err
		}
		util.XorBytesInto(uj, uj, tj)
		util.XorBytesInto(uj, uj, dCols[j])
		if _, err := rw.Write(uj); err != nil {
			return nil, err
		}
		t[j] = tj
	}

	rows := util.TransposeBitMatrix(t, paddedM)[:ext.m]
	return rows, nil
}

func (ext kkrt) Encode(key Key, row int, input []byte) []byte {
	aesBlock, _ := aes.NewCipher(key.keyBytes)
	code := crypto.CodeWord(aesBlock, input, len(key.q[row]))
	masked := make([]byte, len(code))
	for i := range masked {
		masked[i] = code[i] & key.s[i]
	}
	out := util.XorBytes(key.q[row], masked)
	return out
}
