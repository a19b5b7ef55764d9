package mpc

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/optable/psiengine/internal/crypto"
	"github.com/optable/psiengine/internal/ot"
)

// Multiplexer implements spec §4.5's mpc.multiplexer(R, feature_shares,
// out): given a bit R that is XOR-shared across the two parties and an
// arithmetic value that only one party (the value holder) actually
// holds — the other party's cell is a placeholder, per the real
// call-site invariant that exactly one side contributes a nonzero
// arithmetic value per cell — it returns additive shares of R*value
// that sum (mod 2^64) to the true masked product.
//
// isValueHolder fixes which side supplies value and plays the OT
// preparer role. r is this party's XOR-share of R at each cell (the
// low bit of each uint64 is used, matching mpc.Equal's output shape);
// value is the value holder's raw feature matrix (ignored on the
// other side).
//
// This single-OT-per-cell construction avoids a general Oblivious
// Linear Evaluation / Beaver-triple layer: because the non-value-holder
// contributes nothing but her R-share bit, the value holder can
// enumerate both of the peer's two possible bit values locally and let
// one OT deliver the corresponding masked share.
func Multiplexer(rw io.ReadWriter, isValueHolder bool, r Matrix, value Matrix) (Matrix, error) {
	rows := len(r)
	if rows == 0 {
		return nil, nil
	}
	cols := len(r[0])
	cells := rows * cols

	msg0 := make([]byte, cells*8)
	msg1 := make([]byte, cells*8)
	choice := make([]byte, cells)
	myShare := make([]uint64, cells)

	idx := 0
	for row := 0; row < rows; row++ {
		for c := 0; c < cols; c++ {
			b0 := r[row][c] & 1
			if isValueHolder {
				va := value[row][c]
				outcome0 := va * b0            // peer's bit assumed 0: R = b0
				outcome1 := va * (1 - b0)       // peer's bit assumed 1: R = 1-b0
				var mbuf [8]byte
				if _, err := rand.Read(mbuf[:]); err != nil {
					return nil, err
				}
				m := binary.LittleEndian.Uint64(mbuf[:])
				myShare[idx] = m
				binary.LittleEndian.PutUint64(msg0[idx*8:idx*8+8], outcome0-m)
				binary.LittleEndian.PutUint64(msg1[idx*8:idx*8+8], outcome1-m)
			} else {
				choice[idx] = byte(b0)
			}
			idx++
		}
	}

	shares, err := batchValueOT(rw, isValueHolder, msg0, msg1, choice, cells)
	if err != nil {
		return nil, err
	}

	out := make(Matrix, rows)
	idx = 0
	for row := 0; row < rows; row++ {
		out[row] = make([]uint64, cols)
		for c := 0; c < cols; c++ {
			if isValueHolder {
				out[row][c] = myShare[idx]
			} else {
				out[row][c] = shares[idx]
			}
			idx++
		}
	}
	return out, nil
}

// batchValueOT runs count independent 1-out-of-2 OTs carrying an
// 8-byte (uint64) message each, in one base-OT handshake. Used by
// Multiplexer to move masked arithmetic shares instead of single bits.
func batchValueOT(rw io.ReadWriter, isPreparer bool, msg0, msg1, choiceBits []byte, count int) ([]uint64, error) {
	padded := count
	if padded%8 != 0 {
		padded += 8 - padded%8
	}

	msgLen := make([]int, padded)
	for i := range msgLen {
		msgLen[i] = 8
	}
	baseOT, err := ot.NewBaseOT(padded, msgLen, crypto.ModeXORBlake2)
	if err != nil {
		return nil, err
	}

	if isPreparer {
		messages := make([]ot.Message, padded)
		for i := 0; i < padded; i++ {
			if i < count {
				messages[i] = ot.Message{
					append([]byte{}, msg0[i*8:i*8+8]...),
					append([]byte{}, msg1[i*8:i*8+8]...),
				}
			} else {
				messages[i] = ot.Message{make([]byte, 8), make([]byte, 8)}
			}
		}
		return nil, baseOT.Send(messages, rw)
	}

	packed := make([]byte, padded/8)
	for i := 0; i < count; i++ {
		if choiceBits[i] != 0 {
			packed[i/8] |= 1 << uint(i%8)
		}
	}
	out := make([][]byte, padded)
	if err := baseOT.Receive(packed, out, rw); err != nil {
		return nil, err
	}
	res := make([]uint64, count)
	for i := 0; i < count; i++ {
		res[i] = binary.LittleEndian.Uint64(out[i])
	}
	return res, nil
}
