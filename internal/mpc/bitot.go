// Package mpc implements a semi-honest two-party equality and
// multiplexer primitive over 1-out-of-2 OT, the collaborator spec §1
// calls "the underlying MPC library (equality and multiplexer)" and
// explicitly places out of scope as an external dependency. This is a
// scoped, from-scratch reference implementation of that contract's
// semantics (spec §4.5, §6 MPC contract), not a production MPC
// library: it reuses the engine's own base OT (internal/ot) rather
// than a dedicated arithmetic-OT-extension or Beaver-triple library,
// since none of the example repos ship one.
package mpc

import (
	"crypto/rand"
	"io"

	"github.com/optable/psiengine/internal/crypto"
	"github.com/optable/psiengine/internal/ot"
)

// batchBitOT runs count independent 1-out-of-2 single-bit OTs in one
// base-OT handshake. The preparing party supplies, for gate i, the two
// possible output bits msg0[i] and msg1[i] (both in {0,1}); the
// choosing party supplies choiceBits[i] and receives her share in the
// returned slice. count is padded up to a multiple of 8 internally, so
// callers may pass any count.
func batchBitOT(rw io.ReadWriter, isPreparer bool, msg0, msg1, choiceBits []byte, count int) ([]byte, error) {
	padded := count
	if padded%8 != 0 {
		padded += 8 - padded%8
	}

	msgLen := make([]int, padded)
	for i := range msgLen {
		msgLen[i] = 1
	}
	baseOT, err := ot.NewBaseOT(padded, msgLen, crypto.ModeXORBlake2)
	if err != nil {
		return nil, err
	}

	if isPreparer {
		messages := make([]ot.Message, padded)
		for i := 0; i < padded; i++ {
			if i < count {
				messages[i] = ot.Message{{msg0[i]}, {msg1[i]}}
			} else {
				messages[i] = ot.Message{{0}, {0}}
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
	res := make([]byte, count)
	for i := 0; i < count; i++ {
		res[i] = out[i][0]
	}
	return res, nil
}

// randomBit returns a cryptographically random bit.
func randomBit() (byte, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0] & 1, nil
}
