package mpc

import (
	"io"
)

// DefaultBits is the bit width used to decompose a masked arithmetic
// value for the equality circuit. The spec's reduce-bits mask
// (0x3FFFFFFFFFFFFFFF, 62 ones) leaves the top two bits zero on both
// sides, which compares equal for free under a 64-bit decomposition,
// so DefaultBits need not match the mask width exactly.
const DefaultBits = 64

// Matrix is a num_bins x hint_fun_num matrix of 64-bit cells, the
// share-matrix shape spec §4.5 passes to mpc.equal / mpc.multiplexer.
type Matrix [][]uint64

// Equal runs a semi-honest GMW-style secure equality circuit, cell by
// cell, between mine (this party's full view of the comparand at each
// cell — the Sender's content_of_bins, or the Receiver's
// content_of_bins_receiver) and the peer's matching matrix, which the
// peer supplies on its own call. isSender fixes which side plays the
// OT-preparer role throughout, matching spec §5's per-role ordering
// discipline. It returns this party's XOR-share of the per-cell
// equality bit: XORing both parties' returned matrices together
// reveals the true equality indicator at each cell, matching the
// "duet equal" contract from spec §4.5 step 8.
func Equal(rw io.ReadWriter, isSender bool, mine Matrix, bits int) (Matrix, error) {
	rows := len(mine)
	if rows == 0 {
		return nil, nil
	}
	cols := len(mine[0])
	cells := rows * cols

	// Step 1: per-bit equality share, one OT gate per (cell, bit).
	count := cells * bits
	msg0 := make([]byte, count)
	msg1 := make([]byte, count)
	choice := make([]byte, count)
	retained := make([]byte, count)

	idx := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := mine[r][c]
			for b := 0; b < bits; b++ {
				bit := byte((v >> uint(b)) & 1)
				if isSender {
					r0, err := randomBit()
					if err != nil {
						return nil, err
					}
					retained[idx] = r0
					// if peer's bit is 0: equal-bit = NOT(mine) = 1-bit
					// if peer's bit is 1: equal-bit = mine = bit
					msg0[idx] = (1 - bit) ^ r0
					msg1[idx] = bit ^ r0
				} else {
					choice[idx] = bit
				}
				idx++
			}
		}
	}

	shares, err := batchBitOT(rw, isSender, msg0, msg1, choice, count)
	if err != nil {
		return nil, err
	}
	if isSender {
		shares = retained
	}

	// layer[cell] holds the current set of per-bit equality shares for
	// that cell, folded down to one bit per cell by the AND-tree below.
	layer := make([][]byte, cells)
	for cell := 0; cell < cells; cell++ {
		layer[cell] = append([]byte{}, shares[cell*bits:(cell+1)*bits]...)
	}

	// Step 2: AND-reduce each cell's bits log2(bits) levels deep.
	width := bits
	for width > 1 {
		half := width / 2
		odd := width % 2

		aCount := cells * half
		aBits0 := make([]byte, aCount)
		aBits1 := make([]byte, aCount)
		idx = 0
		for cell := 0; cell < cells; cell++ {
			for p := 0; p < half; p++ {
				aBits0[idx] = layer[cell][2*p]
				aBits1[idx] = layer[cell][2*p+1]
				idx++
			}
		}

		prodShare, err := andGate(rw, isSender, aBits0, aBits1, aCount)
		if err != nil {
			return nil, err
		}

		next := make([][]byte, cells)
		idx = 0
		for cell := 0; cell < cells; cell++ {
			row := make([]byte, half+odd)
			for p := 0; p < half; p++ {
				row[p] = prodShare[idx]
				idx++
			}
			if odd == 1 {
				row[half] = layer[cell][width-1]
			}
			next[cell] = row
		}
		layer = next
		width = half + odd
	}

	out := make(Matrix, rows)
	cell := 0
	for r := 0; r < rows; r++ {
		out[r] = make([]uint64, cols)
		for c := 0; c < cols; c++ {
			out[r][c] = uint64(layer[cell][0])
			cell++
		}
	}
	return out, nil
}

// andGate computes, for each of count independent gates, an XOR-share
// of A AND B, where A = myA xor peerA and B = myB xor peerB are each
// XOR-shared across the two parties: a0 is this party's share of A
// (myA) and a1 is this party's share of B (myB). Expanding,
//
//	A&B = (myA&myB) xor (myA&peerB) xor (peerA&myB) xor (peerA&peerB)
//
// myA&myB is computed locally (this party knows both); peerA&peerB is
// computed locally by the peer. The two cross terms each cost one
// single-bit OT: myA&peerB has this party enumerate over her own myA
// while the peer supplies peerB (her own local B-share) as the OT
// choice; peerA&myB is the mirror, with the peer enumerating over her
// own A-share and this party supplying her B-share as the choice.
// This is the classic two-OT GMW AND gate.
func andGate(rw io.ReadWriter, isSender bool, a0, a1 []byte, count int) ([]byte, error) {
	// cross term myA & peerB: isSender enumerates over a0 (her A-share);
	// the peer supplies her own a1 (her B-share) as the OT choice.
	r1 := make([]byte, count)
	msg0 := make([]byte, count)
	msg1 := make([]byte, count)
	for i := 0; i < count; i++ {
		rb, err := randomBit()
		if err != nil {
			return nil, err
		}
		r1[i] = rb
		msg0[i] = 0 ^ rb
		msg1[i] = a0[i] ^ rb
	}
	cross1, err := batchBitOT(rw, isSender, msg0, msg1, a1, count)
	if err != nil {
		return nil, err
	}
	if isSender {
		cross1 = r1
	}

	// cross term peerA & myB: roles swap — the peer enumerates over her
	// own a0 (her A-share); this party supplies her own a1 (her
	// B-share) as the OT choice.
	r2 := make([]byte, count)
	msg0b := make([]byte, count)
	msg1b := make([]byte, count)
	for i := 0; i < count; i++ {
		rb, err := randomBit()
		if err != nil {
			return nil, err
		}
		r2[i] = rb
		msg0b[i] = 0 ^ rb
		msg1b[i] = a0[i] ^ rb
	}
	cross2, err := batchBitOT(rw, !isSender, msg0b, msg1b, a1, count)
	if err != nil {
		return nil, err
	}
	if !isSender {
		cross2 = r2
	}

	out := make([]byte, count)
	for i := 0; i < count; i++ {
		// myA&myB local term: computed locally since this party already
		// knows both of her own shares.
		local := a0[i] & a1[i]
		out[i] = local ^ cross1[i] ^ cross2[i]
	}
	return out, nil
}
