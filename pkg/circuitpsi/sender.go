package circuitpsi

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/go-logr/logr"

	"github.com/optable/psiengine/internal/crypto"
	"github.com/optable/psiengine/internal/cuckoo"
	"github.com/optable/psiengine/internal/errs"
	"github.com/optable/psiengine/internal/hash"
	"github.com/optable/psiengine/internal/mpc"
	"github.com/optable/psiengine/internal/oprf"
	"github.com/optable/psiengine/internal/util"
	"github.com/optable/psiengine/pkg/log"
)

type flatEntry struct {
	item hash.Item
	bin  int
	pos  int
}

// runSender implements spec §4.5's Sender-side steps 1-9.
func (s *Scheme) runSender(logger logr.Logger, timer *log.StageTimer, items []hash.Item, features [][]uint64, numBins, numBinsHint int, oprfInst oprf.OPRF, senderFeatureCount, receiverFeatureCount int) ([][]uint64, error) {
	logger.V(1).Info("building simple-hashing table")
	simple, err := cuckoo.NewSimpleTable(uint64(numBins), s.funNum, s.tableSeed)
	if err != nil {
		return nil, err
	}
	for i, it := range items {
		simple.Insert(it, i)
	}

	stashSize, err := util.ReadUint64(s.rw)
	if err != nil {
		return nil, err
	}
	if stashSize != 0 {
		return nil, errs.StashNonEmpty(int(stashSize))
	}
	timer.Stage("simple hashing")

	logger.V(1).Info("running OPRF sender side")
	key, err := oprfInst.Send(s.rw)
	if err != nil {
		return nil, err
	}
	timer.Stage("oprf send")

	masks := make([][][]byte, numBins)
	var flat []flatEntry
	for b := 0; b < numBins; b++ {
		entries := simple.Bin(uint64(b))
		masks[b] = make([][]byte, len(entries))
		for j, e := range entries {
			masks[b][j] = oprfInst.Encode(key, b, e.Item[:])
			flat = append(flat, flatEntry{item: disambiguate(e.Item, e.FuncID), bin: b, pos: j})
		}
	}

	contentOfBins := make([]uint64, numBins)
	for b := range contentOfBins {
		contentOfBins[b] = randUint64()
	}

	logger.V(1).Info("building hint cuckoo table")
	hintCuckoo, err := cuckoo.NewCuckooTable(uint64(numBinsHint), s.hintFunNum, s.hintSeed)
	if err != nil {
		return nil, err
	}
	for k, e := range flat {
		hintCuckoo.Insert(e.item, k)
	}
	if hintCuckoo.StashSize() != 0 {
		return nil, errs.StashNonEmpty(hintCuckoo.StashSize())
	}

	filter := make([]uint64, numBinsHint)
	occupied := make([]bool, numBinsHint)
	for sIdx := 0; sIdx < numBinsHint; sIdx++ {
		if !hintCuckoo.Occupied(uint64(sIdx)) {
			continue
		}
		_, g, k := hintCuckoo.At(uint64(sIdx))
		e := flat[k]
		pad := crypto.PadUint64(masks[e.bin][e.pos], int(g))
		filter[sIdx] = contentOfBins[e.bin] ^ pad
		occupied[sIdx] = true
	}
	for sIdx := range filter {
		if !occupied[sIdx] {
			filter[sIdx] = randUint64()
		}
	}
	if err := writeUint64Slice(s.rw, filter); err != nil {
		return nil, err
	}
	timer.Stage("main filter")

	// feature filters, one per sender feature column.
	contentFeat := make([][]uint64, senderFeatureCount)
	for fid := 0; fid < senderFeatureCount; fid++ {
		logger.V(1).Info("sending feature filter", "fid", fid)
		contentFeat[fid] = make([]uint64, numBins)
		for b := range contentFeat[fid] {
			contentFeat[fid][b] = randUint64()
		}
		featFilter := make([]uint64, numBinsHint)
		featOccupied := make([]bool, numBinsHint)
		block := featureKeyBlock(fid)
		for sIdx := 0; sIdx < numBinsHint; sIdx++ {
			if !hintCuckoo.Occupied(uint64(sIdx)) {
				continue
			}
			_, g, k := hintCuckoo.At(uint64(sIdx))
			e := flat[k]
			seed := util.XorBytes(masks[e.bin][e.pos], block)
			pad := crypto.PadUint64(seed, int(g))
			sourceIndex := sourceIndexOf(simple, e.bin, e.pos)
			val := features[fid][sourceIndex] - contentFeat[fid][e.bin]
			featFilter[sIdx] = val ^ pad
			featOccupied[sIdx] = true
		}
		for sIdx := range featFilter {
			if !featOccupied[sIdx] {
				featFilter[sIdx] = randUint64()
			}
		}
		if err := writeUint64Slice(s.rw, featFilter); err != nil {
			return nil, err
		}
		timer.Stage("feature filter")
	}

	logger.V(1).Info("running MPC equality")
	mine := make(mpc.Matrix, numBins)
	for b := 0; b < numBins; b++ {
		mine[b] = make([]uint64, s.hintFunNum)
		for j := range mine[b] {
			mine[b][j] = contentOfBins[b] & featureMask
		}
	}
	R, err := mpc.Equal(s.rw, true, mine, mpc.DefaultBits)
	if err != nil {
		return nil, err
	}
	timer.Stage("mpc equality")
	shares := make([][]uint64, 1+senderFeatureCount+receiverFeatureCount)
	shares[0] = xorReduceRows(R)

	// R is naturally one-hot per row (at most one hint-candidate column
	// is the real slot), so the multiplexer can run over the full
	// (numBins x hintFunNum) grid and sum each row's outputs afterward:
	// false columns contribute R=0 times whatever garbage value sits
	// there, which vanishes in the sum.
	for fid := 0; fid < senderFeatureCount; fid++ {
		valueMatrix := make(mpc.Matrix, numBins)
		for b := range valueMatrix {
			valueMatrix[b] = broadcastRow(contentFeat[fid][b], s.hintFunNum)
		}
		out1, err := mpc.Multiplexer(s.rw, true, R, valueMatrix)
		if err != nil {
			return nil, err
		}
		out2, err := mpc.Multiplexer(s.rw, false, R, nil)
		if err != nil {
			return nil, err
		}
		shares[1+fid] = sumRows(out1, out2)
		timer.Stage("multiplexer")
	}

	for k := 0; k < receiverFeatureCount; k++ {
		shares[1+senderFeatureCount+k] = make([]uint64, numBins)
	}

	return shares, nil
}

func randUint64() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func broadcastRow(v uint64, width int) []uint64 {
	row := make([]uint64, width)
	for i := range row {
		row[i] = v
	}
	return row
}

func sumRows(a, b mpc.Matrix) []uint64 {
	out := make([]uint64, len(a))
	for row := range a {
		var acc uint64
		for c := range a[row] {
			acc += a[row][c] + b[row][c]
		}
		out[row] = acc
	}
	return out
}

func xorReduceRows(m mpc.Matrix) []uint64 {
	out := make([]uint64, len(m))
	for b, row := range m {
		var acc uint64
		for _, v := range row {
			acc ^= v & 1
		}
		out[b] = acc
	}
	return out
}

// sourceIndexOf finds the source index of the pos-th entry in simple
// bin b. SimpleTable doesn't expose this directly, so walk its Bin
// slice the same way the entry was produced.
func sourceIndexOf(simple *cuckoo.SimpleTable, bin, pos int) int {
	return simple.Bin(uint64(bin))[pos].SourceIndex
}
