package circuitpsi

import (
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

// runReceiver implements spec §4.5's Receiver-side steps 1-9.
func (s *Scheme) runReceiver(logger logr.Logger, timer *log.StageTimer, items []hash.Item, features [][]uint64, numBins, numBinsHint int, oprfInst oprf.OPRF, senderFeatureCount, receiverFeatureCount int) ([][]uint64, error) {
	logger.V(1).Info("building cuckoo table")
	cuck, err := cuckoo.NewCuckooTable(uint64(numBins), s.funNum, s.tableSeed)
	if err != nil {
		return nil, err
	}
	for i, it := range items {
		cuck.Insert(it, i)
	}
	if err := util.WriteUint64(s.rw, uint64(cuck.StashSize())); err != nil {
		return nil, err
	}
	if cuck.StashSize() != 0 {
		return nil, errs.StashNonEmpty(cuck.StashSize())
	}
	timer.Stage("cuckoo hashing")

	logger.V(1).Info("running OPRF receiver side")
	itemOf := func(b int) []byte {
		if cuck.Occupied(uint64(b)) {
			it, _, _ := cuck.At(uint64(b))
			return it[:]
		}
		return make([]byte, hash.ItemLen)
	}
	masksWithDummies, err := oprfInst.Receive(numBins, itemOf, s.rw)
	if err != nil {
		return nil, err
	}
	timer.Stage("oprf receive")

	filter, err := readUint64Slice(s.rw, numBinsHint)
	if err != nil {
		return nil, err
	}
	timer.Stage("main filter")

	featFilters := make([][]uint64, senderFeatureCount)
	for fid := range featFilters {
		logger.V(1).Info("receiving feature filter", "fid", fid)
		featFilters[fid], err = readUint64Slice(s.rw, numBinsHint)
		if err != nil {
			return nil, err
		}
		timer.Stage("feature filter")
	}

	// address oracle: same (seed, hash functions) as the Sender's hint
	// table, used only to compute candidate addresses, never to place
	// anything (no Insert call).
	hintOracle, err := cuckoo.NewCuckooTable(uint64(numBinsHint), s.hintFunNum, s.hintSeed)
	if err != nil {
		return nil, err
	}

	candidateAddrs := make([][]uint64, numBins)
	mine := make(mpc.Matrix, numBins)
	for b := 0; b < numBins; b++ {
		var disambItem hash.Item
		if cuck.Occupied(uint64(b)) {
			it, f, _ := cuck.At(uint64(b))
			disambItem = disambiguate(it, f)
		}
		addrs := hintOracle.Addresses(disambItem)
		row := make([]uint64, s.hintFunNum)
		candidateAddrs[b] = make([]uint64, s.hintFunNum)
		for j, addr := range addrs {
			candidateAddrs[b][j] = addr.Bin
			pad := crypto.PadUint64(masksWithDummies[b], j)
			row[j] = (filter[addr.Bin] ^ pad) & featureMask
		}
		mine[b] = row
	}

	logger.V(1).Info("running MPC equality")
	R, err := mpc.Equal(s.rw, false, mine, mpc.DefaultBits)
	if err != nil {
		return nil, err
	}
	timer.Stage("mpc equality")
	shares := make([][]uint64, 1+senderFeatureCount+receiverFeatureCount)
	shares[0] = xorReduceRows(R)

	for fid := 0; fid < senderFeatureCount; fid++ {
		featFilter := featFilters[fid]
		block := featureKeyBlock(fid)
		valueMatrix := make(mpc.Matrix, numBins)
		for b := 0; b < numBins; b++ {
			seed := util.XorBytes(masksWithDummies[b], block)
			row := make([]uint64, s.hintFunNum)
			for j := 0; j < s.hintFunNum; j++ {
				pad := crypto.PadUint64(seed, j)
				row[j] = featFilter[candidateAddrs[b][j]] ^ pad
			}
			valueMatrix[b] = row
		}

		out1, err := mpc.Multiplexer(s.rw, false, R, nil)
		if err != nil {
			return nil, err
		}
		out2, err := mpc.Multiplexer(s.rw, true, R, valueMatrix)
		if err != nil {
			return nil, err
		}
		shares[1+fid] = sumRows(out1, out2)
		timer.Stage("multiplexer")
	}

	for k := 0; k < receiverFeatureCount; k++ {
		row := make([]uint64, numBins)
		for b := 0; b < numBins; b++ {
			if cuck.Occupied(uint64(b)) {
				_, _, sourceIndex := cuck.At(uint64(b))
				row[b] = features[k][sourceIndex]
			}
		}
		shares[1+senderFeatureCount+k] = row
	}

	return shares, nil
}
