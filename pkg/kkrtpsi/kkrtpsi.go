// Package kkrtpsi implements the KKRT-PSI scheme (spec §4.4): an
// OT-extension-based batch-OPRF protocol with cuckoo/simple hashing.
// Grounded on the teacher's pkg/kkrtpsi (sender.go/receiver.go's
// stage1/stage2/stage3 structure and per-stage logging), adapted to
// the Sender-builds-SimpleHashing / Receiver-builds-CuckooHashing
// split, common-coin table seed, and 12-byte truncated mask exchange
// SPEC_FULL.md's source material (original_source/kkrt_psi.cpp)
// specifies.
package kkrtpsi

import (
	"context"
	"crypto/rand"
	"io"
	"math"

	"github.com/go-logr/logr"

	"github.com/optable/psiengine/internal/config"
	"github.com/optable/psiengine/internal/cuckoo"
	"github.com/optable/psiengine/internal/errs"
	"github.com/optable/psiengine/internal/hash"
	"github.com/optable/psiengine/internal/oprf"
	"github.com/optable/psiengine/internal/permutations"
	"github.com/optable/psiengine/internal/util"
	"github.com/optable/psiengine/pkg/log"
	"github.com/optable/psiengine/pkg/psi"
	"github.com/optable/psiengine/pkg/transport"
)

// tagLen is kReduceStatisticsLen, the truncated-mask comparison length.
const tagLen = 12

func init() {
	psi.Register("kkrt", func() psi.Scheme { return &Scheme{} })
}

// Scheme is the KKRT-PSI scheme instance (spec §3, Lifecycle:
// single-use per Init/Process*).
type Scheme struct {
	rw        io.ReadWriter
	transport *transport.CountingReadWriter
	isSender  bool

	epsilon            float64
	funNum             int
	senderObtainResult bool

	tableSeed []byte
}

// Init runs the epsilon/fun_num consistency handshake and the
// common-coin table-seed exchange (spec §4.4, Init steps 1-2). The base
// OTs and OT-extension bootstrap are performed lazily, inside
// internal/oprf.NewKKRT's Send/Receive calls at Process time, rather
// than as a separate Init-phase step: the engine's OPRF already folds
// base-OT bootstrap into one call. It runs one base OT per bit of
// oprf.DefaultWidth, i.e. 128 base OTs, not 512.
func (s *Scheme) Init(ctx context.Context, rw io.ReadWriter, isSender bool, doc config.Doc) error {
	if rw == nil {
		return errs.InvalidArgument("transport is nil")
	}
	s.transport = transport.New(rw)
	s.rw = s.transport
	s.isSender = isSender
	s.epsilon = doc.KKRTPSIParams.Epsilon
	s.funNum = int(doc.KKRTPSIParams.FunNum)
	s.senderObtainResult = doc.KKRTPSIParams.SenderObtainResult

	if err := util.CheckConsistentBytes(s.rw, isSender, "epsilon", float64Bytes(s.epsilon)); err != nil {
		return err
	}
	if err := util.CheckConsistentUint64(s.rw, isSender, "fun_num", uint64(s.funNum)); err != nil {
		return err
	}

	mine := make([]byte, cuckoo.SeedLen)
	if _, err := rand.Read(mine); err != nil {
		return err
	}
	peer, err := util.ExchangeBytes(s.rw, isSender, mine)
	if err != nil {
		return err
	}
	shared := make([]byte, cuckoo.SeedLen)
	for i := range shared {
		shared[i] = mine[i] ^ peer[i]
	}
	s.tableSeed = shared
	return nil
}

// PreprocessData is a no-op (spec §2).
func (s *Scheme) PreprocessData(ctx context.Context, identifiers [][]byte) error { return nil }

// Process runs intersection mode (spec §4.4, Process).
func (s *Scheme) Process(ctx context.Context, identifiers [][]byte, _ [][]uint64) (psi.Result, error) {
	matched, _, err := s.run(ctx, identifiers)
	if err != nil {
		return psi.Result{}, err
	}
	if matched == nil {
		return psi.Result{Identifiers: nil}, nil
	}
	var out [][]byte
	for i, id := range identifiers {
		if matched[i] {
			out = append(out, id)
		}
	}
	return psi.Result{Identifiers: out}, nil
}

// ProcessCardinalityOnly runs cardinality mode (spec §4.4, Cardinality
// mode).
func (s *Scheme) ProcessCardinalityOnly(ctx context.Context, identifiers [][]byte) (int, error) {
	_, count, err := s.run(ctx, identifiers)
	return count, err
}

// run executes the shared protocol and returns, for the Receiver (or
// the Sender when sender_obtain_result), a per-index match bitmap and
// the match count. On the Sender when !sender_obtain_result, matched
// is nil and count is 0.
func (s *Scheme) run(ctx context.Context, identifiers [][]byte) (matched []bool, count int, err error) {
	logger := log.FromContext(ctx, "kkrtpsi")
	timer := log.NewStageTimer(logger, s.transport.BytesSent)

	myN := uint64(len(identifiers))
	receiverN, senderN, err := exchangeSizesReceiverFirst(s.rw, s.isSender, myN)
	if err != nil {
		return nil, 0, err
	}
	numBins := uint64(math.Ceil(float64(receiverN) * s.epsilon))
	if numBins == 0 {
		numBins = 1
	}
	timer.Stage("size exchange")

	items := make([]hash.Item, len(identifiers))
	for i, id := range identifiers {
		items[i] = hash.HashItem(id)
	}

	oprfInst, err := oprf.NewKKRT(int(numBins), oprf.DefaultWidth)
	if err != nil {
		return nil, 0, err
	}

	if s.isSender {
		return s.runSender(logger, timer, items, int(senderN), int(numBins), oprfInst)
	}
	return s.runReceiver(logger, timer, identifiers, items, int(numBins), oprfInst)
}

func (s *Scheme) runSender(logger logr.Logger, timer *log.StageTimer, items []hash.Item, senderN, numBins int, oprfInst oprf.OPRF) (matched []bool, count int, err error) {
	logger.V(1).Info("building simple-hashing table")
	simple, err := cuckoo.NewSimpleTable(uint64(numBins), s.funNum, s.tableSeed)
	if err != nil {
		return nil, 0, err
	}
	for i, it := range items {
		simple.Insert(it, i)
	}

	stashSize, err := util.ReadUint64(s.rw)
	if err != nil {
		return nil, 0, err
	}
	if stashSize != 0 {
		return nil, 0, errs.StashNonEmpty(int(stashSize))
	}
	timer.Stage("simple hashing")

	logger.V(1).Info("running OPRF sender side")
	key, err := oprfInst.Send(s.rw)
	if err != nil {
		return nil, 0, err
	}
	timer.Stage("oprf send")

	// per function-id f, gather one mask per sender item (the item's
	// f-th candidate address), permute fresh per f, truncate to tagLen,
	// and concatenate.
	buf := make([]byte, 0, s.funNum*senderN*tagLen)
	for f := 0; f < s.funNum; f++ {
		masks := make([][]byte, senderN)
		for k, it := range items {
			addrs := simple.Addresses(it)
			addr := addrs[f]
			mask := oprfInst.Encode(key, int(addr.Bin), it[:])
			masks[k] = mask[:tagLen]
		}
		perm, err := permutations.Generate(nil, int64(senderN))
		if err != nil {
			return nil, 0, err
		}
		permuted := permutations.Apply(perm, masks, true)
		for _, m := range permuted {
			buf = append(buf, m...)
		}
	}
	if err := util.WriteSizePrefixed(s.rw, buf); err != nil {
		return nil, 0, err
	}
	timer.Stage("mask transport")

	if !s.senderObtainResult {
		return nil, 0, nil
	}
	raw, err := util.ReadSizePrefixed(s.rw)
	if err != nil {
		return nil, 0, err
	}
	strs := util.DeserializeStrings(raw)
	revealed := make(map[hash.Item]bool, len(strs))
	for _, str := range strs {
		revealed[hash.HashItem(str)] = true
	}
	matched = make([]bool, len(items))
	for i, it := range items {
		if revealed[it] {
			matched[i] = true
			count++
		}
	}
	timer.Stage("result reveal")
	return matched, count, nil
}

func (s *Scheme) runReceiver(logger logr.Logger, timer *log.StageTimer, identifiers [][]byte, items []hash.Item, numBins int, oprfInst oprf.OPRF) (matched []bool, count int, err error) {
	logger.V(1).Info("building cuckoo table")
	cuck, err := cuckoo.NewCuckooTable(uint64(numBins), s.funNum, s.tableSeed)
	if err != nil {
		return nil, 0, err
	}
	for i, it := range items {
		cuck.Insert(it, i)
	}

	if err := util.WriteUint64(s.rw, uint64(cuck.StashSize())); err != nil {
		return nil, 0, err
	}
	if cuck.StashSize() != 0 {
		return nil, 0, errs.StashNonEmpty(cuck.StashSize())
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
	masks, err := oprfInst.Receive(numBins, itemOf, s.rw)
	if err != nil {
		return nil, 0, err
	}
	timer.Stage("oprf receive")

	raw, err := util.ReadSizePrefixed(s.rw)
	if err != nil {
		return nil, 0, err
	}
	senderN := len(raw) / (s.funNum * tagLen)
	slots := make([][][]byte, s.funNum)
	for f := 0; f < s.funNum; f++ {
		slots[f] = make([][]byte, senderN)
		base := f * senderN * tagLen
		for k := 0; k < senderN; k++ {
			slots[f][k] = raw[base+k*tagLen : base+(k+1)*tagLen]
		}
	}

	matched = make([]bool, len(items))
	for b := 0; b < numBins; b++ {
		if !cuck.Occupied(uint64(b)) {
			continue
		}
		_, funcID, sourceIndex := cuck.At(uint64(b))
		f := int(funcID)
		if f >= s.funNum {
			continue
		}
		tag := masks[b][:tagLen]
		for _, cand := range slots[f] {
			if bytesEqual(tag, cand) {
				matched[sourceIndex] = true
				count++
				break
			}
		}
	}
	timer.Stage("intersection")

	if s.senderObtainResult {
		var out [][]byte
		for i, id := range identifiers {
			if matched[i] {
				out = append(out, id)
			}
		}
		if err := util.WriteSizePrefixed(s.rw, util.SerializeStrings(out)); err != nil {
			return nil, 0, err
		}
		timer.Stage("result reveal")
	}
	return matched, count, nil
}

// exchangeSizesReceiverFirst exchanges the two parties' data sizes
// with the Receiver sending first (spec §4.4, Process step 1: "Sender
// sends-second, Receiver sends-first" — the one documented exception
// to the usual Sender-sends-first ordering).
func exchangeSizesReceiverFirst(rw io.ReadWriter, isSender bool, mine uint64) (receiverN, senderN uint64, err error) {
	if isSender {
		peer, err := util.ReadUint64(rw)
		if err != nil {
			return 0, 0, err
		}
		if err := util.WriteUint64(rw, mine); err != nil {
			return 0, 0, err
		}
		return peer, mine, nil
	}
	if err := util.WriteUint64(rw, mine); err != nil {
		return 0, 0, err
	}
	peer, err := util.ReadUint64(rw)
	if err != nil {
		return 0, 0, err
	}
	return mine, peer, nil
}

func float64Bytes(f float64) []byte {
	bits := math.Float64bits(f)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (8 * i))
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
