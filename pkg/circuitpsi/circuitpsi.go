// Package circuitpsi implements the Circuit-PSI scheme (spec §4.5):
// KKRT's hashing+OPRF layer plus an OPPRF garbled-cuckoo-filter hint
// table and a GMW-style MPC equality/multiplexer postprocessing layer
// that produces secret-shared match indicators and joined feature
// values instead of plaintext output. Grounded on the teacher's
// pkg/kkrtpsi (stage pipeline, logging style) plus internal/mpc (this
// module's own Equal/Multiplexer primitives, since the reference
// original's Duet MPC library is out of corpus).
package circuitpsi

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math"

	"github.com/optable/psiengine/internal/config"
	"github.com/optable/psiengine/internal/cuckoo"
	"github.com/optable/psiengine/internal/errs"
	"github.com/optable/psiengine/internal/hash"
	"github.com/optable/psiengine/internal/oprf"
	"github.com/optable/psiengine/internal/util"
	"github.com/optable/psiengine/pkg/log"
	"github.com/optable/psiengine/pkg/psi"
	"github.com/optable/psiengine/pkg/transport"
)

// featureMask is kReduceBitsLen, the 62-low-bits mask applied before
// the equality comparison.
const featureMask = 0x3FFFFFFFFFFFFFFF

func init() {
	psi.Register("circuit", func() psi.Scheme { return &Scheme{} })
}

// Scheme is the Circuit-PSI scheme instance (spec §3, Lifecycle:
// single-use per Init/Process).
type Scheme struct {
	rw        io.ReadWriter
	transport *transport.CountingReadWriter
	isSender  bool

	epsilon    float64
	funEpsilon float64
	funNum     int
	hintFunNum int

	tableSeed []byte
	hintSeed  []byte
}

// Init runs KKRT's epsilon/fun_num handshake and common-coin seed
// exchange, plus fun_epsilon/hint_fun_num consistency (spec §4.5,
// Init). No separate MPC-operator object is constructed: this
// engine's internal/mpc primitives take the transport directly on
// each call rather than binding to a persistent party-id context.
func (s *Scheme) Init(ctx context.Context, rw io.ReadWriter, isSender bool, doc config.Doc) error {
	if rw == nil {
		return errs.InvalidArgument("transport is nil")
	}
	s.transport = transport.New(rw)
	s.rw = s.transport
	s.isSender = isSender

	p := doc.CircuitPSIParams
	s.epsilon = p.Epsilon
	s.funEpsilon = p.FunEpsilon
	s.funNum = int(p.FunNum)
	s.hintFunNum = int(p.HintFunNum)
	if s.funNum > 256 {
		return errs.InvalidArgument("fun_num %d exceeds the feature-OPPRF key space (max 256)", s.funNum)
	}

	if err := util.CheckConsistentBytes(s.rw, isSender, "epsilon", float64Bytes(s.epsilon)); err != nil {
		return err
	}
	if err := util.CheckConsistentBytes(s.rw, isSender, "fun_epsilon", float64Bytes(s.funEpsilon)); err != nil {
		return err
	}
	if err := util.CheckConsistentUint64(s.rw, isSender, "fun_num", uint64(s.funNum)); err != nil {
		return err
	}
	if err := util.CheckConsistentUint64(s.rw, isSender, "hint_fun_num", uint64(s.hintFunNum)); err != nil {
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

	hint := sha256.Sum256(append(append([]byte{}, shared...), "hint"...))
	s.hintSeed = hint[:cuckoo.SeedLen]
	return nil
}

// PreprocessData is a no-op (spec §2).
func (s *Scheme) PreprocessData(ctx context.Context, identifiers [][]byte) error { return nil }

// Process runs the joint intersection-and-compute protocol (spec
// §4.5, Process, Sender/Receiver side steps), returning a share matrix
// rather than plaintext identifiers.
func (s *Scheme) Process(ctx context.Context, identifiers [][]byte, features [][]uint64) (psi.Result, error) {
	logger := log.FromContext(ctx, "circuitpsi")
	timer := log.NewStageTimer(logger, s.transport.BytesSent)

	myN := uint64(len(identifiers))
	myFeatureCount := uint64(len(features))
	receiverN, senderN, err := exchangeUint64Pair(s.rw, s.isSender, myN)
	if err != nil {
		return psi.Result{}, err
	}
	peerFeatureCount, err := util.ExchangeUint64(s.rw, s.isSender, myFeatureCount)
	if err != nil {
		return psi.Result{}, err
	}
	timer.Stage("size exchange")

	numBins := uint64(math.Ceil(float64(receiverN) * s.epsilon))
	if numBins == 0 {
		numBins = 1
	}
	hintCap := float64(senderN) * float64(s.funNum)
	if float64(numBins) > hintCap {
		hintCap = float64(numBins)
	}
	numBinsHint := uint64(math.Ceil(s.funEpsilon * hintCap))
	if numBinsHint == 0 {
		numBinsHint = 1
	}

	items := make([]hash.Item, len(identifiers))
	for i, id := range identifiers {
		items[i] = hash.HashItem(id)
	}

	oprfInst, err := oprf.NewKKRT(int(numBins), oprf.DefaultWidth)
	if err != nil {
		return psi.Result{}, err
	}

	var shares [][]uint64
	if s.isSender {
		var senderFeatureCount, receiverFeatureCount int
		senderFeatureCount = len(features)
		receiverFeatureCount = int(peerFeatureCount)
		shares, err = s.runSender(logger, timer, items, features, int(numBins), int(numBinsHint), oprfInst, senderFeatureCount, receiverFeatureCount)
	} else {
		var senderFeatureCount, receiverFeatureCount int
		senderFeatureCount = int(peerFeatureCount)
		receiverFeatureCount = len(features)
		shares, err = s.runReceiver(logger, timer, items, features, int(numBins), int(numBinsHint), oprfInst, senderFeatureCount, receiverFeatureCount)
	}
	if err != nil {
		return psi.Result{}, err
	}
	return psi.Result{Shares: shares}, nil
}

// ProcessCardinalityOnly is not supported: Circuit-PSI always produces
// a share matrix, never a plaintext count (spec §4.5's Output shape).
func (s *Scheme) ProcessCardinalityOnly(ctx context.Context, identifiers [][]byte) (int, error) {
	return 0, errs.InvalidArgument("circuitpsi: cardinality-only mode is not defined for Circuit-PSI, use Process and reduce the share matrix")
}

func exchangeUint64Pair(rw io.ReadWriter, isSender bool, mine uint64) (receiverVal, senderVal uint64, err error) {
	peer, err := util.ExchangeUint64(rw, isSender, mine)
	if err != nil {
		return 0, 0, err
	}
	if isSender {
		return peer, mine, nil
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

// featureKeyBlock derives block(0, fid): a public, deterministic
// 16-byte domain-separation value for feature column fid, XORed into
// the mask-derived seed so the feature filter's pads never collide
// with the main filter's.
func featureKeyBlock(fid int) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(fid))
	sum := sha256.Sum256(append([]byte("circuitpsi-feature-filter"), b[:]...))
	return sum[:hash.ItemLen]
}

// disambiguate returns item with its first byte XORed by f, the key
// used to place fun_num distinct simple-table copies of the same
// source item into the hint table without collapsing them onto one
// hint-table entry (spec §4.5 step 7 / Open Question (c)).
func disambiguate(item hash.Item, f uint8) hash.Item {
	out := item
	out[0] ^= f
	return out
}

