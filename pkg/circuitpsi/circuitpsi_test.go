package circuitpsi

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/optable/psiengine/internal/config"
	"github.com/optable/psiengine/internal/errs"
	"github.com/optable/psiengine/pkg/psi"
)

func toIDs(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func runPair(t *testing.T, doc config.Doc, senderIDs, receiverIDs [][]byte, senderFeatures, receiverFeatures [][]uint64) (sender, receiver psi.Result, senderErr, receiverErr error) {
	t.Helper()
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	senderScheme := &Scheme{}
	receiverScheme := &Scheme{}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		senderErr = senderScheme.Init(context.Background(), a, true, doc)
	}()
	go func() {
		defer wg.Done()
		receiverErr = receiverScheme.Init(context.Background(), b, false, doc)
	}()
	wg.Wait()
	if senderErr != nil || receiverErr != nil {
		return psi.Result{}, psi.Result{}, senderErr, receiverErr
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		sender, senderErr = senderScheme.Process(context.Background(), senderIDs, senderFeatures)
	}()
	go func() {
		defer wg.Done()
		receiver, receiverErr = receiverScheme.Process(context.Background(), receiverIDs, receiverFeatures)
	}()
	wg.Wait()
	return sender, receiver, senderErr, receiverErr
}

func sumCombinedIndicator(a, b []uint64) uint64 {
	var total uint64
	for i := range a {
		total += (a[i] ^ b[i]) & 1
	}
	return total
}

// sumCombinedFeature sums a combined feature row gated by the combined
// match indicator at each bin. Only the sender's feature rows are
// naturally zero at non-matching bins (the OPPRF hint-table filter
// never resolves to a real value there); the receiver's own feature
// rows hold its raw value at every occupied bin regardless of match
// (receiver.go's final loop), so the gate is required here to recover
// the intersection-only sum for either side's columns.
func sumCombinedFeature(indicatorA, indicatorB, a, b []uint64) uint64 {
	var total uint64
	for i := range a {
		bit := (indicatorA[i] ^ indicatorB[i]) & 1
		total += bit * (a[i] + b[i])
	}
	return total
}

// E5: joined computation over Sender {c,h,e,g,y,z} (features [0..5],
// [6..11]) and Receiver {b,c,e,g,u,v} (features [20..25], [26..31]), an
// intersection of {c,e,g}. The share matrices each party returns
// combine (row 0 XOR, feature rows additive, gated by the combined row
// 0 indicator bit per bin) into the match count and the joined
// per-column feature sums, without either party ever learning which
// bin an item landed in.
func TestE5JoinedComputeAggregates(t *testing.T) {
	senderIDs := toIDs("c", "h", "e", "g", "y", "z")
	receiverIDs := toIDs("b", "c", "e", "g", "u", "v")

	senderFeatures := [][]uint64{
		{0, 1, 2, 3, 4, 5},
		{6, 7, 8, 9, 10, 11},
	}
	receiverFeatures := [][]uint64{
		{20, 21, 22, 23, 24, 25},
		{26, 27, 28, 29, 30, 31},
	}

	doc := config.Default()
	doc.CircuitPSIParams.Epsilon = 1.27
	doc.CircuitPSIParams.FunEpsilon = 1.27
	doc.CircuitPSIParams.FunNum = 3
	doc.CircuitPSIParams.HintFunNum = 3

	senderRes, receiverRes, senderErr, receiverErr := runPair(t, doc, senderIDs, receiverIDs, senderFeatures, receiverFeatures)
	if senderErr != nil {
		t.Fatalf("sender: %v", senderErr)
	}
	if receiverErr != nil {
		t.Fatalf("receiver: %v", receiverErr)
	}

	wantRows := 1 + len(senderFeatures) + len(receiverFeatures)
	if len(senderRes.Shares) != wantRows || len(receiverRes.Shares) != wantRows {
		t.Fatalf("got %d/%d share rows, want %d", len(senderRes.Shares), len(receiverRes.Shares), wantRows)
	}

	numBins := len(senderRes.Shares[0])
	if numBins == 0 || len(receiverRes.Shares[0]) != numBins {
		t.Fatalf("mismatched bin counts: sender %d, receiver %d", numBins, len(receiverRes.Shares[0]))
	}

	gotCount := sumCombinedIndicator(senderRes.Shares[0], receiverRes.Shares[0])
	if gotCount != 3 {
		t.Fatalf("combined match count = %d, want 3", gotCount)
	}

	wantFeatureSums := []uint64{5, 23, 66, 84}
	for i, want := range wantFeatureSums {
		got := sumCombinedFeature(senderRes.Shares[0], receiverRes.Shares[0], senderRes.Shares[1+i], receiverRes.Shares[1+i])
		if got != want {
			t.Fatalf("combined feature row %d sum = %d, want %d", i, got, want)
		}
	}
}

// E4: a too-small epsilon overflows a cuckoo table's displacement
// budget; both peers must abort locally with StashNonEmpty rather than
// silently dropping entries.
func TestE4StashOverflowAborts(t *testing.T) {
	senderIDs := toIDs("c", "h", "e", "g", "y", "z")
	receiverIDs := toIDs("b", "c", "e", "g")

	doc := config.Default()
	doc.CircuitPSIParams.Epsilon = 0.27
	doc.CircuitPSIParams.FunEpsilon = 1.27
	doc.CircuitPSIParams.FunNum = 3
	doc.CircuitPSIParams.HintFunNum = 3

	_, _, senderErr, receiverErr := runPair(t, doc, senderIDs, receiverIDs, nil, nil)
	if _, ok := senderErr.(*errs.StashNonEmptyError); !ok {
		t.Fatalf("sender expected StashNonEmptyError, got %v", senderErr)
	}
	if _, ok := receiverErr.(*errs.StashNonEmptyError); !ok {
		t.Fatalf("receiver expected StashNonEmptyError, got %v", receiverErr)
	}
}

func TestProcessCardinalityOnlyUnsupported(t *testing.T) {
	s := &Scheme{}
	if _, err := s.ProcessCardinalityOnly(context.Background(), toIDs("a")); err == nil {
		t.Fatalf("expected an error, Circuit-PSI has no cardinality-only mode")
	}
}
