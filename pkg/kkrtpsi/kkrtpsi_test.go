package kkrtpsi

import (
	"context"
	"net"
	"sort"
	"sync"
	"testing"

	"github.com/optable/psiengine/internal/config"
	"github.com/optable/psiengine/internal/errs"
)

func toIDs(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func toStrings(bs [][]byte) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
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

func runPair(t *testing.T, doc config.Doc, senderIDs, receiverIDs [][]byte) (sender, receiver [][]byte, senderErr, receiverErr error) {
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
		return nil, nil, senderErr, receiverErr
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := senderScheme.Process(context.Background(), senderIDs, nil)
		senderErr = err
		sender = res.Identifiers
	}()
	go func() {
		defer wg.Done()
		res, err := receiverScheme.Process(context.Background(), receiverIDs, nil)
		receiverErr = err
		receiver = res.Identifiers
	}()
	wg.Wait()
	return sender, receiver, senderErr, receiverErr
}

// E3: KKRT-PSI intersection over the same inputs as ECDH-PSI's E1,
// with sender_obtain_result=true; both parties recover {c,e,g}.
func TestE3IntersectionWithSenderObtainResult(t *testing.T) {
	senderIDs := toIDs("c", "h", "e", "g", "y", "z")
	receiverIDs := toIDs("b", "c", "e", "g")

	doc := config.Default()
	doc.KKRTPSIParams.Epsilon = 1.27
	doc.KKRTPSIParams.FunNum = 3
	doc.KKRTPSIParams.SenderObtainResult = true

	senderRes, receiverRes, senderErr, receiverErr := runPair(t, doc, senderIDs, receiverIDs)
	if senderErr != nil {
		t.Fatalf("sender: %v", senderErr)
	}
	if receiverErr != nil {
		t.Fatalf("receiver: %v", receiverErr)
	}

	want := []string{"c", "e", "g"}
	if got := toStrings(receiverRes); !equalStrings(got, want) {
		t.Fatalf("receiver got %v, want %v", got, want)
	}
	if got := toStrings(senderRes); !equalStrings(got, want) {
		t.Fatalf("sender got %v, want %v", got, want)
	}
}

// E4: a too-small epsilon overflows the cuckoo table's displacement
// budget; both peers must raise StashNonEmpty.
func TestE4StashOverflowAborts(t *testing.T) {
	senderIDs := toIDs("c", "h", "e", "g", "y", "z")
	receiverIDs := toIDs("b", "c", "e", "g")

	doc := config.Default()
	doc.KKRTPSIParams.Epsilon = 0.27
	doc.KKRTPSIParams.FunNum = 3

	_, _, senderErr, receiverErr := runPair(t, doc, senderIDs, receiverIDs)
	if _, ok := senderErr.(*errs.StashNonEmptyError); !ok {
		t.Fatalf("sender expected StashNonEmptyError, got %v", senderErr)
	}
	if _, ok := receiverErr.(*errs.StashNonEmptyError); !ok {
		t.Fatalf("receiver expected StashNonEmptyError, got %v", receiverErr)
	}
}
