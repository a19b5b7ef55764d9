package util

import (
	"bytes"
	"net"
	"sync"
	"testing"
)

func TestSerializeDeserializeStringsRoundtrip(t *testing.T) {
	in := [][]byte{[]byte("c"), []byte("e"), []byte("g")}
	out := DeserializeStrings(SerializeStrings(in))
	if len(out) != len(in) {
		t.Fatalf("got %d strings, want %d", len(out), len(in))
	}
	for i := range in {
		if !bytes.Equal(in[i], out[i]) {
			t.Fatalf("mismatch at %d: got %q want %q", i, out[i], in[i])
		}
	}
}

func TestDeserializeEmpty(t *testing.T) {
	if out := DeserializeStrings(nil); out != nil {
		t.Fatalf("expected nil, got %v", out)
	}
}

func TestXorBytesRoundtrip(t *testing.T) {
	a := []byte{1, 2, 3, 4}
	b := []byte{9, 8, 7, 6}
	x := XorBytes(a, b)
	y := XorBytes(x, b)
	if !bytes.Equal(a, y) {
		t.Fatalf("xor roundtrip failed")
	}
}

func TestExchangeUint64SenderFirst(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	var senderPeer, receiverPeer uint64
	var senderErr, receiverErr error

	go func() {
		defer wg.Done()
		senderPeer, senderErr = ExchangeUint64(a, true, 42)
	}()
	go func() {
		defer wg.Done()
		receiverPeer, receiverErr = ExchangeUint64(b, false, 7)
	}()
	wg.Wait()

	if senderErr != nil || receiverErr != nil {
		t.Fatalf("errors: sender=%v receiver=%v", senderErr, receiverErr)
	}
	if senderPeer != 7 {
		t.Fatalf("sender got peer=%d, want 7", senderPeer)
	}
	if receiverPeer != 42 {
		t.Fatalf("receiver got peer=%d, want 42", receiverPeer)
	}
}

func TestCheckConsistentUint64Mismatch(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	var errA, errB error
	go func() {
		defer wg.Done()
		errA = CheckConsistentUint64(a, true, "curve_id", 415)
	}()
	go func() {
		defer wg.Done()
		errB = CheckConsistentUint64(b, false, "curve_id", 414)
	}()
	wg.Wait()

	if errA == nil || errB == nil {
		t.Fatalf("expected both sides to fail, got errA=%v errB=%v", errA, errB)
	}
}
