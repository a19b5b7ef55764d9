package mpc

import (
	"net"
	"sync"
	"testing"
)

func TestEqualMatchesXORToTrueIndicator(t *testing.T) {
	sender, receiver := net.Pipe()
	defer sender.Close()
	defer receiver.Close()

	// cell (0,0): equal values. cell (0,1): different values.
	senderMatrix := Matrix{{42, 7}}
	receiverMatrix := Matrix{{42, 9}}

	const bits = 8

	var wg sync.WaitGroup
	var senderShares, receiverShares Matrix
	var senderErr, receiverErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		senderShares, senderErr = Equal(sender, true, senderMatrix, bits)
	}()
	go func() {
		defer wg.Done()
		receiverShares, receiverErr = Equal(receiver, false, receiverMatrix, bits)
	}()
	wg.Wait()

	if senderErr != nil {
		t.Fatalf("sender Equal: %v", senderErr)
	}
	if receiverErr != nil {
		t.Fatalf("receiver Equal: %v", receiverErr)
	}

	got00 := (senderShares[0][0] ^ receiverShares[0][0]) & 1
	if got00 != 1 {
		t.Fatalf("cell (0,0) expected equal=1, got %d", got00)
	}
	got01 := (senderShares[0][1] ^ receiverShares[0][1]) & 1
	if got01 != 0 {
		t.Fatalf("cell (0,1) expected equal=0, got %d", got01)
	}
}

func TestMultiplexerSharesSumToMaskedProduct(t *testing.T) {
	sender, receiver := net.Pipe()
	defer sender.Close()
	defer receiver.Close()

	// R XOR-shared across the two parties: r0 (sender) ^ r1 (receiver).
	// cell (0,0): R=1 (r0=1,r1=0). cell (0,1): R=0 (r0=1,r1=1).
	senderR := Matrix{{1, 1}}
	receiverR := Matrix{{0, 1}}
	value := Matrix{{17, 23}}

	var wg sync.WaitGroup
	var senderOut, receiverOut Matrix
	var senderErr, receiverErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		senderOut, senderErr = Multiplexer(sender, true, senderR, value)
	}()
	go func() {
		defer wg.Done()
		receiverOut, receiverErr = Multiplexer(receiver, false, receiverR, nil)
	}()
	wg.Wait()

	if senderErr != nil {
		t.Fatalf("sender Multiplexer: %v", senderErr)
	}
	if receiverErr != nil {
		t.Fatalf("receiver Multiplexer: %v", receiverErr)
	}

	sum00 := senderOut[0][0] + receiverOut[0][0]
	if sum00 != 17 {
		t.Fatalf("cell (0,0) expected R*value=17, got %d", sum00)
	}
	sum01 := senderOut[0][1] + receiverOut[0][1]
	if sum01 != 0 {
		t.Fatalf("cell (0,1) expected R*value=0, got %d", sum01)
	}
}
