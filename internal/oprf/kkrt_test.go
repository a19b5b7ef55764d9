package oprf

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"testing"
)

func TestKKRTOPRFMatchesOnRealInputs(t *testing.T) {
	const m = 10
	const k = 64

	items := make([][]byte, m)
	for i := range items {
		items[i] = []byte(fmt.Sprintf("item-%03d", i))
	}

	sender, err := NewKKRT(m, k)
	if err != nil {
		t.Fatalf("NewKKRT (sender): %v", err)
	}
	receiver, err := NewKKRT(m, k)
	if err != nil {
		t.Fatalf("NewKKRT (receiver): %v", err)
	}

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	var key Key
	var sendErr error
	var recvOut [][]byte
	var recvErr error

	go func() {
		defer wg.Done()
		key, sendErr = sender.Send(a)
	}()
	go func() {
		defer wg.Done()
		recvOut, recvErr = receiver.Receive(m, func(i int) []byte { return items[i] }, b)
	}()
	wg.Wait()

	if sendErr != nil {
		t.Fatalf("Send: %v", sendErr)
	}
	if recvErr != nil {
		t.Fatalf("Receive: %v", recvErr)
	}

	for row := 0; row < m; row++ {
		got := sender.Encode(key, row, items[row])
		if !bytes.Equal(got, recvOut[row]) {
			t.Fatalf("row %d: Encode(key, row, trueItem) = %x, want %x", row, got, recvOut[row])
		}
	}
}

func TestKKRTOPRFDivergesOnWrongInput(t *testing.T) {
	const m = 6
	const k = 64

	items := make([][]byte, m)
	for i := range items {
		items[i] = []byte(fmt.Sprintf("real-%03d", i))
	}

	sender, err := NewKKRT(m, k)
	if err != nil {
		t.Fatalf("NewKKRT (sender): %v", err)
	}
	receiver, err := NewKKRT(m, k)
	if err != nil {
		t.Fatalf("NewKKRT (receiver): %v", err)
	}

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	var key Key
	var recvOut [][]byte
	var sendErr, recvErr error

	go func() {
		defer wg.Done()
		key, sendErr = sender.Send(a)
	}()
	go func() {
		defer wg.Done()
		recvOut, recvErr = receiver.Receive(m, func(i int) []byte { return items[i] }, b)
	}()
	wg.Wait()

	if sendErr != nil || recvErr != nil {
		t.Fatalf("errors: send=%v recv=%v", sendErr, recvErr)
	}

	mismatch := sender.Encode(key, 0, []byte("not-the-real-item"))
	if bytes.Equal(mismatch, recvOut[0]) {
		t.Fatalf("Encode on a wrong input unexpectedly matched the receiver's row")
	}
}
