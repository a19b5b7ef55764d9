package ot

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/optable/psiengine/internal/crypto"
)

func TestBaseOTTransfersChoices(t *testing.T) {
	const baseCount = 16
	msgLen := make([]int, baseCount)
	messages := make([]Message, baseCount)
	want := make([][]byte, baseCount)
	choices := make([]uint8, baseCount/8)

	for i := 0; i < baseCount; i++ {
		m0 := []byte(fmt.Sprintf("msg0-%02d", i))
		m1 := []byte(fmt.Sprintf("msg1-%02d", i))
		messages[i] = Message{m0, m1}
		msgLen[i] = len(m0)
		if i%3 == 0 {
			setBit(choices, i)
			want[i] = m1
		} else {
			want[i] = m0
		}
	}

	sender, err := NewBaseOT(baseCount, msgLen, crypto.ModeXORBlake2)
	if err != nil {
		t.Fatalf("NewBaseOT (sender): %v", err)
	}
	receiver, err := NewBaseOT(baseCount, msgLen, crypto.ModeXORBlake2)
	if err != nil {
		t.Fatalf("NewBaseOT (receiver): %v", err)
	}

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	var sendErr, recvErr error
	got := make([][]byte, baseCount)

	go func() {
		defer wg.Done()
		sendErr = sender.Send(messages, a)
	}()
	go func() {
		defer wg.Done()
		recvErr = receiver.Receive(choices, got, b)
	}()
	wg.Wait()

	if sendErr != nil {
		t.Fatalf("Send: %v", sendErr)
	}
	if recvErr != nil {
		t.Fatalf("Receive: %v", recvErr)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("base OT %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func setBit(bs []byte, i int) {
	bs[i/8] |= 1 << uint(i%8)
}
