package ot

import (
	"fmt"
	"io"

	gr "github.com/bwesterb/go-ristretto"

	"github.com/optable/psiengine/internal/crypto"
	"github.com/optable/psiengine/internal/util"
)

// naorPinkas is a 1-out-of-2 base OT from Naor and Pinkas, "Efficient
// Oblivious Transfer Protocols" (2001), implemented over ristretto
// points. Grounded on the teacher's internal/ot/naor_pinkas_ristretto.go.
type naorPinkas struct {
	baseCount int
	msgLen    []int
	mode      crypto.Mode
}

// NewBaseOT constructs a Naor-Pinkas base OT for baseCount parallel
// 1-out-of-2 transfers, each carrying a message of msgLen[i] bytes,
// with payloads encrypted under mode.
func NewBaseOT(baseCount int, msgLen []int, mode crypto.Mode) (OT, error) {
	if len(msgLen) != baseCount {
		return nil, ErrBaseCountMismatch
	}
	return naorPinkas{baseCount: baseCount, msgLen: msgLen, mode: mode}, nil
}

func (n naorPinkas) Send(messages []Message, rw io.ReadWriter) error {
	if len(messages) != n.baseCount {
		return ErrBaseCountMismatch
	}
	for _, m := range messages {
		if len(m[0]) == 0 || len(m[1]) == 0 {
			return ErrEmptyMessage
		}
	}

	reader := crypto.NewPointReader(rw)
	writer := crypto.NewPointWriter(rw)

	// A has no known discrete log; its scalar is never used.
	pointA := crypto.GenerateRandomPoint()
	secretR, pointR := crypto.GenerateKeyPair()

	if err := writer.Write(&pointA); err != nil {
		return err
	}
	if err := writer.Write(&pointR); err != nil {
		return err
	}

	// precompute rA
	pointA.ScalarMult(&pointA, &secretR)

	pointK0 := make([]gr.Point, n.baseCount)
	for i := range pointK0 {
		if err := reader.Read(&pointK0[i]); err != nil {
			return err
		}
	}

	var pointK [2]gr.Point
	for i := 0; i < n.baseCount; i++ {
		// K0 = rK0, K1 = rA - rK0
		pointK[0].ScalarMult(&pointK0[i], &secretR)
		pointK[1].Sub(&pointA, &pointK[0])

		for choice, plaintext := range messages[i] {
			key, err := crypto.DeriveKey(&pointK[choice])
			if err != nil {
				return err
			}
			ciphertext, err := crypto.Encrypt(n.mode, key, uint8(choice), plaintext)
			if err != nil {
				return fmt.Errorf("ot: encrypting sender message: %w", err)
			}
			if _, err := rw.Write(ciphertext); err != nil {
				return err
			}
		}
	}

	return nil
}

func (n naorPinkas) Receive(choices []uint8, messages [][]byte, rw io.ReadWriter) error {
	if len(choices)*8 != len(messages) || len(choices)*8 != n.baseCount {
		return ErrBaseCountMismatch
	}

	reader := crypto.NewPointReader(rw)
	writer := crypto.NewPointWriter(rw)

	var pointA, pointR gr.Point
	if err := reader.Read(&pointA); err != nil {
		return err
	}
	if err := reader.Read(&pointR); err != nil {
		return err
	}

	bSecrets := make([]gr.Scalar, n.baseCount)
	var pointB gr.Point
	for i := 0; i < n.baseCount; i++ {
		bSecrets[i], pointB = crypto.GenerateKeyPair()

		if util.TestBit(choices, i) == 0 {
			// K0 = Kc = B, K1 = K1-c = A - B
			if err := writer.Write(&pointB); err != nil {
				return err
			}
		} else {
			// K1 = Kc = B, K0 = K1-c = A - B
			pointB.Sub(&pointA, &pointB)
			if err := writer.Write(&pointB); err != nil {
				return err
			}
		}
	}

	var e [2][]byte
	var pointK gr.Point
	for i := 0; i < n.baseCount; i++ {
		l := crypto.EncryptLen(n.mode, n.msgLen[i])
		for j := range e {
			e[j] = make([]byte, l)
			if _, err := io.ReadFull(rw, e[j]); err != nil {
				return err
			}
		}

		// K = bR
		pointK.ScalarMult(&pointR, &bSecrets[i])
		key, err := crypto.DeriveKey(&pointK)
		if err != nil {
			return err
		}

		bit := util.TestBit(choices, i)
		messages[i], err = crypto.Decrypt(n.mode, key, bit, e[bit])
		if err != nil {
			return fmt.Errorf("ot: decrypting sender message: %w", err)
		}
	}

	return nil
}
