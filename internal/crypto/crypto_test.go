package crypto

import (
	"bytes"
	"testing"
)

func TestECCipherCommutes(t *testing.T) {
	for _, backend := range []int{BackendGoRistretto, BackendRistretto255} {
		a, err := NewECCipher(backend, Curve415)
		if err != nil {
			t.Fatalf("backend %d: NewECCipher: %v", backend, err)
		}
		b, err := NewECCipher(backend, Curve415)
		if err != nil {
			t.Fatalf("backend %d: NewECCipher: %v", backend, err)
		}

		id := []byte("c")
		ea := a.HashToCurveAndMultiply(id)
		eb := b.HashToCurveAndMultiply(id)

		eab := b.Multiply(ea)
		eba := a.Multiply(eb)

		if eab != eba {
			t.Fatalf("backend %d: double encryption does not commute", backend)
		}
	}
}

func TestNewECCipherRejectsBadCurve(t *testing.T) {
	if _, err := NewECCipher(BackendRistretto255, 414); err == nil {
		t.Fatalf("expected error for unsupported curve_id")
	}
}

func TestXOFDeterministic(t *testing.T) {
	seed := []byte("seed-material")
	a := make([]byte, 32)
	b := make([]byte, 32)
	if err := NewXOF(seed).Read(a); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := NewXOF(seed).Read(b); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("XOF is not deterministic for the same seed")
	}
}

func TestPadUint64PrefixConsistent(t *testing.T) {
	seed := []byte("another-seed")
	p0 := PadUint64(seed, 0)
	words := StreamUint64(seed, 3)
	if p0 != words[0] {
		t.Fatalf("PadUint64(0) != StreamUint64[0]")
	}
	p2 := PadUint64(seed, 2)
	if p2 != words[2] {
		t.Fatalf("PadUint64(2) != StreamUint64[2]")
	}
}

func TestEncryptDecryptModes(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	msg := []byte("a 2PC equality share")
	for _, mode := range []Mode{ModeXORBlake2, ModeXORBlake3, ModeGCM} {
		ct, err := Encrypt(mode, key, 1, msg)
		if err != nil {
			t.Fatalf("mode %d: Encrypt: %v", mode, err)
		}
		if got := EncryptLen(mode, len(msg)); got != len(ct) {
			t.Fatalf("mode %d: EncryptLen = %d, got ciphertext len %d", mode, got, len(ct))
		}
		pt, err := Decrypt(mode, key, 1, ct)
		if err != nil {
			t.Fatalf("mode %d: Decrypt: %v", mode, err)
		}
		if !bytes.Equal(pt, msg) {
			t.Fatalf("mode %d: roundtrip failed: got %q want %q", mode, pt, msg)
		}
	}
}

func TestGCMDetectsTamper(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	ct, err := Encrypt(ModeGCM, key, 0, []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct[len(ct)-1] ^= 0xFF
	if _, err := Decrypt(ModeGCM, key, 0, ct); err == nil {
		t.Fatalf("expected tamper to be detected")
	}
}

func TestXorCipherWithBlake2Roundtrip(t *testing.T) {
	key := []byte("0123456789abcdef")
	src := []byte("hello world")
	ct, err := XorCipherWithBlake2(key, 3, src)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	pt, err := XorCipherWithBlake2(key, 3, ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(pt, src) {
		t.Fatalf("roundtrip failed: got %q want %q", pt, src)
	}
}
