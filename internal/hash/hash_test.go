package hash

import "testing"

func TestHasherDeterministic(t *testing.T) {
	salt := make([]byte, SaltLength)
	for i := range salt {
		salt[i] = byte(i)
	}

	for _, typ := range []int{Murmur3, Metro} {
		h1, err := New(typ, salt)
		if err != nil {
			t.Fatalf("New(%d): %v", typ, err)
		}
		h2, err := New(typ, salt)
		if err != nil {
			t.Fatalf("New(%d): %v", typ, err)
		}
		if h1.Hash64([]byte("hello")) != h2.Hash64([]byte("hello")) {
			t.Fatalf("hasher %d is not deterministic for the same salt", typ)
		}
	}
}

func TestHasherRejectsBadSalt(t *testing.T) {
	if _, err := New(Murmur3, []byte("short")); err != ErrSaltLengthMismatch {
		t.Fatalf("expected ErrSaltLengthMismatch, got %v", err)
	}
}

func TestHashItemDeterministicAndFixedLen(t *testing.T) {
	a := HashItem([]byte("c"))
	b := HashItem([]byte("c"))
	if a != b {
		t.Fatalf("HashItem is not deterministic")
	}
	c := HashItem([]byte("h"))
	if a == c {
		t.Fatalf("distinct identifiers hashed to the same item")
	}
}
