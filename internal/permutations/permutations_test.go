package permutations

import "testing"

func TestGenerateIsAPermutation(t *testing.T) {
	pi, err := Generate(nil, 50)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	seen := make(map[int64]bool, len(pi))
	for _, v := range pi {
		if v < 0 || v >= int64(len(pi)) {
			t.Fatalf("out of range value %d", v)
		}
		if seen[v] {
			t.Fatalf("duplicate value %d", v)
		}
		seen[v] = true
	}
}

func TestApplyForwardReverseRoundtrip(t *testing.T) {
	pi, err := Generate(nil, 20)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	v := make([]int, 20)
	for i := range v {
		v[i] = i * 7
	}
	shuffled := Apply(pi, v, true)
	restored := Apply(pi, shuffled, false)
	for i := range v {
		if restored[i] != v[i] {
			t.Fatalf("roundtrip mismatch at %d: got %d want %d", i, restored[i], v[i])
		}
	}
}

func TestInvertIsInvolution(t *testing.T) {
	pi, _ := Generate(nil, 10)
	inv := Invert(pi)
	invinv := Invert(inv)
	for i := range pi {
		if pi[i] != invinv[i] {
			t.Fatalf("Invert(Invert(p)) != p at %d", i)
		}
	}
}
