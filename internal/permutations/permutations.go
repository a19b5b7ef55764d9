// Package permutations implements the Fisher-Yates permutation
// generator and apply/undo primitives shared by every scheme's
// leakage-hiding shuffle step, grounded on the teacher's
// pkg/permutations (naive.go) and dhpsi.initP/invertedPermutations.
package permutations

import (
	"crypto/rand"
	"io"
	"math/big"
)

// Generate returns a uniformly random permutation of [0,n) produced
// by a Fisher-Yates shuffle seeded from prng (crypto/rand.Reader if
// prng is nil).
func Generate(prng io.Reader, n int64) ([]int64, error) {
	if prng == nil {
		prng = rand.Reader
	}
	p := make([]int64, n)
	for i := range p {
		p[i] = int64(i)
	}
	if n <= 1 {
		return p, nil
	}
	choose := func(max int64) (int64, error) {
		i, err := rand.Int(prng, big.NewInt(max))
		if err != nil {
			return 0, err
		}
		return i.Int64(), nil
	}
	for i := int64(0); i < n; i++ {
		j, err := choose(i + 1)
		if err != nil {
			return nil, err
		}
		if j != i {
			p[i], p[j] = p[j], p[i]
		}
	}
	return p, nil
}

// Invert returns the inverse permutation of p: inv[p[i]] == i.
func Invert(p []int64) []int64 {
	inv := make([]int64, len(p))
	for i, v := range p {
		inv[v] = int64(i)
	}
	return inv
}

// Apply permutes v according to pi. When forward is true,
// out[i] = v[pi[i]]; when false (reverse/undo), out[pi[i]] = v[i].
func Apply[T any](pi []int64, v []T, forward bool) []T {
	out := make([]T, len(v))
	if forward {
		for i, p := range pi {
			out[i] = v[p]
		}
	} else {
		for i, p := range pi {
			out[p] = v[i]
		}
	}
	return out
}
