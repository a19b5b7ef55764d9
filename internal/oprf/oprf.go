// Package oprf implements a batched oblivious pseudorandom function
// built on top of 1-out-of-2 OT extension, the building block the
// KKRT-PSI and Circuit-PSI schemes use to compare hashed bin contents
// without revealing them (spec §4.4, §4.5). Grounded on the teacher's
// internal/oprf package (improved_kkrt.go).
package oprf

import "io"

// Key is the sender-side trapdoor returned by Send: it lets the
// sender evaluate the OPRF on an arbitrary input at a given row and
// get back the same value the receiver computed for that row's real
// item, and an unrelated pseudorandom value for anything else.
type Key struct {
	keyBytes []byte
	s        []byte
	q        [][]byte
}

// OPRF is a batched oblivious PRF over m parallel evaluation slots
// ("rows"), one per cuckoo or simple-hash table bin.
type OPRF interface {
	// Send runs the sender side of the OT extension and returns the
	// key needed to evaluate F at each row.
	Send(rw io.ReadWriter) (Key, error)
	// Receive runs the receiver side, evaluating F(k, item(i)) for
	// every row i in [0, m).
	Receive(m int, item func(i int) []byte, rw io.ReadWriter) ([][]byte, error)
	// Encode evaluates the OPRF for row using key, on an arbitrary
	// input. When input equals the value the receiver supplied for
	// row, the result equals Receive's output for that row.
	Encode(key Key, row int, input []byte) []byte
}
