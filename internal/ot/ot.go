// Package ot implements 1-out-of-2 base oblivious transfer, on top of
// which the OT extension in internal/oprf and the MPC layer in
// internal/mpc are built (spec §6, OT contract).
// Grounded on the teacher's internal/ot package.
package ot

import (
	"errors"
	"io"
)

// ErrBaseCountMismatch is returned when the number of supplied
// messages or choice bits does not match an OT instance's configured
// base count.
var ErrBaseCountMismatch = errors.New("ot: message count does not match base OT count")

// ErrEmptyMessage is returned when Send is asked to transfer a
// zero-length message pair.
var ErrEmptyMessage = errors.New("ot: attempt to perform OT on an empty message")

// Message is a pair of OT payloads; a receiver with choice bit 0
// recovers messages[0], and a receiver with choice bit 1 recovers
// messages[1].
type Message [2][]byte

// OT is a 1-out-of-2 base oblivious transfer: the sender holds
// baseCount message pairs, and the receiver holds baseCount choice
// bits, one per pair.
type OT interface {
	// Send transfers messages, one pair per base OT instance.
	Send(messages []Message, rw io.ReadWriter) error
	// Receive recovers one message per base OT instance according to
	// choices (one bit per instance, packed eight to a byte of choices,
	// LSB-first).
	Receive(choices []uint8, messages [][]byte, rw io.ReadWriter) error
}
