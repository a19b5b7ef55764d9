// Package util implements the small cross-cutting primitives shared
// by every scheme: the sender-sends-first wire framing helpers, the
// parameter-consistency handshake, bit-matrix transposition, and
// NUL-terminated string (de)serialization. Grounded on the teacher's
// internal/util (framing.go, count.go). No cancellation is modeled
// here: per spec §5, "no cancellation is modeled; aborts propagate as
// errors and close the connection," so stage execution is not wrapped
// in any cancellable-select helper.
package util

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/optable/psiengine/internal/errs"
)

// WriteUint64 writes v as 8 bytes in little-endian order, so both ends
// agree on the encoding regardless of their native byte order (spec
// Design Notes, byte-order caveat).
func WriteUint64(w io.Writer, v uint64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadUint64 reads 8 little-endian bytes into a uint64.
func ReadUint64(r io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, errs.ProtocolDesync("short read on uint64: %v", err)
		}
		return 0, err
	}
	return v, nil
}

// WriteSizePrefixed writes len(data) as a uint64 followed by data.
func WriteSizePrefixed(w io.Writer, data []byte) error {
	if err := WriteUint64(w, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadSizePrefixed reads a uint64 length then that many bytes.
func ReadSizePrefixed(r io.Reader) ([]byte, error) {
	n, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errs.ProtocolDesync("short read on %d-byte payload: %v", n, err)
	}
	return buf, nil
}

// ExchangeUint64 exchanges one uint64 value with the peer following
// the invariant sender-first ordering from spec §5: whenever two
// values are exchanged, the Sender sends first then receives; the
// Receiver receives first then sends.
func ExchangeUint64(rw io.ReadWriter, isSender bool, mine uint64) (peer uint64, err error) {
	if isSender {
		if err = WriteUint64(rw, mine); err != nil {
			return 0, err
		}
		return ReadUint64(rw)
	}
	peer, err = ReadUint64(rw)
	if err != nil {
		return 0, err
	}
	return peer, WriteUint64(rw, mine)
}

// ExchangeBytes exchanges one size-prefixed byte blob with the peer,
// following the same sender-first ordering as ExchangeUint64.
func ExchangeBytes(rw io.ReadWriter, isSender bool, mine []byte) (peer []byte, err error) {
	if isSender {
		if err = WriteSizePrefixed(rw, mine); err != nil {
			return nil, err
		}
		return ReadSizePrefixed(rw)
	}
	peer, err = ReadSizePrefixed(rw)
	if err != nil {
		return nil, err
	}
	return peer, WriteSizePrefixed(rw, mine)
}

// CheckConsistentUint64 runs the parameter-consistency handshake for
// label, exchanging self with the peer (sender-sends-first) and
// failing with InconsistentParameter on any bit-level mismatch.
func CheckConsistentUint64(rw io.ReadWriter, isSender bool, label string, self uint64) error {
	peer, err := ExchangeUint64(rw, isSender, self)
	if err != nil {
		return err
	}
	if peer != self {
		return errs.InconsistentParameter(label, self, peer)
	}
	return nil
}

// CheckConsistentBytes runs the parameter-consistency handshake over
// an arbitrary fixed-width encoding of a value (used for bool/float
// parameters, encoded by the caller to a canonical byte form).
func CheckConsistentBytes(rw io.ReadWriter, isSender bool, label string, self []byte) error {
	peer, err := ExchangeBytes(rw, isSender, self)
	if err != nil {
		return err
	}
	if string(peer) != string(self) {
		return errs.InconsistentParameter(label, fmt.Sprintf("%x", self), fmt.Sprintf("%x", peer))
	}
	return nil
}
