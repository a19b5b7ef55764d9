package crypto

import (
	"io"

	gr "github.com/bwesterb/go-ristretto"
	"github.com/zeebo/blake3"
)

// PointWriter marshals ristretto points onto an io.Writer, used by the
// base-OT handshake (spec §6's OT contract) to exchange curve points
// before any ciphertext flows.
type PointWriter struct{ w io.Writer }

// PointReader unmarshals ristretto points from an io.Reader.
type PointReader struct{ r io.Reader }

// NewPointWriter wraps w.
func NewPointWriter(w io.Writer) *PointWriter { return &PointWriter{w: w} }

// NewPointReader wraps r.
func NewPointReader(r io.Reader) *PointReader { return &PointReader{r: r} }

// Write marshals and writes p.
func (pw *PointWriter) Write(p *gr.Point) error {
	b, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = pw.w.Write(b)
	return err
}

// Read reads and unmarshals into p.
func (pr *PointReader) Read(p *gr.Point) error {
	buf := make([]byte, EncodedLen)
	if _, err := io.ReadFull(pr.r, buf); err != nil {
		return err
	}
	return p.UnmarshalBinary(buf)
}

// GenerateKeyPair samples a fresh secret scalar and its base-point
// public key, the (a, A=aG) or (b, B=bG) of the Naor-Pinkas handshake.
func GenerateKeyPair() (secret gr.Scalar, public gr.Point) {
	secret.Rand()
	public.ScalarMultBase(&secret)
	return
}

// GenerateRandomPoint samples a uniformly random point with no known
// discrete log, the sender's "A" in Naor-Pinkas base OT, where A's
// secret scalar is deliberately never used.
func GenerateRandomPoint() (public gr.Point) {
	public.Rand()
	return
}

// DeriveKey hashes an elliptic curve point down to a 32-byte symmetric
// key with blake3, matching the key a base-OT sender and receiver
// independently derive from the same shared point.
func DeriveKey(point *gr.Point) ([]byte, error) {
	buf, err := point.MarshalBinary()
	if err != nil {
		return nil, err
	}
	key := blake3.Sum256(buf)
	return key[:], nil
}
