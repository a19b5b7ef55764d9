// Package transport implements the byte-accounting wrapper around the
// bidirectional reliable ordered byte channel every scheme consumes
// (spec §6 transport contract: send_data/recv_data/get_bytes_sent).
// The channel itself (sockets, io.Pipe, net.Pipe) is an external
// collaborator; this package only adds the accounting spec §6 and §9
// ("Resources") require schemes to expose. Grounded on the teacher's
// stage-statistics logging in pkg/kkrtpsi/sender.go, which reports
// bytes moved per stage.
package transport

import "io"

// CountingReadWriter wraps an io.ReadWriter, tallying bytes written so
// a scheme (or its caller) can report get_bytes_sent() without the
// underlying channel needing to support it itself.
type CountingReadWriter struct {
	rw  io.ReadWriter
	out uint64
	in  uint64
}

// New wraps rw with byte accounting.
func New(rw io.ReadWriter) *CountingReadWriter {
	return &CountingReadWriter{rw: rw}
}

// Write writes p to the underlying channel, counting bytes sent.
func (c *CountingReadWriter) Write(p []byte) (int, error) {
	n, err := c.rw.Write(p)
	c.out += uint64(n)
	return n, err
}

// Read reads from the underlying channel, counting bytes received.
func (c *CountingReadWriter) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)
	c.in += uint64(n)
	return n, err
}

// BytesSent returns the cumulative number of bytes written, the
// transport contract's get_bytes_sent().
func (c *CountingReadWriter) BytesSent() uint64 { return c.out }

// BytesReceived returns the cumulative number of bytes read.
func (c *CountingReadWriter) BytesReceived() uint64 { return c.in }
