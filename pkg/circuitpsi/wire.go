package circuitpsi

import (
	"encoding/binary"
	"io"
)

// writeUint64Slice writes vs as contiguous little-endian 8-byte words
// (spec §6: "Circuit filters: num_bins_hint x 8 bytes, little-endian").
func writeUint64Slice(w io.Writer, vs []uint64) error {
	buf := make([]byte, len(vs)*8)
	for i, v := range vs {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	_, err := w.Write(buf)
	return err
}

// readUint64Slice reads n contiguous little-endian 8-byte words.
func readUint64Slice(r io.Reader, n int) ([]uint64, error) {
	buf := make([]byte, n*8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return out, nil
}
