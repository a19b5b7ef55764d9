package util

import "bytes"

// SerializeStrings concatenates ss as NUL-terminated byte strings, the
// wire representation used for the KKRT intersection return (spec §6).
func SerializeStrings(ss [][]byte) []byte {
	var out []byte
	for _, s := range ss {
		out = append(out, s...)
		out = append(out, 0)
	}
	return out
}

// DeserializeStrings recovers the slice of byte strings packed by
// SerializeStrings, splitting on NUL bytes.
func DeserializeStrings(b []byte) [][]byte {
	if len(b) == 0 {
		return nil
	}
	parts := bytes.Split(b, []byte{0})
	// bytes.Split on a trailing-NUL buffer yields one trailing empty
	// slice; drop it so the round trip is exact.
	if len(parts) > 0 && len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	return parts
}
