// Package source acquires raw signed 16-bit samples from files or an rtl_tcp
// server and hands them to the decoder in fixed-size chunks.
package source

import "io"

// A Source produces raw samples.
type Source interface {
	// ReadSamples reads up to len(p) samples into p. At the end of the
	// stream it returns io.EOF.
	ReadSamples(p []int16) (n int, err error)

	io.Closer
}

// readFull reads exactly len(p) samples unless the stream ends or fails
// first.
func readFull(src Source, p []int16) (n int, err error) {
	for n < len(p) && err == nil {
		var nn int
		nn, err = src.ReadSamples(p[n:])
		n += nn
	}
	if n == len(p) {
		err = nil
	}
	return
}
