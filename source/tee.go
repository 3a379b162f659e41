package source

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Tee records every sample read from a source as little-endian int16, the
// layout File reads back, before the samples are handed on.
type Tee struct {
	Source

	w   io.Writer
	buf []byte
	n   uint64
	err error
}

// NewTee records samples read from src to w. Close closes w if it is an
// io.Closer, then src.
func NewTee(src Source, w io.Writer) *Tee {
	return &Tee{Source: src, w: w}
}

// CreateTee records samples read from src to the named file, truncating it.
func CreateTee(src Source, name string) (*Tee, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "create raw file")
	}
	return NewTee(src, f), nil
}

// ReadSamples reads from the source and records what was read. A failed
// write is returned with the samples read and by every later call.
func (t *Tee) ReadSamples(p []int16) (n int, err error) {
	if t.err != nil {
		return 0, t.err
	}

	n, err = t.Source.ReadSamples(p)
	if n == 0 {
		return n, err
	}

	if cap(t.buf) < n<<1 {
		t.buf = make([]byte, n<<1)
	}
	buf := t.buf[:n<<1]
	for idx, s := range p[:n] {
		binary.LittleEndian.PutUint16(buf[idx<<1:], uint16(s))
	}

	if _, werr := t.w.Write(buf); werr != nil {
		t.err = errors.Wrap(werr, "raw file")
		return n, t.err
	}
	t.n += uint64(n)

	return n, err
}

// Samples is the number of samples recorded.
func (t *Tee) Samples() uint64 {
	return t.n
}

func (t *Tee) Close() (err error) {
	if c, ok := t.w.(io.Closer); ok {
		err = errors.Wrap(c.Close(), "close raw file")
	}
	if serr := t.Source.Close(); serr != nil && err == nil {
		err = serr
	}
	return err
}
