package source

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// File reads little-endian signed 16-bit samples, the layout written by
// digitizer dumps and by misc/gensamples.
type File struct {
	r io.Reader
	c io.Closer

	buf []byte
	odd []byte // trailing byte of an incomplete sample
}

// OpenFile opens the named sample file, or stdin for "-".
func OpenFile(name string) (*File, error) {
	if name == "-" {
		return NewReader(os.Stdin, io.NopCloser(os.Stdin)), nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open sample file")
	}

	return NewReader(f, f), nil
}

// NewReader reads samples from r. Close calls c.
func NewReader(r io.Reader, c io.Closer) *File {
	return &File{r: bufio.NewReaderSize(r, 1<<16), c: c}
}

func (f *File) ReadSamples(p []int16) (n int, err error) {
	if cap(f.buf) < len(p)<<1 {
		f.buf = make([]byte, len(p)<<1)
	}
	buf := f.buf[:len(p)<<1]

	copy(buf, f.odd)
	read, err := f.r.Read(buf[len(f.odd):])
	read += len(f.odd)
	f.odd = f.odd[:0]

	n = read >> 1
	for idx := 0; idx < n; idx++ {
		p[idx] = int16(binary.LittleEndian.Uint16(buf[idx<<1:]))
	}
	if read&1 == 1 {
		f.odd = append(f.odd, buf[read-1])
	}

	if err == io.EOF && len(f.odd) > 0 {
		return n, errors.Wrap(io.ErrUnexpectedEOF, "odd trailing byte")
	}

	return n, err
}

func (f *File) Close() error {
	return f.c.Close()
}
