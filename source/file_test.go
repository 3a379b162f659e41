package source

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandemux/chandemux/gen"
)

func encode(samples []int16) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// trickleReader returns at most n bytes per Read.
type trickleReader struct {
	r io.Reader
	n int
}

func (t trickleReader) Read(p []byte) (int, error) {
	if len(p) > t.n {
		p = p[:t.n]
	}
	return t.r.Read(p)
}

func TestFileReadSamples(t *testing.T) {
	want := []int16{0, 1, -1, 32767, -32768, 1000, -1000}

	// Odd-sized reads split samples across calls.
	f := NewReader(trickleReader{bytes.NewReader(encode(want)), 3}, io.NopCloser(nil))

	var got []int16
	p := make([]int16, 2)
	for {
		n, err := f.ReadSamples(p)
		got = append(got, p[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, want, got)
}

func TestFileOddTrailingByte(t *testing.T) {
	data := append(encode([]int16{5, 6}), 0x7F)
	f := NewReader(bytes.NewReader(data), io.NopCloser(nil))

	p := make([]int16, 8)
	n, err := readFull(f, p)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int16{5, 6}, p[:n])
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
}

func TestOpenFile(t *testing.T) {
	want := gen.Modulate(gen.Bits("10110"), 4, 1200)

	name := filepath.Join(t.TempDir(), "samples.bin")
	require.NoError(t, os.WriteFile(name, encode(want), 0644))

	f, err := OpenFile(name)
	require.NoError(t, err)
	defer f.Close()

	p := make([]int16, 64)
	n, err := readFull(f, p)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, want, p[:n])

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing.bin"))
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}
