package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeRecordsSamples(t *testing.T) {
	want := sequence(1050)
	want[7] = -12345

	name := filepath.Join(t.TempDir(), "raw.bin")
	tee, err := CreateTee(NewReader(bytes.NewReader(encode(want)), io.NopCloser(nil)), name)
	require.NoError(t, err)

	log, _ := test.NewNullLogger()
	p := NewPump(tee, 100, 2, log)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	var got []int16
	for chunk := range p.C() {
		got = append(got, chunk...)
	}
	require.NoError(t, <-done)
	assert.Equal(t, want, got)
	assert.Equal(t, uint64(1050), tee.Samples())

	// Run closed the tee, and with it the file.
	raw, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, encode(want), raw)
}

type brokenFile struct {
	closed bool
}

func (*brokenFile) Write([]byte) (int, error) {
	return 0, errors.New("no space left on device")
}

func (f *brokenFile) Close() error {
	f.closed = true
	return nil
}

func TestTeeWriteError(t *testing.T) {
	w := &brokenFile{}
	tee := NewTee(NewReader(bytes.NewReader(encode(sequence(64))), io.NopCloser(nil)), w)

	log, _ := test.NewNullLogger()
	p := NewPump(tee, 16, 1, log)

	errc := make(chan error, 1)
	go func() { errc <- p.Run(context.Background()) }()

	// The samples read before the failure still reach the consumer.
	var got int
	for chunk := range p.C() {
		got += len(chunk)
	}

	err := <-errc
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw file: no space left on device")
	assert.Equal(t, 16, got)
	assert.True(t, w.closed)
	assert.Zero(t, tee.Samples())
}
