package decode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandemux/chandemux/gen"
)

func TestSyncStateString(t *testing.T) {
	assert.Equal(t, "searching", Searching.String())
	assert.Equal(t, "locked", Locked.String())
}

func TestParseBits(t *testing.T) {
	assert.Equal(t, uint64(0xAC), parseBits(DefaultMarker))
	assert.Equal(t, uint64(0xF0), parseBits(DefaultValidation))
	assert.Zero(t, parseBits(""))
}

func TestSynchronizerLock(t *testing.T) {
	s := NewSynchronizer(DefaultMarker, DefaultValidation)

	payload := gen.Bits("1100101011110001")
	bits := gen.Bits(strings.Repeat("0", 100) + DefaultMarker + DefaultValidation)
	bits = append(bits, payload...)

	rest, locked := s.Scan(bits)
	require.True(t, locked)
	assert.Equal(t, Locked, s.State())
	assert.Equal(t, uint64(116), s.Offset())
	assert.Equal(t, payload, rest)

	// Locked is terminal, later bits pass straight through.
	more := gen.Bits(DefaultMarker + DefaultValidation)
	rest, locked = s.Scan(more)
	assert.True(t, locked)
	assert.Equal(t, more, rest)
	assert.Equal(t, uint64(116), s.Offset())
}

func TestSynchronizerAcrossChunks(t *testing.T) {
	stream := gen.Bits("0110" + DefaultMarker + DefaultValidation + "1011")

	for split := 0; split <= len(stream); split++ {
		s := NewSynchronizer(DefaultMarker, DefaultValidation)

		var out []byte
		for _, part := range [][]byte{stream[:split], stream[split:]} {
			rest, locked := s.Scan(part)
			if locked {
				out = append(out, rest...)
			}
		}

		require.Equal(t, Locked, s.State(), "split %d", split)
		assert.Equal(t, uint64(20), s.Offset(), "split %d", split)
		assert.Equal(t, gen.Bits("1011"), out, "split %d", split)
	}
}

func TestSynchronizerNearMiss(t *testing.T) {
	s := NewSynchronizer(DefaultMarker, DefaultValidation)

	// The first marker is followed by another marker instead of the
	// validation field.
	bits := gen.Bits(DefaultMarker + DefaultMarker + DefaultValidation)

	rest, locked := s.Scan(bits[:16])
	assert.False(t, locked)
	assert.Nil(t, rest)
	assert.Equal(t, uint64(1), s.NearMisses())

	rest, locked = s.Scan(bits[16:])
	require.True(t, locked)
	assert.Empty(t, rest)
	assert.Equal(t, uint64(24), s.Offset())
	assert.Equal(t, uint64(24), s.Scanned())
}

func TestSynchronizerOverlappingCandidate(t *testing.T) {
	s := NewSynchronizer(DefaultMarker, DefaultValidation)

	// A false start "10" shares a prefix with the marker.
	_, locked := s.Scan(gen.Bits("10" + DefaultMarker + DefaultValidation))
	require.True(t, locked)
	assert.Equal(t, uint64(18), s.Offset())
	assert.Zero(t, s.NearMisses())
}

func TestSynchronizerNeedsFullWindow(t *testing.T) {
	// An all-zero register would match "0001" after a single 1 bit if the
	// window weren't required to fill first.
	s := NewSynchronizer("00", "01")

	_, locked := s.Scan([]byte{1})
	assert.False(t, locked)

	_, locked = s.Scan(gen.Bits("0001"))
	assert.True(t, locked)
	assert.Equal(t, uint64(5), s.Offset())
}

func TestSynchronizerSearching(t *testing.T) {
	s := NewSynchronizer(DefaultMarker, DefaultValidation)

	rest, locked := s.Scan(gen.Bits(strings.Repeat("10", 200)))
	assert.False(t, locked)
	assert.Nil(t, rest)
	assert.Equal(t, Searching, s.State())
	assert.Zero(t, s.Offset())
	assert.Equal(t, uint64(400), s.Scanned())
}

func BenchmarkSynchronizer(b *testing.B) {
	bits := gen.Bits(strings.Repeat("10", 1<<14))

	b.SetBytes(int64(len(bits)))
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		s := NewSynchronizer(DefaultMarker, DefaultValidation)
		s.Scan(bits)
	}
}
