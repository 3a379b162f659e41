package crc

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	Trials = 512
)

var crcs = []CRC{
	NewCRC("IBM", 0, 0x8005, 0),
	NewCRC("BCH", 0, 0x6F63, 0),
	CCITT,
}

func TestCheckValue(t *testing.T) {
	check := []byte("123456789")

	assert.Equal(t, uint16(0x29B1), CCITT.Checksum(check))
	assert.Equal(t, uint16(0xFEE8), crcs[0].Checksum(check))
}

// Appending a message's checksum big-endian drives the remainder to zero.
func TestIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for _, crc := range crcs {
		for trial := 0; trial < Trials; trial++ {
			length := r.Intn(32)&0xFE + 8

			buf := make([]byte, length)
			r.Read(buf[:length-2])

			intermediate := crc.Checksum(buf[:length-2])
			binary.BigEndian.PutUint16(buf[length-2:], intermediate)

			require.Zero(t, crc.Checksum(buf), "%s: %02X %04X", crc.Name, buf, intermediate)
		}
	}
}

func TestDigestMatchesChecksum(t *testing.T) {
	r := rand.New(rand.NewSource(2))

	data := make([]byte, 4096)
	r.Read(data)

	for _, crc := range crcs {
		d := crc.NewDigest()
		for rest := data; len(rest) > 0; {
			n := min(r.Intn(64)+1, len(rest))
			written, err := d.Write(rest[:n])
			require.NoError(t, err)
			require.Equal(t, n, written)
			rest = rest[n:]
		}

		assert.Equal(t, crc.Checksum(data), d.Sum16(), crc.Name)
		assert.Equal(t, uint64(len(data)), d.Len())

		d.Reset()
		assert.Equal(t, crc.Init, d.Sum16())
		assert.Zero(t, d.Len())
	}
}

func TestDigestString(t *testing.T) {
	d := CCITT.NewDigest()
	d.Write([]byte("123456789"))
	assert.Equal(t, "CCITT:29B1/9", d.String())
}
