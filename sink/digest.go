package sink

import (
	"github.com/sirupsen/logrus"

	"github.com/chandemux/chandemux/crc"
	"github.com/chandemux/chandemux/decode"
)

// Digest keeps a running checksum and byte count per lane. Two sessions over
// the same signal produce equal digests however the input was chunked.
type Digest struct {
	lanes   int
	digests []*crc.Digest
}

func NewDigest(cfg decode.Config) *Digest {
	d := &Digest{lanes: cfg.Lanes}
	for idx := 0; idx < cfg.Channels*cfg.Lanes; idx++ {
		d.digests = append(d.digests, crc.CCITT.NewDigest())
	}
	return d
}

func (d *Digest) WriteFrame(f decode.Frame) error {
	return f.Each(func(channel, lane int, p []byte) error {
		_, _ = d.digests[(channel-1)*d.lanes+lane-1].Write(p)
		return nil
	})
}

// Sum returns the checksum and byte count of the given 1-based lane.
func (d *Digest) Sum(channel, lane int) (uint16, uint64) {
	digest := d.digests[(channel-1)*d.lanes+lane-1]
	return digest.Sum16(), digest.Len()
}

// Log writes one entry per lane.
func (d *Digest) Log(log logrus.FieldLogger) {
	for idx, digest := range d.digests {
		log.WithFields(logrus.Fields{
			"channel": idx/d.lanes + 1,
			"lane":    idx%d.lanes + 1,
			"crc":     digest.Sum16(),
			"bytes":   digest.Len(),
		}).Info("lane digest")
	}
}
