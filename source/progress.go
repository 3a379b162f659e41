package source

import (
	"time"

	"github.com/sirupsen/logrus"
)

const mebibyte = 1 << 20

// Progress reports how much has moved through a pump: total size, queue fill
// and transfer rate, both averaged over the whole run and since the previous
// report.
type Progress struct {
	start, last time.Time
	lastBytes   uint64
}

func NewProgress(start time.Time) *Progress {
	return &Progress{start: start, last: start}
}

// Fields describes the transfer at now, given the samples delivered so far
// and the number of chunks queued out of capacity.
func (pr *Progress) Fields(now time.Time, samples uint64, queued, capacity int) logrus.Fields {
	bytes := samples << 1

	fields := logrus.Fields{
		"samples":   samples,
		"mb":        float64(bytes) / mebibyte,
		"queue_pct": 0,
		"avg_mbps":  rate(bytes, now.Sub(pr.start)),
		"last_mbps": rate(bytes-pr.lastBytes, now.Sub(pr.last)),
	}
	if capacity > 0 {
		fields["queue_pct"] = queued * 100 / capacity
	}

	pr.last, pr.lastBytes = now, bytes

	return fields
}

func rate(bytes uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) / mebibyte / elapsed.Seconds()
}
