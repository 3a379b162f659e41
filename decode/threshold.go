// CHANDEMUX - A streaming demodulator and channel demultiplexer for sampled data.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package decode

// A Binarizer turns runs of raw samples into one bit per decimated position
// by comparing the first sample of each decimation step, or the step's mean
// under DecideMean, against a mean threshold recomputed every
// ThresholdWindow positions.
type Binarizer interface {
	// Binarize consumes run, whose length must be a multiple of the
	// decimation ratio, and appends bit decisions to bits.
	Binarize(run []int16, bits []byte) []byte

	// Flush appends decisions for any withheld positions. Only meaningful
	// at the end of a session.
	Flush(bits []byte) []byte

	// Threshold is the value currently in force.
	Threshold() float64

	// Position is the number of decimated positions decided so far.
	Position() uint64

	// Pending is the number of raw samples withheld awaiting a full window.
	Pending() int
}

// NewBinarizer returns the binarizer for the configuration's policy. The
// configuration must already be validated.
func NewBinarizer(cfg Config) Binarizer {
	base := binarizer{
		ratio:    cfg.DecimationRatio,
		window:   cfg.ThresholdWindow,
		length:   cfg.WindowLength,
		stepMean: cfg.Decision == DecideMean,
	}

	if cfg.ThresholdPolicy == PolicyChunk {
		return &chunkBinarizer{binarizer: base}
	}

	return &windowBinarizer{
		binarizer: base,
		backlog:   make([]int16, 0, cfg.WindowLength),
		last:      make([]int16, 0, cfg.WindowLength),
	}
}

type binarizer struct {
	ratio, window, length int
	stepMean              bool

	threshold float64
	position  uint64
}

func (b *binarizer) Threshold() float64 { return b.threshold }
func (b *binarizer) Position() uint64   { return b.position }

// Decide every decimated position of run against the current threshold.
func (b *binarizer) decide(run []int16, bits []byte) []byte {
	th := b.threshold
	for idx := 0; idx < len(run); idx += b.ratio {
		v := float64(run[idx])
		if b.stepMean {
			v = mean(run[idx : idx+b.ratio])
		}

		if v >= th {
			bits = append(bits, 1)
		} else {
			bits = append(bits, 0)
		}
	}
	b.position += uint64(len(run) / b.ratio)

	return bits
}

// Arithmetic mean of the samples. The int64 accumulator cannot overflow for
// any window addressable in memory.
func mean(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum int64
	for _, s := range samples {
		sum += int64(s)
	}

	return float64(sum) / float64(len(samples))
}

// Anchor a window of length samples at start, or at the end of run when
// fewer than length samples remain. Never anchors before 0.
func anchor(run []int16, start, length int) []int16 {
	if start+length > len(run) {
		start = len(run) - length
		if start < 0 {
			start = 0
		}
	}

	return run[start:min(start+length, len(run))]
}

// windowBinarizer only decides positions once their whole threshold window
// has arrived, so its output is independent of how the stream is chunked.
type windowBinarizer struct {
	binarizer

	// Whole decimation steps of the current, incomplete window.
	backlog []int16
	// Most recent full window, kept for the tail rule in Flush.
	last []int16
}

func (b *windowBinarizer) Pending() int { return len(b.backlog) }

func (b *windowBinarizer) Binarize(run []int16, bits []byte) []byte {
	var full []int16

	// Complete the window started by a previous run.
	if len(b.backlog) > 0 {
		n := min(b.length-len(b.backlog), len(run))
		b.backlog = append(b.backlog, run[:n]...)
		run = run[n:]

		if len(b.backlog) < b.length {
			return bits
		}

		b.threshold = mean(b.backlog)
		bits = b.decide(b.backlog, bits)
		full = b.backlog
	}

	for len(run) >= b.length {
		b.threshold = mean(run[:b.length])
		bits = b.decide(run[:b.length], bits)
		full = run[:b.length]
		run = run[b.length:]
	}

	// Both run and backlog are reused, so the last full window is copied out
	// before the backlog is refilled.
	if full != nil {
		b.last = append(b.last[:0], full...)
		b.backlog = b.backlog[:0]
	}
	b.backlog = append(b.backlog, run...)

	return bits
}

// Flush decides the withheld positions using the final window of the stream:
// the last length samples ending at the final decided sample.
func (b *windowBinarizer) Flush(bits []byte) []byte {
	if len(b.backlog) == 0 {
		return bits
	}

	avail := make([]int16, 0, len(b.last)+len(b.backlog))
	avail = append(avail, b.last...)
	avail = append(avail, b.backlog...)

	b.threshold = mean(anchor(avail, len(avail), b.length))
	bits = b.decide(b.backlog, bits)
	b.backlog = b.backlog[:0]

	return bits
}

// chunkBinarizer treats every run as the whole available signal, anchoring
// windows that overrun the end of the run to its last full window.
type chunkBinarizer struct {
	binarizer
}

func (b *chunkBinarizer) Pending() int { return 0 }

func (b *chunkBinarizer) Binarize(run []int16, bits []byte) []byte {
	window64 := uint64(b.window)

	for offset := 0; offset < len(run); {
		// Positions up to the next window boundary share the current threshold.
		if b.position%window64 == 0 {
			b.threshold = mean(anchor(run, offset, b.length))
		}

		steps := int(window64 - b.position%window64)
		end := min(offset+steps*b.ratio, len(run))
		bits = b.decide(run[offset:end], bits)
		offset = end
	}

	return bits
}

func (b *chunkBinarizer) Flush(bits []byte) []byte {
	return bits
}
