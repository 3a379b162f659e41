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

// Package decode recovers multiplexed lane bytes from a chunked stream of
// signed 16-bit samples: decimation and mean-threshold bit decisions, preamble
// synchronization and frame demultiplexing, with state carried across chunk
// boundaries so any chunking decodes identically.
package decode

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A Sink accepts every decoded frame. An error aborts the session.
type Sink interface {
	WriteFrame(Frame) error
}

// A Flusher is a Sink that buffers frames. Flush is called after every chunk,
// before the chunk is committed, so a buffered write failure is reported by
// the Feed or Close that produced the frames.
type Flusher interface {
	Flush() error
}

// LaneFunc adapts a per-lane callback to a Sink. It is called once per
// channel and lane of every frame, channels and lanes numbered from 1.
type LaneFunc func(channel, lane int, p []byte) error

func (fn LaneFunc) WriteFrame(f Frame) error {
	return f.Each(fn)
}

// Stats is a snapshot of a session's progress.
type Stats struct {
	Chunks  uint64
	Samples uint64
	Bits    uint64

	State      SyncState
	Offset     uint64 // bit index following the preamble
	Discarded  uint64 // bits dropped while searching, preamble included
	NearMisses uint64

	Frames    uint64
	Threshold float64
	Carry     int
	Pending   int
	Alignment int
}

// Decoder owns the state of one decoding session. It is not safe for
// concurrent use: chunks must be fed one at a time, in arrival order.
type Decoder struct {
	Cfg Config

	log  logrus.FieldLogger
	sink Sink

	carry carryBuffer
	bin   Binarizer
	sync  *Synchronizer
	demux *Demultiplexer

	bits []byte

	chunks    uint64
	samples   uint64
	decided   uint64
	discarded uint64

	err    error
	closed bool
}

// NewDecoder validates cfg and returns a session writing frames to sink.
func NewDecoder(cfg Config, sink Sink) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.Wrap(ErrConfig, "sink is nil")
	}

	d := &Decoder{
		Cfg:   cfg,
		log:   logrus.StandardLogger(),
		sink:  sink,
		carry: newCarryBuffer(cfg.DecimationRatio),
		bin:   NewBinarizer(cfg),
		sync:  NewSynchronizer(cfg.Marker, cfg.Validation),
		demux: NewDemultiplexer(cfg),
	}

	return d, nil
}

// SetLogger replaces the default logrus standard logger.
func (d *Decoder) SetLogger(log logrus.FieldLogger) {
	d.log = log
}

// Feed decodes one chunk. Frames completed by the chunk are written to the
// sink before Feed returns, and the leftover samples are only committed once
// the sink has accepted all of them.
func (d *Decoder) Feed(chunk []int16) error {
	if d.err != nil {
		return errors.Wrapf(ErrAborted, "%s", d.err)
	}
	if d.closed {
		return errors.WithStack(ErrClosed)
	}
	if len(chunk) == 0 {
		return errors.WithStack(ErrMalformedChunk)
	}

	run := d.carry.Join(chunk)
	d.bits = d.bin.Binarize(run, d.bits[:0])

	if err := d.decode(d.bits); err != nil {
		d.err = err
		return err
	}
	if err := d.flush(); err != nil {
		d.err = err
		return err
	}

	d.carry.Commit()
	d.chunks++
	d.samples += uint64(len(chunk))

	d.log.WithFields(logrus.Fields{
		"chunk":     d.chunks,
		"samples":   len(chunk),
		"bits":      len(d.bits),
		"state":     d.sync.State(),
		"alignment": d.demux.Alignment(),
		"carry":     d.carry.Len(),
		"threshold": d.bin.Threshold(),
	}).Debug("chunk decoded")

	return nil
}

// Pass bits through the synchronizer and on to the demultiplexer once
// locked.
func (d *Decoder) decode(bits []byte) error {
	d.decided += uint64(len(bits))

	wasLocked := d.sync.State() == Locked
	rest, locked := d.sync.Scan(bits)
	if !locked {
		d.discarded += uint64(len(bits))
		return nil
	}

	if !wasLocked {
		d.discarded += uint64(len(bits) - len(rest))
		d.log.WithFields(logrus.Fields{
			"offset":      d.sync.Offset(),
			"near_misses": d.sync.NearMisses(),
			"discarded":   d.discarded,
		}).Info("preamble locked")
	}

	return d.demux.Demux(rest, d.emit)
}

func (d *Decoder) emit(f Frame) error {
	if err := d.sink.WriteFrame(f); err != nil {
		return errors.WithStack(&SinkError{Frame: f.Index, Err: err})
	}
	return nil
}

// A failed flush is reported against the next frame index, every frame
// before it having been handed to the sink.
func (d *Decoder) flush() error {
	fl, ok := d.sink.(Flusher)
	if !ok {
		return nil
	}
	if err := fl.Flush(); err != nil {
		return errors.WithStack(&SinkError{Frame: d.demux.Frames(), Err: err})
	}
	return nil
}

// Close ends the session. Positions withheld for an incomplete threshold
// window are decided using the final window of the stream, and any frame
// they complete is written. Bits of a trailing partial frame and the sample
// carry are discarded.
func (d *Decoder) Close() error {
	if d.err != nil {
		return errors.Wrapf(ErrAborted, "%s", d.err)
	}
	if d.closed {
		return nil
	}
	d.closed = true

	d.bits = d.bin.Flush(d.bits[:0])
	if err := d.decode(d.bits); err != nil {
		d.err = err
		return err
	}
	if err := d.flush(); err != nil {
		d.err = err
		return err
	}

	if d.sync.State() == Searching {
		d.log.WithField("bits", d.decided).Warn("session closed without preamble lock")
	}

	return nil
}

// State reports whether the preamble has been found.
func (d *Decoder) State() SyncState {
	return d.sync.State()
}

// Alignment is the number of bits of the current frame consumed so far.
func (d *Decoder) Alignment() int {
	return d.demux.Alignment()
}

// CarryLen is the number of raw samples carried into the next chunk.
func (d *Decoder) CarryLen() int {
	return d.carry.Len()
}

func (d *Decoder) Stats() Stats {
	return Stats{
		Chunks:     d.chunks,
		Samples:    d.samples,
		Bits:       d.decided,
		State:      d.sync.State(),
		Offset:     d.sync.Offset(),
		Discarded:  d.discarded,
		NearMisses: d.sync.NearMisses(),
		Frames:     d.demux.Frames(),
		Threshold:  d.bin.Threshold(),
		Carry:      d.carry.Len(),
		Pending:    d.bin.Pending(),
		Alignment:  d.demux.Alignment(),
	}
}

// Log writes the session's statistics to the decoder's logger.
func (d *Decoder) Log() {
	s := d.Stats()
	d.log.WithFields(logrus.Fields{
		"chunks":      s.Chunks,
		"samples":     s.Samples,
		"bits":        s.Bits,
		"state":       s.State,
		"offset":      s.Offset,
		"discarded":   s.Discarded,
		"near_misses": s.NearMisses,
		"frames":      s.Frames,
		"threshold":   s.Threshold,
	}).Info("session stats")
}
