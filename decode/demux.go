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

import "fmt"

// A Frame holds the bytes decoded from one group of FrameBits locked bits.
// Data is ordered channel 1 lane 1, channel 1 lane 2, channel 2 lane 1 and so
// on, LaneBytes bytes per lane.
type Frame struct {
	Index     uint64
	Channels  int
	Lanes     int
	LaneBytes int
	Data      []byte
}

// Lane returns the bytes of the given 1-based channel and lane.
func (f Frame) Lane(channel, lane int) []byte {
	idx := ((channel-1)*f.Lanes + lane - 1) * f.LaneBytes
	return f.Data[idx : idx+f.LaneBytes]
}

// Each calls fn for every channel and lane in emission order, stopping at the
// first error.
func (f Frame) Each(fn func(channel, lane int, p []byte) error) error {
	for channel := 1; channel <= f.Channels; channel++ {
		for lane := 1; lane <= f.Lanes; lane++ {
			if err := fn(channel, lane, f.Lane(channel, lane)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f Frame) String() string {
	return fmt.Sprintf("{Index:%d Data:%02X}", f.Index, f.Data)
}

// Demultiplexer groups locked bits into frames and splits every frame into
// per-channel, per-lane bytes. Bits of an incomplete frame are kept unpacked
// until the next call completes it.
type Demultiplexer struct {
	frameBits   int
	segmentBits int
	channels    int
	lanes       int
	laneBits    int
	laneBytes   int

	carry  []byte
	frames uint64
}

// NewDemultiplexer returns a demultiplexer for a validated configuration.
func NewDemultiplexer(cfg Config) *Demultiplexer {
	return &Demultiplexer{
		frameBits:   cfg.FrameBits,
		segmentBits: cfg.SegmentBits,
		channels:    cfg.Channels,
		lanes:       cfg.Lanes,
		laneBits:    cfg.LaneBits,
		laneBytes:   cfg.LaneBytes,
		carry:       make([]byte, 0, cfg.FrameBits),
	}
}

// Demux appends bits to the current frame and calls emit for every frame
// completed. The frame's Data is owned by the receiver.
func (d *Demultiplexer) Demux(bits []byte, emit func(Frame) error) error {
	// Finish the frame left incomplete by the previous call.
	if len(d.carry) > 0 {
		n := min(d.frameBits-len(d.carry), len(bits))
		d.carry = append(d.carry, bits[:n]...)
		bits = bits[n:]

		if len(d.carry) < d.frameBits {
			return nil
		}

		if err := emit(d.pack(d.carry)); err != nil {
			return err
		}
		d.carry = d.carry[:0]
	}

	for len(bits) >= d.frameBits {
		if err := emit(d.pack(bits[:d.frameBits])); err != nil {
			return err
		}
		bits = bits[d.frameBits:]
	}

	d.carry = append(d.carry, bits...)

	return nil
}

// Within each channel segment, lane k takes the bits at offsets k, k+lanes,
// k+2*lanes and so on. Lane bits are packed 8 to a byte, first bit in the
// most significant position.
func (d *Demultiplexer) pack(bits []byte) Frame {
	f := Frame{
		Index:     d.frames,
		Channels:  d.channels,
		Lanes:     d.lanes,
		LaneBytes: d.laneBytes,
		Data:      make([]byte, d.channels*d.lanes*d.laneBytes),
	}
	d.frames++

	out := 0
	for channel := 0; channel < d.channels; channel++ {
		segment := bits[channel*d.segmentBits : (channel+1)*d.segmentBits]
		for lane := 0; lane < d.lanes; lane++ {
			for pIdx := 0; pIdx < d.laneBits; pIdx++ {
				f.Data[out+pIdx>>3] <<= 1
				f.Data[out+pIdx>>3] |= segment[lane+pIdx*d.lanes] & 1
			}
			out += d.laneBytes
		}
	}

	return f
}

// Alignment is the number of bits of the incomplete frame already consumed.
// Always less than FrameBits.
func (d *Demultiplexer) Alignment() int {
	return len(d.carry)
}

// Frames is the number of frames emitted.
func (d *Demultiplexer) Frames() uint64 {
	return d.frames
}
