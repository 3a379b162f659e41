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

// SyncState is the synchronizer's progress. It only ever moves from
// Searching to Locked.
type SyncState int

const (
	Searching SyncState = iota
	Locked
)

func (s SyncState) String() string {
	switch s {
	case Searching:
		return "searching"
	case Locked:
		return "locked"
	}
	return "unknown"
}

// Synchronizer searches the bit stream for the preamble, a marker followed by
// a validation field. The most recent bits are kept in a shift register, so
// the search window slides one bit at a time across chunk boundaries without
// skipping or revisiting a bit. A marker whose validation field doesn't match
// is a near miss, the search simply continues with the next bit.
type Synchronizer struct {
	pattern uint64
	mask    uint64
	length  int

	marker      uint64
	markerShift uint

	reg    uint64
	filled int

	state      SyncState
	scanned    uint64
	lockedAt   uint64
	nearMisses uint64
}

// NewSynchronizer builds a synchronizer for the given marker and validation
// field, both strings of ASCII 0's and 1's totalling at most 64 bits.
func NewSynchronizer(marker, validation string) *Synchronizer {
	s := &Synchronizer{
		length:      len(marker) + len(validation),
		marker:      parseBits(marker),
		markerShift: uint(len(validation)),
	}

	s.pattern = s.marker<<s.markerShift | parseBits(validation)
	s.mask = ^uint64(0) >> uint(64-s.length)

	return s
}

// Take a string of ascii 0's and 1's, convert it to its numerical value.
func parseBits(bits string) (v uint64) {
	for idx := range bits {
		v <<= 1
		if bits[idx] == '1' {
			v |= 1
		}
	}
	return v
}

// Scan examines bits while searching. On lock it returns the bits following
// the preamble, which begin a frame. Once locked it returns bits untouched.
// While still searching every bit is discarded and rest is nil.
func (s *Synchronizer) Scan(bits []byte) (rest []byte, locked bool) {
	if s.state == Locked {
		return bits, true
	}

	for idx, bit := range bits {
		s.reg = (s.reg<<1 | uint64(bit&1)) & s.mask
		s.scanned++

		// Not enough bits seen yet to fill the window.
		if s.filled < s.length {
			s.filled++
			if s.filled < s.length {
				continue
			}
		}

		if s.reg == s.pattern {
			s.state = Locked
			s.lockedAt = s.scanned
			return bits[idx+1:], true
		}

		if s.reg>>s.markerShift == s.marker {
			s.nearMisses++
		}
	}

	return nil, false
}

func (s *Synchronizer) State() SyncState {
	return s.state
}

// Offset is the index into the bit stream of the first bit after the
// preamble. Zero until locked.
func (s *Synchronizer) Offset() uint64 {
	return s.lockedAt
}

// Scanned is the number of bits examined while searching.
func (s *Synchronizer) Scanned() uint64 {
	return s.scanned
}

// NearMisses counts marker matches rejected by the validation field.
func (s *Synchronizer) NearMisses() uint64 {
	return s.nearMisses
}
