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

// carryBuffer holds the raw samples left over when a chunk doesn't divide
// evenly by the decimation ratio, so decimation phase never resets between
// chunks.
type carryBuffer struct {
	ratio int

	tail   []int16 // committed carry, len < ratio
	staged []int16 // carry of the chunk being decoded
	run    []int16 // tail ++ chunk, reused between calls
}

func newCarryBuffer(ratio int) carryBuffer {
	return carryBuffer{
		ratio:  ratio,
		tail:   make([]int16, 0, ratio),
		staged: make([]int16, 0, ratio),
	}
}

// Join prepends the committed carry to chunk and returns the longest prefix
// made of whole decimation steps. The remainder is staged and becomes the
// carry on Commit. The returned slice is only valid until the next Join.
func (c *carryBuffer) Join(chunk []int16) []int16 {
	c.run = append(c.run[:0], c.tail...)
	c.run = append(c.run, chunk...)

	n := len(c.run) - len(c.run)%c.ratio
	c.staged = append(c.staged[:0], c.run[n:]...)

	return c.run[:n]
}

// Commit makes the staged remainder the carry for the next chunk.
func (c *carryBuffer) Commit() {
	c.tail, c.staged = c.staged, c.tail[:0]
}

// Len is the committed carry length, always less than the decimation ratio.
func (c *carryBuffer) Len() int {
	return len(c.tail)
}
