// Package gen synthesizes sample streams carrying a preamble and multiplexed
// lane bytes, for tests and for exercising the receiver without hardware.
package gen

import (
	"fmt"
	"math"
	"math/rand"
)

// Bits converts a string of ascii 0's and 1's to numerical 0's and 1's.
func Bits(s string) []byte {
	bits := make([]byte, len(s))
	for idx := range s {
		if s[idx] == '1' {
			bits[idx] = 1
		}
	}
	return bits
}

// UnpackBits expands bytes to one bit per byte, most significant bit first.
func UnpackBits(data []byte) []byte {
	bits := make([]byte, len(data)<<3)

	for idx, b := range data {
		offset := idx << 3
		for bit := 7; bit >= 0; bit-- {
			bits[offset+(7-bit)] = (b >> uint8(bit)) & 0x01
		}
	}

	return bits
}

// Mux interleaves lane bytes into frame bits. lanes holds one byte sequence
// per channel and lane, ordered channel 1 lane 1, channel 1 lane 2 and so on.
// Every lane contributes laneBytes bytes to each frame; within a channel
// segment the lanes take turns bit by bit.
func Mux(lanes [][]byte, channels, lanesPerChannel, laneBytes int) []byte {
	if len(lanes) != channels*lanesPerChannel {
		panic(fmt.Errorf("expected %d lanes, got %d", channels*lanesPerChannel, len(lanes)))
	}

	frames := len(lanes[0]) / laneBytes
	laneBits := laneBytes << 3
	bits := make([]byte, 0, frames*channels*lanesPerChannel*laneBits)

	for frame := 0; frame < frames; frame++ {
		for channel := 0; channel < channels; channel++ {
			unpacked := make([][]byte, lanesPerChannel)
			for lane := range unpacked {
				data := lanes[channel*lanesPerChannel+lane]
				unpacked[lane] = UnpackBits(data[frame*laneBytes : (frame+1)*laneBytes])
			}

			for pIdx := 0; pIdx < laneBits; pIdx++ {
				for lane := range unpacked {
					bits = append(bits, unpacked[lane][pIdx])
				}
			}
		}
	}

	return bits
}

// Modulate produces ratio samples per bit. The first sample of each step is
// +amplitude for a 1 and -amplitude for a 0, the second cancels it and the
// rest are zero. Every step sums to zero, so any mean threshold over whole
// steps is exactly 0 and each bit decision is unambiguous. Ratio must be at
// least 2.
func Modulate(bits []byte, ratio int, amplitude int16) []int16 {
	if ratio < 2 {
		panic(fmt.Errorf("ratio must be at least 2: %d", ratio))
	}

	signal := make([]int16, len(bits)*ratio)
	for idx, b := range bits {
		v := -amplitude
		if b == 1 {
			v = amplitude
		}
		signal[idx*ratio] = v
		signal[idx*ratio+1] = -v
	}

	return signal
}

// Hold produces ratio samples per bit, every sample of a step at +amplitude
// for a 1 and -amplitude for a 0.
func Hold(bits []byte, ratio int, amplitude int16) []int16 {
	signal := make([]int16, 0, len(bits)*ratio)
	for _, b := range bits {
		v := -amplitude
		if b == 1 {
			v = amplitude
		}
		for idx := 0; idx < ratio; idx++ {
			signal = append(signal, v)
		}
	}
	return signal
}

// Constant returns n samples of value v.
func Constant(n int, v int16) []int16 {
	signal := make([]int16, n)
	for idx := range signal {
		signal[idx] = v
	}
	return signal
}

// RandLanes returns count lanes of n random bytes each.
func RandLanes(r *rand.Rand, count, n int) [][]byte {
	lanes := make([][]byte, count)
	for idx := range lanes {
		lanes[idx] = make([]byte, n)
		r.Read(lanes[idx])
	}
	return lanes
}

// RandBits returns n random bits.
func RandBits(r *rand.Rand, n int) []byte {
	bits := make([]byte, n)
	for idx := range bits {
		bits[idx] = byte(r.Intn(2))
	}
	return bits
}

// AddNoise adds uniform noise in [-amplitude, amplitude) to every sample,
// saturating at the int16 range.
func AddNoise(r *rand.Rand, signal []int16, amplitude float64) {
	for idx, s := range signal {
		v := float64(s) + (r.Float64()-0.5)*2.0*amplitude
		signal[idx] = int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v))))
	}
}
