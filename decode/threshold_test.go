package decode

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, ratio, window int, policy ThresholdPolicy) Config {
	t.Helper()

	cfg := NewConfig()
	cfg.DecimationRatio = ratio
	cfg.ThresholdWindow = window
	cfg.ThresholdPolicy = policy
	require.NoError(t, cfg.Validate())

	return cfg
}

func TestMeanWideAccumulator(t *testing.T) {
	samples := make([]int16, 200*10)
	for idx := range samples {
		samples[idx] = math.MaxInt16
	}
	assert.Equal(t, float64(math.MaxInt16), mean(samples))

	for idx := range samples {
		samples[idx] = math.MinInt16
	}
	assert.Equal(t, float64(math.MinInt16), mean(samples))

	assert.Zero(t, mean(nil))
}

func TestDecisionRule(t *testing.T) {
	run := []int16{0, 20, 8, 8} // threshold 9

	first := newTestConfig(t, 2, 2, PolicyWindow)
	assert.Equal(t, []byte{0, 0}, NewBinarizer(first).Binarize(run, nil))

	stepMean := first
	stepMean.Decision = DecideMean
	assert.Equal(t, []byte{1, 0}, NewBinarizer(stepMean).Binarize(run, nil))
}

func TestAnchor(t *testing.T) {
	run := []int16{0, 1, 2, 3, 4, 5}

	assert.Equal(t, []int16{0, 1, 2, 3}, anchor(run, 0, 4))
	assert.Equal(t, []int16{2, 3, 4, 5}, anchor(run, 4, 4))
	assert.Equal(t, run, anchor(run, 2, 8))
}

// A stream of 6 decimated positions with W=4: the second window only has two
// positions, so its threshold must come from the final 8 samples.
func tailStream() []int16 {
	return []int16{
		10, 0, 20, 0, 30, 0, 40, 0, // first window, mean 12.5
		14, 0, 60, 0, // tail positions
	}
}

func TestThresholdTailPolicy(t *testing.T) {
	stream := tailStream()
	tail := mean(stream[len(stream)-8:])

	for _, policy := range []ThresholdPolicy{PolicyWindow, PolicyChunk} {
		t.Run(string(policy), func(t *testing.T) {
			b := NewBinarizer(newTestConfig(t, 2, 4, policy))

			bits := b.Binarize(stream, nil)
			bits = b.Flush(bits)

			assert.Equal(t, tail, b.Threshold())
			assert.Equal(t, uint64(6), b.Position())
			// 14 clears the first window's 12.5 but not the tail mean of 18.
			assert.Equal(t, 18.0, b.Threshold())
			assert.Equal(t, []byte{0, 1, 1, 1, 0, 1}, bits)
		})
	}
}

func TestThresholdWindowWithholdsTail(t *testing.T) {
	b := NewBinarizer(newTestConfig(t, 2, 4, PolicyWindow))

	bits := b.Binarize(tailStream(), nil)
	assert.Len(t, bits, 4)
	assert.Equal(t, 4, b.Pending())
	assert.Equal(t, 12.5, b.Threshold())

	bits = b.Flush(bits[:0])
	assert.Len(t, bits, 2)
	assert.Zero(t, b.Pending())
}

func TestThresholdShortStreamClamps(t *testing.T) {
	stream := []int16{3, 0, 9, 0, 6, 0}

	for _, policy := range []ThresholdPolicy{PolicyWindow, PolicyChunk} {
		t.Run(string(policy), func(t *testing.T) {
			b := NewBinarizer(newTestConfig(t, 2, 4, policy))

			bits := b.Flush(b.Binarize(stream, nil))
			assert.Equal(t, 3.0, b.Threshold())
			assert.Equal(t, []byte{1, 1, 1}, bits)
		})
	}
}

func TestThresholdChunkPolicyCarriesThreshold(t *testing.T) {
	b := NewBinarizer(newTestConfig(t, 2, 4, PolicyChunk))

	// First run covers a full window and half of the second.
	bits := b.Binarize([]int16{10, 0, 20, 0, 30, 0, 40, 0, 50, 0, 60, 0}, nil)
	assert.Equal(t, []byte{0, 1, 1, 1, 1, 1}, bits)
	tail := b.Threshold()
	assert.Equal(t, 22.5, tail)

	// Positions 6 and 7 still belong to the second window.
	bits = b.Binarize([]int16{22, 0, 23, 0}, bits[:0])
	assert.Equal(t, tail, b.Threshold())
	assert.Equal(t, []byte{0, 1}, bits)
}

func TestThresholdWindowChunkInvariance(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	cfg := newTestConfig(t, 10, 16, PolicyWindow)

	stream := make([]int16, cfg.WindowLength*7+cfg.DecimationRatio*5)
	for idx := range stream {
		stream[idx] = int16(r.Intn(1<<16) - 1<<15)
	}

	whole := NewBinarizer(cfg)
	want := whole.Flush(whole.Binarize(stream, nil))

	for trial := 0; trial < 64; trial++ {
		split := NewBinarizer(cfg)

		var got []byte
		for rest := stream; len(rest) > 0; {
			n := (r.Intn(40) + 1) * cfg.DecimationRatio
			n = min(n, len(rest))
			got = split.Binarize(rest[:n], got)
			assert.Less(t, split.Pending(), cfg.WindowLength)
			rest = rest[n:]
		}
		got = split.Flush(got)

		require.Equal(t, want, got, "trial %d", trial)
	}
}
