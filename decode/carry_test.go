package decode

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(start, n int) []int16 {
	s := make([]int16, n)
	for idx := range s {
		s[idx] = int16(start + idx)
	}
	return s
}

func TestCarryJoin(t *testing.T) {
	c := newCarryBuffer(10)

	run := c.Join(sequence(0, 25))
	assert.Equal(t, sequence(0, 20), run)
	assert.Zero(t, c.Len(), "carry must not change before commit")

	c.Commit()
	assert.Equal(t, 5, c.Len())

	run = c.Join(sequence(25, 7))
	assert.Equal(t, sequence(20, 10), run)
	c.Commit()
	assert.Equal(t, 2, c.Len())

	// Too short to complete a step.
	run = c.Join(sequence(32, 3))
	assert.Empty(t, run)
	c.Commit()
	assert.Equal(t, 5, c.Len())
}

func TestCarryNeverDropsOrDuplicates(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for _, ratio := range []int{1, 3, 10, 17} {
		c := newCarryBuffer(ratio)

		var joined []int16
		consumed := 0
		for consumed < 5000 {
			n := r.Intn(97) + 1
			joined = append(joined, c.Join(sequence(consumed, n))...)
			c.Commit()
			consumed += n

			require.Less(t, c.Len(), ratio)
			require.Equal(t, consumed%ratio, c.Len())
		}

		assert.Equal(t, sequence(0, consumed-c.Len()), joined, "ratio %d", ratio)
	}
}
