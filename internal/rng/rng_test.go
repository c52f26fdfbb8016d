package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithTheSameSeedsProducesTheSameSequence(t *testing.T) {
	a := New(1, 2)
	b := New(1, 2)
	for i := 0; i < 32; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestNewWithDifferentSeedsProducesDifferentSequences(t *testing.T) {
	a := New(1, 2)
	b := New(3, 4)
	differed := false
	for i := 0; i < 32; i++ {
		if a.IntN(1_000_000) != b.IntN(1_000_000) {
			differed = true
			break
		}
	}
	assert.True(t, differed)
}

func TestBytesFillsTheWholeBuffer(t *testing.T) {
	r := New(5, 6)
	buf := make([]byte, 64)
	Bytes(r, buf)

	allZero := true
	for _, b := range buf {
		if b != 0 {
			allZero = false
			break
		}
	}
	assert.False(t, allZero)
}

func TestBoolReturnsBothOutcomesOverManyDraws(t *testing.T) {
	r := New(7, 8)
	sawTrue, sawFalse := false, false
	for i := 0; i < 64; i++ {
		if Bool(r) {
			sawTrue = true
		} else {
			sawFalse = true
		}
	}
	assert.True(t, sawTrue)
	assert.True(t, sawFalse)
}

func TestShufflePreservesMultisetMembership(t *testing.T) {
	r := New(9, 10)
	original := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	shuffled := append([]byte{}, original...)
	Shuffle(r, shuffled)

	assert.ElementsMatch(t, original, shuffled)
}

func TestShuffleIsEmptyAndSingletonSafe(t *testing.T) {
	r := New(11, 12)
	assert.NotPanics(t, func() {
		Shuffle(r, nil)
		Shuffle(r, []byte{0x42})
	})
}
